package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sanspareilsmyn/profilelens/internal/config"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatNone    = "none" // file output only
)

var (
	ErrNoLogOutputs      = errors.New("no logging outputs configured (console disabled and file logging off)")
	ErrUnknownLogFormat  = errors.New("unknown log format")
	ErrCreatingLogFolder = errors.New("failed to create log directory")
)

// NewLogger initializes a zap logger based on the provided configuration.
// Standard output uses the configured format, split by level between stdout
// and stderr; the optional file output is always JSON and rotated by size.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARN: %v, defaulting to INFO level\n", err)
		level = zapcore.InfoLevel
	}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = FormatConsole
	}

	var cores []zapcore.Core
	switch format {
	case FormatConsole, FormatJSON:
		cores = append(cores, stdCores(buildEncoder(format == FormatConsole), level)...)
	case FormatNone:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLogFormat, cfg.Format)
	}

	if cfg.FileLoggingEnabled {
		core, err := fileCore(cfg, level)
		if err != nil {
			return nil, err
		}
		cores = append(cores, core)
	}

	if len(cores) == 0 {
		return nil, ErrNoLogOutputs
	}

	isDevelopment := level == zapcore.DebugLevel || format == FormatConsole
	loggerOptions := []zap.Option{zap.AddCaller()}
	if isDevelopment {
		loggerOptions = append(loggerOptions, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		loggerOptions = append(loggerOptions, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...), loggerOptions...).Named("profilelens")

	logger.Debug("Zap logger constructed",
		zap.String("final_level", level.String()),
		zap.String("format", format),
		zap.Bool("file_logging_enabled", cfg.FileLoggingEnabled),
		zap.String("file_path", filepath.Join(cfg.Directory, cfg.Filename)),
		zap.Bool("development_mode", isDevelopment),
	)

	return logger, nil
}

// stdCores logs up to Warn on stdout and Error and above on stderr.
func stdCores(encoder zapcore.Encoder, level zapcore.Level) []zapcore.Core {
	stdout := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= level && lvl < zapcore.ErrorLevel
	}))
	stderr := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= level && lvl >= zapcore.ErrorLevel
	}))
	return []zapcore.Core{stdout, stderr}
}

func fileCore(cfg config.LogConfig, level zapcore.Level) (zapcore.Core, error) {
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("%w '%s': %w", ErrCreatingLogFolder, cfg.Directory, err)
	}

	ljack := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Directory, cfg.Filename),
		MaxSize:    cfg.MaxSize,    // megabytes
		MaxBackups: cfg.MaxBackups, // files
		MaxAge:     cfg.MaxAge,     // days
		Compress:   cfg.Compress,
	}
	return zapcore.NewCore(buildEncoder(false), zapcore.AddSync(ljack), level), nil
}

func parseLevel(levelStr string) (zapcore.Level, error) {
	var level zapcore.Level
	err := level.UnmarshalText([]byte(strings.ToLower(levelStr)))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level '%s'", levelStr)
	}
	return level, nil
}

func buildEncoder(useConsoleStyle bool) zapcore.Encoder {
	if useConsoleStyle {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}
