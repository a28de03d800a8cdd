package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/sanspareilsmyn/profilelens/internal/profile"
)

const (
	defaultKafkaGroupID      = "profilelens-default-group"
	defaultKafkaOutputTopic  = "profiles"
	defaultPeriodDuration    = 15 * time.Minute
	defaultProfileTTL        = 30 * time.Minute
	defaultDefinitionsFile   = "profiler.yaml"
	defaultMetricsEnabled    = true
	defaultMetricsAddress    = ":2112"
	defaultLogLevel          = "info"
	defaultLogFormat         = "console"
	defaultLogFileEnabled    = false
	defaultLogDirectory      = "log"
	defaultLogFilename       = "app.log"
	defaultLogMaxSizeMB      = 100
	defaultLogMaxBackups     = 3
	defaultLogMaxAgeDays     = 7
	defaultLogCompress       = false
	minProfilePeriodDuration = time.Millisecond

	// Environment variable prefix
	envPrefix = "PROFILELENS"
)

type Config struct {
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Profiler ProfilerConfig `mapstructure:"profiler"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	Topic       string   `mapstructure:"topic"`
	GroupID     string   `mapstructure:"groupID"`
	OutputTopic string   `mapstructure:"outputTopic"`
}

// ProfilerConfig holds the runtime settings of the profiler. The profile
// definitions themselves live in DefinitionsFile (see LoadProfiles).
type ProfilerConfig struct {
	PeriodDuration  time.Duration `mapstructure:"periodDuration"`
	TTL             time.Duration `mapstructure:"ttl"`
	DefinitionsFile string        `mapstructure:"definitionsFile"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"` // console or json
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"`    // Max size in MB
	MaxBackups         int    `mapstructure:"maxBackups"` // Max backup files
	MaxAge             int    `mapstructure:"maxAge"`     // Max days to retain
	Compress           bool   `mapstructure:"compress"`   // Compress rotated files?
}

// Load initializes viper, reads config, applies defaults, unmarshals, and validates.
// A relative definitionsFile is resolved against the config file's directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)

	// Set default values before reading config source .yaml
	setDefaults(v)

	// Read configuration from file (error if mandatory file is missing)
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal the configuration
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	if configPath != "" && !filepath.IsAbs(cfg.Profiler.DefinitionsFile) {
		cfg.Profiler.DefinitionsFile = filepath.Join(filepath.Dir(configPath), cfg.Profiler.DefinitionsFile)
	}

	return &cfg, nil
}

// LoadProfiles reads and validates the profile definitions file.
func LoadProfiles(path string) (*profile.ProfilerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadingDefinitionsFile, err)
	}
	profiles, err := profile.ParseProfilerConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidProfileDefinition, path, err)
	}
	return profiles, nil
}

// configureViper sets up viper instance for file and environment variables.
func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// decodeHook lets durations be written as "15m" and broker lists as a
// comma separated string, which is what environment overrides produce.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// setDefaults applies default configuration values using Viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("kafka.groupID", defaultKafkaGroupID)
	v.SetDefault("kafka.outputTopic", defaultKafkaOutputTopic)
	v.SetDefault("profiler.periodDuration", defaultPeriodDuration)
	v.SetDefault("profiler.ttl", defaultProfileTTL)
	v.SetDefault("profiler.definitionsFile", defaultDefinitionsFile)
	v.SetDefault("metrics.enabled", defaultMetricsEnabled)
	v.SetDefault("metrics.address", defaultMetricsAddress)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFileEnabled)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackups)
	v.SetDefault("log.maxAge", defaultLogMaxAgeDays)
	v.SetDefault("log.compress", defaultLogCompress)
}

// readConfigFile attempts to read the configuration file specified in viper.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) || errors.Is(err, os.ErrNotExist) {
			return ErrConfigFileMissing
		}
		return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return ErrEmptyKafkaBrokers
	}
	if cfg.Kafka.Topic == "" {
		return ErrEmptyKafkaTopic
	}
	if cfg.Kafka.GroupID == "" {
		return ErrEmptyKafkaGroupID
	}
	if cfg.Kafka.OutputTopic == "" {
		return ErrEmptyKafkaOutputTopic
	}
	if cfg.Profiler.PeriodDuration < minProfilePeriodDuration {
		return ErrInvalidPeriodDuration
	}
	if cfg.Profiler.TTL <= 0 {
		return ErrInvalidProfileTTL
	}
	if cfg.Profiler.DefinitionsFile == "" {
		return ErrEmptyDefinitionsFile
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Address == "" {
		return ErrEmptyMetricsAddress
	}
	return nil
}
