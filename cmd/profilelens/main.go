package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sanspareilsmyn/profilelens/internal/config"
	"github.com/sanspareilsmyn/profilelens/internal/expression"
	"github.com/sanspareilsmyn/profilelens/internal/logging"
	"github.com/sanspareilsmyn/profilelens/internal/pipeline"
	"github.com/sanspareilsmyn/profilelens/internal/profiler"
)

var (
	configFile = flag.String("config", "configs/config.dev.yaml", "Path to the configuration file")
	logger     *zap.Logger
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration from %s: %v\n", *configFile, err)
		os.Exit(1)
	}

	var logErr error
	logger, logErr = logging.NewLogger(cfg.Log)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", logErr)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync() // Flush buffered logs on exit
	}()

	sugar := logger.Sugar()
	sugar.Infow("Configuration loaded successfully", "path", *configFile, "level", cfg.Log.Level)

	profiles, err := config.LoadProfiles(cfg.Profiler.DefinitionsFile)
	if err != nil {
		sugar.Fatalw("Failed to load profile definitions", "path", cfg.Profiler.DefinitionsFile, "error", err)
	}
	sugar.Infow("Profile definitions loaded",
		"path", cfg.Profiler.DefinitionsFile,
		"profiles", len(profiles.Profiles),
	)

	opts := profiler.Options{
		PeriodDuration: cfg.Profiler.PeriodDuration,
		TTL:            cfg.Profiler.TTL,
		Context:        expression.NewContext(),
		Evaluator:      expression.NewExprEvaluator(),
	}
	pipe, err := pipeline.New(cfg, profiles, opts, logger)
	if err != nil {
		sugar.Fatalw("Failed to initialize pipeline", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		sugar.Infow("Received signal, initiating shutdown...", "signal", sig.String())
		cancel()
	}()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = startMetricsServer(cfg.Metrics.Address)
	}

	sugar.Info("Starting profiling pipeline...")
	runErr := pipe.Run(ctx)

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			sugar.Warnw("Metrics server did not shut down cleanly", zap.Error(err))
		}
		shutdownCancel()
	}

	finalLogLevel := zapcore.InfoLevel
	shutdownReason := "gracefully"
	var finalErrorField = zap.Skip()

	switch {
	case runErr == nil:
		sugar.Info("Pipeline execution completed without error.")
	case errors.Is(runErr, context.Canceled):
		sugar.Info("Pipeline execution cancelled (expected on shutdown).")
	default:
		shutdownReason = "due to error"
		finalLogLevel = zapcore.ErrorLevel
		finalErrorField = zap.Error(runErr)
	}

	logger.Log(finalLogLevel, fmt.Sprintf("Pipeline shutdown %s.", shutdownReason),
		zap.String("reason", shutdownReason),
		finalErrorField,
	)
	sugar.Info("ProfileLens finished.")
}

// startMetricsServer exposes the Prometheus registry on /metrics.
func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Serving metrics", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
