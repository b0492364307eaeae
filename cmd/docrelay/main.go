package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/docrelay/docrelay/internal/docrelay"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := docrelay.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		logger.Error("required: SOURCE_URL, SOURCE_TOKEN, plus SINK_TOKEN (upload mode) " +
			"or SMTP_SERVER, SMTP_PORT, LOGIN, PASSWORD, EMAIL_ACCOUNT (email mode)")
		os.Exit(1)
	}

	pipeline, cleanup, err := buildPipeline(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", zap.Error(err))
		os.Exit(1)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := docrelay.NewStagingWatcher(cfg.StagingDir)
	if err != nil {
		logger.Warn("staging watcher unavailable, flushing on poll ticks only", zap.Error(err))
	} else {
		defer func() { _ = watcher.Close() }()
	}

	logger.Info("docrelay starting",
		zap.String("sourceURL", cfg.SourceURL),
		zap.String("sinkMode", string(cfg.Mode())),
		zap.String("stagingDir", cfg.StagingDir),
		zap.Duration("pollInterval", cfg.PollInterval()))
	pipeline.Run(ctx, watcher.Wake())
	logger.Info("docrelay stopped")
}

func buildPipeline(cfg docrelay.Config, logger *zap.Logger) (*docrelay.Pipeline, func(), error) {
	source, err := docrelay.NewPaperlessClient(docrelay.PaperlessClientOptions{
		BaseURL:      cfg.SourceURL,
		Token:        cfg.SourceToken,
		FilterTagID:  cfg.FilterTagID,
		FilterTypeID: cfg.FilterTypeID,
	})
	if err != nil {
		return nil, nil, err
	}
	sink, err := cfg.BuildSink()
	if err != nil {
		return nil, nil, err
	}
	staging, err := docrelay.NewStaging(cfg.StagingDir, cfg.DeadLetterDir)
	if err != nil {
		return nil, nil, err
	}
	backend, err := docrelay.BuildStateBackendFromDSN(cfg.StateDSN)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if closer, ok := backend.(interface{ Close() error }); ok {
			if closeErr := closer.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				logger.Warn("closing state backend failed", zap.Error(closeErr))
			}
		}
	}
	pipeline, err := docrelay.NewPipeline(docrelay.PipelineOptions{
		Source:              source,
		Sink:                sink,
		Staging:             staging,
		StateBackend:        backend,
		Logger:              logger,
		PollInterval:        cfg.PollInterval(),
		MaxDeliveryAttempts: cfg.MaxDeliveryAttempts,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return pipeline, cleanup, nil
}
