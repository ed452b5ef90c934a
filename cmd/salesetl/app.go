package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/cleaner"
	"github.com/David-Botos/sales-ingress/pkg/config"
	"github.com/David-Botos/sales-ingress/pkg/connector"
	"github.com/David-Botos/sales-ingress/pkg/extractor"
	"github.com/David-Botos/sales-ingress/pkg/pipeline"
)

const pushTimeout = 10 * time.Second

// newLogger builds the process logger from the log section
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zcfg zap.Config
	switch cfg.Format {
	case "console":
		zcfg = zap.NewDevelopmentConfig()
	case "json", "":
		zcfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}
	zcfg.Level = level

	return zcfg.Build()
}

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// app holds everything a pipeline run needs
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	source   *connector.Source
	dest     *connector.PostgresConnector
	pipeline *pipeline.Pipeline
	metrics  *pipeline.Metrics
}

// newApp connects to the source and destination and wires the extractors
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	factory := connector.NewConnectorFactory(cfg, logger)
	source, dest, err := factory.CreateAllConnectors(ctx)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, source: source, dest: dest}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	dataCleaner, err := cleaner.NewDataCleaner(ctx, a.dest.DB(), a.logger)
	if err != nil {
		return err
	}

	s3Extractor, err := extractor.NewS3Extractor(ctx, a.cfg.S3, a.logger)
	if err != nil {
		return err
	}

	extractors := pipeline.Extractors{
		RDS: extractor.NewRDSReader(a.source.DB, a.logger),
		PDF: extractor.NewPDFExtractor(a.cfg.PDF.Timeout, a.logger),
		API: extractor.NewStoreAPI(a.cfg.API, a.logger),
		S3:  s3Extractor,
	}

	a.metrics = pipeline.NewMetrics(a.logger)
	a.pipeline = pipeline.NewPipeline(extractors, dataCleaner, a.dest, a.logger).
		WithBatchSize(a.cfg.Pipeline.BatchSize).
		WithMetrics(a.metrics)
	if a.cfg.Pipeline.Verify {
		a.pipeline.WithVerifier(pipeline.NewVerifier(a.dest, a.logger))
	}
	return nil
}

// runOnce runs the selected jobs and pushes metrics. It returns the joined
// job errors.
func (a *app) runOnce(ctx context.Context, only []string) error {
	jobs, err := pipeline.ResolveJobs(a.cfg)
	if err != nil {
		return err
	}
	if jobs, err = pipeline.FilterJobs(jobs, only); err != nil {
		return err
	}

	run := a.pipeline.Run(ctx, jobs)

	// Push even when the run was interrupted so the failures are visible
	pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := a.metrics.Push(pushCtx, a.cfg.Metrics.PushURL, a.cfg.Metrics.JobName); err != nil {
		a.logger.Warn("Metrics push failed", zap.Error(err))
	}

	return run.Err()
}

// Close releases both database connections
func (a *app) Close() error {
	var errs []error
	if a.source != nil {
		errs = append(errs, a.source.Close())
	}
	if a.dest != nil {
		errs = append(errs, a.dest.Close())
	}
	return errors.Join(errs...)
}
