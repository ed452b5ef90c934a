package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/cleaner"
	"github.com/David-Botos/sales-ingress/pkg/extractor"
	"github.com/David-Botos/sales-ingress/pkg/model"
)

var errNoExtractor = errors.New("no extractor configured for source")

// TableReader reads a relational table by name
type TableReader interface {
	ReadTable(ctx context.Context, name string) (model.Table, error)
}

// DocumentReader reads the table laid out in a document
type DocumentReader interface {
	Retrieve(ctx context.Context, url string) (model.Table, error)
}

// StoreReader reads every store from the stores API
type StoreReader interface {
	RetrieveStores(ctx context.Context) (model.Table, error)
}

// ObjectReader reads a tabular file from object storage
type ObjectReader interface {
	Extract(ctx context.Context, uri string, format extractor.Format) (model.Table, error)
}

// Cleaner cleans a table as an entity and records what it did
type Cleaner interface {
	Clean(ctx context.Context, entity cleaner.Entity, t model.Table, runID, destination string) (model.Table, model.Report, error)
}

// Loader replaces destination tables
type Loader interface {
	ReplaceTable(ctx context.Context, table string, t model.Table, batchSize int) (int64, error)
	Schema() string
}

// Extractors holds one reader per source kind. Unused kinds may be nil.
type Extractors struct {
	RDS TableReader
	PDF DocumentReader
	API StoreReader
	S3  ObjectReader
}

// Pipeline runs jobs one after another: extract, clean, load, verify
type Pipeline struct {
	extractors Extractors
	cleaner    Cleaner
	loader     Loader
	verifier   *Verifier
	metrics    *Metrics
	logger     *zap.Logger
	batchSize  int
	retryDelay time.Duration
}

// NewPipeline creates a pipeline without verification or metrics
func NewPipeline(extractors Extractors, c Cleaner, loader Loader, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		extractors: extractors,
		cleaner:    c,
		loader:     loader,
		logger:     logger.Named("pipeline"),
		batchSize:  1000,
		retryDelay: 2 * time.Second,
	}
}

// WithVerifier enables row count verification after each load
func (p *Pipeline) WithVerifier(v *Verifier) *Pipeline {
	p.verifier = v
	return p
}

// WithMetrics records every job result in m
func (p *Pipeline) WithMetrics(m *Metrics) *Pipeline {
	p.metrics = m
	return p
}

// WithBatchSize sets the number of rows per INSERT statement
func (p *Pipeline) WithBatchSize(n int) *Pipeline {
	if n > 0 {
		p.batchSize = n
	}
	return p
}

// WithRetryDelay sets the base delay between extraction retries
func (p *Pipeline) WithRetryDelay(d time.Duration) *Pipeline {
	p.retryDelay = d
	return p
}

// Run executes jobs in order under a fresh run ID. A failed job is recorded
// and the run moves on to the next one; cancellation stops the run.
func (p *Pipeline) Run(ctx context.Context, jobs []Job) *RunResult {
	run := NewRunResult(uuid.New().String())
	p.logger.Info("Starting run", zap.String("run_id", run.RunID), zap.Int("jobs", len(jobs)))

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			result := NewJobResult(job)
			result.Fail(err)
			run.Add(*result)
			continue
		}

		result := p.RunJob(ctx, run.RunID, job)
		if p.metrics != nil {
			p.metrics.RecordJob(result)
		}
		run.Add(result)
	}

	run.Complete()
	if p.metrics != nil {
		p.metrics.LogSummary(run)
	}
	return run
}

// RunJob executes a single job
func (p *Pipeline) RunJob(ctx context.Context, runID string, job Job) JobResult {
	logger := p.logger.With(
		zap.String("job", job.Name),
		zap.String("source", job.Source.String()),
		zap.String("destination", job.Destination))

	start := time.Now()
	table, job, err := p.extractWithRetry(ctx, job, logger)
	result := NewJobResult(job)
	result.StartTime = start
	if err != nil {
		result.Fail(stageError(StageExtract, err))
		logger.Error("Extraction failed", zap.Error(err))
		return *result
	}
	result.RowsExtracted = int64(table.NumRows())

	cleaned, report, err := p.cleaner.Clean(ctx, job.Entity, table, runID, job.Destination)
	result.Report = report
	if err != nil {
		result.Fail(stageError(StageClean, err))
		logger.Error("Cleaning failed", zap.Error(err))
		return *result
	}

	loaded, err := p.loader.ReplaceTable(ctx, job.Destination, cleaned, p.batchSize)
	if err != nil {
		result.Fail(stageError(StageLoad, err))
		logger.Error("Load failed", zap.Error(err))
		return *result
	}
	result.RowsLoaded = loaded

	if p.verifier != nil {
		report, err := p.verifier.VerifyRowCount(ctx, p.loader.Schema(), job.Destination, int64(cleaned.NumRows()))
		if err != nil {
			result.Fail(stageError(StageVerify, err))
			return *result
		}
		if !report.RowCountMatches {
			result.Fail(stageError(StageVerify, fmt.Errorf("expected %d rows in %s, found %d",
				report.ExpectedRows, job.Destination, report.ActualRows)))
			return *result
		}
		result.Verified = true
	}

	result.Complete(true)
	logger.Info("Job completed",
		zap.Int64("rows_extracted", result.RowsExtracted),
		zap.Int64("rows_loaded", result.RowsLoaded),
		zap.Duration("duration", result.Duration))
	return *result
}

// extractWithRetry retries transient extraction failures while the job allows it
func (p *Pipeline) extractWithRetry(ctx context.Context, job Job, logger *zap.Logger) (model.Table, Job, error) {
	for {
		table, err := p.extract(ctx, job)
		if err == nil || !IsRetryableError(err) || !job.IsRetryable() {
			return table, job, err
		}

		job = job.Retry()
		delay := p.retryDelay * time.Duration(job.RetryCount)
		logger.Warn("Retrying extraction",
			zap.Int("retry", job.RetryCount),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return model.Table{}, job, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (p *Pipeline) extract(ctx context.Context, job Job) (model.Table, error) {
	src := job.Source
	switch src.Kind {
	case SourceRDS:
		if p.extractors.RDS != nil {
			return p.extractors.RDS.ReadTable(ctx, src.Table)
		}
	case SourcePDF:
		if p.extractors.PDF != nil {
			return p.extractors.PDF.Retrieve(ctx, src.URL)
		}
	case SourceAPI:
		if p.extractors.API != nil {
			return p.extractors.API.RetrieveStores(ctx)
		}
	case SourceS3:
		if p.extractors.S3 != nil {
			return p.extractors.S3.Extract(ctx, src.URI, src.Format)
		}
	}
	return model.Table{}, fmt.Errorf("%w %q", errNoExtractor, src.Kind)
}
