package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/David-Botos/sales-ingress/pkg/cleaner"
	"github.com/David-Botos/sales-ingress/pkg/config"
	"github.com/David-Botos/sales-ingress/pkg/extractor"
	"github.com/David-Botos/sales-ingress/pkg/model"
)

// SourceKind names the extractor that feeds a job
type SourceKind string

const (
	SourceRDS SourceKind = "rds"
	SourcePDF SourceKind = "pdf"
	SourceAPI SourceKind = "api"
	SourceS3  SourceKind = "s3"
)

// Source describes where a job reads its table from
type Source struct {
	Kind   SourceKind
	Table  string           // rds
	URL    string           // pdf
	URI    string           // s3
	Format extractor.Format // s3, inferred from the key when empty
}

// String returns a short description for logs
func (s Source) String() string {
	switch s.Kind {
	case SourceRDS:
		return "rds:" + s.Table
	case SourcePDF:
		return "pdf:" + s.URL
	case SourceS3:
		return "s3:" + s.URI
	default:
		return string(s.Kind)
	}
}

// Job extracts one table, cleans it as Entity and replaces Destination
type Job struct {
	ID          string
	Name        string
	Entity      cleaner.Entity
	Source      Source
	Destination string
	CreatedAt   time.Time
	RetryCount  int
	MaxRetries  int
}

// NewJob creates a job with defaults
func NewJob(name string, entity cleaner.Entity, source Source, destination string) Job {
	return Job{
		ID:          uuid.New().String(),
		Name:        name,
		Entity:      entity,
		Source:      source,
		Destination: destination,
		CreatedAt:   time.Now(),
		MaxRetries:  2,
	}
}

// WithMaxRetries sets the maximum retry count and returns the modified job
func (j Job) WithMaxRetries(maxRetries int) Job {
	j.MaxRetries = maxRetries
	return j
}

// IsRetryable checks if the job can be retried
func (j Job) IsRetryable() bool {
	return j.RetryCount < j.MaxRetries
}

// Retry increments the retry count and returns the modified job
func (j Job) Retry() Job {
	j.RetryCount++
	return j
}

// Validate checks that the job names an entity, a usable source and a destination
func (j Job) Validate() error {
	if _, err := cleaner.CleanerFor(j.Entity); err != nil {
		return err
	}
	if j.Destination == "" {
		return errors.New("destination is required")
	}
	switch j.Source.Kind {
	case SourceRDS:
		if j.Source.Table == "" {
			return errors.New("rds source requires a table")
		}
	case SourcePDF:
		if j.Source.URL == "" {
			return errors.New("pdf source requires a url")
		}
	case SourceS3:
		if j.Source.URI == "" {
			return errors.New("s3 source requires a uri")
		}
	case SourceAPI:
	default:
		return fmt.Errorf("unsupported source kind %q", j.Source.Kind)
	}
	return nil
}

// JobFromConfig converts a configured job
func JobFromConfig(jc config.JobConfig) (Job, error) {
	entity, err := cleaner.ParseEntity(jc.Entity)
	if err != nil {
		return Job{}, err
	}
	format, err := extractor.ParseFormat(jc.Format)
	if err != nil {
		return Job{}, err
	}

	name := jc.Name
	if name == "" {
		name = entity.String()
	}
	job := NewJob(name, entity, Source{
		Kind:   SourceKind(strings.ToLower(jc.Kind)),
		Table:  jc.Table,
		URL:    jc.URL,
		URI:    jc.URI,
		Format: format,
	}, jc.Destination)

	if err := job.Validate(); err != nil {
		return Job{}, fmt.Errorf("job %s: %w", name, err)
	}
	return job, nil
}

// DefaultJobs returns the standard sales data workflow
func DefaultJobs(cfg *config.Config) []Job {
	return []Job{
		NewJob("users", cleaner.EntityUsers, Source{Kind: SourceRDS, Table: "legacy_users"}, "dim_users"),
		NewJob("cards", cleaner.EntityCards, Source{Kind: SourcePDF, URL: cfg.PDF.URL}, "dim_card_details"),
		NewJob("stores", cleaner.EntityStores, Source{Kind: SourceAPI}, "dim_store_details"),
		NewJob("products", cleaner.EntityProducts, Source{Kind: SourceS3, URI: cfg.S3.ProductsURI, Format: extractor.FormatCSV}, "dim_products"),
		NewJob("orders", cleaner.EntityOrders, Source{Kind: SourceRDS, Table: "orders_table"}, "orders_table"),
		NewJob("date_events", cleaner.EntityDateEvents, Source{Kind: SourceS3, URI: cfg.S3.DateEventsURI, Format: extractor.FormatJSON}, "dim_date_times"),
	}
}

// ResolveJobs returns the configured jobs, or the defaults when none are configured
func ResolveJobs(cfg *config.Config) ([]Job, error) {
	if len(cfg.Pipeline.Jobs) == 0 {
		return DefaultJobs(cfg), nil
	}
	jobs := make([]Job, 0, len(cfg.Pipeline.Jobs))
	for _, jc := range cfg.Pipeline.Jobs {
		job, err := JobFromConfig(jc)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// FilterJobs keeps the jobs whose names are listed, in their original order.
// An empty list keeps everything.
func FilterJobs(jobs []Job, names []string) ([]Job, error) {
	if len(names) == 0 {
		return jobs, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.TrimSpace(n)] = true
	}

	var out []Job
	for _, j := range jobs {
		if wanted[j.Name] {
			out = append(out, j)
			delete(wanted, j.Name)
		}
	}
	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for n := range wanted {
			missing = append(missing, n)
		}
		return nil, fmt.Errorf("unknown jobs: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// JobResult represents the outcome of one job
type JobResult struct {
	JobID         string
	Name          string
	Entity        cleaner.Entity
	Destination   string
	Success       bool
	RowsExtracted int64
	RowsLoaded    int64
	Report        model.Report
	Verified      bool
	Err           error
	Category      ErrorCategory
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
	RetryCount    int
}

// NewJobResult initializes a result for a job
func NewJobResult(job Job) *JobResult {
	return &JobResult{
		JobID:       job.ID,
		Name:        job.Name,
		Entity:      job.Entity,
		Destination: job.Destination,
		StartTime:   time.Now(),
		RetryCount:  job.RetryCount,
	}
}

// Complete marks the job as complete and calculates duration
func (r *JobResult) Complete(success bool) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success
}

// Fail records err and completes the result as unsuccessful
func (r *JobResult) Fail(err error) {
	r.Err = err
	r.Category = CategorizeError(err)
	r.Complete(false)
}

// RunResult aggregates the results of a pipeline run
type RunResult struct {
	RunID     string
	Jobs      []JobResult
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// NewRunResult initializes a run result
func NewRunResult(runID string) *RunResult {
	return &RunResult{RunID: runID, StartTime: time.Now()}
}

// Add appends a job result
func (r *RunResult) Add(result JobResult) {
	r.Jobs = append(r.Jobs, result)
}

// Complete marks the run as complete and calculates duration
func (r *RunResult) Complete() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// Failed returns the results of failed jobs
func (r *RunResult) Failed() []JobResult {
	var failed []JobResult
	for _, j := range r.Jobs {
		if !j.Success {
			failed = append(failed, j)
		}
	}
	return failed
}

// TotalRowsLoaded sums the rows loaded by successful jobs
func (r *RunResult) TotalRowsLoaded() int64 {
	var total int64
	for _, j := range r.Jobs {
		if j.Success {
			total += j.RowsLoaded
		}
	}
	return total
}

// ErrorCategories counts failed jobs per category
func (r *RunResult) ErrorCategories() map[ErrorCategory]int {
	counts := make(map[ErrorCategory]int)
	for _, j := range r.Failed() {
		counts[j.Category]++
	}
	return counts
}

// Err joins the errors of all failed jobs, or returns nil when every job succeeded
func (r *RunResult) Err() error {
	var errs []error
	for _, j := range r.Failed() {
		errs = append(errs, fmt.Errorf("job %s: %w", j.Name, j.Err))
	}
	return errors.Join(errs...)
}
