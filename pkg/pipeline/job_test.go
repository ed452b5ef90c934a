package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/sales-ingress/pkg/cleaner"
	"github.com/David-Botos/sales-ingress/pkg/config"
	"github.com/David-Botos/sales-ingress/pkg/extractor"
)

func TestJob_Retry(t *testing.T) {
	job := NewJob("users", cleaner.EntityUsers, Source{Kind: SourceRDS, Table: "legacy_users"}, "dim_users")
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, 2, job.MaxRetries)
	assert.True(t, job.IsRetryable())

	job = job.Retry().Retry()
	assert.Equal(t, 2, job.RetryCount)
	assert.False(t, job.IsRetryable())

	assert.False(t, job.WithMaxRetries(0).Retry().IsRetryable())
}

func TestDefaultJobs(t *testing.T) {
	cfg := &config.Config{
		PDF: config.PDFConfig{URL: "https://example.com/card_details.pdf"},
		S3: config.S3Config{
			ProductsURI:   "s3://data-handling-public/products.csv",
			DateEventsURI: "https://data-handling-public.s3.eu-west-1.amazonaws.com/date_details.json",
		},
	}

	jobs := DefaultJobs(cfg)
	require.Len(t, jobs, 6)

	want := map[string]string{
		"users":       "dim_users",
		"cards":       "dim_card_details",
		"stores":      "dim_store_details",
		"products":    "dim_products",
		"orders":      "orders_table",
		"date_events": "dim_date_times",
	}
	for _, j := range jobs {
		assert.Equal(t, want[j.Name], j.Destination, j.Name)
		assert.NoError(t, j.Validate(), j.Name)
	}
	assert.Equal(t, cfg.PDF.URL, jobs[1].Source.URL)
	assert.Equal(t, extractor.FormatJSON, jobs[5].Source.Format)
}

func TestJobFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		jc      config.JobConfig
		want    Source
		wantErr string
	}{
		{
			name: "s3 csv",
			jc:   config.JobConfig{Entity: "Products", Kind: "S3", URI: "s3://b/products.csv", Format: "csv", Destination: "dim_products"},
			want: Source{Kind: SourceS3, URI: "s3://b/products.csv", Format: extractor.FormatCSV},
		},
		{
			name: "api",
			jc:   config.JobConfig{Entity: "stores", Kind: "api", Destination: "dim_store_details"},
			want: Source{Kind: SourceAPI},
		},
		{
			name:    "unknown entity",
			jc:      config.JobConfig{Entity: "invoices", Kind: "rds", Table: "t", Destination: "d"},
			wantErr: "unknown entity",
		},
		{
			name:    "bad format",
			jc:      config.JobConfig{Entity: "products", Kind: "s3", URI: "s3://b/k", Format: "xlsx", Destination: "d"},
			wantErr: "unsupported format",
		},
		{
			name:    "rds without table",
			jc:      config.JobConfig{Entity: "users", Kind: "rds", Destination: "dim_users"},
			wantErr: "rds source requires a table",
		},
		{
			name:    "missing destination",
			jc:      config.JobConfig{Entity: "cards", Kind: "pdf", URL: "https://x/y.pdf"},
			wantErr: "destination is required",
		},
		{
			name:    "unsupported kind",
			jc:      config.JobConfig{Entity: "cards", Kind: "ftp", Destination: "d"},
			wantErr: `unsupported source kind "ftp"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := JobFromConfig(tt.jc)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, job.Source)
			assert.Equal(t, job.Entity.String(), job.Name)
		})
	}
}

func TestResolveJobs(t *testing.T) {
	cfg := &config.Config{Pipeline: config.PipelineConfig{Jobs: []config.JobConfig{
		{Name: "orders_copy", Entity: "orders", Kind: "rds", Table: "orders_table", Destination: "orders_copy"},
	}}}

	jobs, err := ResolveJobs(cfg)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "orders_copy", jobs[0].Name)

	cfg.Pipeline.Jobs = nil
	jobs, err = ResolveJobs(cfg)
	require.NoError(t, err)
	assert.Len(t, jobs, 6)
}

func TestFilterJobs(t *testing.T) {
	jobs := DefaultJobs(&config.Config{})

	all, err := FilterJobs(jobs, nil)
	require.NoError(t, err)
	assert.Len(t, all, len(jobs))

	some, err := FilterJobs(jobs, []string{"orders", " users"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "users", some[0].Name)
	assert.Equal(t, "orders", some[1].Name)

	_, err = FilterJobs(jobs, []string{"users", "invoices"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoices")
}

func TestRunResult(t *testing.T) {
	run := NewRunResult("run-1")

	ok := NewJobResult(NewJob("users", cleaner.EntityUsers, Source{Kind: SourceRDS, Table: "u"}, "dim_users"))
	ok.RowsLoaded = 10
	ok.Complete(true)
	run.Add(*ok)

	bad := NewJobResult(NewJob("cards", cleaner.EntityCards, Source{Kind: SourcePDF, URL: "u"}, "dim_card_details"))
	bad.RowsLoaded = 3
	bad.Fail(stageError(StageLoad, errors.New("connection reset")))
	run.Add(*bad)

	run.Complete()

	assert.Equal(t, int64(10), run.TotalRowsLoaded())
	assert.Len(t, run.Failed(), 1)
	assert.Equal(t, map[ErrorCategory]int{ErrorCategoryLoad: 1}, run.ErrorCategories())
	require.Error(t, run.Err())
	assert.EqualError(t, run.Err(), "job cards: load failed: connection reset")
	assert.False(t, run.EndTime.Before(run.StartTime))

	empty := NewRunResult("run-2")
	assert.NoError(t, empty.Err())
}
