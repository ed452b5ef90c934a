package pipeline

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/model"
)

const metricsNamespace = "salesetl"

// Metrics tracks job outcomes on a private Prometheus registry
type Metrics struct {
	registry       *prometheus.Registry
	logger         *zap.Logger
	rowsExtracted  *prometheus.CounterVec
	rowsLoaded     *prometheus.CounterVec
	rowsDropped    *prometheus.CounterVec
	valuesNulled   *prometheus.CounterVec
	columnsDropped *prometheus.CounterVec
	jobFailures    *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	lastSuccess    *prometheus.GaugeVec
}

// NewMetrics creates and registers the pipeline collectors
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logger:   logger,
		rowsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_extracted_total",
			Help:      "Rows read from sources.",
		}, []string{"job_name"}),
		rowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_loaded_total",
			Help:      "Rows written to the destination.",
		}, []string{"job_name"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_dropped_total",
			Help:      "Rows removed by cleaning.",
		}, []string{"job_name", "reason"}),
		valuesNulled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "values_nulled_total",
			Help:      "Values replaced with null by cleaning.",
		}, []string{"job_name", "reason"}),
		columnsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "columns_dropped_total",
			Help:      "Columns removed by cleaning.",
		}, []string{"job_name"}),
		jobFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "job_failures_total",
			Help:      "Failed jobs by error category.",
		}, []string{"job_name", "category"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of a job from extraction to verification.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"job_name"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run of a job.",
		}, []string{"job_name"}),
	}

	m.registry.MustRegister(
		m.rowsExtracted,
		m.rowsLoaded,
		m.rowsDropped,
		m.valuesNulled,
		m.columnsDropped,
		m.jobFailures,
		m.jobDuration,
		m.lastSuccess,
	)
	return m
}

// Registry exposes the collectors, e.g. for tests or an HTTP handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordJob adds one job result to the collectors
func (m *Metrics) RecordJob(result JobResult) {
	job := result.Name

	m.rowsExtracted.WithLabelValues(job).Add(float64(result.RowsExtracted))
	m.jobDuration.WithLabelValues(job).Observe(result.Duration.Seconds())

	for _, op := range result.Report.Operations {
		switch op.Kind {
		case model.OpRowDropped:
			m.rowsDropped.WithLabelValues(job, op.Reason).Add(float64(op.Count))
		case model.OpValueNulled:
			m.valuesNulled.WithLabelValues(job, op.Reason).Add(float64(op.Count))
		case model.OpColumnDropped:
			m.columnsDropped.WithLabelValues(job).Add(float64(op.Count))
		}
	}

	if !result.Success {
		m.jobFailures.WithLabelValues(job, result.Category.String()).Inc()
		return
	}
	m.rowsLoaded.WithLabelValues(job).Add(float64(result.RowsLoaded))
	m.lastSuccess.WithLabelValues(job).Set(float64(result.EndTime.Unix()))
}

// Push sends the current values to a Pushgateway
func (m *Metrics) Push(ctx context.Context, url, jobName string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, jobName).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	m.logger.Debug("Pushed metrics", zap.String("url", url), zap.String("job", jobName))
	return nil
}

// LogSummary writes a one-line summary per job and one for the run
func (m *Metrics) LogSummary(run *RunResult) {
	for _, j := range run.Jobs {
		fields := []zap.Field{
			zap.String("job", j.Name),
			zap.String("destination", j.Destination),
			zap.Bool("success", j.Success),
			zap.Int64("rows_extracted", j.RowsExtracted),
			zap.Int64("rows_loaded", j.RowsLoaded),
			zap.Int("rows_dropped", j.Report.Total(model.OpRowDropped)),
			zap.Int("values_nulled", j.Report.Total(model.OpValueNulled)),
			zap.Int("columns_dropped", j.Report.Total(model.OpColumnDropped)),
			zap.Duration("duration", j.Duration),
		}
		if j.Err != nil {
			m.logger.Warn("Job failed", append(fields,
				zap.String("category", j.Category.String()),
				zap.Error(j.Err))...)
			continue
		}
		m.logger.Info("Job succeeded", fields...)
	}

	failed := run.Failed()
	m.logger.Info("Run summary",
		zap.String("run_id", run.RunID),
		zap.Int("jobs", len(run.Jobs)),
		zap.Int("failed", len(failed)),
		zap.Int64("rows_loaded", run.TotalRowsLoaded()),
		zap.Duration("duration", run.Duration))
}
