package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/sales-ingress/pkg/cleaner"
	"github.com/David-Botos/sales-ingress/pkg/model"
)

func TestMetrics_RecordJob(t *testing.T) {
	m := NewMetrics(zaptest.NewLogger(t))

	var report model.Report
	report.Add(model.OpRowDropped, "user_uuid", "invalid_uuid", 4)
	report.Add(model.OpValueNulled, "phone_number", "bad_string", 2)
	report.Add(model.OpColumnDropped, "index", "index_column", 0)

	ok := NewJobResult(NewJob("users", cleaner.EntityUsers, Source{Kind: SourceRDS, Table: "legacy_users"}, "dim_users"))
	ok.RowsExtracted = 20
	ok.RowsLoaded = 16
	ok.Report = report
	ok.Complete(true)
	m.RecordJob(*ok)

	bad := NewJobResult(NewJob("cards", cleaner.EntityCards, Source{Kind: SourcePDF, URL: "u"}, "dim_card_details"))
	bad.RowsExtracted = 5
	bad.Fail(stageError(StageLoad, errors.New("tx aborted")))
	m.RecordJob(*bad)

	assert.Equal(t, 20.0, testutil.ToFloat64(m.rowsExtracted.WithLabelValues("users")))
	assert.Equal(t, 16.0, testutil.ToFloat64(m.rowsLoaded.WithLabelValues("users")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.rowsDropped.WithLabelValues("users", "invalid_uuid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.valuesNulled.WithLabelValues("users", "bad_string")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.columnsDropped.WithLabelValues("users")))
	assert.Equal(t, float64(ok.EndTime.Unix()), testutil.ToFloat64(m.lastSuccess.WithLabelValues("users")))

	assert.Equal(t, 5.0, testutil.ToFloat64(m.rowsExtracted.WithLabelValues("cards")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobFailures.WithLabelValues("cards", "Load")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.rowsLoaded.WithLabelValues("cards")))

	assert.Equal(t, 2, testutil.CollectAndCount(m.jobDuration))
}

func TestMetrics_Push(t *testing.T) {
	var (
		method, path string
		body         []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := NewMetrics(zaptest.NewLogger(t))
	result := NewJobResult(NewJob("orders", cleaner.EntityOrders, Source{Kind: SourceRDS, Table: "orders_table"}, "orders_table"))
	result.RowsLoaded = 3
	result.Complete(true)
	m.RecordJob(*result)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, m.Push(ctx, server.URL, "salesetl"))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/salesetl", path)
	assert.NotEmpty(t, body)

	assert.NoError(t, m.Push(ctx, "", "salesetl"), "empty url disables pushing")
}

func TestMetrics_PushFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	m := NewMetrics(zaptest.NewLogger(t))
	err := m.Push(context.Background(), server.URL, "salesetl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to push metrics")
}

func TestMetrics_LogSummary(t *testing.T) {
	m := NewMetrics(zaptest.NewLogger(t))
	run := NewRunResult("run-1")

	failed := NewJobResult(NewJob("stores", cleaner.EntityStores, Source{Kind: SourceAPI}, "dim_store_details"))
	failed.Fail(errors.New("boom"))
	run.Add(*failed)
	run.Complete()

	assert.NotPanics(t, func() { m.LogSummary(run) })
}
