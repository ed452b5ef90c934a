package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/connector"
	"github.com/David-Botos/sales-ingress/pkg/converter"
)

// VerificationReport contains the result of checking a loaded table
type VerificationReport struct {
	Schema           string
	Table            string
	VerificationTime time.Time
	ExpectedRows     int64
	ActualRows       int64
	RowCountMatches  bool
	Duration         time.Duration
}

// Verifier checks destination tables after a load
type Verifier struct {
	destination connector.DatabaseConnector
	logger      *zap.Logger
	timeout     time.Duration
}

// NewVerifier creates a new verifier
func NewVerifier(destination connector.DatabaseConnector, logger *zap.Logger) *Verifier {
	return &Verifier{
		destination: destination,
		logger:      logger,
		timeout:     time.Minute * 5, // Default 5-minute timeout
	}
}

// WithTimeout sets a custom timeout for verification operations
func (v *Verifier) WithTimeout(timeout time.Duration) *Verifier {
	v.timeout = timeout
	return v
}

// VerifyRowCount compares the destination row count with the number of rows loaded
func (v *Verifier) VerifyRowCount(ctx context.Context, schema, table string, expected int64) (*VerificationReport, error) {
	report := &VerificationReport{
		Schema:           schema,
		Table:            table,
		VerificationTime: time.Now(),
		ExpectedRows:     expected,
	}

	countQuery := "SELECT COUNT(*) FROM " + converter.QualifiedName(schema, table)

	found := false
	err := v.destination.QueryWithTimeout(ctx, countQuery, v.timeout, func(rows *sql.Rows) error {
		found = true
		return rows.Scan(&report.ActualRows)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count rows of %s.%s: %w", schema, table, err)
	}
	if !found {
		return nil, errors.New("no results returned from count query")
	}

	report.RowCountMatches = report.ActualRows == expected
	report.Duration = time.Since(report.VerificationTime)

	if report.RowCountMatches {
		v.logger.Info("Row count verification successful",
			zap.String("schema", schema),
			zap.String("table", table),
			zap.Int64("count", report.ActualRows))
	} else {
		v.logger.Warn("Row count mismatch",
			zap.String("schema", schema),
			zap.String("table", table),
			zap.Int64("expected", expected),
			zap.Int64("actual", report.ActualRows),
			zap.Int64("difference", expected-report.ActualRows))
	}
	return report, nil
}
