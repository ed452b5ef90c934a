// pkg/extractor/rds.go
package extractor

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/model"
)

const defaultReadTimeout = 5 * time.Minute

var plainIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

// RDSReader reads whole tables from a relational source
type RDSReader struct {
	db      *sqlx.DB
	logger  *zap.Logger
	timeout time.Duration
}

// NewRDSReader wraps an open source connection
func NewRDSReader(db *sqlx.DB, logger *zap.Logger) *RDSReader {
	return &RDSReader{
		db:      db,
		logger:  logger.Named("rds-reader"),
		timeout: defaultReadTimeout,
	}
}

// ListTables returns the tables of the connection's current schema
func (r *RDSReader) ListTables(ctx context.Context) ([]string, error) {
	queryCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var tables []string
	err := r.db.SelectContext(queryCtx, &tables, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		ORDER BY table_name`)
	if err != nil {
		return nil, newExtractionError("rds", classifySQLError(err), fmt.Errorf("failed to list tables: %w", err))
	}
	return tables, nil
}

// ReadTable reads every row of the named table
func (r *RDSReader) ReadTable(ctx context.Context, name string) (model.Table, error) {
	source := "rds:" + name

	ident, err := r.quote(name)
	if err != nil {
		return model.Table{}, newExtractionError(source, KindNotFound, err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	rows, err := r.db.QueryxContext(queryCtx, "SELECT * FROM "+ident)
	if err != nil {
		return model.Table{}, newExtractionError(source, classifySQLError(err), err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return model.Table{}, newExtractionError(source, KindUnknown, err)
	}

	var data [][]interface{}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return model.Table{}, newExtractionError(source, KindDecode, fmt.Errorf("failed to scan row %d: %w", len(data)+1, err))
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return model.Table{}, newExtractionError(source, classifySQLError(err), err)
	}

	t := model.NewTable(columns, data)
	r.logger.Info("Read source table",
		zap.String("table", name),
		zap.Int("rows", t.NumRows()),
		zap.Int("columns", t.NumColumns()),
		zap.Duration("duration", time.Since(start)))
	return t, nil
}

// quote makes name safe to splice into a query. PostgreSQL sources get a quoted
// identifier; other drivers fold unquoted names, so only plain names are accepted.
func (r *RDSReader) quote(name string) (string, error) {
	if r.db.DriverName() == "postgres" {
		if name == "" {
			return "", fmt.Errorf("empty table name")
		}
		return pq.QuoteIdentifier(name), nil
	}
	if !plainIdentifier.MatchString(name) {
		return "", fmt.Errorf("invalid table name %q", name)
	}
	return name, nil
}
