// pkg/cleaner/cleaner.go
package cleaner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/model"
)

// DataCleaner runs entity cleaners and keeps an audit trail of what they did
type DataCleaner struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDataCleaner creates a new DataCleaner instance and ensures the audit table exists
func NewDataCleaner(ctx context.Context, db *sql.DB, logger *zap.Logger) (*DataCleaner, error) {
	if db == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	cleaner := &DataCleaner{
		db:     db,
		logger: logger.Named("cleaner"),
	}

	if err := cleaner.setupAuditTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to setup cleaning audit table: %w", err)
	}

	return cleaner, nil
}

// setupAuditTable ensures the cleaning_audit tracking table exists
func (c *DataCleaner) setupAuditTable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS public.cleaning_audit (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			entity TEXT NOT NULL,
			table_name TEXT NOT NULL,
			column_name TEXT,
			operation TEXT NOT NULL,
			reason TEXT NOT NULL,
			affected INTEGER NOT NULL,
			cleaned_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := c.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}

	c.logger.Debug("Ensured cleaning_audit table exists")
	return nil
}

// Clean runs the entity's cleaner over a table, logs a summary and records
// the report. A failure to record is returned alongside the cleaned table.
func (c *DataCleaner) Clean(
	ctx context.Context,
	entity Entity,
	table model.Table,
	runID, destination string,
) (model.Table, model.Report, error) {
	clean, err := CleanerFor(entity)
	if err != nil {
		return model.Table{}, model.Report{}, err
	}

	cleaned, report := clean(table)
	report = report.Stamp(runID, entity.String(), destination)

	c.logger.Info("Cleaned table",
		zap.String("entity", entity.String()),
		zap.String("table", destination),
		zap.Int("rows_in", table.NumRows()),
		zap.Int("rows_out", cleaned.NumRows()),
		zap.Int("rows_dropped", report.Total(model.OpRowDropped)),
		zap.Int("values_nulled", report.Total(model.OpValueNulled)),
		zap.Int("columns_dropped", report.Total(model.OpColumnDropped)))

	if err := c.RecordCleaningOperations(ctx, report.Operations); err != nil {
		return cleaned, report, fmt.Errorf("failed to record cleaning operations: %w", err)
	}
	return cleaned, report, nil
}

// RecordCleaningOperations batch inserts cleaning operations into the audit table
func (c *DataCleaner) RecordCleaningOperations(ctx context.Context, operations []model.CleaningOperation) (err error) {
	if len(operations) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				c.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.NamedError("cause", err))
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO public.cleaning_audit
		(run_id, entity, table_name, column_name, operation, reason, affected)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, op := range operations {
		if _, err = stmt.ExecContext(ctx,
			op.RunID,
			op.Entity,
			op.TableName,
			toNullableString(op.ColumnName),
			string(op.Kind),
			op.Reason,
			op.Count,
		); err != nil {
			return fmt.Errorf("failed to insert cleaning operation: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	c.logger.Debug("Recorded cleaning operations", zap.Int("count", len(operations)))
	return nil
}

// toNullableString maps an empty column name to NULL
func toNullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
