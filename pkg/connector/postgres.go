// pkg/connector/postgres.go
package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/config"
	"github.com/David-Botos/sales-ingress/pkg/converter"
	"github.com/David-Botos/sales-ingress/pkg/model"
)

const (
	defaultBatchSize = 1000
	insertTimeout    = 30 * time.Second
	ddlTimeout       = 30 * time.Second
)

// PostgresConnector implements the DatabaseConnector interface for the
// PostgreSQL destination
type PostgresConnector struct {
	db        *sql.DB
	logger    *zap.Logger
	cfg       *config.PostgresConfig
	converter *converter.TypeConverter
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// NewPostgresConnector creates and initializes a new PostgreSQL connector
func NewPostgresConnector(ctx context.Context, cfg *config.PostgresConfig, logger *zap.Logger) (*PostgresConnector, error) {
	logger = logger.Named("postgres-connector")

	// Log connection attempt
	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	// Open database connection
	db, err := sql.Open("pgx", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	// Configure connection pool
	ApplyConnectionSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	// Verify connection
	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	connector := NewPostgresConnectorWithDB(db, cfg, logger)
	LogConnectionStats(logger, cfg.Database, db)
	return connector, nil
}

// NewPostgresConnectorWithDB wraps an already opened connection
func NewPostgresConnectorWithDB(db *sql.DB, cfg *config.PostgresConfig, logger *zap.Logger) *PostgresConnector {
	return &PostgresConnector{
		db:        db,
		logger:    logger,
		cfg:       cfg,
		converter: converter.NewTypeConverter(logger.Named("converter")),
	}
}

// DB returns the underlying database connection
func (c *PostgresConnector) DB() *sql.DB {
	return c.db
}

// Schema returns the destination schema, defaulting to public
func (c *PostgresConnector) Schema() string {
	if c.cfg.Schema == "" {
		return "public"
	}
	return c.cfg.Schema
}

// Validate verifies the PostgreSQL connection and ensures the destination schema exists
func (c *PostgresConnector) Validate(ctx context.Context) error {
	// Check database version
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	c.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	if err := c.ensureSchema(ctx, c.Schema()); err != nil {
		return fmt.Errorf("failed to create/verify schema %s: %w", c.Schema(), err)
	}

	c.logger.Info("PostgreSQL connection validated",
		zap.String("database", c.cfg.Database),
		zap.String("host", c.cfg.Host),
		zap.Int("port", c.cfg.Port))

	return nil
}

// Close closes the database connection
func (c *PostgresConnector) Close() error {
	c.logger.Info("Closing PostgreSQL connection")
	LogConnectionStats(c.logger, c.cfg.Database, c.db)
	return c.db.Close()
}

// ensureSchema creates a schema if it doesn't exist
func (c *PostgresConnector) ensureSchema(ctx context.Context, schema string) error {
	_, err := c.ExecWithTimeout(ctx, "CREATE SCHEMA IF NOT EXISTS "+converter.QuoteIdentifier(schema), ddlTimeout)
	return err
}

// ExecWithTimeout executes a query with a timeout
func (c *PostgresConnector) ExecWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.ExecContext(queryCtx, query, args...)
}

// QueryWithTimeout executes a query with a timeout and hands each row to scan
func (c *PostgresConnector) QueryWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	scan func(*sql.Rows) error,
	args ...interface{},
) error {
	return queryWithTimeout(ctx, c.db, query, timeout, scan, args...)
}

// ReplaceTable drops the destination table if it exists, recreates it with
// column types inferred from t and inserts every row, all in one transaction.
// It returns the number of rows inserted.
func (c *PostgresConnector) ReplaceTable(
	ctx context.Context,
	table string,
	t model.Table,
	batchSize int,
) (inserted int64, err error) {
	if table == "" {
		return 0, errors.New("destination table name is required")
	}

	metadata := c.converter.InferColumns(c.Schema(), table, t)
	rows, err := c.converter.ConvertRows(metadata, t)
	if err != nil {
		return 0, fmt.Errorf("failed to convert rows for %s: %w", table, err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				c.logger.Error("Failed to rollback transaction",
					zap.String("table", table),
					zap.Error(rbErr))
			}
		}
	}()

	fullTableName := converter.QualifiedName(metadata.Schema, table)

	if err = execWithTimeout(ctx, tx, "DROP TABLE IF EXISTS "+fullTableName, ddlTimeout); err != nil {
		return 0, fmt.Errorf("failed to drop table %s: %w", fullTableName, err)
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)",
		fullTableName,
		strings.Join(c.converter.GenerateColumnDefinitions(metadata), ",\n\t"))
	if err = execWithTimeout(ctx, tx, createSQL, ddlTimeout); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", fullTableName, err)
	}

	columns := metadata.ColumnNames()
	for i, name := range columns {
		columns[i] = converter.QuoteIdentifier(name)
	}

	inserted, err = c.batchInsert(ctx, tx, fullTableName, columns, rows, batchSize)
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	c.logger.Info("Replaced table",
		zap.String("table", fullTableName),
		zap.Int("columns", len(columns)),
		zap.Int64("rows", inserted))
	return inserted, nil
}

// batchInsert writes rows as multi-row INSERT statements of at most
// batchSize rows. Columns must already be quoted.
func (c *PostgresConnector) batchInsert(
	ctx context.Context,
	db execer,
	fullTableName string,
	columns []string,
	valueRows [][]interface{},
	batchSize int,
) (int64, error) {
	if len(valueRows) == 0 || len(columns) == 0 {
		return 0, nil
	}

	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	// PostgreSQL accepts at most 65535 bind parameters per statement
	if maxRows := 65535 / len(columns); batchSize > maxRows {
		batchSize = maxRows
	}

	columnStr := strings.Join(columns, ", ")

	var totalRowsInserted int64

	// Process in batches
	for i := 0; i < len(valueRows); i += batchSize {
		end := i + batchSize
		if end > len(valueRows) {
			end = len(valueRows)
		}

		currentBatch := valueRows[i:end]

		// Build placeholders for this batch
		placeholders := make([]string, len(currentBatch))
		args := make([]interface{}, 0, len(currentBatch)*len(columns))

		for j, row := range currentBatch {
			if len(row) != len(columns) {
				return totalRowsInserted, fmt.Errorf("row %d has %d values, expected %d", i+j, len(row), len(columns))
			}
			rowPlaceholders := make([]string, len(columns))
			for k, val := range row {
				rowPlaceholders[k] = fmt.Sprintf("$%d", j*len(columns)+k+1)
				args = append(args, val)
			}
			placeholders[j] = "(" + strings.Join(rowPlaceholders, ", ") + ")"
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			fullTableName, columnStr, strings.Join(placeholders, ", "))

		queryCtx, cancel := context.WithTimeout(ctx, insertTimeout)
		result, err := db.ExecContext(queryCtx, query, args...)
		cancel()
		if err != nil {
			return totalRowsInserted, fmt.Errorf("batch insert failed: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			c.logger.Warn("Couldn't get rows affected", zap.Error(err))
			rowsAffected = int64(len(currentBatch))
		}
		totalRowsInserted += rowsAffected
	}

	return totalRowsInserted, nil
}

func execWithTimeout(ctx context.Context, db execer, query string, timeout time.Duration) error {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := db.ExecContext(queryCtx, query)
	return err
}
