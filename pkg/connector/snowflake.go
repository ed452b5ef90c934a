// pkg/connector/snowflake.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/config"
)

// SnowflakeConnector implements the DatabaseConnector interface for a
// Snowflake warehouse used as the relational source
type SnowflakeConnector struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.SnowflakeConfig
}

// NewSnowflakeConnector creates a new Snowflake connection
func NewSnowflakeConnector(ctx context.Context, cfg *config.SnowflakeConfig, logger *zap.Logger) (*SnowflakeConnector, error) {
	logger = logger.Named("snowflake-connector")

	// Log connection attempt (without credentials)
	logger.Info("Connecting to Snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
		zap.String("warehouse", cfg.Warehouse),
		zap.String("role", cfg.Role))

	dsn, err := cfg.ConnectionString()
	if err != nil {
		return nil, fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}

	// Open connection pool
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Snowflake connection: %w", err)
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
	if err := PingWithTimeout(ctx, db, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Snowflake: %w", err)
	}

	connector := NewSnowflakeConnectorWithDB(db, cfg, logger)

	// Set query timeout if configured
	if cfg.QueryTimeout > 0 {
		if _, err := connector.ExecWithTimeout(ctx,
			fmt.Sprintf("ALTER SESSION SET STATEMENT_TIMEOUT_IN_SECONDS = %d", int(cfg.QueryTimeout.Seconds())),
			10*time.Second,
		); err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	LogConnectionStats(logger, cfg.Database, db)
	return connector, nil
}

// NewSnowflakeConnectorWithDB wraps an already opened connection
func NewSnowflakeConnectorWithDB(db *sql.DB, cfg *config.SnowflakeConfig, logger *zap.Logger) *SnowflakeConnector {
	return &SnowflakeConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}
}

// DB returns the underlying database connection
func (c *SnowflakeConnector) DB() *sql.DB {
	return c.db
}

// Validate verifies the Snowflake connection and that the session points at
// the configured database
func (c *SnowflakeConnector) Validate(ctx context.Context) error {
	var role, database, warehouse sql.NullString
	err := c.db.QueryRowContext(ctx, "SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_WAREHOUSE()").Scan(
		&role, &database, &warehouse)
	if err != nil {
		return fmt.Errorf("failed to verify Snowflake access: %w", err)
	}

	c.logger.Info("Connected to Snowflake",
		zap.String("role", role.String),
		zap.String("database", database.String),
		zap.String("warehouse", warehouse.String))

	// Verify we're connected to the correct database
	if !strings.EqualFold(database.String, c.cfg.Database) {
		return fmt.Errorf("connected to wrong database: %s (expected: %s)",
			database.String, c.cfg.Database)
	}

	return nil
}

// Close closes the database connection
func (c *SnowflakeConnector) Close() error {
	c.logger.Info("Closing Snowflake connection")
	LogConnectionStats(c.logger, c.cfg.Database, c.db)
	return c.db.Close()
}

// QueryWithTimeout executes a query with a timeout and hands each row to scan
func (c *SnowflakeConnector) QueryWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	scan func(*sql.Rows) error,
	args ...interface{},
) error {
	return queryWithTimeout(ctx, c.db, query, timeout, scan, args...)
}

// ExecWithTimeout executes a statement with a timeout
func (c *SnowflakeConnector) ExecWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.ExecContext(queryCtx, query, args...)
}
