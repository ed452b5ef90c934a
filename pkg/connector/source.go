// pkg/connector/source.go
package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/config"
)

// Source is an open relational source. Conn manages the connection and
// DB is the same pool wrapped for row scanning.
type Source struct {
	Conn DatabaseConnector
	DB   *sqlx.DB
}

// Close closes the underlying connection
func (s *Source) Close() error {
	return s.Conn.Close()
}

// OpenSource opens the configured source database. PostgreSQL sources use
// the lib/pq driver; Snowflake sources use gosnowflake.
func OpenSource(ctx context.Context, cfg *config.SourceConfig, logger *zap.Logger) (*Source, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return openPostgresSource(ctx, &cfg.Postgres, logger)
	case config.DriverSnowflake:
		conn, err := NewSnowflakeConnector(ctx, &cfg.Snowflake, logger)
		if err != nil {
			return nil, err
		}
		return newSnowflakeSource(ctx, conn)
	default:
		return nil, fmt.Errorf("unsupported source driver %q", cfg.Driver)
	}
}

// newSnowflakeSource checks the session database before handing out the pool
func newSnowflakeSource(ctx context.Context, conn *SnowflakeConnector) (*Source, error) {
	if err := conn.Validate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to validate Snowflake connector: %w", err)
	}
	return &Source{Conn: conn, DB: sqlx.NewDb(conn.DB(), "snowflake")}, nil
}

func openPostgresSource(ctx context.Context, cfg *config.PostgresConfig, logger *zap.Logger) (*Source, error) {
	logger = logger.Named("source")
	logger.Info("Connecting to source database",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database))

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize source connection: %w", err)
	}

	ApplyConnectionSettings(db.DB, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime)

	if err := PingWithTimeout(ctx, db.DB, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to source database: %w", err)
	}

	return &Source{
		Conn: NewPostgresConnectorWithDB(db.DB, cfg, logger),
		DB:   db,
	}, nil
}
