// pkg/connector/factory.go
package connector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/config"
)

// ConnectorFactory creates database connectors
type ConnectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.Config, logger *zap.Logger) *ConnectorFactory {
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSource opens the configured relational source
func (f *ConnectorFactory) CreateSource(ctx context.Context) (*Source, error) {
	f.logger.Info("Creating source connector", zap.String("driver", f.cfg.Source.Driver))

	source, err := OpenSource(ctx, &f.cfg.Source, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create source connector: %w", err)
	}

	return source, nil
}

// CreatePostgresConnector creates the destination PostgreSQL connector
func (f *ConnectorFactory) CreatePostgresConnector(ctx context.Context) (*PostgresConnector, error) {
	f.logger.Info("Creating PostgreSQL connector")

	connector, err := NewPostgresConnector(ctx, &f.cfg.Destination, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connector: %w", err)
	}

	if err := connector.Validate(ctx); err != nil {
		connector.Close()
		return nil, fmt.Errorf("failed to validate PostgreSQL connector: %w", err)
	}

	return connector, nil
}

// CreateAllConnectors creates both the source and the destination connectors
func (f *ConnectorFactory) CreateAllConnectors(ctx context.Context) (*Source, *PostgresConnector, error) {
	source, err := f.CreateSource(ctx)
	if err != nil {
		return nil, nil, err
	}

	pgConn, err := f.CreatePostgresConnector(ctx)
	if err != nil {
		source.Close() // Clean up the source connection if PostgreSQL fails
		return nil, nil, err
	}

	return source, pgConn, nil
}
