// pkg/converter/converter.go
package converter

import (
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/model"
)

// PostgreSQL column types produced by inference
const (
	TypeText      = "TEXT"
	TypeBigint    = "BIGINT"
	TypeDouble    = "DOUBLE PRECISION"
	TypeBoolean   = "BOOLEAN"
	TypeTimestamp = "TIMESTAMP"
	TypeDate      = "DATE"
	TypeUUID      = "UUID"
	TypeJSONB     = "JSONB"
)

// TypeConverter handles mapping and conversion of data types and values
type TypeConverter struct {
	logger *zap.Logger
	// Configuration options
	config TypeConverterConfig
}

// TypeConverterConfig provides configuration options for type conversion
type TypeConverterConfig struct {
	// Narrow inferred types (UUID, DATE) where every value allows it
	OptimizeStorage bool
	// Whether to treat empty strings as NULL
	EmptyStringAsNull bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() TypeConverterConfig {
	return TypeConverterConfig{
		OptimizeStorage:   true,
		EmptyStringAsNull: true,
	}
}

// NewTypeConverter creates a new TypeConverter with default configuration
func NewTypeConverter(logger *zap.Logger) *TypeConverter {
	return NewTypeConverterWithConfig(logger, DefaultConfig())
}

// NewTypeConverterWithConfig creates a TypeConverter with custom configuration
func NewTypeConverterWithConfig(logger *zap.Logger, config TypeConverterConfig) *TypeConverter {
	return &TypeConverter{
		logger: logger,
		config: config,
	}
}

// InferColumns derives destination column types from the values of a table
func (c *TypeConverter) InferColumns(schema, table string, t model.Table) model.TableMetadata {
	metadata := model.TableMetadata{
		Schema:  schema,
		Table:   table,
		Columns: make([]model.Column, 0, t.NumColumns()),
	}

	for _, name := range t.Columns() {
		values, _ := t.Column(name)
		metadata.Columns = append(metadata.Columns, model.Column{
			Name:     name,
			PgType:   inferType(values),
			Nullable: true,
		})
	}

	if c.config.OptimizeStorage {
		metadata = c.OptimizeTableMetadata(metadata, t)
	}
	return metadata
}

// GenerateColumnDefinitions creates PostgreSQL column definitions
func (c *TypeConverter) GenerateColumnDefinitions(metadata model.TableMetadata) []string {
	definitions := make([]string, 0, len(metadata.Columns))

	for _, col := range metadata.Columns {
		pgType := col.PgType
		if pgType == "" {
			pgType = TypeText
		}

		nullability := "NULL"
		if !col.Nullable {
			nullability = "NOT NULL"
		}

		definitions = append(definitions, fmt.Sprintf("%s %s %s",
			QuoteIdentifier(col.Name),
			pgType,
			nullability))
	}

	return definitions
}

// QuoteIdentifier quotes a PostgreSQL identifier, preserving case
func QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// QualifiedName returns schema.table with both parts quoted
func QualifiedName(schema, table string) string {
	if schema == "" {
		return QuoteIdentifier(table)
	}
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(table)
}
