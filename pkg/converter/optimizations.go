// pkg/converter/optimizations.go
package converter

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/model"
)

// OptimizeTableMetadata narrows inferred column types using the column
// values: TEXT identifier columns holding only UUIDs become UUID and
// TIMESTAMP columns holding only midnights become DATE.
func (c *TypeConverter) OptimizeTableMetadata(metadata model.TableMetadata, t model.Table) model.TableMetadata {
	optimized := model.TableMetadata{
		Schema:  metadata.Schema,
		Table:   metadata.Table,
		Columns: make([]model.Column, len(metadata.Columns)),
	}

	for i, col := range metadata.Columns {
		values, _ := t.Column(col.Name)
		optimized.Columns[i] = c.optimizeColumn(col, values)
	}

	return optimized
}

// optimizeColumn applies storage optimizations to a column
func (c *TypeConverter) optimizeColumn(col model.Column, values []interface{}) model.Column {
	optimized := col

	switch {
	case col.PgType == TypeText && isUUIDColumn(col.Name) && allNonNull(values, isUUIDValue):
		optimized.PgType = TypeUUID
	case col.PgType == TypeTimestamp && allNonNull(values, isMidnight):
		optimized.PgType = TypeDate
	}

	if optimized.PgType != col.PgType && c.logger != nil {
		c.logger.Debug("Optimized column type",
			zap.String("column", col.Name),
			zap.String("from", col.PgType),
			zap.String("to", optimized.PgType))
	}
	return optimized
}

// allNonNull reports whether the column has values and every non-null value satisfies ok
func allNonNull(values []interface{}, ok func(interface{}) bool) bool {
	seen := false
	for _, v := range values {
		if v == nil {
			continue
		}
		if !ok(v) {
			return false
		}
		seen = true
	}
	return seen
}

func isUUIDColumn(name string) bool {
	name = strings.ToLower(name)
	return name == "uuid" || strings.HasSuffix(name, "_uuid")
}

func isUUIDValue(v interface{}) bool {
	s, ok := v.(string)
	if !ok || len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func isMidnight(v interface{}) bool {
	t, ok := v.(time.Time)
	if !ok {
		return false
	}
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
