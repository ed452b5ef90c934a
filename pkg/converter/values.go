// pkg/converter/values.go
package converter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/David-Botos/sales-ingress/pkg/model"
)

// ConvertValueForPostgres converts a value to a PostgreSQL compatible type
func (c *TypeConverter) ConvertValueForPostgres(value interface{}, targetType string, colName string) (interface{}, error) {
	// Handle NULL values
	if value == nil {
		return nil, nil
	}

	switch strings.ToUpper(targetType) {
	case TypeText, "":
		return c.convertToText(value), nil

	case TypeBigint:
		v, err := cast.ToInt64E(value)
		if err != nil {
			return nil, fmt.Errorf("column %s: cannot convert %T to bigint: %w", colName, value, err)
		}
		return v, nil

	case TypeDouble:
		v, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, fmt.Errorf("column %s: cannot convert %T to double: %w", colName, value, err)
		}
		return v, nil

	case TypeBoolean:
		v, err := cast.ToBoolE(value)
		if err != nil {
			return nil, fmt.Errorf("column %s: cannot convert %T to boolean: %w", colName, value, err)
		}
		return v, nil

	case TypeTimestamp, TypeDate:
		return convertToTimestamp(value, colName)

	case TypeUUID:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("column %s: cannot convert %T to uuid", colName, value)
		}
		return strings.ToLower(s), nil

	case TypeJSONB:
		return c.convertToJSON(value)

	default:
		return c.convertToText(value), nil
	}
}

// ConvertRows converts every row of t to the column types in metadata
func (c *TypeConverter) ConvertRows(metadata model.TableMetadata, t model.Table) ([][]interface{}, error) {
	rows := make([][]interface{}, t.NumRows())
	for i := range rows {
		row := make([]interface{}, len(metadata.Columns))
		for j, col := range metadata.Columns {
			v, err := c.ConvertValueForPostgres(t.Value(i, col.Name), col.PgType, col.Name)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			row[j] = v
		}
		rows[i] = row
	}
	return rows, nil
}

// convertToText converts a value to text, or nil for an empty string when
// EmptyStringAsNull is set
func (c *TypeConverter) convertToText(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		if v == "" && c.config.EmptyStringAsNull {
			return nil
		}
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return cast.ToString(v)
	}
}

func convertToTimestamp(value interface{}, colName string) (interface{}, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := cast.ToTimeE(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: cannot parse %q as timestamp: %w", colName, v, err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("column %s: cannot convert %T to timestamp", colName, value)
	}
}
