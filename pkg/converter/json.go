// pkg/converter/json.go
package converter

import (
	"encoding/json"
	"fmt"
)

// convertToJSON handles conversion of nested values to JSONB text
func (c *TypeConverter) convertToJSON(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil, nil
		}

		// Check if already valid JSON
		if json.Valid([]byte(v)) {
			return v, nil
		}

		// Not JSON: store as a JSON string
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal to JSON: %w", err)
		}
		return string(b), nil

	case nil:
		return nil, nil

	default:
		// Objects and arrays decoded from JSON sources
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal to JSON: %w", err)
		}
		return string(b), nil
	}
}
