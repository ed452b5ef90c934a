// pkg/cleaner/dates.go
package cleaner

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ExpiryDateColumn is parsed with the strict month/year layout
const ExpiryDateColumn = "expiry_date"

// namedDateColumns are parsed regardless of the date_/_date naming rule
var namedDateColumns = map[string]bool{
	"opening_date":           true,
	"date_added":             true,
	"date_payment_confirmed": true,
	ExpiryDateColumn:         true,
}

// knownLayouts are tried before the permissive parser
var knownLayouts = []string{
	"2006-01-02",
	"2006 January 2",
	"2006 January 02",
	"January 2006 2",
	"January 2006 02",
	"2006 Jan 2",
	"Jan 2006 2",
	"2006/01/02",
	"2006-01-02 15:04:05",
}

// IsDateColumn reports whether a column holds dates by name.
// Identifier columns such as date_uuid are never dates.
func IsDateColumn(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if strings.HasSuffix(lower, "_uuid") {
		return false
	}
	return namedDateColumns[lower] ||
		strings.HasPrefix(lower, "date_") ||
		strings.HasSuffix(lower, "_date")
}

// ParseDate parses mixed-format date strings. Unparseable values become nil.
func ParseDate(value interface{}) interface{} {
	switch v := value.(type) {
	case time.Time:
		return v
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		for _, layout := range knownLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
			return t
		}
		return nil
	default:
		return nil
	}
}

// ParseExpiryDate parses strict MM/YY expiry dates to the first of the month
func ParseExpiryDate(value interface{}) interface{} {
	switch v := value.(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse("01/06", strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		return t
	default:
		return nil
	}
}
