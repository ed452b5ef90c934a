// pkg/cleaner/convert.go
package cleaner

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

const (
	// minCardDigits is the longest digit string still rejected as a card number
	minCardDigits = 5
	ouncesPerKilo = 35.274
)

var (
	nonDigit         = regexp.MustCompile(`[^\d]`)
	phoneCountryCode = regexp.MustCompile(`\+4\d`)
	phoneSeparators  = strings.NewReplacer("(", "", ")", "", "-", "", " ", "")
	currencySymbols  = strings.NewReplacer("Â£", "", "£", "")
)

// ConvertWeight converts a weight expression to kilograms rounded to 2 dp.
// Numbers pass through unchanged. Unparseable expressions return nil.
func ConvertWeight(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		return v
	case int64:
		return float64(v)
	}

	s := strings.TrimSpace(cast.ToString(value))
	var (
		kg float64
		ok bool
	)
	switch {
	case strings.HasSuffix(s, "ml"):
		kg, ok = parseQuantity(strings.TrimSuffix(s, "ml"), 1000)
	case strings.HasSuffix(s, "kg"):
		kg, ok = parseQuantity(strings.TrimSuffix(s, "kg"), 1)
	case strings.HasSuffix(s, "g"):
		kg, ok = parseQuantity(strings.TrimSuffix(s, "g"), 1000)
	case strings.HasSuffix(s, "oz"):
		kg, ok = parseQuantity(strings.TrimSuffix(s, "oz"), ouncesPerKilo)
	}
	if !ok {
		return nil
	}
	return round2(kg)
}

// parseQuantity reads "n" or "n x m" and divides the result by divisor
func parseQuantity(s string, divisor float64) (float64, bool) {
	if strings.Contains(s, "x") {
		parts := strings.Split(s, "x")
		if len(parts) != 2 {
			return 0, false
		}
		n, okN := parseNonNegative(parts[0])
		m, okM := parseNonNegative(parts[1])
		if !okN || !okM {
			return 0, false
		}
		return n * m / divisor, true
	}
	n, ok := parseNonNegative(s)
	if !ok {
		return 0, false
	}
	return n / divisor, true
}

func parseNonNegative(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// CleanCardNumber keeps only digits and nulls anything with 5 digits or fewer
func CleanCardNumber(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	digits := nonDigit.ReplaceAllString(cardNumberString(value), "")
	if len(digits) <= minCardDigits {
		return nil
	}
	return digits
}

// cardNumberString avoids exponent notation for numeric card numbers
func cardNumberString(value interface{}) string {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', 0, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return cast.ToString(value)
	}
}

// CleanPhoneNumber strips parentheses, hyphens and spaces, then rewrites
// "+4d" to "0" until none is left
func CleanPhoneNumber(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	s := phoneSeparators.Replace(cast.ToString(value))
	for phoneCountryCode.MatchString(s) {
		s = phoneCountryCode.ReplaceAllString(s, "0")
	}
	return s
}

// CleanAddress turns embedded newlines into commas and uppercases the result
func CleanAddress(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	s := strings.ReplaceAll(cast.ToString(value), "\n", ",")
	return strings.ToUpper(s)
}

// CleanContinent removes every "ee" substring
func CleanContinent(value interface{}) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}
	return strings.ReplaceAll(s, "ee", "")
}

// CleanStaffNumbers extracts the digits of a noisy string as an integer.
// Numbers are truncated to integers; anything without digits becomes nil.
func CleanStaffNumbers(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case int64:
		return v
	case float64:
		return int64(v)
	}
	digits := nonDigit.ReplaceAllString(cast.ToString(value), "")
	if digits == "" {
		return nil
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}
	return n
}

// ParsePrice strips the pound sign and parses the remainder as a number
func ParsePrice(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		return v
	case int64:
		return float64(v)
	}
	s := strings.TrimSpace(currencySymbols.Replace(cast.ToString(value)))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// ParseFloat coerces a value to float64 or nil
func ParseFloat(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	f, err := cast.ToFloat64E(strings.TrimSpace(cast.ToString(value)))
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// ParseDigits keeps all-digit values as integers and nulls everything else
func ParseDigits(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case int64:
		return v
	}
	s := strings.TrimSpace(cast.ToString(value))
	if s == "" || nonDigit.MatchString(s) {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return n
}
