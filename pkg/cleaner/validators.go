// pkg/cleaner/validators.go
package cleaner

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// Validator maps a value to itself when valid and to nil otherwise
type Validator interface {
	Validate(value interface{}) interface{}
}

// ValidatorFunc adapts a plain function to the Validator interface
type ValidatorFunc func(value interface{}) interface{}

// Validate calls f(value)
func (f ValidatorFunc) Validate(value interface{}) interface{} {
	return f(value)
}

// EnumSet is a fixed set of allowed categorical values.
// Aliases are rewritten before membership is checked.
type EnumSet struct {
	name    string
	members map[string]struct{}
	aliases map[string]string
}

// NewEnumSet creates a set with the given members
func NewEnumSet(name string, members ...string) EnumSet {
	set := EnumSet{
		name:    name,
		members: make(map[string]struct{}, len(members)),
		aliases: make(map[string]string),
	}
	for _, m := range members {
		set.members[m] = struct{}{}
	}
	return set
}

// WithAlias returns a copy of the set that rewrites from to to before validation
func (s EnumSet) WithAlias(from, to string) EnumSet {
	aliases := make(map[string]string, len(s.aliases)+1)
	for k, v := range s.aliases {
		aliases[k] = v
	}
	aliases[from] = to
	return EnumSet{name: s.name, members: s.members, aliases: aliases}
}

// Name returns the set name used in cleaning reports
func (s EnumSet) Name() string {
	return s.name
}

// Contains reports whether v is a member, after alias rewriting
func (s EnumSet) Contains(v string) bool {
	_, ok := s.members[s.canonical(v)]
	return ok
}

// Validate returns the canonical member for value or nil
func (s EnumSet) Validate(value interface{}) interface{} {
	str, ok := value.(string)
	if !ok {
		return nil
	}
	canonical := s.canonical(str)
	if _, ok := s.members[canonical]; !ok {
		return nil
	}
	return canonical
}

func (s EnumSet) canonical(v string) string {
	if to, ok := s.aliases[v]; ok {
		return to
	}
	return v
}

var (
	// CountryCodes are the ISO country codes stores and users may carry
	CountryCodes = NewEnumSet("country_code", "GB", "US", "DE").WithAlias("GGB", "GB")

	// Countries are the country names users may carry
	Countries = NewEnumSet("country", "Germany", "United Kingdom", "United States")

	// CardProviders are the card provider names accepted on card records
	CardProviders = NewEnumSet("card_provider",
		"Diners Club / Carte Blanche",
		"American Express",
		"JCB 16 digit",
		"JCB 15 digit",
		"Maestro",
		"Mastercard",
		"Discover",
		"VISA 19 digit",
		"VISA 16 digit",
		"VISA 13 digit",
	)
)

// UUIDValidator keeps canonical 8-4-4-4-12 hex strings, case-insensitive
var UUIDValidator = ValidatorFunc(func(value interface{}) interface{} {
	str, ok := value.(string)
	if !ok || !isValidUUID(str) {
		return nil
	}
	return str
})

// isValidUUID checks the canonical hyphenated form only
func isValidUUID(u string) bool {
	if len(u) != 36 {
		return false
	}
	_, err := uuid.Parse(u)
	return err == nil
}

var (
	badStringShape = regexp.MustCompile(`^[A-Z0-9]{4,}$`)
	hasUpper       = regexp.MustCompile(`[A-Z]`)
	hasDigit       = regexp.MustCompile(`[0-9]`)
)

// BadStringFilter nulls "N/A", "NULL" and garbage tokens made only of
// uppercase letters and digits (at least one of each, length >= 4).
// Legitimate codes of the same shape are nulled too. Blank strings become null.
// Typed values from earlier stages (numbers, times, booleans) pass through.
var BadStringFilter = ValidatorFunc(func(value interface{}) interface{} {
	switch value.(type) {
	case nil:
		return nil
	case int64, float64, bool, time.Time:
		return value
	}

	str := strings.TrimSpace(cast.ToString(value))
	if str == "" || isBadString(str) {
		return nil
	}
	return str
})

func isBadString(s string) bool {
	if s == "N/A" || s == "NULL" {
		return true
	}
	return badStringShape.MatchString(s) && hasUpper.MatchString(s) && hasDigit.MatchString(s)
}
