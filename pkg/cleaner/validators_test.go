package cleaner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnumSet_Validate(t *testing.T) {
	assert.Equal(t, "GB", CountryCodes.Validate("GB"))
	assert.Equal(t, "GB", CountryCodes.Validate("GGB"))
	assert.Equal(t, "DE", CountryCodes.Validate("DE"))
	assert.Nil(t, CountryCodes.Validate("FR"))
	assert.Nil(t, CountryCodes.Validate("gb"))
	assert.Nil(t, CountryCodes.Validate(nil))

	assert.True(t, CountryCodes.Contains("GGB"))
	assert.False(t, Countries.Contains("France"))
	assert.Equal(t, "country_code", CountryCodes.Name())
}

func TestEnumSet_WithAliasDoesNotModifyOriginal(t *testing.T) {
	base := NewEnumSet("letters", "A", "B")
	aliased := base.WithAlias("a", "A")

	assert.Equal(t, "A", aliased.Validate("a"))
	assert.Nil(t, base.Validate("a"))
}

func TestCardProviders(t *testing.T) {
	assert.Equal(t, "VISA 16 digit", CardProviders.Validate("VISA 16 digit"))
	assert.Nil(t, CardProviders.Validate("NB71VBAHJE"))
}

func TestUUIDValidator(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		valid bool
	}{
		{name: "lower case", input: "93caf182-e4e9-4c6e-bebb-60a1a9dcf9b8", valid: true},
		{name: "upper case", input: "93CAF182-E4E9-4C6E-BEBB-60A1A9DCF9B8", valid: true},
		{name: "not a uuid", input: "not-a-uuid", valid: false},
		{name: "no hyphens", input: "93caf182e4e94c6ebebb60a1a9dcf9b8", valid: false},
		{name: "braced", input: "{93caf182-e4e9-4c6e-bebb-60a1a9dcf9b8}", valid: false},
		{name: "urn", input: "urn:uuid:93caf182-e4e9-4c6e-bebb-60a1a9dcf9b8", valid: false},
		{name: "bad hex", input: "93caf182-e4e9-4c6e-bebb-60a1a9dcf9bz", valid: false},
		{name: "null", input: nil, valid: false},
		{name: "number", input: int64(1), valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UUIDValidator.Validate(tt.input)
			if tt.valid {
				assert.Equal(t, tt.input, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestBadStringFilter(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  interface{}
	}{
		{name: "N/A", input: "N/A", want: nil},
		{name: "NULL", input: "NULL", want: nil},
		{name: "garbage token", input: "3ZZ5UCZR5D", want: nil},
		{name: "garbage token with leading letter", input: "NB71VBAHJE", want: nil},
		{name: "letters only", input: "ABCD", want: "ABCD"},
		{name: "digits only", input: "12345", want: "12345"},
		{name: "too short", input: "A1B", want: "A1B"},
		{name: "mixed case kept", input: "Ab12cd", want: "Ab12cd"},
		{name: "embedded token kept", input: "Flat 72W", want: "Flat 72W"},
		{name: "country code", input: "GB", want: "GB"},
		{name: "blank", input: "   ", want: nil},
		{name: "number passes", input: 12.5, want: 12.5},
		{name: "time passes", input: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), want: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "null", input: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BadStringFilter.Validate(tt.input))
		})
	}
}
