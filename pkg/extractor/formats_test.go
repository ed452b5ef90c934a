package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCSV(t *testing.T) {
	input := ",product_name,product_price,weight\n" +
		"0,FurReal Dazzlin' Dimples,£39.99,1.6kg\n" +
		"1,\"Tiffany, Lamp\",,500g\n"

	tbl, err := Decode(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, []string{"Unnamed: 0", "product_name", "product_price", "weight"}, tbl.Columns())
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, "£39.99", tbl.Value(0, "product_price"))
	assert.Equal(t, "Tiffany, Lamp", tbl.Value(1, "product_name"))
	assert.Nil(t, tbl.Value(1, "product_price"))
}

func TestDecodeCSV_Empty(t *testing.T) {
	tbl, err := Decode(strings.NewReader(""), FormatCSV)
	require.NoError(t, err)
	assert.Zero(t, tbl.NumRows())
	assert.Zero(t, tbl.NumColumns())
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		columns []string
		check   func(t *testing.T, got func(i int, col string) interface{})
		rows    int
	}{
		{
			name:    "records",
			input:   `[{"month": "9", "year": 2012, "date_uuid": "a"}, {"month": "2", "year": 1997.5}]`,
			columns: []string{"date_uuid", "month", "year"},
			rows:    2,
			check: func(t *testing.T, got func(int, string) interface{}) {
				assert.Equal(t, int64(2012), got(0, "year"))
				assert.Equal(t, 1997.5, got(1, "year"))
				assert.Nil(t, got(1, "date_uuid"))
			},
		},
		{
			name:    "column oriented by index",
			input:   `{"year": {"0": "2012", "1": "1997", "10": "2001", "2": "1994"}, "day": {"0": "19", "2": "13"}}`,
			columns: []string{"day", "year"},
			rows:    4,
			check: func(t *testing.T, got func(int, string) interface{}) {
				assert.Equal(t, "2012", got(0, "year"))
				assert.Equal(t, "1994", got(2, "year"))
				assert.Equal(t, "2001", got(3, "year"))
				assert.Nil(t, got(1, "day"))
			},
		},
		{
			name:    "column oriented lists",
			input:   `{"a": [1, 2], "b": [true, null]}`,
			columns: []string{"a", "b"},
			rows:    2,
			check: func(t *testing.T, got func(int, string) interface{}) {
				assert.Equal(t, int64(2), got(1, "a"))
				assert.Equal(t, true, got(0, "b"))
				assert.Nil(t, got(1, "b"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Decode(strings.NewReader(tt.input), FormatJSON)
			require.NoError(t, err)
			assert.Equal(t, tt.columns, tbl.Columns())
			require.Equal(t, tt.rows, tbl.NumRows())
			tt.check(t, tbl.Value)
		})
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	for _, input := range []string{"", "42", `{"a": 1}`, `[1, 2]`, `{"a": {`} {
		_, err := Decode(strings.NewReader(input), FormatJSON)
		assert.Error(t, err, "input %q", input)
	}
}

func TestDecodeHTML(t *testing.T) {
	input := `<html><body>
<p>intro</p>
<table>
  <thead><tr><th></th><th>store_code</th><th>staff_numbers</th></tr></thead>
  <tbody>
    <tr><td>0</td><td>WEB-1388012W</td><td>325</td></tr>
    <tr><td>1</td><td><b>HA-7ED8A8DE</b></td><td></td></tr>
  </tbody>
</table>
<table><tr><td>ignored</td></tr></table>
</body></html>`

	tbl, err := Decode(strings.NewReader(input), FormatHTML)
	require.NoError(t, err)

	assert.Equal(t, []string{"Unnamed: 0", "store_code", "staff_numbers"}, tbl.Columns())
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, "HA-7ED8A8DE", tbl.Value(1, "store_code"))
	assert.Nil(t, tbl.Value(1, "staff_numbers"))
}

func TestDecodeHTML_NoTable(t *testing.T) {
	_, err := Decode(strings.NewReader("<html><body>nothing</body></html>"), FormatHTML)
	assert.Error(t, err)
}

func TestFormats(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromKey("date_details.JSON"))
	assert.Equal(t, FormatHTML, FormatFromKey("stores.htm"))
	assert.Equal(t, FormatCSV, FormatFromKey("products.csv"))
	assert.Equal(t, FormatCSV, FormatFromKey("products"))

	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, Format(""), f)

	_, err = ParseFormat("parquet")
	assert.Error(t, err)

	_, err = Decode(strings.NewReader("x"), Format("parquet"))
	assert.Error(t, err)
}
