// pkg/model/metadata.go
package model

// TableMetadata contains the structure information for a destination table
type TableMetadata struct {
	Schema  string   // Schema name
	Table   string   // Table name
	Columns []Column // Column definitions
}

// Column represents metadata about a destination column
type Column struct {
	Name     string // Column name
	PgType   string // PostgreSQL type
	Nullable bool   // Whether column allows NULL values
}

// ColumnNames returns the column names in order
func (tm *TableMetadata) ColumnNames() []string {
	names := make([]string, len(tm.Columns))
	for i, col := range tm.Columns {
		names[i] = col.Name
	}
	return names
}
