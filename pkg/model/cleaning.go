// pkg/model/cleaning.go
package model

import (
	"time"
)

// OperationKind classifies what a cleaning step did to a table
type OperationKind string

const (
	// OpRowDropped counts rows removed from the table
	OpRowDropped OperationKind = "row_dropped"
	// OpValueNulled counts values replaced with null
	OpValueNulled OperationKind = "value_nulled"
	// OpColumnDropped marks a column removed from the table
	OpColumnDropped OperationKind = "column_dropped"
)

// CleaningOperation represents an aggregated data cleaning operation
type CleaningOperation struct {
	RunID      string        // Pipeline run that produced the operation
	Entity     string        // Entity cleaner (users, cards, ...)
	TableName  string        // Destination table name
	ColumnName string        // Column affected (empty for whole-row operations)
	Kind       OperationKind // What happened
	Reason     string        // Why it happened (e.g. "invalid_uuid")
	Count      int           // Number of rows/values affected
	CleanedAt  time.Time     // When the cleaning occurred (set by database)
}

// Report is the ordered list of operations a cleaner performed
type Report struct {
	Operations []CleaningOperation
}

// Add appends an operation. Operations with a zero count are ignored
// except for column drops, which always count as one.
func (r *Report) Add(kind OperationKind, column, reason string, count int) {
	if kind == OpColumnDropped && count == 0 {
		count = 1
	}
	if count <= 0 {
		return
	}
	r.Operations = append(r.Operations, CleaningOperation{
		ColumnName: column,
		Kind:       kind,
		Reason:     reason,
		Count:      count,
	})
}

// Total sums the counts of all operations of the given kind
func (r Report) Total(kind OperationKind) int {
	total := 0
	for _, op := range r.Operations {
		if op.Kind == kind {
			total += op.Count
		}
	}
	return total
}

// Merge appends all operations from other
func (r *Report) Merge(other Report) {
	r.Operations = append(r.Operations, other.Operations...)
}

// Stamp returns a copy of the report with run, entity and table filled in
func (r Report) Stamp(runID, entity, table string) Report {
	out := Report{Operations: make([]CleaningOperation, len(r.Operations))}
	for i, op := range r.Operations {
		op.RunID = runID
		op.Entity = entity
		op.TableName = table
		out.Operations[i] = op
	}
	return out
}
