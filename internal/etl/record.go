package etl

import (
	"strings"

	"taxisync/internal/domain"
)

// ── Record ─────────────────────────────────────────────────
// The record flowing through the pipeline is domain.Trip: a fixed,
// positional 19-field tuple. A Batch is one bounded window of trips.

// Field describes a single column in a dataset.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // "integer" | "decimal" | "float" | "text" | "datetime"
}

// Schema describes the shape of records coming from a source.
type Schema struct {
	Fields []Field `json:"fields"`
}

// Missing returns the schema fields absent from columns, compared case-insensitively.
func (s *Schema) Missing(columns []string) []string {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[strings.ToLower(c)] = true
	}
	var missing []string
	for _, f := range s.Fields {
		if !have[strings.ToLower(f.Name)] {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// tripFieldTypes follows domain.TripColumns.
var tripFieldTypes = [domain.TripFieldCount]string{
	"integer", "datetime", "datetime", "integer", "float", "integer", "text",
	"integer", "integer", "integer",
	"decimal", "decimal", "decimal", "decimal", "decimal", "decimal", "decimal", "decimal", "decimal",
}

// TripSchema returns the trip schema under the given column names.
func TripSchema(columns []string) *Schema {
	s := &Schema{Fields: make([]Field, len(columns))}
	for i, name := range columns {
		typ := "text"
		if i < len(tripFieldTypes) {
			typ = tripFieldTypes[i]
		}
		s.Fields[i] = Field{Name: name, Type: typ}
	}
	return s
}

// Batch is one window of trips read at Offset.
type Batch struct {
	Index  int   // 1-based: Offset/batchSize + 1
	Offset int64 // records skipped before this batch
	Trips  []domain.Trip
}

// Len returns the number of trips in the batch.
func (b *Batch) Len() int { return len(b.Trips) }
