package etl

import (
	"fmt"
	"regexp"
	"strings"

	"taxisync/internal/domain"
)

// ── Column mapping ─────────────────────────────────────────
// The only transformation the sync applies: each source column is written
// to the destination column at the same position. Values are untouched.

// identPattern accepts plain or schema-qualified SQL identifiers.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidIdentifier reports whether s is safe to splice into SQL unquoted.
func ValidIdentifier(s string) bool {
	return identPattern.MatchString(s)
}

// ColumnMapping pairs source and destination column names by position.
type ColumnMapping struct {
	Source      []string
	Destination []string
}

// DefaultColumnMapping maps the trip columns to their lower-cased names.
func DefaultColumnMapping() ColumnMapping {
	return NewColumnMapping(nil, nil)
}

// NewColumnMapping builds a mapping; empty lists fall back to domain.TripColumns
// for the source and to the lower-cased source names for the destination.
func NewColumnMapping(source, destination []string) ColumnMapping {
	if len(source) == 0 {
		source = domain.TripColumns
	}
	if len(destination) == 0 {
		destination = make([]string, len(source))
		for i, c := range source {
			destination[i] = strings.ToLower(c)
		}
	}
	return ColumnMapping{
		Source:      append([]string(nil), source...),
		Destination: append([]string(nil), destination...),
	}
}

// Validate checks both sides have exactly one valid, distinct name per trip field.
func (m ColumnMapping) Validate() error {
	for side, cols := range map[string][]string{"source": m.Source, "destination": m.Destination} {
		if len(cols) != domain.TripFieldCount {
			return fmt.Errorf("%s columns: want %d, got %d", side, domain.TripFieldCount, len(cols))
		}
		seen := make(map[string]bool, len(cols))
		for _, c := range cols {
			if !ValidIdentifier(c) || strings.Contains(c, ".") {
				return fmt.Errorf("%s columns: invalid identifier %q", side, c)
			}
			key := strings.ToLower(c)
			if seen[key] {
				return fmt.Errorf("%s columns: duplicate %q", side, c)
			}
			seen[key] = true
		}
	}
	return nil
}

// DestinationFor returns the destination name of a source column, or "" if unmapped.
func (m ColumnMapping) DestinationFor(source string) string {
	for i, c := range m.Source {
		if strings.EqualFold(c, source) && i < len(m.Destination) {
			return m.Destination[i]
		}
	}
	return ""
}
