package dbclient

import (
	"strconv"
	"strings"
)

// Dialect captures the per-driver SQL differences the sync relies on.
type Dialect struct {
	Name string

	// MaxParams is the largest number of bind parameters one statement may carry.
	MaxParams int

	// CurrentSchema is the SQL expression naming the default schema/database,
	// used when a table is referenced without a qualifier.
	CurrentSchema string

	numbered bool // $1, $2, ... instead of ?
}

var (
	postgresDialect = Dialect{
		Name:          "postgres",
		MaxParams:     65535,
		CurrentSchema: "current_schema()",
		numbered:      true,
	}
	mysqlDialect = Dialect{
		Name:          "mysql",
		MaxParams:     65535,
		CurrentSchema: "DATABASE()",
	}
	sqliteDialect = Dialect{
		Name:      "sqlite",
		MaxParams: 32766,
	}
	clickhouseDialect = Dialect{
		Name:          "clickhouse",
		MaxParams:     65535,
		CurrentSchema: "currentDatabase()",
	}
)

// Placeholder returns the bind marker for the n-th (1-based) parameter.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// RowsPerStatement returns how many rows of width columns fit in one statement.
func (d Dialect) RowsPerStatement(width int) int {
	if width <= 0 || d.MaxParams < width {
		return 1
	}
	return d.MaxParams / width
}

// ValuesClause renders "(p,p,...),(p,p,...)" for rows x width parameters,
// numbering placeholders from 1.
func (d Dialect) ValuesClause(rows, width int) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for c := 0; c < width; c++ {
			if c > 0 {
				b.WriteByte(',')
			}
			b.WriteString(d.Placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// splitTable splits "schema.table" into its parts. The schema is empty when
// the name is unqualified.
func splitTable(table string) (schema, name string) {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		return table[:i], table[i+1:]
	}
	return "", table
}
