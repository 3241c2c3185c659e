/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package simulate

import (
	"fmt"
	"strings"

	"github.com/pgedge/genlogic/internal/resolve"
	"github.com/pgedge/genlogic/internal/schema"
	"github.com/pgedge/genlogic/internal/trigger"
)

// createTableSQL renders a SQLite CREATE TABLE for one resolved table,
// following internal/ddl's column ordering (declared columns, then hidden
// columns, then the primary key clause) but with SQLite's narrower type
// affinities in place of Postgres types, since SQLite does not enforce
// VARCHAR length, NUMERIC precision, or a dedicated BOOLEAN/UUID/JSONB
// type the way the real target database does.
func createTableSQL(table *resolve.TableSpec, hidden []trigger.HiddenColumn) string {
	var lines []string

	for _, col := range table.Columns {
		lines = append(lines, sqliteColumnSQL(col))
	}
	for _, h := range hidden {
		lines = append(lines, sqliteHiddenColumnSQL(h))
	}

	if len(table.PrimaryKey) > 0 {
		lines = append(lines, fmt.Sprintf("PRIMARY KEY (%s)", quoteIdentList(table.PrimaryKey)))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", quoteIdent(table.Name), strings.Join(lines, ",\n  "))
}

func sqliteColumnSQL(col resolve.ColumnSpec) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", quoteIdent(col.Name), sqliteType(col.BaseType))

	if col.Required {
		sb.WriteString(" NOT NULL")
	}
	if col.Unique {
		sb.WriteString(" UNIQUE")
	}
	if def, ok := defaultLiteral(col); ok {
		fmt.Fprintf(&sb, " DEFAULT %s", def)
	}
	return sb.String()
}

func sqliteHiddenColumnSQL(h trigger.HiddenColumn) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", quoteIdent(h.Name), sqliteType(h.BaseType))
	if h.Default != "" {
		fmt.Fprintf(&sb, " DEFAULT %s", h.Default)
	}
	return sb.String()
}

// defaultLiteral mirrors internal/ddl's zero-default policy for
// aggregation columns so the simulated schema behaves identically to the
// real one for the properties being tested.
func defaultLiteral(col resolve.ColumnSpec) (string, bool) {
	if col.HasDefault {
		return col.Default, true
	}
	if col.Role.Kind != resolve.RoleAggregation {
		return "", false
	}
	switch col.BaseType {
	case schema.TypeInteger, schema.TypeBigint, schema.TypeSmallint, schema.TypeNumeric, schema.TypeReal, schema.TypeDouble:
		return "0", true
	case schema.TypeBoolean:
		return "0", true
	case schema.TypeText, schema.TypeVarchar, schema.TypeChar:
		return "''", true
	}
	return "", false
}

// sqliteType maps a genlogic base type to one of SQLite's storage classes.
// SQLite's type affinity system means the exact name matters less than in
// Postgres, but choosing the closest affinity keeps comparisons and
// arithmetic behaving the way the compiled trigger logic expects.
func sqliteType(bt schema.BaseType) string {
	switch bt {
	case schema.TypeInteger, schema.TypeBigint, schema.TypeSmallint, schema.TypeBoolean:
		return "INTEGER"
	case schema.TypeNumeric, schema.TypeReal, schema.TypeDouble:
		return "REAL"
	default:
		return "TEXT"
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteIdentList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}
