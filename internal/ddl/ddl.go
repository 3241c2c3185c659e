/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package ddl implements the other half of the compiler's output surface
// (spec.md §6 "Output artifacts" item 1): a single visitor over
// ResolvedSchema that emits CREATE TABLE statements, the foreign-key
// constraints and FK-column indexes spec.md §6 calls for, in declaration
// order, plus the hidden columns C4 needs (spec.md §9's LATEST and AVG
// decisions) appended after each table's declared columns.
package ddl

import (
	"fmt"
	"strings"

	"github.com/pgedge/genlogic/internal/resolve"
	"github.com/pgedge/genlogic/internal/schema"
	"github.com/pgedge/genlogic/internal/trigger"
)

// Statement is one DDL statement in the ordered sequence the external
// driver executes (spec.md §6 item 3).
type Statement struct {
	// Kind labels the statement's role for reporting/diagnostics; it
	// carries no semantic weight in how the statement is applied.
	Kind string // table | foreign_key | index
	Table string
	SQL   string
}

// Generate builds the ordered statement sequence for rs. hidden is the
// per-table set of synthesized columns trigger.ComputeHiddenColumns
// produced; pass nil to omit them (e.g. when inspecting DDL for a schema
// that has no LATEST/AVG automations).
func Generate(rs *resolve.ResolvedSchema, hidden map[string][]trigger.HiddenColumn) ([]Statement, error) {
	var stmts []Statement

	for _, tname := range rs.TableOrder {
		table, ok := rs.Table(tname)
		if !ok {
			continue
		}
		sql, err := createTableSQL(table, hidden[tname])
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", tname, err)
		}
		stmts = append(stmts, Statement{Kind: "table", Table: tname, SQL: sql})
	}

	// Foreign keys are added after every table exists, so declaration
	// order never forces a forward reference to an as-yet-uncreated
	// parent table.
	for _, tname := range rs.TableOrder {
		table, _ := rs.Table(tname)
		for _, fk := range table.ForeignKeys {
			parent, ok := rs.Table(fk.ParentTable)
			if !ok || len(parent.PrimaryKey) != len(fk.ChildColumns) {
				continue
			}
			stmts = append(stmts, Statement{
				Kind:  "foreign_key",
				Table: tname,
				SQL:   foreignKeySQL(table.Name, fk, parent.PrimaryKey),
			})
			stmts = append(stmts, Statement{
				Kind:  "index",
				Table: tname,
				SQL:   fkIndexSQL(table.Name, fk),
			})
		}
	}

	for _, tname := range rs.TableOrder {
		table, _ := rs.Table(tname)
		for _, cols := range table.Uniques {
			stmts = append(stmts, Statement{Kind: "index", Table: tname, SQL: uniqueIndexSQL(table.Name, cols)})
		}
		for _, cols := range table.Indexes {
			stmts = append(stmts, Statement{Kind: "index", Table: tname, SQL: indexSQL(table.Name, cols)})
		}
	}

	return stmts, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func createTableSQL(table *resolve.TableSpec, hidden []trigger.HiddenColumn) (string, error) {
	var lines []string

	for _, col := range table.Columns {
		line, err := columnSQL(col)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	for _, h := range hidden {
		lines = append(lines, hiddenColumnSQL(h))
	}

	if len(table.PrimaryKey) > 0 {
		lines = append(lines, fmt.Sprintf("PRIMARY KEY (%s)", quoteIdentList(table.PrimaryKey)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE %s (\n  %s\n);", quoteIdent(table.Name), strings.Join(lines, ",\n  "))
	return sb.String(), nil
}

func columnSQL(col resolve.ColumnSpec) (string, error) {
	sqlType, err := baseTypeSQL(col)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", quoteIdent(col.Name), sqlType)

	if col.Sequence {
		sb.WriteString(" GENERATED ALWAYS AS IDENTITY")
	}
	if col.Required {
		sb.WriteString(" NOT NULL")
	}
	if col.Unique {
		sb.WriteString(" UNIQUE")
	}

	if def, ok := defaultLiteral(col); ok {
		fmt.Fprintf(&sb, " DEFAULT %s", def)
	}

	return sb.String(), nil
}

func hiddenColumnSQL(h trigger.HiddenColumn) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", quoteIdent(h.Name), pgType(h.BaseType, 0, 0))
	if h.Default != "" {
		fmt.Fprintf(&sb, " DEFAULT %s", h.Default)
	}
	return sb.String()
}

// defaultLiteral implements the parent-column DEFAULT policy (spec.md
// §4.4): an explicit schema default always wins; absent one, aggregation
// columns get a type-appropriate zero value so trigger arithmetic never
// needs a COALESCE on the parent side. FETCH/LATEST/Calculated columns
// keep NULL (no entry) because NULL carries meaning for them.
func defaultLiteral(col resolve.ColumnSpec) (string, bool) {
	if col.HasDefault {
		if col.BaseType == schema.TypeJSON || col.BaseType == schema.TypeJSONB {
			return "'" + strings.ReplaceAll(col.Default, "'", "''") + "'", true
		}
		return col.Default, true
	}
	if col.Role.Kind != resolve.RoleAggregation {
		return "", false
	}
	switch col.BaseType {
	case schema.TypeInteger, schema.TypeBigint, schema.TypeSmallint, schema.TypeNumeric, schema.TypeReal, schema.TypeDouble:
		return "0", true
	case schema.TypeBoolean:
		return "FALSE", true
	case schema.TypeText, schema.TypeVarchar, schema.TypeChar:
		return "''", true
	}
	return "", false
}

func baseTypeSQL(col resolve.ColumnSpec) (string, error) {
	size, decimal := 0, 0
	if col.HasSize {
		size = col.Size
	}
	if col.HasDecimal {
		decimal = col.Decimal
	}
	return pgType(col.BaseType, size, decimal), nil
}

func pgType(bt schema.BaseType, size, decimal int) string {
	switch bt {
	case schema.TypeInteger:
		return "INTEGER"
	case schema.TypeBigint:
		return "BIGINT"
	case schema.TypeSmallint:
		return "SMALLINT"
	case schema.TypeNumeric:
		if decimal > 0 {
			return fmt.Sprintf("NUMERIC(%d,%d)", size, decimal)
		}
		if size > 0 {
			return fmt.Sprintf("NUMERIC(%d)", size)
		}
		return "NUMERIC"
	case schema.TypeReal:
		return "REAL"
	case schema.TypeDouble:
		return "DOUBLE PRECISION"
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeVarchar:
		if size > 0 {
			return fmt.Sprintf("VARCHAR(%d)", size)
		}
		return "VARCHAR"
	case schema.TypeChar:
		if size > 0 {
			return fmt.Sprintf("CHAR(%d)", size)
		}
		return "CHAR"
	case schema.TypeText:
		return "TEXT"
	case schema.TypeBit:
		if size > 0 {
			return fmt.Sprintf("BIT(%d)", size)
		}
		return "BIT"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeTimestamp:
		return "TIMESTAMP"
	case schema.TypeTimestampTZ:
		return "TIMESTAMPTZ"
	case schema.TypeUUID:
		return "UUID"
	case schema.TypeJSON:
		return "JSON"
	case schema.TypeJSONB:
		return "JSONB"
	}
	return "TEXT"
}

func onDeleteSQL(action string) string {
	switch action {
	case "cascade":
		return "CASCADE"
	case "set_null":
		return "SET NULL"
	case "restrict":
		return "RESTRICT"
	default:
		return "NO ACTION"
	}
}

func foreignKeySQL(table string, fk resolve.ForeignKeySpec, parentPK []string) string {
	name := fmt.Sprintf("%s_%s_fkey", table, fk.Name)
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s;",
		quoteIdent(table), quoteIdent(name), quoteIdentList(fk.ChildColumns),
		quoteIdent(fk.ParentTable), quoteIdentList(parentPK), onDeleteSQL(fk.OnDelete))
}

func fkIndexSQL(table string, fk resolve.ForeignKeySpec) string {
	name := fmt.Sprintf("%s_%s_idx", table, fk.Name)
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s);",
		quoteIdent(name), quoteIdent(table), quoteIdentList(fk.ChildColumns))
}

func uniqueIndexSQL(table string, cols []string) string {
	name := fmt.Sprintf("%s_%s_key", table, strings.Join(cols, "_"))
	return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s);",
		quoteIdent(name), quoteIdent(table), quoteIdentList(cols))
}

func indexSQL(table string, cols []string) string {
	name := fmt.Sprintf("%s_%s_idx", table, strings.Join(cols, "_"))
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s);",
		quoteIdent(name), quoteIdent(table), quoteIdentList(cols))
}

func quoteIdentList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}
