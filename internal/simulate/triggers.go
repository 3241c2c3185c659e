/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package simulate translates a compiled TableAutomations set into real
// SQLite CREATE TRIGGER statements and runs them against an in-memory
// modernc.org/sqlite database, so the compiler's four-step semantics
// (spec.md §4.4) can be exercised by actually firing triggers instead of
// interpreting the automation graph in Go. It is test-support code: it
// never participates in a compile or apply run.
//
// SQLite triggers cannot mutate NEW the way the PL/pgSQL functions
// internal/trigger emits do (NEW.col := expr has no SQLite equivalent in
// an AFTER trigger), so every step here is compiled as an explicit
// UPDATE against the owning table's primary key rather than an
// assignment, with later steps reading back the row they just wrote so
// that chained calculated columns and incremental aggregates still see
// each other's effects in the same declaration order C3 computed.
package simulate

import (
	"fmt"
	"strings"

	"github.com/pgedge/genlogic/internal/resolve"
	"github.com/pgedge/genlogic/internal/schema"
	"github.com/pgedge/genlogic/internal/trigger"
)

// compiledSQLiteTrigger is one emitted CREATE TRIGGER statement for a
// single (table, operation).
type compiledSQLiteTrigger struct {
	Table string
	Op    string
	Name  string
	SQL   string
}

type sqliteCompiler struct {
	rs    *resolve.ResolvedSchema
	table *resolve.TableSpec
	ta    *trigger.TableAutomations
}

// compileTableTriggers emits the insert/update/delete triggers for one
// table's automations, mirroring internal/trigger.Compile's per-operation
// shape.
func compileTableTriggers(rs *resolve.ResolvedSchema, table *resolve.TableSpec, ta *trigger.TableAutomations) []compiledSQLiteTrigger {
	c := &sqliteCompiler{rs: rs, table: table, ta: ta}

	var out []compiledSQLiteTrigger
	if t := c.compileInsert(); t != nil {
		out = append(out, *t)
	}
	if t := c.compileUpdate(); t != nil {
		out = append(out, *t)
	}
	if t := c.compileDelete(); t != nil {
		out = append(out, *t)
	}
	return out
}

func selfWhere(pk []string, rowVar string) string {
	var parts []string
	for _, col := range pk {
		parts = append(parts, fmt.Sprintf("%s = %s.%s", quoteIdent(col), rowVar, quoteIdent(col)))
	}
	return strings.Join(parts, " AND ")
}

func guardExpr(cols []string) string {
	var parts []string
	for _, col := range cols {
		parts = append(parts, fmt.Sprintf("NEW.%s IS NOT OLD.%s", quoteIdent(col), quoteIdent(col)))
	}
	return strings.Join(parts, " OR ")
}

func fkColumns(t *resolve.TableSpec, fkName string) []string {
	for _, fk := range t.ForeignKeys {
		if fk.Name == fkName {
			return fk.ChildColumns
		}
	}
	return nil
}

// selfColumnRef reads back the current value of col on the owning table
// keyed by the row's primary key, so a later step observes an earlier
// step's write within the same trigger invocation.
func (c *sqliteCompiler) selfColumnRef(col, rowVar string) string {
	return fmt.Sprintf("(SELECT %s FROM %s WHERE %s)", quoteIdent(col), quoteIdent(c.table.Name), selfWhere(c.table.PrimaryKey, rowVar))
}

func (c *sqliteCompiler) wrap(op, name string, stmts []string) *compiledSQLiteTrigger {
	if len(stmts) == 0 {
		return nil
	}
	var pgOp string
	switch op {
	case "insert":
		pgOp = "INSERT"
	case "update":
		pgOp = "UPDATE"
	case "delete":
		pgOp = "DELETE"
	}
	body := strings.Join(stmts, "\n  ")
	sql := fmt.Sprintf("CREATE TRIGGER %s AFTER %s ON %s\nBEGIN\n  %s\nEND;",
		quoteIdent(name), pgOp, quoteIdent(c.table.Name), body)
	return &compiledSQLiteTrigger{Table: c.table.Name, Op: op, Name: name, SQL: sql}
}

// --- Step 1: push to children -------------------------------------------

func (c *sqliteCompiler) pushToChildrenStmts(unconditional bool) []string {
	var out []string
	for _, entry := range c.ta.PushToChildren {
		childTable, ok := c.rs.Table(entry.ChildTable)
		if !ok {
			continue
		}
		childCols := fkColumns(childTable, entry.FKName)
		if len(childCols) == 0 || len(childCols) != len(c.table.PrimaryKey) {
			continue
		}

		var setClauses []string
		for _, m := range entry.Columns {
			setClauses = append(setClauses, fmt.Sprintf("%s = NEW.%s", quoteIdent(m.LocalColumn), quoteIdent(m.SourceColumn)))
		}
		var whereClauses []string
		for i, childCol := range childCols {
			whereClauses = append(whereClauses, fmt.Sprintf("%s = NEW.%s", quoteIdent(childCol), quoteIdent(c.table.PrimaryKey[i])))
		}
		stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s;",
			quoteIdent(entry.ChildTable), strings.Join(setClauses, ", "), strings.Join(whereClauses, " AND "))

		if unconditional {
			out = append(out, stmt)
			continue
		}
		var parentCols []string
		for _, m := range entry.Columns {
			parentCols = append(parentCols, m.SourceColumn)
		}
		out = append(out, fmt.Sprintf("UPDATE %s SET %s WHERE %s AND (%s);",
			quoteIdent(entry.ChildTable), strings.Join(setClauses, ", "), strings.Join(whereClauses, " AND "), guardExpr(parentCols)))
	}
	return out
}

// --- Step 2: pull from parents -------------------------------------------

func (c *sqliteCompiler) pullFromParentsStmts(unconditional bool) []string {
	var out []string
	for _, entry := range c.ta.PullFromParents {
		fkCols := fkColumns(c.table, entry.FKName)
		parent, ok := c.rs.Table(entry.ParentTable)
		if !ok || len(fkCols) == 0 || len(fkCols) != len(parent.PrimaryKey) {
			continue
		}

		var parentWhere []string
		for i, pk := range parent.PrimaryKey {
			parentWhere = append(parentWhere, fmt.Sprintf("%s = NEW.%s", quoteIdent(pk), quoteIdent(fkCols[i])))
		}

		var setClauses []string
		for _, m := range entry.Columns {
			sub := fmt.Sprintf("(SELECT %s FROM %s WHERE %s)", quoteIdent(m.SourceColumn), quoteIdent(entry.ParentTable), strings.Join(parentWhere, " AND "))
			setClauses = append(setClauses, fmt.Sprintf("%s = %s", quoteIdent(m.LocalColumn), sub))
		}

		stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s;",
			quoteIdent(c.table.Name), strings.Join(setClauses, ", "), selfWhere(c.table.PrimaryKey, "NEW"))

		if unconditional {
			out = append(out, stmt)
			continue
		}
		out = append(out, fmt.Sprintf("UPDATE %s SET %s WHERE %s AND (%s);",
			quoteIdent(c.table.Name), strings.Join(setClauses, ", "), selfWhere(c.table.PrimaryKey, "NEW"), guardExpr(fkCols)))
	}
	return out
}

// --- Step 3: evaluate calculated columns ---------------------------------

func (c *sqliteCompiler) calculatedStmts() []string {
	var out []string
	for _, cc := range c.ta.CalculatedColumns {
		expr := rewriteToSelf(cc.Expression, cc.ReferencedColumns, c)
		out = append(out, fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s;",
			quoteIdent(c.table.Name), quoteIdent(cc.Column), expr, selfWhere(c.table.PrimaryKey, "NEW")))
	}
	return out
}

func rewriteToSelf(expr string, referenced []string, c *sqliteCompiler) string {
	out := expr
	for _, col := range referenced {
		out = replaceIdentifier(out, col, c.selfColumnRef(col, "NEW"))
	}
	return out
}

func replaceIdentifier(s, name, replacement string) string {
	var out strings.Builder
	i, n := 0, len(s)
	for i < n {
		ch := s[i]
		switch {
		case ch == '\'':
			start := i
			i++
			for i < n {
				if s[i] == '\'' {
					if i+1 < n && s[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			out.WriteString(s[start:i])
		case ch == '"':
			start := i
			i++
			for i < n && s[i] != '"' {
				i++
			}
			if i < n {
				i++
			}
			out.WriteString(s[start:i])
		case isIdentStart(ch):
			start := i
			i++
			for i < n && isIdentPart(s[i]) {
				i++
			}
			word := s[start:i]
			if strings.EqualFold(word, name) {
				out.WriteString(replacement)
			} else {
				out.WriteString(word)
			}
		default:
			out.WriteByte(ch)
			i++
		}
	}
	return out.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// --- Step 4: push to parents (aggregation maintenance) -------------------

// maxMinRecompute rebuilds the extremum from every row currently joined
// to the parent, using SQLite's aggregate max()/min() the same way the
// Postgres compiler uses MAX()/MIN().
func (c *sqliteCompiler) maxMinRecompute(entry trigger.AggEntry, fkCols []string, side string) string {
	fn := "max"
	if entry.Kind == schema.AutoMin {
		fn = "min"
	}
	var where []string
	for _, col := range fkCols {
		where = append(where, fmt.Sprintf("%s = %s.%s", quoteIdent(col), side, quoteIdent(col)))
	}
	return fmt.Sprintf("(SELECT %s(%s) FROM %s WHERE %s)", fn, quoteIdent(entry.ChildColumn), quoteIdent(c.table.Name), strings.Join(where, " AND "))
}

func (c *sqliteCompiler) deltaClause(entry trigger.AggEntry, fkCols []string) string {
	col := quoteIdent(entry.ParentColumn)
	child := quoteIdent(entry.ChildColumn)
	switch entry.Kind {
	case schema.AutoSum:
		return fmt.Sprintf("%s = %s - COALESCE(OLD.%s,0) + COALESCE(NEW.%s,0)", col, col, child, child)
	case schema.AutoCount:
		return fmt.Sprintf("%s = %s + (CASE WHEN NEW.%s IS NOT NULL THEN 1 ELSE 0 END) - (CASE WHEN OLD.%s IS NOT NULL THEN 1 ELSE 0 END)",
			col, col, child, child)
	case schema.AutoMax:
		sub := c.maxMinRecompute(entry, fkCols, "NEW")
		return fmt.Sprintf("%s = CASE WHEN OLD.%s = %s THEN %s ELSE max(%s, NEW.%s) END", col, child, col, sub, col, child)
	case schema.AutoMin:
		sub := c.maxMinRecompute(entry, fkCols, "NEW")
		return fmt.Sprintf("%s = CASE WHEN OLD.%s = %s THEN %s ELSE min(%s, NEW.%s) END", col, child, col, sub, col, child)
	case schema.AutoAvg:
		sumCol := quoteIdent(entry.ParentColumn + "__sum")
		countCol := quoteIdent(entry.ParentColumn + "__count")
		return fmt.Sprintf(
			"%s = %s - COALESCE(OLD.%s,0) + COALESCE(NEW.%s,0), %s = %s + (CASE WHEN NEW.%s IS NOT NULL THEN 1 ELSE 0 END) - (CASE WHEN OLD.%s IS NOT NULL THEN 1 ELSE 0 END), %s = (%s - COALESCE(OLD.%s,0) + COALESCE(NEW.%s,0)) / NULLIF(%s + (CASE WHEN NEW.%s IS NOT NULL THEN 1 ELSE 0 END) - (CASE WHEN OLD.%s IS NOT NULL THEN 1 ELSE 0 END), 0)",
			sumCol, sumCol, child, child, countCol, countCol, child, child, col, sumCol, child, child, countCol, child, child)
	}
	return fmt.Sprintf("%s = %s", col, col)
}

func (c *sqliteCompiler) removeClause(entry trigger.AggEntry, fkCols []string, side string) string {
	col := quoteIdent(entry.ParentColumn)
	child := quoteIdent(entry.ChildColumn)
	switch entry.Kind {
	case schema.AutoSum:
		return fmt.Sprintf("%s = %s - COALESCE(%s.%s,0)", col, col, side, child)
	case schema.AutoCount:
		return fmt.Sprintf("%s = %s - (CASE WHEN %s.%s IS NOT NULL THEN 1 ELSE 0 END)", col, col, side, child)
	case schema.AutoMax, schema.AutoMin:
		sub := c.maxMinRecompute(entry, fkCols, side)
		return fmt.Sprintf("%s = CASE WHEN %s.%s = %s THEN %s ELSE %s END", col, side, child, col, sub, col)
	case schema.AutoAvg:
		sumCol := quoteIdent(entry.ParentColumn + "__sum")
		countCol := quoteIdent(entry.ParentColumn + "__count")
		return fmt.Sprintf(
			"%s = %s - COALESCE(%s.%s,0), %s = %s - (CASE WHEN %s.%s IS NOT NULL THEN 1 ELSE 0 END), %s = (%s - COALESCE(%s.%s,0)) / NULLIF(%s - (CASE WHEN %s.%s IS NOT NULL THEN 1 ELSE 0 END), 0)",
			sumCol, sumCol, side, child, countCol, countCol, side, child, col, sumCol, side, child, countCol, side, child)
	}
	return fmt.Sprintf("%s = %s", col, col)
}

func addClause(entry trigger.AggEntry) string {
	col := quoteIdent(entry.ParentColumn)
	child := quoteIdent(entry.ChildColumn)
	switch entry.Kind {
	case schema.AutoSum:
		return fmt.Sprintf("%s = %s + COALESCE(NEW.%s,0)", col, col, child)
	case schema.AutoCount:
		return fmt.Sprintf("%s = %s + (CASE WHEN NEW.%s IS NOT NULL THEN 1 ELSE 0 END)", col, col, child)
	case schema.AutoMax:
		return fmt.Sprintf("%s = max(%s, NEW.%s)", col, col, child)
	case schema.AutoMin:
		return fmt.Sprintf("%s = min(%s, NEW.%s)", col, col, child)
	case schema.AutoAvg:
		sumCol := quoteIdent(entry.ParentColumn + "__sum")
		countCol := quoteIdent(entry.ParentColumn + "__count")
		return fmt.Sprintf(
			"%s = %s + COALESCE(NEW.%s,0), %s = %s + (CASE WHEN NEW.%s IS NOT NULL THEN 1 ELSE 0 END), %s = (%s + COALESCE(NEW.%s,0)) / NULLIF(%s + (CASE WHEN NEW.%s IS NOT NULL THEN 1 ELSE 0 END), 0)",
			sumCol, sumCol, child, countCol, countCol, child, col, sumCol, child, countCol, child)
	}
	return fmt.Sprintf("%s = %s", col, col)
}

func (c *sqliteCompiler) pushToParentsUpdateStmts() []string {
	var out []string
	for _, group := range c.ta.PushToParents {
		fkCols := fkColumns(c.table, group.FKName)
		parent, ok := c.rs.Table(group.ParentTable)
		if !ok || len(fkCols) == 0 || len(fkCols) != len(parent.PrimaryKey) {
			continue
		}

		var whereOld, whereNew []string
		for i, pk := range parent.PrimaryKey {
			whereOld = append(whereOld, fmt.Sprintf("%s = OLD.%s", quoteIdent(pk), quoteIdent(fkCols[i])))
			whereNew = append(whereNew, fmt.Sprintf("%s = NEW.%s", quoteIdent(pk), quoteIdent(fkCols[i])))
		}

		var removeSets, addSets, deltaSets, sourceCols []string
		for _, entry := range group.Entries {
			removeSets = append(removeSets, c.removeClause(entry, fkCols, "OLD"))
			addSets = append(addSets, addClause(entry))
			deltaSets = append(deltaSets, c.deltaClause(entry, fkCols))
			sourceCols = append(sourceCols, entry.ChildColumn)
		}

		reparented := guardExpr(fkCols)
		unreparented := guardExpr(sourceCols)

		out = append(out, fmt.Sprintf("UPDATE %s SET %s WHERE %s AND (%s);",
			quoteIdent(group.ParentTable), strings.Join(removeSets, ", "), strings.Join(whereOld, " AND "), reparented))
		out = append(out, fmt.Sprintf("UPDATE %s SET %s WHERE %s AND (%s);",
			quoteIdent(group.ParentTable), strings.Join(addSets, ", "), strings.Join(whereNew, " AND "), reparented))
		out = append(out, fmt.Sprintf("UPDATE %s SET %s WHERE %s AND NOT (%s) AND (%s);",
			quoteIdent(group.ParentTable), strings.Join(deltaSets, ", "), strings.Join(whereNew, " AND "), reparented, unreparented))
	}
	return out
}

func (c *sqliteCompiler) pushToParentsInsertStmts() []string {
	var out []string
	for _, group := range c.ta.PushToParents {
		fkCols := fkColumns(c.table, group.FKName)
		parent, ok := c.rs.Table(group.ParentTable)
		if !ok || len(fkCols) == 0 || len(fkCols) != len(parent.PrimaryKey) {
			continue
		}
		var where []string
		for i, pk := range parent.PrimaryKey {
			where = append(where, fmt.Sprintf("%s = NEW.%s", quoteIdent(pk), quoteIdent(fkCols[i])))
		}
		var sets []string
		for _, entry := range group.Entries {
			sets = append(sets, addClause(entry))
		}
		out = append(out, fmt.Sprintf("UPDATE %s SET %s WHERE %s;",
			quoteIdent(group.ParentTable), strings.Join(sets, ", "), strings.Join(where, " AND ")))
	}
	return out
}

func (c *sqliteCompiler) pushToParentsDeleteStmts() []string {
	var out []string
	for _, group := range c.ta.PushToParents {
		fkCols := fkColumns(c.table, group.FKName)
		parent, ok := c.rs.Table(group.ParentTable)
		if !ok || len(fkCols) == 0 || len(fkCols) != len(parent.PrimaryKey) {
			continue
		}
		var where []string
		for i, pk := range parent.PrimaryKey {
			where = append(where, fmt.Sprintf("%s = OLD.%s", quoteIdent(pk), quoteIdent(fkCols[i])))
		}
		var sets []string
		for _, entry := range group.Entries {
			sets = append(sets, c.removeClause(entry, fkCols, "OLD"))
		}
		out = append(out, fmt.Sprintf("UPDATE %s SET %s WHERE %s;",
			quoteIdent(group.ParentTable), strings.Join(sets, ", "), strings.Join(where, " AND ")))
	}
	return out
}

// --- Assembly per operation ------------------------------------------------

func (c *sqliteCompiler) compileInsert() *compiledSQLiteTrigger {
	var stmts []string
	stmts = append(stmts, c.pushToChildrenStmts(true)...)
	stmts = append(stmts, c.pullFromParentsStmts(true)...)
	stmts = append(stmts, c.calculatedStmts()...)
	stmts = append(stmts, c.pushToParentsInsertStmts()...)
	return c.wrap("insert", fmt.Sprintf("%s_after_insert_simulate", c.table.Name), stmts)
}

func (c *sqliteCompiler) compileUpdate() *compiledSQLiteTrigger {
	var stmts []string
	stmts = append(stmts, c.pushToChildrenStmts(false)...)
	stmts = append(stmts, c.pullFromParentsStmts(false)...)
	stmts = append(stmts, c.calculatedStmts()...)
	stmts = append(stmts, c.pushToParentsUpdateStmts()...)
	return c.wrap("update", fmt.Sprintf("%s_after_update_simulate", c.table.Name), stmts)
}

func (c *sqliteCompiler) compileDelete() *compiledSQLiteTrigger {
	if len(c.ta.PushToParents) == 0 {
		return nil
	}
	stmts := c.pushToParentsDeleteStmts()
	return c.wrap("delete", fmt.Sprintf("%s_after_delete_simulate", c.table.Name), stmts)
}
