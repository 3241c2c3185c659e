/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package trigger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pgedge/genlogic/internal/resolve"
	"github.com/pgedge/genlogic/internal/schema"
)

// CompiledTrigger is one emitted (function, trigger) pair for a single
// (table, operation).
type CompiledTrigger struct {
	Table        string
	Op           string // insert | update | delete
	FunctionName string
	TriggerName  string

	DropTriggerSQL  string
	DropFunctionSQL string
	FunctionSQL     string
	TriggerSQL      string
}

// CompileResult holds every trigger emitted for one table.
type CompileResult struct {
	Table    string
	Triggers []CompiledTrigger
}

// quoteIdent quotes a PostgreSQL identifier, mirroring the driver layer's
// own quoting helper so trigger text and DDL text never diverge on this.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// FunctionName renders the `<table>_after_<op>_genlogic` naming
// convention (spec.md §4.4 "Naming").
func FunctionName(table, op string) string {
	return fmt.Sprintf("%s_after_%s_genlogic", table, op)
}

// Compile emits the trigger functions and CREATE TRIGGER statements for
// every table that has at least one role-bearing column or relative
// depending on it, tagging each function body with compileID so it can be
// correlated with a specific compiler run (spec.md §4.5 enrichment).
func Compile(rs *resolve.ResolvedSchema, automations map[string]*TableAutomations, compileID uuid.UUID) (map[string]*CompileResult, error) {
	results := make(map[string]*CompileResult, len(rs.TableOrder))

	for _, tname := range rs.TableOrder {
		ta := automations[tname]
		if ta == nil || ta.IsEmpty() {
			continue
		}

		table, ok := rs.Table(tname)
		if !ok {
			continue
		}

		c := &compiler{rs: rs, table: table, ta: ta, compileID: compileID}
		result := &CompileResult{Table: tname}

		if ct := c.compileInsert(); ct != nil {
			result.Triggers = append(result.Triggers, *ct)
		}
		if ct := c.compileUpdate(); ct != nil {
			result.Triggers = append(result.Triggers, *ct)
		}
		if ct := c.compileDelete(); ct != nil {
			result.Triggers = append(result.Triggers, *ct)
		}

		if len(result.Triggers) > 0 {
			results[tname] = result
		}
	}

	return results, nil
}

type compiler struct {
	rs        *resolve.ResolvedSchema
	table     *resolve.TableSpec
	ta        *TableAutomations
	compileID uuid.UUID
}

func (c *compiler) header(sb *strings.Builder) {
	fmt.Fprintf(sb, "-- genlogic compile %s\n", c.compileID)
}

func (c *compiler) wrap(op string, body string) CompiledTrigger {
	fn := FunctionName(c.table.Name, op)
	trig := fn

	var pgOp string
	switch op {
	case "insert":
		pgOp = "INSERT"
	case "update":
		pgOp = "UPDATE"
	case "delete":
		pgOp = "DELETE"
	}

	funcSQL := fmt.Sprintf(
		"CREATE OR REPLACE FUNCTION %s() RETURNS TRIGGER AS $$\nBEGIN\n%s\n  RETURN NEW;\nEND;\n$$ LANGUAGE plpgsql;",
		quoteIdent(fn), body)

	if op == "delete" {
		funcSQL = fmt.Sprintf(
			"CREATE OR REPLACE FUNCTION %s() RETURNS TRIGGER AS $$\nBEGIN\n%s\n  RETURN OLD;\nEND;\n$$ LANGUAGE plpgsql;",
			quoteIdent(fn), body)
	}

	triggerSQL := fmt.Sprintf(
		"CREATE TRIGGER %s AFTER %s ON %s FOR EACH ROW EXECUTE FUNCTION %s();",
		quoteIdent(trig), pgOp, quoteIdent(c.table.Name), quoteIdent(fn))

	return CompiledTrigger{
		Table:           c.table.Name,
		Op:              op,
		FunctionName:    fn,
		TriggerName:     trig,
		DropTriggerSQL:  fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s;", quoteIdent(trig), quoteIdent(c.table.Name)),
		DropFunctionSQL: fmt.Sprintf("DROP FUNCTION IF EXISTS %s();", quoteIdent(fn)),
		FunctionSQL:     funcSQL,
		TriggerSQL:      triggerSQL,
	}
}

func (c *compiler) needsUpdatedAt() bool {
	for _, tname := range c.rs.TableOrder {
		table, _ := c.rs.Table(tname)
		for _, col := range table.Columns {
			if col.Role.Kind == resolve.RoleLatest && col.Role.SourceTable == c.table.Name {
				return true
			}
		}
	}
	return false
}

// fkColumns returns the child-side column names for the foreign key
// named fkName on t, or nil if t has no such FK.
func fkColumns(t *resolve.TableSpec, fkName string) []string {
	for _, fk := range t.ForeignKeys {
		if fk.Name == fkName {
			return fk.ChildColumns
		}
	}
	return nil
}

func guardExpr(cols []string) string {
	var parts []string
	for _, col := range cols {
		parts = append(parts, fmt.Sprintf("OLD.%s IS DISTINCT FROM NEW.%s", quoteIdent(col), quoteIdent(col)))
	}
	return strings.Join(parts, " OR ")
}

// --- Step 1: push to children -----------------------------------------

func (c *compiler) emitPushToChildren(sb *strings.Builder, unconditional bool) {
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

		stmt := fmt.Sprintf("  UPDATE %s SET %s WHERE %s;\n",
			quoteIdent(entry.ChildTable), strings.Join(setClauses, ", "), strings.Join(whereClauses, " AND "))

		if unconditional {
			sb.WriteString(stmt)
			continue
		}

		var parentCols []string
		for _, m := range entry.Columns {
			parentCols = append(parentCols, m.SourceColumn)
		}
		fmt.Fprintf(sb, "  IF %s THEN\n%s  END IF;\n", guardExpr(parentCols), "  "+stmt)
	}
}

// --- Step 2: pull from parents ------------------------------------------

func (c *compiler) emitPullFromParents(sb *strings.Builder, unconditional bool) {
	for _, entry := range c.ta.PullFromParents {
		fkCols := fkColumns(c.table, entry.FKName)
		parent, ok := c.rs.Table(entry.ParentTable)
		if !ok || len(fkCols) == 0 || len(fkCols) != len(parent.PrimaryKey) {
			continue
		}

		var selectCols, intoCols, whereClauses []string
		for _, m := range entry.Columns {
			selectCols = append(selectCols, quoteIdent(m.SourceColumn))
			intoCols = append(intoCols, "NEW."+quoteIdent(m.LocalColumn))
		}
		for i, pk := range parent.PrimaryKey {
			whereClauses = append(whereClauses, fmt.Sprintf("%s = NEW.%s", quoteIdent(pk), quoteIdent(fkCols[i])))
		}

		stmt := fmt.Sprintf("    SELECT %s INTO %s FROM %s WHERE %s;\n",
			strings.Join(selectCols, ", "), strings.Join(intoCols, ", "),
			quoteIdent(entry.ParentTable), strings.Join(whereClauses, " AND "))

		if unconditional {
			sb.WriteString(stmt)
			continue
		}

		fmt.Fprintf(sb, "  IF %s THEN\n%s  END IF;\n", guardExpr(fkCols), stmt)
	}
}

// --- Step 3: evaluate calculated columns --------------------------------

func (c *compiler) emitCalculated(sb *strings.Builder) {
	for _, cc := range c.ta.CalculatedColumns {
		expr := rewriteToNew(cc.Expression, cc.ReferencedColumns)
		fmt.Fprintf(sb, "  NEW.%s := %s;\n", quoteIdent(cc.Column), expr)
	}
}

// rewriteToNew rewrites every occurrence of a referenced column
// identifier in expr into NEW.<col>, matching only whole-word
// occurrences (spec.md §6: "identifiers matching declared column names
// ... form the dependency set ... emitted verbatim with identifier
// prefix rewriting").
func rewriteToNew(expr string, referenced []string) string {
	out := expr
	for _, col := range referenced {
		out = replaceIdentifier(out, col, "NEW."+quoteIdent(col))
	}
	return out
}

// replaceIdentifier performs a byte-scan substitution of whole-word,
// case-insensitive occurrences of name in s, skipping string/quoted
// literals, the same boundary rules internal/exprscan uses to find
// identifiers in the first place.
func replaceIdentifier(s, name, replacement string) string {
	var out strings.Builder
	i := 0
	n := len(s)
	for i < n {
		c := s[i]
		switch {
		case c == '\'':
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
		case c == '"':
			start := i
			i++
			for i < n && s[i] != '"' {
				i++
			}
			if i < n {
				i++
			}
			out.WriteString(s[start:i])
		case isIdentStart(c):
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
			out.WriteByte(c)
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

// --- Step 4: push to parents (aggregation maintenance) ------------------

// maxMinRecompute builds the subquery that recomputes a MAX/MIN
// aggregate from scratch over every row of c.table currently joined to
// one parent row, used whenever the row being maintained might have held
// the stored extremum and a cheap GREATEST/LEAST no longer suffices.
// side selects whether the join compares against OLD or NEW row values.
func (c *compiler) maxMinRecompute(entry AggEntry, fkCols []string, side string) string {
	fn := "MAX"
	if entry.Kind == schema.AutoMin {
		fn = "MIN"
	}
	var where []string
	for _, col := range fkCols {
		where = append(where, fmt.Sprintf("%s = %s.%s", quoteIdent(col), side, quoteIdent(col)))
	}
	return fmt.Sprintf("(SELECT %s(%s) FROM %s WHERE %s)",
		fn, quoteIdent(entry.ChildColumn), quoteIdent(c.table.Name), strings.Join(where, " AND "))
}

// deltaClause renders the in-place incremental SET fragment for entry,
// used when the row's parent did not change. SUM/COUNT/AVG apply the
// arithmetic delta directly; MAX/MIN only recompute when the row's old
// value equalled the currently stored extremum, otherwise they widen the
// bound in place.
func (c *compiler) deltaClause(entry AggEntry, fkCols []string) string {
	col := quoteIdent(entry.ParentColumn)
	child := quoteIdent(entry.ChildColumn)
	switch entry.Kind {
	case schema.AutoSum:
		return fmt.Sprintf("%s = %s - COALESCE(OLD.%s,0) + COALESCE(NEW.%s,0)", col, col, child, child)
	case schema.AutoCount:
		return fmt.Sprintf(
			"%s = %s + (CASE WHEN NEW.%s IS NOT NULL THEN 1 ELSE 0 END) - (CASE WHEN OLD.%s IS NOT NULL THEN 1 ELSE 0 END)",
			col, col, child, child)
	case schema.AutoMax:
		sub := c.maxMinRecompute(entry, fkCols, "NEW")
		return fmt.Sprintf("%s = CASE WHEN OLD.%s = %s THEN %s ELSE GREATEST(%s, NEW.%s) END", col, child, col, sub, col, child)
	case schema.AutoMin:
		sub := c.maxMinRecompute(entry, fkCols, "NEW")
		return fmt.Sprintf("%s = CASE WHEN OLD.%s = %s THEN %s ELSE LEAST(%s, NEW.%s) END", col, child, col, sub, col, child)
	case schema.AutoAvg:
		sumCol := quoteIdent(entry.ParentColumn + sumSuffix)
		countCol := quoteIdent(entry.ParentColumn + countSuffix)
		return fmt.Sprintf(
			"%s = %s - COALESCE(OLD.%s,0) + COALESCE(NEW.%s,0), %s = %s + (CASE WHEN NEW.%s IS NOT NULL THEN 1 ELSE 0 END) - (CASE WHEN OLD.%s IS NOT NULL THEN 1 ELSE 0 END), %s = (%s - COALESCE(OLD.%s,0) + COALESCE(NEW.%s,0)) / NULLIF(%s + (CASE WHEN NEW.%s IS NOT NULL THEN 1 ELSE 0 END) - (CASE WHEN OLD.%s IS NOT NULL THEN 1 ELSE 0 END), 0)",
			sumCol, sumCol, child, child,
			countCol, countCol, child, child,
			col, sumCol, child, child, countCol, child, child)
	}
	return fmt.Sprintf("%s = %s", col, col)
}

// removeClause renders the SET fragment that subtracts a row's
// contribution from the parent it currently belongs to, used both for
// reparenting (the row's old parent) and for DELETE (the only parent the
// deleted row ever had). fkCols must be joined against side ("OLD" in
// both of those cases, since the row's stored FK value or its existence
// is already the old one by the time this runs).
func (c *compiler) removeClause(entry AggEntry, fkCols []string, side string) string {
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
		sumCol := quoteIdent(entry.ParentColumn + sumSuffix)
		countCol := quoteIdent(entry.ParentColumn + countSuffix)
		return fmt.Sprintf(
			"%s = %s - COALESCE(%s.%s,0), %s = %s - (CASE WHEN %s.%s IS NOT NULL THEN 1 ELSE 0 END), %s = (%s - COALESCE(%s.%s,0)) / NULLIF(%s - (CASE WHEN %s.%s IS NOT NULL THEN 1 ELSE 0 END), 0)",
			sumCol, sumCol, side, child, countCol, countCol, side, child, col, sumCol, side, child, countCol, side, child)
	}
	return fmt.Sprintf("%s = %s", col, col)
}

// addClause renders the SET fragment that adds a row's contribution to
// the parent it belongs to, used for INSERT and for the NEW-parent half
// of a reparent. MAX/MIN can always widen in place here: the row is
// joining this parent, so its prior contribution (if any) is irrelevant.
func addClause(entry AggEntry) string {
	col := quoteIdent(entry.ParentColumn)
	child := quoteIdent(entry.ChildColumn)
	switch entry.Kind {
	case schema.AutoSum:
		return fmt.Sprintf("%s = %s + COALESCE(NEW.%s,0)", col, col, child)
	case schema.AutoCount:
		return fmt.Sprintf("%s = %s + (CASE WHEN NEW.%s IS NOT NULL THEN 1 ELSE 0 END)", col, col, child)
	case schema.AutoMax:
		return fmt.Sprintf("%s = GREATEST(%s, NEW.%s)", col, col, child)
	case schema.AutoMin:
		return fmt.Sprintf("%s = LEAST(%s, NEW.%s)", col, col, child)
	case schema.AutoAvg:
		sumCol := quoteIdent(entry.ParentColumn + sumSuffix)
		countCol := quoteIdent(entry.ParentColumn + countSuffix)
		return fmt.Sprintf(
			"%s = %s + COALESCE(NEW.%s,0), %s = %s + (CASE WHEN NEW.%s IS NOT NULL THEN 1 ELSE 0 END), %s = (%s + COALESCE(NEW.%s,0)) / NULLIF(%s + (CASE WHEN NEW.%s IS NOT NULL THEN 1 ELSE 0 END), 0)",
			sumCol, sumCol, child, countCol, countCol, child, col, sumCol, child, countCol, child)
	}
	return fmt.Sprintf("%s = %s", col, col)
}

// emitPushToParentsUpdate emits step 4 for the UPDATE trigger: FK
// reparenting (subtract from OLD parent, add to NEW parent) when the
// foreign key itself changed, otherwise an incremental adjustment guarded
// on the source columns actually changing.
func (c *compiler) emitPushToParentsUpdate(sb *strings.Builder) {
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

		fmt.Fprintf(sb, "  IF %s THEN\n", guardExpr(fkCols))
		fmt.Fprintf(sb, "    UPDATE %s SET %s WHERE %s;\n",
			quoteIdent(group.ParentTable), strings.Join(removeSets, ", "), strings.Join(whereOld, " AND "))
		fmt.Fprintf(sb, "    UPDATE %s SET %s WHERE %s;\n",
			quoteIdent(group.ParentTable), strings.Join(addSets, ", "), strings.Join(whereNew, " AND "))
		fmt.Fprintf(sb, "  ELSIF %s THEN\n", guardExpr(sourceCols))
		fmt.Fprintf(sb, "    UPDATE %s SET %s WHERE %s;\n",
			quoteIdent(group.ParentTable), strings.Join(deltaSets, ", "), strings.Join(whereNew, " AND "))
		sb.WriteString("  END IF;\n")
	}
}

// --- Assembly per operation ----------------------------------------------

func (c *compiler) compileInsert() *CompiledTrigger {
	var sb strings.Builder
	c.header(&sb)

	if c.needsUpdatedAt() {
		sb.WriteString("  NEW._updated_at := now();\n")
	}

	c.emitPushToChildren(&sb, true)
	c.emitPullFromParents(&sb, true)
	c.emitCalculated(&sb)
	c.emitPushToParentsInsert(&sb)

	ct := c.wrap("insert", sb.String())
	return &ct
}

func (c *compiler) compileUpdate() *CompiledTrigger {
	var sb strings.Builder
	c.header(&sb)

	if c.needsUpdatedAt() {
		sb.WriteString("  NEW._updated_at := now();\n")
	}

	c.emitPushToChildren(&sb, false)
	c.emitPullFromParents(&sb, false)
	c.emitCalculated(&sb)
	c.emitPushToParentsUpdate(&sb)

	ct := c.wrap("update", sb.String())
	return &ct
}

func (c *compiler) compileDelete() *CompiledTrigger {
	if len(c.ta.PushToParents) == 0 {
		return nil
	}

	var sb strings.Builder
	c.header(&sb)
	c.emitPushToParentsDelete(&sb)

	ct := c.wrap("delete", sb.String())
	return &ct
}

func (c *compiler) emitPushToParentsInsert(sb *strings.Builder) {
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
		fmt.Fprintf(sb, "  UPDATE %s SET %s WHERE %s;\n",
			quoteIdent(group.ParentTable), strings.Join(sets, ", "), strings.Join(where, " AND "))
	}
}

// emitPushToParentsDelete emits step 4 for the DELETE trigger: the
// deleted row's contribution is always subtracted from the parent it
// belonged to, with MAX/MIN recomputed from scratch whenever the deleted
// row might have held the stored extremum.
func (c *compiler) emitPushToParentsDelete(sb *strings.Builder) {
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
		fmt.Fprintf(sb, "  UPDATE %s SET %s WHERE %s;\n",
			quoteIdent(group.ParentTable), strings.Join(sets, ", "), strings.Join(where, " AND "))
	}
}
