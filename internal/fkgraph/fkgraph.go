/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package fkgraph implements C2: it builds the directed graph of foreign
// key relationships across a resolved schema, rejects cycles (a child
// table can never be its own ancestor through a chain of foreign keys to
// other tables; a self-referential foreign key is permitted), and checks
// that every automation's declared foreign key actually connects its
// table to its stated source the way the automation kind requires.
//
// C2 gates the rest of the pipeline: C3 and C4 both assume the foreign
// key graph is acyclic and that every automation binding resolved to a
// real, correctly-oriented foreign key.
package fkgraph

import (
	"fmt"

	"github.com/pgedge/genlogic/internal/errors"
	"github.com/pgedge/genlogic/internal/resolve"
)

type color int

const (
	white color = iota
	gray
	black
)

// Validate runs both C2 checks against rs and returns an aggregated
// *errors.List, or nil if the graph is sound.
func Validate(rs *resolve.ResolvedSchema) error {
	errs := &errors.List{}
	errs.Add(checkCycles(rs))
	errs.Add(checkAutomationBindings(rs))
	if errs.Empty() {
		return nil
	}
	return errs
}

// checkCycles runs a depth-first, tri-color traversal of the table ->
// parent-table edges induced by foreign keys, the same white/gray/black
// marking a recursive-dependency visitor uses to tell "still on the
// current path" (gray) from "fully explored, no cycle through here"
// (black) apart from "not yet seen" (white).
func checkCycles(rs *resolve.ResolvedSchema) error {
	errs := &errors.List{}
	marks := make(map[string]color, len(rs.TableOrder))
	var stack []string

	var visit func(table string)
	visit = func(table string) {
		marks[table] = gray
		stack = append(stack, table)

		spec, ok := rs.Table(table)
		if ok {
			for _, fk := range spec.ForeignKeys {
				parent := fk.ParentTable
				if parent == table {
					// a self-referential foreign key is permitted
					continue
				}
				switch marks[parent] {
				case white:
					visit(parent)
				case gray:
					cycle := cycleFrom(stack, parent)
					errs.Add(errors.NewForeignKeyCycle(errors.Path(fmt.Sprintf("tables.%s.foreign_keys.%s", table, fk.Name)), cycle))
				case black:
					// already fully explored via a different path; no cycle here
				}
			}
		}

		marks[table] = black
		stack = stack[:len(stack)-1]
	}

	for _, table := range rs.TableOrder {
		if marks[table] == white {
			visit(table)
		}
	}

	if errs.Empty() {
		return nil
	}
	return errs
}

// cycleFrom renders the portion of stack from the first occurrence of
// target onward, with target repeated at the end, e.g. [A, B, C, A].
func cycleFrom(stack []string, target string) []string {
	start := 0
	for i, t := range stack {
		if t == target {
			start = i
			break
		}
	}
	cycle := append([]string(nil), stack[start:]...)
	cycle = append(cycle, target)
	return cycle
}

// checkAutomationBindings verifies that every automation role referencing
// a foreign key by name actually resolves to a foreign key pointed the
// direction that role requires: FETCH/FETCH_UPDATES/LATEST pull from a
// parent, so the table itself must declare the named foreign key to the
// stated source table; aggregations (SUM/COUNT/MAX/MIN/AVG) pull from
// children, so the stated source table must declare the named foreign key
// back to this table.
func checkAutomationBindings(rs *resolve.ResolvedSchema) error {
	errs := &errors.List{}

	for _, tname := range rs.TableOrder {
		table, ok := rs.Table(tname)
		if !ok {
			continue
		}

		for _, col := range table.Columns {
			path := errors.Path(fmt.Sprintf("tables.%s.columns.%s.automation", tname, col.Name))

			switch col.Role.Kind {
			case resolve.RoleFetch, resolve.RoleFetchUpdates, resolve.RoleLatest:
				fk := findFK(table, col.Role.SourceFKName)
				if fk == nil {
					errs.Add(errors.NewUnknownForeignKey(path, tname, col.Role.SourceFKName))
					continue
				}
				if fk.ParentTable != col.Role.SourceTable {
					errs.Add(errors.NewAutomationFKMismatch(path, col.Name,
						fmt.Sprintf("foreign key %q points to %q, not the declared source table %q",
							col.Role.SourceFKName, fk.ParentTable, col.Role.SourceTable)))
				}
				if _, ok := rs.Table(col.Role.SourceTable); !ok {
					errs.Add(errors.NewUnknownTable(path, col.Role.SourceTable))
				}

			case resolve.RoleAggregation:
				source, ok := rs.Table(col.Role.SourceTable)
				if !ok {
					errs.Add(errors.NewUnknownTable(path, col.Role.SourceTable))
					continue
				}
				fk := findFK(source, col.Role.SourceFKName)
				if fk == nil {
					errs.Add(errors.NewUnknownForeignKey(path, col.Role.SourceTable, col.Role.SourceFKName))
					continue
				}
				if fk.ParentTable != tname {
					errs.Add(errors.NewAutomationFKMismatch(path, col.Name,
						fmt.Sprintf("foreign key %q on %q points to %q, not this table",
							col.Role.SourceFKName, col.Role.SourceTable, fk.ParentTable)))
				}
			}
		}
	}

	if errs.Empty() {
		return nil
	}
	return errs
}

func findFK(table *resolve.TableSpec, name string) *resolve.ForeignKeySpec {
	for i := range table.ForeignKeys {
		if table.ForeignKeys[i].Name == name {
			return &table.ForeignKeys[i]
		}
	}
	return nil
}
