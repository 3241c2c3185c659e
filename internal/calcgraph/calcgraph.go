/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package calcgraph implements C3: for each table, it builds the
// dependency graph among that table's calculated columns (an edge from
// column A to column B when B's expression references A) and produces
// the evaluation order the trigger body must assign them in, so that a
// calculated column is never computed before the columns its own
// expression reads.
//
// Unlike the foreign key graph, a calculated-column cycle is always a
// compile error; there is no runtime guard that could make a circular
// calculation terminate.
package calcgraph

import (
	"fmt"

	"github.com/pgedge/genlogic/internal/errors"
	"github.com/pgedge/genlogic/internal/resolve"
)

// Validate checks every table in rs for a calculated-column cycle.
func Validate(rs *resolve.ResolvedSchema) error {
	errs := &errors.List{}
	for _, tname := range rs.TableOrder {
		table, ok := rs.Table(tname)
		if !ok {
			continue
		}
		if _, err := TopoOrder(table); err != nil {
			errs.Add(err)
		}
	}
	if errs.Empty() {
		return nil
	}
	return errs
}

// TopoOrder returns table's calculated columns in an order where every
// column appears after every other calculated column its expression
// depends on. Ties (independent columns with no dependency between them)
// break in declaration order, so the result is deterministic for a given
// table.
func TopoOrder(table *resolve.TableSpec) ([]string, error) {
	var declOrder []string
	isCalc := make(map[string]bool)
	for _, col := range table.Columns {
		if col.Role.Kind == resolve.RoleCalculated {
			declOrder = append(declOrder, col.Name)
			isCalc[col.Name] = true
		}
	}
	if len(declOrder) == 0 {
		return nil, nil
	}

	// dependents[x] lists the calculated columns whose expression
	// references x; inDegree[y] counts how many still-unresolved
	// dependencies y has.
	dependents := make(map[string][]string, len(declOrder))
	inDegree := make(map[string]int, len(declOrder))

	col := func(name string) resolve.ColumnSpec {
		c, _ := table.Column(name)
		return c
	}

	for _, name := range declOrder {
		for _, ref := range col(name).Role.ReferencedColumns {
			if isCalc[ref] {
				dependents[ref] = append(dependents[ref], name)
				inDegree[name]++
			}
		}
	}

	remaining := append([]string(nil), declOrder...)
	var order []string

	for len(remaining) > 0 {
		idx := -1
		for i, name := range remaining {
			if inDegree[name] == 0 {
				idx = i
				break
			}
		}

		if idx == -1 {
			// Every remaining calculated column still depends on another
			// remaining one: the set holds at least one cycle, plus any
			// column that depends on a cycle without being part of it.
			return nil, errors.NewCalculatedColumnCycle(
				errors.Path(fmt.Sprintf("tables.%s", table.Name)), table.Name, remaining)
		}

		name := remaining[idx]
		order = append(order, name)
		remaining = append(remaining[:idx], remaining[idx+1:]...)

		for _, dep := range dependents[name] {
			inDegree[dep]--
		}
	}

	return order, nil
}
