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
	"github.com/pgedge/genlogic/internal/calcgraph"
	"github.com/pgedge/genlogic/internal/resolve"
	"github.com/pgedge/genlogic/internal/schema"
)

// Assemble computes TableAutomations for every table in rs. It assumes
// rs has already passed fkgraph.Validate and calcgraph.Validate.
func Assemble(rs *resolve.ResolvedSchema) (map[string]*TableAutomations, error) {
	result := make(map[string]*TableAutomations, len(rs.TableOrder))
	for _, tname := range rs.TableOrder {
		result[tname] = &TableAutomations{Table: tname}
	}

	for _, tname := range rs.TableOrder {
		table, _ := rs.Table(tname)
		ta := result[tname]

		if err := assemblePullAndCalc(table, ta); err != nil {
			return nil, err
		}
	}

	// push_to_children: for every table acting as a child, find its
	// FetchUpdates columns and mirror them onto the parent's automations.
	for _, cname := range rs.TableOrder {
		child, _ := rs.Table(cname)
		for _, fk := range child.ForeignKeys {
			var mirrors []ColumnMirror
			for _, col := range child.Columns {
				if col.Role.Kind == resolve.RoleFetchUpdates &&
					col.Role.SourceFKName == fk.Name && col.Role.SourceTable == fk.ParentTable {
					mirrors = append(mirrors, ColumnMirror{SourceColumn: col.Role.SourceColumn, LocalColumn: col.Name})
				}
			}
			if len(mirrors) == 0 {
				continue
			}
			parentTA, ok := result[fk.ParentTable]
			if !ok {
				continue
			}
			parentTA.PushToChildren = append(parentTA.PushToChildren, &PushToChild{
				ChildTable: cname,
				FKName:     fk.Name,
				Columns:    mirrors,
			})
		}
	}

	// push_to_parents: for every table acting as a parent, find its
	// aggregation columns and attach maintenance entries to the child's
	// automations (the child is where the trigger that performs step 4
	// lives, since it fires on the child's own row changes).
	for _, pname := range rs.TableOrder {
		parent, _ := rs.Table(pname)
		for _, col := range parent.Columns {
			if col.Role.Kind != resolve.RoleAggregation {
				continue
			}
			childTA, ok := result[col.Role.SourceTable]
			if !ok {
				continue
			}

			var group *PushToParent
			for _, g := range childTA.PushToParents {
				if g.ParentTable == pname && g.FKName == col.Role.SourceFKName {
					group = g
					break
				}
			}
			if group == nil {
				group = &PushToParent{ParentTable: pname, FKName: col.Role.SourceFKName}
				childTA.PushToParents = append(childTA.PushToParents, group)
			}
			group.Entries = append(group.Entries, AggEntry{
				ParentColumn: col.Name,
				Kind:         col.Role.AggKind,
				ChildColumn:  col.Role.SourceColumn,
			})
		}
	}

	return result, nil
}

func assemblePullAndCalc(table *resolve.TableSpec, ta *TableAutomations) error {
	groups := make(map[string]*PullFromParent)

	for _, col := range table.Columns {
		switch col.Role.Kind {
		case resolve.RoleFetch, resolve.RoleFetchUpdates, resolve.RoleLatest:
			g, ok := groups[col.Role.SourceFKName]
			if !ok {
				g = &PullFromParent{ParentTable: col.Role.SourceTable, FKName: col.Role.SourceFKName}
				groups[col.Role.SourceFKName] = g
				ta.PullFromParents = append(ta.PullFromParents, g)
			}
			g.Columns = append(g.Columns, ColumnMirror{SourceColumn: col.Role.SourceColumn, LocalColumn: col.Name})
		}
	}

	order, err := calcgraph.TopoOrder(table)
	if err != nil {
		return err
	}
	for _, name := range order {
		col, _ := table.Column(name)
		ta.CalculatedColumns = append(ta.CalculatedColumns, CalculatedColumn{
			Column:            name,
			Expression:        col.Role.Expression,
			ReferencedColumns: col.Role.ReferencedColumns,
		})
	}

	return nil
}

// ComputeHiddenColumns returns the hidden columns (spec.md §9's LATEST
// open question, and the companion AVG sum/count columns) every table in
// rs needs beyond what the schema declared.
func ComputeHiddenColumns(rs *resolve.ResolvedSchema) map[string][]HiddenColumn {
	hidden := make(map[string][]HiddenColumn)

	needsUpdatedAt := make(map[string]bool)
	for _, tname := range rs.TableOrder {
		table, _ := rs.Table(tname)
		for _, col := range table.Columns {
			if col.Role.Kind == resolve.RoleLatest {
				needsUpdatedAt[col.Role.SourceTable] = true
			}
			if col.Role.Kind == resolve.RoleAggregation && col.Role.AggKind == schema.AutoAvg {
				hidden[tname] = append(hidden[tname],
					HiddenColumn{Name: col.Name + sumSuffix, BaseType: schema.TypeNumeric, Default: "0"},
					HiddenColumn{Name: col.Name + countSuffix, BaseType: schema.TypeBigint, Default: "0"},
				)
			}
		}
	}

	for tname := range needsUpdatedAt {
		hidden[tname] = append(hidden[tname], HiddenColumn{Name: updatedAtColumn, BaseType: schema.TypeTimestampTZ})
	}

	return hidden
}
