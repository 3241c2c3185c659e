/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package trigger implements C4, the consolidated trigger compiler: it
// assembles each table's TableAutomations from the resolved schema plus
// the FK and calc graphs, then emits the fixed four-step AFTER INSERT /
// UPDATE / DELETE trigger bodies that keep parent/child data flows in
// sync, guarded against runaway cascades by IS DISTINCT FROM checks.
package trigger

import (
	"github.com/pgedge/genlogic/internal/schema"
)

// ColumnMirror pairs a source (usually parent-side) column with the
// local column it is mirrored into.
type ColumnMirror struct {
	SourceColumn string
	LocalColumn  string
}

// PushToChild is one push_to_children entry: when the owning table's
// mirrored columns change, the named child table's corresponding columns
// are updated for every child row whose foreign key points at the
// changed parent row.
type PushToChild struct {
	ChildTable string
	FKName     string
	Columns    []ColumnMirror
}

// PullFromParent is one pull_from_parents entry: when the owning table's
// foreign key changes, its local mirrored columns are refreshed from the
// named parent table.
type PullFromParent struct {
	ParentTable string
	FKName      string
	Columns     []ColumnMirror
}

// CalculatedColumn is one evaluate_calculated step, already placed in the
// topological order C3 computed.
type CalculatedColumn struct {
	Column            string
	Expression        string
	ReferencedColumns []string
}

// AggEntry is one column a parent maintains as an aggregate over a
// child's column.
type AggEntry struct {
	ParentColumn string
	Kind         schema.AutomationKind
	ChildColumn  string
}

// PushToParent is one push_to_parents entry, attached to the CHILD
// table's automations: when the owning (child) table's source column or
// its foreign key changes, the named parent table's aggregation columns
// are incrementally maintained.
type PushToParent struct {
	ParentTable string
	FKName      string
	Entries     []AggEntry
}

// TableAutomations is everything C4 needs to compile one table's trigger
// bodies (spec.md §3 TableAutomations).
type TableAutomations struct {
	Table string

	PushToChildren    []*PushToChild
	PullFromParents   []*PullFromParent
	CalculatedColumns []CalculatedColumn
	PushToParents     []*PushToParent
}

// IsEmpty reports whether this table has no automation work at all,
// meaning no triggers need to be emitted for it.
func (ta *TableAutomations) IsEmpty() bool {
	return len(ta.PushToChildren) == 0 && len(ta.PullFromParents) == 0 &&
		len(ta.CalculatedColumns) == 0 && len(ta.PushToParents) == 0
}

// HiddenColumn is a column the compiler synthesizes on a table beyond
// what the schema declared, needed to make an automation's semantics
// observable (spec.md §9's LATEST open question, and the AVG
// sum/count pair this implementation chose for the same reason).
type HiddenColumn struct {
	Name     string
	BaseType schema.BaseType
	Default  string
}

// updatedAtColumn is the synthesized timestamp column a table carries
// when some parent's LATEST aggregation sources from it.
const updatedAtColumn = "_updated_at"

// sumSuffix and countSuffix name the companion columns an AVG
// aggregation maintains instead of recomputing the average from scratch
// on every row.
const (
	sumSuffix   = "__sum"
	countSuffix = "__count"
)
