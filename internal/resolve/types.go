/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package resolve implements C1, the schema resolver: it expands the
// three column-inheritance forms into a fully-qualified column model per
// table (spec.md §4.1), attaches automation roles, and materializes
// implicit foreign-key columns.
package resolve

import "github.com/pgedge/genlogic/internal/schema"

// RoleKind tags a column's automation role (spec.md §3 ColumnSpec.role,
// modeled as the sum type spec.md §9 recommends).
type RoleKind int

// The column roles a resolved column can carry.
const (
	RolePlain RoleKind = iota
	RoleSequence
	RoleForeignKey
	RoleFetch
	RoleFetchUpdates
	RoleLatest
	RoleAggregation
	RoleCalculated
)

func (k RoleKind) String() string {
	switch k {
	case RolePlain:
		return "Plain"
	case RoleSequence:
		return "Sequence"
	case RoleForeignKey:
		return "ForeignKey"
	case RoleFetch:
		return "Fetch"
	case RoleFetchUpdates:
		return "FetchUpdates"
	case RoleLatest:
		return "Latest"
	case RoleAggregation:
		return "Aggregation"
	case RoleCalculated:
		return "Calculated"
	default:
		return "Unknown"
	}
}

// Role is the per-column automation role. Only the fields relevant to
// Kind are meaningful; treat it as the tagged union spec.md §9 describes.
type Role struct {
	Kind RoleKind

	// SourceTable, SourceFKName, SourceColumn are set for ForeignKey,
	// Fetch, FetchUpdates, Latest, and Aggregation roles (spec.md §3:
	// "For automation roles: source_table, source_fk_name,
	// source_column").
	SourceTable  string
	SourceFKName string
	SourceColumn string

	// AggKind is set for Aggregation: one of SUM/COUNT/MAX/MIN/AVG.
	AggKind schema.AutomationKind

	// Expression and ReferencedColumns are set for Calculated.
	Expression        string
	ReferencedColumns []string
}

// ColumnSpec is the canonical representation of one column after
// inheritance resolution (spec.md §3).
type ColumnSpec struct {
	Name       string
	BaseType   schema.BaseType
	Size       int
	HasSize    bool
	Decimal    int
	HasDecimal bool

	Required   bool
	Unique     bool
	PrimaryKey bool
	Sequence   bool

	HasDefault bool
	// Default is the literal rendered for a DDL DEFAULT clause: already
	// quoted for text-shaped types; for json/jsonb it is the canonical
	// JSON text, which the DDL emitter wraps in a string literal.
	Default string

	Role Role

	// Implicit is true for foreign-key columns the resolver synthesized
	// because the user did not declare them (spec.md §4.1).
	Implicit bool
}

// ForeignKeySpec is one resolved foreign key on a table (spec.md §3).
type ForeignKeySpec struct {
	Name         string
	ParentTable  string
	ChildColumns []string
	OnDelete     string // restrict | cascade | set_null | no_action
}

// TableSpec is one table's resolved column model (spec.md §3).
type TableSpec struct {
	Name        string
	Columns     []ColumnSpec
	columnIndex map[string]int

	ForeignKeys []ForeignKeySpec
	PrimaryKey  []string
	Uniques     [][]string
	Indexes     [][]string
}

// Column looks up a column by name, returning (spec, true) if found.
func (t *TableSpec) Column(name string) (ColumnSpec, bool) {
	idx, ok := t.columnIndex[name]
	if !ok {
		return ColumnSpec{}, false
	}
	return t.Columns[idx], true
}

// HasColumn reports whether the table declares a column named name.
func (t *TableSpec) HasColumn(name string) bool {
	_, ok := t.columnIndex[name]
	return ok
}

// ColumnNames returns the table's column names in declaration order.
func (t *TableSpec) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// setColumn replaces the column with c's name, or appends c when the
// table has no column of that name yet (the FK materialization step uses
// both: upgrading a declared column to RoleForeignKey, and adding an
// implicit one).
func (t *TableSpec) setColumn(c ColumnSpec) {
	idx, ok := t.columnIndex[c.Name]
	if !ok {
		t.columnIndex[c.Name] = len(t.Columns)
		t.Columns = append(t.Columns, c)
		return
	}
	t.Columns[idx] = c
}

// ResolvedSchema is the output of C1: every declared table, fully
// resolved (spec.md §3).
type ResolvedSchema struct {
	TableOrder []string
	Tables     map[string]*TableSpec
}

// Table looks up a table by name.
func (s *ResolvedSchema) Table(name string) (*TableSpec, bool) {
	t, ok := s.Tables[name]
	return t, ok
}
