/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package schema holds the parsed (pre-resolution) representation of a
// genlogic schema document: reusable column declarations, table
// declarations, and the three inheritance forms a table column can take.
//
// Nothing in this package performs inheritance resolution, type-size
// validation, or graph analysis; it only turns YAML text into the sum
// types described in spec.md §9 ("Reference resolution patterns").
// Resolution lives in internal/resolve.
package schema

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pgedge/genlogic/internal/errors"
)

// BaseType is one of the column base types enumerated in spec §3.
type BaseType string

// The base types recognized by the compiler.
const (
	TypeInteger     BaseType = "integer"
	TypeBigint      BaseType = "bigint"
	TypeSmallint    BaseType = "smallint"
	TypeNumeric     BaseType = "numeric"
	TypeReal        BaseType = "real"
	TypeDouble      BaseType = "double"
	TypeBoolean     BaseType = "boolean"
	TypeVarchar     BaseType = "varchar"
	TypeChar        BaseType = "char"
	TypeText        BaseType = "text"
	TypeBit         BaseType = "bit"
	TypeDate        BaseType = "date"
	TypeTimestamp   BaseType = "timestamp"
	TypeTimestampTZ BaseType = "timestamptz"
	TypeUUID        BaseType = "uuid"
	TypeJSON        BaseType = "json"
	TypeJSONB       BaseType = "jsonb"
)

// AutomationKind is one of the automation types a column can declare
// (spec §3 ColumnSpec.role, spec §6 "automation object").
type AutomationKind string

// The automation kinds recognized by the compiler.
const (
	AutoSum           AutomationKind = "SUM"
	AutoCount         AutomationKind = "COUNT"
	AutoMax           AutomationKind = "MAX"
	AutoMin           AutomationKind = "MIN"
	AutoAvg           AutomationKind = "AVG"
	AutoLatest        AutomationKind = "LATEST"
	AutoFetch         AutomationKind = "FETCH"
	AutoFetchUpdates  AutomationKind = "FETCH_UPDATES"
)

// IsAggregation reports whether k is one of SUM/COUNT/MAX/MIN/AVG.
func (k AutomationKind) IsAggregation() bool {
	switch k {
	case AutoSum, AutoCount, AutoMax, AutoMin, AutoAvg:
		return true
	}
	return false
}

// AutomationDecl is the raw `automation:` object on a column (spec §6).
type AutomationDecl struct {
	Type       AutomationKind `yaml:"type"`
	Table      string         `yaml:"table"`
	ForeignKey string         `yaml:"foreign_key"`
	Column     string         `yaml:"column"`
}

// ColumnDeclKind tags which of the three inheritance forms a ColumnDecl
// takes, per spec §4.1 and §9 ("model column declarations as a sum
// type").
type ColumnDeclKind int

// The three forms a table column declaration can take.
const (
	// ColumnInline is an object with no $ref: used as-is (rule 4).
	ColumnInline ColumnDeclKind = iota
	// ColumnInheritedRef is a null or string value: inherit a reusable
	// column verbatim (rules 1 and 2).
	ColumnInheritedRef
	// ColumnInheritedOverride is an object with $ref plus overriding
	// fields: deep-merge base with overrides (rule 3).
	ColumnInheritedOverride
)

// ColumnDecl is one column entry under a table's `columns:` mapping,
// before inheritance resolution.
type ColumnDecl struct {
	Kind ColumnDeclKind

	// RefName is the reusable-column name to look up for
	// ColumnInheritedRef and ColumnInheritedOverride. For the null
	// shorthand (rule 1), RefName is empty and SelfRef is true: the
	// resolver looks up the reusable column with the same name as the
	// table column itself.
	RefName string
	SelfRef bool

	// Inline holds the declared fields for ColumnInline (the whole
	// column) and ColumnInheritedOverride (just the overriding fields).
	// It is the zero value for ColumnInheritedRef.
	Inline InlineColumn
}

// InlineColumn holds the fields that can appear directly on a column
// object, whether used standalone (rule 4) or as an override layer over
// a reusable column (rule 3).
type InlineColumn struct {
	Ref        string
	BaseType   BaseType
	Size       int
	Decimal    int
	Required   bool
	Unique     bool
	PrimaryKey bool
	Sequence   bool

	// DefaultNode holds the raw YAML node for `default:` so that
	// structured JSON/JSONB defaults survive round-tripping without a
	// lossy stringification at parse time; internal/resolve renders it
	// to a DDL literal.
	DefaultNode *yaml.Node

	Automation *AutomationDecl
	Calculated string

	// set records which YAML keys were actually present on this node,
	// distinguishing "not specified" from an explicit zero value (e.g.
	// `required: false`) for deep-merge purposes (spec §4.1 rule 3).
	set map[string]bool
}

// IsSet reports whether the YAML key named field was present on this
// column object.
func (c InlineColumn) IsSet(field string) bool {
	return c.set[field]
}

// ForeignKeyDecl is one entry under a table's `foreign_keys:` mapping
// (spec §6).
type ForeignKeyDecl struct {
	Table    string `yaml:"table"`
	OnDelete string `yaml:"delete,omitempty"`
	Prefix   bool   `yaml:"prefix,omitempty"`
	Required bool   `yaml:"required,omitempty"`
}

// TableDecl is one entry under the top-level `tables:` mapping.
type TableDecl struct {
	// ColumnOrder preserves declaration order (spec §3: "ordered
	// columns"); Columns is keyed by column name for lookup.
	ColumnOrder []string
	Columns     map[string]ColumnDecl

	// FKOrder / ForeignKeys mirror ColumnOrder/Columns for foreign_keys.
	FKOrder     []string
	ForeignKeys map[string]ForeignKeyDecl

	PrimaryKey []string
	Uniques    [][]string
	Indexes    [][]string
}

// Document is the top-level parsed schema: the reusable-column dictionary
// and the table declarations (spec §3 "ResolvedSchema", pre-resolution
// input described in spec §4.1 and §6).
type Document struct {
	// TableOrder preserves declaration order across the whole document.
	TableOrder []string
	Tables     map[string]TableDecl

	// Columns is the reusable-column dictionary R.
	Columns map[string]InlineColumn
}

// Load reads and parses a schema document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError(path, "failed to read schema file", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewConfigError(path, "failed to parse schema file", err)
	}

	return &doc, nil
}

// identRegexSource is the identifier pattern from spec §6.
const identRegexSource = `^[A-Za-z_][A-Za-z0-9_]*$`

// String renders an AutomationKind for error messages.
func (k AutomationKind) String() string {
	return string(k)
}

// String renders a BaseType for error messages.
func (t BaseType) String() string {
	return string(t)
}
