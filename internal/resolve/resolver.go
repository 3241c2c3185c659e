/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package resolve

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pgedge/genlogic/internal/cache"
	"github.com/pgedge/genlogic/internal/errors"
	"github.com/pgedge/genlogic/internal/jsonpath"
	"github.com/pgedge/genlogic/internal/schema"
)

var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var validOnDelete = map[string]bool{
	"restrict": true, "cascade": true, "set_null": true, "no_action": true,
}

// Resolve runs C1 against doc, returning the fully resolved schema or an
// aggregated *errors.List describing every problem found. Resolve does
// not check foreign-key cycles or calculated-column cycles; those are C2
// and C3's job against the ResolvedSchema this returns.
func Resolve(doc *schema.Document) (*ResolvedSchema, error) {
	r := &resolution{doc: doc, errs: &errors.List{}, tables: map[string]*TableSpec{}}
	r.resolveColumns()
	r.resolveForeignKeys()
	r.resolveCalculatedReferences()

	if !r.errs.Empty() {
		return nil, r.errs
	}

	out := &ResolvedSchema{TableOrder: append([]string(nil), r.doc.TableOrder...), Tables: r.tables}
	return out, nil
}

type resolution struct {
	doc    *schema.Document
	errs   *errors.List
	tables map[string]*TableSpec
}

// resolveColumns is pass 1: every table's own declared columns, expanded
// through the three inheritance forms, independent of any other table.
// It must run to completion for every table before resolveForeignKeys
// runs, since a foreign key can name a parent table declared later in the
// document (spec.md §4.1 makes no ordering requirement on `tables:`).
func (r *resolution) resolveColumns() {
	for _, tname := range r.doc.TableOrder {
		decl := r.doc.Tables[tname]

		if !identRegex.MatchString(tname) {
			r.errs.Add(errors.NewInvalidIdentifier(errors.Path("tables"), tname))
		}

		table := &TableSpec{Name: tname, columnIndex: map[string]int{}}
		r.tables[tname] = table

		for _, cname := range decl.ColumnOrder {
			path := errors.Path(fmt.Sprintf("tables.%s.columns.%s", tname, cname))

			if !identRegex.MatchString(cname) {
				r.errs.Add(errors.NewInvalidIdentifier(path, cname))
				continue
			}

			inline, err := r.expandColumnDecl(tname, cname, decl.Columns[cname], path)
			if err != nil {
				r.errs.Add(err)
				continue
			}

			spec, err := r.buildColumnSpec(cname, inline, path)
			if err != nil {
				r.errs.Add(err)
				continue
			}

			table.setColumn(spec)
		}

		table.PrimaryKey = derivePrimaryKey(decl.PrimaryKey, table)
		table.Uniques = decl.Uniques
		table.Indexes = decl.Indexes
	}
}

// derivePrimaryKey returns the table's declared primary_key list, or, if
// the schema did not declare one explicitly, the columns individually
// marked primary_key: true, in declaration order.
func derivePrimaryKey(declared []string, table *TableSpec) []string {
	if len(declared) > 0 {
		return declared
	}
	var pk []string
	for _, c := range table.Columns {
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// expandColumnDecl applies spec.md §4.1's three resolution rules,
// returning the fully merged InlineColumn fields for a single table
// column.
func (r *resolution) expandColumnDecl(tname, cname string, decl schema.ColumnDecl, path errors.Path) (schema.InlineColumn, error) {
	switch decl.Kind {
	case schema.ColumnInline:
		return decl.Inline, nil

	case schema.ColumnInheritedRef:
		refName := decl.RefName
		if decl.SelfRef {
			refName = cname
		}
		base, ok := r.doc.Columns[refName]
		if !ok {
			return schema.InlineColumn{}, errors.NewUnknownReference(path, refName)
		}
		return base, nil

	case schema.ColumnInheritedOverride:
		base, ok := r.doc.Columns[decl.RefName]
		if !ok {
			return schema.InlineColumn{}, errors.NewUnknownReference(path, decl.RefName)
		}
		return mergeOverride(base, decl.Inline), nil

	default:
		return schema.InlineColumn{}, fmt.Errorf("%s: unrecognized column declaration kind", path)
	}
}

// mergeOverride deep-merges override on top of base, field by field,
// consulting override.IsSet so an explicit zero value (e.g. `required:
// false`) still takes effect while an absent key does not (spec.md §4.1
// rule 3).
func mergeOverride(base, override schema.InlineColumn) schema.InlineColumn {
	merged := base
	if override.IsSet("base_type") {
		merged.BaseType = override.BaseType
	}
	if override.IsSet("size") {
		merged.Size = override.Size
	}
	if override.IsSet("decimal") {
		merged.Decimal = override.Decimal
	}
	if override.IsSet("required") {
		merged.Required = override.Required
	}
	if override.IsSet("unique") {
		merged.Unique = override.Unique
	}
	if override.IsSet("primary_key") {
		merged.PrimaryKey = override.PrimaryKey
	}
	if override.IsSet("sequence") {
		merged.Sequence = override.Sequence
	}
	if override.IsSet("default") {
		merged.DefaultNode = override.DefaultNode
	}
	if override.IsSet("automation") {
		merged.Automation = override.Automation
	}
	if override.IsSet("calculated") {
		merged.Calculated = override.Calculated
	}
	return merged
}

// buildColumnSpec validates a fully-merged InlineColumn against the
// per-type size/decimal rules (spec.md §6), renders its DEFAULT literal
// if any, and derives its automation role.
func (r *resolution) buildColumnSpec(name string, inline schema.InlineColumn, path errors.Path) (ColumnSpec, error) {
	if inline.BaseType == "" {
		return ColumnSpec{}, errors.NewTypeSizeViolation(path, "base_type is required")
	}
	if !validBaseType(inline.BaseType) {
		return ColumnSpec{}, errors.NewTypeSizeViolation(path, fmt.Sprintf("unrecognized base_type %q", inline.BaseType))
	}

	hasSize := inline.IsSet("size")
	hasDecimal := inline.IsSet("decimal")
	if err := validateSizeRules(inline.BaseType, hasSize, hasDecimal, path); err != nil {
		return ColumnSpec{}, err
	}

	spec := ColumnSpec{
		Name:       name,
		BaseType:   inline.BaseType,
		Size:       inline.Size,
		HasSize:    hasSize,
		Decimal:    inline.Decimal,
		HasDecimal: hasDecimal,
		Required:   inline.Required,
		Unique:     inline.Unique,
		PrimaryKey: inline.PrimaryKey,
		Sequence:   inline.Sequence,
	}

	if inline.DefaultNode != nil {
		lit, err := renderDefault(inline.BaseType, inline.DefaultNode, path)
		if err != nil {
			return ColumnSpec{}, err
		}
		spec.HasDefault = true
		spec.Default = lit
	}

	role, err := deriveRole(inline, path)
	if err != nil {
		return ColumnSpec{}, err
	}
	spec.Role = role

	return spec, nil
}

func validBaseType(bt schema.BaseType) bool {
	switch bt {
	case schema.TypeInteger, schema.TypeBigint, schema.TypeSmallint, schema.TypeNumeric,
		schema.TypeReal, schema.TypeDouble, schema.TypeBoolean, schema.TypeVarchar,
		schema.TypeChar, schema.TypeText, schema.TypeBit, schema.TypeDate,
		schema.TypeTimestamp, schema.TypeTimestampTZ, schema.TypeUUID,
		schema.TypeJSON, schema.TypeJSONB:
		return true
	}
	return false
}

// validateSizeRules implements spec.md §6's per-type size/decimal table:
// varchar/char/bit require a size and forbid decimal; numeric allows
// either independently but requires size whenever decimal is given; every
// other type forbids both.
func validateSizeRules(bt schema.BaseType, hasSize, hasDecimal bool, path errors.Path) error {
	switch bt {
	case schema.TypeVarchar, schema.TypeChar, schema.TypeBit:
		if !hasSize {
			return errors.NewTypeSizeViolation(path, fmt.Sprintf("size is required for type %s", bt))
		}
		if hasDecimal {
			return errors.NewTypeSizeViolation(path, fmt.Sprintf("decimal is not allowed for type %s", bt))
		}
	case schema.TypeNumeric:
		if hasDecimal && !hasSize {
			return errors.NewTypeSizeViolation(path, "size is required when decimal is specified for type numeric")
		}
	default:
		if hasSize {
			return errors.NewTypeSizeViolation(path, fmt.Sprintf("size is not allowed for type %s", bt))
		}
		if hasDecimal {
			return errors.NewTypeSizeViolation(path, fmt.Sprintf("decimal is not allowed for type %s", bt))
		}
	}
	return nil
}

// renderDefault turns the raw YAML default node into the literal text
// for a DDL DEFAULT clause: canonicalized JSON text for json/jsonb
// columns (quoted later by the DDL emitter), a quoted and escaped string
// for text-shaped types, and the source scalar text otherwise.
func renderDefault(bt schema.BaseType, node *yaml.Node, path errors.Path) (string, error) {
	if bt == schema.TypeJSON || bt == schema.TypeJSONB {
		var v any
		if err := node.Decode(&v); err != nil {
			return "", errors.NewTypeSizeViolation(path, fmt.Sprintf("invalid default for type %s: %v", bt, err))
		}
		lit, err := jsonpath.CanonicalizeValue(v)
		if err != nil {
			return "", errors.NewTypeSizeViolation(path, fmt.Sprintf("invalid default for type %s: %v", bt, err))
		}
		return lit, nil
	}

	raw := node.Value
	switch bt {
	case schema.TypeText, schema.TypeVarchar, schema.TypeChar, schema.TypeUUID,
		schema.TypeDate, schema.TypeTimestamp, schema.TypeTimestampTZ:
		return "'" + strings.ReplaceAll(raw, "'", "''") + "'", nil
	default:
		return raw, nil
	}
}

// deriveRole reads a column's `automation` and `calculated` fields and
// returns the role it plays in C4's trigger assembly (spec.md §3 and §9's
// role sum type). A bare `sequence: true` column with neither field is
// RoleSequence; everything else with neither is RolePlain.
func deriveRole(inline schema.InlineColumn, path errors.Path) (Role, error) {
	if inline.Calculated != "" {
		return Role{Kind: RoleCalculated, Expression: inline.Calculated}, nil
	}

	if inline.Automation != nil {
		a := inline.Automation
		switch {
		case a.Type.IsAggregation():
			return Role{
				Kind:         RoleAggregation,
				AggKind:      a.Type,
				SourceTable:  a.Table,
				SourceFKName: a.ForeignKey,
				SourceColumn: a.Column,
			}, nil
		case a.Type == schema.AutoFetch:
			return Role{Kind: RoleFetch, SourceTable: a.Table, SourceFKName: a.ForeignKey, SourceColumn: a.Column}, nil
		case a.Type == schema.AutoFetchUpdates:
			return Role{Kind: RoleFetchUpdates, SourceTable: a.Table, SourceFKName: a.ForeignKey, SourceColumn: a.Column}, nil
		case a.Type == schema.AutoLatest:
			return Role{Kind: RoleLatest, SourceTable: a.Table, SourceFKName: a.ForeignKey, SourceColumn: a.Column}, nil
		default:
			return Role{}, errors.NewAutomationFKMismatch(path, "", fmt.Sprintf("unrecognized automation type %q", a.Type))
		}
	}

	if inline.Sequence {
		return Role{Kind: RoleSequence}, nil
	}

	return Role{Kind: RolePlain}, nil
}

// resolveForeignKeys is pass 2: for each declared foreign key, locate the
// parent table (already fully column-resolved by pass 1), materialize any
// child columns the author did not declare explicitly, and record the
// resolved ForeignKeySpec.
func (r *resolution) resolveForeignKeys() {
	for _, tname := range r.doc.TableOrder {
		decl := r.doc.Tables[tname]
		table := r.tables[tname]
		if table == nil {
			continue
		}

		for _, fkName := range decl.FKOrder {
			fkDecl := decl.ForeignKeys[fkName]
			path := errors.Path(fmt.Sprintf("tables.%s.foreign_keys.%s", tname, fkName))

			if !identRegex.MatchString(fkName) {
				r.errs.Add(errors.NewInvalidIdentifier(path, fkName))
				continue
			}

			parent, ok := r.tables[fkDecl.Table]
			if !ok {
				r.errs.Add(errors.NewUnknownTable(path, fkDecl.Table))
				continue
			}

			onDelete := fkDecl.OnDelete
			if onDelete == "" {
				onDelete = "restrict"
			}
			if !validOnDelete[onDelete] {
				r.errs.Add(errors.NewInvalidForeignKey(path, tname, fkName,
					fmt.Sprintf("unrecognized delete action %q", onDelete)))
				continue
			}

			parentPK := parent.PrimaryKey
			if len(parentPK) == 0 {
				r.errs.Add(errors.NewInvalidForeignKey(path, tname, fkName,
					fmt.Sprintf("parent table %q has no primary key to reference", fkDecl.Table)))
				continue
			}

			useCompositeNaming := fkDecl.Prefix || len(parentPK) > 1
			childCols := make([]string, 0, len(parentPK))

			for _, pkName := range parentPK {
				pkCol, ok := parent.Column(pkName)
				if !ok {
					r.errs.Add(errors.NewInvalidForeignKey(path, tname, fkName,
						fmt.Sprintf("parent table %q primary key column %q does not exist", fkDecl.Table, pkName)))
					continue
				}

				childName := fkName
				if useCompositeNaming {
					childName = fkName + "_" + pkName
				}

				if existing, ok := table.Column(childName); ok {
					if existing.Role.Kind == RolePlain {
						existing.Role = Role{Kind: RoleForeignKey, SourceTable: fkDecl.Table, SourceFKName: fkName, SourceColumn: pkName}
						table.setColumn(existing)
					}
				} else {
					table.setColumn(ColumnSpec{
						Name:       childName,
						BaseType:   pkCol.BaseType,
						Size:       pkCol.Size,
						HasSize:    pkCol.HasSize,
						Decimal:    pkCol.Decimal,
						HasDecimal: pkCol.HasDecimal,
						Required:   fkDecl.Required,
						Role:       Role{Kind: RoleForeignKey, SourceTable: fkDecl.Table, SourceFKName: fkName, SourceColumn: pkName},
						Implicit:   true,
					})
				}

				childCols = append(childCols, childName)
			}

			table.ForeignKeys = append(table.ForeignKeys, ForeignKeySpec{
				Name:         fkName,
				ParentTable:  fkDecl.Table,
				ChildColumns: childCols,
				OnDelete:     onDelete,
			})
		}
	}
}

// resolveCalculatedReferences populates ReferencedColumns on every
// RoleCalculated column, now that FK materialization has finished adding
// any implicit columns an expression might reference.
func (r *resolution) resolveCalculatedReferences() {
	for _, table := range r.tables {
		names := table.ColumnNames()
		for i, col := range table.Columns {
			if col.Role.Kind != RoleCalculated {
				continue
			}
			col.Role.ReferencedColumns = cache.ExtractIdentifiers(col.Role.Expression, names)
			table.Columns[i] = col
		}
	}
}
