/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML implements the three-way dispatch of spec §4.1: a null
// node or a string scalar is an inherited reference (rules 1 and 2); a
// mapping node with a $ref field is an inherited override (rule 3);
// any other mapping node is used inline (rule 4).
func (c *ColumnDecl) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			c.Kind = ColumnInheritedRef
			c.SelfRef = true
			return nil
		}
		var name string
		if err := node.Decode(&name); err != nil {
			return fmt.Errorf("line %d: column reference must be a string: %w", node.Line, err)
		}
		c.Kind = ColumnInheritedRef
		c.RefName = name
		return nil

	case yaml.MappingNode:
		var inline InlineColumn
		if err := inline.UnmarshalYAML(node); err != nil {
			return err
		}
		c.Inline = inline
		if inline.Ref != "" {
			c.Kind = ColumnInheritedOverride
			c.RefName = inline.Ref
		} else {
			c.Kind = ColumnInline
		}
		return nil

	default:
		return fmt.Errorf("line %d: column declaration must be null, a string, or a mapping", node.Line)
	}
}

// UnmarshalYAML decodes a column mapping field-by-field so that the set
// of keys actually present can be recorded (needed for the deep-merge in
// spec §4.1 rule 3).
func (c *InlineColumn) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping for a column object", node.Line)
	}

	c.set = make(map[string]bool)

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]
		key := keyNode.Value
		c.set[key] = true

		var err error
		switch key {
		case "$ref":
			err = valNode.Decode(&c.Ref)
		case "base_type":
			var s string
			if err = valNode.Decode(&s); err == nil {
				c.BaseType = BaseType(s)
			}
		case "size":
			err = valNode.Decode(&c.Size)
		case "decimal":
			err = valNode.Decode(&c.Decimal)
		case "required":
			err = valNode.Decode(&c.Required)
		case "unique":
			err = valNode.Decode(&c.Unique)
		case "primary_key":
			err = valNode.Decode(&c.PrimaryKey)
		case "sequence":
			err = valNode.Decode(&c.Sequence)
		case "default":
			// Copy the node so it survives past the decoder's reuse of
			// the underlying document tree.
			copied := *valNode
			c.DefaultNode = &copied
		case "automation":
			var a AutomationDecl
			if err = valNode.Decode(&a); err == nil {
				c.Automation = &a
			}
		case "calculated":
			err = valNode.Decode(&c.Calculated)
		default:
			return fmt.Errorf("line %d: unknown column field %q", keyNode.Line, key)
		}
		if err != nil {
			return fmt.Errorf("line %d: field %q: %w", valNode.Line, key, err)
		}
	}

	return nil
}

// UnmarshalYAML decodes a table mapping while preserving column
// declaration order (spec §3: "ordered columns").
func (t *TableDecl) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping for a table", node.Line)
	}

	t.Columns = make(map[string]ColumnDecl)
	t.ForeignKeys = make(map[string]ForeignKeyDecl)

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]
		key := keyNode.Value

		switch key {
		case "columns":
			if valNode.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: table.columns must be a mapping", valNode.Line)
			}
			for j := 0; j+1 < len(valNode.Content); j += 2 {
				colName := valNode.Content[j].Value
				var decl ColumnDecl
				if err := valNode.Content[j+1].Decode(&decl); err != nil {
					return fmt.Errorf("column %q: %w", colName, err)
				}
				if _, dup := t.Columns[colName]; dup {
					return fmt.Errorf("line %d: duplicate column %q", valNode.Content[j].Line, colName)
				}
				t.Columns[colName] = decl
				t.ColumnOrder = append(t.ColumnOrder, colName)
			}
		case "foreign_keys":
			if valNode.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: table.foreign_keys must be a mapping", valNode.Line)
			}
			for j := 0; j+1 < len(valNode.Content); j += 2 {
				fkName := valNode.Content[j].Value
				var fk ForeignKeyDecl
				if err := valNode.Content[j+1].Decode(&fk); err != nil {
					return fmt.Errorf("foreign_keys.%s: %w", fkName, err)
				}
				t.ForeignKeys[fkName] = fk
				t.FKOrder = append(t.FKOrder, fkName)
			}
		case "primary_key":
			if err := valNode.Decode(&t.PrimaryKey); err != nil {
				return fmt.Errorf("primary_key: %w", err)
			}
		case "uniques":
			if err := valNode.Decode(&t.Uniques); err != nil {
				return fmt.Errorf("uniques: %w", err)
			}
		case "indexes":
			if err := valNode.Decode(&t.Indexes); err != nil {
				return fmt.Errorf("indexes: %w", err)
			}
		default:
			return fmt.Errorf("line %d: unknown table field %q", keyNode.Line, key)
		}
	}

	return nil
}

// UnmarshalYAML decodes the top-level document, rejecting unknown
// top-level keys (spec §6: "Any other top-level key is rejected") and
// preserving table declaration order.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: schema document must be a mapping", node.Line)
	}

	d.Tables = make(map[string]TableDecl)
	d.Columns = make(map[string]InlineColumn)

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]
		key := keyNode.Value

		switch key {
		case "columns":
			if valNode.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: top-level columns must be a mapping", valNode.Line)
			}
			for j := 0; j+1 < len(valNode.Content); j += 2 {
				name := valNode.Content[j].Value
				var inline InlineColumn
				if err := valNode.Content[j+1].Decode(&inline); err != nil {
					return fmt.Errorf("columns.%s: %w", name, err)
				}
				d.Columns[name] = inline
			}
		case "tables":
			if valNode.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: top-level tables must be a mapping", valNode.Line)
			}
			for j := 0; j+1 < len(valNode.Content); j += 2 {
				name := valNode.Content[j].Value
				var table TableDecl
				if err := valNode.Content[j+1].Decode(&table); err != nil {
					return fmt.Errorf("tables.%s: %w", name, err)
				}
				if _, dup := d.Tables[name]; dup {
					return fmt.Errorf("line %d: duplicate table %q", valNode.Content[j].Line, name)
				}
				d.Tables[name] = table
				d.TableOrder = append(d.TableOrder, name)
			}
		default:
			return fmt.Errorf("line %d: unknown top-level key %q", keyNode.Line, key)
		}
	}

	return nil
}
