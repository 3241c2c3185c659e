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
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/pgedge/genlogic/internal/schema"
)

func mustParse(t *testing.T, text string) *schema.Document {
	t.Helper()
	var doc schema.Document
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		t.Fatalf("failed to parse test schema: %v", err)
	}
	return &doc
}

func TestResolveInlineColumn(t *testing.T) {
	doc := mustParse(t, `
tables:
  orders:
    columns:
      id:
        base_type: integer
        primary_key: true
      total:
        base_type: numeric
        size: 10
        decimal: 2
`)

	rs, err := Resolve(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	table, ok := rs.Table("orders")
	if !ok {
		t.Fatalf("expected table orders")
	}
	col, ok := table.Column("total")
	if !ok {
		t.Fatalf("expected column total")
	}
	if col.BaseType != schema.TypeNumeric || col.Size != 10 || col.Decimal != 2 {
		t.Errorf("unexpected column: %+v", col)
	}
	if table.PrimaryKey[0] != "id" {
		t.Errorf("expected derived primary key [id], got %v", table.PrimaryKey)
	}
}

func TestResolveReusableColumn(t *testing.T) {
	doc := mustParse(t, `
columns:
  name:
    base_type: varchar
    size: 100
    required: true
tables:
  customers:
    columns:
      name:
      display_name: name
`)

	rs, err := Resolve(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	table, _ := rs.Table("customers")
	for _, colName := range []string{"name", "display_name"} {
		col, ok := table.Column(colName)
		if !ok {
			t.Fatalf("expected column %s", colName)
		}
		if col.BaseType != schema.TypeVarchar || col.Size != 100 || !col.Required {
			t.Errorf("column %s not inherited correctly: %+v", colName, col)
		}
	}
}

func TestResolveOverrideColumn(t *testing.T) {
	doc := mustParse(t, `
columns:
  name:
    base_type: varchar
    size: 100
    required: true
tables:
  customers:
    columns:
      name:
        $ref: name
        required: false
        size: 200
`)

	rs, err := Resolve(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	table, _ := rs.Table("customers")
	col, _ := table.Column("name")
	if col.Required {
		t.Errorf("expected required override to false, got true")
	}
	if col.Size != 200 {
		t.Errorf("expected size override to 200, got %d", col.Size)
	}
}

func TestResolveUnknownReference(t *testing.T) {
	doc := mustParse(t, `
tables:
  customers:
    columns:
      name: does_not_exist
`)

	if _, err := Resolve(doc); err == nil {
		t.Fatalf("expected error for unknown reusable column reference")
	}
}

func TestResolveSizeRuleViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "varchar missing size",
			yaml: `
tables:
  t:
    columns:
      c:
        base_type: varchar
`,
		},
		{
			name: "integer with size",
			yaml: `
tables:
  t:
    columns:
      c:
        base_type: integer
        size: 10
`,
		},
		{
			name: "numeric decimal without size",
			yaml: `
tables:
  t:
    columns:
      c:
        base_type: numeric
        decimal: 2
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.yaml)
			if _, err := Resolve(doc); err == nil {
				t.Fatalf("expected a size/decimal rule violation")
			}
		})
	}
}

func TestResolveImplicitForeignKey(t *testing.T) {
	doc := mustParse(t, `
tables:
  customers:
    columns:
      id:
        base_type: integer
        primary_key: true
  orders:
    columns:
      id:
        base_type: integer
        primary_key: true
    foreign_keys:
      customer:
        table: customers
`)

	rs, err := Resolve(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	orders, _ := rs.Table("orders")
	col, ok := orders.Column("customer")
	if !ok {
		t.Fatalf("expected implicit foreign key column 'customer'")
	}
	if col.BaseType != schema.TypeInteger || !col.Implicit {
		t.Errorf("unexpected implicit FK column: %+v", col)
	}
	if col.Role.Kind != RoleForeignKey || col.Role.SourceTable != "customers" {
		t.Errorf("unexpected FK role: %+v", col.Role)
	}
	if len(orders.ForeignKeys) != 1 || orders.ForeignKeys[0].OnDelete != "restrict" {
		t.Errorf("expected default restrict on_delete, got %+v", orders.ForeignKeys)
	}
}

func TestResolveForeignKeyUnknownParent(t *testing.T) {
	doc := mustParse(t, `
tables:
  orders:
    columns:
      id:
        base_type: integer
        primary_key: true
    foreign_keys:
      customer:
        table: customers
`)

	if _, err := Resolve(doc); err == nil {
		t.Fatalf("expected error for foreign key to unknown table")
	}
}

func TestResolveCalculatedColumnReferences(t *testing.T) {
	doc := mustParse(t, `
tables:
  orders:
    columns:
      quantity:
        base_type: integer
      unit_price:
        base_type: numeric
        size: 10
        decimal: 2
      total:
        base_type: numeric
        size: 12
        decimal: 2
        calculated: "quantity * unit_price"
`)

	rs, err := Resolve(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	orders, _ := rs.Table("orders")
	total, _ := orders.Column("total")
	if total.Role.Kind != RoleCalculated {
		t.Fatalf("expected RoleCalculated, got %v", total.Role.Kind)
	}
	want := []string{"quantity", "unit_price"}
	if len(total.Role.ReferencedColumns) != 2 ||
		total.Role.ReferencedColumns[0] != want[0] || total.Role.ReferencedColumns[1] != want[1] {
		t.Errorf("unexpected referenced columns: %v", total.Role.ReferencedColumns)
	}
}

func TestResolveJSONDefaultCanonicalized(t *testing.T) {
	doc := mustParse(t, `
tables:
  settings:
    columns:
      options:
        base_type: jsonb
        default: {"b": 2, "a": 1}
`)

	rs, err := Resolve(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	settings, _ := rs.Table("settings")
	col, _ := settings.Column("options")
	if !col.HasDefault {
		t.Fatalf("expected a default literal")
	}
	if col.Default != `{"a":1,"b":2}` {
		t.Errorf("unexpected canonicalized default: %q", col.Default)
	}
}

func TestResolveInvalidIdentifier(t *testing.T) {
	doc := mustParse(t, `
tables:
  "bad-name":
    columns:
      id:
        base_type: integer
`)

	if _, err := Resolve(doc); err == nil {
		t.Fatalf("expected invalid identifier error for table name")
	}
}
