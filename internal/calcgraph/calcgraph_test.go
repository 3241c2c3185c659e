/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package calcgraph

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/pgedge/genlogic/internal/resolve"
	"github.com/pgedge/genlogic/internal/schema"
)

func resolveYAML(t *testing.T, text string) *resolve.ResolvedSchema {
	t.Helper()
	var doc schema.Document
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		t.Fatalf("failed to parse test schema: %v", err)
	}
	rs, err := resolve.Resolve(&doc)
	if err != nil {
		t.Fatalf("failed to resolve test schema: %v", err)
	}
	return rs
}

func TestTopoOrderIndependentColumns(t *testing.T) {
	rs := resolveYAML(t, `
tables:
  orders:
    columns:
      quantity:
        base_type: integer
      unit_price:
        base_type: numeric
        size: 10
        decimal: 2
      subtotal:
        base_type: numeric
        size: 12
        decimal: 2
        calculated: "quantity * unit_price"
      tax:
        base_type: numeric
        size: 12
        decimal: 2
        calculated: "quantity * 0.05"
`)

	table, _ := rs.Table("orders")
	order, err := TopoOrder(table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "subtotal" || order[1] != "tax" {
		t.Errorf("expected declaration-order tie-break [subtotal tax], got %v", order)
	}
}

func TestTopoOrderChainedDependency(t *testing.T) {
	rs := resolveYAML(t, `
tables:
  orders:
    columns:
      quantity:
        base_type: integer
      unit_price:
        base_type: numeric
        size: 10
        decimal: 2
      subtotal:
        base_type: numeric
        size: 12
        decimal: 2
        calculated: "quantity * unit_price"
      total:
        base_type: numeric
        size: 12
        decimal: 2
        calculated: "subtotal * 1.1"
`)

	table, _ := rs.Table("orders")
	order, err := TopoOrder(table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "subtotal" || order[1] != "total" {
		t.Errorf("expected [subtotal total], got %v", order)
	}
}

func TestValidateCalculatedCycle(t *testing.T) {
	rs := resolveYAML(t, `
tables:
  orders:
    columns:
      a:
        base_type: numeric
        size: 10
        decimal: 2
        calculated: "b + 1"
      b:
        base_type: numeric
        size: 10
        decimal: 2
        calculated: "a + 1"
`)

	if err := Validate(rs); err == nil {
		t.Fatalf("expected a calculated column cycle error")
	}
}
