/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package fkgraph

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

func TestValidateNoCycle(t *testing.T) {
	rs := resolveYAML(t, `
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

	if err := Validate(rs); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateDirectCycle(t *testing.T) {
	rs := resolveYAML(t, `
tables:
  a:
    columns:
      id:
        base_type: integer
        primary_key: true
    foreign_keys:
      b_fk:
        table: b
  b:
    columns:
      id:
        base_type: integer
        primary_key: true
    foreign_keys:
      a_fk:
        table: a
`)

	if err := Validate(rs); err == nil {
		t.Fatalf("expected a foreign key cycle error")
	}
}

func TestValidateFetchBindingMismatch(t *testing.T) {
	rs := resolveYAML(t, `
tables:
  customers:
    columns:
      id:
        base_type: integer
        primary_key: true
      name:
        base_type: text
  regions:
    columns:
      id:
        base_type: integer
        primary_key: true
  orders:
    columns:
      id:
        base_type: integer
        primary_key: true
      customer_name:
        base_type: text
        automation:
          type: FETCH
          table: regions
          foreign_key: customer
          column: name
    foreign_keys:
      customer:
        table: customers
`)

	if err := Validate(rs); err == nil {
		t.Fatalf("expected automation/foreign-key mismatch error")
	}
}

func TestValidateAggregationBinding(t *testing.T) {
	rs := resolveYAML(t, `
tables:
  customers:
    columns:
      id:
        base_type: integer
        primary_key: true
      order_total:
        base_type: numeric
        size: 12
        decimal: 2
        automation:
          type: SUM
          table: orders
          foreign_key: customer
          column: total
  orders:
    columns:
      id:
        base_type: integer
        primary_key: true
      total:
        base_type: numeric
        size: 12
        decimal: 2
    foreign_keys:
      customer:
        table: customers
`)

	if err := Validate(rs); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}
