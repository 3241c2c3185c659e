/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package ddl

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/pgedge/genlogic/internal/resolve"
	"github.com/pgedge/genlogic/internal/schema"
	"github.com/pgedge/genlogic/internal/trigger"
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

func findStatement(stmts []Statement, kind, table, contains string) *Statement {
	for i := range stmts {
		if stmts[i].Kind == kind && stmts[i].Table == table && strings.Contains(stmts[i].SQL, contains) {
			return &stmts[i]
		}
	}
	return nil
}

func TestGenerateEmitsColumnsInDeclarationOrder(t *testing.T) {
	rs := resolveYAML(t, `
tables:
  customers:
    columns:
      id:
        base_type: integer
        primary_key: true
        sequence: true
      name:
        base_type: varchar
        size: 100
        required: true
`)

	stmts, err := Generate(rs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stmt := findStatement(stmts, "table", "customers", "")
	if stmt == nil {
		t.Fatalf("no CREATE TABLE statement for customers")
	}
	idIdx := strings.Index(stmt.SQL, `"id"`)
	nameIdx := strings.Index(stmt.SQL, `"name"`)
	if idIdx == -1 || nameIdx == -1 || idIdx > nameIdx {
		t.Errorf("expected id before name, got:\n%s", stmt.SQL)
	}
	if !strings.Contains(stmt.SQL, "GENERATED ALWAYS AS IDENTITY") {
		t.Errorf("expected identity clause for sequence column:\n%s", stmt.SQL)
	}
	if !strings.Contains(stmt.SQL, `PRIMARY KEY ("id")`) {
		t.Errorf("expected primary key clause:\n%s", stmt.SQL)
	}
	if !strings.Contains(stmt.SQL, `"name" VARCHAR(100) NOT NULL`) {
		t.Errorf("expected varchar(100) not null column:\n%s", stmt.SQL)
	}
}

func TestGenerateEmitsForeignKeyAndIndexAfterAllTables(t *testing.T) {
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
      total:
        base_type: numeric
        size: 10
        decimal: 2
    foreign_keys:
      customer:
        table: customers
`)

	stmts, err := Generate(rs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var lastTableIdx, fkIdx, idxIdx int
	for i, s := range stmts {
		if s.Kind == "table" {
			lastTableIdx = i
		}
		if s.Kind == "foreign_key" {
			fkIdx = i
		}
		if s.Kind == "index" && s.Table == "orders" {
			idxIdx = i
		}
	}
	if fkIdx <= lastTableIdx {
		t.Errorf("expected foreign key statement after every table statement")
	}
	if idxIdx <= lastTableIdx {
		t.Errorf("expected FK index statement after every table statement")
	}

	fk := findStatement(stmts, "foreign_key", "orders", "")
	if fk == nil || !strings.Contains(fk.SQL, `FOREIGN KEY ("customer") REFERENCES "customers" ("id") ON DELETE NO ACTION`) {
		t.Errorf("unexpected foreign key SQL: %+v", fk)
	}
}

func TestGenerateAppliesAggregationDefaultPolicy(t *testing.T) {
	rs := resolveYAML(t, `
tables:
  customers:
    columns:
      id:
        base_type: integer
        primary_key: true
      lifetime_total:
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
        size: 10
        decimal: 2
    foreign_keys:
      customer:
        table: customers
`)

	stmts, err := Generate(rs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stmt := findStatement(stmts, "table", "customers", "")
	if stmt == nil || !strings.Contains(stmt.SQL, `"lifetime_total" NUMERIC(12,2) DEFAULT 0`) {
		t.Errorf("expected aggregation column to default to 0:\n%+v", stmt)
	}
}

func TestGenerateAppendsHiddenColumns(t *testing.T) {
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
      amount:
        base_type: numeric
        size: 10
        decimal: 2
      average:
        base_type: numeric
        size: 12
        decimal: 2
        automation:
          type: AVG
          table: line_items
          foreign_key: order
          column: amount
  line_items:
    columns:
      id:
        base_type: integer
        primary_key: true
      amount:
        base_type: numeric
        size: 10
        decimal: 2
    foreign_keys:
      order:
        table: orders
`)

	hidden := trigger.ComputeHiddenColumns(rs)
	stmts, err := Generate(rs, hidden)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stmt := findStatement(stmts, "table", "orders", "")
	if stmt == nil {
		t.Fatalf("missing orders table statement")
	}
	if !strings.Contains(stmt.SQL, `"average__sum"`) || !strings.Contains(stmt.SQL, `"average__count"`) {
		t.Errorf("expected hidden AVG companion columns, got:\n%s", stmt.SQL)
	}
}
