/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package simulate

import (
	"context"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/pgedge/genlogic/internal/resolve"
	"github.com/pgedge/genlogic/internal/schema"
	"github.com/pgedge/genlogic/internal/trigger"
)

func buildHarness(t *testing.T, text string) (*Harness, *resolve.ResolvedSchema) {
	t.Helper()

	var doc schema.Document
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		t.Fatalf("failed to parse test schema: %v", err)
	}
	rs, err := resolve.Resolve(&doc)
	if err != nil {
		t.Fatalf("failed to resolve test schema: %v", err)
	}

	automations, err := trigger.Assemble(rs)
	if err != nil {
		t.Fatalf("failed to assemble automations: %v", err)
	}
	hidden := trigger.ComputeHiddenColumns(rs)

	h, err := Build(context.Background(), rs, automations, hidden)
	if err != nil {
		t.Fatalf("failed to build simulation harness: %v", err)
	}
	t.Cleanup(func() { h.Close() })

	return h, rs
}

const sumSchema = `
tables:
  customers:
    columns:
      id:
        base_type: integer
        primary_key: true
      lifetime_total:
        base_type: numeric
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
      customer:
        base_type: integer
    foreign_keys:
      customer:
        table: customers
`

// TestIncrementalMatchesRecomputed exercises spec.md §8's "Incremental =
// recomputed" property for SUM: after a sequence of inserts, updates,
// reparents, and deletes, the incrementally-maintained parent total must
// equal SUM(child.total) computed directly over the surviving rows.
func TestIncrementalMatchesRecomputed(t *testing.T) {
	ctx := context.Background()
	h, _ := buildHarness(t, sumSchema)

	mustExec := func(query string, args ...any) {
		t.Helper()
		if _, err := h.Exec(ctx, query, args...); err != nil {
			t.Fatalf("exec %q: %v", query, err)
		}
	}

	mustExec(`INSERT INTO "customers" ("id") VALUES (1);`)
	mustExec(`INSERT INTO "customers" ("id") VALUES (2);`)

	mustExec(`INSERT INTO "orders" ("id","total","customer") VALUES (10, 100, 1);`)
	mustExec(`INSERT INTO "orders" ("id","total","customer") VALUES (11, 50, 1);`)
	mustExec(`INSERT INTO "orders" ("id","total","customer") VALUES (12, 25, 2);`)

	mustExec(`UPDATE "orders" SET "total" = 200 WHERE "id" = 10;`)
	mustExec(`UPDATE "orders" SET "customer" = 2 WHERE "id" = 11;`)
	mustExec(`DELETE FROM "orders" WHERE "id" = 12;`)

	for _, cust := range []int{1, 2} {
		incremental, err := h.ColumnValue(ctx, "customers", "id", cust, "lifetime_total")
		if err != nil {
			t.Fatalf("reading incremental total for customer %d: %v", cust, err)
		}

		row := h.QueryRow(ctx, `SELECT COALESCE(SUM("total"),0) FROM "orders" WHERE "customer" = ?`, cust)
		var recomputed float64
		if err := row.Scan(&recomputed); err != nil {
			t.Fatalf("recomputing total for customer %d: %v", cust, err)
		}

		got, ok := incremental.(float64)
		if !ok {
			t.Fatalf("expected numeric incremental total for customer %d, got %T", cust, incremental)
		}
		if got != recomputed {
			t.Errorf("customer %d: incremental total %v != recomputed total %v", cust, got, recomputed)
		}
	}
}

const maxSchema = `
tables:
  categories:
    columns:
      id:
        base_type: integer
        primary_key: true
      highest_price:
        base_type: numeric
        automation:
          type: MAX
          table: products
          foreign_key: category
          column: price
  products:
    columns:
      id:
        base_type: integer
        primary_key: true
      price:
        base_type: numeric
      category:
        base_type: integer
    foreign_keys:
      category:
        table: categories
`

// TestMaxRecomputesOnExtremumLoss exercises the MAX fallback (spec.md
// §4.4): deleting the row holding the current maximum must cause the
// parent's stored maximum to fall back to the next-highest surviving
// value, not silently keep the stale extremum.
func TestMaxRecomputesOnExtremumLoss(t *testing.T) {
	ctx := context.Background()
	h, _ := buildHarness(t, maxSchema)

	mustExec := func(query string, args ...any) {
		t.Helper()
		if _, err := h.Exec(ctx, query, args...); err != nil {
			t.Fatalf("exec %q: %v", query, err)
		}
	}

	mustExec(`INSERT INTO "categories" ("id") VALUES (1);`)
	mustExec(`INSERT INTO "products" ("id","price","category") VALUES (1, 10, 1);`)
	mustExec(`INSERT INTO "products" ("id","price","category") VALUES (2, 30, 1);`)
	mustExec(`INSERT INTO "products" ("id","price","category") VALUES (3, 20, 1);`)

	max, err := h.ColumnValue(ctx, "categories", "id", 1, "highest_price")
	if err != nil {
		t.Fatalf("reading highest_price: %v", err)
	}
	if max.(float64) != 30 {
		t.Fatalf("expected highest_price 30 after inserts, got %v", max)
	}

	mustExec(`DELETE FROM "products" WHERE "id" = 2;`)

	max, err = h.ColumnValue(ctx, "categories", "id", 1, "highest_price")
	if err != nil {
		t.Fatalf("reading highest_price after delete: %v", err)
	}
	if max.(float64) != 20 {
		t.Fatalf("expected highest_price to fall back to 20 after removing the max row, got %v", max)
	}
}

// TestTriggerTerminationDoesNotCascadeForever exercises spec.md §8's
// "Trigger termination (simulated)" property: a chain of pushes and pulls
// across three tables settles after the initiating write completes,
// rather than re-triggering itself indefinitely (every step here is
// column-to-column, never table-to-itself).
func TestTriggerTerminationDoesNotCascadeForever(t *testing.T) {
	ctx := context.Background()
	h, _ := buildHarness(t, `
tables:
  regions:
    columns:
      id:
        base_type: integer
        primary_key: true
      name:
        base_type: text
  customers:
    columns:
      id:
        base_type: integer
        primary_key: true
      region:
        base_type: integer
      region_name:
        base_type: text
        automation:
          type: FETCH_UPDATES
          table: regions
          foreign_key: region
          column: name
    foreign_keys:
      region:
        table: regions
  orders:
    columns:
      id:
        base_type: integer
        primary_key: true
      customer:
        base_type: integer
      customer_region_name:
        base_type: text
        automation:
          type: FETCH_UPDATES
          table: customers
          foreign_key: customer
          column: region_name
    foreign_keys:
      customer:
        table: customers
`)

	mustExec := func(query string, args ...any) {
		t.Helper()
		if _, err := h.Exec(ctx, query, args...); err != nil {
			t.Fatalf("exec %q: %v", query, err)
		}
	}

	mustExec(`INSERT INTO "regions" ("id","name") VALUES (1, 'west');`)
	mustExec(`INSERT INTO "customers" ("id","region") VALUES (1, 1);`)
	mustExec(`INSERT INTO "orders" ("id","customer") VALUES (1, 1);`)

	mustExec(`UPDATE "regions" SET "name" = 'east' WHERE "id" = 1;`)

	got, err := h.ColumnValue(ctx, "orders", "id", 1, "customer_region_name")
	if err != nil {
		t.Fatalf("reading cascaded region name: %v", err)
	}
	if got != "east" {
		t.Fatalf("expected cascade to settle at 'east', got %v", got)
	}
}
