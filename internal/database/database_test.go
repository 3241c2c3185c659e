/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"context"
	"database/sql/driver"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/pgedge/genlogic/internal/ddl"
	"github.com/pgedge/genlogic/internal/trigger"
)

// passThrough hands query arguments to the mock unchanged; sqlmock's
// default converter rejects the []string that ExistingTables binds.
type passThrough struct{}

func (passThrough) ConvertValue(v interface{}) (driver.Value, error) { return v, nil }

func TestPreflightExistingTables(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passThrough{}))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"table_name"}).AddRow("customers")
	mock.ExpectQuery("SELECT table_name").WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)

	pf := NewPreflight(db)
	existing, err := pf.ExistingTables(context.Background(), []string{"customers", "orders"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !existing["customers"] {
		t.Errorf("expected customers to be reported as existing")
	}
	if existing["orders"] {
		t.Errorf("did not expect orders to be reported as existing")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPreflightExistingTablesEmpty(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	pf := NewPreflight(db)
	existing, err := pf.ExistingTables(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(existing) != 0 {
		t.Errorf("expected empty map, got %v", existing)
	}
}

func TestPreflightHasConstraint(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery("SELECT COUNT").WithArgs("orders_customer_fkey").WillReturnRows(rows)

	pf := NewPreflight(db)
	ok, err := pf.HasConstraint(context.Background(), "orders_customer_fkey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("expected constraint to be reported as present")
	}
}

func TestApplierApplySkipsExistingTablesAndAppliesTriggers(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passThrough{}))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()

	existingRows := sqlmock.NewRows([]string{"table_name"}).AddRow("customers")
	mock.ExpectQuery("SELECT table_name").WithArgs(sqlmock.AnyArg()).WillReturnRows(existingRows)

	mock.ExpectExec("genlogic apply").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE \"orders\"").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TRIGGER").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP FUNCTION").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE FUNCTION").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TRIGGER").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	conn := &Connector{db: db}
	applier := NewApplier(conn)

	stmts := []ddl.Statement{
		{Kind: "table", Table: "customers", SQL: `CREATE TABLE "customers" (...);`},
		{Kind: "table", Table: "orders", SQL: `CREATE TABLE "orders" (...);`},
	}
	compiled := map[string]*trigger.CompileResult{
		"orders": {
			Table: "orders",
			Triggers: []trigger.CompiledTrigger{
				{
					Table:           "orders",
					Op:              "update",
					FunctionName:    "orders_after_update_genlogic",
					TriggerName:     "orders_after_update_genlogic_trg",
					DropTriggerSQL:  `DROP TRIGGER IF EXISTS "orders_after_update_genlogic_trg" ON "orders";`,
					DropFunctionSQL: `DROP FUNCTION IF EXISTS "orders_after_update_genlogic"();`,
					FunctionSQL:     `CREATE FUNCTION "orders_after_update_genlogic"() RETURNS TRIGGER AS $$ BEGIN RETURN NEW; END; $$ LANGUAGE plpgsql;`,
					TriggerSQL:      `CREATE TRIGGER "orders_after_update_genlogic_trg" AFTER UPDATE ON "orders" FOR EACH ROW EXECUTE FUNCTION "orders_after_update_genlogic"();`,
				},
			},
		},
	}

	res, err := applier.Apply(context.Background(), stmts, compiled, "test-compile-id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.TablesSkipped) != 1 || res.TablesSkipped[0] != "customers" {
		t.Errorf("expected customers to be skipped, got %v", res.TablesSkipped)
	}
	if len(res.TablesCreated) != 1 || res.TablesCreated[0] != "orders" {
		t.Errorf("expected orders to be created, got %v", res.TablesCreated)
	}
	if res.TriggersApplied != 1 {
		t.Errorf("TriggersApplied = %d, want 1", res.TriggersApplied)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
