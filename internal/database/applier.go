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
	"database/sql"
	"fmt"

	"github.com/pgedge/genlogic/internal/ddl"
	"github.com/pgedge/genlogic/internal/errors"
	"github.com/pgedge/genlogic/internal/trigger"
)

// Applier executes one compiler run's emitted DDL and trigger artifacts
// against a live database inside a single transaction (spec.md §4.7 of
// SPEC_FULL.md). It never runs DROP TABLE or DROP COLUMN; the only
// "destructive" statements it issues are the DROP FUNCTION/DROP TRIGGER
// pairs that make re-applying a compile idempotent by name (spec.md
// §4.4's naming convention).
type Applier struct {
	conn *Connector
}

// NewApplier creates an applier bound to an already-connected Connector.
func NewApplier(conn *Connector) *Applier {
	return &Applier{conn: conn}
}

// Result reports what Apply actually did, for the CLI to summarize.
type Result struct {
	TablesCreated   []string
	TablesSkipped   []string
	StatementsRun   int
	TriggersApplied int
}

// Apply runs every CREATE TABLE/foreign-key/index statement for tables
// that do not already exist, then unconditionally DROP-then-CREATEs every
// compiled trigger function and trigger, all inside one
// sql.LevelSerializable transaction. compileID is embedded in a leading
// comment so the run can be correlated against internal/trigger's
// per-function compile-ID comment.
func (a *Applier) Apply(ctx context.Context, stmts []ddl.Statement, compiled map[string]*trigger.CompileResult, compileID string) (*Result, error) {
	tx, err := a.conn.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	pf := NewPreflight(a.conn.DB())
	existing, err := pf.ExistingTables(ctx, tableNames(stmts))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("-- genlogic apply %s", compileID)); err != nil {
		return nil, errors.NewDatabaseError("apply", fmt.Sprintf("failed to tag transaction: %v", err), err)
	}

	for _, stmt := range stmts {
		if existing[stmt.Table] {
			if stmt.Kind == "table" {
				res.TablesSkipped = append(res.TablesSkipped, stmt.Table)
			}
			continue
		}
		if err := execStatement(ctx, tx, stmt.SQL); err != nil {
			return nil, errors.NewDatabaseError("apply",
				fmt.Sprintf("statement for table %q failed: %v", stmt.Table, err), err)
		}
		res.StatementsRun++
		if stmt.Kind == "table" {
			res.TablesCreated = append(res.TablesCreated, stmt.Table)
		}
	}

	for _, result := range compiled {
		for _, ct := range result.Triggers {
			if err := execStatement(ctx, tx, ct.DropTriggerSQL); err != nil {
				return nil, errors.NewDatabaseError("apply",
					fmt.Sprintf("dropping trigger %q: %v", ct.TriggerName, err), err)
			}
			if err := execStatement(ctx, tx, ct.DropFunctionSQL); err != nil {
				return nil, errors.NewDatabaseError("apply",
					fmt.Sprintf("dropping function %q: %v", ct.FunctionName, err), err)
			}
			if err := execStatement(ctx, tx, ct.FunctionSQL); err != nil {
				return nil, errors.NewDatabaseError("apply",
					fmt.Sprintf("creating function %q: %v", ct.FunctionName, err), err)
			}
			if err := execStatement(ctx, tx, ct.TriggerSQL); err != nil {
				return nil, errors.NewDatabaseError("apply",
					fmt.Sprintf("creating trigger %q: %v", ct.TriggerName, err), err)
			}
			res.TriggersApplied++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewDatabaseError("apply", fmt.Sprintf("commit failed: %v", err), err)
	}

	return res, nil
}

func execStatement(ctx context.Context, tx *sql.Tx, sqlText string) error {
	if sqlText == "" {
		return nil
	}
	_, err := tx.ExecContext(ctx, sqlText)
	return err
}

func tableNames(stmts []ddl.Statement) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range stmts {
		if s.Kind != "table" {
			continue
		}
		if !seen[s.Table] {
			seen[s.Table] = true
			names = append(names, s.Table)
		}
	}
	return names
}
