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
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pgedge/genlogic/internal/resolve"
	"github.com/pgedge/genlogic/internal/trigger"
)

// Harness runs a resolved schema's compiled automations against a real
// in-memory SQLite database, so property tests can observe actual
// trigger execution rather than a hand-rolled interpretation of
// TableAutomations.
type Harness struct {
	db *sql.DB
	rs *resolve.ResolvedSchema
}

// Build resolves automations for rs (as internal/trigger.Assemble would
// for a real compile), creates one SQLite table per resolved table
// (including hidden columns), installs the translated triggers, and
// returns a ready-to-use Harness. The caller owns the returned Harness's
// lifetime and must call Close.
func Build(ctx context.Context, rs *resolve.ResolvedSchema, automations map[string]*trigger.TableAutomations, hidden map[string][]trigger.HiddenColumn) (*Harness, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening simulated database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = OFF;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("disabling foreign key enforcement: %w", err)
	}

	h := &Harness{db: db, rs: rs}

	for _, tname := range rs.TableOrder {
		table, ok := rs.Table(tname)
		if !ok {
			continue
		}
		if _, err := db.ExecContext(ctx, createTableSQL(table, hidden[tname])); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating simulated table %q: %w", tname, err)
		}
	}

	for _, tname := range rs.TableOrder {
		table, ok := rs.Table(tname)
		if !ok {
			continue
		}
		ta := automations[tname]
		if ta == nil || ta.IsEmpty() {
			continue
		}
		for _, ct := range compileTableTriggers(rs, table, ta) {
			if _, err := db.ExecContext(ctx, ct.SQL); err != nil {
				db.Close()
				return nil, fmt.Errorf("installing trigger %q: %w", ct.Name, err)
			}
		}
	}

	return h, nil
}

// Close releases the in-memory database.
func (h *Harness) Close() error {
	return h.db.Close()
}

// Exec runs a DML statement against the simulated database.
func (h *Harness) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return h.db.ExecContext(ctx, query, args...)
}

// QueryRow runs a single-row query against the simulated database.
func (h *Harness) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return h.db.QueryRowContext(ctx, query, args...)
}

// ColumnValue reads a single column's current value for the row
// identified by a single-column primary key, the shape most property
// tests need.
func (h *Harness) ColumnValue(ctx context.Context, table, pkCol string, pkVal any, col string) (any, error) {
	row := h.db.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", quoteIdent(col), quoteIdent(table), quoteIdent(pkCol)), pkVal)
	var v any
	if err := row.Scan(&v); err != nil {
		return nil, err
	}
	return v, nil
}
