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

	"github.com/pgedge/genlogic/internal/errors"
)

// ForeignKey describes one foreign key constraint already present in the
// target database, as reported by Preflight.ForeignKeys.
type ForeignKey struct {
	ConstraintName string
	ParentTable    string
	ParentColumn   string
	ChildTable     string
	ChildColumn    string
	OnDelete       string // CASCADE, SET NULL, NO ACTION, etc.
}

// Preflight inspects the target database ahead of an apply run: which of
// the schema's tables already exist, and what foreign keys and named
// constraints are already declared. Because apply never runs DROP
// TABLE/DROP COLUMN (spec.md §1 Non-goals), it needs to know up front
// which CREATE TABLE statements are safe to skip. Applier consults only
// ExistingTables, and skips every statement (table, foreign key, index)
// of a table that already exists; ForeignKeys and HasConstraint are not
// called by Applier.
type Preflight struct {
	db *sql.DB
}

// NewPreflight creates a preflight inspector over an open connection.
func NewPreflight(db *sql.DB) *Preflight {
	return &Preflight{db: db}
}

// ExistingTables returns the subset of tables that already exist in the
// current search_path schema.
func (p *Preflight) ExistingTables(ctx context.Context, tables []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(tables))
	if len(tables) == 0 {
		return existing, nil
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ANY(current_schemas(false))
		  AND table_name = ANY($1::text[])
	`

	rows, err := p.db.QueryContext(ctx, query, tables)
	if err != nil {
		return nil, errors.NewDatabaseError("preflight_tables",
			fmt.Sprintf("failed to query existing tables: %v", err), err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.NewDatabaseError("preflight_tables",
				fmt.Sprintf("failed to scan table name: %v", err), err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("preflight_tables",
			fmt.Sprintf("error iterating tables: %v", err), err)
	}

	return existing, nil
}

// ForeignKeys returns every foreign key constraint already declared on a
// table in tables, whether that table is the parent or the child side of
// the constraint.
func (p *Preflight) ForeignKeys(ctx context.Context, tables []string) ([]ForeignKey, error) {
	if len(tables) == 0 {
		return nil, nil
	}

	tableSet := make(map[string]bool, len(tables))
	for _, t := range tables {
		tableSet[t] = true
	}

	query := `
		SELECT
			c.conname AS constraint_name,
			pc.relname AS parent_table,
			pa.attname AS parent_column,
			cc.relname AS child_table,
			ca.attname AS child_column,
			CASE c.confdeltype
				WHEN 'a' THEN 'NO ACTION'
				WHEN 'r' THEN 'RESTRICT'
				WHEN 'c' THEN 'CASCADE'
				WHEN 'n' THEN 'SET NULL'
				WHEN 'd' THEN 'SET DEFAULT'
				ELSE 'UNKNOWN'
			END AS on_delete
		FROM pg_constraint c
		JOIN pg_class pc ON pc.oid = c.confrelid
		JOIN pg_class cc ON cc.oid = c.conrelid
		JOIN pg_attribute pa ON pa.attrelid = c.confrelid AND pa.attnum = ANY(c.confkey)
		JOIN pg_attribute ca ON ca.attrelid = c.conrelid AND ca.attnum = ANY(c.conkey)
		WHERE c.contype = 'f'
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewDatabaseError("preflight_fks",
			fmt.Sprintf("failed to query foreign keys: %v", err), err)
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.ConstraintName, &fk.ParentTable, &fk.ParentColumn,
			&fk.ChildTable, &fk.ChildColumn, &fk.OnDelete); err != nil {
			return nil, errors.NewDatabaseError("preflight_fks",
				fmt.Sprintf("failed to scan foreign key: %v", err), err)
		}
		if tableSet[fk.ParentTable] || tableSet[fk.ChildTable] {
			fks = append(fks, fk)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("preflight_fks",
			fmt.Sprintf("error iterating foreign keys: %v", err), err)
	}

	return fks, nil
}

// HasConstraint reports whether a constraint with the given name is
// already present anywhere in the current search_path schema.
func (p *Preflight) HasConstraint(ctx context.Context, name string) (bool, error) {
	query := `
		SELECT COUNT(*) > 0
		FROM pg_constraint c
		JOIN pg_class t ON t.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE n.nspname = ANY(current_schemas(false))
		  AND c.conname = $1
	`

	var exists bool
	if err := p.db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, errors.NewDatabaseError("preflight_constraint",
			fmt.Sprintf("failed to check constraint %q: %v", name, err), err)
	}
	return exists, nil
}
