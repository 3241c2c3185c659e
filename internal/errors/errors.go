/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package errors defines the typed compile error kinds produced by the
// schema resolver and validators.
package errors

import (
	"fmt"
	"strings"
)

// Path identifies the schema location an error occurred at, e.g.
// "tables.orders.columns.customer_id.automation".
type Path string

// UnknownReferenceError is returned when a reusable-column or foreign-key
// reference names something that does not exist.
type UnknownReferenceError struct {
	Path Path
	Name string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("%s: unknown reference %q", e.Path, e.Name)
}

// NewUnknownReference creates an UnknownReferenceError.
func NewUnknownReference(path Path, name string) *UnknownReferenceError {
	return &UnknownReferenceError{Path: path, Name: name}
}

// InvalidIdentifierError is returned when a name fails the identifier
// regex (^[A-Za-z_][A-Za-z0-9_]*$).
type InvalidIdentifierError struct {
	Path Path
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("%s: invalid identifier %q", e.Path, e.Name)
}

// NewInvalidIdentifier creates an InvalidIdentifierError.
func NewInvalidIdentifier(path Path, name string) *InvalidIdentifierError {
	return &InvalidIdentifierError{Path: path, Name: name}
}

// TypeSizeViolationError is returned when a column's size/decimal fields
// violate the per-type rules in spec §6.
type TypeSizeViolationError struct {
	Path Path
	Rule string
}

func (e *TypeSizeViolationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Rule)
}

// NewTypeSizeViolation creates a TypeSizeViolationError.
func NewTypeSizeViolation(path Path, rule string) *TypeSizeViolationError {
	return &TypeSizeViolationError{Path: path, Rule: rule}
}

// UnknownTableError is returned when a reference names a table that is not
// declared in the schema.
type UnknownTableError struct {
	Path  Path
	Table string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("%s: unknown table %q", e.Path, e.Table)
}

// NewUnknownTable creates an UnknownTableError.
func NewUnknownTable(path Path, table string) *UnknownTableError {
	return &UnknownTableError{Path: path, Table: table}
}

// UnknownForeignKeyError is returned when an automation references a
// foreign key name that is not declared on the table it names.
type UnknownForeignKeyError struct {
	Path  Path
	Table string
	FK    string
}

func (e *UnknownForeignKeyError) Error() string {
	return fmt.Sprintf("%s: table %q has no foreign key %q", e.Path, e.Table, e.FK)
}

// NewUnknownForeignKey creates an UnknownForeignKeyError.
func NewUnknownForeignKey(path Path, table, fk string) *UnknownForeignKeyError {
	return &UnknownForeignKeyError{Path: path, Table: table, FK: fk}
}

// AutomationFKMismatchError is returned when an automation's (table,
// foreign_key) pair does not connect the declaring table to the source
// table on the side the automation kind requires.
type AutomationFKMismatchError struct {
	Path   Path
	Column string
	Detail string
}

func (e *AutomationFKMismatchError) Error() string {
	return fmt.Sprintf("%s: automation on column %q: %s", e.Path, e.Column, e.Detail)
}

// NewAutomationFKMismatch creates an AutomationFKMismatchError.
func NewAutomationFKMismatch(path Path, column, detail string) *AutomationFKMismatchError {
	return &AutomationFKMismatchError{Path: path, Column: column, Detail: detail}
}

// ForeignKeyCycleError is a fatal C2 finding: the FK graph has a cycle.
type ForeignKeyCycleError struct {
	Path Path
	// Cycle lists the tables along the cycle, repeating the starting
	// table at the end (e.g. [A, B, C, A]).
	Cycle []string
}

func (e *ForeignKeyCycleError) Error() string {
	return fmt.Sprintf("%s: foreign key cycle: %s", e.Path, strings.Join(e.Cycle, " -> "))
}

// NewForeignKeyCycle creates a ForeignKeyCycleError.
func NewForeignKeyCycle(path Path, cycle []string) *ForeignKeyCycleError {
	return &ForeignKeyCycleError{Path: path, Cycle: cycle}
}

// CalculatedColumnCycleError is a fatal C3 finding: a table's calculated
// columns form a cycle.
type CalculatedColumnCycleError struct {
	Path    Path
	Table   string
	Columns []string
}

func (e *CalculatedColumnCycleError) Error() string {
	return fmt.Sprintf("%s: table %q: calculated column cycle: %s",
		e.Path, e.Table, strings.Join(e.Columns, " -> "))
}

// NewCalculatedColumnCycle creates a CalculatedColumnCycleError.
func NewCalculatedColumnCycle(path Path, table string, cols []string) *CalculatedColumnCycleError {
	return &CalculatedColumnCycleError{Path: path, Table: table, Columns: cols}
}

// DuplicateColumnError is returned when a table declares the same column
// name twice.
type DuplicateColumnError struct {
	Path   Path
	Table  string
	Column string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("%s: table %q: duplicate column %q", e.Path, e.Table, e.Column)
}

// NewDuplicateColumn creates a DuplicateColumnError.
func NewDuplicateColumn(path Path, table, column string) *DuplicateColumnError {
	return &DuplicateColumnError{Path: path, Table: table, Column: column}
}

// InvalidForeignKeyError is returned for a structurally malformed foreign
// key declaration: an unrecognized on_delete action, or a parent table
// with no usable primary key to mirror.
type InvalidForeignKeyError struct {
	Path   Path
	Table  string
	FK     string
	Detail string
}

func (e *InvalidForeignKeyError) Error() string {
	return fmt.Sprintf("%s: table %q foreign key %q: %s", e.Path, e.Table, e.FK, e.Detail)
}

// NewInvalidForeignKey creates an InvalidForeignKeyError.
func NewInvalidForeignKey(path Path, table, fk, detail string) *InvalidForeignKeyError {
	return &InvalidForeignKeyError{Path: path, Table: table, FK: fk, Detail: detail}
}

// DuplicateTableError is returned when the schema declares the same table
// name twice.
type DuplicateTableError struct {
	Path  Path
	Table string
}

func (e *DuplicateTableError) Error() string {
	return fmt.Sprintf("%s: duplicate table %q", e.Path, e.Table)
}

// NewDuplicateTable creates a DuplicateTableError.
func NewDuplicateTable(path Path, table string) *DuplicateTableError {
	return &DuplicateTableError{Path: path, Table: table}
}

// List aggregates every error found during a validation pass so callers
// can report them all at once (spec §7: "errors are aggregated where
// possible").
type List struct {
	Errors []error
}

// Add appends err to the list if it is non-nil.
func (l *List) Add(err error) {
	if err != nil {
		l.Errors = append(l.Errors, err)
	}
}

// Empty reports whether the list has no errors.
func (l *List) Empty() bool {
	return len(l.Errors) == 0
}

// ErrOrNil returns l as an error if it has any entries, or nil otherwise.
func (l *List) ErrOrNil() error {
	if l.Empty() {
		return nil
	}
	return l
}

func (l *List) Error() string {
	msgs := make([]string, len(l.Errors))
	for i, e := range l.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d error(s):\n  %s", len(l.Errors), strings.Join(msgs, "\n  "))
}

// ConfigError represents configuration-related errors in the driver
// commands (schema file location, connection settings, etc).
type ConfigError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config error (%s): %s", e.Path, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new ConfigError.
func NewConfigError(path, message string, cause error) *ConfigError {
	return &ConfigError{Path: path, Message: message, Cause: cause}
}

// DatabaseError represents errors from the apply-time database driver.
type DatabaseError struct {
	Operation string
	Message   string
	Cause     error
}

func (e *DatabaseError) Error() string {
	var sb strings.Builder
	sb.WriteString("database error")
	if e.Operation != "" {
		sb.WriteString(" during ")
		sb.WriteString(e.Operation)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// NewDatabaseError creates a new DatabaseError.
func NewDatabaseError(operation, message string, cause error) *DatabaseError {
	return &DatabaseError{Operation: operation, Message: message, Cause: cause}
}
