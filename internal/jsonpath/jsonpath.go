/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package jsonpath validates and canonicalizes the literal JSON/JSONB
// DEFAULT values a schema can declare on a column (spec.md §4.2, §4.6).
//
// The compiler never evaluates JSON at row-processing time -- that
// happens inside the database -- so this package's only job is to catch
// malformed default literals at compile time and to render them in a
// stable form for CREATE TABLE text, the way a YAML-to-JSON default
// ought to look regardless of how the author spaced or ordered it.
package jsonpath

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// sortedOptions are oj's default write options with object members sorted
// by key, so the source key order never changes the rendered literal.
var sortedOptions = func() oj.Options {
	o := oj.DefaultOptions
	o.Sort = true
	return o
}()

// CanonicalizeDefault parses raw as JSON and re-serializes it in a
// stable, minimal form suitable for embedding in a DEFAULT clause. An
// error here corresponds to spec.md §7's TypeSizeViolation family: a
// malformed literal for a json/jsonb column is a compile-time failure,
// not something deferred to the database.
func CanonicalizeDefault(raw string) (string, error) {
	data, err := oj.ParseString(raw)
	if err != nil {
		return "", fmt.Errorf("invalid JSON default literal: %w", err)
	}

	out, err := oj.Marshal(data, &sortedOptions)
	if err != nil {
		return "", fmt.Errorf("failed to re-serialize JSON default literal: %w", err)
	}

	return string(out), nil
}

// CanonicalizeValue serializes an already-decoded Go value (as produced
// by decoding a YAML default literal into `any`) into the same stable
// JSON form CanonicalizeDefault produces, without a parse round-trip.
func CanonicalizeValue(v any) (string, error) {
	out, err := oj.Marshal(v, &sortedOptions)
	if err != nil {
		return "", fmt.Errorf("failed to serialize JSON default literal: %w", err)
	}
	return string(out), nil
}

// ValidatePathExpression reports whether pathExpr is a syntactically
// valid JSON path, used when a calculated expression on a json/jsonb
// column embeds a path lookup (e.g. inside a cast) that the author wants
// checked ahead of DDL application rather than at trigger-execution
// time.
func ValidatePathExpression(pathExpr string) error {
	if _, err := jp.ParseString(pathExpr); err != nil {
		return fmt.Errorf("invalid JSON path %q: %w", pathExpr, err)
	}
	return nil
}
