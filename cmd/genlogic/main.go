/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Command genlogic is the reference driver for the schema-to-trigger
// compiler: compile, validate, and apply subcommands over a declarative
// schema file.
package main

import (
	"os"

	"github.com/pgedge/genlogic/cmd/genlogic/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
