/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pgedge/genlogic/internal/calcgraph"
	"github.com/pgedge/genlogic/internal/config"
	"github.com/pgedge/genlogic/internal/trigger"
)

var validateSchemaPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a schema file without emitting DDL or triggers",
	Long: `validate runs the resolver, the foreign-key graph check, and the
calculated-column graph check over a schema file, reporting per-table
column counts and the calculated-column evaluation order, without
requiring a live database connection and without writing any output.

Example:
  genlogic validate --schema schema.yaml`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidateCmd()
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateSchemaPath, "schema", "s", "", "path to the schema YAML file")
	_ = viper.BindPFlag("schema", validateCmd.Flags().Lookup("schema"))

	rootCmd.AddCommand(validateCmd)
}

func runValidateCmd() error {
	cfg, err := config.LoadFromViper()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	if validateSchemaPath != "" {
		cfg.SchemaPath = validateSchemaPath
	}
	if cfg.SchemaPath == "" {
		return fmt.Errorf("schema path is required: pass --schema or set it in genlogic.yaml")
	}

	fmt.Printf("Validating %s...\n", cfg.SchemaPath)

	rs, err := runC1ThroughC3(cfg.SchemaPath)
	if err != nil {
		return err
	}
	fmt.Println("  Schema resolution: OK")
	fmt.Println("  Foreign key graph: OK (no cycles, automation bindings consistent)")
	fmt.Println("  Calculated column graph: OK (no cycles)")

	fmt.Println("\n  Tables:")
	for _, tname := range rs.TableOrder {
		table, ok := rs.Table(tname)
		if !ok {
			continue
		}
		order, err := calcgraph.TopoOrder(table)
		if err != nil {
			return fmt.Errorf("calc order for %q: %w", tname, err)
		}
		fmt.Printf("    %-24s columns=%-4d foreign_keys=%-3d calculated=%d\n",
			tname, len(table.Columns), len(table.ForeignKeys), len(order))
		if len(order) > 0 {
			fmt.Printf("      calculation order: %s\n", strings.Join(order, ", "))
		}
	}

	automations, err := trigger.Assemble(rs)
	if err != nil {
		return fmt.Errorf("assembling automations: %w", err)
	}
	triggerTables := 0
	for _, ta := range automations {
		if !ta.IsEmpty() {
			triggerTables++
		}
	}
	fmt.Printf("\n  Tables requiring triggers: %d\n", triggerTables)

	fmt.Println("\nValidation complete. Schema is valid.")
	return nil
}
