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
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pgedge/genlogic/internal/config"
	"github.com/pgedge/genlogic/internal/stats"
)

var (
	compileSchemaPath string
	compileOutputDir  string
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a schema file into DDL and trigger SQL",
	Long: `compile runs the full resolver/FK-graph/calc-graph/trigger pipeline
over a schema file and writes two SQL files to the output directory:
schema.sql (CREATE TABLE, foreign keys, indexes) and triggers.sql (the
compiled trigger functions and CREATE TRIGGER statements).

Example:
  genlogic compile --schema schema.yaml --output ./build`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompileCmd()
	},
}

func init() {
	compileCmd.Flags().StringVarP(&compileSchemaPath, "schema", "s", "", "path to the schema YAML file")
	compileCmd.Flags().StringVarP(&compileOutputDir, "output", "o", "", "directory to write schema.sql/triggers.sql to")
	_ = viper.BindPFlag("schema", compileCmd.Flags().Lookup("schema"))
	_ = viper.BindPFlag("output_dir", compileCmd.Flags().Lookup("output"))

	rootCmd.AddCommand(compileCmd)
}

func loadConfigForCompile() (*config.Config, error) {
	cfg, err := config.LoadFromViper()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	var overrides config.CLIOverrides
	if compileSchemaPath != "" {
		overrides.SchemaPath = &compileSchemaPath
	}
	if compileOutputDir != "" {
		overrides.OutputDir = &compileOutputDir
	}
	cfg.ApplyOverrides(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation error: %w", err)
	}

	return cfg, nil
}

func runCompileCmd() error {
	cfg, err := loadConfigForCompile()
	if err != nil {
		return err
	}

	fmt.Printf("Compiling %s...\n", cfg.SchemaPath)

	result, err := runCompile(cfg.SchemaPath)
	if err != nil {
		return err
	}

	outputDir := cfg.ResolveOutputDir()
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %q: %w", outputDir, err)
	}

	schemaPath := filepath.Join(outputDir, "schema.sql")
	if err := writeSchemaSQL(schemaPath, result); err != nil {
		return err
	}
	fmt.Printf("  wrote %s\n", schemaPath)

	triggersPath := filepath.Join(outputDir, "triggers.sql")
	if err := writeTriggersSQL(triggersPath, result); err != nil {
		return err
	}
	fmt.Printf("  wrote %s\n", triggersPath)

	stats.NewReporter().Report(result.Stats, os.Stdout)

	return nil
}

func writeSchemaSQL(path string, result *compileResult) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "-- genlogic compile %s\n\n", result.CompileID)
	for _, stmt := range result.Statements {
		sb.WriteString(stmt.SQL)
		sb.WriteString("\n\n")
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

func writeTriggersSQL(path string, result *compileResult) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "-- genlogic compile %s\n\n", result.CompileID)
	for _, tname := range result.Resolved.TableOrder {
		r, ok := result.Triggers[tname]
		if !ok {
			continue
		}
		for _, ct := range r.Triggers {
			sb.WriteString(ct.DropTriggerSQL)
			sb.WriteString("\n")
			sb.WriteString(ct.DropFunctionSQL)
			sb.WriteString("\n")
			sb.WriteString(ct.FunctionSQL)
			sb.WriteString("\n")
			sb.WriteString(ct.TriggerSQL)
			sb.WriteString("\n\n")
		}
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}
