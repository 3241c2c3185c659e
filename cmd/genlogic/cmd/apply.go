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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pgedge/genlogic/internal/config"
	"github.com/pgedge/genlogic/internal/database"
	"github.com/pgedge/genlogic/internal/stats"
)

var (
	applySchemaPath string
	applyHost       string
	applyPort       int
	applyDatabase   string
	applyUser       string
	applyPassword   string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Compile a schema file and apply it to a live database",
	Long: `apply runs the same pipeline as compile, then connects to the
configured Postgres database and executes the compiled CREATE TABLE,
foreign key, and trigger statements inside a single transaction.

apply never drops a table or column; re-running it against a database
that already has some of the tables skips those CREATE TABLE statements
and idempotently replaces trigger functions by name.

Example:
  genlogic apply --schema schema.yaml --host localhost --database appdb --user appuser`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runApplyCmd()
	},
}

func init() {
	applyCmd.Flags().StringVarP(&applySchemaPath, "schema", "s", "", "path to the schema YAML file")
	applyCmd.Flags().StringVar(&applyHost, "host", "", "PostgreSQL host (overrides config)")
	applyCmd.Flags().IntVar(&applyPort, "port", 0, "PostgreSQL port (overrides config)")
	applyCmd.Flags().StringVar(&applyDatabase, "database", "", "database name (overrides config)")
	applyCmd.Flags().StringVar(&applyUser, "user", "", "database user (overrides config)")
	applyCmd.Flags().StringVar(&applyPassword, "password", "", "database password (overrides config)")

	_ = viper.BindPFlag("schema", applyCmd.Flags().Lookup("schema"))
	_ = viper.BindPFlag("database.host", applyCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("database.port", applyCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("database.database", applyCmd.Flags().Lookup("database"))
	_ = viper.BindPFlag("database.user", applyCmd.Flags().Lookup("user"))
	_ = viper.BindPFlag("database.password", applyCmd.Flags().Lookup("password"))

	rootCmd.AddCommand(applyCmd)
}

func runApplyCmd() error {
	if err := CheckConfigLoaded(); err != nil {
		return err
	}

	cfg, err := config.LoadFromViper()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	overrides := config.CLIOverrides{}
	if applySchemaPath != "" {
		overrides.SchemaPath = &applySchemaPath
	}
	if applyHost != "" {
		overrides.Host = &applyHost
	}
	if applyPort != 0 {
		overrides.Port = &applyPort
	}
	if applyDatabase != "" {
		overrides.Database = &applyDatabase
	}
	if applyUser != "" {
		overrides.User = &applyUser
	}
	if applyPassword != "" {
		overrides.Password = &applyPassword
	}
	cfg.ApplyOverrides(overrides)

	if err := cfg.ValidateForApply(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Printf("Compiling %s...\n", cfg.SchemaPath)
	start := time.Now()
	result, err := runCompile(cfg.SchemaPath)
	if err != nil {
		return err
	}
	result.Stats.Duration = time.Since(start)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt, cancelling...")
		cancel()
	}()

	connector := database.NewConnector(&cfg.Database)

	connectCtx, connectCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connectCancel()

	if err := connector.Connect(connectCtx); err != nil {
		return fmt.Errorf("database connection error: %w", err)
	}
	defer connector.Close()
	fmt.Println("  Database connection: OK")

	applier := database.NewApplier(connector)
	applyResult, err := applier.Apply(ctx, result.Statements, result.Triggers, result.CompileID.String())
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}

	fmt.Printf("  Tables created: %d\n", len(applyResult.TablesCreated))
	fmt.Printf("  Tables already present (skipped): %d\n", len(applyResult.TablesSkipped))
	fmt.Printf("  Statements executed: %d\n", applyResult.StatementsRun)
	fmt.Printf("  Triggers applied: %d\n", applyResult.TriggersApplied)

	if !quiet {
		stats.NewReporter().Report(result.Stats, os.Stdout)
	}

	return nil
}
