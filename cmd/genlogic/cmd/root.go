/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package cmd implements the genlogic CLI commands.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pgedge/genlogic/internal/version"
)

var (
	cfgFile       string
	quiet         bool
	configLoadErr error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "genlogic",
	Short: "Compile declarative schema automations into Postgres triggers",
	Long: `genlogic compiles a declarative schema file describing parent-child
cascades, child-parent aggregations, and calculated expressions into the
CREATE TABLE statements and PL/pgSQL trigger functions that implement
them, so application code never has to hand-write cascade logic.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./genlogic.yaml or /etc/pgedge/genlogic.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress the compile summary report printed by apply")

	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if len(os.Args) > 1 {
		subcmd := os.Args[1]
		if subcmd == "version" || subcmd == "help" || subcmd == "--help" || subcmd == "-h" {
			return
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configName := "genlogic.yaml"
		searchPaths := []string{".", "/etc/pgedge"}

		if exe, err := os.Executable(); err == nil {
			searchPaths = append(searchPaths, filepath.Dir(exe))
		}

		var foundConfig string
		for _, dir := range searchPaths {
			path := filepath.Join(dir, configName)
			if _, err := os.Stat(path); err == nil {
				foundConfig = path
				break
			}
		}

		if foundConfig != "" {
			viper.SetConfigFile(foundConfig)
		} else {
			viper.SetConfigName("genlogic")
			viper.SetConfigType("yaml")
			viper.AddConfigPath(".")
		}
	}

	viper.SetEnvPrefix("GENLOGIC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		configLoadErr = err
	}
}

// CheckConfigLoaded returns an error if no config file was loaded.
// Commands that need driver-level configuration (output directory,
// database connection) should call this; compile/validate can run from
// flags alone and do not.
func CheckConfigLoaded() error {
	if configLoadErr != nil {
		if _, ok := configLoadErr.(viper.ConfigFileNotFoundError); ok {
			if cfgFile != "" {
				return fmt.Errorf("config file not found: %s", cfgFile)
			}
			return fmt.Errorf("no config file found. Create genlogic.yaml or specify one with --config")
		}
		if file := viper.ConfigFileUsed(); file != "" {
			return fmt.Errorf("error reading config file %s: %w", file, configLoadErr)
		}
		return fmt.Errorf("error reading config file: %w", configLoadErr)
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("genlogic %s (built %s)\n", version.Version, version.BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
