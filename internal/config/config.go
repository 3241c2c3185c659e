/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package config handles configuration loading and validation for the
// genlogic driver commands: where the schema file lives, where compiled
// artifacts are written, and how to reach the target Postgres instance
// for the apply command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pgedge/genlogic/internal/errors"
)

// Config represents the complete driver configuration.
type Config struct {
	SchemaPath string         `yaml:"schema" mapstructure:"schema"`
	OutputDir  string         `yaml:"output_dir" mapstructure:"output_dir"`
	Database   DatabaseConfig `yaml:"database" mapstructure:"database"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the apply
// command.
type DatabaseConfig struct {
	Host        string `yaml:"host" mapstructure:"host"`
	Port        int    `yaml:"port" mapstructure:"port"`
	Database    string `yaml:"database" mapstructure:"database"`
	User        string `yaml:"user" mapstructure:"user"`
	Password    string `yaml:"password,omitempty" mapstructure:"password"`
	SSLMode     string `yaml:"sslmode" mapstructure:"sslmode"`
	SSLCert     string `yaml:"sslcert,omitempty" mapstructure:"sslcert"`
	SSLKey      string `yaml:"sslkey,omitempty" mapstructure:"sslkey"`
	SSLRootCert string `yaml:"sslrootcert,omitempty" mapstructure:"sslrootcert"`
}

// CLIOverrides represents command-line flag overrides layered onto a
// loaded Config, applied after file/env loading the way the teacher's
// run command layers --host/--port/etc over its own config.
type CLIOverrides struct {
	SchemaPath *string
	OutputDir  *string
	Host       *string
	Port       *int
	Database   *string
	User       *string
	Password   *string
}

// ConnectionString returns a PostgreSQL connection string, falling back
// to libpq environment variables for any value left unset.
func (d *DatabaseConfig) ConnectionString() string {
	host := d.Host
	if host == "" {
		host = os.Getenv("PGHOST")
	}
	if host == "" {
		host = "localhost"
	}

	port := d.Port
	if port == 0 {
		if envPort := os.Getenv("PGPORT"); envPort != "" {
			_, _ = fmt.Sscanf(envPort, "%d", &port)
		}
	}
	if port == 0 {
		port = 5432
	}

	database := d.Database
	if database == "" {
		database = os.Getenv("PGDATABASE")
	}

	user := d.User
	if user == "" {
		user = os.Getenv("PGUSER")
	}
	if user == "" {
		user = os.Getenv("USER")
	}

	password := d.Password
	if password == "" {
		password = os.Getenv("PGPASSWORD")
	}

	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = os.Getenv("PGSSLMODE")
	}
	if sslmode == "" {
		sslmode = "prefer"
	}

	connStr := fmt.Sprintf("host=%s port=%d dbname=%s user=%s sslmode=%s",
		host, port, database, user, sslmode)

	if password != "" {
		connStr += fmt.Sprintf(" password=%s", password)
	}
	if d.SSLCert != "" {
		connStr += fmt.Sprintf(" sslcert=%s", d.SSLCert)
	}
	if d.SSLKey != "" {
		connStr += fmt.Sprintf(" sslkey=%s", d.SSLKey)
	}
	if d.SSLRootCert != "" {
		connStr += fmt.Sprintf(" sslrootcert=%s", d.SSLRootCert)
	}

	return connStr
}

// Load loads configuration from the named YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError(path, "failed to read config file", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewConfigError(path, "failed to parse config file", err)
	}

	return &cfg, nil
}

// LoadFromViper loads configuration from viper's merged file/env/flag
// settings (cmd/genlogic binds flags to viper keys before calling this).
func LoadFromViper() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError("", "failed to unmarshal config", err)
	}
	return &cfg, nil
}

// ApplyOverrides layers CLI flag values onto the loaded configuration. A
// nil field means the flag was not set and the loaded value is kept.
func (c *Config) ApplyOverrides(overrides CLIOverrides) {
	if overrides.SchemaPath != nil {
		c.SchemaPath = *overrides.SchemaPath
	}
	if overrides.OutputDir != nil {
		c.OutputDir = *overrides.OutputDir
	}
	if overrides.Host != nil {
		c.Database.Host = *overrides.Host
	}
	if overrides.Port != nil {
		c.Database.Port = *overrides.Port
	}
	if overrides.Database != nil {
		c.Database.Database = *overrides.Database
	}
	if overrides.User != nil {
		c.Database.User = *overrides.User
	}
	if overrides.Password != nil {
		c.Database.Password = *overrides.Password
	}
}

// Validate checks the configuration for completeness, aggregating every
// problem found rather than stopping at the first one.
func (c *Config) Validate() error {
	var errs []string

	if c.SchemaPath == "" {
		errs = append(errs, "schema path is required")
	}

	if len(errs) > 0 {
		return errors.NewConfigError("", strings.Join(errs, "; "), nil)
	}

	return nil
}

// ValidateForApply additionally requires enough database configuration to
// open a connection, beyond what Validate checks for compile/validate.
func (c *Config) ValidateForApply() error {
	if err := c.Validate(); err != nil {
		return err
	}

	var errs []string
	if c.Database.Database == "" && os.Getenv("PGDATABASE") == "" {
		errs = append(errs, "database name is required")
	}
	if c.Database.User == "" && os.Getenv("PGUSER") == "" && os.Getenv("USER") == "" {
		errs = append(errs, "database user is required")
	}

	if len(errs) > 0 {
		return errors.NewConfigError("", strings.Join(errs, "; "), nil)
	}

	return nil
}

// ResolveOutputDir returns the configured output directory, defaulting to
// the current directory when unset.
func (c *Config) ResolveOutputDir() string {
	if c.OutputDir == "" {
		return "."
	}
	return c.OutputDir
}

// FindConfigFile searches the standard locations for a genlogic.yaml
// config file: the current directory, /etc/pgedge, and the directory
// containing the running binary.
func FindConfigFile() string {
	searchPaths := []string{"genlogic.yaml", "/etc/pgedge/genlogic.yaml"}

	if exe, err := os.Executable(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(filepath.Dir(exe), "genlogic.yaml"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
