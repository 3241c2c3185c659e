/*-------------------------------------------------------------------------
 *
 * genlogic
 *
 * Portions copyright (c) 2025 - 2026, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearPGEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"PGHOST", "PGPORT", "PGDATABASE", "PGUSER", "PGPASSWORD", "PGSSLMODE"} {
		orig, had := os.LookupEnv(name)
		os.Unsetenv(name)
		t.Cleanup(func() {
			if had {
				os.Setenv(name, orig)
			}
		})
	}
}

func TestDatabaseConfigConnectionString(t *testing.T) {
	clearPGEnv(t)

	t.Run("full config", func(t *testing.T) {
		db := DatabaseConfig{
			Host:     "myhost",
			Port:     5433,
			Database: "mydb",
			User:     "myuser",
			Password: "mypass",
			SSLMode:  "require",
		}
		connStr := db.ConnectionString()

		expected := "host=myhost port=5433 dbname=mydb user=myuser " +
			"sslmode=require password=mypass"
		if connStr != expected {
			t.Errorf("expected %q, got %q", expected, connStr)
		}
	})

	t.Run("defaults when empty", func(t *testing.T) {
		db := DatabaseConfig{Database: "mydb", User: "myuser"}
		connStr := db.ConnectionString()

		expected := "host=localhost port=5432 dbname=mydb user=myuser sslmode=prefer"
		if connStr != expected {
			t.Errorf("expected %q, got %q", expected, connStr)
		}
	})

	t.Run("env var fallback", func(t *testing.T) {
		os.Setenv("PGHOST", "envhost")
		os.Setenv("PGPORT", "6543")
		os.Setenv("PGDATABASE", "envdb")
		os.Setenv("PGUSER", "envuser")
		defer func() {
			os.Unsetenv("PGHOST")
			os.Unsetenv("PGPORT")
			os.Unsetenv("PGDATABASE")
			os.Unsetenv("PGUSER")
		}()

		db := DatabaseConfig{}
		connStr := db.ConnectionString()

		expected := "host=envhost port=6543 dbname=envdb user=envuser sslmode=prefer"
		if connStr != expected {
			t.Errorf("expected %q, got %q", expected, connStr)
		}
	})

	t.Run("sslcert options appended", func(t *testing.T) {
		db := DatabaseConfig{
			Database:    "mydb",
			User:        "myuser",
			SSLCert:     "/certs/client.crt",
			SSLKey:      "/certs/client.key",
			SSLRootCert: "/certs/root.crt",
		}
		connStr := db.ConnectionString()

		for _, want := range []string{"sslcert=/certs/client.crt", "sslkey=/certs/client.key", "sslrootcert=/certs/root.crt"} {
			if !strings.Contains(connStr, want) {
				t.Errorf("expected connection string to contain %q, got %q", want, connStr)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genlogic.yaml")

	content := `
schema: schema.yaml
output_dir: build
database:
  host: dbhost
  port: 5432
  database: appdb
  user: appuser
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SchemaPath != "schema.yaml" {
		t.Errorf("SchemaPath = %q, want schema.yaml", cfg.SchemaPath)
	}
	if cfg.OutputDir != "build" {
		t.Errorf("OutputDir = %q, want build", cfg.OutputDir)
	}
	if cfg.Database.Host != "dbhost" {
		t.Errorf("Database.Host = %q, want dbhost", cfg.Database.Host)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/genlogic.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := &Config{SchemaPath: "original.yaml"}

	newSchema := "override.yaml"
	newHost := "overridehost"
	newPort := 6000

	cfg.ApplyOverrides(CLIOverrides{
		SchemaPath: &newSchema,
		Host:       &newHost,
		Port:       &newPort,
	})

	if cfg.SchemaPath != newSchema {
		t.Errorf("SchemaPath = %q, want %q", cfg.SchemaPath, newSchema)
	}
	if cfg.Database.Host != newHost {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, newHost)
	}
	if cfg.Database.Port != newPort {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, newPort)
	}
}

func TestApplyOverridesLeavesUnsetFieldsAlone(t *testing.T) {
	cfg := &Config{SchemaPath: "original.yaml", OutputDir: "build"}
	cfg.ApplyOverrides(CLIOverrides{})

	if cfg.SchemaPath != "original.yaml" || cfg.OutputDir != "build" {
		t.Errorf("ApplyOverrides with no overrides changed config: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	t.Run("missing schema path", func(t *testing.T) {
		cfg := &Config{}
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for missing schema path")
		}
	})

	t.Run("valid", func(t *testing.T) {
		cfg := &Config{SchemaPath: "schema.yaml"}
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestValidateForApply(t *testing.T) {
	clearPGEnv(t)

	t.Run("missing database name and user", func(t *testing.T) {
		cfg := &Config{SchemaPath: "schema.yaml"}
		if err := cfg.ValidateForApply(); err == nil {
			t.Fatal("expected error for missing database settings")
		}
	})

	t.Run("valid", func(t *testing.T) {
		cfg := &Config{
			SchemaPath: "schema.yaml",
			Database:   DatabaseConfig{Database: "appdb", User: "appuser"},
		}
		if err := cfg.ValidateForApply(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestResolveOutputDir(t *testing.T) {
	cfg := &Config{}
	if got := cfg.ResolveOutputDir(); got != "." {
		t.Errorf("ResolveOutputDir() = %q, want \".\"", got)
	}

	cfg.OutputDir = "build"
	if got := cfg.ResolveOutputDir(); got != "build" {
		t.Errorf("ResolveOutputDir() = %q, want build", got)
	}
}
