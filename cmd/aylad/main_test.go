package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv(configEnvVar, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config error", err)
	}
}

// TestRun_MissingDatabasePath verifies run fails validation when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")

	configContent := `
ayla:
  app_id: "test-app-id"
  app_secret: "test-app-secret"
  service_type: Development
  service_location: USA

database:
  path: ""

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: discard
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv(configEnvVar, configPath)
	t.Setenv("AYLA_DATABASE_PATH", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
	if !strings.Contains(err.Error(), "database.path is required") {
		t.Errorf("run() error = %v, want database.path validation error", err)
	}
}

// TestRun_NoCredentials verifies run refuses to start without a stored
// session or configured credentials, before touching the network.
func TestRun_NoCredentials(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	configContent := `
ayla:
  app_id: "test-app-id"
  app_secret: "test-app-secret"
  service_type: Development
  service_location: USA
  email: ""
  password: ""

database:
  path: "` + filepath.Join(dir, "ayla.db") + `"
  wal_mode: true
  busy_timeout: 5

logging:
  level: error
  format: text
  output: discard
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv(configEnvVar, configPath)
	t.Setenv("AYLA_EMAIL", "")
	t.Setenv("AYLA_PASSWORD", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail without credentials")
	}
	if !strings.Contains(err.Error(), "no stored session") {
		t.Errorf("run() error = %v, want sign-in error", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(configEnvVar, "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
	t.Setenv(configEnvVar, "/etc/ayla/config.yaml")
	if got := getConfigPath(); got != "/etc/ayla/config.yaml" {
		t.Errorf("getConfigPath() = %q, want /etc/ayla/config.yaml", got)
	}
}
