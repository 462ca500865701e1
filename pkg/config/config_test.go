package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleTOML = `
service_name = "pricing"
environment = "staging"

[http]
port = 8081

[database]
driver = "sqlite"
dsn = "file::memory:"

[engine]
default_model = "FiniteDifference"
asset_steps = 200
grid_points = 150
time_increment = 0.0025
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pricing.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadReadsFileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Environment != "staging" || cfg.HTTP.Port != 8081 {
		t.Fatalf("file values not applied: %+v", cfg.HTTP)
	}
	if cfg.GRPC.Port != 50051 {
		t.Fatalf("default grpc port = %d", cfg.GRPC.Port)
	}
	if cfg.Engine.DefaultModel != "FiniteDifference" || cfg.Engine.AssetSteps != 200 || cfg.Engine.TimeIncrement != 0.0025 {
		t.Fatalf("engine section not applied: %+v", cfg.Engine)
	}
	if cfg.Engine.TimeSteps != 100 {
		t.Fatalf("default time steps = %d", cfg.Engine.TimeSteps)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("APP_HTTP_PORT", "9191")
	t.Setenv("APP_ENGINE_GRID_POINTS", "240")
	cfg, err := Load(writeConfig(t, sampleTOML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP.Port != 9191 {
		t.Fatalf("http port = %d, want 9191", cfg.HTTP.Port)
	}
	if cfg.Engine.GridPoints != 240 {
		t.Fatalf("grid points = %d, want 240", cfg.Engine.GridPoints)
	}
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")
	if _, err := Load(missing); err == nil {
		t.Fatal("Load should fail for a missing file")
	}
	cfg, err := LoadWithDefaults(missing)
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.ServiceName != "pricing" || cfg.Database.Driver != "sqlite" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "none.toml"))
		if err != nil {
			t.Fatal(err)
		}
		return *cfg
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing service name", func(c *Config) { c.ServiceName = "" }, "service_name"},
		{"bad http port", func(c *Config) { c.HTTP.Port = 70000 }, "HTTP port"},
		{"mysql without dsn", func(c *Config) {
			c.Database.Driver = "mysql"
			c.Database.DSN = ""
		}, "DSN"},
		{"kafka without brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}, "brokers"},
		{"bad engine grid", func(c *Config) { c.Engine.GridPoints = 1 }, "engine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PRICING_DOTENV_PROBE=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("PRICING_DOTENV_PROBE") })

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatal(err)
	}
	if got := GetEnv("PRICING_DOTENV_PROBE", "absent"); got != "loaded" {
		t.Fatalf("GetEnv = %q", got)
	}
}
