package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
site:
  id: "test-site"
registry:
  path: "/tmp/graylogic.db"
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
bridge:
  debounce_ms: 250
api:
  enabled: true
  host: "127.0.0.1"
  port: 8090
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}

	if cfg.Registry.Path != "/tmp/graylogic.db" {
		t.Errorf("Registry.Path = %q, want %q", cfg.Registry.Path, "/tmp/graylogic.db")
	}

	if cfg.Bridge.DebounceMS != 250 {
		t.Errorf("Bridge.DebounceMS = %d, want 250", cfg.Bridge.DebounceMS)
	}

	if got := cfg.DebounceWindow(); got != 250*time.Millisecond {
		t.Errorf("DebounceWindow() = %v, want 250ms", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	content := `
site:
  id: "test-site"
registry:
  path: "/tmp/graylogic.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.ClientID != "graylogic-hap" {
		t.Errorf("MQTT.Broker.ClientID = %q, want %q", cfg.MQTT.Broker.ClientID, "graylogic-hap")
	}
	if cfg.Bridge.DebounceMS != 500 {
		t.Errorf("Bridge.DebounceMS = %d, want default 500", cfg.Bridge.DebounceMS)
	}
	if cfg.Bridge.HealthInterval != 30 {
		t.Errorf("Bridge.HealthInterval = %d, want default 30", cfg.Bridge.HealthInterval)
	}
	if cfg.API.WebSocket.PingInterval != 30 {
		t.Errorf("API.WebSocket.PingInterval = %d, want default 30", cfg.API.WebSocket.PingInterval)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
site:
  id: "test-site"
registry:
  path: "/tmp/graylogic.db"
mqtt:
  broker:
    host: "config-host"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("GRAYLOGIC_HAP_MQTT_HOST", "env-host")
	t.Setenv("GRAYLOGIC_HAP_REGISTRY_PATH", "/env/graylogic.db")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "env-host" {
		t.Errorf("MQTT.Broker.Host = %q, want env override %q", cfg.MQTT.Broker.Host, "env-host")
	}
	if cfg.Registry.Path != "/env/graylogic.db" {
		t.Errorf("Registry.Path = %q, want env override %q", cfg.Registry.Path, "/env/graylogic.db")
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Site:     SiteConfig{ID: "site-001"},
			Registry: RegistryConfig{Path: "/data/graylogic.db"},
			MQTT:     MQTTConfig{QoS: 1},
			Bridge:   BridgeConfig{DebounceMS: 500, HealthInterval: 30},
			API:      APIConfig{Enabled: true, Port: 8090},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing site id",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: true,
		},
		{
			name:    "missing registry path",
			mutate:  func(c *Config) { c.Registry.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "negative debounce",
			mutate:  func(c *Config) { c.Bridge.DebounceMS = -1 },
			wantErr: true,
		},
		{
			name:    "zero health interval",
			mutate:  func(c *Config) { c.Bridge.HealthInterval = 0 },
			wantErr: true,
		},
		{
			name:    "invalid api port",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "api disabled ignores port",
			mutate:  func(c *Config) { c.API.Enabled = false; c.API.Port = 0 },
			wantErr: false,
		},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "too-short" },
			wantErr: true,
		},
		{
			name: "long jwt secret",
			mutate: func(c *Config) {
				c.Security.JWT.Secret = "test-secret-key-at-least-32-chars!"
			},
			wantErr: false,
		},
		{
			name:    "empty jwt secret allowed",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
