package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brokershell.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", envMap(nil))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Component != DefaultComponent || cfg.BinaryDir != "binaries" || cfg.Listen != DefaultAddress {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Mode != lib.ModePackaged {
		t.Fatalf("expected packaged mode by default, got %v", cfg.Mode)
	}
	if cfg.StopTimeout() != 5*time.Second {
		t.Fatalf("unexpected stop timeout %v", cfg.StopTimeout())
	}
	if cfg.TLS.Enabled() {
		t.Fatalf("TLS should be disabled without env")
	}
}

func TestLoad_EnvironmentSelectsMode(t *testing.T) {
	cfg, err := Load("", envMap(map[string]string{lib.EnvEnvironment: "DEV"}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode != lib.ModeDevelopment {
		t.Fatalf("expected development mode, got %v", cfg.Mode)
	}

	cfg, err = Load("", envMap(map[string]string{lib.EnvEnvironment: "dev"}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode != lib.ModePackaged {
		t.Fatalf("expected packaged mode for lowercase marker, got %v", cfg.Mode)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
component = "broker"
binary_dir = "sidecars"
args = ["-c", "broker.conf"]
stop_timeout_seconds = 2
output_tail_lines = 50
lock_path = "/tmp/broker.lock"
listen = "127.0.0.1:6000"
`)

	cfg, err := Load(path, envMap(map[string]string{EnvAddress: "127.0.0.1:7000"}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Component != "broker" || cfg.BinaryDir != "sidecars" || cfg.OutputTailLines != 50 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if strings.Join(cfg.Args, " ") != "-c broker.conf" {
		t.Fatalf("unexpected args %v", cfg.Args)
	}
	if cfg.Mode != lib.ModePackaged {
		t.Fatalf("expected packaged mode without ENVIRONMENT")
	}
	if cfg.Listen != "127.0.0.1:7000" {
		t.Fatalf("expected env to override listen, got %q", cfg.Listen)
	}
	if cfg.StopTimeout() != 2*time.Second {
		t.Fatalf("unexpected stop timeout %v", cfg.StopTimeout())
	}
}

func TestLoad_ModeOnlyFromEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, `environment = "DEV"`)
	if _, err := Load(path, envMap(nil)); err == nil {
		t.Fatalf("expected environment key in the config file to be rejected")
	}

	path = writeConfig(t, `component = "broker"`)
	cfg, err := Load(path, envMap(map[string]string{lib.EnvEnvironment: ""}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode != lib.ModePackaged {
		t.Fatalf("expected packaged mode for empty ENVIRONMENT, got %v", cfg.Mode)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, `componnet = "typo"`)
	_, err := Load(path, envMap(nil))
	if err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
	if !strings.Contains(err.Error(), "config parse failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"), envMap(nil))
	if err == nil || !strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty component":   func(c *Config) { c.Component = " " },
		"path component":    func(c *Config) { c.Component = "../mosquitto" },
		"zero stop timeout": func(c *Config) { c.StopTimeoutSeconds = 0 },
		"zero tail":         func(c *Config) { c.OutputTailLines = 0 },
		"empty listen":      func(c *Config) { c.Listen = "" },
		"partial tls":       func(c *Config) { c.TLS.KeyPEM = "key" },
		"allowlist no tls":  func(c *Config) { c.AllowedClients = []string{"desktop-ui"} },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := Validate(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	if err := Validate(Default()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
