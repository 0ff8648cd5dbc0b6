package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib"
	"github.com/SanjoDeundiak/broker-shell/pkg/lib/locator"
	"github.com/SanjoDeundiak/broker-shell/pkg/lib/output_storage"
)

const (
	EnvConfigPath = "BROKER_CONFIG"
	EnvComponent  = "BROKER_COMPONENT"
	EnvAddress    = "BROKER_ADDRESS"
	EnvTLSKey     = "BROKER_TLS_KEY"
	EnvTLSCert    = "BROKER_TLS_CERT"
	EnvCACert     = "BROKER_CA_TLS_CERT"
	EnvHistory    = "BROKER_HISTORY_PATH"

	DefaultComponent          = "mosquitto"
	DefaultAddress            = "localhost:50051"
	DefaultStopTimeoutSeconds = 5
)

// Config is everything the host shell needs to supervise the broker.
type Config struct {
	Component          string   `toml:"component"`
	Environment        string   `toml:"-"`
	BinaryDir          string   `toml:"binary_dir"`
	Args               []string `toml:"args"`
	StopTimeoutSeconds int      `toml:"stop_timeout_seconds"`
	OutputTailLines    int      `toml:"output_tail_lines"`
	LockPath           string   `toml:"lock_path"`
	Cgroup             bool     `toml:"cgroup"`
	HistoryPath        string   `toml:"history_path"`
	Listen             string   `toml:"listen"`
	AllowedClients     []string `toml:"allowed_clients"`

	// Mode is resolved once from Environment after all sources are applied.
	Mode lib.DeploymentMode `toml:"-"`
	TLS  TLS                `toml:"-"`
}

// TLS holds PEM encoded material. It is only read from the environment.
type TLS struct {
	KeyPEM  string
	CertPEM string
	CAPEM   string
}

// Enabled reports whether any TLS material was supplied.
func (t TLS) Enabled() bool {
	return t.KeyPEM != "" || t.CertPEM != "" || t.CAPEM != ""
}

// Default returns the built in configuration.
func Default() Config {
	return Config{
		Component:          DefaultComponent,
		BinaryDir:          locator.DefaultDevDir,
		StopTimeoutSeconds: DefaultStopTimeoutSeconds,
		OutputTailLines:    output_storage.DefaultCapacity,
		Listen:             DefaultAddress,
	}
}

// StopTimeout returns the graceful stop window.
func (c Config) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutSeconds) * time.Second
}

// Load applies defaults, then the optional TOML file at path, then environment
// overrides, and validates the result.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadToml(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg, getenv)
	cfg.Mode = lib.ParseDeploymentMode(cfg.Environment)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config parse failed (%s): %s", path, strict.String())
		}
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	// The deployment mode comes from ENVIRONMENT alone; an unset variable means
	// packaged. It is compared verbatim, so it is never trimmed.
	cfg.Environment = getenv(lib.EnvEnvironment)
	if v := strings.TrimSpace(getenv(EnvComponent)); v != "" {
		cfg.Component = v
	}
	if v := strings.TrimSpace(getenv(EnvAddress)); v != "" {
		cfg.Listen = v
	}
	if v := strings.TrimSpace(getenv(EnvHistory)); v != "" {
		cfg.HistoryPath = v
	}
	cfg.TLS = TLS{
		KeyPEM:  getenv(EnvTLSKey),
		CertPEM: getenv(EnvTLSCert),
		CAPEM:   getenv(EnvCACert),
	}
}

// Validate checks the invariants the rest of the shell relies on.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Component) == "" {
		return errors.New("component is required")
	}
	if strings.ContainsAny(cfg.Component, `/\`) {
		return fmt.Errorf("component %q must be a bare name", cfg.Component)
	}
	if cfg.StopTimeoutSeconds <= 0 {
		return fmt.Errorf("stop_timeout_seconds must be positive, got %d", cfg.StopTimeoutSeconds)
	}
	if cfg.OutputTailLines <= 0 {
		return fmt.Errorf("output_tail_lines must be positive, got %d", cfg.OutputTailLines)
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		return errors.New("listen address is required")
	}
	if cfg.TLS.Enabled() && (cfg.TLS.KeyPEM == "" || cfg.TLS.CertPEM == "" || cfg.TLS.CAPEM == "") {
		return fmt.Errorf("incomplete TLS environment; require %s, %s, %s", EnvTLSKey, EnvTLSCert, EnvCACert)
	}
	if len(cfg.AllowedClients) > 0 && !cfg.TLS.Enabled() {
		return errors.New("allowed_clients requires TLS client certificates")
	}
	return nil
}
