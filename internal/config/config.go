package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/otsync/pkg/modifiers"
	"github.com/aretw0/otsync/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Config is the otsync CLI configuration file.
type Config struct {
	LogLevel   string           `yaml:"log_level" json:"log_level"`
	Simulation Simulation       `yaml:"simulation" json:"simulation"`
	Server     Server           `yaml:"server" json:"server"`
	Modifiers  []ModifierConfig `yaml:"modifiers" json:"modifiers"`
}

// Simulation configures `otsync simulate`.
type Simulation struct {
	Clients    int     `yaml:"clients" json:"clients"`
	Edits      int     `yaml:"edits" json:"edits"`
	Seed       int64   `yaml:"seed" json:"seed"`
	DropRate   float64 `yaml:"drop_rate" json:"drop_rate"`
	RejectRate float64 `yaml:"reject_rate" json:"reject_rate"`
	Initial    string  `yaml:"initial" json:"initial"`
}

// Server configures `otsync serve`.
type Server struct {
	Port        int      `yaml:"port" json:"port"`
	Redis       string   `yaml:"redis" json:"redis"`
	RedisPrefix string   `yaml:"redis_prefix" json:"redis_prefix"`
	SnapshotTTL string   `yaml:"snapshot_ttl" json:"snapshot_ttl"`
	DataDir     string   `yaml:"data_dir" json:"data_dir"`
	Documents   []string `yaml:"documents" json:"documents"`
}

// ModifierConfig names a registered modifier and its arguments.
type ModifierConfig struct {
	Name string   `yaml:"name" json:"name"`
	Args []string `yaml:"args" json:"args"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel: "info",
		Simulation: Simulation{
			Clients: 3,
			Edits:   50,
			Seed:    1,
			Initial: "\n",
		},
		Server: Server{
			Port:      8080,
			Documents: []string{"default"},
		},
	}
}

// Load reads a configuration file (YAML or JSON) over the defaults.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and formats.
func (c Config) Validate() error {
	var errs []error
	if c.Simulation.Clients < 1 {
		errs = append(errs, fmt.Errorf("simulation.clients must be positive, got %d", c.Simulation.Clients))
	}
	if c.Simulation.Edits < 0 {
		errs = append(errs, fmt.Errorf("simulation.edits must not be negative, got %d", c.Simulation.Edits))
	}
	if r := c.Simulation.DropRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("simulation.drop_rate must be in [0, 1], got %v", r))
	}
	if r := c.Simulation.RejectRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("simulation.reject_rate must be in [0, 1], got %v", r))
	}
	if _, err := c.Server.TTL(); err != nil {
		errs = append(errs, err)
	}
	for i, m := range c.Modifiers {
		if m.Name == "" {
			errs = append(errs, fmt.Errorf("modifiers[%d] has no name", i))
		}
	}
	return errors.Join(errs...)
}

// TTL parses SnapshotTTL. Empty means no expiry.
func (s Server) TTL() (time.Duration, error) {
	if s.SnapshotTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.SnapshotTTL)
	if err != nil {
		return 0, fmt.Errorf("server.snapshot_ttl: %w", err)
	}
	return d, nil
}

// BuildModifiers resolves the configured modifiers against reg, in order.
func (c Config) BuildModifiers(reg *modifiers.Registry) ([]ports.Modifier, error) {
	out := make([]ports.Modifier, 0, len(c.Modifiers))
	for _, m := range c.Modifiers {
		mod, err := reg.Build(m.Name, m.Args...)
		if err != nil {
			return nil, fmt.Errorf("modifier %s: %w", m.Name, err)
		}
		out = append(out, mod)
	}
	return out, nil
}
