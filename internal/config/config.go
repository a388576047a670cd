// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Catalog  CatalogConfig  `toml:"catalog"`
	Sweep    SweepConfig    `toml:"sweep"`
	Sessions SessionsConfig `toml:"sessions"`
	Log      LogConfig      `toml:"log"`
}

// CatalogConfig points at the remote catalog service.
type CatalogConfig struct {
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key"`
	MaxRetries int    `toml:"max_retries"`
}

// SweepConfig controls the unattended processing loop.
type SweepConfig struct {
	// AutoImport is a pointer so an absent key defaults to true.
	AutoImport *bool    `toml:"auto_import"`
	ItemDelay  Duration `toml:"item_delay"`
}

// SessionsConfig locates the resume database.
type SessionsConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Duration lets TOML carry values like "2s" or "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Load reads, substitutes, validates, and defaults the configuration file.
// Unresolved environment variables and validation failures are aggregated
// into a single *ConfigError.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}

	cerr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cerr.HasErrors() {
		return nil, cerr
	}
	return cfg, nil
}

// LoadWithoutValidation parses the file and applies defaults but skips both
// validation and missing-variable enforcement. Used by commands that operate
// on incomplete configs, like config editing.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, missing, nil
}

func (c *Config) applyDefaults() {
	if c.Sweep.AutoImport == nil {
		enabled := true
		c.Sweep.AutoImport = &enabled
	}
	if c.Sweep.ItemDelay == 0 {
		c.Sweep.ItemDelay = Duration(time.Second)
	}
	if c.Catalog.MaxRetries == 0 {
		c.Catalog.MaxRetries = 2
	}
	if c.Sessions.Path == "" {
		c.Sessions.Path = "./data/bulkarr.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default}, and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars expands environment references in the raw config text.
// Unset (or empty, for the :- and :? forms) variables without a default are
// collected and returned so the caller can report them all at once.
func substituteEnvVars(content string) (string, []string) {
	var missing []string

	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		expr := match[2 : len(match)-1] // Strip ${ and }

		if name, def, ok := strings.Cut(expr, ":-"); ok {
			if value := os.Getenv(name); value != "" {
				return value
			}
			return def
		}
		if name, msg, ok := strings.Cut(expr, ":?"); ok {
			if value := os.Getenv(name); value != "" {
				return value
			}
			missing = append(missing, fmt.Sprintf("%s: %s", name, msg))
			return match
		}

		if value, ok := os.LookupEnv(expr); ok {
			return value
		}
		missing = append(missing, expr)
		return match // Leave unchanged so the problem is visible
	})

	return out, missing
}
