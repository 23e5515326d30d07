// Package config loads the refreshd YAML configuration.
//
// Environment variables in the form ${VAR_NAME} are expanded before parsing
// and duration fields accept Go duration strings ("90s", "3m").
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jdziat/simple-refresh/pkg/activity"
	"github.com/jdziat/simple-refresh/pkg/core"
	"github.com/jdziat/simple-refresh/pkg/pause"
	"github.com/jdziat/simple-refresh/pkg/schedule"
	"github.com/jdziat/simple-refresh/pkg/security"
)

// Config is the complete refreshd configuration.
type Config struct {
	MaxPauseRaw string        `yaml:"max_pause"`
	MaxPause    time.Duration `yaml:"-"`
	HTTPAddr    string        `yaml:"http_addr"`

	Database   DatabaseConfig    `yaml:"database"`
	Logging    LoggingConfig     `yaml:"logging"`
	Push       PushConfig        `yaml:"push"`
	Activity   ActivityConfig    `yaml:"activity"`
	Stats      StatsConfig       `yaml:"stats"`
	Refreshers []RefresherConfig `yaml:"refreshers"`
}

// DatabaseConfig selects the stats and snapshot store.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres". Empty disables storage.
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`

	// Pool overrides; zero keeps the driver default.
	MaxOpenConns       int           `yaml:"max_open_conns"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return d.Driver != "" }

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PushConfig configures the activity WebSocket.
type PushConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// ActivityConfig configures which interactions pause refresh.
type ActivityConfig struct {
	Scope         activity.Scope `yaml:"scope"`
	Keywords      []string       `yaml:"keywords"`
	EditorMarkers []string       `yaml:"editor_markers"`
}

// StatsConfig controls the stats collector.
type StatsConfig struct {
	RetentionRaw string        `yaml:"retention"`
	Retention    time.Duration `yaml:"-"`
}

// RefresherConfig declares one refresher kind.
type RefresherConfig struct {
	Kind        core.Kind         `yaml:"kind"`
	URL         string            `yaml:"url"`
	ScheduleRaw string            `yaml:"schedule"`
	Schedule    schedule.Schedule `yaml:"-"`
	TimeoutRaw  string            `yaml:"timeout"`
	Timeout     time.Duration     `yaml:"-"`
	RunOnStart  bool              `yaml:"run_on_start"`
	Query       map[string]string `yaml:"query"`
	Headers     map[string]string `yaml:"headers"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse expands, decodes, defaults and validates raw YAML.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.MaxPauseRaw == "" {
		c.MaxPauseRaw = pause.DefaultMaxPause.String()
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Activity.Scope == "" {
		c.Activity.Scope = activity.ScopeEditors
	}
	if c.Stats.RetentionRaw == "" {
		c.Stats.RetentionRaw = "168h"
	}
}

// parseDurations converts the raw duration and schedule strings.
func parseDurations(cfg *Config) error {
	var err error

	cfg.MaxPause, err = time.ParseDuration(cfg.MaxPauseRaw)
	if err != nil {
		return fmt.Errorf("parsing max_pause %q: %w", cfg.MaxPauseRaw, err)
	}

	cfg.Stats.Retention, err = time.ParseDuration(cfg.Stats.RetentionRaw)
	if err != nil {
		return fmt.Errorf("parsing stats.retention %q: %w", cfg.Stats.RetentionRaw, err)
	}

	if cfg.Database.ConnMaxLifetimeRaw != "" {
		cfg.Database.ConnMaxLifetime, err = time.ParseDuration(cfg.Database.ConnMaxLifetimeRaw)
		if err != nil {
			return fmt.Errorf("parsing database.conn_max_lifetime %q: %w", cfg.Database.ConnMaxLifetimeRaw, err)
		}
	}

	for i := range cfg.Refreshers {
		r := &cfg.Refreshers[i]
		if r.TimeoutRaw != "" {
			r.Timeout, err = time.ParseDuration(r.TimeoutRaw)
			if err != nil {
				return fmt.Errorf("parsing refreshers[%d].timeout %q: %w", i, r.TimeoutRaw, err)
			}
		}
		if r.ScheduleRaw != "" {
			r.Schedule, err = schedule.Parse(r.ScheduleRaw)
			if err != nil {
				return fmt.Errorf("parsing refreshers[%d].schedule: %w", i, err)
			}
		}
	}

	return nil
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.MaxPause < security.MinMaxPause || c.MaxPause > security.MaxMaxPause {
		return fmt.Errorf("%w: max_pause %s outside [%s, %s]",
			core.ErrInvalidMaxPause, c.MaxPause, security.MinMaxPause, security.MaxMaxPause)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}

	switch c.Database.Driver {
	case "":
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver %q must be sqlite or postgres", c.Database.Driver)
	}
	if c.Database.MaxOpenConns < 0 {
		return errors.New("database.max_open_conns must not be negative")
	}

	if !c.Activity.Scope.Valid() {
		return fmt.Errorf("activity.scope %q must be editors or global", c.Activity.Scope)
	}
	if c.Stats.Retention < 0 {
		return errors.New("stats.retention must not be negative")
	}

	if len(c.Refreshers) == 0 {
		return errors.New("at least one refresher is required")
	}
	seen := make(map[core.Kind]bool, len(c.Refreshers))
	for i, r := range c.Refreshers {
		if err := security.ValidateKind(r.Kind); err != nil {
			return fmt.Errorf("refreshers[%d]: %w", i, err)
		}
		if seen[r.Kind] {
			return fmt.Errorf("refreshers[%d]: %w: %s", i, core.ErrKindExists, r.Kind)
		}
		seen[r.Kind] = true

		if r.URL == "" {
			return fmt.Errorf("refreshers[%d].url is required", i)
		}
		if r.Schedule == nil {
			return fmt.Errorf("refreshers[%d].schedule is required", i)
		}
		if r.Timeout < 0 {
			return fmt.Errorf("refreshers[%d].timeout must not be negative", i)
		}
	}

	return nil
}
