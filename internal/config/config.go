package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"hostingrelay/internal/source"
)

// SourceConfig describes a single booking feed and how to massage its events.
type SourceConfig struct {
	// Key identifies the source in request paths, e.g. /hosting-relay/air.
	Key string `yaml:"key" json:"key"`
	// URL is the iCal export endpoint published by the booking platform.
	URL string `yaml:"url" json:"url"`

	// ExcludeSummary drops events with this exact summary (case-insensitive),
	// e.g. "Not available" blocks some platforms copy in from other bookings.
	ExcludeSummary string `yaml:"exclude_summary,omitempty" json:"exclude_summary,omitempty"`
	// StripPattern is a regular expression removed from every summary.
	StripPattern string `yaml:"strip_pattern,omitempty" json:"strip_pattern,omitempty"`
	// AddPrefix is prepended to every summary as "<prefix>- ".
	AddPrefix string `yaml:"add_prefix,omitempty" json:"add_prefix,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the relay endpoints.
	Listen string `yaml:"listen" json:"listen"`

	// Namespace is the leading part of the combined calendar's PRODID.
	Namespace string `yaml:"namespace" json:"namespace"`

	// MaxConcurrency bounds how many feeds are fetched at once for "all".
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`

	// FetchTimeout overrides the HTTP client timeout. Zero keeps the
	// platform default (no timeout).
	FetchTimeout time.Duration `yaml:"fetch_timeout,omitempty" json:"fetch_timeout,omitempty"`

	// Probe is a cron-style schedule (e.g. "*/15 * * * *") for upstream
	// health probes. Empty disables probing.
	Probe string `yaml:"probe,omitempty" json:"probe,omitempty"`

	// LogLevel is one of DEBUG, INFO, ERROR.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Sources is the ordered list of relayed feeds.
	Sources []SourceConfig `yaml:"sources" json:"sources"`
}

const (
	defaultListen         = "127.0.0.1:8080"
	defaultNamespace      = "//hostingrelay"
	defaultMaxConcurrency = 8
	defaultLogLevel       = "INFO"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		Namespace:      defaultNamespace,
		MaxConcurrency: defaultMaxConcurrency,
		LogLevel:       defaultLogLevel,
		Sources:        []SourceConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Namespace == "" {
		c.Namespace = defaultNamespace
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = defaultMaxConcurrency
	}
	if c.FetchTimeout < 0 {
		c.FetchTimeout = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
}

// Registry compiles the configured sources into an immutable registry.
func (c *Config) Registry() (*source.Registry, error) {
	specs := make([]source.Spec, 0, len(c.Sources))
	for _, s := range c.Sources {
		specs = append(specs, source.Spec{
			Key:            s.Key,
			FeedURL:        s.URL,
			ExcludeSummary: s.ExcludeSummary,
			StripPattern:   s.StripPattern,
			AddPrefix:      s.AddPrefix,
		})
	}
	reg, err := source.NewRegistry(specs)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return reg, nil
}

// ErrNotFound is returned by Load when the config file does not exist.
var ErrNotFound = errors.New("config file not found")

// Load loads configuration from the given YAML path and normalizes defaults.
//
// Unlike a first-run desktop tool, a relay with no sources is useless, so a
// missing file is an error (wrapping ErrNotFound); `hostingrelay init`
// writes a starter file instead.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600, since feed URLs carry tokens.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".hostingrelay-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
