package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultLeadMinutes = 30
	defaultHorizonDays = 30
	defaultStateFile   = "./var/state.yaml"
)

// SourceConfig describes one ICS feed imported into the catalog at startup.
type SourceConfig struct {
	// ID is an internal identifier used in logs.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is an http(s) URL or a local file path.
	URL string `yaml:"url" json:"url"`
}

// CatalogConfig controls how the event catalog is populated.
type CatalogConfig struct {
	// SeedSamples adds the built-in demo events.
	SeedSamples bool `yaml:"seed_samples" json:"seed_samples"`
	// HorizonDays bounds recurrence expansion of imported events.
	HorizonDays int            `yaml:"horizon_days" json:"horizon_days"`
	Sources     []SourceConfig `yaml:"sources" json:"sources"`
}

// RemindersConfig controls local reminder scheduling.
type RemindersConfig struct {
	// Enabled=false behaves like denied notification authorization:
	// reservations still succeed, reminders are never delivered.
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	LeadMinutes int    `yaml:"lead_minutes" json:"lead_minutes"`
	Title       string `yaml:"title" json:"title"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used for day grouping and reminder times.
	// Empty means the host's local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// StateFile holds the persisted theme preference.
	StateFile string `yaml:"state_file" json:"state_file"`

	// CORSOrigins lists allowed browser origins; empty allows none.
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	Catalog   CatalogConfig   `yaml:"catalog" json:"catalog"`
	Reminders RemindersConfig `yaml:"reminders" json:"reminders"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		LogLevel:    "info",
		StateFile:   defaultStateFile,
		CORSOrigins: []string{},
		Catalog: CatalogConfig{
			SeedSamples: true,
			HorizonDays: defaultHorizonDays,
			Sources:     []SourceConfig{},
		},
		Reminders: RemindersConfig{
			Enabled:     true,
			LeadMinutes: defaultLeadMinutes,
			Title:       "Upcoming Event",
		},
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	switch c.LogLevel {
	case "debug", "info", "error":
	default:
		c.LogLevel = "info"
	}
	if c.StateFile == "" {
		c.StateFile = defaultStateFile
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{}
	}
	if c.Catalog.HorizonDays <= 0 {
		c.Catalog.HorizonDays = defaultHorizonDays
	}
	if c.Catalog.Sources == nil {
		c.Catalog.Sources = []SourceConfig{}
	}
	if c.Reminders.LeadMinutes <= 0 {
		c.Reminders.LeadMinutes = defaultLeadMinutes
	}
	if c.Reminders.Title == "" {
		c.Reminders.Title = "Upcoming Event"
	}
}

// Lead is the reminder lead time as a duration.
func (c *Config) Lead() time.Duration {
	return time.Duration(c.Reminders.LeadMinutes) * time.Minute
}

// Location resolves Timezone, falling back to time.Local when it is empty.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, err
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read and normalized.
//
// Fields absent from the file keep their DefaultConfig values, so booleans
// such as reminders.enabled default to true.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
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

	tmp, err := os.CreateTemp(dir, ".eventme-config-*.tmp")
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
