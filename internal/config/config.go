// ABOUTME: Configuration loading and parsing for the site server
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete site configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Uploads   UploadsConfig   `yaml:"uploads"`
	Session   SessionConfig   `yaml:"session"`
	KeepAlive KeepAliveConfig `yaml:"keepalive"`
	Logging   LoggingConfig   `yaml:"logging"`
	Admin     AdminConfig     `yaml:"admin"`
}

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// UploadsConfig holds the gallery upload directory configuration.
type UploadsConfig struct {
	Dir string `yaml:"dir"`
}

// SessionConfig holds admin session configuration.
type SessionConfig struct {
	TTL time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TTLRaw string `yaml:"ttl"`
}

// KeepAliveConfig holds the self-ping configuration used on hosts that
// idle out inactive services.
type KeepAliveConfig struct {
	Enabled  bool          `yaml:"enabled"`
	URL      string        `yaml:"url"`
	Interval time.Duration `yaml:"-"`

	IntervalRaw string `yaml:"interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AdminConfig holds seed credentials for the bootstrap administrator.
// Normally supplied via ${ADMIN_USER}/${ADMIN_PASS} expansion rather than
// written into the file.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: "data/site.db"},
		Uploads:  UploadsConfig{Dir: "static/uploads"},
		Session:  SessionConfig{TTL: 24 * time.Hour},
		KeepAlive: KeepAliveConfig{
			Interval: 25 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values. Fields not set in
// the file keep their defaults, and a handful of environment variables
// override the file afterwards.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		// Expand environment variables in the raw YAML content
		expandedData := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. An unset variable expands to an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnvOverrides applies the environment variables understood by hosting
// platforms on top of whatever the file configured.
func applyEnvOverrides(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if user := os.Getenv("ADMIN_USER"); user != "" {
		cfg.Admin.Username = user
	}
	if pass := os.Getenv("ADMIN_PASS"); pass != "" {
		cfg.Admin.Password = pass
	}
	if os.Getenv("ENABLE_KEEP_ALIVE") == "1" {
		cfg.KeepAlive.Enabled = true
	}
	if url := os.Getenv("KEEP_ALIVE_URL"); url != "" {
		cfg.KeepAlive.URL = url
	}
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Uploads.Dir == "" {
		return fmt.Errorf("uploads.dir is required")
	}
	if c.KeepAlive.Enabled && c.KeepAlive.URL == "" {
		return fmt.Errorf("keepalive.url is required when keepalive is enabled")
	}
	if c.KeepAlive.Interval <= 0 {
		return fmt.Errorf("keepalive.interval must be positive")
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must not be negative")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Session.TTLRaw != "" {
		cfg.Session.TTL, err = time.ParseDuration(cfg.Session.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session ttl %q: %w", cfg.Session.TTLRaw, err)
		}
	}

	if cfg.KeepAlive.IntervalRaw != "" {
		cfg.KeepAlive.Interval, err = time.ParseDuration(cfg.KeepAlive.IntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing keepalive interval %q: %w", cfg.KeepAlive.IntervalRaw, err)
		}
	}

	return nil
}
