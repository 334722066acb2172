package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aatrey56/lineup-planner/internal/feed"
	"github.com/aatrey56/lineup-planner/internal/lineup"
	"github.com/aatrey56/lineup-planner/internal/logging"
)

// Config is the on-disk configuration shape (YAML). Keys left out of the
// file keep their Default value.
type Config struct {
	Addr        string `yaml:"addr"`
	Path        string `yaml:"path"`
	RawRoot     string `yaml:"raw_root"`
	DerivedRoot string `yaml:"derived_root"`
	FeedFile    string `yaml:"feed_file"`
	PlansDB     string `yaml:"plans_db"`
	RequireAuth bool   `yaml:"require_auth"`
	AuthHeader  string `yaml:"auth_header"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	// SessionIdleTTL closes sessions nobody touched for this long. Zero
	// keeps sessions until planner_close.
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl"`
	// Formations replaces the built-in catalog, as [defenders, midfielders, attackers].
	Formations [][]int `yaml:"formations"`
}

func Default() Config {
	return Config{
		Addr:           ":8080",
		Path:           "/mcp",
		RawRoot:        "data/raw",
		DerivedRoot:    "data/derived",
		FeedFile:       feed.DefaultFile,
		PlansDB:        "data/plans.db",
		RequireAuth:    true,
		AuthHeader:     "X-API-Key",
		LogLevel:       "info",
		LogFormat:      "text",
		SessionIdleTTL: 2 * time.Hour,
	}
}

// Load reads path over the defaults and validates the result. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("addr is required")
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path must start with /: %q", c.Path)
	}
	if strings.TrimSpace(c.RawRoot) == "" {
		return errors.New("raw_root is required")
	}
	if strings.TrimSpace(c.FeedFile) == "" {
		return errors.New("feed_file is required")
	}
	if c.SessionIdleTTL < 0 {
		return fmt.Errorf("session_idle_ttl must not be negative: %s", c.SessionIdleTTL)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return fmt.Errorf("log_format: %w", err)
	}
	if _, err := c.Catalog(); err != nil {
		return fmt.Errorf("formations invalid: %w", err)
	}
	return nil
}

// Catalog returns the configured formation catalog, or the built-in one
// when none is configured.
func (c *Config) Catalog() (lineup.Catalog, error) {
	if len(c.Formations) == 0 {
		return lineup.DefaultCatalog(), nil
	}
	shapes := make([]lineup.Shape, 0, len(c.Formations))
	for i, f := range c.Formations {
		if len(f) != lineup.NumBuckets {
			return lineup.Catalog{}, fmt.Errorf("%w: entry %d has %d numbers, want %d", lineup.ErrInvalidShape, i, len(f), lineup.NumBuckets)
		}
		shapes = append(shapes, lineup.ShapeOf([lineup.NumBuckets]int{f[0], f[1], f[2]}))
	}
	return lineup.NewCatalog(shapes...)
}
