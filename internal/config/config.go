// Package config loads crawl configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/matsen/scholargraph/internal/crawler"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".scholargraph.yml"

// DefaultStorePath is where crawl results are persisted.
const DefaultStorePath = "scholargraph.db"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Delay parameterizes the log-normal inter-fetch pause.
type Delay struct {
	Mu      float64 `yaml:"mu"`
	Sigma   float64 `yaml:"sigma"`
	Divisor float64 `yaml:"divisor"`
}

// Config is the crawl configuration.
type Config struct {
	// Seed is the author name the crawl starts from.
	Seed string `yaml:"seed"`

	MaxHops         int `yaml:"max_hops"`
	PoolSize        int `yaml:"pool_size"`
	MaxSearchPages  int `yaml:"max_search_pages"`
	MaxProfilePages int `yaml:"max_profile_pages"`

	// Steps bounds how many requests one crawl run processes.
	// 0 runs until the frontier is empty.
	Steps int `yaml:"steps"`

	StorePath         string   `yaml:"store_path"`
	UserAgent         string   `yaml:"user_agent"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	RobotMarkers      []string `yaml:"robot_markers,omitempty"`
	Delay             Delay    `yaml:"delay"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		MaxHops:           crawler.DefaultMaxHops,
		PoolSize:          crawler.DefaultPoolSize,
		MaxSearchPages:    crawler.DefaultSearchPages,
		MaxProfilePages:   crawler.DefaultProfilePages,
		StorePath:         DefaultStorePath,
		UserAgent:         crawler.DefaultUserAgent,
		RequestsPerSecond: crawler.DefaultRateLimit,
		Delay: Delay{
			Mu:      crawler.DefaultDelayMu,
			Sigma:   crawler.DefaultDelaySigma,
			Divisor: crawler.DefaultDelayDivisor,
		},
	}
}

// Load reads a YAML configuration file on top of the defaults.
// If the file does not exist, it returns ErrConfigNotFound.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Find searches for the configuration file in order: the explicit
// path, the current directory, the user's home directory. Returns the
// empty string when nothing is found.
func Find(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// Validate rejects values the crawler cannot run with.
func (c *Config) Validate() error {
	if c.MaxHops < 0 {
		return fmt.Errorf("max_hops must be >= 0, got %d", c.MaxHops)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("pool_size must be >= 1, got %d", c.PoolSize)
	}
	if c.MaxSearchPages < 1 {
		return fmt.Errorf("max_search_pages must be >= 1, got %d", c.MaxSearchPages)
	}
	if c.MaxProfilePages < 1 {
		return fmt.Errorf("max_profile_pages must be >= 1, got %d", c.MaxProfilePages)
	}
	if c.Steps < 0 {
		return fmt.Errorf("steps must be >= 0, got %d", c.Steps)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be > 0, got %g", c.RequestsPerSecond)
	}
	if c.Delay.Divisor <= 0 {
		return fmt.Errorf("delay divisor must be > 0, got %g", c.Delay.Divisor)
	}
	return nil
}
