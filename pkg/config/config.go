// Package config loads the agent configuration from YAML with sensible
// defaults under the user's home directory.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	sdkerrors "github.com/skillportio/sdk/pkg/errors"
	"github.com/skillportio/sdk/pkg/locale"
)

// Config is the agent configuration.
type Config struct {
	Agent struct {
		Verbose bool   `yaml:"verbose"`
		Locale  string `yaml:"locale"`
	} `yaml:"agent"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Install struct {
		Dir string `yaml:"dir"`
	} `yaml:"install"`

	GitHub struct {
		// Token may be left empty for anonymous access.
		// SKILLPORT_GITHUB_TOKEN always overrides it; GITHUB_TOKEN is
		// used only when no token is configured at all.
		Token           string `yaml:"token"`
		RequestsPerHour int    `yaml:"requests_per_hour"`
		BurstLimit      int    `yaml:"burst_limit"`
	} `yaml:"github"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Listen  string `yaml:"listen"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Agent.Locale = locale.Fallback

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	root := filepath.Join(home, ".skillport")
	cfg.Database.Path = filepath.Join(root, "skillport.db")
	cfg.Install.Dir = filepath.Join(root, "skills")

	cfg.GitHub.RequestsPerHour = 3600
	cfg.GitHub.BurstLimit = 10

	cfg.Metrics.Listen = "127.0.0.1:9109"

	return cfg
}

// Load reads a YAML config file over the defaults. An empty path
// returns the defaults. Environment token overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, sdkerrors.E(sdkerrors.KindNotFound, "config.Load", "read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, sdkerrors.E(sdkerrors.KindInvalidInput, "config.Load", "parse config file", err)
		}
	}

	if tok := os.Getenv("SKILLPORT_GITHUB_TOKEN"); tok != "" {
		cfg.GitHub.Token = tok
	} else if tok := os.Getenv("GITHUB_TOKEN"); tok != "" && cfg.GitHub.Token == "" {
		cfg.GitHub.Token = tok
	}

	cfg.Agent.Locale = locale.Validate(cfg.Agent.Locale)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return sdkerrors.E(sdkerrors.KindInvalidInput, "config.validate", "database path must not be empty")
	}
	if c.Install.Dir == "" {
		return sdkerrors.E(sdkerrors.KindInvalidInput, "config.validate", "install dir must not be empty")
	}
	if c.GitHub.RequestsPerHour < 0 {
		return sdkerrors.E(sdkerrors.KindInvalidInput, "config.validate", "requests_per_hour must not be negative")
	}
	return nil
}
