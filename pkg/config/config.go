// Package config loads and validates pageactor configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fatalapps/pageactor/pkg/actor/login"
)

// Config is the top-level configuration for the pipeline.
type Config struct {
	// Browser controls the playwright session.
	Browser BrowserConfig `yaml:"browser"`

	// Policy holds the site-policy blocklist.
	Policy PolicyConfig `yaml:"policy"`

	// Observation controls snapshotting and post-invoke stabilization.
	Observation ObservationConfig `yaml:"observation"`

	// Login seeds the credential service.
	Login LoginConfig `yaml:"login"`
}

// BrowserConfig controls the browser session.
type BrowserConfig struct {
	// Headless controls whether the browser runs without a visible window.
	Headless bool `yaml:"headless"`

	// ViewportWidth and ViewportHeight set the initial viewport size.
	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`

	// Timeout is the default timeout for browser operations.
	Timeout time.Duration `yaml:"timeout"`
}

// PolicyConfig holds the URL blocklist.
type PolicyConfig struct {
	// Blocklist is a list of glob patterns matched against URLs and hosts
	// that actions may never touch.
	Blocklist []string `yaml:"blocklist"`
}

// ObservationConfig controls stabilization waits.
type ObservationConfig struct {
	// SettleDelay is the quiet period appended after a page reaches a
	// stable load state before an action's turn completes.
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// LoginConfig seeds the static credential service.
type LoginConfig struct {
	Credentials []login.Credential `yaml:"credentials"`
}

// Default values applied by Load when the file leaves fields unset.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultTimeout        = 30 * time.Second
	DefaultSettleDelay    = 100 * time.Millisecond
)

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  DefaultViewportWidth,
			ViewportHeight: DefaultViewportHeight,
			Timeout:        DefaultTimeout,
		},
		Observation: ObservationConfig{
			SettleDelay: DefaultSettleDelay,
		},
	}
}

// Load reads the configuration file at path and applies defaults. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.ViewportWidth == 0 {
		c.Browser.ViewportWidth = DefaultViewportWidth
	}
	if c.Browser.ViewportHeight == 0 {
		c.Browser.ViewportHeight = DefaultViewportHeight
	}
	if c.Browser.Timeout == 0 {
		c.Browser.Timeout = DefaultTimeout
	}
	if c.Observation.SettleDelay == 0 {
		c.Observation.SettleDelay = DefaultSettleDelay
	}
}

// Validate checks the configuration for values the pipeline cannot run
// with.
func (c *Config) Validate() error {
	if c.Browser.ViewportWidth < 0 || c.Browser.ViewportHeight < 0 {
		return fmt.Errorf("viewport dimensions must be non-negative")
	}
	if c.Browser.Timeout < 0 {
		return fmt.Errorf("browser timeout must be non-negative")
	}
	if c.Observation.SettleDelay < 0 {
		return fmt.Errorf("settle delay must be non-negative")
	}
	for _, cred := range c.Login.Credentials {
		if cred.Origin == "" {
			return fmt.Errorf("credential with empty origin")
		}
	}
	return nil
}
