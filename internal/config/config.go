// Package config provides configuration management for the scanner application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"market-scanner/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Engine        EngineConfig        `mapstructure:"engine"`
	Feed          FeedConfig          `mapstructure:"feed"`
	Documents     DocumentConfig      `mapstructure:"documents"`
	UI            UIConfig            `mapstructure:"ui"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
	Rules         models.ScannerRules `mapstructure:"-"` // Loaded separately
}

// EngineConfig holds alert engine configuration.
type EngineConfig struct {
	UserID         string        `mapstructure:"user_id"`
	DebounceWindow time.Duration `mapstructure:"debounce_window"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
}

// FeedConfig holds live-price feed configuration. The feed API key is read
// from the SCANNER_FEED_KEY environment variable, never from a config file.
type FeedConfig struct {
	URL          string        `mapstructure:"url"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

// DocumentConfig holds scan document source configuration.
type DocumentConfig struct {
	Source  string        `mapstructure:"source"` // "http" or "store"
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	TimeFormat   string `mapstructure:"time_format"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/market-scanner"
	}
	return filepath.Join(home, ".config", "market-scanner")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	// Load main config
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load scanner rules
	rules, err := LoadRules(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading rules.toml: %w", err)
	}
	cfg.Rules = rules

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			return createTemplateConfig(configDir, name)
		}
		return err
	}

	return v.Unmarshal(target)
}

// LoadRules loads the scanner rules file. An absent key keeps its zero/nil
// value so that "not configured" stays distinguishable from "configured off"
// (boolean toggles default true; a nil sector whitelist permits everything).
func LoadRules(configDir string) (models.ScannerRules, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	var rules models.ScannerRules

	v := viper.New()
	v.SetConfigName("rules")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return rules, createTemplateRules(configDir)
		}
		return rules, err
	}

	if err := v.Unmarshal(&rules); err != nil {
		return rules, err
	}
	return rules, nil
}

// WatchRules watches the rules file and invokes onChange with the freshly
// parsed rules whenever it is rewritten. This is the preference-change
// subscription: rule edits take effect on the next recomputation pass, no
// manual invalidation needed.
func WatchRules(configDir string, onChange func(models.ScannerRules)) error {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("rules")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		var rules models.ScannerRules
		if err := v.Unmarshal(&rules); err != nil {
			return
		}
		onChange(rules)
	})
	v.WatchConfig()
	return nil
}

// SaveRules writes the rules back to rules.toml so that edits made through
// the CLI survive restarts and trip the rules watcher.
func SaveRules(configDir string, rules models.ScannerRules) error {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("up.percent_threshold", rules.Up.PercentThreshold)
	v.Set("up.dollar_threshold", rules.Up.DollarThreshold)
	v.Set("down.percent_threshold", rules.Down.PercentThreshold)
	v.Set("down.dollar_threshold", rules.Down.DollarThreshold)
	v.Set("min_price", rules.MinPrice)
	v.Set("hilo_min_price", rules.HiloMinPrice)
	if rules.MoversEnabled != nil {
		v.Set("movers_enabled", *rules.MoversEnabled)
	}
	if rules.HiloEnabled != nil {
		v.Set("hilo_enabled", *rules.HiloEnabled)
	}
	if rules.PersonalEnabled != nil {
		v.Set("personal_enabled", *rules.PersonalEnabled)
	}
	if rules.ExcludePortfolio != nil {
		v.Set("exclude_portfolio", *rules.ExcludePortfolio)
	}
	if rules.ActiveFilters != nil {
		v.Set("active_filters", rules.ActiveFilters)
	}
	if rules.HiddenSectors != nil {
		v.Set("hidden_sectors", rules.HiddenSectors)
	}

	return v.WriteConfigAs(filepath.Join(configDir, "rules.toml"))
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCANNER_USER_ID"); v != "" {
		cfg.Engine.UserID = v
	}
	if v := os.Getenv("SCANNER_FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("SCANNER_DOCS_URL"); v != "" {
		cfg.Documents.BaseURL = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Engine.DebounceWindow <= 0 {
		cfg.Engine.DebounceWindow = 500 * time.Millisecond
	}
	if cfg.Engine.FetchTimeout <= 0 {
		cfg.Engine.FetchTimeout = 10 * time.Second
	}
	if cfg.Feed.PingInterval <= 0 {
		cfg.Feed.PingInterval = 45 * time.Second
	}
	if cfg.Documents.Source == "" {
		cfg.Documents.Source = "store"
	}
	if cfg.Documents.Timeout <= 0 {
		cfg.Documents.Timeout = 10 * time.Second
	}
	if cfg.UI.TimeFormat == "" {
		cfg.UI.TimeFormat = "15:04:05"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Documents.Source != "http" && c.Documents.Source != "store" {
		return fmt.Errorf("invalid documents source: %s (must be 'http' or 'store')", c.Documents.Source)
	}
	if c.Documents.Source == "http" && c.Documents.BaseURL == "" {
		return fmt.Errorf("documents base_url required when source is 'http'")
	}

	if c.Rules.Up.PercentThreshold < 0 || c.Rules.Down.PercentThreshold < 0 {
		return fmt.Errorf("percent thresholds must be non-negative")
	}
	if c.Rules.Up.DollarThreshold < 0 || c.Rules.Down.DollarThreshold < 0 {
		return fmt.Errorf("dollar thresholds must be non-negative")
	}
	if c.Rules.MinPrice < 0 || c.Rules.HiloMinPrice < 0 {
		return fmt.Errorf("price floors must be non-negative")
	}

	return nil
}
