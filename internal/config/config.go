// Package config provides viper-backed configuration for the pipeline.
// Configuration is loaded once at startup and threaded through component
// constructors; there are no package-level config singletons.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Default values applied when neither config file nor environment provides one.
const (
	DefaultBackfillDays    = 180
	DefaultMaxWindowDays   = 365
	DefaultPageLimit       = 1000
	DefaultMaxPages        = 0 // 0 means no page cap
	DefaultMaxPerSecond    = 1
	DefaultMinInterval     = time.Second
	DefaultMaxRetries      = 5
	DefaultBaseBackoff     = 500 * time.Millisecond
	DefaultMaxBackoff      = 15 * time.Second
	DefaultRequestTimeout  = 90 * time.Second
	DefaultSelectLimit     = 20
	DefaultMinBodyLength   = 400
	DefaultGovMinBody      = 150
	DefaultMinSignals      = 3
	DefaultDeadlineDecay   = 180
	DefaultTopicWeight     = 0.6
	DefaultDomainWeight    = 0.2
	DefaultDeadlineWeight  = 0.2
	DefaultStoragePath     = "data/grants.db"
	DefaultCheckpointPath  = "data/checkpoint.json"
	DefaultRejectsPath     = "data/rejects.jsonl"
	DefaultScrapeDelay     = 2 * time.Second
	DefaultScheduleCron    = "0 6 * * *"
	DefaultSourceName      = "sam"
	DefaultSourceBaseURL   = "https://api.sam.gov/opportunities/v2/search"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// LoggerConfig holds logger settings.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	Encoding    string `mapstructure:"encoding"`
}

// FetchConfig holds rate limiting and retry settings for the fetch client.
type FetchConfig struct {
	// MaxPerSecond caps requests within any rolling one-second window.
	MaxPerSecond int `mapstructure:"max_per_second"`
	// MinInterval is the minimum gap between consecutive requests.
	MinInterval time.Duration `mapstructure:"min_interval"`
	// MaxRetries is the per-page retry budget, including the first attempt.
	MaxRetries  int           `mapstructure:"max_retries"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SourceConfig holds settings for the paginated API source.
type SourceConfig struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	// BackfillDays is the lookback window when no checkpoint exists.
	BackfillDays int `mapstructure:"backfill_days"`
	// MaxWindowDays clamps the posted-date window (upstream API constraint).
	MaxWindowDays int `mapstructure:"max_window_days"`
	PageLimit     int `mapstructure:"page_limit"`
	// MaxPages is a safety valve for pagination; 0 disables the cap.
	MaxPages int `mapstructure:"max_pages"`
	// TitleKeywords prefilters records by title when non-empty.
	TitleKeywords []string `mapstructure:"title_keywords"`
	StateFilter   string   `mapstructure:"state_filter"`
	SetAside      string   `mapstructure:"set_aside"`
}

// ClassifierConfig holds the grantness engine's tunable knobs. The score
// weights and decay window are configuration, not derived values.
type ClassifierConfig struct {
	TrustedHosts      []string `mapstructure:"trusted_hosts"`
	TerritorySuffixes []string `mapstructure:"territory_suffixes"`
	// BlocklistAllowHosts are known mixed-content list pages exempt from the
	// media blocklist stage.
	BlocklistAllowHosts  []string `mapstructure:"blocklist_allow_hosts"`
	TopicKeywords        []string `mapstructure:"topic_keywords"`
	MinBodyLength        int      `mapstructure:"min_body_length"`
	GovMinBodyLength     int      `mapstructure:"gov_min_body_length"`
	MinStructuralSignals int      `mapstructure:"min_structural_signals"`
	// GovLenientSpecificity enables the relaxed specificity stage for
	// government and region-specific domains.
	GovLenientSpecificity bool    `mapstructure:"gov_lenient_specificity"`
	TopicWeight           float64 `mapstructure:"topic_weight"`
	DomainWeight          float64 `mapstructure:"domain_weight"`
	DeadlineWeight        float64 `mapstructure:"deadline_weight"`
	DeadlineDecayDays     int     `mapstructure:"deadline_decay_days"`
}

// ScrapeSource identifies one page to fetch and classify on the scrape path.
type ScrapeSource struct {
	Name   string `mapstructure:"name"`
	URL    string `mapstructure:"url"`
	Region string `mapstructure:"region"`
}

// ScraperConfig holds scrape-path settings.
type ScraperConfig struct {
	Sources []ScrapeSource `mapstructure:"sources"`
	Delay   time.Duration  `mapstructure:"delay"`
}

// StorageConfig holds persisted-store settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// Config is the root configuration object.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Source     SourceConfig     `mapstructure:"source"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Scraper    ScraperConfig    `mapstructure:"scraper"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Checkpoint struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"checkpoint"`
	Rejects struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"rejects"`
	Select struct {
		Limit int `mapstructure:"limit"`
	} `mapstructure:"select"`
	Schedule struct {
		Cron string `mapstructure:"cron"`
	} `mapstructure:"schedule"`
}

// Load unmarshals the current viper state into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime behavior.
func (c *Config) Validate() error {
	if c.Fetch.MaxRetries <= 0 {
		return fmt.Errorf("fetch.max_retries must be positive, got %d", c.Fetch.MaxRetries)
	}
	if c.Source.PageLimit <= 0 || c.Source.PageLimit > DefaultPageLimit {
		return fmt.Errorf("source.page_limit must be in 1..%d, got %d", DefaultPageLimit, c.Source.PageLimit)
	}
	sum := c.Classifier.TopicWeight + c.Classifier.DomainWeight + c.Classifier.DeadlineWeight
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("classifier score weights must sum to 1.0, got %.2f", sum)
	}
	return nil
}

// SetDefaults registers default configuration values with viper. Called once
// during CLI initialization, before the config file is read.
func SetDefaults() {
	viper.SetDefault("app", map[string]any{
		"name":        "grantpull",
		"environment": "production",
		"debug":       false,
	})

	viper.SetDefault("logger", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "json",
	})

	viper.SetDefault("fetch", map[string]any{
		"max_per_second": DefaultMaxPerSecond,
		"min_interval":   DefaultMinInterval.String(),
		"max_retries":    DefaultMaxRetries,
		"base_backoff":   DefaultBaseBackoff.String(),
		"max_backoff":    DefaultMaxBackoff.String(),
		"timeout":        DefaultRequestTimeout.String(),
	})

	viper.SetDefault("source", map[string]any{
		"name":            DefaultSourceName,
		"base_url":        DefaultSourceBaseURL,
		"backfill_days":   DefaultBackfillDays,
		"max_window_days": DefaultMaxWindowDays,
		"page_limit":      DefaultPageLimit,
		"max_pages":       DefaultMaxPages,
		"title_keywords":  defaultTopicKeywords,
	})

	viper.SetDefault("classifier", map[string]any{
		"trusted_hosts":           defaultTrustedHosts,
		"territory_suffixes":      defaultTerritorySuffixes,
		"blocklist_allow_hosts":   []string{},
		"topic_keywords":          defaultTopicKeywords,
		"min_body_length":         DefaultMinBodyLength,
		"gov_min_body_length":     DefaultGovMinBody,
		"min_structural_signals":  DefaultMinSignals,
		"gov_lenient_specificity": true,
		"topic_weight":            DefaultTopicWeight,
		"domain_weight":           DefaultDomainWeight,
		"deadline_weight":         DefaultDeadlineWeight,
		"deadline_decay_days":     DefaultDeadlineDecay,
	})

	viper.SetDefault("scraper", map[string]any{
		"delay": DefaultScrapeDelay.String(),
	})

	viper.SetDefault("storage.path", DefaultStoragePath)
	viper.SetDefault("checkpoint.path", DefaultCheckpointPath)
	viper.SetDefault("rejects.path", DefaultRejectsPath)
	viper.SetDefault("select.limit", DefaultSelectLimit)
	viper.SetDefault("schedule.cron", DefaultScheduleCron)
}

// defaultTopicKeywords is the fixed domain vocabulary used both for the API
// title prefilter and the classifier's topic relevance stage.
var defaultTopicKeywords = []string{
	"trafficking",
	"sex trafficking",
	"human trafficking",
	"victim services",
	"sexual assault",
	"domestic violence",
	"survivor services",
	"violence against women",
	"victim advocacy",
	"shelter",
	"transitional housing",
	"case management",
	"legal aid",
	"counseling",
	"workforce reentry",
}

// defaultTrustedHosts are non-government hosts explicitly allowed through the
// domain allow-list stage.
var defaultTrustedHosts = []string{
	"www.grants.gov",
	"grants.gov",
	"sam.gov",
	"api.sam.gov",
	"www.jaxcf.org",
	"www.fwfn.org",
	"www.myflfamilies.com",
	"www.coj.net",
}

// defaultTerritorySuffixes are regional suffixes granted territory-level
// domain trust.
var defaultTerritorySuffixes = []string{
	".fl.us",
	".state.fl.us",
	".us",
}
