// Package config loads and validates the YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the notification backend.
type Config struct {
	Feed          FeedConfig
	RedisURL      string
	SQLitePath    string
	ListenAddr    string
	BackendHost   string
	FrontendHost  string
	Cron          CronConfig
	Line          LineConfig
	Delivery      DeliveryConfig
	LedgerCap     int
	Accessibility AccessibilityConfig
}

// FeedConfig points at the upstream job-listing page.
type FeedConfig struct {
	URL     string
	Timeout time.Duration
}

// CronConfig holds the two scheduled triggers: one refreshes the listing
// snapshot, the other runs the notify cycle against it.
type CronConfig struct {
	RefreshSpec string
	NotifySpec  string
}

// LineConfig holds the LINE Notify OAuth client used during onboarding.
type LineConfig struct {
	ClientID     string
	ClientSecret string
}

// DeliveryConfig controls the delivery worker and queue.
type DeliveryConfig struct {
	MaxAttempts int           // terminal attempt count for a delivery job
	InlineLimit int           // listings sent as individual messages per job
	ViewTTL     time.Duration // retention of materialized view artifacts
	SendDelay   time.Duration // minimum gap between consecutive channel sends
}

// AccessibilityConfig externalizes the accessibility-requirement heuristics.
// Phrase is matched against the eligibility text and the title; a match in the
// eligibility text is discarded when Qualifier appears within QualifierWindow
// runes after the phrase (a "preferred, not required" carve-out).
type AccessibilityConfig struct {
	Phrase          string
	Qualifier       string
	QualifierWindow int
}

const (
	defaultFeedURL   = "http://opencpa.castman.net/"
	defaultPhrase    = "具身心障礙證明"
	defaultQualifier = "優先"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Feed struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"feed"`
	RedisURL     string `yaml:"redis_url"`
	SQLitePath   string `yaml:"sqlite_path"`
	ListenAddr   string `yaml:"listen_addr"`
	BackendHost  string `yaml:"backend_host"`
	FrontendHost string `yaml:"frontend_host"`
	Cron         struct {
		RefreshSpec string `yaml:"refresh_spec"`
		NotifySpec  string `yaml:"notify_spec"`
	} `yaml:"cron"`
	Line struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
	} `yaml:"line"`
	Delivery struct {
		MaxAttempts int    `yaml:"max_attempts"`
		InlineLimit int    `yaml:"inline_limit"`
		ViewTTL     string `yaml:"view_ttl"`
		SendDelay   string `yaml:"send_delay"`
	} `yaml:"delivery"`
	LedgerCap     int `yaml:"ledger_cap"`
	Accessibility struct {
		Phrase          string `yaml:"phrase"`
		Qualifier       string `yaml:"qualifier"`
		QualifierWindow int    `yaml:"qualifier_window"`
	} `yaml:"accessibility"`
}

// Load reads and parses the YAML config file at path, applies defaults,
// validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables (secrets are referenced as ${VAR}).
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	feedTimeout := 30 * time.Second
	if raw.Feed.Timeout != "" {
		feedTimeout, err = time.ParseDuration(raw.Feed.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse feed.timeout %q: %w", raw.Feed.Timeout, err)
		}
	}

	viewTTL := 7 * 24 * time.Hour
	if raw.Delivery.ViewTTL != "" {
		viewTTL, err = time.ParseDuration(raw.Delivery.ViewTTL)
		if err != nil {
			return nil, fmt.Errorf("parse delivery.view_ttl %q: %w", raw.Delivery.ViewTTL, err)
		}
	}

	sendDelay := 500 * time.Millisecond
	if raw.Delivery.SendDelay != "" {
		sendDelay, err = time.ParseDuration(raw.Delivery.SendDelay)
		if err != nil {
			return nil, fmt.Errorf("parse delivery.send_delay %q: %w", raw.Delivery.SendDelay, err)
		}
	}

	cfg := &Config{
		Feed: FeedConfig{
			URL:     raw.Feed.URL,
			Timeout: feedTimeout,
		},
		RedisURL:     raw.RedisURL,
		SQLitePath:   raw.SQLitePath,
		ListenAddr:   raw.ListenAddr,
		BackendHost:  raw.BackendHost,
		FrontendHost: raw.FrontendHost,
		Cron: CronConfig{
			RefreshSpec: raw.Cron.RefreshSpec,
			NotifySpec:  raw.Cron.NotifySpec,
		},
		Line: LineConfig{
			ClientID:     raw.Line.ClientID,
			ClientSecret: raw.Line.ClientSecret,
		},
		Delivery: DeliveryConfig{
			MaxAttempts: raw.Delivery.MaxAttempts,
			InlineLimit: raw.Delivery.InlineLimit,
			ViewTTL:     viewTTL,
			SendDelay:   sendDelay,
		},
		LedgerCap: raw.LedgerCap,
		Accessibility: AccessibilityConfig{
			Phrase:          raw.Accessibility.Phrase,
			Qualifier:       raw.Accessibility.Qualifier,
			QualifierWindow: raw.Accessibility.QualifierWindow,
		},
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Feed.URL == "" {
		cfg.Feed.URL = defaultFeedURL
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "subscriptions.db"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8787"
	}
	if cfg.Cron.RefreshSpec == "" {
		cfg.Cron.RefreshSpec = "30 9 * * *"
	}
	if cfg.Cron.NotifySpec == "" {
		cfg.Cron.NotifySpec = "0 10 * * *"
	}
	if cfg.Delivery.MaxAttempts == 0 {
		cfg.Delivery.MaxAttempts = 4
	}
	if cfg.Delivery.InlineLimit == 0 {
		cfg.Delivery.InlineLimit = 10
	}
	if cfg.LedgerCap == 0 {
		cfg.LedgerCap = 50000
	}
	if cfg.Accessibility.Phrase == "" {
		cfg.Accessibility.Phrase = defaultPhrase
	}
	if cfg.Accessibility.Qualifier == "" {
		cfg.Accessibility.Qualifier = defaultQualifier
	}
	if cfg.Accessibility.QualifierWindow == 0 {
		cfg.Accessibility.QualifierWindow = 10
	}
}

func validate(cfg *Config) error {
	if cfg.RedisURL == "" {
		return fmt.Errorf("redis_url is required")
	}
	if cfg.Feed.Timeout <= 0 {
		return fmt.Errorf("feed.timeout must be positive, got %v", cfg.Feed.Timeout)
	}
	if cfg.Delivery.MaxAttempts < 1 {
		return fmt.Errorf("delivery.max_attempts must be at least 1, got %d", cfg.Delivery.MaxAttempts)
	}
	if cfg.Delivery.InlineLimit < 1 {
		return fmt.Errorf("delivery.inline_limit must be at least 1, got %d", cfg.Delivery.InlineLimit)
	}
	if cfg.LedgerCap < 1 {
		return fmt.Errorf("ledger_cap must be at least 1, got %d", cfg.LedgerCap)
	}
	return nil
}
