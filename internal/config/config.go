package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/feedchat/feedchat/internal/schedule"
	"go.uber.org/zap/zapcore"
)

// Defaults for unset keys.
const (
	DefaultChannel        = "1ch"
	DefaultRecipient      = "1@ch"
	DefaultPageLimit      = 100
	DefaultPollInterval   = 4 * time.Second
	DefaultRefillInterval = 25 * time.Second
	DefaultRetrySchedule  = "@every 30s"
	DefaultConnectTimeout = 2 * time.Second
	DefaultThumbnailSize  = 256
	DefaultLogLevel       = "info"
)

// Duration is a time.Duration written as a string such as "4s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config represents the global ~/.feedchat/config.toml.
type Config struct {
	DefaultProfile string   `toml:"default_profile"`
	FeedURL        string   `toml:"feed_url"`
	Channel        string   `toml:"channel"`
	Username       string   `toml:"username"`
	Recipient      string   `toml:"recipient"`
	PageLimit      int      `toml:"page_limit"`
	PollInterval   Duration `toml:"poll_interval"`
	RefillInterval Duration `toml:"refill_interval"`
	RetrySchedule  string   `toml:"retry_schedule"`
	ConnectTimeout Duration `toml:"connect_timeout"`
	ThumbnailSize  int      `toml:"thumbnail_size"`
	LogLevel       string   `toml:"log_level"`
}

// Default returns a config with every optional key set.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Channel == "" {
		c.Channel = DefaultChannel
	}
	if c.Recipient == "" {
		c.Recipient = DefaultRecipient
	}
	if c.PageLimit == 0 {
		c.PageLimit = DefaultPageLimit
	}
	if c.PollInterval.Duration == 0 {
		c.PollInterval.Duration = DefaultPollInterval
	}
	if c.RefillInterval.Duration == 0 {
		c.RefillInterval.Duration = DefaultRefillInterval
	}
	if c.RetrySchedule == "" {
		c.RetrySchedule = DefaultRetrySchedule
	}
	if c.ConnectTimeout.Duration == 0 {
		c.ConnectTimeout.Duration = DefaultConnectTimeout
	}
	if c.ThumbnailSize == 0 {
		c.ThumbnailSize = DefaultThumbnailSize
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	if c.FeedURL == "" {
		return errors.New("feed_url is required")
	}
	u, err := url.Parse(c.FeedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("feed_url %q must be an http(s) URL", c.FeedURL)
	}
	if c.Username == "" {
		return errors.New("username is required")
	}
	if c.PageLimit < 1 {
		return fmt.Errorf("page_limit must be positive, got %d", c.PageLimit)
	}
	if c.PollInterval.Duration <= 0 || c.RefillInterval.Duration <= 0 || c.ConnectTimeout.Duration <= 0 {
		return errors.New("intervals and timeouts must be positive")
	}
	if _, err := schedule.Parse(c.RetrySchedule); err != nil {
		return fmt.Errorf("retry_schedule: %w", err)
	}
	if c.ThumbnailSize < 1 {
		return fmt.Errorf("thumbnail_size must be positive, got %d", c.ThumbnailSize)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Load reads config from the given path and fills in defaults. Returns error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
