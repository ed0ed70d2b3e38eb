// Package main provides the alertd server CLI.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
	Alerting AlertingConfig `yaml:"alerting"`
	Notifier NotifierConfig `yaml:"notifier"`
	Journal  JournalConfig  `yaml:"journal"`
	Verbose  bool           `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	HTTPAddress     string        `yaml:"http_address" env:"ALERTD_HTTP_ADDRESS"`
	RateLimitPerIP  float64       `yaml:"rate_limit_per_ip" env:"ALERTD_RATE_LIMIT_PER_IP"` // requests per second, negative disables
	RateLimitBurst  int           `yaml:"rate_limit_burst" env:"ALERTD_RATE_LIMIT_BURST"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"ALERTD_SHUTDOWN_TIMEOUT"`
	TLSCertFile     string        `yaml:"tls_cert_file" env:"ALERTD_TLS_CERT_FILE"`
	TLSKeyFile      string        `yaml:"tls_key_file" env:"ALERTD_TLS_KEY_FILE"`
	TLSClientCAFile string        `yaml:"tls_client_ca_file" env:"ALERTD_TLS_CLIENT_CA_FILE"` // enables mTLS
}

// MetricsConfig contains Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ALERTD_METRICS_ENABLED"`
	Address string `yaml:"address" env:"ALERTD_METRICS_ADDRESS"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"ALERTD_LOG_LEVEL"`
	Format string `yaml:"format" env:"ALERTD_LOG_FORMAT"` // json or console
}

// AlertingConfig contains rule engine settings.
type AlertingConfig struct {
	HistorySize      int           `yaml:"history_size" env:"ALERTD_HISTORY_SIZE"`
	SweepInterval    time.Duration `yaml:"sweep_interval" env:"ALERTD_SWEEP_INTERVAL"`
	AlertRetention   time.Duration `yaml:"alert_retention" env:"ALERTD_ALERT_RETENTION"`
	HistoryRetention time.Duration `yaml:"history_retention" env:"ALERTD_HISTORY_RETENTION"`
	RulesFile        string        `yaml:"rules_file" env:"ALERTD_RULES_FILE"`
	WatchRules       bool          `yaml:"watch_rules" env:"ALERTD_WATCH_RULES"` // only used with rules_file
	LoadDefaultRules bool          `yaml:"load_default_rules" env:"ALERTD_LOAD_DEFAULT_RULES"`
}

// NotifierConfig contains delivery settings.
type NotifierConfig struct {
	DeliveryTimeout     time.Duration `yaml:"delivery_timeout" env:"ALERTD_DELIVERY_TIMEOUT"`
	MaxConcurrent       int           `yaml:"max_concurrent" env:"ALERTD_MAX_CONCURRENT_DELIVERIES"`
	ChannelsFile        string        `yaml:"channels_file" env:"ALERTD_CHANNELS_FILE"`
	LoadDefaultChannels bool          `yaml:"load_default_channels" env:"ALERTD_LOAD_DEFAULT_CHANNELS"`
	// ChannelsKey unlocks a sealed (.enc) channels file. Never read from YAML.
	ChannelsKey string `yaml:"-" env:"ALERTD_CHANNELS_KEY"`
}

// JournalConfig contains alert journal settings.
type JournalConfig struct {
	Enabled    bool          `yaml:"enabled" env:"ALERTD_JOURNAL_ENABLED"`
	Path       string        `yaml:"path" env:"ALERTD_JOURNAL_PATH"`
	Retention  time.Duration `yaml:"retention" env:"ALERTD_JOURNAL_RETENTION"`
	BufferSize int           `yaml:"buffer_size" env:"ALERTD_JOURNAL_BUFFER_SIZE"`
}

// LoadConfig loads configuration from a YAML file, then applies ALERTD_*
// environment overrides. Keys absent from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finishConfig(cfg, nil)
}

// LoadConfigFromEnv builds a configuration from defaults and the environment.
func LoadConfigFromEnv() (*Config, error) {
	return finishConfig(DefaultConfig(), nil)
}

// finishConfig applies environment overrides, defaults and validation.
// A nil environ reads the process environment.
func finishConfig(cfg *Config, environ map[string]string) (*Config, error) {
	if err := applyEnv(cfg, environ); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config, environ map[string]string) error {
	var err error
	if environ == nil {
		err = env.Parse(cfg)
	} else {
		err = env.ParseWithOptions(cfg, env.Options{Environment: environ})
	}
	if err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{
		Metrics:  MetricsConfig{Enabled: true},
		Alerting: AlertingConfig{WatchRules: true, LoadDefaultRules: true},
		Notifier: NotifierConfig{LoadDefaultChannels: true},
	}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Alerting.HistorySize == 0 {
		c.Alerting.HistorySize = 1000
	}
	if c.Alerting.SweepInterval == 0 {
		c.Alerting.SweepInterval = 30 * time.Second
	}
	if c.Alerting.AlertRetention == 0 {
		c.Alerting.AlertRetention = 24 * time.Hour
	}
	if c.Alerting.HistoryRetention == 0 {
		c.Alerting.HistoryRetention = time.Hour
	}
	if c.Notifier.DeliveryTimeout == 0 {
		c.Notifier.DeliveryTimeout = 10 * time.Second
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "./data/alertd.db"
	}
	if c.Journal.Retention == 0 {
		c.Journal.Retention = 30 * 24 * time.Hour
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = 1000
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPAddress == "" {
		return fmt.Errorf("server.http_address is required")
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return fmt.Errorf("server.tls_cert_file and server.tls_key_file must be set together")
	}
	if c.Server.TLSClientCAFile != "" && c.Server.TLSCertFile == "" {
		return fmt.Errorf("server.tls_client_ca_file requires server.tls_cert_file")
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.address is required when metrics are enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Address == c.Server.HTTPAddress {
		return fmt.Errorf("metrics.address must differ from server.http_address")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console", "text":
	default:
		return fmt.Errorf("log.format must be json or console")
	}
	if c.Alerting.HistorySize < 0 {
		return fmt.Errorf("alerting.history_size must not be negative")
	}
	if c.Alerting.SweepInterval < time.Second {
		return fmt.Errorf("alerting.sweep_interval must be at least 1s")
	}
	if c.Alerting.AlertRetention < 0 || c.Alerting.HistoryRetention < 0 {
		return fmt.Errorf("alerting retention must not be negative")
	}
	if c.Notifier.DeliveryTimeout < 0 {
		return fmt.Errorf("notifier.delivery_timeout must not be negative")
	}
	if c.Notifier.MaxConcurrent < 0 {
		return fmt.Errorf("notifier.max_concurrent must not be negative")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	return nil
}
