package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type PrometheusCfg struct {
	Port     int  `yaml:"port" json:"port"`
	Disabled bool `yaml:"disabled" json:"disabled"` // Skip the metrics and control API listener
}

type LoggingCfg struct {
	Level      string `yaml:"level" json:"level"`               // debug, info, warn, error
	Pretty     bool   `yaml:"pretty" json:"pretty"`             // Console writer instead of JSON
	File       string `yaml:"file" json:"file"`                 // Optional rotated log file
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`   // Rotate after this many megabytes
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`   // Rotated files to keep
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"` // Days to keep rotated files
	Compress   bool   `yaml:"compress" json:"compress"`
}

type APICfg struct {
	RateLimit    float64 `yaml:"rate_limit" json:"rate_limit"`         // Requests per second per client
	Burst        int     `yaml:"burst" json:"burst"`                   // Burst size per client
	MaxBodyBytes int64   `yaml:"max_body_bytes" json:"max_body_bytes"` // Request body cap for POST
}

type Config struct {
	Logging              LoggingCfg    `yaml:"logging" json:"logging"`
	Prometheus           PrometheusCfg `yaml:"prometheus" json:"prometheus"`
	API                  APICfg        `yaml:"api" json:"api"`
	DatabasePath         *string       `yaml:"database_path" json:"database_path"` // nil means default, "" disables history
	DefaultDelaySeconds  float64       `yaml:"default_delay_seconds" json:"default_delay_seconds"`
	HistoryRetentionDays int           `yaml:"history_retention_days" json:"history_retention_days"`
}

const DefaultDatabasePath = "/var/lib/file-reaper/deletions.db"

var (
	errNegativeDelay     = errors.New("default_delay_seconds cannot be negative")
	errNegativeRetention = errors.New("history_retention_days cannot be negative")
	errInvalidLevel      = errors.New("logging.level must be one of debug, info, warn, error")
	errNegativePort      = errors.New("prometheus.port cannot be negative")
)

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes, validates and defaults a YAML configuration.
func Parse(r io.Reader) (*Config, error) {
	cfg, err := decode(r)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	// An empty config always validates.
	_ = cfg.validateAndDefault()
	return cfg
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if c.DefaultDelaySeconds < 0 {
		return errNegativeDelay
	}
	if c.HistoryRetentionDays < 0 {
		return errNegativeRetention
	}
	if c.Prometheus.Port < 0 {
		return errNegativePort
	}
	if c.Prometheus.Port == 0 {
		c.Prometheus.Port = 9090
	}

	switch c.Logging.Level {
	case "":
		c.Logging.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", errInvalidLevel, c.Logging.Level)
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = 5
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = 30
	}

	if c.API.RateLimit <= 0 {
		c.API.RateLimit = 10
	}
	if c.API.Burst <= 0 {
		c.API.Burst = 20
	}
	if c.API.MaxBodyBytes <= 0 {
		c.API.MaxBodyBytes = 1 << 20
	}

	if c.DatabasePath == nil {
		p := DefaultDatabasePath
		c.DatabasePath = &p
	}

	if c.HistoryRetentionDays == 0 {
		c.HistoryRetentionDays = 30
	}

	return nil
}

// HistoryEnabled reports whether deletion outcomes are persisted.
func (c *Config) HistoryEnabled() bool {
	return c.DatabasePath != nil && *c.DatabasePath != ""
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}
