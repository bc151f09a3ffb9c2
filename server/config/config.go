// Package config loads the runboard server configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nomis52/runboard/logging"
	"github.com/nomis52/runboard/server/cron"
)

const (
	defaultAddr          = ":8080"
	defaultPageSize      = 100
	defaultTimeout       = 30 * time.Second
	defaultMetricsPrefix = "runboard"
	defaultJobName       = "runboard"
	defaultPushInterval  = 15 * time.Second

	// Default logging settings
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stdout"
)

// ServerConfig represents the server runtime configuration.
type ServerConfig struct {
	Listener ListenerConfig `yaml:"listener"`
	Logging  logging.Config `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Stores   []StoreConfig  `yaml:"stores"`
}

// ListenerConfig holds HTTP server listener settings.
type ListenerConfig struct {
	// The listen address, defaults to :8080
	Addr string `yaml:"addr"`
	// PEM files for HTTPS. Both or neither must be set.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
}

// MetricsConfig controls metric export. Metrics are always served on
// /metrics; setting PushURL additionally pushes them via remote write.
type MetricsConfig struct {
	PushURL  string        `yaml:"push_url"`
	Prefix   string        `yaml:"prefix"`
	Job      string        `yaml:"job"`
	Instance string        `yaml:"instance"`
	Interval time.Duration `yaml:"interval"`
}

// StoreConfig describes one run store and the upstream it is filled from.
type StoreConfig struct {
	// Name identifies the store in URLs and metrics, e.g. "all" or "mine".
	Name string `yaml:"name"`
	// Upstream is the URL pages of runs are POSTed for.
	Upstream string `yaml:"upstream"`
	PageSize int    `yaml:"page_size"`
	// Refresh is an optional cron spec for periodic refreshes.
	Refresh string        `yaml:"refresh"`
	Timeout time.Duration `yaml:"timeout"`
	// EmptyFilters starts the store with an empty filter set instead of none.
	EmptyFilters bool `yaml:"empty_filters"`
}

// LoadConfig reads the YAML config file at the given path and returns a ServerConfig struct.
func LoadConfig(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open server config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode YAML server config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config %s: %w", path, err)
	}
	return &cfg, nil
}

// SetDefaults sets reasonable default values for optional fields.
func (c *ServerConfig) SetDefaults() {
	if c.Listener.Addr == "" {
		c.Listener.Addr = defaultAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
	if c.Metrics.Prefix == "" {
		c.Metrics.Prefix = defaultMetricsPrefix
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = defaultJobName
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = defaultPushInterval
	}
	for i := range c.Stores {
		s := &c.Stores[i]
		if s.PageSize == 0 {
			s.PageSize = defaultPageSize
		}
		if s.Timeout == 0 {
			s.Timeout = defaultTimeout
		}
	}
}

// Validate checks that the configuration describes at least one usable store.
func (c *ServerConfig) Validate() error {
	if (c.Listener.TLSCert == "") != (c.Listener.TLSKey == "") {
		return errors.New("listener tls_cert and tls_key must be set together")
	}
	if len(c.Stores) == 0 {
		return errors.New("at least one store is required")
	}

	seen := make(map[string]bool, len(c.Stores))
	for i, s := range c.Stores {
		if s.Name == "" {
			return fmt.Errorf("store %d: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate store name %q", s.Name)
		}
		seen[s.Name] = true

		if s.Upstream == "" {
			return fmt.Errorf("store %q: upstream is required", s.Name)
		}
		if s.PageSize < 0 {
			return fmt.Errorf("store %q: page_size must be positive", s.Name)
		}
		if s.Timeout < 0 {
			return fmt.Errorf("store %q: timeout must be positive", s.Name)
		}
		if s.Refresh != "" {
			if err := cron.ValidateSpec(s.Refresh); err != nil {
				return fmt.Errorf("store %q: %w", s.Name, err)
			}
		}
	}

	if c.Metrics.Interval < 0 {
		return errors.New("metrics interval must be positive")
	}
	return nil
}

// Redacted returns a copy of the config with URL passwords masked.
func (c *ServerConfig) Redacted() ServerConfig {
	out := *c
	out.Metrics.PushURL = redactURL(c.Metrics.PushURL)
	out.Stores = make([]StoreConfig, len(c.Stores))
	for i, s := range c.Stores {
		s.Upstream = redactURL(s.Upstream)
		out.Stores[i] = s
	}
	return out
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}
