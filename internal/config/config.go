// Package config provides file- and environment-driven construction of
// client settings, for embedding applications and the demo CLI that would
// rather not wire up functional options by hand.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PublisherConfig holds Publisher tuning knobs.
type PublisherConfig struct {
	TimeoutSeconds          int `yaml:"timeout_seconds"`
	ReconfigureIntervalSecs int `yaml:"reconfigure_interval_seconds"`
	TaskQueueCapacity       int `yaml:"task_queue_capacity"`
}

// ConsumerConfig holds Consumer tuning knobs.
type ConsumerConfig struct {
	TimeoutSeconds          int `yaml:"timeout_seconds"`
	ReconfigureIntervalSecs int `yaml:"reconfigure_interval_seconds"`
	PreFetchCount           int `yaml:"pre_fetch_count"`
	AckMessageBufferSize    int `yaml:"ack_message_buffer_size"`
	AckMessageThreadCount   int `yaml:"ack_message_thread_count"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled          bool      `yaml:"enabled"`
	Namespace        string    `yaml:"namespace"`
	HistogramBuckets []float64 `yaml:"histogram_buckets"`
}

// ObservabilityConfig groups logging and metrics settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Config is the central configuration struct for applications that want
// file- or environment-driven construction of a Client, Publisher, and
// Consumer instead of functional options.
type Config struct {
	DeploymentStr string              `yaml:"deployment_str"`
	FrontendAddr  string              `yaml:"frontend_addr"`
	Publisher     PublisherConfig     `yaml:"publisher"`
	Consumer      ConsumerConfig      `yaml:"consumer"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// DefaultConfig returns a Config with the reference client's defaults.
func DefaultConfig() *Config {
	return &Config{
		Publisher: PublisherConfig{
			TimeoutSeconds:          10,
			ReconfigureIntervalSecs: 60,
			TaskQueueCapacity:       10000,
		},
		Consumer: ConsumerConfig{
			TimeoutSeconds:          10,
			ReconfigureIntervalSecs: 60,
			PreFetchCount:           100,
			AckMessageBufferSize:    1000,
			AckMessageThreadCount:   2,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
			Metrics: MetricsConfig{
				Enabled:          true,
				Namespace:        "cherami_client",
				HistogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
		},
	}
}

// LoadFromFile loads configuration from a YAML file, starting from
// DefaultConfig so unset fields keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv applies CHERAMI_-prefixed environment variable overrides to cfg.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("CHERAMI_DEPLOYMENT_STR"); v != "" {
		cfg.DeploymentStr = v
	}
	if v := os.Getenv("CHERAMI_FRONTEND_ADDR"); v != "" {
		cfg.FrontendAddr = v
	}
	if v := os.Getenv("CHERAMI_LOG_LEVEL"); v != "" {
		cfg.Observability.Logging.Level = v
	}
	if v := os.Getenv("CHERAMI_LOG_FORMAT"); v != "" {
		cfg.Observability.Logging.Format = v
	}
	if v := os.Getenv("CHERAMI_METRICS_ENABLED"); v != "" {
		cfg.Observability.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("CHERAMI_METRICS_NAMESPACE"); v != "" {
		cfg.Observability.Metrics.Namespace = v
	}
	if v := os.Getenv("CHERAMI_PUBLISHER_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Publisher.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("CHERAMI_PUBLISHER_RECONFIGURE_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Publisher.ReconfigureIntervalSecs = n
		}
	}
	if v := os.Getenv("CHERAMI_PUBLISHER_TASK_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Publisher.TaskQueueCapacity = n
		}
	}
	if v := os.Getenv("CHERAMI_CONSUMER_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Consumer.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("CHERAMI_CONSUMER_RECONFIGURE_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Consumer.ReconfigureIntervalSecs = n
		}
	}
	if v := os.Getenv("CHERAMI_CONSUMER_PRE_FETCH_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Consumer.PreFetchCount = n
		}
	}
	if v := os.Getenv("CHERAMI_CONSUMER_ACK_MESSAGE_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Consumer.AckMessageBufferSize = n
		}
	}
	if v := os.Getenv("CHERAMI_CONSUMER_ACK_MESSAGE_THREAD_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Consumer.AckMessageThreadCount = n
		}
	}
}

// PublisherTimeout returns the publisher timeout as a time.Duration.
func (c *Config) PublisherTimeout() time.Duration {
	return time.Duration(c.Publisher.TimeoutSeconds) * time.Second
}

// ConsumerTimeout returns the consumer timeout as a time.Duration.
func (c *Config) ConsumerTimeout() time.Duration {
	return time.Duration(c.Consumer.TimeoutSeconds) * time.Second
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}
