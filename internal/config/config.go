// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and environment variables.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SourceURL locates the competence document: http(s) URL, file:// URL or path.
	SourceURL string `koanf:"source_url"`

	// FetchTimeoutMS bounds a single fetch attempt.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// FetchMaxRetries caps retries of transient fetch failures.
	FetchMaxRetries int `koanf:"fetch_max_retries"`

	// RefreshIntervalMS sets the periodic refresh; 0 disables it.
	RefreshIntervalMS int `koanf:"refresh_interval_ms"`

	// QueueSize bounds pending refresh requests.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of refresh workers.
	WorkerCount int `koanf:"worker_count"`

	// ChartTitle is returned in the chart payload.
	ChartTitle string `koanf:"chart_title"`

	// Palette lists colours assigned to categories in order.
	Palette []string `koanf:"palette"`

	// MetricsNamespace prefixes every Prometheus metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsLabels are constant labels attached to every metric,
	// e.g. deployment or region.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		SourceURL:         "data/competence.json",
		FetchTimeoutMS:    10_000,
		FetchMaxRetries:   3,
		RefreshIntervalMS: 60_000,
		QueueSize:         16,
		WorkerCount:       1,
		ChartTitle:        "Competencies by Category",
		Palette: []string{
			"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
			"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
		},
		MetricsNamespace: "competence",
	}
}

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// RefreshInterval returns RefreshIntervalMS as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMS) * time.Millisecond
}
