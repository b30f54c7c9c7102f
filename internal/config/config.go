// Package config defines run configuration and its loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file, a .env file and WFM_* variables on top.
// - Validation failures wrap ErrInvalidConfig through FieldError.
package config

import (
	"runtime"
	"slices"
	"strings"

	"github.com/okian/wfmsim/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// WorkerCount sets the number of simulation workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the work unit queue.
	QueueSize int `koanf:"queue_size"`

	// CacheSize bounds each worker's Erlang C memo.
	CacheSize int `koanf:"cache_size"`

	// MaxAgents caps the real-time agent search (seat count); 0 means no cap.
	MaxAgents int `koanf:"max_agents"`

	// HorizonDays is the forecast horizon in days.
	HorizonDays int `koanf:"horizon_days"`

	// IntervalMinutes is the run granularity; finer history is re-aggregated.
	IntervalMinutes int `koanf:"interval_minutes"`

	// HoldoutDays is the trailing window scored by the accuracy evaluator.
	HoldoutDays int `koanf:"holdout_days"`

	// InputPath points at the interval history CSV.
	InputPath string `koanf:"input_path"`

	// OutputDriver is one of sqlite, mysql, csv, memory.
	OutputDriver string `koanf:"output_driver"`

	// OutputDSN is the file, URL or directory for OutputDriver.
	OutputDSN string `koanf:"output_dsn"`

	// MetricsAddr serves /metrics while the run is in progress when set.
	MetricsAddr string `koanf:"metrics_addr"`

	// PushGatewayURL receives the run's metrics at exit when set.
	PushGatewayURL string `koanf:"push_gateway_url"`

	// Progress renders a progress bar on stderr.
	Progress bool `koanf:"progress"`

	// Channels maps channel name to its service commitment.
	Channels map[string]model.ChannelProfile `koanf:"channels"`

	// Scenarios lists the what-if runs; baseline is added when absent.
	Scenarios []model.Scenario `koanf:"scenarios"`
}

// Output drivers accepted by Validate.
var outputDrivers = []string{"sqlite", "mysql", "mariadb", "csv", "memory"}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		WorkerCount:     runtime.NumCPU(),
		QueueSize:       1024,
		CacheSize:       4096,
		HorizonDays:     14,
		IntervalMinutes: 30,
		HoldoutDays:     7,
		OutputDriver:    "sqlite",
		OutputDSN:       "wfmsim.db",
		Progress:        true,
		Channels:        DefaultChannels(),
		Scenarios:       model.DefaultScenarios(),
	}
}

// DefaultChannels returns the stock channel table.
func DefaultChannels() map[string]model.ChannelProfile {
	return map[string]model.ChannelProfile{
		"voice": {IsRealTime: true, SLATargetSeconds: 20, SLATargetFraction: 0.80},
		"chat":  {IsRealTime: true, SLATargetSeconds: 30, SLATargetFraction: 0.80},
		"email": {IsRealTime: false, SLATargetFraction: 0.90},
	}
}

// Validate checks run parameters, the channel table and the scenario set.
func (c *Config) Validate() error {
	switch {
	case c.WorkerCount <= 0:
		return fieldErr("worker_count", "must be > 0, got %d", c.WorkerCount)
	case c.QueueSize <= 0:
		return fieldErr("queue_size", "must be > 0, got %d", c.QueueSize)
	case c.CacheSize < 0:
		return fieldErr("cache_size", "must be >= 0, got %d", c.CacheSize)
	case c.MaxAgents < 0:
		return fieldErr("max_agents", "must be >= 0, got %d", c.MaxAgents)
	case c.HorizonDays <= 0:
		return fieldErr("horizon_days", "must be > 0, got %d", c.HorizonDays)
	case c.HoldoutDays <= 0:
		return fieldErr("holdout_days", "must be > 0, got %d", c.HoldoutDays)
	case !model.IsAllowedInterval(c.IntervalMinutes):
		return fieldErr("interval_minutes", "must be one of %v, got %d", model.AllowedIntervalMinutes, c.IntervalMinutes)
	case !slices.Contains(outputDrivers, strings.ToLower(c.OutputDriver)):
		return fieldErr("output_driver", "must be one of %v, got %q", outputDrivers, c.OutputDriver)
	case len(c.Channels) == 0:
		return fieldErr("channels", "at least one channel is required")
	}
	if _, err := c.ChannelTable(); err != nil {
		return &FieldError{Field: "channels", Err: err}
	}
	if _, err := c.ScenarioSet(); err != nil {
		return &FieldError{Field: "scenarios", Err: err}
	}
	return nil
}

// ChannelTable builds the validated channel lookup.
func (c *Config) ChannelTable() (*model.ChannelTable, error) {
	return model.NewChannelTable(c.Channels)
}

// ScenarioSet builds the validated scenario set, baseline first when implied.
func (c *Config) ScenarioSet() (model.ScenarioSet, error) {
	return model.NewScenarioSet(c.Scenarios)
}
