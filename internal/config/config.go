// Package config provides the configuration schema, loader, and provider
// registry for the interloq practice pipeline.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// LogFormat selects the slog handler encoding.
type LogFormat string

const (
	LogText LogFormat = "text"
	LogJSON LogFormat = "json"
)

// IsValid reports whether f is a recognised log format.
func (f LogFormat) IsValid() bool {
	return f == LogText || f == LogJSON
}

// Config is the root configuration structure for interloq.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Practice  PracticeConfig  `yaml:"practice"`
	Scripts   ScriptsConfig   `yaml:"scripts"`
}

// ServerConfig holds the optional monitoring HTTP server settings.
type ServerConfig struct {
	// ListenAddr is the address for the health and metrics endpoints
	// (e.g. ":9090"). Empty means the server is not started.
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level controls verbosity. Defaults to info.
	Level LogLevel `yaml:"level"`

	// Format selects text or json output. Defaults to text.
	Format LogFormat `yaml:"format"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	// Recognizer is the streaming speech-to-text backend.
	Recognizer ProviderEntry `yaml:"recognizer"`

	// Assessor is the pronunciation-assessment backend. Leaving it
	// unconfigured means pronunciation always uses the text heuristic.
	Assessor ProviderEntry `yaml:"assessor"`

	// Scorer is the language-model backend used for content grading.
	Scorer ProviderEntry `yaml:"scorer"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "deepgram", "azure", "gemini").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// Region selects the provider's service region where applicable
	// (e.g., "koreacentral" for the Azure speech service).
	Region string `yaml:"region"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "nova-2", "gemini-2.0-flash").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// Configured reports whether the entry selects a provider at all.
func (e ProviderEntry) Configured() bool { return e.Name != "" }

// PracticeConfig tunes the capture and evaluation behaviour of a session.
type PracticeConfig struct {
	// CountdownTicks is the number of countdown steps before recording
	// starts. Defaults to 3.
	CountdownTicks int `yaml:"countdown_ticks"`

	// CountdownInterval is the delay between countdown ticks.
	// Defaults to 1s.
	CountdownInterval time.Duration `yaml:"countdown_interval"`

	// HighlightThreshold is the per-word accuracy below which a word is
	// highlighted in the aligned transcript. Defaults to 70.
	HighlightThreshold int `yaml:"highlight_threshold"`

	// KeepInterimOnStop appends the last interim segment to the stable
	// transcript when recording stops before a final arrived for it.
	// Off by default: interim text is never committed.
	KeepInterimOnStop bool `yaml:"keep_interim_on_stop"`

	// LongPauseGapMs is the minimum silence between words reported as a
	// long pause on the timeline. Defaults to 1500.
	LongPauseGapMs int `yaml:"long_pause_gap_ms"`

	// HistoryFile is the path of the attempt log, one JSON record per
	// scored attempt. Empty disables attempt history.
	HistoryFile string `yaml:"history_file"`
}

// ScriptsConfig points at the reference material to practice against.
type ScriptsConfig struct {
	// Deck is the path to a practice deck YAML file.
	Deck string `yaml:"deck"`
}

// Default values applied by [ApplyDefaults].
const (
	DefaultCountdownTicks     = 3
	DefaultCountdownInterval  = time.Second
	DefaultHighlightThreshold = 70
	DefaultLongPauseGapMs     = 1500
)

// ApplyDefaults fills zero-valued tunables with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogText
	}
	if cfg.Practice.CountdownTicks == 0 {
		cfg.Practice.CountdownTicks = DefaultCountdownTicks
	}
	if cfg.Practice.CountdownInterval == 0 {
		cfg.Practice.CountdownInterval = DefaultCountdownInterval
	}
	if cfg.Practice.HighlightThreshold == 0 {
		cfg.Practice.HighlightThreshold = DefaultHighlightThreshold
	}
	if cfg.Practice.LongPauseGapMs == 0 {
		cfg.Practice.LongPauseGapMs = DefaultLongPauseGapMs
	}
}
