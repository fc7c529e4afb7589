package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"recognizer": {"deepgram", "whisper"},
	"assessor":   {"azure"},
	"scorer":     {"gemini", "openai", "anthropic", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Logging.Level != "" && !cfg.Logging.Level.IsValid() {
		errs = append(errs, fmt.Errorf("logging.level %q is invalid; valid values: debug, info, warn, error", cfg.Logging.Level))
	}
	if cfg.Logging.Format != "" && !cfg.Logging.Format.IsValid() {
		errs = append(errs, fmt.Errorf("logging.format %q is invalid; valid values: text, json", cfg.Logging.Format))
	}

	// Provider name validation warns for unknown provider names.
	validateProviderName("recognizer", cfg.Providers.Recognizer.Name)
	validateProviderName("assessor", cfg.Providers.Assessor.Name)
	validateProviderName("scorer", cfg.Providers.Scorer.Name)

	// A session without a recognizer fails fast at start; flag it early.
	if !cfg.Providers.Recognizer.Configured() {
		slog.Warn("providers.recognizer is not configured; practice sessions cannot start")
	}

	if cfg.Providers.Assessor.Configured() {
		if cfg.Providers.Assessor.APIKey == "" {
			errs = append(errs, errors.New("providers.assessor.api_key is required when an assessor is configured"))
		}
		if cfg.Providers.Assessor.Name == "azure" && cfg.Providers.Assessor.Region == "" {
			errs = append(errs, errors.New("providers.assessor.region is required for the azure assessor"))
		}
	} else {
		slog.Warn("providers.assessor is not configured; pronunciation scoring will use the text heuristic")
	}

	if !cfg.Providers.Scorer.Configured() {
		slog.Warn("providers.scorer is not configured; content scoring is disabled")
	}

	if cfg.Practice.CountdownTicks < 0 {
		errs = append(errs, fmt.Errorf("practice.countdown_ticks %d must not be negative", cfg.Practice.CountdownTicks))
	}
	if cfg.Practice.CountdownInterval < 0 {
		errs = append(errs, fmt.Errorf("practice.countdown_interval %s must not be negative", cfg.Practice.CountdownInterval))
	}
	if cfg.Practice.HighlightThreshold < 0 || cfg.Practice.HighlightThreshold > 100 {
		errs = append(errs, fmt.Errorf("practice.highlight_threshold %d is out of range [0, 100]", cfg.Practice.HighlightThreshold))
	}
	if cfg.Practice.LongPauseGapMs < 0 {
		errs = append(errs, fmt.Errorf("practice.long_pause_gap_ms %d must not be negative", cfg.Practice.LongPauseGapMs))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
