// Package config provides configuration management for the normalizer pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrNoFields                 = errors.New("at least one field rule is required")
	ErrFieldMissingName         = errors.New("field name is required")
	ErrUnknownRule              = errors.New("unknown rule")
	ErrDuplicateField           = errors.New("duplicate field rule")
	ErrExtractMissingKey        = errors.New("extract rule requires a key")
	ErrVocabularyNotDefined     = errors.New("vocab rule references undefined vocabulary")
	ErrVocabularyEmpty          = errors.New("vocabulary must define at least one label")
	ErrChronologyIncomplete     = errors.New("chronology requires arrival, consultation and next_visit fields")
	ErrDedupeIncomplete         = errors.New("dedupe requires both title and url fields")
	ErrImputationMissingField   = errors.New("imputation entry requires a field")
	ErrInvalidStrategy          = errors.New("imputation strategy must be 'mean' or 'mode'")
	ErrInvalidMaxAttempts       = errors.New("fetch.retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("fetch.retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("fetch.retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("fetch.retry.timeout_sec must be at least 1")
	ErrInvalidPages             = errors.New("fetch.pages must be at least 1")
	ErrInvalidPageDelay         = errors.New("fetch.page_delay_ms must be non-negative")
	ErrMissingOutputPath        = errors.New("output.path is required")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Rule names accepted in field rules.
const (
	RuleText     = "text"
	RuleFreeText = "freetext"
	RuleIntWords = "intwords"
	RuleExtract  = "extract"
	RuleURL      = "url"
	RuleVocab    = "vocab"
	RuleDate     = "date"
)

// Imputation strategies.
const (
	StrategyMean = "mean"
	StrategyMode = "mode"
)

// Config represents the complete pipeline configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PipelineConfig describes the normalization pass itself.
type PipelineConfig struct {
	Vocabularies   map[string]VocabularyConfig `yaml:"vocabularies"`
	Fields         []FieldRule                 `yaml:"fields"`
	Imputation     []ImputationRule            `yaml:"imputation"`
	MissingMarkers []string                    `yaml:"missing_markers"`
	Chronology     ChronologyConfig            `yaml:"chronology"`
	Dedupe         DedupeConfig                `yaml:"dedupe"`
}

// FieldRule binds one field name to a cleaning rule and its options.
type FieldRule struct {
	Name        string `yaml:"name"`
	Rule        string `yaml:"rule"`
	Key         string `yaml:"key"`
	Rename      string `yaml:"rename"`
	Placeholder string `yaml:"placeholder"`
	Vocabulary  string `yaml:"vocabulary"`
	Default     *int   `yaml:"default"`
}

// OutputName returns the field name this rule writes. The extract rule may
// rename the field it derives; every other rule writes in place.
func (f *FieldRule) OutputName() string {
	if f.Rule == RuleExtract && f.Rename != "" {
		return f.Rename
	}

	return f.Name
}

// VocabularyConfig maps canonical labels onto their raw synonyms. Tokens
// outside the vocabulary and outside the allowlist are classified invalid.
type VocabularyConfig struct {
	Labels       map[string][]string `yaml:"labels"`
	Allow        []string            `yaml:"allow"`
	AllowNumeric bool                `yaml:"allow_numeric"`
}

// ChronologyConfig names the three related date fields checked by the
// cross-field validator. Leave all empty to disable the check.
type ChronologyConfig struct {
	Arrival        string `yaml:"arrival"`
	Consultation   string `yaml:"consultation"`
	NextVisit      string `yaml:"next_visit"`
	NoReturnMarker string `yaml:"no_return_marker"`
}

// Enabled reports whether the chronological validator should run.
func (c *ChronologyConfig) Enabled() bool {
	return c.Arrival != "" || c.Consultation != "" || c.NextVisit != ""
}

// Marker returns the text substituted for an early next-visit date.
func (c *ChronologyConfig) Marker() string {
	if c.NoReturnMarker != "" {
		return c.NoReturnMarker
	}

	return "no return"
}

// DedupeConfig names the identity fields. Leave both empty to disable.
type DedupeConfig struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// Enabled reports whether deduplication should run.
func (d *DedupeConfig) Enabled() bool {
	return d.Title != "" || d.URL != ""
}

// ImputationRule describes one numeric field to impute.
type ImputationRule struct {
	Field       string `yaml:"field"`
	Strategy    string `yaml:"strategy"`
	ZeroInvalid bool   `yaml:"zero_invalid"`
}

// FetchConfig drives the paginated API fetcher.
type FetchConfig struct {
	BaseURL     string      `yaml:"base_url"`
	PageParam   string      `yaml:"page_param"`
	Pages       int         `yaml:"pages"`
	PageDelayMs int         `yaml:"page_delay_ms"`
	MaxBodyKb   int         `yaml:"max_body_kb"`
	Retry       RetryPolicy `yaml:"retry"`
}

// GetPageDelay returns the fixed delay inserted between page requests.
func (f *FetchConfig) GetPageDelay() time.Duration {
	return time.Duration(f.PageDelayMs) * time.Millisecond
}

// RetryPolicy defines retry behavior for upstream fetches.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the per-request timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// OutputConfig defines where and how the normalized table is written.
type OutputConfig struct {
	Path         string `yaml:"path"`
	DroppedPath  string `yaml:"dropped_path"`
	UnknownLabel string `yaml:"unknown_label"`
}

// Unknown returns the label both missing states render to at export.
func (o *OutputConfig) Unknown() string {
	if o.UnknownLabel != "" {
		return o.UnknownLabel
	}

	return "unknown"
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Pipeline.Fields) == 0 {
		return ErrNoFields
	}

	validRules := map[string]bool{
		RuleText:     true,
		RuleFreeText: true,
		RuleIntWords: true,
		RuleExtract:  true,
		RuleURL:      true,
		RuleVocab:    true,
		RuleDate:     true,
	}

	seen := make(map[string]bool, len(c.Pipeline.Fields))

	for i, f := range c.Pipeline.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: fields[%d]", ErrFieldMissingName, i)
		}

		if !validRules[f.Rule] {
			return fmt.Errorf("%w: %q on field %q", ErrUnknownRule, f.Rule, f.Name)
		}

		if seen[f.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
		}

		seen[f.Name] = true

		if f.Rule == RuleExtract && f.Key == "" {
			return fmt.Errorf("%w: field %q", ErrExtractMissingKey, f.Name)
		}

		if f.Rule == RuleVocab {
			vocab, ok := c.Pipeline.Vocabularies[f.Vocabulary]
			if !ok {
				return fmt.Errorf("%w: %q on field %q", ErrVocabularyNotDefined, f.Vocabulary, f.Name)
			}

			if len(vocab.Labels) == 0 {
				return fmt.Errorf("%w: %q", ErrVocabularyEmpty, f.Vocabulary)
			}
		}
	}

	// Chronology needs all three fields or none
	chrono := c.Pipeline.Chronology
	if chrono.Enabled() {
		if chrono.Arrival == "" || chrono.Consultation == "" || chrono.NextVisit == "" {
			return ErrChronologyIncomplete
		}
	}

	// Dedupe needs both identity fields or none
	if c.Pipeline.Dedupe.Enabled() {
		if c.Pipeline.Dedupe.Title == "" || c.Pipeline.Dedupe.URL == "" {
			return ErrDedupeIncomplete
		}
	}

	for i, im := range c.Pipeline.Imputation {
		if im.Field == "" {
			return fmt.Errorf("%w: imputation[%d]", ErrImputationMissingField, i)
		}

		if im.Strategy != StrategyMean && im.Strategy != StrategyMode {
			return fmt.Errorf("%w: got %q for field %q", ErrInvalidStrategy, im.Strategy, im.Field)
		}
	}

	// Fetch settings only matter when a base URL is configured
	if c.Fetch.BaseURL != "" {
		if c.Fetch.Pages < 1 {
			return ErrInvalidPages
		}

		if c.Fetch.PageDelayMs < 0 {
			return ErrInvalidPageDelay
		}

		if c.Fetch.Retry.MaxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}

		if c.Fetch.Retry.InitialDelayMs < 0 {
			return ErrInvalidInitialDelay
		}

		if c.Fetch.Retry.BackoffMultiplier < 1.0 {
			return ErrInvalidBackoffMultiplier
		}

		if c.Fetch.Retry.TimeoutSec < 1 {
			return ErrInvalidTimeout
		}
	}

	if c.Output.Path == "" {
		return ErrMissingOutputPath
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	return nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Fields: %d, Imputation: %d, Output: %s}",
		len(c.Pipeline.Fields),
		len(c.Pipeline.Imputation),
		c.Output.Path,
	)
}
