package config

import (
	"time"

	"github.com/YoshitsuguKoike/llmhelper/internal/domain/pricing"
)

// Config provides read-only access to application configuration.
// This interface abstracts the configuration source (JSON, .env, ENV, defaults)
// and ensures the app layer doesn't depend on infrastructure details.
type Config interface {
	// Core settings
	Home() string           // Data directory (LLMH_HOME)
	TimeoutSec() int        // Completion request timeout in seconds (LLMH_TIMEOUT_SEC)
	Timeout() time.Duration // Completion request timeout as Duration

	// Completion provider
	Provider() string     // openai or anthropic (LLMH_PROVIDER)
	Model() string        // Default model (LLMH_MODEL)
	Temperature() float64 // Default temperature (LLMH_TEMPERATURE)
	BaseURL() string      // Optional API base URL (LLMH_BASE_URL)
	OpenAIKey() string    // OPENAI_KEY or OPENAI_API_KEY
	AnthropicKey() string // ANTHROPIC_API_KEY
	APIKey() string       // Key of the selected provider

	// History storage
	SegmentMaxBytes() int64 // Segment rollover threshold (LLMH_SEGMENT_MAX_BYTES)
	StrictFsync() bool      // Treat fsync failures as errors (LLMH_STRICT_FSYNC)
	Prices() map[string]pricing.Price

	// Archive
	ArchiveBucket() string // S3 bucket (LLMH_ARCHIVE_BUCKET)
	ArchivePrefix() string // S3 key prefix (LLMH_ARCHIVE_PREFIX)
	ArchiveRegion() string // AWS region (LLMH_ARCHIVE_REGION)
	ArchiveDir() string    // Local backup directory (LLMH_ARCHIVE_DIR)

	// Terminal and logging
	NoClear() bool       // Do not clear the screen (LLMH_NO_CLEAR)
	StderrLevel() string // Stderr log level (LLMH_STDERR_LEVEL)

	// Metadata
	ConfigSource() string // Source of configuration: "json", "env", or "default"
	SettingPath() string  // Path to setting.json if loaded from file
}

// Values carries every resolved setting into NewAppConfig
type Values struct {
	Home            string
	TimeoutSec      int
	Provider        string
	Model           string
	Temperature     float64
	BaseURL         string
	OpenAIKey       string
	AnthropicKey    string
	SegmentMaxBytes int64
	StrictFsync     bool
	Prices          map[string]pricing.Price
	ArchiveBucket   string
	ArchivePrefix   string
	ArchiveRegion   string
	ArchiveDir      string
	NoClear         bool
	StderrLevel     string
	ConfigSource    string
	SettingPath     string
}

// AppConfig is the concrete implementation of Config interface.
type AppConfig struct {
	v Values
}

// NewAppConfig creates a new AppConfig instance
func NewAppConfig(v Values) *AppConfig {
	prices := make(map[string]pricing.Price, len(v.Prices))
	for model, p := range v.Prices {
		prices[model] = p
	}
	v.Prices = prices
	return &AppConfig{v: v}
}

// Home returns the data directory
func (c *AppConfig) Home() string {
	return c.v.Home
}

// TimeoutSec returns the timeout in seconds
func (c *AppConfig) TimeoutSec() int {
	return c.v.TimeoutSec
}

// Timeout returns the timeout as a Duration
func (c *AppConfig) Timeout() time.Duration {
	return time.Duration(c.v.TimeoutSec) * time.Second
}

func (c *AppConfig) Provider() string {
	return c.v.Provider
}

func (c *AppConfig) Model() string {
	return c.v.Model
}

func (c *AppConfig) Temperature() float64 {
	return c.v.Temperature
}

func (c *AppConfig) BaseURL() string {
	return c.v.BaseURL
}

func (c *AppConfig) OpenAIKey() string {
	return c.v.OpenAIKey
}

func (c *AppConfig) AnthropicKey() string {
	return c.v.AnthropicKey
}

// APIKey returns the key for the configured provider
func (c *AppConfig) APIKey() string {
	if c.v.Provider == "anthropic" {
		return c.v.AnthropicKey
	}
	return c.v.OpenAIKey
}

func (c *AppConfig) SegmentMaxBytes() int64 {
	return c.v.SegmentMaxBytes
}

// StrictFsync returns whether fsync failures should be treated as errors
func (c *AppConfig) StrictFsync() bool {
	return c.v.StrictFsync
}

// Prices returns user price overrides keyed by model
func (c *AppConfig) Prices() map[string]pricing.Price {
	out := make(map[string]pricing.Price, len(c.v.Prices))
	for model, p := range c.v.Prices {
		out[model] = p
	}
	return out
}

func (c *AppConfig) ArchiveBucket() string {
	return c.v.ArchiveBucket
}

func (c *AppConfig) ArchivePrefix() string {
	return c.v.ArchivePrefix
}

func (c *AppConfig) ArchiveRegion() string {
	return c.v.ArchiveRegion
}

func (c *AppConfig) ArchiveDir() string {
	return c.v.ArchiveDir
}

func (c *AppConfig) NoClear() bool {
	return c.v.NoClear
}

// StderrLevel returns the stderr log level
func (c *AppConfig) StderrLevel() string {
	return c.v.StderrLevel
}

// ConfigSource returns the source of configuration
func (c *AppConfig) ConfigSource() string {
	return c.v.ConfigSource
}

// SettingPath returns the path to setting.json if loaded from file
func (c *AppConfig) SettingPath() string {
	return c.v.SettingPath
}
