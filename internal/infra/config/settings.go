package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/YoshitsuguKoike/llmhelper/internal/app/config"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/pricing"
)

// RawSettings represents the structure of setting.json file.
// JSON tags are used for marshaling/unmarshaling.
type RawSettings struct {
	// Completion provider
	Provider     *string  `json:"provider"`
	Model        *string  `json:"model"`
	Temperature  *float64 `json:"temperature"`
	BaseURL      *string  `json:"base_url"`
	OpenAIKey    *string  `json:"openai_key"`
	AnthropicKey *string  `json:"anthropic_api_key"`
	TimeoutSec   *int     `json:"timeout_sec"`

	// History storage
	SegmentMaxBytes *int64                   `json:"segment_max_bytes"`
	StrictFsync     *bool                    `json:"strict_fsync"`
	Prices          map[string]pricing.Price `json:"prices"`

	// Archive
	ArchiveBucket *string `json:"archive_bucket"`
	ArchivePrefix *string `json:"archive_prefix"`
	ArchiveRegion *string `json:"archive_region"`
	ArchiveDir    *string `json:"archive_dir"`

	// Terminal and logging
	NoClear     *bool   `json:"no_clear"`
	StderrLevel *string `json:"stderr_level"`
}

// LoadSettings loads configuration for the data directory home.
// Priority: environment (.env files included) > setting.json > defaults
func LoadSettings(home string) (*config.AppConfig, error) {
	settings := &RawSettings{}
	configSource := "default"
	settingPath := ""

	// Try to load setting.json
	jsonPath := filepath.Join(home, "setting.json")
	if data, err := os.ReadFile(jsonPath); err == nil {
		if err := json.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", jsonPath, err)
		}
		configSource = "json"
		settingPath = jsonPath
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", jsonPath, err)
	}

	// .env in the working directory first, then the one in the data directory
	envSettings, err := LoadEnv(".env", filepath.Join(home, ".env"))
	if err != nil {
		return nil, err
	}
	if envSettings.set() {
		configSource = "env"
	}
	applyEnv(settings, envSettings)

	applyDefaults(settings)

	if err := validate(settings); err != nil {
		return nil, err
	}

	return buildAppConfig(home, settings, configSource, settingPath), nil
}

// applyEnv copies every set environment value over the JSON value
func applyEnv(settings *RawSettings, e *EnvSettings) {
	override := func(dst **string, src *string) {
		if src != nil {
			*dst = src
		}
	}
	override(&settings.Provider, e.Provider)
	override(&settings.Model, e.Model)
	override(&settings.BaseURL, e.BaseURL)
	override(&settings.OpenAIKey, e.OpenAIAPIKey)
	// OPENAI_KEY wins over OPENAI_API_KEY
	override(&settings.OpenAIKey, e.OpenAIKey)
	override(&settings.AnthropicKey, e.AnthropicKey)
	override(&settings.StderrLevel, e.StderrLevel)
	override(&settings.ArchiveBucket, e.ArchiveBucket)
	override(&settings.ArchivePrefix, e.ArchivePrefix)
	override(&settings.ArchiveRegion, e.ArchiveRegion)
	override(&settings.ArchiveDir, e.ArchiveDir)

	if e.Temperature != nil {
		settings.Temperature = e.Temperature
	}
	if e.TimeoutSec != nil {
		settings.TimeoutSec = e.TimeoutSec
	}
	if e.SegmentMaxBytes != nil {
		settings.SegmentMaxBytes = e.SegmentMaxBytes
	}
	if e.StrictFsync != nil {
		settings.StrictFsync = e.StrictFsync
	}
	if e.NoClear != nil {
		settings.NoClear = e.NoClear
	}
}

// applyDefaults fills in default values for any nil fields
func applyDefaults(settings *RawSettings) {
	str := func(dst **string, v string) {
		if *dst == nil {
			*dst = &v
		}
	}
	str(&settings.Provider, "openai")
	str(&settings.Model, "gpt-4")
	str(&settings.BaseURL, "")
	str(&settings.OpenAIKey, "")
	str(&settings.AnthropicKey, "")
	str(&settings.ArchiveBucket, "")
	str(&settings.ArchivePrefix, "")
	str(&settings.ArchiveRegion, "")
	str(&settings.ArchiveDir, "")
	str(&settings.StderrLevel, "warn") // Default to WARN level

	if settings.Temperature == nil {
		v := 0.7
		settings.Temperature = &v
	}
	if settings.TimeoutSec == nil {
		v := 600 // long completions stream for minutes
		settings.TimeoutSec = &v
	}
	if settings.SegmentMaxBytes == nil {
		v := int64(15 * 1024 * 1024)
		settings.SegmentMaxBytes = &v
	}
	if settings.StrictFsync == nil {
		v := false
		settings.StrictFsync = &v
	}
	if settings.NoClear == nil {
		v := false
		settings.NoClear = &v
	}
}

func validate(settings *RawSettings) error {
	switch strings.ToLower(*settings.Provider) {
	case "openai", "anthropic":
		v := strings.ToLower(*settings.Provider)
		settings.Provider = &v
	default:
		return fmt.Errorf("unsupported provider %q (supported: openai, anthropic)", *settings.Provider)
	}
	if *settings.Temperature < 0 || *settings.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", *settings.Temperature)
	}
	if *settings.TimeoutSec < 0 {
		return fmt.Errorf("timeout_sec must not be negative, got %d", *settings.TimeoutSec)
	}
	if *settings.SegmentMaxBytes <= 0 {
		return fmt.Errorf("segment_max_bytes must be positive, got %d", *settings.SegmentMaxBytes)
	}
	return nil
}

// buildAppConfig converts RawSettings to AppConfig
func buildAppConfig(home string, settings *RawSettings, configSource, settingPath string) *config.AppConfig {
	return config.NewAppConfig(config.Values{
		Home:            home,
		TimeoutSec:      *settings.TimeoutSec,
		Provider:        *settings.Provider,
		Model:           *settings.Model,
		Temperature:     *settings.Temperature,
		BaseURL:         *settings.BaseURL,
		OpenAIKey:       *settings.OpenAIKey,
		AnthropicKey:    *settings.AnthropicKey,
		SegmentMaxBytes: *settings.SegmentMaxBytes,
		StrictFsync:     *settings.StrictFsync,
		Prices:          settings.Prices,
		ArchiveBucket:   *settings.ArchiveBucket,
		ArchivePrefix:   *settings.ArchivePrefix,
		ArchiveRegion:   *settings.ArchiveRegion,
		ArchiveDir:      *settings.ArchiveDir,
		NoClear:         *settings.NoClear,
		StderrLevel:     *settings.StderrLevel,
		ConfigSource:    configSource,
		SettingPath:     settingPath,
	})
}

// CreateDefaultSettings writes a setting.json with every default filled in.
// API keys are left empty.
func CreateDefaultSettings(home string) error {
	settings := &RawSettings{}
	applyDefaults(settings)

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}
	settingPath := filepath.Join(home, "setting.json")
	if err := os.WriteFile(settingPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", settingPath, err)
	}
	return nil
}
