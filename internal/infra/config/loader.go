package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvSettings holds the environment overrides. A nil field means the variable
// is not set, so setting.json or the default applies.
type EnvSettings struct {
	Home            *string  `env:"LLMH_HOME"`
	Provider        *string  `env:"LLMH_PROVIDER"`
	Model           *string  `env:"LLMH_MODEL"`
	Temperature     *float64 `env:"LLMH_TEMPERATURE"`
	BaseURL         *string  `env:"LLMH_BASE_URL"`
	OpenAIKey       *string  `env:"OPENAI_KEY"`
	OpenAIAPIKey    *string  `env:"OPENAI_API_KEY"`
	AnthropicKey    *string  `env:"ANTHROPIC_API_KEY"`
	TimeoutSec      *int     `env:"LLMH_TIMEOUT_SEC"`
	SegmentMaxBytes *int64   `env:"LLMH_SEGMENT_MAX_BYTES"`
	StrictFsync     *bool    `env:"LLMH_STRICT_FSYNC"`
	StderrLevel     *string  `env:"LLMH_STDERR_LEVEL"`
	NoClear         *bool    `env:"LLMH_NO_CLEAR"`
	ArchiveBucket   *string  `env:"LLMH_ARCHIVE_BUCKET"`
	ArchivePrefix   *string  `env:"LLMH_ARCHIVE_PREFIX"`
	ArchiveRegion   *string  `env:"LLMH_ARCHIVE_REGION"`
	ArchiveDir      *string  `env:"LLMH_ARCHIVE_DIR"`
}

// LoadEnv parses the process environment layered over the given .env files.
// Files are read in order, later files do not override earlier ones, and the
// process environment always wins. Missing files are skipped.
func LoadEnv(envFiles ...string) (*EnvSettings, error) {
	environment := map[string]string{}
	for _, path := range envFiles {
		if path == "" {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for k, v := range values {
			if _, ok := environment[k]; !ok {
				environment[k] = v
			}
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environment[k] = v
		}
	}

	settings := &EnvSettings{}
	if err := env.ParseWithOptions(settings, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return settings, nil
}

// set reports whether any setting other than an API key is overridden
func (e *EnvSettings) set() bool {
	return e.Home != nil || e.Provider != nil || e.Model != nil || e.Temperature != nil ||
		e.BaseURL != nil || e.TimeoutSec != nil || e.SegmentMaxBytes != nil || e.StrictFsync != nil ||
		e.StderrLevel != nil || e.NoClear != nil || e.ArchiveBucket != nil ||
		e.ArchivePrefix != nil || e.ArchiveRegion != nil || e.ArchiveDir != nil
}
