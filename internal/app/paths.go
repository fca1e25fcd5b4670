package app

import (
	"os"
	"path/filepath"
)

// DefaultHomeName is the data directory created under the user's home
const DefaultHomeName = ".llm_helper_data"

// ResolveHome returns the data directory: explicit value, then LLMH_HOME,
// then ~/.llm_helper_data
func ResolveHome(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if home := os.Getenv("LLMH_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return DefaultHomeName
	}
	return filepath.Join(userHome, DefaultHomeName)
}
