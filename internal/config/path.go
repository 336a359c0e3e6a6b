// Package config reads application settings from viper into the typed
// configs each package expects.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands a leading ~ and $VAR references in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	return os.ExpandEnv(path)
}

// Dir returns the directory holding config.yaml, the ledger and tokens.
func Dir() string {
	if dir := os.Getenv("BUDGET_CONFIG_DIR"); dir != "" {
		return ExpandPath(dir)
	}
	return ExpandPath("~/.config/budget")
}
