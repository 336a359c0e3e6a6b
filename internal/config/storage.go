package config

import (
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-budget-must-balance/internal/storage"
)

// StorageConfig returns the snapshot backend settings, defaulting to a
// JSON file under Dir().
func StorageConfig() storage.Config {
	backend := viper.GetString("storage.backend")
	if backend == "" {
		backend = storage.BackendFile
	}

	path := ExpandPath(viper.GetString("storage.path"))
	if path == "" {
		path = filepath.Join(Dir(), storage.DefaultFileName(backend))
	}

	return storage.Config{Backend: backend, Path: path}
}

// ServerAddr returns the listen address for `budget serve`.
func ServerAddr() string {
	if addr := viper.GetString("server.addr"); addr != "" {
		return addr
	}
	return "127.0.0.1:8787"
}
