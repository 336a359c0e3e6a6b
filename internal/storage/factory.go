package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/the-budget-must-balance/internal/service"
)

// Supported backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Config selects and locates a snapshot backend.
type Config struct {
	Backend string
	Path    string
}

// DefaultFileName returns the conventional file name for a backend.
func DefaultFileName(backend string) string {
	switch strings.ToLower(backend) {
	case BackendSQLite:
		return "ledger.db"
	case BackendBolt:
		return "ledger.bolt"
	default:
		return "ledger.json"
	}
}

// Open creates the configured snapshot store, running migrations where the
// backend has them.
func Open(ctx context.Context, cfg Config) (service.SnapshotStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendFile, "":
		return NewFileStore(cfg.Path)
	case BackendSQLite:
		store, err := NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return store, nil
	case BackendBolt:
		return NewBoltStore(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}
