package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

var (
	bucketLedger = []byte("ledger")
	keySnapshot  = []byte("snapshot")
)

// BoltStore keeps the snapshot under a single key in a bbolt database.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens the database and ensures the ledger bucket exists.
func NewBoltStore(dbPath string) (*BoltStore, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketLedger); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketLedger, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Load reads the snapshot, or an empty one if nothing was saved yet.
func (s *BoltStore) Load(ctx context.Context) (model.Snapshot, error) {
	if err := validateContext(ctx); err != nil {
		return model.Snapshot{}, err
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketLedger).Get(keySnapshot); v != nil {
			// Bolt values are only valid for the life of the transaction.
			data = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if data == nil {
		return normalize(model.Snapshot{}), nil
	}

	return decodeSnapshot(data)
}

// Save replaces the stored snapshot.
func (s *BoltStore) Save(ctx context.Context, snapshot model.Snapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLedger).Put(keySnapshot, data)
	})
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
