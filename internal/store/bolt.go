package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/jonathan/clinic-studio/internal/types"
)

var recordsBucket = []byte("records")

// BoltStore keeps every record in one bucket of a local bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the store file at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create records bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// AppendHistory implements Store. The read-modify-write runs in one
// transaction.
func (s *BoltStore) AppendHistory(_ context.Context, entry types.HistoryEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		entries, err := readHistory(b)
		if err != nil {
			return err
		}
		enc, err := Encode(prepend(entries, entry))
		if err != nil {
			return err
		}
		return b.Put([]byte(KeyHistory), enc)
	})
}

// ListHistory implements Store.
func (s *BoltStore) ListHistory(_ context.Context, limit int) ([]types.HistoryEntry, error) {
	var entries []types.HistoryEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		entries, err = readHistory(tx.Bucket(recordsBucket))
		return err
	})
	if err != nil {
		return nil, err
	}
	return limitEntries(entries, limit), nil
}

// GetHistory implements Store.
func (s *BoltStore) GetHistory(ctx context.Context, id uuid.UUID) (*types.HistoryEntry, error) {
	entries, err := s.ListHistory(ctx, 0)
	if err != nil {
		return nil, err
	}
	return findEntry(entries, id)
}

// SaveRecord implements Store.
func (s *BoltStore) SaveRecord(_ context.Context, key string, v any) error {
	enc, err := Encode(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Put([]byte(key), enc)
	})
}

// LoadRecord implements Store.
func (s *BoltStore) LoadRecord(_ context.Context, key string, v any) (bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// Bytes are only valid inside the transaction.
		if got := tx.Bucket(recordsBucket).Get([]byte(key)); got != nil {
			raw = append([]byte(nil), got...)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := Decode(key, raw, v); err != nil {
		return true, err
	}
	return true, nil
}

func readHistory(b *bolt.Bucket) ([]types.HistoryEntry, error) {
	raw := b.Get([]byte(KeyHistory))
	if raw == nil {
		return nil, nil
	}
	var entries []types.HistoryEntry
	if err := Decode(KeyHistory, raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
