package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/clinic-studio/internal/types"
)

// MemoryStore keeps encoded records in a map. Values go through the same
// envelope encoding as the file store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (s *MemoryStore) AppendHistory(_ context.Context, entry types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.history()
	if err != nil {
		return err
	}
	enc, err := Encode(prepend(entries, entry))
	if err != nil {
		return err
	}
	s.records[KeyHistory] = enc
	return nil
}

func (s *MemoryStore) ListHistory(_ context.Context, limit int) ([]types.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.history()
	if err != nil {
		return nil, err
	}
	return limitEntries(entries, limit), nil
}

func (s *MemoryStore) GetHistory(ctx context.Context, id uuid.UUID) (*types.HistoryEntry, error) {
	entries, err := s.ListHistory(ctx, 0)
	if err != nil {
		return nil, err
	}
	return findEntry(entries, id)
}

func (s *MemoryStore) SaveRecord(_ context.Context, key string, v any) error {
	enc, err := Encode(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = enc
	return nil
}

func (s *MemoryStore) LoadRecord(_ context.Context, key string, v any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.records[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, Decode(key, raw, v)
}

// Raw returns the stored bytes of key.
func (s *MemoryStore) Raw(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[key]
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) history() ([]types.HistoryEntry, error) {
	raw, ok := s.records[KeyHistory]
	if !ok {
		return nil, nil
	}
	var entries []types.HistoryEntry
	if err := Decode(KeyHistory, raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
