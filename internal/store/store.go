// Package store persists the studio's key-value records: generation history,
// the last open artifact, publishing credentials, calculator history and the
// persona. Every record is JSON wrapped in a versioned envelope.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/clinic-studio/internal/types"
)

// Record keys.
const (
	KeyHistory            = "history"
	KeyLastArtifact       = "last_artifact"
	KeyPublishCredentials = "publish_credentials"
	KeyCalculatorHistory  = "calculator_history"
	KeyPersona            = "persona"
)

// SchemaVersion is written into every envelope.
const SchemaVersion = 1

// MaxHistory caps the history list; the oldest entries fall off.
const MaxHistory = 100

// ErrNotFound is returned by GetHistory for an unknown id.
var ErrNotFound = errors.New("not found")

// Store is the persistence collaborator of the studio.
type Store interface {
	// AppendHistory prepends entry; the list stays newest first.
	AppendHistory(ctx context.Context, entry types.HistoryEntry) error
	// ListHistory returns up to limit entries, newest first. limit <= 0 means all.
	ListHistory(ctx context.Context, limit int) ([]types.HistoryEntry, error)
	GetHistory(ctx context.Context, id uuid.UUID) (*types.HistoryEntry, error)
	SaveRecord(ctx context.Context, key string, v any) error
	// LoadRecord decodes the record into v and reports whether it existed.
	LoadRecord(ctx context.Context, key string, v any) (bool, error)
	Close() error
}

// VersionError reports an envelope written by a newer release.
type VersionError struct {
	Key     string
	Version int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("record %q has unsupported schema_version %d (max %d)", e.Key, e.Version, SchemaVersion)
}

type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

// Encode wraps v in the versioned envelope.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	out, err := json.Marshal(envelope{SchemaVersion: SchemaVersion, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return out, nil
}

// Decode unwraps an envelope into v. Records written before the envelope
// existed (bare JSON) are accepted as version 0.
func Decode(key string, raw []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Data == nil {
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("failed to unmarshal record %q: %w", key, err)
		}
		return nil
	}
	if env.SchemaVersion > SchemaVersion {
		return &VersionError{Key: key, Version: env.SchemaVersion}
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("failed to unmarshal record %q: %w", key, err)
	}
	return nil
}

// prepend returns entries with entry in front, capped at MaxHistory.
func prepend(entries []types.HistoryEntry, entry types.HistoryEntry) []types.HistoryEntry {
	out := make([]types.HistoryEntry, 0, len(entries)+1)
	out = append(out, entry)
	out = append(out, entries...)
	if len(out) > MaxHistory {
		out = out[:MaxHistory]
	}
	return out
}

func limitEntries(entries []types.HistoryEntry, limit int) []types.HistoryEntry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

func findEntry(entries []types.HistoryEntry, id uuid.UUID) (*types.HistoryEntry, error) {
	for i := range entries {
		if entries[i].ID == id {
			e := entries[i]
			return &e, nil
		}
	}
	return nil, fmt.Errorf("history entry %s: %w", id, ErrNotFound)
}
