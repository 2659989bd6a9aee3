package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/clinic-studio/internal/store"
	"github.com/jonathan/clinic-studio/internal/types"
)

// AppendHistory inserts entry and prunes rows beyond store.MaxHistory.
func (db *DB) AppendHistory(ctx context.Context, entry types.HistoryEntry) error {
	artifact, err := json.Marshal(entry.Artifact)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO studio_history (id, kind, artifact, created_at)
		 VALUES ($1, $2, $3, $4)`,
		entry.ID, string(entry.Kind), artifact, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	_, err = tx.Exec(ctx,
		`DELETE FROM studio_history WHERE id IN (
		   SELECT id FROM studio_history ORDER BY created_at DESC OFFSET $1
		 )`,
		store.MaxHistory,
	)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	return tx.Commit(ctx)
}

// ListHistory returns up to limit entries, newest first.
func (db *DB) ListHistory(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	if limit <= 0 {
		limit = store.MaxHistory
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, kind, artifact, created_at FROM studio_history
		 ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []types.HistoryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return entries, nil
}

// GetHistory returns one entry or store.ErrNotFound.
func (db *DB) GetHistory(ctx context.Context, id uuid.UUID) (*types.HistoryEntry, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, kind, artifact, created_at FROM studio_history WHERE id = $1`,
		id,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("history entry %s: %w", id, store.ErrNotFound)
	}
	return entry, err
}

func scanEntry(row pgx.Row) (*types.HistoryEntry, error) {
	var (
		id        uuid.UUID
		kind      string
		raw       []byte
		createdAt time.Time
	)
	if err := row.Scan(&id, &kind, &raw, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan history entry: %w", err)
	}
	return decodeEntry(id, kind, raw, createdAt)
}

func decodeEntry(id uuid.UUID, kind string, raw []byte, createdAt time.Time) (*types.HistoryEntry, error) {
	artifact, err := types.DecodeArtifact(types.Kind(kind), raw)
	if err != nil {
		return nil, err
	}
	return &types.HistoryEntry{
		ID:        id,
		CreatedAt: createdAt.UTC(),
		Kind:      types.Kind(kind),
		Artifact:  artifact,
	}, nil
}
