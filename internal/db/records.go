package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/clinic-studio/internal/store"
)

// SaveRecord upserts the record under key.
func (db *DB) SaveRecord(ctx context.Context, key string, v any) error {
	content, err := store.Encode(v)
	if err != nil {
		return err
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO studio_records (key, content)
		 VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET content = $2, updated_at = NOW()`,
		key, content,
	)
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", key, err)
	}
	return nil
}

// LoadRecord decodes the record under key into v.
func (db *DB) LoadRecord(ctx context.Context, key string, v any) (bool, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM studio_records WHERE key = $1`,
		key,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load record %s: %w", key, err)
	}
	return true, store.Decode(key, content, v)
}

var _ store.Store = (*DB)(nil)
