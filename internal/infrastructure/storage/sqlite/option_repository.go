package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type OptionRepository struct {
	db *Storage
}

func NewOptionRepository(db *Storage) *OptionRepository {
	return &OptionRepository{db: db}
}

func (r *OptionRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.DB().QueryRowContext(ctx, `SELECT value FROM options WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get option %s: %w", key, err)
	}
	return value, true, nil
}

func (r *OptionRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.DB().ExecContext(ctx,
		`INSERT INTO options (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set option %s: %w", key, err)
	}
	return nil
}

func (r *OptionRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.DB().ExecContext(ctx, `DELETE FROM options WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete option %s: %w", key, err)
	}
	return nil
}
