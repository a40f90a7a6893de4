package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"
)

// OptionRepository таблица options, общая для учетных данных и настроек
type OptionRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewOptionRepository(db *Storage, log *slog.Logger) *OptionRepository {
	return &OptionRepository{
		db:  db,
		log: log.With("component", "option_repository"),
	}
}

func (r *OptionRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.Pool().QueryRow(ctx, `SELECT value FROM options WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		r.log.Error("failed to read option", "key", key, "error", err)
		return "", false, fmt.Errorf("get option %s: %w", key, err)
	}
	return value, true, nil
}

func (r *OptionRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO options (key, value, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("set option %s: %w", key, err)
	}
	return nil
}

func (r *OptionRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Pool().Exec(ctx, `DELETE FROM options WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete option %s: %w", key, err)
	}
	return nil
}
