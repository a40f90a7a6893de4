package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"booksync/internal/domain/ratelimit"
)

// RateCounter счетчик окон лимита запросов, общий для всех процессов с одной базой
type RateCounter struct {
	db *Storage
}

func NewRateCounter(db *Storage) *RateCounter {
	return &RateCounter{db: db}
}

func (c *RateCounter) Increment(ctx context.Context, key int64, now time.Time) (ratelimit.Window, error) {
	w := ratelimit.Window{Key: key}
	err := c.db.Pool().QueryRow(ctx,
		`INSERT INTO rate_windows (window_key, count, created_at) VALUES ($1, 1, $2)
		 ON CONFLICT (window_key) DO UPDATE SET count = rate_windows.count + 1
		 RETURNING count, created_at`,
		key, now.UTC()).Scan(&w.Count, &w.CreatedAt)
	if err != nil {
		return ratelimit.Window{}, fmt.Errorf("increment rate window: %w", err)
	}

	// старые окна больше не нужны, ошибка очистки не влияет на счет
	_, _ = c.db.Pool().Exec(ctx, `DELETE FROM rate_windows WHERE window_key < $1`, key)
	return w, nil
}

func (c *RateCounter) Get(ctx context.Context, key int64) (ratelimit.Window, bool, error) {
	w := ratelimit.Window{Key: key}
	err := c.db.Pool().QueryRow(ctx,
		`SELECT count, created_at FROM rate_windows WHERE window_key = $1`, key).Scan(&w.Count, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ratelimit.Window{}, false, nil
		}
		return ratelimit.Window{}, false, fmt.Errorf("get rate window: %w", err)
	}
	return w, true, nil
}
