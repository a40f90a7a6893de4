package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"booksync/internal/domain/ratelimit"
)

type RateCounter struct {
	db *Storage
}

func NewRateCounter(db *Storage) *RateCounter {
	return &RateCounter{db: db}
}

// Increment увеличивает счетчик и читает окно в одной транзакции
func (c *RateCounter) Increment(ctx context.Context, key int64, now time.Time) (ratelimit.Window, error) {
	tx, err := c.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return ratelimit.Window{}, fmt.Errorf("begin rate window tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rate_windows (window_key, count, created_at) VALUES (?, 1, ?)
		 ON CONFLICT (window_key) DO UPDATE SET count = rate_windows.count + 1`,
		key, now.UTC())
	if err != nil {
		return ratelimit.Window{}, fmt.Errorf("increment rate window: %w", err)
	}

	w := ratelimit.Window{Key: key}
	err = tx.QueryRowContext(ctx,
		`SELECT count, created_at FROM rate_windows WHERE window_key = ?`, key).Scan(&w.Count, &w.CreatedAt)
	if err != nil {
		return ratelimit.Window{}, fmt.Errorf("read rate window: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rate_windows WHERE window_key < ?`, key); err != nil {
		return ratelimit.Window{}, fmt.Errorf("prune rate windows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ratelimit.Window{}, fmt.Errorf("commit rate window: %w", err)
	}
	return w, nil
}

func (c *RateCounter) Get(ctx context.Context, key int64) (ratelimit.Window, bool, error) {
	w := ratelimit.Window{Key: key}
	err := c.db.DB().QueryRowContext(ctx,
		`SELECT count, created_at FROM rate_windows WHERE window_key = ?`, key).Scan(&w.Count, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ratelimit.Window{}, false, nil
		}
		return ratelimit.Window{}, false, fmt.Errorf("get rate window: %w", err)
	}
	return w, true, nil
}
