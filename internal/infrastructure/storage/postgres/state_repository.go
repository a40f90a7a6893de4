package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"booksync/internal/domain/sync"
)

const stateColumns = `order_id, status, invoice_id, invoice_number, contact_id, contact_name,
	payment_id, payment_number, retry_count, last_sync_attempt, last_error, error_kind,
	refund_mappings, updated_at`

type StateRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewStateRepository(db *Storage, log *slog.Logger) *StateRepository {
	return &StateRepository{
		db:  db,
		log: log.With("component", "state_repository"),
	}
}

func (r *StateRepository) GetState(ctx context.Context, orderID int64) (*sync.State, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+stateColumns+` FROM sync_states WHERE order_id = $1`, orderID)
	st, err := scanState(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrStateNotFound
		}
		r.log.Error("failed to get sync state", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("get sync state: %w", err)
	}
	return st, nil
}

func (r *StateRepository) SaveState(ctx context.Context, st *sync.State) error {
	mappings, err := json.Marshal(nonNilMappings(st.RefundMappings))
	if err != nil {
		return fmt.Errorf("encode refund mappings: %w", err)
	}
	updatedAt := st.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = r.db.Pool().Exec(ctx, `
		INSERT INTO sync_states (`+stateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (order_id) DO UPDATE SET
			status = EXCLUDED.status,
			invoice_id = EXCLUDED.invoice_id,
			invoice_number = EXCLUDED.invoice_number,
			contact_id = EXCLUDED.contact_id,
			contact_name = EXCLUDED.contact_name,
			payment_id = EXCLUDED.payment_id,
			payment_number = EXCLUDED.payment_number,
			retry_count = EXCLUDED.retry_count,
			last_sync_attempt = EXCLUDED.last_sync_attempt,
			last_error = EXCLUDED.last_error,
			error_kind = EXCLUDED.error_kind,
			refund_mappings = EXCLUDED.refund_mappings,
			updated_at = EXCLUDED.updated_at`,
		st.OrderID, string(st.Status), st.InvoiceID, st.InvoiceNumber, st.ContactID, st.ContactName,
		st.PaymentID, st.PaymentNumber, st.RetryCount, st.LastSyncAttempt, st.LastError, string(st.ErrorKind),
		mappings, updatedAt)
	if err != nil {
		r.log.Error("failed to save sync state", "order_id", st.OrderID, "error", err)
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}

func (r *StateRepository) DeleteState(ctx context.Context, orderID int64) error {
	if _, err := r.db.Pool().Exec(ctx, `DELETE FROM sync_states WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete sync state: %w", err)
	}
	return nil
}

// ListByStatus сначала самые давние попытки
func (r *StateRepository) ListByStatus(ctx context.Context, status sync.Status, limit int) ([]*sync.State, error) {
	query := `SELECT ` + stateColumns + ` FROM sync_states WHERE status = $1
		ORDER BY last_sync_attempt ASC NULLS FIRST, order_id`
	args := []any{string(status)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list sync states", "status", status, "error", err)
		return nil, fmt.Errorf("list sync states: %w", err)
	}
	defer rows.Close()

	var out []*sync.State
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync state: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func scanState(row pgx.Row) (*sync.State, error) {
	var (
		st       sync.State
		status   string
		kind     string
		mappings []byte
	)
	err := row.Scan(&st.OrderID, &status, &st.InvoiceID, &st.InvoiceNumber, &st.ContactID, &st.ContactName,
		&st.PaymentID, &st.PaymentNumber, &st.RetryCount, &st.LastSyncAttempt, &st.LastError, &kind,
		&mappings, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	st.Status = sync.Status(status)
	st.ErrorKind = sync.ErrorKind(kind)
	if len(mappings) > 0 {
		if err := json.Unmarshal(mappings, &st.RefundMappings); err != nil {
			return nil, fmt.Errorf("decode refund mappings: %w", err)
		}
	}
	if len(st.RefundMappings) == 0 {
		st.RefundMappings = nil
	}
	return &st, nil
}

func nonNilMappings(m []sync.RefundMapping) []sync.RefundMapping {
	if m == nil {
		return []sync.RefundMapping{}
	}
	return m
}
