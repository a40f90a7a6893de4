package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"booksync/internal/domain/sync"
)

const stateColumns = `order_id, status, invoice_id, invoice_number, contact_id, contact_name,
	payment_id, payment_number, retry_count, last_sync_attempt, last_error, error_kind,
	refund_mappings, updated_at`

type StateRepository struct {
	db *Storage
}

func NewStateRepository(db *Storage) *StateRepository {
	return &StateRepository{db: db}
}

func (r *StateRepository) GetState(ctx context.Context, orderID int64) (*sync.State, error) {
	row := r.db.DB().QueryRowContext(ctx,
		`SELECT `+stateColumns+` FROM sync_states WHERE order_id = ?`, orderID)
	st, err := scanState(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sync.ErrStateNotFound
		}
		return nil, fmt.Errorf("get sync state: %w", err)
	}
	return st, nil
}

func (r *StateRepository) SaveState(ctx context.Context, st *sync.State) error {
	mappings := st.RefundMappings
	if mappings == nil {
		mappings = []sync.RefundMapping{}
	}
	encoded, err := json.Marshal(mappings)
	if err != nil {
		return fmt.Errorf("encode refund mappings: %w", err)
	}
	updatedAt := st.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	var lastAttempt sql.NullTime
	if st.LastSyncAttempt != nil {
		lastAttempt = sql.NullTime{Time: st.LastSyncAttempt.UTC(), Valid: true}
	}

	_, err = r.db.DB().ExecContext(ctx, `
		INSERT INTO sync_states (`+stateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id) DO UPDATE SET
			status = excluded.status,
			invoice_id = excluded.invoice_id,
			invoice_number = excluded.invoice_number,
			contact_id = excluded.contact_id,
			contact_name = excluded.contact_name,
			payment_id = excluded.payment_id,
			payment_number = excluded.payment_number,
			retry_count = excluded.retry_count,
			last_sync_attempt = excluded.last_sync_attempt,
			last_error = excluded.last_error,
			error_kind = excluded.error_kind,
			refund_mappings = excluded.refund_mappings,
			updated_at = excluded.updated_at`,
		st.OrderID, string(st.Status), st.InvoiceID, st.InvoiceNumber, st.ContactID, st.ContactName,
		st.PaymentID, st.PaymentNumber, st.RetryCount, lastAttempt, st.LastError, string(st.ErrorKind),
		string(encoded), updatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}

func (r *StateRepository) DeleteState(ctx context.Context, orderID int64) error {
	if _, err := r.db.DB().ExecContext(ctx, `DELETE FROM sync_states WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("delete sync state: %w", err)
	}
	return nil
}

func (r *StateRepository) ListByStatus(ctx context.Context, status sync.Status, limit int) ([]*sync.State, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT `+stateColumns+` FROM sync_states WHERE status = ?
		 ORDER BY last_sync_attempt ASC NULLS FIRST, order_id LIMIT ?`,
		string(status), limit)
	if err != nil {
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

type scanner interface {
	Scan(dest ...any) error
}

func scanState(row scanner) (*sync.State, error) {
	var (
		st          sync.State
		status      string
		kind        string
		mappings    string
		lastAttempt sql.NullTime
	)
	err := row.Scan(&st.OrderID, &status, &st.InvoiceID, &st.InvoiceNumber, &st.ContactID, &st.ContactName,
		&st.PaymentID, &st.PaymentNumber, &st.RetryCount, &lastAttempt, &st.LastError, &kind,
		&mappings, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	st.Status = sync.Status(status)
	st.ErrorKind = sync.ErrorKind(kind)
	if lastAttempt.Valid {
		t := lastAttempt.Time
		st.LastSyncAttempt = &t
	}
	if mappings != "" {
		if err := json.Unmarshal([]byte(mappings), &st.RefundMappings); err != nil {
			return nil, fmt.Errorf("decode refund mappings: %w", err)
		}
	}
	if len(st.RefundMappings) == 0 {
		st.RefundMappings = nil
	}
	return &st, nil
}
