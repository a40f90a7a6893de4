package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"booksync/internal/domain/reconcile"
)

const reportColumns = `id, period_start, period_end, status, summary, discrepancies, error, created_at, completed_at`

type ReportRepository struct {
	db *Storage
}

func NewReportRepository(db *Storage) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) CreateReport(ctx context.Context, rep *reconcile.Report) error {
	summary, discrepancies, err := encodeReport(rep)
	if err != nil {
		return err
	}
	_, err = r.db.DB().ExecContext(ctx,
		`INSERT INTO reconciliation_reports (`+reportColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.PeriodStart.UTC(), rep.PeriodEnd.UTC(), string(rep.Status), summary, discrepancies,
		rep.Error, rep.CreatedAt.UTC(), nullTime(rep))
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// UpdateReport обновляет только отчет в статусе running
func (r *ReportRepository) UpdateReport(ctx context.Context, rep *reconcile.Report) error {
	summary, discrepancies, err := encodeReport(rep)
	if err != nil {
		return err
	}
	res, err := r.db.DB().ExecContext(ctx,
		`UPDATE reconciliation_reports
		 SET status = ?, summary = ?, discrepancies = ?, error = ?, completed_at = ?
		 WHERE id = ? AND status = 'running'`,
		string(rep.Status), summary, discrepancies, rep.Error, nullTime(rep), rep.ID)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	var exists bool
	err = r.db.DB().QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM reconciliation_reports WHERE id = ?)`, rep.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check report: %w", err)
	}
	if !exists {
		return reconcile.ErrReportNotFound
	}
	return reconcile.ErrReportFinalized
}

func (r *ReportRepository) GetReport(ctx context.Context, id string) (*reconcile.Report, error) {
	row := r.db.DB().QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reconciliation_reports WHERE id = ?`, id)
	rep, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reconcile.ErrReportNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

func (r *ReportRepository) ListReports(ctx context.Context, limit int) ([]*reconcile.Report, error) {
	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reconciliation_reports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []*reconcile.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func nullTime(rep *reconcile.Report) sql.NullTime {
	if rep.CompletedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: rep.CompletedAt.UTC(), Valid: true}
}

func encodeReport(rep *reconcile.Report) (string, string, error) {
	summary := rep.Summary
	if summary == nil {
		summary = map[string]float64{}
	}
	discrepancies := rep.Discrepancies
	if discrepancies == nil {
		discrepancies = []reconcile.Discrepancy{}
	}
	s, err := json.Marshal(summary)
	if err != nil {
		return "", "", fmt.Errorf("encode summary: %w", err)
	}
	d, err := json.Marshal(discrepancies)
	if err != nil {
		return "", "", fmt.Errorf("encode discrepancies: %w", err)
	}
	return string(s), string(d), nil
}

func scanReport(row scanner) (*reconcile.Report, error) {
	var (
		rep           reconcile.Report
		status        string
		summary       string
		discrepancies string
		completedAt   sql.NullTime
	)
	err := row.Scan(&rep.ID, &rep.PeriodStart, &rep.PeriodEnd, &status, &summary, &discrepancies,
		&rep.Error, &rep.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	rep.Status = reconcile.ReportStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		rep.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(summary), &rep.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if err := json.Unmarshal([]byte(discrepancies), &rep.Discrepancies); err != nil {
		return nil, fmt.Errorf("decode discrepancies: %w", err)
	}
	return &rep, nil
}
