package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"booksync/internal/domain/reconcile"
)

const reportColumns = `id, period_start, period_end, status, summary, discrepancies, error, created_at, completed_at`

type ReportRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewReportRepository(db *Storage, log *slog.Logger) *ReportRepository {
	return &ReportRepository{
		db:  db,
		log: log.With("component", "report_repository"),
	}
}

func (r *ReportRepository) CreateReport(ctx context.Context, rep *reconcile.Report) error {
	summary, discrepancies, err := encodeReport(rep)
	if err != nil {
		return err
	}
	_, err = r.db.Pool().Exec(ctx,
		`INSERT INTO reconciliation_reports (`+reportColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rep.ID, rep.PeriodStart, rep.PeriodEnd, string(rep.Status), summary, discrepancies,
		rep.Error, rep.CreatedAt, rep.CompletedAt)
	if err != nil {
		r.log.Error("failed to create report", "report_id", rep.ID, "error", err)
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
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE reconciliation_reports
		 SET status = $2, summary = $3, discrepancies = $4, error = $5, completed_at = $6
		 WHERE id = $1 AND status = 'running'`,
		rep.ID, string(rep.Status), summary, discrepancies, rep.Error, rep.CompletedAt)
	if err != nil {
		r.log.Error("failed to update report", "report_id", rep.ID, "error", err)
		return fmt.Errorf("update report: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = r.db.Pool().QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reconciliation_reports WHERE id = $1)`, rep.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check report: %w", err)
	}
	if !exists {
		return reconcile.ErrReportNotFound
	}
	return reconcile.ErrReportFinalized
}

func (r *ReportRepository) GetReport(ctx context.Context, id string) (*reconcile.Report, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+reportColumns+` FROM reconciliation_reports WHERE id = $1`, id)
	rep, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reconcile.ErrReportNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

func (r *ReportRepository) ListReports(ctx context.Context, limit int) ([]*reconcile.Report, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+reportColumns+` FROM reconciliation_reports ORDER BY created_at DESC LIMIT $1`, limit)
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

func encodeReport(rep *reconcile.Report) ([]byte, []byte, error) {
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
		return nil, nil, fmt.Errorf("encode summary: %w", err)
	}
	d, err := json.Marshal(discrepancies)
	if err != nil {
		return nil, nil, fmt.Errorf("encode discrepancies: %w", err)
	}
	return s, d, nil
}

func scanReport(row pgx.Row) (*reconcile.Report, error) {
	var (
		rep           reconcile.Report
		status        string
		summary       []byte
		discrepancies []byte
	)
	err := row.Scan(&rep.ID, &rep.PeriodStart, &rep.PeriodEnd, &status, &summary, &discrepancies,
		&rep.Error, &rep.CreatedAt, &rep.CompletedAt)
	if err != nil {
		return nil, err
	}
	rep.Status = reconcile.ReportStatus(status)
	if err := json.Unmarshal(summary, &rep.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if err := json.Unmarshal(discrepancies, &rep.Discrepancies); err != nil {
		return nil, fmt.Errorf("decode discrepancies: %w", err)
	}
	return &rep, nil
}
