package reconcile

import (
	"time"

	"booksync/internal/domain/reconcile"
)

type runInput struct {
	Body RunRequest
}

type RunRequest struct {
	PeriodStart time.Time `json:"period_start" format:"date-time" example:"2024-03-01T00:00:00Z"`
	PeriodEnd   time.Time `json:"period_end" format:"date-time" example:"2024-04-01T00:00:00Z"`
}

type reportOutput struct {
	Body ReportResponse
}

type ReportResponse struct {
	Status string            `json:"status"`
	Error  string            `json:"error,omitempty"`
	Data   *reconcile.Report `json:"data,omitempty"`
}

type getReportInput struct {
	ID string `path:"id"`
}

type listReportsInput struct {
	Limit int `query:"limit" minimum:"1" maximum:"100" default:"20"`
}

type listReportsOutput struct {
	Body ListReportsResponse
}

type ListReportsResponse struct {
	Status string              `json:"status"`
	Error  string              `json:"error,omitempty"`
	Data   []*reconcile.Report `json:"data"`
}
