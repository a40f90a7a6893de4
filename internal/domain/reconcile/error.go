package reconcile

import "errors"

var (
	ErrReportNotFound  = errors.New("reconciliation report not found")
	ErrReportFinalized = errors.New("reconciliation report is finalized")
	ErrInvalidPeriod   = errors.New("period start must be before period end")
)
