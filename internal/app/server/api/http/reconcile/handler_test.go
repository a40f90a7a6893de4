package reconcile

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"booksync/internal/domain/reconcile"
	"booksync/internal/utils/logger"
)

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Run(ctx context.Context, start, end time.Time) (*reconcile.Report, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Report), args.Error(1)
}

func (m *MockEngine) GetReport(ctx context.Context, id string) (*reconcile.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Report), args.Error(1)
}

func (m *MockEngine) ListReports(ctx context.Context, limit int) ([]*reconcile.Report, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*reconcile.Report), args.Error(1)
}

func TestHandler_run(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	tests := []struct {
		name           string
		report         *reconcile.Report
		err            error
		expectedStatus string
		httpStatus     int
	}{
		{
			name:           "completed",
			report:         &reconcile.Report{ID: "rep-1", Status: reconcile.StatusCompleted},
			expectedStatus: "Ok",
		},
		{
			name:           "failed report is returned with the error",
			report:         &reconcile.Report{ID: "rep-1", Status: reconcile.StatusFailed, Error: "list invoices: boom"},
			err:            errors.New("list invoices: boom"),
			expectedStatus: "Error",
		},
		{
			name:       "invalid period",
			err:        reconcile.ErrInvalidPeriod,
			httpStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(MockEngine)
			if tt.report == nil {
				engine.On("Run", mock.Anything, start, end).Return(nil, tt.err)
			} else {
				engine.On("Run", mock.Anything, start, end).Return(tt.report, tt.err)
			}
			h := NewHandler(engine, logger.Discard(), huma.Middlewares{})

			out, err := h.run(context.Background(), &runInput{Body: RunRequest{PeriodStart: start, PeriodEnd: end}})
			if tt.httpStatus != 0 {
				var se huma.StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, tt.httpStatus, se.GetStatus())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, out.Body.Status)
			assert.Equal(t, "rep-1", out.Body.Data.ID)
		})
	}
}

func TestHandler_get(t *testing.T) {
	engine := new(MockEngine)
	engine.On("GetReport", mock.Anything, "rep-1").Return(&reconcile.Report{ID: "rep-1"}, nil)
	engine.On("GetReport", mock.Anything, "nope").Return(nil, reconcile.ErrReportNotFound)
	h := NewHandler(engine, logger.Discard(), huma.Middlewares{})

	out, err := h.get(context.Background(), &getReportInput{ID: "rep-1"})
	require.NoError(t, err)
	assert.Equal(t, "rep-1", out.Body.Data.ID)

	_, err = h.get(context.Background(), &getReportInput{ID: "nope"})
	var se huma.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.GetStatus())
}

func TestHandler_list(t *testing.T) {
	engine := new(MockEngine)
	engine.On("ListReports", mock.Anything, 5).Return([]*reconcile.Report{{ID: "b"}, {ID: "a"}}, nil)
	h := NewHandler(engine, logger.Discard(), huma.Middlewares{})

	out, err := h.list(context.Background(), &listReportsInput{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "Ok", out.Body.Status)
	assert.Len(t, out.Body.Data, 2)
}
