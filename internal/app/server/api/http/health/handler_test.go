package health

import (
	"context"
	"errors"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

func TestHandler_healthCheck(t *testing.T) {
	tests := []struct {
		name               string
		checks             map[string]Checker
		expectedStatus     string
		expectedComponents map[string]string
	}{
		{
			name:           "health check returns OK",
			expectedStatus: StatusOK,
		},
		{
			name: "all dependencies up",
			checks: map[string]Checker{
				"storage": func(context.Context) error { return nil },
			},
			expectedStatus:     StatusOK,
			expectedComponents: map[string]string{"storage": StatusOK},
		},
		{
			name: "failing dependency degrades",
			checks: map[string]Checker{
				"storage": func(context.Context) error { return nil },
				"books":   func(context.Context) error { return errors.New("not configured") },
			},
			expectedStatus:     StatusDegraded,
			expectedComponents: map[string]string{"storage": StatusOK, "books": "not configured"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			handler := NewHandler(tt.checks, slog.Default(), huma.Middlewares{})

			// Act
			output, err := handler.healthCheck(context.Background(), &Input{})

			// Assert
			assert.NoError(t, err)
			assert.NotNil(t, output)
			assert.Equal(t, tt.expectedStatus, output.Body.Status)
			assert.Equal(t, tt.expectedComponents, output.Body.Components)
		})
	}
}

func TestNewHandler(t *testing.T) {
	handler := NewHandler(nil, slog.Default(), huma.Middlewares{})

	assert.NotNil(t, handler)
	assert.NotNil(t, handler.log)
	assert.NotNil(t, handler.middleware)
}
