package credentials

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

	"booksync/internal/app/books"
	"booksync/internal/domain/credential"
	"booksync/internal/utils/logger"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Status(ctx context.Context) credential.Status {
	args := m.Called(ctx)
	return args.Get(0).(credential.Status)
}

func (m *MockStore) SaveCredentials(ctx context.Context, clientID, clientSecret, refreshToken string, opts credential.SaveOptions) error {
	args := m.Called(ctx, clientID, clientSecret, refreshToken, opts)
	return args.Error(0)
}

func (m *MockStore) SaveAccessToken(ctx context.Context, token string, expiresIn time.Duration) error {
	args := m.Called(ctx, token, expiresIn)
	return args.Error(0)
}

type MockGranter struct {
	mock.Mock
}

func (m *MockGranter) ExchangeGrantCode(ctx context.Context, clientID, clientSecret, grantCode, region string) (books.GrantResult, error) {
	args := m.Called(ctx, clientID, clientSecret, grantCode, region)
	return args.Get(0).(books.GrantResult), args.Error(1)
}

func TestHandler_status(t *testing.T) {
	store := new(MockStore)
	store.On("Status", mock.Anything).Return(credential.Status{Configured: true, SecurityMode: "degraded", Degraded: true})
	h := NewHandler(store, new(MockGranter), logger.Discard(), huma.Middlewares{})

	out, err := h.status(context.Background(), &statusInput{})
	require.NoError(t, err)
	assert.True(t, out.Body.Data.Configured)
	assert.True(t, out.Body.Data.Degraded)
}

func TestHandler_save(t *testing.T) {
	tests := []struct {
		name           string
		saveErr        error
		expectedStatus string
		httpStatus     int
	}{
		{name: "saved", expectedStatus: "Ok"},
		{name: "rejected by validation hook", saveErr: errors.New("credentials rejected: invalid_client"), expectedStatus: "Error"},
		{name: "incomplete", saveErr: credential.ErrIncomplete, httpStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			store.On("SaveCredentials", mock.Anything, "id", "secret", "refresh", credential.SaveOptions{}).Return(tt.saveErr)
			h := NewHandler(store, new(MockGranter), logger.Discard(), huma.Middlewares{})

			out, err := h.save(context.Background(), &saveInput{Body: SaveRequest{ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh"}})
			if tt.httpStatus != 0 {
				var se huma.StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, tt.httpStatus, se.GetStatus())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, out.Body.Status)
		})
	}
}

func TestHandler_grant(t *testing.T) {
	store := new(MockStore)
	granter := new(MockGranter)
	granter.On("ExchangeGrantCode", mock.Anything, "id", "secret", "code", "eu").
		Return(books.GrantResult{AccessToken: "at", RefreshToken: "rt", ExpiresIn: time.Hour}, nil)
	store.On("SaveCredentials", mock.Anything, "id", "secret", "rt", credential.SaveOptions{SkipValidation: true}).Return(nil)
	store.On("SaveAccessToken", mock.Anything, "at", time.Hour).Return(nil)

	h := NewHandler(store, granter, logger.Discard(), huma.Middlewares{})
	out, err := h.grant(context.Background(), &grantInput{Body: GrantRequest{ClientID: "id", ClientSecret: "secret", GrantCode: "code", Region: "eu"}})

	require.NoError(t, err)
	assert.Equal(t, "Ok", out.Body.Status)
	store.AssertExpectations(t)
}

func TestHandler_grant_NoOfflineAccess(t *testing.T) {
	store := new(MockStore)
	granter := new(MockGranter)
	granter.On("ExchangeGrantCode", mock.Anything, "id", "secret", "code", "").
		Return(books.GrantResult{}, books.ErrNoOfflineAccess)

	h := NewHandler(store, granter, logger.Discard(), huma.Middlewares{})
	_, err := h.grant(context.Background(), &grantInput{Body: GrantRequest{ClientID: "id", ClientSecret: "secret", GrantCode: "code"}})

	var se huma.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.GetStatus())
	store.AssertNotCalled(t, "SaveCredentials", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
