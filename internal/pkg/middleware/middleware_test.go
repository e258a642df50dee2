package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stockledger/internal/domain"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/middleware"
	"stockledger/internal/pkg/token"
)

func okHandler(t *testing.T, wantActor string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantActor != "" {
			claims, ok := middleware.GetActorFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, wantActor, claims.ActorID)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddleware(t *testing.T) {
	tokenSvc := token.NewService("segredo", time.Hour)
	valid, err := tokenSvc.GenerateToken("actor-9", "operator")
	require.NoError(t, err)

	h := middleware.NewAuthMiddleware(tokenSvc)(okHandler(t, "actor-9"))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"sem header", "", http.StatusUnauthorized},
		{"esquema errado", "Basic abc", http.StatusUnauthorized},
		{"token inválido", "Bearer lixo", http.StatusUnauthorized},
		{"token válido", "Bearer " + valid, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/stock/records", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	h := middleware.RequireRoles(domain.RoleAdmin, domain.RoleManager)(okHandler(t, ""))

	req := httptest.NewRequest(http.MethodPost, "/v1/stock/changes", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = req.WithContext(middleware.WithActor(context.Background(), middleware.ActorClaims{ActorID: "a", Role: domain.RoleOperator}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = req.WithContext(middleware.WithActor(context.Background(), middleware.ActorClaims{ActorID: "a", Role: domain.RoleManager}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// MockCache é uma implementação mock de cache.Client
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Incr(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	args := m.Called(ctx, key, expiration)
	return args.Error(0)
}

func TestRateLimiter(t *testing.T) {
	mockCache := new(MockCache)
	mockCache.On("Incr", mock.Anything, "rate-limit:10.0.0.1").Return(int64(1), nil).Once()
	mockCache.On("Expire", mock.Anything, "rate-limit:10.0.0.1", time.Minute).Return(nil).Once()
	mockCache.On("Incr", mock.Anything, "rate-limit:10.0.0.1").Return(int64(3), nil).Once()

	h := middleware.RateLimiter(mockCache, 2, time.Minute, logger.NewNopLogger())(okHandler(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	mockCache.AssertExpectations(t)
}

func TestRateLimiter_CacheDown(t *testing.T) {
	mockCache := new(MockCache)
	mockCache.On("Incr", mock.Anything, mock.Anything).Return(int64(0), errors.New("redis fora"))

	h := middleware.RateLimiter(mockCache, 2, time.Minute, logger.NewNopLogger())(okHandler(t, ""))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
