package alert_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"stockledger/internal/api/alert"
	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/middleware"
)

type MockAlertService struct {
	mock.Mock
}

func (m *MockAlertService) List(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Alert), args.Error(1)
}

func (m *MockAlertService) Resolve(ctx context.Context, id, resolvedBy string) (domain.Alert, error) {
	args := m.Called(ctx, id, resolvedBy)
	return args.Get(0).(domain.Alert), args.Error(1)
}

func TestListAlertsHandler(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		filter *domain.AlertFilter
		status int
	}{
		{"Sem filtros", "", &domain.AlertFilter{}, http.StatusOK},
		{"Pendentes de um produto", "?product_id=p1&unresolved=true&limit=5", &domain.AlertFilter{ProductID: "p1", UnresolvedOnly: true, Limit: 5}, http.StatusOK},
		{"unresolved inválido", "?unresolved=talvez", nil, http.StatusBadRequest},
		{"limit inválido", "?limit=abc", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAlertService)
			h := alert.NewHandler(svc, logger.NewNopLogger())
			if tt.filter != nil {
				svc.On("List", mock.Anything, *tt.filter).Return([]domain.Alert{{ID: "a1"}}, nil).Once()
			}

			rec := httptest.NewRecorder()
			h.ListAlertsHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/alerts"+tt.query, nil))

			assert.Equal(t, tt.status, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestResolveAlertHandler(t *testing.T) {
	newServer := func(svc *MockAlertService) http.Handler {
		h := alert.NewHandler(svc, logger.NewNopLogger())
		mux := http.NewServeMux()
		mux.HandleFunc("POST /v1/alerts/{id}/resolve", h.ResolveAlertHandler)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithActor(r.Context(), middleware.ActorClaims{ActorID: "op-7", Role: domain.RoleOperator})
			mux.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	t.Run("Sucesso", func(t *testing.T) {
		svc := new(MockAlertService)
		svc.On("Resolve", mock.Anything, "a1", "op-7").Return(domain.Alert{ID: "a1", IsResolved: true, ResolvedBy: "op-7"}, nil).Once()

		rec := httptest.NewRecorder()
		newServer(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/alerts/a1/resolve", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("Alerta inexistente", func(t *testing.T) {
		svc := new(MockAlertService)
		svc.On("Resolve", mock.Anything, "a9", "op-7").Return(domain.Alert{}, apperror.NewNotFoundError("alerta não encontrado")).Once()

		rec := httptest.NewRecorder()
		newServer(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/alerts/a9/resolve", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
