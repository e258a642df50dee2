package stock_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stockledger/internal/api/stock"
	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/middleware"
)

type MockStockService struct {
	mock.Mock
}

func (m *MockStockService) RegisterRecord(ctx context.Context, req domain.RegisterRecordRequest) (domain.StockLevel, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.StockLevel), args.Error(1)
}

func (m *MockStockService) UpdateThreshold(ctx context.Context, req domain.UpdateThresholdRequest) (domain.StockRecord, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.StockRecord), args.Error(1)
}

func (m *MockStockService) GetStock(ctx context.Context, key domain.StockKey) (domain.StockLevel, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.StockLevel), args.Error(1)
}

func (m *MockStockService) RecordChange(ctx context.Context, req domain.StockChangeRequest) (domain.StockLedgerEntry, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.StockLedgerEntry), args.Error(1)
}

func (m *MockStockService) ListEntries(ctx context.Context, key domain.StockKey, limit int) ([]domain.StockLedgerEntry, error) {
	args := m.Called(ctx, key, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StockLedgerEntry), args.Error(1)
}

func (m *MockStockService) Replay(ctx context.Context, key domain.StockKey) (domain.ReplayReport, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.ReplayReport), args.Error(1)
}

type MockBatchService struct {
	mock.Mock
}

func (m *MockBatchService) ApplyBatch(ctx context.Context, requests []domain.StockChangeRequest, actorID string) domain.BatchResult {
	args := m.Called(ctx, requests, actorID)
	return args.Get(0).(domain.BatchResult)
}

func newRequest(method, target, body string, role domain.ActorRole) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.WithActor(req.Context(), middleware.ActorClaims{ActorID: "actor-1", Role: role})
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) domain.ErrorResponse {
	t.Helper()
	var resp domain.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRecordChangeHandler(t *testing.T) {
	key := domain.StockKey{ProductID: "p1", WarehouseID: "w1"}

	t.Run("Sucesso com ator do token", func(t *testing.T) {
		svc := new(MockStockService)
		h := stock.NewHandler(svc, new(MockBatchService), logger.NewNopLogger())
		svc.On("RecordChange", mock.Anything, domain.StockChangeRequest{
			StockKey: key, ChangeType: domain.ChangeSale, Delta: -2, ActorID: "actor-1",
		}).Return(domain.StockLedgerEntry{ID: "e1", PreviousQuantity: 10, NewQuantity: 8, QuantityDelta: -2}, nil).Once()

		rec := httptest.NewRecorder()
		h.RecordChangeHandler(rec, newRequest(http.MethodPost, "/v1/stock/changes",
			`{"product_id":"p1","warehouse_id":"w1","change_type":"sale","delta":-2}`, domain.RoleOperator))

		assert.Equal(t, http.StatusCreated, rec.Code)
		var entry domain.StockLedgerEntry
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&entry))
		assert.Equal(t, 8, entry.NewQuantity)
		svc.AssertExpectations(t)
	})

	t.Run("Ajuste exige manager", func(t *testing.T) {
		svc := new(MockStockService)
		h := stock.NewHandler(svc, new(MockBatchService), logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.RecordChangeHandler(rec, newRequest(http.MethodPost, "/v1/stock/changes",
			`{"product_id":"p1","change_type":"adjustment","delta":-1,"reason":"quebra"}`, domain.RoleOperator))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		svc.AssertNotCalled(t, "RecordChange", mock.Anything, mock.Anything)
	})

	t.Run("Payload com campo desconhecido", func(t *testing.T) {
		svc := new(MockStockService)
		h := stock.NewHandler(svc, new(MockBatchService), logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.RecordChangeHandler(rec, newRequest(http.MethodPost, "/v1/stock/changes",
			`{"product_id":"p1","change_type":"sale","delta":-1,"quantity":3}`, domain.RoleOperator))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Category)
	})

	t.Run("Estoque insuficiente", func(t *testing.T) {
		svc := new(MockStockService)
		h := stock.NewHandler(svc, new(MockBatchService), logger.NewNopLogger())
		svc.On("RecordChange", mock.Anything, mock.Anything).
			Return(domain.StockLedgerEntry{}, apperror.NewInsufficientStockError(1, -5)).Once()

		rec := httptest.NewRecorder()
		h.RecordChangeHandler(rec, newRequest(http.MethodPost, "/v1/stock/changes",
			`{"product_id":"p1","change_type":"sale","delta":-5}`, domain.RoleOperator))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "INSUFFICIENT_STOCK", resp.Category)
		assert.False(t, resp.Retryable)
	})

	t.Run("Conflito de concorrência é reenviável", func(t *testing.T) {
		svc := new(MockStockService)
		h := stock.NewHandler(svc, new(MockBatchService), logger.NewNopLogger())
		svc.On("RecordChange", mock.Anything, mock.Anything).
			Return(domain.StockLedgerEntry{}, apperror.NewConflictError("ocupado")).Once()

		rec := httptest.NewRecorder()
		h.RecordChangeHandler(rec, newRequest(http.MethodPost, "/v1/stock/changes",
			`{"product_id":"p1","change_type":"restock","delta":5}`, domain.RoleOperator))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.True(t, decodeError(t, rec).Retryable)
	})
}

func TestGetStockHandler(t *testing.T) {
	t.Run("Sucesso", func(t *testing.T) {
		svc := new(MockStockService)
		h := stock.NewHandler(svc, new(MockBatchService), logger.NewNopLogger())
		key := domain.StockKey{ProductID: "p1", VariantID: "v1"}
		svc.On("GetStock", mock.Anything, key).Return(domain.StockLevel{
			StockRecord: domain.StockRecord{ProductID: "p1", VariantID: "v1", Quantity: 10},
			Reserved:    3,
			Available:   7,
		}, nil).Once()

		rec := httptest.NewRecorder()
		h.GetStockHandler(rec, newRequest(http.MethodGet, "/v1/stock/records?product_id=p1&variant_id=v1", "", domain.RoleOperator))

		assert.Equal(t, http.StatusOK, rec.Code)
		var level domain.StockLevel
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&level))
		assert.Equal(t, 7, level.Available)
		assert.Equal(t, 3, level.Reserved)
	})

	t.Run("Sem product_id", func(t *testing.T) {
		svc := new(MockStockService)
		h := stock.NewHandler(svc, new(MockBatchService), logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.GetStockHandler(rec, newRequest(http.MethodGet, "/v1/stock/records?warehouse_id=w1", "", domain.RoleOperator))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "GetStock", mock.Anything, mock.Anything)
	})

	t.Run("Registro inexistente", func(t *testing.T) {
		svc := new(MockStockService)
		h := stock.NewHandler(svc, new(MockBatchService), logger.NewNopLogger())
		svc.On("GetStock", mock.Anything, domain.StockKey{ProductID: "p9"}).
			Return(domain.StockLevel{}, apperror.NewNotFoundError("sem registro")).Once()

		rec := httptest.NewRecorder()
		h.GetStockHandler(rec, newRequest(http.MethodGet, "/v1/stock/records?product_id=p9", "", domain.RoleOperator))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRegisterRecordHandler(t *testing.T) {
	svc := new(MockStockService)
	h := stock.NewHandler(svc, new(MockBatchService), logger.NewNopLogger())
	svc.On("RegisterRecord", mock.Anything, domain.RegisterRecordRequest{
		StockKey:          domain.StockKey{ProductID: "p1"},
		LowStockThreshold: 5,
		InitialQuantity:   20,
		ActorID:           "actor-1",
	}).Return(domain.StockLevel{StockRecord: domain.StockRecord{ProductID: "p1", Quantity: 20}, Available: 20}, nil).Once()

	rec := httptest.NewRecorder()
	h.RegisterRecordHandler(rec, newRequest(http.MethodPost, "/v1/stock/records",
		`{"product_id":"p1","low_stock_threshold":5,"initial_quantity":20}`, domain.RoleManager))

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestApplyBatchHandler(t *testing.T) {
	body := `{"changes":[{"product_id":"p1","change_type":"restock","delta":5},{"product_id":"p2","change_type":"sale","delta":-1}]}`

	t.Run("Ao menos um aplicado", func(t *testing.T) {
		batch := new(MockBatchService)
		h := stock.NewHandler(new(MockStockService), batch, logger.NewNopLogger())
		batch.On("ApplyBatch", mock.Anything, mock.MatchedBy(func(reqs []domain.StockChangeRequest) bool {
			return len(reqs) == 2 && reqs[0].ActorID == "actor-1" && reqs[1].ActorID == "actor-1"
		}), "actor-1").Return(domain.BatchResult{Total: 2, Succeeded: 1, FailedCount: 1}).Once()

		rec := httptest.NewRecorder()
		h.ApplyBatchHandler(rec, newRequest(http.MethodPost, "/v1/stock/changes/batch", body, domain.RoleOperator))

		assert.Equal(t, http.StatusOK, rec.Code)
		batch.AssertExpectations(t)
	})

	t.Run("Nenhum aplicado", func(t *testing.T) {
		batch := new(MockBatchService)
		h := stock.NewHandler(new(MockStockService), batch, logger.NewNopLogger())
		batch.On("ApplyBatch", mock.Anything, mock.Anything, "actor-1").
			Return(domain.BatchResult{Total: 2, FailedCount: 2}).Once()

		rec := httptest.NewRecorder()
		h.ApplyBatchHandler(rec, newRequest(http.MethodPost, "/v1/stock/changes/batch", body, domain.RoleOperator))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("Lote vazio", func(t *testing.T) {
		batch := new(MockBatchService)
		h := stock.NewHandler(new(MockStockService), batch, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.ApplyBatchHandler(rec, newRequest(http.MethodPost, "/v1/stock/changes/batch", `{"changes":[]}`, domain.RoleOperator))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		batch.AssertNotCalled(t, "ApplyBatch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Ajuste no lote exige manager", func(t *testing.T) {
		batch := new(MockBatchService)
		h := stock.NewHandler(new(MockStockService), batch, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.ApplyBatchHandler(rec, newRequest(http.MethodPost, "/v1/stock/changes/batch",
			`{"changes":[{"product_id":"p1","change_type":"adjustment","delta":-1}]}`, domain.RoleOperator))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestListLedgerHandler(t *testing.T) {
	t.Run("Com limite", func(t *testing.T) {
		svc := new(MockStockService)
		h := stock.NewHandler(svc, new(MockBatchService), logger.NewNopLogger())
		svc.On("ListEntries", mock.Anything, domain.StockKey{ProductID: "p1"}, 10).
			Return([]domain.StockLedgerEntry{{ID: "e2"}, {ID: "e1"}}, nil).Once()

		rec := httptest.NewRecorder()
		h.ListLedgerHandler(rec, newRequest(http.MethodGet, "/v1/stock/ledger?product_id=p1&limit=10", "", domain.RoleOperator))

		assert.Equal(t, http.StatusOK, rec.Code)
		var entries []domain.StockLedgerEntry
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
		assert.Len(t, entries, 2)
	})

	t.Run("Limite inválido", func(t *testing.T) {
		svc := new(MockStockService)
		h := stock.NewHandler(svc, new(MockBatchService), logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.ListLedgerHandler(rec, newRequest(http.MethodGet, "/v1/stock/ledger?product_id=p1&limit=-3", "", domain.RoleOperator))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReplayHandler(t *testing.T) {
	svc := new(MockStockService)
	h := stock.NewHandler(svc, new(MockBatchService), logger.NewNopLogger())
	svc.On("Replay", mock.Anything, domain.StockKey{ProductID: "p1"}).Return(domain.ReplayReport{}, nil).Once()

	rec := httptest.NewRecorder()
	h.ReplayHandler(rec, newRequest(http.MethodGet, "/v1/stock/ledger/replay?product_id=p1", "", domain.RoleOperator))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}
