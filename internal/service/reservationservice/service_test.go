package reservationservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/service/reservationservice"
)

// MockReservationRepository é uma implementação mock da interface ReservationRepository
type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) CreateIfAvailable(ctx context.Context, res domain.StockReservation, now time.Time) (domain.StockReservation, bool, error) {
	args := m.Called(ctx, res, now)
	return args.Get(0).(domain.StockReservation), args.Bool(1), args.Error(2)
}

func (m *MockReservationRepository) GetByID(ctx context.Context, id string) (domain.StockReservation, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.StockReservation), args.Error(1)
}

func (m *MockReservationRepository) FindActiveByOrder(ctx context.Context, orderID string) ([]domain.StockReservation, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]domain.StockReservation), args.Error(1)
}

func (m *MockReservationRepository) Transition(ctx context.Context, id string, to domain.ReservationStatus, reason string, now time.Time) (domain.StockReservation, error) {
	args := m.Called(ctx, id, to, reason, now)
	return args.Get(0).(domain.StockReservation), args.Error(1)
}

func (m *MockReservationRepository) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]string), args.Error(1)
}

func reserveRequest(qty int) domain.ReserveRequest {
	return domain.ReserveRequest{
		StockKey:   domain.StockKey{ProductID: "p1"},
		OrderID:    "o1",
		CustomerID: "c1",
		Quantity:   qty,
	}
}

func TestReserve_UsesDefaultTTL(t *testing.T) {
	mockRepo := new(MockReservationRepository)
	svc := reservationservice.NewService(mockRepo, 15*time.Minute, logger.NewNopLogger())

	var gotNow time.Time
	mockRepo.On("CreateIfAvailable", mock.Anything, mock.AnythingOfType("domain.StockReservation"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			res := args.Get(1).(domain.StockReservation)
			gotNow = args.Get(2).(time.Time)
			assert.Equal(t, gotNow.Add(15*time.Minute), res.ExpiresAt)
			assert.Equal(t, domain.ReservationActive, res.Status)
		}).
		Return(domain.StockReservation{ID: "r1", Status: domain.ReservationActive, Quantity: 3}, true, nil)

	res, err := svc.Reserve(context.Background(), reserveRequest(3))

	require.NoError(t, err)
	assert.Equal(t, "r1", res.ID)
	mockRepo.AssertExpectations(t)
}

func TestReserve_ExplicitTTL(t *testing.T) {
	mockRepo := new(MockReservationRepository)
	svc := reservationservice.NewService(mockRepo, 15*time.Minute, logger.NewNopLogger())

	mockRepo.On("CreateIfAvailable", mock.Anything, mock.AnythingOfType("domain.StockReservation"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			res := args.Get(1).(domain.StockReservation)
			now := args.Get(2).(time.Time)
			assert.Equal(t, now.Add(90*time.Second), res.ExpiresAt)
		}).
		Return(domain.StockReservation{ID: "r1"}, true, nil)

	req := reserveRequest(1)
	req.TTLSeconds = 90
	_, err := svc.Reserve(context.Background(), req)
	require.NoError(t, err)
}

func TestReserve_Validation(t *testing.T) {
	mockRepo := new(MockReservationRepository)
	svc := reservationservice.NewService(mockRepo, time.Minute, logger.NewNopLogger())

	_, err := svc.Reserve(context.Background(), reserveRequest(0))
	assert.IsType(t, &apperror.ValidationError{}, err)

	req := reserveRequest(1)
	req.OrderID = ""
	_, err = svc.Reserve(context.Background(), req)
	assert.IsType(t, &apperror.ValidationError{}, err)

	mockRepo.AssertNotCalled(t, "CreateIfAvailable", mock.Anything, mock.Anything, mock.Anything)
}

func TestReserve_InsufficientAvailable(t *testing.T) {
	mockRepo := new(MockReservationRepository)
	svc := reservationservice.NewService(mockRepo, time.Minute, logger.NewNopLogger())

	mockRepo.On("CreateIfAvailable", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.StockReservation{}, false, apperror.NewInsufficientAvailableStockError(2, 5))

	_, err := svc.Reserve(context.Background(), reserveRequest(5))

	assert.IsType(t, &apperror.InsufficientAvailableStockError{}, err)
}

func TestFulfillAndCancel(t *testing.T) {
	mockRepo := new(MockReservationRepository)
	svc := reservationservice.NewService(mockRepo, time.Minute, logger.NewNopLogger())

	mockRepo.On("Transition", mock.Anything, "r1", domain.ReservationFulfilled, "", mock.AnythingOfType("time.Time")).
		Return(domain.StockReservation{ID: "r1", Status: domain.ReservationFulfilled}, nil)
	mockRepo.On("Transition", mock.Anything, "r1", domain.ReservationCancelled, "cliente desistiu", mock.AnythingOfType("time.Time")).
		Return(domain.StockReservation{}, apperror.NewReservationStateError("fulfilled", "cancelled"))

	res, err := svc.Fulfill(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationFulfilled, res.Status)

	_, err = svc.Cancel(context.Background(), "r1", "cliente desistiu")
	assert.IsType(t, &apperror.ReservationStateError{}, err)
	mockRepo.AssertExpectations(t)
}

func TestExpireDue(t *testing.T) {
	mockRepo := new(MockReservationRepository)
	svc := reservationservice.NewService(mockRepo, time.Minute, logger.NewNopLogger())

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mockRepo.On("ExpireDue", mock.Anything, now).Return([]string{"r1", "r2"}, nil)

	n, err := svc.ExpireDue(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestListActiveByOrder_SkipsElapsed(t *testing.T) {
	mockRepo := new(MockReservationRepository)
	svc := reservationservice.NewService(mockRepo, time.Minute, logger.NewNopLogger())

	now := time.Now()
	mockRepo.On("FindActiveByOrder", mock.Anything, "o1").Return([]domain.StockReservation{
		{ID: "r1", Status: domain.ReservationActive, ExpiresAt: now.Add(time.Hour)},
		{ID: "r2", Status: domain.ReservationActive, ExpiresAt: now.Add(-time.Minute)},
	}, nil)

	list, err := svc.ListActiveByOrder(context.Background(), "o1")

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].ID)
}
