package alertservice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/service/alertservice"
)

// MockAlertRepository é uma implementação mock da interface AlertRepository
type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) Upsert(ctx context.Context, alert domain.Alert) (domain.Alert, bool, error) {
	args := m.Called(ctx, alert)
	return args.Get(0).(domain.Alert), args.Bool(1), args.Error(2)
}

func (m *MockAlertRepository) List(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Alert), args.Error(1)
}

func (m *MockAlertRepository) Resolve(ctx context.Context, id, resolvedBy string, at time.Time) (domain.Alert, error) {
	args := m.Called(ctx, id, resolvedBy, at)
	return args.Get(0).(domain.Alert), args.Error(1)
}

// MockPublisher é uma implementação mock de Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishAlert(ctx context.Context, alert domain.Alert) error {
	return m.Called(ctx, alert).Error(0)
}

var key = domain.StockKey{ProductID: "p1", WarehouseID: "w1"}

func TestEvaluate_AboveThreshold(t *testing.T) {
	mockRepo := new(MockAlertRepository)
	svc := alertservice.NewService(mockRepo, nil, logger.NewNopLogger())

	err := svc.Evaluate(context.Background(), key, 11, 10)

	assert.NoError(t, err)
	mockRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestEvaluate_CreatesAndPublishesOnce(t *testing.T) {
	mockRepo := new(MockAlertRepository)
	mockPub := new(MockPublisher)
	svc := alertservice.NewService(mockRepo, mockPub, logger.NewNopLogger())

	alert := domain.Alert{ID: "a1", ProductID: "p1", WarehouseID: "w1", Type: domain.AlertLowStock}
	isLowStock := mock.MatchedBy(func(a domain.Alert) bool {
		return a.Type == domain.AlertLowStock && a.ProductID == "p1" && a.Threshold == 10
	})
	mockRepo.On("Upsert", mock.Anything, isLowStock).Return(alert, true, nil).Once()
	mockRepo.On("Upsert", mock.Anything, isLowStock).Return(alert, false, nil).Once()
	mockPub.On("PublishAlert", mock.Anything, alert).Return(nil).Once()

	assert.NoError(t, svc.Evaluate(context.Background(), key, 5, 10))
	// Segunda avaliação reaproveita o alerta aberto e não publica de novo
	assert.NoError(t, svc.Evaluate(context.Background(), key, 4, 10))

	mockRepo.AssertExpectations(t)
	mockPub.AssertExpectations(t)
}

func TestEvaluate_AtThresholdRaises(t *testing.T) {
	mockRepo := new(MockAlertRepository)
	svc := alertservice.NewService(mockRepo, nil, logger.NewNopLogger())

	mockRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(a domain.Alert) bool { return a.Quantity == 10 })).
		Return(domain.Alert{ID: "a1"}, true, nil)

	assert.NoError(t, svc.Evaluate(context.Background(), key, 10, 10))
	mockRepo.AssertExpectations(t)
}

func TestEvaluate_PublishFailureIsNotReturned(t *testing.T) {
	mockRepo := new(MockAlertRepository)
	mockPub := new(MockPublisher)
	svc := alertservice.NewService(mockRepo, mockPub, logger.NewNopLogger())

	mockRepo.On("Upsert", mock.Anything, mock.Anything).Return(domain.Alert{ID: "a1"}, true, nil)
	mockPub.On("PublishAlert", mock.Anything, mock.Anything).Return(errors.New("broker fora"))

	assert.NoError(t, svc.Evaluate(context.Background(), key, 0, 10))
	mockPub.AssertExpectations(t)
}

func TestEvaluate_RepositoryError(t *testing.T) {
	mockRepo := new(MockAlertRepository)
	svc := alertservice.NewService(mockRepo, nil, logger.NewNopLogger())

	mockRepo.On("Upsert", mock.Anything, mock.Anything).
		Return(domain.Alert{}, false, apperror.NewDBError("falha", errors.New("conn reset")))

	err := svc.Evaluate(context.Background(), key, 0, 10)
	assert.IsType(t, &apperror.InternalError{}, err)
}

func TestResolve(t *testing.T) {
	mockRepo := new(MockAlertRepository)
	svc := alertservice.NewService(mockRepo, nil, logger.NewNopLogger())

	_, err := svc.Resolve(context.Background(), "a1", " ")
	assert.IsType(t, &apperror.ValidationError{}, err)

	mockRepo.On("Resolve", mock.Anything, "a1", "manager-1", mock.AnythingOfType("time.Time")).
		Return(domain.Alert{ID: "a1", IsResolved: true, ResolvedBy: "manager-1"}, nil)

	alert, err := svc.Resolve(context.Background(), "a1", "manager-1")
	assert.NoError(t, err)
	assert.True(t, alert.IsResolved)
	mockRepo.AssertExpectations(t)
}
