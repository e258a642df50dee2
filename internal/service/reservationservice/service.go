package reservationservice

import (
	"context"
	"strings"
	"time"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

// ReservationRepository define o contrato que o Gerenciador de Reservas espera da camada de Persistência.
type ReservationRepository interface {
	CreateIfAvailable(ctx context.Context, res domain.StockReservation, now time.Time) (domain.StockReservation, bool, error)
	GetByID(ctx context.Context, id string) (domain.StockReservation, error)
	FindActiveByOrder(ctx context.Context, orderID string) ([]domain.StockReservation, error)
	Transition(ctx context.Context, id string, to domain.ReservationStatus, reason string, now time.Time) (domain.StockReservation, error)
	ExpireDue(ctx context.Context, now time.Time) ([]string, error)
}

// Service é o Reservation Manager. Reservas seguram disponibilidade e nunca
// alteram StockRecord.Quantity.
type Service struct {
	repo       ReservationRepository
	defaultTTL time.Duration
	logger     logger.Logger
	now        func() time.Time
}

// NewService cria o gerenciador com o TTL usado quando o pedido não informa um.
func NewService(repo ReservationRepository, defaultTTL time.Duration, logger logger.Logger) *Service {
	return &Service{repo: repo, defaultTTL: defaultTTL, logger: logger, now: time.Now}
}

func (s *Service) ttl(req domain.ReserveRequest) time.Duration {
	if req.TTL > 0 {
		return req.TTL
	}
	if req.TTLSeconds > 0 {
		return time.Duration(req.TTLSeconds) * time.Second
	}
	return s.defaultTTL
}

// Reserve segura quantity unidades da chave para o pedido até now+ttl.
// Falha com InsufficientAvailableStockError se quantity exceder o disponível.
func (s *Service) Reserve(ctx context.Context, req domain.ReserveRequest) (domain.StockReservation, error) {
	if strings.TrimSpace(req.ProductID) == "" || strings.TrimSpace(req.OrderID) == "" || strings.TrimSpace(req.CustomerID) == "" {
		return domain.StockReservation{}, apperror.NewValidationError("product_id, order_id e customer_id são obrigatórios.")
	}
	if req.Quantity < 1 {
		return domain.StockReservation{}, apperror.NewValidationError("a quantidade reservada deve ser no mínimo 1.")
	}

	now := s.now().UTC()
	res, created, err := s.repo.CreateIfAvailable(ctx, domain.StockReservation{
		ProductID:   req.ProductID,
		VariantID:   req.VariantID,
		WarehouseID: req.WarehouseID,
		OrderID:     req.OrderID,
		CustomerID:  req.CustomerID,
		Quantity:    req.Quantity,
		Status:      domain.ReservationActive,
		ExpiresAt:   now.Add(s.ttl(req)),
	}, now)
	if err != nil {
		s.logger.Warn("Reserva rejeitada.", map[string]interface{}{
			"key": req.StockKey.String(), "order_id": req.OrderID, "quantity": req.Quantity, "error": err.Error(),
		})
		return domain.StockReservation{}, err
	}
	if !created {
		s.logger.Debug("Reserva existente devolvida.", map[string]interface{}{"reservation_id": res.ID, "order_id": req.OrderID})
	}
	return res, nil
}

// Fulfill libera a reserva como atendida. A baixa no estoque é uma venda separada no ledger.
func (s *Service) Fulfill(ctx context.Context, id string) (domain.StockReservation, error) {
	res, err := s.repo.Transition(ctx, id, domain.ReservationFulfilled, "", s.now().UTC())
	if err != nil {
		return domain.StockReservation{}, err
	}
	s.logger.Info("Reserva atendida.", map[string]interface{}{"reservation_id": id, "order_id": res.OrderID})
	return res, nil
}

// Cancel cancela uma reserva ativa.
func (s *Service) Cancel(ctx context.Context, id, reason string) (domain.StockReservation, error) {
	res, err := s.repo.Transition(ctx, id, domain.ReservationCancelled, reason, s.now().UTC())
	if err != nil {
		return domain.StockReservation{}, err
	}
	s.logger.Info("Reserva cancelada.", map[string]interface{}{"reservation_id": id, "order_id": res.OrderID, "reason": reason})
	return res, nil
}

// ExpireDue expira todas as reservas ativas vencidas em now e devolve quantas foram expiradas.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.repo.ExpireDue(ctx, now.UTC())
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		s.logger.Info("Reservas vencidas expiradas.", map[string]interface{}{"count": len(ids)})
	}
	return len(ids), nil
}

// Get busca uma reserva pelo ID.
func (s *Service) Get(ctx context.Context, id string) (domain.StockReservation, error) {
	return s.repo.GetByID(ctx, id)
}

// ListActiveByOrder lista as reservas do pedido que ainda seguram estoque.
func (s *Service) ListActiveByOrder(ctx context.Context, orderID string) ([]domain.StockReservation, error) {
	all, err := s.repo.FindActiveByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	holding := make([]domain.StockReservation, 0, len(all))
	for _, res := range all {
		if res.Holds(now) {
			holding = append(holding, res)
		}
	}
	return holding, nil
}
