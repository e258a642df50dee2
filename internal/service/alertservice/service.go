package alertservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

// AlertRepository define o contrato que o Avaliador de Alertas espera da camada de Persistência.
type AlertRepository interface {
	Upsert(ctx context.Context, alert domain.Alert) (domain.Alert, bool, error)
	List(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error)
	Resolve(ctx context.Context, id, resolvedBy string, at time.Time) (domain.Alert, error)
}

// Publisher entrega alertas novos para fora do serviço (ex.: tópico Kafka).
type Publisher interface {
	PublishAlert(ctx context.Context, alert domain.Alert) error
}

// Service é o Alert Evaluator.
type Service struct {
	repo      AlertRepository
	publisher Publisher
	logger    logger.Logger
	now       func() time.Time
}

// NewService cria o avaliador. publisher pode ser nil quando a mensageria está desligada.
func NewService(repo AlertRepository, publisher Publisher, logger logger.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

// Evaluate cria (ou atualiza) o alerta low_stock da chave quando newQuantity <= threshold.
// Acima do limite não faz nada. A publicação só ocorre para alertas novos, e sua falha
// é apenas registrada.
func (s *Service) Evaluate(ctx context.Context, key domain.StockKey, newQuantity, threshold int) error {
	if newQuantity > threshold {
		return nil
	}

	alert, created, err := s.repo.Upsert(ctx, domain.Alert{
		ProductID:   key.ProductID,
		VariantID:   key.VariantID,
		WarehouseID: key.WarehouseID,
		Type:        domain.AlertLowStock,
		Threshold:   threshold,
		Quantity:    newQuantity,
		Message:     fmt.Sprintf("Estoque baixo para %s: %d unidades (limite %d).", key, newQuantity, threshold),
	})
	if err != nil {
		return err
	}

	if !created {
		s.logger.Debug("Alerta de estoque baixo já aberto; atualizado.", map[string]interface{}{"alert_id": alert.ID, "quantity": newQuantity})
		return nil
	}

	s.logger.Info("Alerta de estoque baixo criado.", map[string]interface{}{
		"alert_id": alert.ID, "key": key.String(), "quantity": newQuantity, "threshold": threshold,
	})
	if s.publisher != nil {
		if err := s.publisher.PublishAlert(ctx, alert); err != nil {
			s.logger.Error("Falha ao publicar alerta de estoque baixo.", err)
		}
	}
	return nil
}

// List lista alertas, opcionalmente só os não resolvidos.
func (s *Service) List(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	return s.repo.List(ctx, filter)
}

// Resolve marca o alerta como resolvido por resolvedBy.
func (s *Service) Resolve(ctx context.Context, id, resolvedBy string) (domain.Alert, error) {
	if strings.TrimSpace(resolvedBy) == "" {
		return domain.Alert{}, apperror.NewValidationError("resolvedBy é obrigatório.")
	}
	alert, err := s.repo.Resolve(ctx, id, resolvedBy, s.now().UTC())
	if err != nil {
		return domain.Alert{}, err
	}
	s.logger.Info("Alerta resolvido.", map[string]interface{}{"alert_id": id, "resolved_by": resolvedBy})
	return alert, nil
}
