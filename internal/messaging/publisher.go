package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"stockledger/internal/domain"
	"stockledger/internal/pkg/logger"
)

// AlertPublisher publica alertas novos de estoque baixo no tópico de alertas.
type AlertPublisher struct {
	producer Producer
	logger   logger.Logger
}

// NewAlertPublisher cria o publicador sobre um Producer já configurado.
func NewAlertPublisher(producer Producer, log logger.Logger) *AlertPublisher {
	return &AlertPublisher{producer: producer, logger: log}
}

// PublishAlert serializa o alerta como stock.low, com a chave de estoque como chave da mensagem.
func (p *AlertPublisher) PublishAlert(ctx context.Context, alert domain.Alert) error {
	key := domain.StockKey{ProductID: alert.ProductID, VariantID: alert.VariantID, WarehouseID: alert.WarehouseID}
	payload, err := json.Marshal(AlertEvent{
		Type:        StockLowEvent,
		AlertID:     alert.ID,
		ProductID:   alert.ProductID,
		VariantID:   alert.VariantID,
		WarehouseID: alert.WarehouseID,
		Quantity:    alert.Quantity,
		Threshold:   alert.Threshold,
		Message:     alert.Message,
		CreatedAt:   alert.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("falha ao serializar alerta: %w", err)
	}

	if err := p.producer.WriteMessage(ctx, kafka.Message{Key: []byte(key.String()), Value: payload}); err != nil {
		return fmt.Errorf("falha ao publicar alerta %s: %w", alert.ID, err)
	}
	p.logger.Info("Alerta de estoque baixo publicado.", map[string]interface{}{"alert_id": alert.ID, "key": key.String()})
	return nil
}
