package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

// Reserver é o subconjunto do Reservation Manager usado pelos eventos de pedido.
type Reserver interface {
	Reserve(ctx context.Context, req domain.ReserveRequest) (domain.StockReservation, error)
	Fulfill(ctx context.Context, id string) (domain.StockReservation, error)
	Cancel(ctx context.Context, id, reason string) (domain.StockReservation, error)
	ListActiveByOrder(ctx context.Context, orderID string) ([]domain.StockReservation, error)
}

// LedgerWriter grava a venda de um pedido pago.
type LedgerWriter interface {
	RecordChange(ctx context.Context, req domain.StockChangeRequest) (domain.StockLedgerEntry, error)
}

// OrderConsumer aplica eventos de pedido sobre reservas e ledger. A entrega é
// at-least-once: cada efeito precisa ser seguro sob reentrega.
type OrderConsumer struct {
	consumer     Consumer
	reservations Reserver
	ledger       LedgerWriter
	logger       logger.Logger
}

// NewOrderConsumer cria o consumidor de eventos de pedido.
func NewOrderConsumer(consumer Consumer, reservations Reserver, ledger LedgerWriter, log logger.Logger) *OrderConsumer {
	return &OrderConsumer{
		consumer:     consumer,
		reservations: reservations,
		ledger:       ledger,
		logger:       log.With(map[string]interface{}{"worker": "order-consumer"}),
	}
}

// Start lê mensagens até ctx ser cancelado. Falhas de processamento são registradas
// e a leitura segue.
func (c *OrderConsumer) Start(ctx context.Context) error {
	c.logger.Info("Consumidor de pedidos iniciado.", nil)
	for {
		msg, err := c.consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break
			}
			c.logger.Error("Falha ao ler mensagem do Kafka.", err)
			continue
		}
		if err := c.HandleMessage(ctx, *msg); err != nil {
			c.logger.Error(fmt.Sprintf("Falha ao processar mensagem (partição %d, offset %d).", msg.Partition, msg.Offset), err)
		}
	}
	c.logger.Info("Consumidor de pedidos encerrado.", nil)
	return nil
}

// HandleMessage decodifica e despacha um evento. Tipos desconhecidos são ignorados.
func (c *OrderConsumer) HandleMessage(ctx context.Context, msg kafka.Message) error {
	ctx = extractTraceContext(ctx, msg.Headers)

	var evt OrderEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return fmt.Errorf("evento de pedido inválido: %w", err)
	}
	if evt.OrderID == "" {
		return apperror.NewValidationError("evento de pedido sem order_id.")
	}

	switch evt.Type {
	case OrderPlaced:
		return c.handlePlaced(ctx, evt)
	case OrderPaid:
		return c.handlePaid(ctx, evt)
	case OrderCancelled:
		return c.handleCancelled(ctx, evt)
	default:
		c.logger.Debug("Evento de pedido ignorado.", map[string]interface{}{"type": evt.Type, "order_id": evt.OrderID})
		return nil
	}
}

// handlePlaced reserva cada item. Reentregas devolvem a reserva já existente.
func (c *OrderConsumer) handlePlaced(ctx context.Context, evt OrderEvent) error {
	var errs []error
	for _, item := range evt.Items {
		res, err := c.reservations.Reserve(ctx, domain.ReserveRequest{
			StockKey:   item.key(),
			OrderID:    evt.OrderID,
			CustomerID: evt.CustomerID,
			Quantity:   item.Quantity,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("reserva de %s: %w", item.key(), err))
			continue
		}
		c.logger.Info("Item do pedido reservado.", map[string]interface{}{
			"order_id": evt.OrderID, "reservation_id": res.ID, "key": item.key().String(),
		})
	}
	return errors.Join(errs...)
}

// handlePaid grava a venda de cada reserva ativa e então a atende. A venda vem
// primeiro e usa a chave de idempotência do pedido, assim uma reentrega após falha
// parcial não baixa o estoque duas vezes.
func (c *OrderConsumer) handlePaid(ctx context.Context, evt OrderEvent) error {
	active, err := c.reservations.ListActiveByOrder(ctx, evt.OrderID)
	if err != nil {
		return err
	}

	var errs []error
	for _, res := range active {
		key := res.Key()
		_, err := c.ledger.RecordChange(ctx, domain.StockChangeRequest{
			StockKey:       key,
			ChangeType:     domain.ChangeSale,
			Delta:          -res.Quantity,
			Reason:         "pedido pago",
			ActorID:        domain.SystemActorID,
			ReferenceID:    evt.OrderID,
			IdempotencyKey: domain.OrderIdempotencyKey(evt.OrderID, key, domain.ChangeSale),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("venda de %s: %w", key, err))
			continue
		}
		if _, err := c.reservations.Fulfill(ctx, res.ID); err != nil && !isReservationState(err) {
			errs = append(errs, fmt.Errorf("atendimento da reserva %s: %w", res.ID, err))
		}
	}
	return errors.Join(errs...)
}

// handleCancelled cancela as reservas ativas do pedido.
func (c *OrderConsumer) handleCancelled(ctx context.Context, evt OrderEvent) error {
	active, err := c.reservations.ListActiveByOrder(ctx, evt.OrderID)
	if err != nil {
		return err
	}
	reason := evt.Reason
	if reason == "" {
		reason = "pedido cancelado"
	}

	var errs []error
	for _, res := range active {
		if _, err := c.reservations.Cancel(ctx, res.ID, reason); err != nil && !isReservationState(err) {
			errs = append(errs, fmt.Errorf("cancelamento da reserva %s: %w", res.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Uma reserva que já saiu de active (expirou ou outra entrega venceu) não é falha.
func isReservationState(err error) bool {
	var stateErr *apperror.ReservationStateError
	return errors.As(err, &stateErr)
}

func extractTraceContext(ctx context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range headers {
		carrier[h.Key] = string(h.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
