package transferservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/cache"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/observability"
)

const lockTTL = 30 * time.Second

// TransferRepository define o contrato que o Coordenador de Transferências espera da camada de Persistência.
type TransferRepository interface {
	Create(ctx context.Context, t domain.StockTransfer) (domain.StockTransfer, error)
	GetByID(ctx context.Context, id string) (domain.StockTransfer, error)
	Transition(ctx context.Context, id string, tr domain.TransferTransition) (domain.StockTransfer, error)
}

// WarehouseReader confirma que os armazéns da transferência existem.
type WarehouseReader interface {
	GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error)
}

// LedgerWriter é o caminho de mutação de estoque usado pela transferência.
type LedgerWriter interface {
	RecordChange(ctx context.Context, req domain.StockChangeRequest) (domain.StockLedgerEntry, error)
	GetStock(ctx context.Context, key domain.StockKey) (domain.StockLevel, error)
}

// Service é o Transfer Coordinator. A origem é debitada na aprovação e o destino
// creditado na conclusão, sempre via Ledger Writer.
type Service struct {
	repo             TransferRepository
	warehouses       WarehouseReader
	ledger           LedgerWriter
	locker           cache.Locker
	completeAttempts int
	logger           logger.Logger
	now              func() time.Time
}

// NewService cria o coordenador. locker pode ser nil (instância única); a transição
// condicional do repositório continua garantindo a máquina de estados.
func NewService(repo TransferRepository, warehouses WarehouseReader, ledger LedgerWriter, locker cache.Locker, completeAttempts int, logger logger.Logger) *Service {
	if completeAttempts < 1 {
		completeAttempts = 1
	}
	return &Service{
		repo:             repo,
		warehouses:       warehouses,
		ledger:           ledger,
		locker:           locker,
		completeAttempts: completeAttempts,
		logger:           logger,
		now:              time.Now,
	}
}

func newTransferNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("TRF-%s-%s", now.Format("20060102"), suffix)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// withLock serializa transições da mesma transferência entre instâncias.
func (s *Service) withLock(ctx context.Context, id string, fn func() error) error {
	if s.locker == nil {
		return fn()
	}
	lock, err := s.locker.Obtain(ctx, "transfer:"+id, lockTTL)
	if errors.Is(err, cache.ErrLockNotObtained) {
		return apperror.NewConflictError(fmt.Sprintf("transferência %s já está sendo processada", id))
	}
	if err != nil {
		return apperror.NewInternalError("Falha ao obter lock da transferência.", err)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Falha ao liberar lock da transferência.", map[string]interface{}{"transfer_id": id, "error": err.Error()})
		}
	}()
	return fn()
}

// Create valida e registra uma transferência pending. Não altera estoque.
func (s *Service) Create(ctx context.Context, req domain.CreateTransferRequest) (domain.StockTransfer, error) {
	if req.SourceWarehouseID == "" || req.DestinationWarehouseID == "" {
		return domain.StockTransfer{}, apperror.NewValidationError("armazéns de origem e destino são obrigatórios.")
	}
	if req.SourceWarehouseID == req.DestinationWarehouseID {
		return domain.StockTransfer{}, apperror.NewValidationError("origem e destino devem ser armazéns diferentes.")
	}
	if len(req.Items) == 0 {
		return domain.StockTransfer{}, apperror.NewValidationError("a transferência precisa de ao menos um item.")
	}
	for _, id := range []string{req.SourceWarehouseID, req.DestinationWarehouseID} {
		if _, err := s.warehouses.GetWarehouseByID(ctx, id); err != nil {
			return domain.StockTransfer{}, err
		}
	}

	t := domain.StockTransfer{
		SourceWarehouseID:      req.SourceWarehouseID,
		DestinationWarehouseID: req.DestinationWarehouseID,
		Items:                  req.Items,
	}

	// Itens repetidos da mesma chave somam contra a mesma disponibilidade.
	requested := map[domain.StockKey]int{}
	for _, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" || item.Quantity < 1 {
			return domain.StockTransfer{}, apperror.NewValidationError("cada item precisa de product_id e quantidade >= 1.")
		}
		requested[item.SourceKey(t)] += item.Quantity
		// O destino precisa existir antes, senão a conclusão não teria onde creditar.
		if _, err := s.ledger.GetStock(ctx, item.DestinationKey(t)); err != nil {
			return domain.StockTransfer{}, err
		}
	}
	for key, qty := range requested {
		level, err := s.ledger.GetStock(ctx, key)
		if err != nil {
			return domain.StockTransfer{}, err
		}
		if qty > level.Available {
			return domain.StockTransfer{}, apperror.NewInsufficientAvailableStockError(level.Available, qty)
		}
	}

	now := s.now().UTC()
	t.TransferNumber = newTransferNumber(now)
	t.Status = domain.TransferPending
	t.InitiatedBy = req.InitiatedBy
	t.CreatedAt = now

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return domain.StockTransfer{}, err
	}
	s.logger.Info("Transferência criada.", map[string]interface{}{"transfer_id": created.ID, "transfer_number": created.TransferNumber, "items": len(created.Items)})
	return created, nil
}

// Get busca uma transferência pelo ID.
func (s *Service) Get(ctx context.Context, id string) (domain.StockTransfer, error) {
	return s.repo.GetByID(ctx, id)
}

// Approve debita a origem de cada item e move a transferência para in_transit.
// É tudo ou nada: se um item falha, os débitos já feitos nesta chamada são estornados.
func (s *Service) Approve(ctx context.Context, id, approvedBy string) (result domain.StockTransfer, err error) {
	ctx, span := observability.Tracer().Start(ctx, "transfer.Approve", trace.WithAttributes(attribute.String("transfer.id", id)))
	defer func() { endSpan(span, err) }()

	err = s.withLock(ctx, id, func() error {
		t, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !t.Status.CanTransitionTo(domain.TransferInTransit) {
			return apperror.NewTransferStateError(string(t.Status), string(domain.TransferInTransit))
		}

		var debited []domain.TransferItem
		for _, item := range t.Items {
			_, err := s.ledger.RecordChange(ctx, domain.StockChangeRequest{
				StockKey:    item.SourceKey(t),
				ChangeType:  domain.ChangeTransfer,
				Delta:       -item.Quantity,
				Reason:      fmt.Sprintf("Transferência %s: saída", t.TransferNumber),
				ActorID:     approvedBy,
				ReferenceID: t.ID,
			})
			if err != nil {
				s.logger.Warn("Débito da transferência falhou; estornando itens já debitados.", map[string]interface{}{
					"transfer_id": t.ID, "product_id": item.ProductID, "delta": -item.Quantity, "error": err.Error(),
				})
				s.compensate(ctx, t, debited, approvedBy)
				return err
			}
			debited = append(debited, item)
		}

		updated, err := s.repo.Transition(ctx, t.ID, domain.TransferTransition{
			From: domain.TransferPending, To: domain.TransferInTransit, Actor: approvedBy, At: s.now().UTC(),
		})
		if err != nil {
			s.compensate(ctx, t, debited, approvedBy)
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return domain.StockTransfer{}, err
	}
	s.logger.Info("Transferência aprovada.", map[string]interface{}{"transfer_id": id, "approved_by": approvedBy})
	return result, nil
}

// compensate credita de volta na origem os itens debitados por uma aprovação que falhou.
func (s *Service) compensate(ctx context.Context, t domain.StockTransfer, debited []domain.TransferItem, actor string) {
	for i := len(debited) - 1; i >= 0; i-- {
		item := debited[i]
		_, err := s.ledger.RecordChange(context.WithoutCancel(ctx), domain.StockChangeRequest{
			StockKey:    item.SourceKey(t),
			ChangeType:  domain.ChangeTransfer,
			Delta:       item.Quantity,
			Reason:      fmt.Sprintf("Transferência %s: estorno de aprovação", t.TransferNumber),
			ActorID:     actor,
			ReferenceID: t.ID,
		})
		if err != nil {
			s.logger.Error(fmt.Sprintf("Estorno da transferência %s falhou para %s (+%d); correção manual necessária.",
				t.ID, item.SourceKey(t), item.Quantity), err)
		}
	}
}

// creditAll credita cada item com chave de idempotência própria, com retentativa.
// Uma chamada repetida depois de falha parcial não credita duas vezes.
func (s *Service) creditAll(ctx context.Context, t domain.StockTransfer, keyOf func(domain.TransferItem) domain.StockKey, kind, reason, actor string) error {
	for i, item := range t.Items {
		req := domain.StockChangeRequest{
			StockKey:       keyOf(item),
			ChangeType:     domain.ChangeTransfer,
			Delta:          item.Quantity,
			Reason:         fmt.Sprintf("Transferência %s: %s", t.TransferNumber, reason),
			ActorID:        actor,
			ReferenceID:    t.ID,
			IdempotencyKey: fmt.Sprintf("transfer:%s:%s:%d", t.ID, kind, i),
		}
		var err error
		for attempt := 1; attempt <= s.completeAttempts; attempt++ {
			if _, err = s.ledger.RecordChange(ctx, req); err == nil {
				break
			}
			s.logger.Warn("Crédito da transferência falhou.", map[string]interface{}{
				"transfer_id": t.ID, "key": req.StockKey.String(), "delta": req.Delta, "attempt": attempt, "error": err.Error(),
			})
		}
		if err != nil {
			s.logger.Error(fmt.Sprintf("Transferência %s permanece %s para correção manual.", t.ID, t.Status), err)
			return err
		}
	}
	return nil
}

// Complete credita o destino de cada item e move a transferência para completed.
// Se algum crédito falhar após as retentativas, a transferência fica in_transit.
func (s *Service) Complete(ctx context.Context, id, completedBy string) (result domain.StockTransfer, err error) {
	ctx, span := observability.Tracer().Start(ctx, "transfer.Complete", trace.WithAttributes(attribute.String("transfer.id", id)))
	defer func() { endSpan(span, err) }()

	err = s.withLock(ctx, id, func() error {
		t, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t.Status != domain.TransferInTransit {
			return apperror.NewTransferStateError(string(t.Status), string(domain.TransferCompleted))
		}

		dest := func(item domain.TransferItem) domain.StockKey { return item.DestinationKey(t) }
		if err := s.creditAll(ctx, t, dest, "credit", "entrada", completedBy); err != nil {
			return err
		}

		updated, err := s.repo.Transition(ctx, t.ID, domain.TransferTransition{
			From: domain.TransferInTransit, To: domain.TransferCompleted, Actor: completedBy, At: s.now().UTC(),
		})
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return domain.StockTransfer{}, err
	}
	s.logger.Info("Transferência concluída.", map[string]interface{}{"transfer_id": id, "completed_by": completedBy})
	return result, nil
}

// Cancel cancela a transferência. Em in_transit, devolve à origem tudo o que foi debitado.
func (s *Service) Cancel(ctx context.Context, id, cancelledBy, reason string) (result domain.StockTransfer, err error) {
	ctx, span := observability.Tracer().Start(ctx, "transfer.Cancel", trace.WithAttributes(attribute.String("transfer.id", id)))
	defer func() { endSpan(span, err) }()

	err = s.withLock(ctx, id, func() error {
		t, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !t.Status.CanTransitionTo(domain.TransferCancelled) {
			return apperror.NewTransferStateError(string(t.Status), string(domain.TransferCancelled))
		}

		if t.Status == domain.TransferInTransit {
			source := func(item domain.TransferItem) domain.StockKey { return item.SourceKey(t) }
			if err := s.creditAll(ctx, t, source, "reversal", "estorno por cancelamento", cancelledBy); err != nil {
				return err
			}
		}

		updated, err := s.repo.Transition(ctx, t.ID, domain.TransferTransition{
			From: t.Status, To: domain.TransferCancelled, Actor: cancelledBy, Reason: reason, At: s.now().UTC(),
		})
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return domain.StockTransfer{}, err
	}
	s.logger.Info("Transferência cancelada.", map[string]interface{}{"transfer_id": id, "cancelled_by": cancelledBy, "reason": reason})
	return result, nil
}
