package ledgerservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/observability"
)

// StockStore define o contrato que o Ledger Writer espera do Stock Record Store.
type StockStore interface {
	GetRecord(ctx context.Context, key domain.StockKey) (domain.StockRecord, error)
	CreateRecord(ctx context.Context, rec domain.StockRecord) (domain.StockRecord, error)
	UpdateThreshold(ctx context.Context, key domain.StockKey, threshold int) (domain.StockRecord, error)
	ApplyDelta(ctx context.Context, entry domain.StockLedgerEntry) (domain.StockRecord, domain.StockLedgerEntry, error)
	FindEntryByIdempotencyKey(ctx context.Context, idempotencyKey string) (domain.StockLedgerEntry, error)
	ListEntries(ctx context.Context, key domain.StockKey, limit int) ([]domain.StockLedgerEntry, error)
}

// ReservedCounter soma reservas ativas e não vencidas de uma chave.
type ReservedCounter interface {
	SumActive(ctx context.Context, key domain.StockKey, now time.Time) (int, error)
}

// AlertEvaluator é chamado após cada mudança aplicada.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, key domain.StockKey, newQuantity, threshold int) error
}

// Service é o Ledger Writer: único caminho de mutação de quantidade.
type Service struct {
	store        StockStore
	reservations ReservedCounter
	alerts       AlertEvaluator
	maxAttempts  int
	logger       logger.Logger
	now          func() time.Time
}

// NewService cria o Ledger Writer. maxAttempts limita o ciclo ler-calcular-aplicar
// sob conflito de concorrência.
func NewService(store StockStore, reservations ReservedCounter, alerts AlertEvaluator, maxAttempts int, logger logger.Logger) *Service {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Service{
		store:        store,
		reservations: reservations,
		alerts:       alerts,
		maxAttempts:  maxAttempts,
		logger:       logger,
		now:          time.Now,
	}
}

// validateChange aplica as regras de sinal antes de qualquer leitura ou mutação.
func validateChange(req domain.StockChangeRequest) error {
	if strings.TrimSpace(req.ProductID) == "" {
		return apperror.NewValidationError("product_id é obrigatório.")
	}
	if !req.ChangeType.Valid() {
		return apperror.NewInvalidChangeError(fmt.Sprintf("tipo de mudança desconhecido: %q", req.ChangeType))
	}
	if req.Delta == 0 {
		return apperror.NewInvalidChangeError("o delta não pode ser zero")
	}
	switch req.ChangeType {
	case domain.ChangeSale, domain.ChangeAdjustment:
		if req.Delta > 0 {
			return apperror.NewInvalidChangeError(fmt.Sprintf("%s exige delta negativo, recebido %d", req.ChangeType, req.Delta))
		}
	case domain.ChangeRestock, domain.ChangeReturn:
		if req.Delta < 0 {
			return apperror.NewInvalidChangeError(fmt.Sprintf("%s exige delta positivo, recebido %d", req.ChangeType, req.Delta))
		}
	}
	return nil
}

func changeFields(req domain.StockChangeRequest) map[string]interface{} {
	return map[string]interface{}{
		"key":         req.StockKey.String(),
		"change_type": string(req.ChangeType),
		"delta":       req.Delta,
	}
}

// RecordChange valida e aplica uma mudança de estoque, gravando a entrada do ledger
// na mesma transação da mutação. Conflitos de concorrência são retentados até
// maxAttempts vezes. Uma chave de idempotência já aplicada devolve a entrada original
// sem nova mutação e sem avaliação de alerta.
func (s *Service) RecordChange(ctx context.Context, req domain.StockChangeRequest) (domain.StockLedgerEntry, error) {
	ctx, span := observability.Tracer().Start(ctx, "ledger.RecordChange")
	defer span.End()
	span.SetAttributes(
		attribute.String("stock.key", req.StockKey.String()),
		attribute.String("stock.change_type", string(req.ChangeType)),
		attribute.Int("stock.delta", req.Delta),
	)

	entry, err := s.recordChange(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.StockLedgerEntry{}, err
	}
	span.SetAttributes(attribute.Int("stock.new_quantity", entry.NewQuantity))
	return entry, nil
}

func (s *Service) recordChange(ctx context.Context, req domain.StockChangeRequest) (domain.StockLedgerEntry, error) {
	if err := validateChange(req); err != nil {
		fields := changeFields(req)
		fields["error"] = err.Error()
		s.logger.Warn("Mudança de estoque rejeitada na validação.", fields)
		return domain.StockLedgerEntry{}, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.store.FindEntryByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			s.logger.Info("Mudança já aplicada para a chave de idempotência.", map[string]interface{}{
				"idempotency_key": req.IdempotencyKey, "entry_id": existing.ID,
			})
			return existing, nil
		}
		if !apperror.IsNotFound(err) {
			return domain.StockLedgerEntry{}, err
		}
	}

	actor := req.ActorID
	if actor == "" {
		actor = domain.SystemActorID
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		current, err := s.store.GetRecord(ctx, req.StockKey)
		if err != nil {
			fields := changeFields(req)
			fields["error"] = err.Error()
			s.logger.Warn("Falha ao ler registro de estoque para mudança.", fields)
			return domain.StockLedgerEntry{}, err
		}

		rec, entry, err := s.store.ApplyDelta(ctx, domain.StockLedgerEntry{
			ProductID:        req.ProductID,
			VariantID:        req.VariantID,
			WarehouseID:      req.WarehouseID,
			ChangeType:       req.ChangeType,
			QuantityDelta:    req.Delta,
			PreviousQuantity: current.Quantity,
			Reason:           req.Reason,
			ActorID:          actor,
			ReferenceID:      req.ReferenceID,
			IdempotencyKey:   req.IdempotencyKey,
			Timestamp:        s.now().UTC(),
		})
		if err == nil {
			s.logger.Info("Mudança de estoque aplicada.", map[string]interface{}{
				"entry_id":          entry.ID,
				"key":               req.StockKey.String(),
				"change_type":       string(entry.ChangeType),
				"previous_quantity": entry.PreviousQuantity,
				"new_quantity":      entry.NewQuantity,
				"attempt":           attempt,
			})
			s.evaluateAlert(ctx, rec)
			return entry, nil
		}

		var dupErr *apperror.DuplicateChangeError
		if errors.As(err, &dupErr) {
			// Outra entrega do mesmo evento venceu a corrida; a mutação desta foi desfeita.
			return s.store.FindEntryByIdempotencyKey(ctx, req.IdempotencyKey)
		}

		if apperror.IsRetryable(err) && attempt < s.maxAttempts {
			s.logger.Debug("Conflito de concorrência; repetindo mudança.", map[string]interface{}{
				"key": req.StockKey.String(), "attempt": attempt,
			})
			continue
		}

		fields := changeFields(req)
		fields["attempt"] = attempt
		fields["error"] = err.Error()
		s.logger.Warn("Mudança de estoque falhou.", fields)
		if apperror.IsRetryable(err) {
			return domain.StockLedgerEntry{}, apperror.NewConflictError(
				fmt.Sprintf("estoque de %s ocupado após %d tentativas; tente novamente", req.StockKey, s.maxAttempts))
		}
		return domain.StockLedgerEntry{}, err
	}

	// Inalcançável: o laço sempre retorna na última tentativa.
	return domain.StockLedgerEntry{}, apperror.NewConflictError("tentativas esgotadas")
}

// evaluateAlert é best-effort: falha só é registrada, a mutação já foi commitada.
func (s *Service) evaluateAlert(ctx context.Context, rec domain.StockRecord) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Evaluate(ctx, rec.Key(), rec.Quantity, rec.LowStockThreshold); err != nil {
		s.logger.Error(fmt.Sprintf("Falha ao avaliar alerta de estoque baixo para %s.", rec.Key()), err)
	}
}

// RegisterRecord cadastra um StockRecord. A quantidade inicial entra como restock,
// assim o replay do ledger reproduz a quantidade gravada.
func (s *Service) RegisterRecord(ctx context.Context, req domain.RegisterRecordRequest) (domain.StockLevel, error) {
	if strings.TrimSpace(req.ProductID) == "" {
		return domain.StockLevel{}, apperror.NewValidationError("product_id é obrigatório.")
	}
	if req.LowStockThreshold < 0 || req.InitialQuantity < 0 {
		return domain.StockLevel{}, apperror.NewValidationError("limite e quantidade inicial não podem ser negativos.")
	}

	rec, err := s.store.CreateRecord(ctx, domain.StockRecord{
		ProductID:         req.ProductID,
		VariantID:         req.VariantID,
		WarehouseID:       req.WarehouseID,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		return domain.StockLevel{}, err
	}

	if req.InitialQuantity > 0 {
		_, err := s.RecordChange(ctx, domain.StockChangeRequest{
			StockKey:       req.StockKey,
			ChangeType:     domain.ChangeRestock,
			Delta:          req.InitialQuantity,
			Reason:         "Estoque inicial",
			ActorID:        req.ActorID,
			IdempotencyKey: "register:" + rec.ID,
		})
		if err != nil {
			return domain.StockLevel{}, err
		}
	} else {
		s.evaluateAlert(ctx, rec)
	}

	return s.GetStock(ctx, req.StockKey)
}

// UpdateThreshold altera o limite de estoque baixo da chave.
func (s *Service) UpdateThreshold(ctx context.Context, req domain.UpdateThresholdRequest) (domain.StockRecord, error) {
	if req.LowStockThreshold < 0 {
		return domain.StockRecord{}, apperror.NewValidationError("o limite não pode ser negativo.")
	}
	rec, err := s.store.UpdateThreshold(ctx, req.StockKey, req.LowStockThreshold)
	if err != nil {
		return domain.StockRecord{}, err
	}
	s.logger.Info("Limite de estoque baixo atualizado.", map[string]interface{}{"key": req.StockKey.String(), "threshold": rec.LowStockThreshold})
	return rec, nil
}

// GetStock devolve quantidade bruta, reservada e disponível para venda.
func (s *Service) GetStock(ctx context.Context, key domain.StockKey) (domain.StockLevel, error) {
	rec, err := s.store.GetRecord(ctx, key)
	if err != nil {
		return domain.StockLevel{}, err
	}
	level := domain.StockLevel{StockRecord: rec, Available: rec.Quantity}
	if s.reservations == nil {
		return level, nil
	}

	reserved, err := s.reservations.SumActive(ctx, key, s.now().UTC())
	if err != nil {
		return domain.StockLevel{}, err
	}
	level.Reserved = reserved
	level.Available = rec.Quantity - reserved
	if level.Available < 0 {
		level.Available = 0
	}
	return level, nil
}

// ListEntries lista o ledger da chave, mais antiga primeiro.
func (s *Service) ListEntries(ctx context.Context, key domain.StockKey, limit int) ([]domain.StockLedgerEntry, error) {
	if _, err := s.store.GetRecord(ctx, key); err != nil {
		return nil, err
	}
	return s.store.ListEntries(ctx, key, limit)
}

// Replay reaplica todo o ledger da chave a partir de zero e compara com a quantidade gravada.
func (s *Service) Replay(ctx context.Context, key domain.StockKey) (domain.ReplayReport, error) {
	rec, err := s.store.GetRecord(ctx, key)
	if err != nil {
		return domain.ReplayReport{}, err
	}
	entries, err := s.store.ListEntries(ctx, key, 0)
	if err != nil {
		return domain.ReplayReport{}, err
	}

	report := domain.ReplayReport{Key: key, Recorded: rec.Quantity, Entries: len(entries)}
	replayed, err := domain.ReplayQuantity(0, entries)
	report.Replayed = replayed
	if err != nil {
		report.Problem = err.Error()
	}
	report.Consistent = err == nil && replayed == rec.Quantity
	if !report.Consistent {
		s.logger.Warn("Ledger não reproduz a quantidade gravada.", map[string]interface{}{
			"key": key.String(), "recorded": rec.Quantity, "replayed": replayed, "problem": report.Problem,
		})
	}
	return report, nil
}
