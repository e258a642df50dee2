package batchservice

import (
	"context"

	"golang.org/x/sync/errgroup"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

// LedgerWriter aplica uma mudança isolada.
type LedgerWriter interface {
	RecordChange(ctx context.Context, req domain.StockChangeRequest) (domain.StockLedgerEntry, error)
}

// Service é o Batch Orchestrator: cada item é uma chamada independente ao Ledger Writer.
type Service struct {
	ledger      LedgerWriter
	concurrency int
	logger      logger.Logger
}

// NewService cria o orquestrador com até concurrency itens em paralelo.
func NewService(ledger LedgerWriter, concurrency int, logger logger.Logger) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{ledger: ledger, concurrency: concurrency, logger: logger}
}

type outcome struct {
	entry domain.StockLedgerEntry
	err   error
}

// ApplyBatch aplica cada pedido isoladamente. A falha de um item não desfaz nem
// interrompe os demais. As listas do resultado seguem a ordem do lote.
func (s *Service) ApplyBatch(ctx context.Context, requests []domain.StockChangeRequest, actorID string) domain.BatchResult {
	outcomes := make([]outcome, len(requests))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, req := range requests {
		if req.ActorID == "" {
			req.ActorID = actorID
		}
		g.Go(func() error {
			entry, err := s.ledger.RecordChange(ctx, req)
			outcomes[i] = outcome{entry: entry, err: err}
			// Erros ficam no resultado do item; o grupo nunca é abortado.
			return nil
		})
	}
	_ = g.Wait()

	result := domain.BatchResult{
		Successful: []domain.StockLedgerEntry{},
		Failed:     []domain.BatchFailure{},
		Total:      len(requests),
	}
	for i, o := range outcomes {
		if o.err == nil {
			result.Successful = append(result.Successful, o.entry)
			continue
		}
		_, category, message := apperror.MapToHTTPStatus(o.err)
		result.Failed = append(result.Failed, domain.BatchFailure{
			Index:    i,
			Request:  requests[i],
			Category: category,
			Message:  message,
		})
	}
	result.Succeeded = len(result.Successful)
	result.FailedCount = len(result.Failed)

	s.logger.Info("Lote de mudanças de estoque processado.", map[string]interface{}{
		"total": result.Total, "succeeded": result.Succeeded, "failed": result.FailedCount,
	})
	return result
}
