package ledgerservice_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
)

// memStore é um Stock Record Store em memória com a mesma semântica de
// compare-and-swap do repositório PostgreSQL.
type memStore struct {
	mu      sync.Mutex
	records map[domain.StockKey]domain.StockRecord
	entries []domain.StockLedgerEntry
	byKey   map[string]domain.StockLedgerEntry
	// beforeApply roda antes do CAS, fora do lock; usado para simular uma escrita concorrente.
	beforeApply func()
}

func newMemStore() *memStore {
	return &memStore{
		records: map[domain.StockKey]domain.StockRecord{},
		byKey:   map[string]domain.StockLedgerEntry{},
	}
}

func (s *memStore) seed(key domain.StockKey, quantity, threshold int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = domain.StockRecord{
		ID: uuid.New().String(), ProductID: key.ProductID, VariantID: key.VariantID, WarehouseID: key.WarehouseID,
		Quantity: quantity, LowStockThreshold: threshold, Version: 1,
	}
}

func (s *memStore) quantity(key domain.StockKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[key].Quantity
}

func (s *memStore) GetRecord(_ context.Context, key domain.StockKey) (domain.StockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return domain.StockRecord{}, apperror.NewNotFoundError(fmt.Sprintf("Estoque para %s não encontrado.", key))
	}
	return rec, nil
}

func (s *memStore) CreateRecord(_ context.Context, rec domain.StockRecord) (domain.StockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.Key()]; ok {
		return domain.StockRecord{}, apperror.NewConflictError("já existe")
	}
	rec.ID = uuid.New().String()
	rec.Quantity = 0
	rec.Version = 1
	s.records[rec.Key()] = rec
	return rec, nil
}

func (s *memStore) UpdateThreshold(_ context.Context, key domain.StockKey, threshold int) (domain.StockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return domain.StockRecord{}, apperror.NewNotFoundError("não encontrado")
	}
	rec.LowStockThreshold = threshold
	s.records[key] = rec
	return rec, nil
}

func (s *memStore) ApplyDelta(_ context.Context, entry domain.StockLedgerEntry) (domain.StockRecord, domain.StockLedgerEntry, error) {
	if s.beforeApply != nil {
		s.beforeApply()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.PreviousQuantity+entry.QuantityDelta < 0 {
		return domain.StockRecord{}, domain.StockLedgerEntry{}, apperror.NewInsufficientStockError(entry.PreviousQuantity, entry.QuantityDelta)
	}
	rec, ok := s.records[entry.Key()]
	if !ok {
		return domain.StockRecord{}, domain.StockLedgerEntry{}, apperror.NewNotFoundError("não encontrado")
	}
	if rec.Quantity != entry.PreviousQuantity {
		return domain.StockRecord{}, domain.StockLedgerEntry{}, apperror.NewConflictError("quantidade alterada")
	}
	if entry.IdempotencyKey != "" {
		if _, dup := s.byKey[entry.IdempotencyKey]; dup {
			return domain.StockRecord{}, domain.StockLedgerEntry{}, apperror.NewDuplicateChangeError(entry.IdempotencyKey)
		}
	}

	entry.ID = uuid.New().String()
	entry.NewQuantity = entry.PreviousQuantity + entry.QuantityDelta
	rec.Quantity = entry.NewQuantity
	rec.Version++
	s.records[entry.Key()] = rec
	s.entries = append(s.entries, entry)
	if entry.IdempotencyKey != "" {
		s.byKey[entry.IdempotencyKey] = entry
	}
	return rec, entry, nil
}

func (s *memStore) FindEntryByIdempotencyKey(_ context.Context, idempotencyKey string) (domain.StockLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.byKey[idempotencyKey]
	if !ok {
		return domain.StockLedgerEntry{}, apperror.NewNotFoundError("não encontrada")
	}
	return entry, nil
}

func (s *memStore) ListEntries(_ context.Context, key domain.StockKey, limit int) ([]domain.StockLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.StockLedgerEntry{}
	for _, e := range s.entries {
		if e.Key() == key {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memAlerts deduplica alertas não resolvidos por (chave, tipo), como o índice parcial do banco.
type memAlerts struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (a *memAlerts) Upsert(_ context.Context, alert domain.Alert) (domain.Alert, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, existing := range a.alerts {
		if existing.Key() == alert.Key() && existing.Type == alert.Type && !existing.IsResolved {
			a.alerts[i].Quantity = alert.Quantity
			a.alerts[i].Message = alert.Message
			return a.alerts[i], false, nil
		}
	}
	alert.ID = uuid.New().String()
	a.alerts = append(a.alerts, alert)
	return alert, true, nil
}

func (a *memAlerts) List(_ context.Context, _ domain.AlertFilter) ([]domain.Alert, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Alert(nil), a.alerts...), nil
}

func (a *memAlerts) Resolve(_ context.Context, id, resolvedBy string, at time.Time) (domain.Alert, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.alerts {
		if a.alerts[i].ID == id {
			a.alerts[i].IsResolved = true
			a.alerts[i].ResolvedBy = resolvedBy
			a.alerts[i].ResolvedAt = &at
			return a.alerts[i], nil
		}
	}
	return domain.Alert{}, apperror.NewNotFoundError("não encontrado")
}
