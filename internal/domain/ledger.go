package domain

import (
	"fmt"
	"time"
)

// ChangeType é o motivo de negócio de uma mudança de estoque.
type ChangeType string

const (
	ChangeRestock    ChangeType = "restock"
	ChangeSale       ChangeType = "sale"
	ChangeAdjustment ChangeType = "adjustment"
	ChangeReturn     ChangeType = "return"
	ChangeTransfer   ChangeType = "transfer"
)

// Valid indica se o tipo é conhecido.
func (c ChangeType) Valid() bool {
	switch c {
	case ChangeRestock, ChangeSale, ChangeAdjustment, ChangeReturn, ChangeTransfer:
		return true
	}
	return false
}

// StockLedgerEntry é uma linha imutável do ledger.
// Invariante: NewQuantity = PreviousQuantity + QuantityDelta e NewQuantity >= 0.
type StockLedgerEntry struct {
	ID               string     `json:"id"`
	ProductID        string     `json:"product_id"`
	VariantID        string     `json:"variant_id,omitempty"`
	WarehouseID      string     `json:"warehouse_id,omitempty"`
	ChangeType       ChangeType `json:"change_type"`
	QuantityDelta    int        `json:"quantity_delta"`
	PreviousQuantity int        `json:"previous_quantity"`
	NewQuantity      int        `json:"new_quantity"`
	Reason           string     `json:"reason"`
	ActorID          string     `json:"actor_id"`
	ReferenceID      string     `json:"reference_id,omitempty"`
	IdempotencyKey   string     `json:"idempotency_key,omitempty"`
	Timestamp        time.Time  `json:"timestamp"`
}

// Key devolve a chave de estoque referenciada pela entrada.
func (e StockLedgerEntry) Key() StockKey {
	return StockKey{ProductID: e.ProductID, VariantID: e.VariantID, WarehouseID: e.WarehouseID}
}

// StockChangeRequest é a intenção de mudança submetida ao Ledger Writer.
type StockChangeRequest struct {
	StockKey
	ChangeType     ChangeType `json:"change_type" validate:"required"`
	Delta          int        `json:"delta"`
	Reason         string     `json:"reason" validate:"max=500"`
	ActorID        string     `json:"actor_id,omitempty"`
	ReferenceID    string     `json:"reference_id,omitempty"`
	IdempotencyKey string     `json:"idempotency_key,omitempty" validate:"max=200"`
}

// OrderIdempotencyKey monta a chave recomendada (pedido, chave, tipo) para eventos
// entregues mais de uma vez pela mensageria.
func OrderIdempotencyKey(orderID string, key StockKey, changeType ChangeType) string {
	return fmt.Sprintf("order:%s:%s:%s", orderID, key.String(), changeType)
}

// ReplayQuantity reaplica as entradas em ordem a partir da quantidade inicial.
// Retorna erro na primeira entrada que não encadeia com a anterior.
func ReplayQuantity(initial int, entries []StockLedgerEntry) (int, error) {
	qty := initial
	for i, e := range entries {
		if e.PreviousQuantity != qty {
			return qty, fmt.Errorf("entrada %d (%s): previous_quantity %d, esperado %d", i, e.ID, e.PreviousQuantity, qty)
		}
		if e.PreviousQuantity+e.QuantityDelta != e.NewQuantity {
			return qty, fmt.Errorf("entrada %d (%s): delta não fecha com new_quantity", i, e.ID)
		}
		qty = e.NewQuantity
	}
	return qty, nil
}

// ReplayReport compara a quantidade gravada com a obtida reaplicando o ledger a partir de zero.
type ReplayReport struct {
	Key        StockKey `json:"key"`
	Recorded   int      `json:"recorded_quantity"`
	Replayed   int      `json:"replayed_quantity"`
	Entries    int      `json:"entries"`
	Consistent bool     `json:"consistent"`
	Problem    string   `json:"problem,omitempty"`
}
