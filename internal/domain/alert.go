package domain

import "time"

// AlertType classifica o alerta.
type AlertType string

const AlertLowStock AlertType = "low_stock"

// Alert é criado pelo Alert Evaluator e resolvido externamente.
// Há no máximo um alerta não resolvido por (chave, tipo).
type Alert struct {
	ID          string     `json:"id"`
	ProductID   string     `json:"product_id"`
	VariantID   string     `json:"variant_id,omitempty"`
	WarehouseID string     `json:"warehouse_id,omitempty"`
	Type        AlertType  `json:"type"`
	Threshold   int        `json:"threshold"`
	Quantity    int        `json:"quantity"`
	Message     string     `json:"message"`
	IsResolved  bool       `json:"is_resolved"`
	ResolvedBy  string     `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Key devolve a chave de estoque do alerta.
func (a Alert) Key() StockKey {
	return StockKey{ProductID: a.ProductID, VariantID: a.VariantID, WarehouseID: a.WarehouseID}
}

// AlertFilter filtra a listagem de alertas.
type AlertFilter struct {
	ProductID      string
	UnresolvedOnly bool
	Limit          int
}
