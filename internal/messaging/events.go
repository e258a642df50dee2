package messaging

import (
	"time"

	"stockledger/internal/domain"
)

// Tipos de evento de pedido consumidos do tópico de pedidos.
const (
	OrderPlaced    = "order.placed"
	OrderPaid      = "order.paid"
	OrderCancelled = "order.cancelled"
)

// StockLowEvent é o tipo publicado no tópico de alertas.
const StockLowEvent = "stock.low"

// OrderItem é uma linha do pedido.
type OrderItem struct {
	ProductID   string `json:"product_id"`
	VariantID   string `json:"variant_id,omitempty"`
	WarehouseID string `json:"warehouse_id,omitempty"`
	Quantity    int    `json:"quantity"`
}

func (i OrderItem) key() domain.StockKey {
	return domain.StockKey{ProductID: i.ProductID, VariantID: i.VariantID, WarehouseID: i.WarehouseID}
}

// OrderEvent é o envelope dos eventos de pedido.
type OrderEvent struct {
	Type       string      `json:"type"`
	OrderID    string      `json:"order_id"`
	CustomerID string      `json:"customer_id,omitempty"`
	Items      []OrderItem `json:"items,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// AlertEvent é o payload publicado para cada alerta novo.
type AlertEvent struct {
	Type        string    `json:"type"`
	AlertID     string    `json:"alert_id"`
	ProductID   string    `json:"product_id"`
	VariantID   string    `json:"variant_id,omitempty"`
	WarehouseID string    `json:"warehouse_id,omitempty"`
	Quantity    int       `json:"quantity"`
	Threshold   int       `json:"threshold"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}
