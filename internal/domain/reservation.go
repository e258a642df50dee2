package domain

import "time"

// ReservationStatus é o estado de uma reserva. Todos exceto active são terminais.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationFulfilled ReservationStatus = "fulfilled"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

// StockReservation segura quantidade disponível para um pedido até ExpiresAt.
// Não altera StockRecord.Quantity.
type StockReservation struct {
	ID           string            `json:"id"`
	ProductID    string            `json:"product_id"`
	VariantID    string            `json:"variant_id,omitempty"`
	WarehouseID  string            `json:"warehouse_id,omitempty"`
	OrderID      string            `json:"order_id"`
	CustomerID   string            `json:"customer_id"`
	Quantity     int               `json:"quantity"`
	Status       ReservationStatus `json:"status"`
	CancelReason string            `json:"cancel_reason,omitempty"`
	ExpiresAt    time.Time         `json:"expires_at"`
	FulfilledAt  *time.Time        `json:"fulfilled_at,omitempty"`
	CancelledAt  *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Key devolve a chave de estoque segurada pela reserva.
func (r StockReservation) Key() StockKey {
	return StockKey{ProductID: r.ProductID, VariantID: r.VariantID, WarehouseID: r.WarehouseID}
}

// Holds indica se a reserva ainda conta como quantidade reservada em now.
func (r StockReservation) Holds(now time.Time) bool {
	return r.Status == ReservationActive && r.ExpiresAt.After(now)
}

// ReserveRequest é o payload para criar uma reserva. TTL zero usa o padrão configurado.
type ReserveRequest struct {
	StockKey
	OrderID    string        `json:"order_id" validate:"required"`
	CustomerID string        `json:"customer_id" validate:"required"`
	Quantity   int           `json:"quantity" validate:"required,min=1"`
	TTLSeconds int           `json:"ttl_seconds,omitempty" validate:"gte=0"`
	TTL        time.Duration `json:"-"`
}

// CancelReservationRequest é o payload para cancelar uma reserva.
type CancelReservationRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
