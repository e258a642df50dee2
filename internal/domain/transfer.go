package domain

import "time"

// TransferStatus é o estado de uma transferência entre armazéns.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferInTransit TransferStatus = "in_transit"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

// CanTransitionTo implementa a máquina de estados:
// pending -> in_transit -> completed, pending|in_transit -> cancelled.
func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	switch s {
	case TransferPending:
		return next == TransferInTransit || next == TransferCancelled
	case TransferInTransit:
		return next == TransferCompleted || next == TransferCancelled
	}
	return false
}

// TransferItem é uma linha da transferência.
type TransferItem struct {
	ProductID string `json:"product_id" validate:"required"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// SourceKey é a chave debitada na aprovação.
func (i TransferItem) SourceKey(t StockTransfer) StockKey {
	return StockKey{ProductID: i.ProductID, VariantID: i.VariantID, WarehouseID: t.SourceWarehouseID}
}

// DestinationKey é a chave creditada na conclusão.
func (i TransferItem) DestinationKey(t StockTransfer) StockKey {
	return StockKey{ProductID: i.ProductID, VariantID: i.VariantID, WarehouseID: t.DestinationWarehouseID}
}

// StockTransfer move estoque de um armazém para outro.
// A origem é debitada na aprovação e o destino creditado na conclusão.
type StockTransfer struct {
	ID                     string         `json:"id"`
	TransferNumber         string         `json:"transfer_number"`
	SourceWarehouseID      string         `json:"source_warehouse_id"`
	DestinationWarehouseID string         `json:"destination_warehouse_id"`
	Items                  []TransferItem `json:"items"`
	Status                 TransferStatus `json:"status"`
	InitiatedBy            string         `json:"initiated_by"`
	ApprovedBy             string         `json:"approved_by,omitempty"`
	CompletedBy            string         `json:"completed_by,omitempty"`
	CancelledBy            string         `json:"cancelled_by,omitempty"`
	CancelReason           string         `json:"cancel_reason,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
	ApprovedAt             *time.Time     `json:"approved_at,omitempty"`
	CompletedAt            *time.Time     `json:"completed_at,omitempty"`
	CancelledAt            *time.Time     `json:"cancelled_at,omitempty"`
}

// TransferTransition descreve uma mudança de status condicional.
type TransferTransition struct {
	From   TransferStatus
	To     TransferStatus
	Actor  string
	Reason string
	At     time.Time
}

// CreateTransferRequest é o payload para criar uma transferência.
type CreateTransferRequest struct {
	SourceWarehouseID      string         `json:"source_warehouse_id" validate:"required"`
	DestinationWarehouseID string         `json:"destination_warehouse_id" validate:"required,nefield=SourceWarehouseID"`
	Items                  []TransferItem `json:"items" validate:"required,min=1,dive"`
	InitiatedBy            string         `json:"-"`
}

// CancelTransferRequest é o payload para cancelar uma transferência.
type CancelTransferRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
