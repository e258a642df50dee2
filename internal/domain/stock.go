package domain

import (
	"fmt"
	"time"
)

// StockKey identifica um StockRecord: produto, variante (opcional) e armazém (opcional).
// Campos opcionais ausentes são representados por string vazia.
type StockKey struct {
	ProductID   string `json:"product_id" validate:"required"`
	VariantID   string `json:"variant_id,omitempty"`
	WarehouseID string `json:"warehouse_id,omitempty"`
}

// String retorna a forma canônica da chave, usada em logs e chaves de idempotência.
func (k StockKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.ProductID, k.VariantID, k.WarehouseID)
}

// StockRecord é a quantidade corrente de uma chave.
// Só é alterado pelo Ledger Writer, sempre acompanhado de uma StockLedgerEntry.
type StockRecord struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"product_id"`
	VariantID         string    `json:"variant_id,omitempty"`
	WarehouseID       string    `json:"warehouse_id,omitempty"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	Version           int       `json:"version"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Key devolve a chave do registro.
func (r StockRecord) Key() StockKey {
	return StockKey{ProductID: r.ProductID, VariantID: r.VariantID, WarehouseID: r.WarehouseID}
}

// StockLevel é a visão de leitura de uma chave: quantidade bruta, reservada e disponível para venda.
type StockLevel struct {
	StockRecord
	Reserved  int `json:"reserved"`
	Available int `json:"available"`
}

// RegisterRecordRequest é o payload para cadastrar um StockRecord.
type RegisterRecordRequest struct {
	StockKey
	LowStockThreshold int    `json:"low_stock_threshold" validate:"gte=0"`
	InitialQuantity   int    `json:"initial_quantity" validate:"gte=0"`
	ActorID           string `json:"-"`
}

// UpdateThresholdRequest é o payload para alterar o limite de estoque baixo.
type UpdateThresholdRequest struct {
	StockKey
	LowStockThreshold int `json:"low_stock_threshold" validate:"gte=0"`
}
