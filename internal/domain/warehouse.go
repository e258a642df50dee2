package domain

import (
	"time"
)

// Warehouse representa um armazém físico ou lógico referenciado por StockRecords e transferências.
type Warehouse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required,min=3,max=100"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
