package domain

// BatchFailure descreve um item do lote que falhou, com o motivo do erro subjacente.
type BatchFailure struct {
	Index    int                `json:"index"`
	Request  StockChangeRequest `json:"request"`
	Category string             `json:"category"`
	Message  string             `json:"message"`
}

// BatchResult acumula o resultado por item. As listas preservam a ordem do lote.
type BatchResult struct {
	Successful  []StockLedgerEntry `json:"successful"`
	Failed      []BatchFailure     `json:"failed"`
	Total       int                `json:"total"`
	Succeeded   int                `json:"succeeded"`
	FailedCount int                `json:"failed_count"`
}

// AnySucceeded é o critério de sucesso do lote: ao menos um item aplicado.
func (r BatchResult) AnySucceeded() bool {
	return r.Succeeded > 0
}

// BatchRequest é o payload do endpoint de lote.
type BatchRequest struct {
	Changes []StockChangeRequest `json:"changes" validate:"required,min=1,max=500,dive"`
}
