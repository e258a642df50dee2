package domain

// ErrorResponse é o corpo padronizado de erro da API.
// Retryable sinaliza conflitos de concorrência que o cliente pode reenviar sem alteração.
// @Description Corpo padronizado de erro da API.
type ErrorResponse struct {
	Code      int    `json:"code" example:"422"`
	Category  string `json:"category" example:"INSUFFICIENT_STOCK"`
	Message   string `json:"message" example:"Estoque insuficiente: atual 2, delta -5"`
	Retryable bool   `json:"retryable,omitempty"`
}
