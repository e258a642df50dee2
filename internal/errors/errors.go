package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados do StockLedger.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string
	Category() string
	HTTPStatus() int
	Unwrap() error
}

// --- Erros de Entrada ---

// ValidationError representa falhas de validação de dados de entrada.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest }
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// InvalidChangeError é uma intenção de mudança de estoque inválida (delta zero ou sinal errado).
// Permanente: não deve ser reenviada.
type InvalidChangeError struct {
	Msg string
}

func (e *InvalidChangeError) Error() string    { return fmt.Sprintf("Mudança de estoque inválida: %s", e.Msg) }
func (e *InvalidChangeError) Category() string { return "INVALID_CHANGE" }
func (e *InvalidChangeError) HTTPStatus() int  { return http.StatusBadRequest }
func (e *InvalidChangeError) Unwrap() error    { return nil }

func NewInvalidChangeError(msg string) AppError {
	return &InvalidChangeError{Msg: msg}
}

// --- Erros de Domínio ---

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound }
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// ConflictError representa um conflito de concorrência otimista (OCC) ou recurso duplicado.
// Transitório: o chamador pode tentar novamente.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict }
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito (usado em OCC).
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// InsufficientStockError indica que o delta levaria a quantidade abaixo de zero.
type InsufficientStockError struct {
	Current int
	Delta   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Estoque insuficiente: quantidade atual %d, delta %d", e.Current, e.Delta)
}
func (e *InsufficientStockError) Category() string { return "INSUFFICIENT_STOCK" }
func (e *InsufficientStockError) HTTPStatus() int  { return http.StatusUnprocessableEntity }
func (e *InsufficientStockError) Unwrap() error    { return nil }

func NewInsufficientStockError(current, delta int) AppError {
	return &InsufficientStockError{Current: current, Delta: delta}
}

// InsufficientAvailableStockError indica que a reserva excede o estoque disponível
// (quantidade menos reservas ativas).
type InsufficientAvailableStockError struct {
	Available int
	Requested int
}

func (e *InsufficientAvailableStockError) Error() string {
	return fmt.Sprintf("Estoque disponível insuficiente: disponível %d, solicitado %d", e.Available, e.Requested)
}
func (e *InsufficientAvailableStockError) Category() string { return "INSUFFICIENT_AVAILABLE_STOCK" }
func (e *InsufficientAvailableStockError) HTTPStatus() int  { return http.StatusUnprocessableEntity }
func (e *InsufficientAvailableStockError) Unwrap() error    { return nil }

func NewInsufficientAvailableStockError(available, requested int) AppError {
	return &InsufficientAvailableStockError{Available: available, Requested: requested}
}

// TransferStateError é uma transição inválida na máquina de estados de transferência.
type TransferStateError struct {
	From string
	To   string
}

func (e *TransferStateError) Error() string {
	return fmt.Sprintf("Transição de transferência inválida: %s -> %s", e.From, e.To)
}
func (e *TransferStateError) Category() string { return "TRANSFER_STATE_ERROR" }
func (e *TransferStateError) HTTPStatus() int  { return http.StatusConflict }
func (e *TransferStateError) Unwrap() error    { return nil }

func NewTransferStateError(from, to string) AppError {
	return &TransferStateError{From: from, To: to}
}

// ReservationStateError é uma transição a partir de um estado terminal da reserva.
type ReservationStateError struct {
	Status string
	To     string
}

func (e *ReservationStateError) Error() string {
	return fmt.Sprintf("Reserva em estado %s não pode ir para %s", e.Status, e.To)
}
func (e *ReservationStateError) Category() string { return "RESERVATION_STATE_ERROR" }
func (e *ReservationStateError) HTTPStatus() int  { return http.StatusConflict }
func (e *ReservationStateError) Unwrap() error    { return nil }

func NewReservationStateError(status, to string) AppError {
	return &ReservationStateError{Status: status, To: to}
}

// DuplicateChangeError sinaliza que a chave de idempotência já foi aplicada.
// O Ledger Writer o converte em sucesso devolvendo a entrada original.
type DuplicateChangeError struct {
	IdempotencyKey string
}

func (e *DuplicateChangeError) Error() string {
	return fmt.Sprintf("Mudança já aplicada para a chave de idempotência %s", e.IdempotencyKey)
}
func (e *DuplicateChangeError) Category() string { return "DUPLICATE_CHANGE" }
func (e *DuplicateChangeError) HTTPStatus() int  { return http.StatusConflict }
func (e *DuplicateChangeError) Unwrap() error    { return nil }

func NewDuplicateChangeError(key string) AppError {
	return &DuplicateChangeError{IdempotencyKey: key}
}

// --- Erros de Autenticação ---

// UnauthorizedError representa token ausente, inválido ou expirado.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized }
func (e *UnauthorizedError) Unwrap() error    { return nil }

func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// ForbiddenError representa um ator autenticado sem a role necessária.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string    { return fmt.Sprintf("Acesso negado: %s", e.Msg) }
func (e *ForbiddenError) Category() string { return "FORBIDDEN" }
func (e *ForbiddenError) HTTPStatus() int  { return http.StatusForbidden }
func (e *ForbiddenError) Unwrap() error    { return nil }

func NewForbiddenError(msg string) AppError {
	return &ForbiddenError{Msg: msg}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError }
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para criar um InternalError específico de falhas no DB.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB): %s", msg, err.Error()), err)
}

// --- Helpers ---

// IsRetryable indica se o erro é transitório (OCC) e pode ser reenviado pelo chamador.
func IsRetryable(err error) bool {
	var conflictErr *ConflictError
	return stderrors.As(err, &conflictErr)
}

// IsNotFound é um atalho para errors.As com *NotFoundError.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return stderrors.As(err, &notFoundErr)
}

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP, categoria e mensagem.
func MapToHTTPStatus(err error) (int, string, string) {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado: tratado como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}
