package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperror "stockledger/internal/errors"
)

func TestMapToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		category string
	}{
		{"validação", apperror.NewValidationError("x"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"mudança inválida", apperror.NewInvalidChangeError("delta zero"), http.StatusBadRequest, "INVALID_CHANGE"},
		{"não encontrado", apperror.NewNotFoundError("produto"), http.StatusNotFound, "NOT_FOUND"},
		{"conflito", apperror.NewConflictError("occ"), http.StatusConflict, "CONFLICT"},
		{"estoque insuficiente", apperror.NewInsufficientStockError(3, -5), http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
		{"disponível insuficiente", apperror.NewInsufficientAvailableStockError(1, 2), http.StatusUnprocessableEntity, "INSUFFICIENT_AVAILABLE_STOCK"},
		{"transferência", apperror.NewTransferStateError("completed", "cancelled"), http.StatusConflict, "TRANSFER_STATE_ERROR"},
		{"encapsulado", fmt.Errorf("camada: %w", apperror.NewNotFoundError("reserva")), http.StatusNotFound, "NOT_FOUND"},
		{"não tipado", stderrors.New("boom"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, category, _ := apperror.MapToHTTPStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.category, category)
		})
	}
}

func TestInternalError_Unwrap(t *testing.T) {
	cause := stderrors.New("conexão recusada")
	err := apperror.NewDBError("Falha ao buscar", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "conexão recusada")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, apperror.IsRetryable(fmt.Errorf("wrap: %w", apperror.NewConflictError("occ"))))
	assert.False(t, apperror.IsRetryable(apperror.NewInsufficientStockError(0, -1)))
	assert.True(t, apperror.IsNotFound(apperror.NewNotFoundError("x")))
}
