package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/middleware"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// JSON escreve data com o status informado.
func JSON(w http.ResponseWriter, log logger.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("Falha ao codificar JSON de resposta", err)
	}
}

// Error traduz o erro para o formato padronizado (domain.ErrorResponse).
// Erros 5xx são registrados em Error; os demais em Debug.
func Error(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= 500 {
		log.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		log.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category),
			map[string]interface{}{"path": r.URL.Path, "method": r.Method})
	}

	JSON(w, log, status, domain.ErrorResponse{
		Code:      status,
		Category:  category,
		Message:   message,
		Retryable: apperror.IsRetryable(err),
	})
}

// Decode lê o corpo JSON em v e aplica as tags `validate`.
func Decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperror.NewValidationError("Payload inválido. Verifique o formato JSON.")
	}
	return Validate(v)
}

// Validate aplica as tags `validate` de v e resume as falhas por campo.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperror.NewValidationError(err.Error())
	}

	fields := make([]string, 0, len(validationErrors))
	for _, ve := range validationErrors {
		fields = append(fields, fmt.Sprintf("%s (%s)", ve.Namespace(), ve.Tag()))
	}
	sort.Strings(fields)
	return apperror.NewValidationError("Campos inválidos: " + strings.Join(fields, ", "))
}

// Actor devolve o ID do ator autenticado; vazio se a rota não passou pelo middleware.
func Actor(r *http.Request) string {
	claims, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		return ""
	}
	return claims.ActorID
}

// KeyFromQuery lê a chave de estoque de ?product_id=&variant_id=&warehouse_id=.
func KeyFromQuery(r *http.Request) (domain.StockKey, error) {
	q := r.URL.Query()
	key := domain.StockKey{
		ProductID:   strings.TrimSpace(q.Get("product_id")),
		VariantID:   strings.TrimSpace(q.Get("variant_id")),
		WarehouseID: strings.TrimSpace(q.Get("warehouse_id")),
	}
	if key.ProductID == "" {
		return domain.StockKey{}, apperror.NewValidationError("product_id é obrigatório.")
	}
	return key, nil
}
