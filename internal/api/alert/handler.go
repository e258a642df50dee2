package alert

import (
	"context"
	"net/http"
	"strconv"

	"stockledger/internal/api/respond"
	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

// AlertService define o contrato que o Handler espera do Alert Evaluator.
type AlertService interface {
	List(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error)
	Resolve(ctx context.Context, id, resolvedBy string) (domain.Alert, error)
}

// Handler agrupa os métodos de Handler de alertas.
type Handler struct {
	Service AlertService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler.
func NewHandler(svc AlertService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// ListAlertsHandler lida com a requisição GET /v1/alerts.
// @Summary Lista alertas de estoque
// @Tags alerts
// @Produce json
// @Param product_id query string false "Filtra por produto"
// @Param unresolved query bool false "Somente não resolvidos"
// @Param limit query int false "Máximo de alertas"
// @Success 200 {array} domain.Alert
// @Failure 400 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /alerts [get]
func (h *Handler) ListAlertsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AlertFilter{ProductID: q.Get("product_id")}

	if raw := q.Get("unresolved"); raw != "" {
		unresolved, err := strconv.ParseBool(raw)
		if err != nil {
			respond.Error(w, r, h.Logger, apperror.NewValidationError("unresolved deve ser true ou false."))
			return
		}
		filter.UnresolvedOnly = unresolved
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respond.Error(w, r, h.Logger, apperror.NewValidationError("limit deve ser um inteiro não negativo."))
			return
		}
		filter.Limit = limit
	}

	alerts, err := h.Service.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusOK, alerts)
}

// ResolveAlertHandler lida com a requisição POST /v1/alerts/{id}/resolve.
// @Summary Resolve um alerta
// @Description Marca o alerta como resolvido pelo ator autenticado. Um novo alerta pode ser aberto para a chave depois disso.
// @Tags alerts
// @Produce json
// @Param id path string true "ID do alerta"
// @Success 200 {object} domain.Alert
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /alerts/{id}/resolve [post]
func (h *Handler) ResolveAlertHandler(w http.ResponseWriter, r *http.Request) {
	alert, err := h.Service.Resolve(r.Context(), r.PathValue("id"), respond.Actor(r))
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusOK, alert)
}
