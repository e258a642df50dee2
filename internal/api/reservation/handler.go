package reservation

import (
	"context"
	"net/http"
	"strings"

	"stockledger/internal/api/respond"
	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

// ReservationService define o contrato que o Handler espera do Reservation Manager.
type ReservationService interface {
	Reserve(ctx context.Context, req domain.ReserveRequest) (domain.StockReservation, error)
	Get(ctx context.Context, id string) (domain.StockReservation, error)
	ListActiveByOrder(ctx context.Context, orderID string) ([]domain.StockReservation, error)
	Fulfill(ctx context.Context, id string) (domain.StockReservation, error)
	Cancel(ctx context.Context, id, reason string) (domain.StockReservation, error)
}

// Handler agrupa os métodos de Handler de reservas.
type Handler struct {
	Service ReservationService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler.
func NewHandler(svc ReservationService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// ReserveHandler lida com a requisição POST /v1/reservations.
// @Summary Reserva estoque disponível para um pedido
// @Description Segura a quantidade até expirar. Não altera a quantidade bruta do registro.
// @Tags reservations
// @Accept json
// @Produce json
// @Param reservation body domain.ReserveRequest true "Chave, pedido, cliente, quantidade e TTL opcional"
// @Success 201 {object} domain.StockReservation
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Failure 422 {object} domain.ErrorResponse "Estoque disponível insuficiente"
// @Security ApiKeyAuth
// @Router /reservations [post]
func (h *Handler) ReserveHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.ReserveRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	res, err := h.Service.Reserve(r.Context(), req)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusCreated, res)
}

// ListByOrderHandler lida com a requisição GET /v1/reservations?order_id=.
// @Summary Lista as reservas ativas de um pedido
// @Tags reservations
// @Produce json
// @Param order_id query string true "Pedido"
// @Success 200 {array} domain.StockReservation
// @Failure 400 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /reservations [get]
func (h *Handler) ListByOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(r.URL.Query().Get("order_id"))
	if orderID == "" {
		respond.Error(w, r, h.Logger, apperror.NewValidationError("order_id é obrigatório."))
		return
	}

	list, err := h.Service.ListActiveByOrder(r.Context(), orderID)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusOK, list)
}

// GetReservationHandler lida com a requisição GET /v1/reservations/{id}.
// @Summary Obtém uma reserva
// @Tags reservations
// @Produce json
// @Param id path string true "ID da reserva"
// @Success 200 {object} domain.StockReservation
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /reservations/{id} [get]
func (h *Handler) GetReservationHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusOK, res)
}

// FulfillHandler lida com a requisição POST /v1/reservations/{id}/fulfill.
// @Summary Atende uma reserva
// @Description Libera a reserva como atendida. A baixa no estoque é uma venda registrada separadamente.
// @Tags reservations
// @Produce json
// @Param id path string true "ID da reserva"
// @Success 200 {object} domain.StockReservation
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Reserva em estado terminal"
// @Security ApiKeyAuth
// @Router /reservations/{id}/fulfill [post]
func (h *Handler) FulfillHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Fulfill(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusOK, res)
}

// CancelHandler lida com a requisição POST /v1/reservations/{id}/cancel.
// @Summary Cancela uma reserva ativa
// @Tags reservations
// @Accept json
// @Produce json
// @Param id path string true "ID da reserva"
// @Param cancel body domain.CancelReservationRequest false "Motivo"
// @Success 200 {object} domain.StockReservation
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Reserva em estado terminal"
// @Security ApiKeyAuth
// @Router /reservations/{id}/cancel [post]
func (h *Handler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CancelReservationRequest
	if r.ContentLength != 0 {
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, r, h.Logger, err)
			return
		}
	}

	res, err := h.Service.Cancel(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusOK, res)
}
