package transfer

import (
	"context"
	"net/http"

	"stockledger/internal/api/respond"
	"stockledger/internal/domain"
	"stockledger/internal/pkg/logger"
)

// TransferService define o contrato que o Handler espera do Transfer Coordinator.
type TransferService interface {
	Create(ctx context.Context, req domain.CreateTransferRequest) (domain.StockTransfer, error)
	Get(ctx context.Context, id string) (domain.StockTransfer, error)
	Approve(ctx context.Context, id, approvedBy string) (domain.StockTransfer, error)
	Complete(ctx context.Context, id, completedBy string) (domain.StockTransfer, error)
	Cancel(ctx context.Context, id, cancelledBy, reason string) (domain.StockTransfer, error)
}

// Handler agrupa os métodos de Handler de transferências.
type Handler struct {
	Service TransferService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler.
func NewHandler(svc TransferService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// CreateTransferHandler lida com a requisição POST /v1/transfers.
// @Summary Cria uma transferência entre armazéns
// @Description Valida armazéns e disponibilidade na origem. Nenhum estoque é movido até a aprovação.
// @Tags transfers
// @Accept json
// @Produce json
// @Param transfer body domain.CreateTransferRequest true "Origem, destino e itens"
// @Success 201 {object} domain.StockTransfer
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Failure 422 {object} domain.ErrorResponse "Disponível insuficiente na origem"
// @Security ApiKeyAuth
// @Router /transfers [post]
func (h *Handler) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTransferRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	req.InitiatedBy = respond.Actor(r)

	t, err := h.Service.Create(r.Context(), req)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusCreated, t)
}

// GetTransferHandler lida com a requisição GET /v1/transfers/{id}.
// @Summary Obtém uma transferência
// @Tags transfers
// @Produce json
// @Param id path string true "ID da transferência"
// @Success 200 {object} domain.StockTransfer
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /transfers/{id} [get]
func (h *Handler) GetTransferHandler(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusOK, t)
}

// ApproveTransferHandler lida com a requisição POST /v1/transfers/{id}/approve.
// @Summary Aprova uma transferência pending
// @Description Debita a origem de todos os itens (tudo ou nada) e move para in_transit.
// @Tags transfers
// @Produce json
// @Param id path string true "ID da transferência"
// @Success 200 {object} domain.StockTransfer
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Transição inválida"
// @Failure 422 {object} domain.ErrorResponse "Estoque insuficiente"
// @Security ApiKeyAuth
// @Router /transfers/{id}/approve [post]
func (h *Handler) ApproveTransferHandler(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Approve(r.Context(), r.PathValue("id"), respond.Actor(r))
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusOK, t)
}

// CompleteTransferHandler lida com a requisição POST /v1/transfers/{id}/complete.
// @Summary Conclui uma transferência in_transit
// @Description Credita o destino de todos os itens e move para completed.
// @Tags transfers
// @Produce json
// @Param id path string true "ID da transferência"
// @Success 200 {object} domain.StockTransfer
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Transição inválida"
// @Security ApiKeyAuth
// @Router /transfers/{id}/complete [post]
func (h *Handler) CompleteTransferHandler(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Complete(r.Context(), r.PathValue("id"), respond.Actor(r))
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusOK, t)
}

// CancelTransferHandler lida com a requisição POST /v1/transfers/{id}/cancel.
// @Summary Cancela uma transferência
// @Description Em in_transit, devolve à origem o que foi debitado antes de cancelar.
// @Tags transfers
// @Accept json
// @Produce json
// @Param id path string true "ID da transferência"
// @Param cancel body domain.CancelTransferRequest false "Motivo"
// @Success 200 {object} domain.StockTransfer
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Transição inválida"
// @Security ApiKeyAuth
// @Router /transfers/{id}/cancel [post]
func (h *Handler) CancelTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CancelTransferRequest
	if r.ContentLength != 0 {
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, r, h.Logger, err)
			return
		}
	}

	t, err := h.Service.Cancel(r.Context(), r.PathValue("id"), respond.Actor(r), req.Reason)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusOK, t)
}
