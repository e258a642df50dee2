package stock

import (
	"context"
	"net/http"
	"strconv"

	"stockledger/internal/api/respond"
	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/middleware"
)

// StockService define o contrato que o Handler espera do Ledger Writer.
type StockService interface {
	RegisterRecord(ctx context.Context, req domain.RegisterRecordRequest) (domain.StockLevel, error)
	UpdateThreshold(ctx context.Context, req domain.UpdateThresholdRequest) (domain.StockRecord, error)
	GetStock(ctx context.Context, key domain.StockKey) (domain.StockLevel, error)
	RecordChange(ctx context.Context, req domain.StockChangeRequest) (domain.StockLedgerEntry, error)
	ListEntries(ctx context.Context, key domain.StockKey, limit int) ([]domain.StockLedgerEntry, error)
	Replay(ctx context.Context, key domain.StockKey) (domain.ReplayReport, error)
}

// BatchService define o contrato do Batch Orchestrator.
type BatchService interface {
	ApplyBatch(ctx context.Context, requests []domain.StockChangeRequest, actorID string) domain.BatchResult
}

// Handler agrupa todos os métodos de Handler de estoque.
type Handler struct {
	Service StockService
	Batch   BatchService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando os Services e o Logger.
func NewHandler(svc StockService, batch BatchService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Batch:   batch,
		Logger:  log,
	}
}

// authorizeChange exige role admin ou manager para ajustes. As demais mudanças
// só exigem um ator autenticado.
func authorizeChange(r *http.Request, changeType domain.ChangeType) error {
	if changeType != domain.ChangeAdjustment {
		return nil
	}
	claims, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		return apperror.NewUnauthorizedError("Autorização necessária.")
	}
	if claims.Role != domain.RoleAdmin && claims.Role != domain.RoleManager {
		return apperror.NewForbiddenError("Ajustes de estoque exigem role admin ou manager.")
	}
	return nil
}

// RegisterRecordHandler lida com a requisição POST /v1/stock/records.
// @Summary Cadastra um registro de estoque
// @Description Cria o StockRecord da chave. A quantidade inicial entra no ledger como restock.
// @Tags stock
// @Accept json
// @Produce json
// @Param record body domain.RegisterRecordRequest true "Chave, limite e quantidade inicial"
// @Success 201 {object} domain.StockLevel
// @Failure 400 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Chave já cadastrada"
// @Security ApiKeyAuth
// @Router /stock/records [post]
func (h *Handler) RegisterRecordHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRecordRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	req.ActorID = respond.Actor(r)

	level, err := h.Service.RegisterRecord(r.Context(), req)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusCreated, level)
}

// GetStockHandler lida com a requisição GET /v1/stock/records.
// @Summary Consulta o estoque de uma chave
// @Description Retorna quantidade bruta, reservada e disponível para venda.
// @Tags stock
// @Produce json
// @Param product_id query string true "Produto"
// @Param variant_id query string false "Variante"
// @Param warehouse_id query string false "Armazém"
// @Success 200 {object} domain.StockLevel
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /stock/records [get]
func (h *Handler) GetStockHandler(w http.ResponseWriter, r *http.Request) {
	key, err := respond.KeyFromQuery(r)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	level, err := h.Service.GetStock(r.Context(), key)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusOK, level)
}

// UpdateThresholdHandler lida com a requisição PUT /v1/stock/records/threshold.
// @Summary Altera o limite de estoque baixo
// @Tags stock
// @Accept json
// @Produce json
// @Param threshold body domain.UpdateThresholdRequest true "Chave e novo limite"
// @Success 200 {object} domain.StockRecord
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /stock/records/threshold [put]
func (h *Handler) UpdateThresholdHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateThresholdRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	rec, err := h.Service.UpdateThreshold(r.Context(), req)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusOK, rec)
}

// RecordChangeHandler lida com a requisição POST /v1/stock/changes.
// @Summary Registra uma mudança de estoque
// @Description Valida o sinal do delta, aplica a mudança sob concorrência otimista e grava a entrada do ledger.
// @Tags stock
// @Accept json
// @Produce json
// @Param change body domain.StockChangeRequest true "Intenção de mudança"
// @Success 201 {object} domain.StockLedgerEntry
// @Failure 400 {object} domain.ErrorResponse "Mudança inválida"
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Conflito de concorrência persistente"
// @Failure 422 {object} domain.ErrorResponse "Estoque insuficiente"
// @Security ApiKeyAuth
// @Router /stock/changes [post]
func (h *Handler) RecordChangeHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.StockChangeRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	if err := authorizeChange(r, req.ChangeType); err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	req.ActorID = respond.Actor(r)

	entry, err := h.Service.RecordChange(r.Context(), req)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusCreated, entry)
}

// ApplyBatchHandler lida com a requisição POST /v1/stock/changes/batch.
// @Summary Aplica um lote de mudanças independentes
// @Description Cada item é isolado; a falha de um não desfaz os demais. 200 se ao menos um item foi aplicado.
// @Tags stock
// @Accept json
// @Produce json
// @Param batch body domain.BatchRequest true "Lote de mudanças"
// @Success 200 {object} domain.BatchResult
// @Failure 400 {object} domain.ErrorResponse
// @Failure 422 {object} domain.BatchResult "Nenhum item aplicado"
// @Security ApiKeyAuth
// @Router /stock/changes/batch [post]
func (h *Handler) ApplyBatchHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.BatchRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	for _, change := range req.Changes {
		if err := authorizeChange(r, change.ChangeType); err != nil {
			respond.Error(w, r, h.Logger, err)
			return
		}
	}

	actor := respond.Actor(r)
	for i := range req.Changes {
		req.Changes[i].ActorID = actor
	}

	result := h.Batch.ApplyBatch(r.Context(), req.Changes, actor)
	status := http.StatusOK
	if !result.AnySucceeded() {
		status = http.StatusUnprocessableEntity
	}
	respond.JSON(w, h.Logger, status, result)
}

// ListLedgerHandler lida com a requisição GET /v1/stock/ledger.
// @Summary Lista o ledger de uma chave
// @Description Entradas em ordem de aplicação, da mais antiga para a mais recente.
// @Tags stock
// @Produce json
// @Param product_id query string true "Produto"
// @Param variant_id query string false "Variante"
// @Param warehouse_id query string false "Armazém"
// @Param limit query int false "Máximo de entradas"
// @Success 200 {array} domain.StockLedgerEntry
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /stock/ledger [get]
func (h *Handler) ListLedgerHandler(w http.ResponseWriter, r *http.Request) {
	key, err := respond.KeyFromQuery(r)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respond.Error(w, r, h.Logger, apperror.NewValidationError("limit deve ser um inteiro não negativo."))
			return
		}
	}

	entries, err := h.Service.ListEntries(r.Context(), key, limit)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusOK, entries)
}

// ReplayHandler lida com a requisição GET /v1/stock/ledger/replay.
// @Summary Audita o ledger de uma chave
// @Description Reaplica o ledger a partir de zero e compara com a quantidade gravada.
// @Tags stock
// @Produce json
// @Param product_id query string true "Produto"
// @Param variant_id query string false "Variante"
// @Param warehouse_id query string false "Armazém"
// @Success 200 {object} domain.ReplayReport
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /stock/ledger/replay [get]
func (h *Handler) ReplayHandler(w http.ResponseWriter, r *http.Request) {
	key, err := respond.KeyFromQuery(r)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}

	report, err := h.Service.Replay(r.Context(), key)
	if err != nil {
		respond.Error(w, r, h.Logger, err)
		return
	}
	respond.JSON(w, h.Logger, http.StatusOK, report)
}
