package transferrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stockledger/internal/domain"
	"stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

const transferColumns = `id, transfer_number, source_warehouse_id, destination_warehouse_id, status,
        initiated_by, approved_by, completed_by, cancelled_by, cancel_reason,
        created_at, approved_at, completed_at, cancelled_at`

// TransferRepository persiste transferências e seus itens.
type TransferRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewTransferRepository cria e retorna uma nova instância do Repositório de Transferências.
func NewTransferRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *TransferRepository {
	return &TransferRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransfer(row rowScanner) (domain.StockTransfer, error) {
	var t domain.StockTransfer
	var approvedAt, completedAt, cancelledAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.TransferNumber, &t.SourceWarehouseID, &t.DestinationWarehouseID, &t.Status,
		&t.InitiatedBy, &t.ApprovedBy, &t.CompletedBy, &t.CancelledBy, &t.CancelReason,
		&t.CreatedAt, &approvedAt, &completedAt, &cancelledAt,
	)
	if approvedAt.Valid {
		t.ApprovedAt = &approvedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if cancelledAt.Valid {
		t.CancelledAt = &cancelledAt.Time
	}
	return t, err
}

// Create insere a transferência e seus itens numa única transação.
func (r *TransferRepository) Create(ctx context.Context, t domain.StockTransfer) (domain.StockTransfer, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de transferência.", err)
		return domain.StockTransfer{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	created, err := scanTransfer(tx.QueryRowContext(ctxTimeout, `
        INSERT INTO stock_transfers (id, transfer_number, source_warehouse_id, destination_warehouse_id,
            status, initiated_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+transferColumns,
		t.ID, t.TransferNumber, t.SourceWarehouseID, t.DestinationWarehouseID,
		string(t.Status), t.InitiatedBy, t.CreatedAt,
	))
	if err != nil {
		r.logger.Error("Falha ao inserir transferência.", err)
		return domain.StockTransfer{}, errors.NewDBError("Falha ao criar transferência", err)
	}

	for i, item := range t.Items {
		_, err := tx.ExecContext(ctxTimeout, `
            INSERT INTO stock_transfer_items (transfer_id, position, product_id, variant_id, quantity)
            VALUES ($1, $2, $3, $4, $5)`,
			created.ID, i, item.ProductID, item.VariantID, item.Quantity,
		)
		if err != nil {
			r.logger.Error("Falha ao inserir item da transferência.", err)
			return domain.StockTransfer{}, errors.NewDBError("Falha ao criar itens da transferência", err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar transação de transferência.", err)
		return domain.StockTransfer{}, errors.NewDBError("Falha ao commitar transação", err)
	}

	created.Items = t.Items
	r.logger.Info("Transferência criada.", map[string]interface{}{"transfer_id": created.ID, "transfer_number": created.TransferNumber})
	return created, nil
}

// GetByID busca a transferência com os itens em ordem.
func (r *TransferRepository) GetByID(ctx context.Context, id string) (domain.StockTransfer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.StockTransfer{}, errors.NewNotFoundError(fmt.Sprintf("Transferência com ID %s não encontrada.", id))
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	t, err := scanTransfer(r.DB.QueryRowContext(ctxTimeout,
		`SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return domain.StockTransfer{}, errors.NewNotFoundError(fmt.Sprintf("Transferência com ID %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar transferência no DB.", err)
		return domain.StockTransfer{}, errors.NewDBError("Falha ao buscar transferência", err)
	}

	rows, err := r.DB.QueryContext(ctxTimeout, `
        SELECT product_id, variant_id, quantity
        FROM stock_transfer_items
        WHERE transfer_id = $1
        ORDER BY position`, id)
	if err != nil {
		r.logger.Error("Falha ao buscar itens da transferência.", err)
		return domain.StockTransfer{}, errors.NewDBError("Falha ao buscar itens", err)
	}
	defer rows.Close()

	t.Items = []domain.TransferItem{}
	for rows.Next() {
		var item domain.TransferItem
		if err := rows.Scan(&item.ProductID, &item.VariantID, &item.Quantity); err != nil {
			return domain.StockTransfer{}, errors.NewDBError("Falha ao mapear item da transferência", err)
		}
		t.Items = append(t.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.StockTransfer{}, errors.NewDBError("Erro após iteração de itens", err)
	}
	return t, nil
}

// Transition aplica tr somente se o status gravado ainda for tr.From.
// O ator e o timestamp vão para as colunas da transição de destino.
func (r *TransferRepository) Transition(ctx context.Context, id string, tr domain.TransferTransition) (domain.StockTransfer, error) {
	args := []interface{}{tr.Actor, tr.At, id, string(tr.From), string(tr.To)}
	var set string
	switch tr.To {
	case domain.TransferInTransit:
		set = `approved_by = $1, approved_at = $2`
	case domain.TransferCompleted:
		set = `completed_by = $1, completed_at = $2`
	case domain.TransferCancelled:
		set = `cancelled_by = $1, cancelled_at = $2, cancel_reason = $6`
		args = append(args, tr.Reason)
	default:
		return domain.StockTransfer{}, errors.NewTransferStateError(string(tr.From), string(tr.To))
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `UPDATE stock_transfers SET ` + set + `, status = $5
        WHERE id = $3 AND status = $4
        RETURNING ` + transferColumns

	updated, err := scanTransfer(r.DB.QueryRowContext(ctxTimeout, query, args...))
	if err == sql.ErrNoRows {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return domain.StockTransfer{}, getErr
		}
		r.logger.Info("Transição de transferência rejeitada.", map[string]interface{}{
			"transfer_id": id, "status": string(current.Status), "to": string(tr.To),
		})
		return domain.StockTransfer{}, errors.NewTransferStateError(string(current.Status), string(tr.To))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar status da transferência.", err)
		return domain.StockTransfer{}, errors.NewDBError("Falha ao atualizar transferência", err)
	}

	full, err := r.GetByID(ctx, updated.ID)
	if err != nil {
		return updated, nil
	}
	return full, nil
}
