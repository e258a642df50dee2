package alertrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockledger/internal/domain"
	"stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

const alertColumns = `id, product_id, variant_id, warehouse_id, type, threshold, quantity, message,
        is_resolved, resolved_by, resolved_at, created_at, updated_at`

// AlertRepository persiste alertas de estoque. O índice parcial stock_alerts_unresolved_key
// garante no máximo um alerta não resolvido por (chave, tipo).
type AlertRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewAlertRepository cria e retorna uma nova instância do Repositório de Alertas.
func NewAlertRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *AlertRepository {
	return &AlertRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner, extra ...interface{}) (domain.Alert, error) {
	var a domain.Alert
	var resolvedAt sql.NullTime
	dest := []interface{}{
		&a.ID, &a.ProductID, &a.VariantID, &a.WarehouseID, &a.Type, &a.Threshold, &a.Quantity, &a.Message,
		&a.IsResolved, &a.ResolvedBy, &resolvedAt, &a.CreatedAt, &a.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	if resolvedAt.Valid {
		a.ResolvedAt = &resolvedAt.Time
	}
	return a, err
}

// Upsert cria o alerta ou, se já existe um não resolvido para a mesma chave e tipo,
// atualiza quantidade, limite e mensagem dele. created indica se a linha é nova.
func (r *AlertRepository) Upsert(ctx context.Context, alert domain.Alert) (domain.Alert, bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	query := `
        INSERT INTO stock_alerts (id, product_id, variant_id, warehouse_id, type, threshold, quantity, message,
            is_resolved, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9, $9)
        ON CONFLICT (product_id, variant_id, warehouse_id, type) WHERE is_resolved = false
        DO UPDATE SET threshold = EXCLUDED.threshold,
                      quantity = EXCLUDED.quantity,
                      message = EXCLUDED.message,
                      updated_at = EXCLUDED.updated_at
        RETURNING ` + alertColumns + `, (xmax = 0) AS inserted`

	var inserted bool
	saved, err := scanAlert(r.DB.QueryRowContext(ctxTimeout, query,
		alert.ID, alert.ProductID, alert.VariantID, alert.WarehouseID, string(alert.Type),
		alert.Threshold, alert.Quantity, alert.Message, now,
	), &inserted)
	if err != nil {
		r.logger.Error("Falha ao gravar alerta de estoque.", err)
		return domain.Alert{}, false, errors.NewDBError("Falha ao gravar alerta", err)
	}
	return saved, inserted, nil
}

// List lista alertas do mais recente para o mais antigo.
func (r *AlertRepository) List(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var conds []string
	var args []interface{}
	if filter.ProductID != "" {
		args = append(args, filter.ProductID)
		conds = append(conds, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if filter.UnresolvedOnly {
		conds = append(conds, "is_resolved = false")
	}

	query := `SELECT ` + alertColumns + ` FROM stock_alerts`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY updated_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar alertas.", err)
		return nil, errors.NewDBError("Falha ao listar alertas", err)
	}
	defer rows.Close()

	alerts := []domain.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear alerta", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de alertas", err)
	}
	return alerts, nil
}

// Resolve marca o alerta como resolvido. Resolver um alerta já resolvido
// devolve o estado atual sem alteração.
func (r *AlertRepository) Resolve(ctx context.Context, id, resolvedBy string, at time.Time) (domain.Alert, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Alert{}, errors.NewNotFoundError(fmt.Sprintf("Alerta com ID %s não encontrado.", id))
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	a, err := scanAlert(r.DB.QueryRowContext(ctxTimeout, `
        UPDATE stock_alerts
        SET is_resolved = true, resolved_by = $1, resolved_at = $2, updated_at = $2
        WHERE id = $3 AND is_resolved = false
        RETURNING `+alertColumns, resolvedBy, at, id))
	if err == sql.ErrNoRows {
		a, err = scanAlert(r.DB.QueryRowContext(ctxTimeout, `SELECT `+alertColumns+` FROM stock_alerts WHERE id = $1`, id))
		if err == sql.ErrNoRows {
			return domain.Alert{}, errors.NewNotFoundError(fmt.Sprintf("Alerta com ID %s não encontrado.", id))
		}
	}
	if err != nil {
		r.logger.Error("Falha ao resolver alerta.", err)
		return domain.Alert{}, errors.NewDBError("Falha ao resolver alerta", err)
	}
	return a, nil
}
