package reservationrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stockledger/internal/domain"
	"stockledger/internal/errors"
	"stockledger/internal/pkg/database"
	"stockledger/internal/pkg/logger"
)

const reservationColumns = `id, product_id, variant_id, warehouse_id, order_id, customer_id, quantity, status,
        cancel_reason, expires_at, fulfilled_at, cancelled_at, created_at`

// ReservationRepository persiste reservas de estoque. Toda transição de status é
// condicional a status = 'active', o que torna seguras as corridas com o sweep de expiração.
type ReservationRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewReservationRepository cria e retorna uma nova instância do Repositório de Reservas.
func NewReservationRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *ReservationRepository {
	return &ReservationRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (domain.StockReservation, error) {
	var res domain.StockReservation
	var fulfilledAt, cancelledAt sql.NullTime
	err := row.Scan(
		&res.ID, &res.ProductID, &res.VariantID, &res.WarehouseID, &res.OrderID, &res.CustomerID,
		&res.Quantity, &res.Status, &res.CancelReason, &res.ExpiresAt, &fulfilledAt, &cancelledAt, &res.CreatedAt,
	)
	if fulfilledAt.Valid {
		res.FulfilledAt = &fulfilledAt.Time
	}
	if cancelledAt.Valid {
		res.CancelledAt = &cancelledAt.Time
	}
	return res, err
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func sumActive(ctx context.Context, q querier, key domain.StockKey, now time.Time) (int, error) {
	var reserved int
	err := q.QueryRowContext(ctx, `
        SELECT COALESCE(SUM(quantity), 0)
        FROM stock_reservations
        WHERE product_id = $1 AND variant_id = $2 AND warehouse_id = $3
          AND status = 'active' AND expires_at > $4`,
		key.ProductID, key.VariantID, key.WarehouseID, now,
	).Scan(&reserved)
	return reserved, err
}

// CreateIfAvailable cria a reserva se a quantidade disponível da chave comportar res.Quantity.
// A linha de stock_records fica travada (FOR UPDATE) durante a checagem, de modo que duas
// reservas concorrentes na mesma chave não conseguem ambas passar da disponibilidade.
// Se o pedido já tem uma reserva ativa e válida para a chave, ela é devolvida com created=false.
func (r *ReservationRepository) CreateIfAvailable(ctx context.Context, res domain.StockReservation, now time.Time) (domain.StockReservation, bool, error) {
	key := res.Key()

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de reserva.", err)
		return domain.StockReservation{}, false, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	var quantity int
	err = tx.QueryRowContext(ctxTimeout, `
        SELECT quantity FROM stock_records
        WHERE product_id = $1 AND variant_id = $2 AND warehouse_id = $3
        FOR UPDATE`,
		key.ProductID, key.VariantID, key.WarehouseID,
	).Scan(&quantity)
	if err == sql.ErrNoRows {
		return domain.StockReservation{}, false, errors.NewNotFoundError(fmt.Sprintf("Estoque para %s não encontrado.", key))
	}
	if err != nil {
		r.logger.Error("Falha ao travar registro de estoque para reserva.", err)
		return domain.StockReservation{}, false, errors.NewDBError("Falha ao ler estoque", err)
	}

	// Reserva vencida do mesmo pedido ainda ocupa o índice único até o sweep; expira aqui.
	if _, err := tx.ExecContext(ctxTimeout, `
        UPDATE stock_reservations SET status = 'expired'
        WHERE order_id = $1 AND product_id = $2 AND variant_id = $3 AND warehouse_id = $4
          AND status = 'active' AND expires_at <= $5`,
		res.OrderID, key.ProductID, key.VariantID, key.WarehouseID, now,
	); err != nil {
		return domain.StockReservation{}, false, errors.NewDBError("Falha ao expirar reserva anterior", err)
	}

	existing, err := scanReservation(tx.QueryRowContext(ctxTimeout, `
        SELECT `+reservationColumns+`
        FROM stock_reservations
        WHERE order_id = $1 AND product_id = $2 AND variant_id = $3 AND warehouse_id = $4 AND status = 'active'`,
		res.OrderID, key.ProductID, key.VariantID, key.WarehouseID,
	))
	if err == nil {
		if err := tx.Commit(); err != nil {
			return domain.StockReservation{}, false, errors.NewDBError("Falha ao commitar transação", err)
		}
		r.logger.Info("Reserva ativa já existe para o pedido.", map[string]interface{}{"order_id": res.OrderID, "reservation_id": existing.ID})
		return existing, false, nil
	}
	if err != sql.ErrNoRows {
		return domain.StockReservation{}, false, errors.NewDBError("Falha ao buscar reserva existente", err)
	}

	reserved, err := sumActive(ctxTimeout, tx, key, now)
	if err != nil {
		r.logger.Error("Falha ao somar reservas ativas.", err)
		return domain.StockReservation{}, false, errors.NewDBError("Falha ao calcular reservas", err)
	}
	available := quantity - reserved
	if res.Quantity > available {
		r.logger.Info("Estoque disponível insuficiente para reserva.", map[string]interface{}{
			"key": key.String(), "available": available, "requested": res.Quantity,
		})
		return domain.StockReservation{}, false, errors.NewInsufficientAvailableStockError(available, res.Quantity)
	}

	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	created, err := scanReservation(tx.QueryRowContext(ctxTimeout, `
        INSERT INTO stock_reservations (id, product_id, variant_id, warehouse_id, order_id, customer_id,
            quantity, status, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', $8, $9)
        RETURNING `+reservationColumns,
		res.ID, key.ProductID, key.VariantID, key.WarehouseID, res.OrderID, res.CustomerID,
		res.Quantity, res.ExpiresAt, now,
	))
	if database.IsUniqueViolation(err, "stock_reservations_active_order_key") {
		return domain.StockReservation{}, false, errors.NewConflictError("Reserva concorrente para o mesmo pedido. Tente novamente.")
	}
	if err != nil {
		r.logger.Error("Falha ao inserir reserva.", err)
		return domain.StockReservation{}, false, errors.NewDBError("Falha ao criar reserva", err)
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar transação de reserva.", err)
		return domain.StockReservation{}, false, errors.NewDBError("Falha ao commitar transação", err)
	}

	r.logger.Info("Reserva criada.", map[string]interface{}{"reservation_id": created.ID, "key": key.String(), "quantity": created.Quantity})
	return created, true, nil
}

// SumActive soma a quantidade de reservas ativas e não vencidas da chave.
func (r *ReservationRepository) SumActive(ctx context.Context, key domain.StockKey, now time.Time) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	reserved, err := sumActive(ctxTimeout, r.DB, key, now)
	if err != nil {
		r.logger.Error("Falha ao somar reservas ativas.", err)
		return 0, errors.NewDBError("Falha ao calcular reservas", err)
	}
	return reserved, nil
}

// GetByID busca uma reserva pelo ID.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (domain.StockReservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.StockReservation{}, errors.NewNotFoundError(fmt.Sprintf("Reserva com ID %s não encontrada.", id))
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	res, err := scanReservation(r.DB.QueryRowContext(ctxTimeout,
		`SELECT `+reservationColumns+` FROM stock_reservations WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return domain.StockReservation{}, errors.NewNotFoundError(fmt.Sprintf("Reserva com ID %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar reserva no DB.", err)
		return domain.StockReservation{}, errors.NewDBError("Falha ao buscar reserva", err)
	}
	return res, nil
}

// FindActiveByOrder lista as reservas com status active do pedido.
func (r *ReservationRepository) FindActiveByOrder(ctx context.Context, orderID string) ([]domain.StockReservation, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
        SELECT `+reservationColumns+`
        FROM stock_reservations
        WHERE order_id = $1 AND status = 'active'
        ORDER BY created_at, id`, orderID)
	if err != nil {
		r.logger.Error("Falha ao listar reservas do pedido.", err)
		return nil, errors.NewDBError("Falha ao listar reservas", err)
	}
	defer rows.Close()

	reservations := []domain.StockReservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear reserva", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de reservas", err)
	}
	return reservations, nil
}

// Transition move uma reserva ativa para o status terminal to.
// fulfilled exige também expires_at > now. Sem linha afetada, devolve NotFound
// ou ReservationStateError com o status observado.
func (r *ReservationRepository) Transition(ctx context.Context, id string, to domain.ReservationStatus, reason string, now time.Time) (domain.StockReservation, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return domain.StockReservation{}, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE stock_reservations
        SET status = $1,
            cancel_reason = $2,
            fulfilled_at = CASE WHEN $1 = 'fulfilled' THEN $3::timestamptz ELSE fulfilled_at END,
            cancelled_at = CASE WHEN $1 = 'cancelled' THEN $3::timestamptz ELSE cancelled_at END
        WHERE id = $4 AND status = 'active'
          AND ($1 <> 'fulfilled' OR expires_at > $3)
        RETURNING ` + reservationColumns

	res, err := scanReservation(r.DB.QueryRowContext(ctxTimeout, query, string(to), reason, now, id))
	if err == sql.ErrNoRows {
		// Ainda active aqui significa vencida por tempo, aguardando o sweep.
		observed := string(domain.ReservationExpired)
		if latest, getErr := r.GetByID(ctx, id); getErr == nil && latest.Status != domain.ReservationActive {
			observed = string(latest.Status)
		}
		r.logger.Info("Transição de reserva rejeitada.", map[string]interface{}{"reservation_id": id, "status": observed, "to": string(to)})
		return domain.StockReservation{}, errors.NewReservationStateError(observed, string(to))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar status da reserva.", err)
		return domain.StockReservation{}, errors.NewDBError("Falha ao atualizar reserva", err)
	}
	return res, nil
}

// ExpireDue marca como expired todas as reservas ativas com expires_at <= now e
// devolve os IDs afetados.
func (r *ReservationRepository) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
        UPDATE stock_reservations
        SET status = 'expired'
        WHERE status = 'active' AND expires_at <= $1
        RETURNING id`, now)
	if err != nil {
		r.logger.Error("Falha ao expirar reservas vencidas.", err)
		return nil, errors.NewDBError("Falha ao expirar reservas", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewDBError("Falha ao mapear reserva expirada", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de reservas expiradas", err)
	}
	return ids, nil
}
