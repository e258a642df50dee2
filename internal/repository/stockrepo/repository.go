package stockrepo

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

const idempotencyConstraint = "stock_ledger_entries_idempotency_key_key"

const recordColumns = `id, product_id, variant_id, warehouse_id, quantity, low_stock_threshold, version, created_at, updated_at`

const entryColumns = `id, product_id, variant_id, warehouse_id, change_type, quantity_delta, previous_quantity,
        new_quantity, reason, actor_id, COALESCE(reference_id, ''), COALESCE(idempotency_key, ''), created_at`

// StockRepository é o Stock Record Store: registros de estoque e o ledger append-only.
// ApplyDelta é o único ponto de mutação de quantidade.
type StockRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewStockRepository cria e retorna uma nova instância do Repositório de Estoque.
func NewStockRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *StockRepository {
	return &StockRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (domain.StockRecord, error) {
	var rec domain.StockRecord
	err := row.Scan(
		&rec.ID, &rec.ProductID, &rec.VariantID, &rec.WarehouseID, &rec.Quantity,
		&rec.LowStockThreshold, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}

func scanEntry(row rowScanner) (domain.StockLedgerEntry, error) {
	var e domain.StockLedgerEntry
	err := row.Scan(
		&e.ID, &e.ProductID, &e.VariantID, &e.WarehouseID, &e.ChangeType, &e.QuantityDelta,
		&e.PreviousQuantity, &e.NewQuantity, &e.Reason, &e.ActorID, &e.ReferenceID,
		&e.IdempotencyKey, &e.Timestamp,
	)
	return e, err
}

func keyFields(key domain.StockKey) map[string]interface{} {
	return map[string]interface{}{
		"product_id":   key.ProductID,
		"variant_id":   key.VariantID,
		"warehouse_id": key.WarehouseID,
	}
}

// CreateRecord insere um StockRecord com quantidade zero.
// A quantidade inicial entra depois como uma entrada de restock, para que o replay feche.
func (r *StockRepository) CreateRecord(ctx context.Context, rec domain.StockRecord) (domain.StockRecord, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	query := `
        INSERT INTO stock_records (id, product_id, variant_id, warehouse_id, quantity, low_stock_threshold, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, 0, $5, 1, $6, $6)
        RETURNING ` + recordColumns

	created, err := scanRecord(r.DB.QueryRowContext(ctxTimeout, query,
		rec.ID, rec.ProductID, rec.VariantID, rec.WarehouseID, rec.LowStockThreshold, now,
	))
	if database.IsUniqueViolation(err, "stock_records_key_key") {
		return domain.StockRecord{}, errors.NewConflictError(fmt.Sprintf("Estoque para %s já está cadastrado.", rec.Key()))
	}
	if err != nil {
		r.logger.Error("Falha ao inserir registro de estoque.", err)
		return domain.StockRecord{}, errors.NewDBError("Falha ao criar registro de estoque", err)
	}

	r.logger.Info("Registro de estoque criado.", keyFields(created.Key()))
	return created, nil
}

// GetRecord busca o StockRecord da chave.
func (r *StockRepository) GetRecord(ctx context.Context, key domain.StockKey) (domain.StockRecord, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + recordColumns + `
        FROM stock_records
        WHERE product_id = $1 AND variant_id = $2 AND warehouse_id = $3`

	rec, err := scanRecord(r.DB.QueryRowContext(ctxTimeout, query, key.ProductID, key.VariantID, key.WarehouseID))
	if err == sql.ErrNoRows {
		r.logger.Debug("Registro de estoque não encontrado.", keyFields(key))
		return domain.StockRecord{}, errors.NewNotFoundError(fmt.Sprintf("Estoque para %s não encontrado.", key))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar registro de estoque no DB.", err)
		return domain.StockRecord{}, errors.NewDBError("Falha ao buscar registro de estoque", err)
	}
	return rec, nil
}

// UpdateThreshold altera apenas o limite de estoque baixo; a quantidade não é tocada.
func (r *StockRepository) UpdateThreshold(ctx context.Context, key domain.StockKey, threshold int) (domain.StockRecord, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE stock_records
        SET low_stock_threshold = $1, updated_at = $2
        WHERE product_id = $3 AND variant_id = $4 AND warehouse_id = $5
        RETURNING ` + recordColumns

	rec, err := scanRecord(r.DB.QueryRowContext(ctxTimeout, query,
		threshold, time.Now().UTC(), key.ProductID, key.VariantID, key.WarehouseID,
	))
	if err == sql.ErrNoRows {
		return domain.StockRecord{}, errors.NewNotFoundError(fmt.Sprintf("Estoque para %s não encontrado.", key))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar limite de estoque baixo.", err)
		return domain.StockRecord{}, errors.NewDBError("Falha ao atualizar limite", err)
	}
	return rec, nil
}

// ApplyDelta aplica entry.QuantityDelta à chave da entrada se, e somente se, a quantidade
// gravada ainda for entry.PreviousQuantity (compare-and-swap), e grava a entrada do ledger
// na mesma transação. Erros:
//   - InsufficientStockError se PreviousQuantity + delta < 0 (nada é tocado);
//   - NotFoundError se a chave não existe;
//   - ConflictError se a quantidade mudou desde a leitura;
//   - DuplicateChangeError se a chave de idempotência já foi aplicada (a mutação é desfeita).
func (r *StockRepository) ApplyDelta(ctx context.Context, entry domain.StockLedgerEntry) (domain.StockRecord, domain.StockLedgerEntry, error) {
	key := entry.Key()
	newQuantity := entry.PreviousQuantity + entry.QuantityDelta
	if newQuantity < 0 {
		return domain.StockRecord{}, domain.StockLedgerEntry{}, errors.NewInsufficientStockError(entry.PreviousQuantity, entry.QuantityDelta)
	}
	entry.NewQuantity = newQuantity
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de mudança de estoque.", err)
		return domain.StockRecord{}, domain.StockLedgerEntry{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	// 1. Compare-and-swap na quantidade
	queryUpdate := `
        UPDATE stock_records
        SET quantity = $1, version = version + 1, updated_at = $2
        WHERE product_id = $3 AND variant_id = $4 AND warehouse_id = $5 AND quantity = $6
        RETURNING ` + recordColumns

	rec, err := scanRecord(tx.QueryRowContext(ctxTimeout, queryUpdate,
		newQuantity, entry.Timestamp, key.ProductID, key.VariantID, key.WarehouseID, entry.PreviousQuantity,
	))
	if err == sql.ErrNoRows {
		return domain.StockRecord{}, domain.StockLedgerEntry{}, r.missOrConflict(ctxTimeout, tx, entry)
	}
	if database.IsCheckViolation(err) {
		return domain.StockRecord{}, domain.StockLedgerEntry{}, errors.NewInsufficientStockError(entry.PreviousQuantity, entry.QuantityDelta)
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar quantidade de estoque.", err)
		return domain.StockRecord{}, domain.StockLedgerEntry{}, errors.NewDBError("Falha ao atualizar estoque", err)
	}

	// 2. Entrada do ledger na mesma transação
	queryInsert := `
        INSERT INTO stock_ledger_entries (id, product_id, variant_id, warehouse_id, change_type, quantity_delta,
            previous_quantity, new_quantity, reason, actor_id, reference_id, idempotency_key, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = tx.ExecContext(ctxTimeout, queryInsert,
		entry.ID, key.ProductID, key.VariantID, key.WarehouseID, string(entry.ChangeType), entry.QuantityDelta,
		entry.PreviousQuantity, entry.NewQuantity, entry.Reason, entry.ActorID,
		database.NullString(entry.ReferenceID), database.NullString(entry.IdempotencyKey), entry.Timestamp,
	)
	if database.IsUniqueViolation(err, idempotencyConstraint) {
		r.logger.Info("Chave de idempotência já aplicada; mutação descartada.", map[string]interface{}{"idempotency_key": entry.IdempotencyKey})
		return domain.StockRecord{}, domain.StockLedgerEntry{}, errors.NewDuplicateChangeError(entry.IdempotencyKey)
	}
	if err != nil {
		r.logger.Error("Falha ao gravar entrada do ledger; mutação desfeita.", err)
		return domain.StockRecord{}, domain.StockLedgerEntry{}, errors.NewDBError("Falha ao gravar ledger", err)
	}

	// 3. Commit: só aqui quantidade e ledger ficam visíveis, juntos
	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar transação de mudança de estoque.", err)
		return domain.StockRecord{}, domain.StockLedgerEntry{}, errors.NewDBError("Falha ao commitar transação", err)
	}

	return rec, entry, nil
}

// missOrConflict distingue chave inexistente de quantidade alterada após um CAS sem linhas afetadas.
func (r *StockRepository) missOrConflict(ctx context.Context, tx *sql.Tx, entry domain.StockLedgerEntry) error {
	key := entry.Key()
	var current int
	err := tx.QueryRowContext(ctx, `
        SELECT quantity FROM stock_records
        WHERE product_id = $1 AND variant_id = $2 AND warehouse_id = $3`,
		key.ProductID, key.VariantID, key.WarehouseID,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return errors.NewNotFoundError(fmt.Sprintf("Estoque para %s não encontrado.", key))
	}
	if err != nil {
		return errors.NewDBError("Falha ao verificar registro de estoque", err)
	}

	fields := keyFields(key)
	fields["expected_quantity"] = entry.PreviousQuantity
	fields["current_quantity"] = current
	fields["delta"] = entry.QuantityDelta
	r.logger.Warn("Falha no controle de concorrência otimista (OCC). Quantidade alterada.", fields)
	return errors.NewConflictError("O estoque foi modificado por outra operação. Tente novamente.")
}

// FindEntryByIdempotencyKey busca a entrada já aplicada para a chave de idempotência.
func (r *StockRepository) FindEntryByIdempotencyKey(ctx context.Context, idempotencyKey string) (domain.StockLedgerEntry, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + entryColumns + ` FROM stock_ledger_entries WHERE idempotency_key = $1`

	entry, err := scanEntry(r.DB.QueryRowContext(ctxTimeout, query, idempotencyKey))
	if err == sql.ErrNoRows {
		return domain.StockLedgerEntry{}, errors.NewNotFoundError(fmt.Sprintf("Entrada com chave %s não encontrada.", idempotencyKey))
	}
	if err != nil {
		return domain.StockLedgerEntry{}, errors.NewDBError("Falha ao buscar entrada do ledger", err)
	}
	return entry, nil
}

// ListEntries lista as entradas da chave em ordem de aplicação (mais antiga primeiro).
// limit <= 0 retorna todas.
func (r *StockRepository) ListEntries(ctx context.Context, key domain.StockKey, limit int) ([]domain.StockLedgerEntry, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + entryColumns + `
        FROM stock_ledger_entries
        WHERE product_id = $1 AND variant_id = $2 AND warehouse_id = $3
        ORDER BY created_at, id`
	args := []interface{}{key.ProductID, key.VariantID, key.WarehouseID}
	if limit > 0 {
		query += ` LIMIT $4`
		args = append(args, limit)
	}

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar entradas do ledger.", err)
		return nil, errors.NewDBError("Falha ao listar ledger", err)
	}
	defer rows.Close()

	entries := []domain.StockLedgerEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear entrada do ledger", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração do ledger", err)
	}
	return entries, nil
}
