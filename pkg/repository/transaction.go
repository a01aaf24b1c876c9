package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
)

const transactionColumns = `id, transaction_id, wallet_address, from_amount, from_currency, to_amount, to_currency,
	bank_name, account_number, account_name, exchange_rate, fee, status, notes, created_at, updated_at`

const defaultListLimit = 50

type TransactionPostgres struct {
	db *sqlx.DB
}

func NewTransactionPostgres(db *sqlx.DB) *TransactionPostgres {
	return &TransactionPostgres{db: db}
}

func (r *TransactionPostgres) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING %s`, transactionsTable, transactionColumns, transactionColumns)

	var created models.Transaction
	err := r.db.GetContext(ctx, &created, query,
		t.ID, t.TransactionID, t.WalletAddress, t.FromAmount, t.FromCurrency, t.ToAmount, t.ToCurrency,
		t.BankName, t.AccountNumber, t.AccountName, t.ExchangeRate, t.Fee, t.Status, t.Notes, t.CreatedAt, t.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return models.Transaction{}, apperr.Wrap(err, apperr.DuplicateTransactionID,
			fmt.Sprintf("transaction %s already exists", t.TransactionID))
	}
	if err != nil {
		return models.Transaction{}, apperr.Wrap(err, apperr.DatabaseError, "failed to create transaction")
	}
	return created, nil
}

func (r *TransactionPostgres) GetByID(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	return r.getOne(ctx, "id", id)
}

func (r *TransactionPostgres) GetByTransactionID(ctx context.Context, transactionID string) (models.Transaction, error) {
	return r.getOne(ctx, "transaction_id", transactionID)
}

func (r *TransactionPostgres) getOne(ctx context.Context, column string, value interface{}) (models.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, transactionColumns, transactionsTable, column)

	var t models.Transaction
	err := r.db.GetContext(ctx, &t, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, apperr.New(apperr.NotFound, "transaction not found")
	}
	if err != nil {
		return models.Transaction{}, apperr.Wrap(err, apperr.DatabaseError, "failed to fetch transaction")
	}
	return t, nil
}

func (r *TransactionPostgres) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus, notes *string, at time.Time) (models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Transaction{}, apperr.Wrap(err, apperr.DatabaseError, "failed to begin update")
	}
	defer tx.Rollback() //nolint:errcheck

	var current models.Transaction
	err = tx.GetContext(ctx, &current,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, transactionColumns, transactionsTable), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, apperr.New(apperr.NotFound, "transaction not found")
	}
	if err != nil {
		return models.Transaction{}, apperr.Wrap(err, apperr.DatabaseError, "failed to fetch transaction")
	}
	if !current.Status.CanTransitionTo(status) {
		return current, apperr.New(apperr.InvalidTransition,
			"transaction %s cannot move from %s to %s", current.TransactionID, current.Status, status)
	}

	var updated models.Transaction
	err = tx.GetContext(ctx, &updated, fmt.Sprintf(`
		UPDATE %s SET status = $1, notes = COALESCE($2, notes), updated_at = $3
		WHERE id = $4
		RETURNING %s`, transactionsTable, transactionColumns),
		status, notes, at, id)
	if err != nil {
		return models.Transaction{}, apperr.Wrap(err, apperr.DatabaseError, "failed to update transaction")
	}
	if err := tx.Commit(); err != nil {
		return models.Transaction{}, apperr.Wrap(err, apperr.DatabaseError, "failed to commit update")
	}
	return updated, nil
}

func (r *TransactionPostgres) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	where, args := transactionWhere(filter)
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, transactionsTable, where, len(args)-1, len(args))

	txs := []models.Transaction{}
	if err := r.db.SelectContext(ctx, &txs, query, args...); err != nil {
		return nil, apperr.Wrap(err, apperr.DatabaseError, "failed to fetch transactions")
	}
	return txs, nil
}

func (r *TransactionPostgres) Count(ctx context.Context, filter models.TransactionFilter) (int, error) {
	where, args := transactionWhere(filter)
	var n int
	if err := r.db.GetContext(ctx, &n, fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, transactionsTable, where), args...); err != nil {
		return 0, apperr.Wrap(err, apperr.DatabaseError, "failed to count transactions")
	}
	return n, nil
}

func (r *TransactionPostgres) Stats(ctx context.Context, toCurrency string) (models.ConversionStats, error) {
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') AS pending_count,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed_count,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected_count,
			COALESCE(SUM(to_amount), 0) AS total_volume
		FROM %s WHERE upper(to_currency) = upper($1)`, transactionsTable)

	var stats models.ConversionStats
	if err := r.db.GetContext(ctx, &stats, query, toCurrency); err != nil {
		return models.ConversionStats{}, apperr.Wrap(err, apperr.DatabaseError, "failed to compute stats")
	}
	return stats, nil
}

func (r *TransactionPostgres) TransactionIDs(ctx context.Context, walletAddress string) (map[string]struct{}, error) {
	var ids []string
	query := fmt.Sprintf(`SELECT transaction_id FROM %s WHERE wallet_address = $1`, transactionsTable)
	if err := r.db.SelectContext(ctx, &ids, query, walletAddress); err != nil {
		return nil, apperr.Wrap(err, apperr.DatabaseError, "failed to fetch existing transactions")
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func transactionWhere(filter models.TransactionFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.WalletAddress != "" {
		args = append(args, filter.WalletAddress)
		conds = append(conds, fmt.Sprintf("wallet_address = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ToCurrency != "" {
		args = append(args, filter.ToCurrency)
		conds = append(conds, fmt.Sprintf("upper(to_currency) = upper($%d)", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
