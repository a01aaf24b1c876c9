package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
)

const bankAccountColumns = `wallet_address, bank_name, bank_code, account_number, account_name, created_at, updated_at`

type BankAccountPostgres struct {
	db *sqlx.DB
}

func NewBankAccountPostgres(db *sqlx.DB) *BankAccountPostgres {
	return &BankAccountPostgres{db: db}
}

func (r *BankAccountPostgres) Get(ctx context.Context, walletAddress string) (models.BankAccount, error) {
	var acc models.BankAccount
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE wallet_address = $1`, bankAccountColumns, bankAccountsTable)
	err := r.db.GetContext(ctx, &acc, query, walletAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BankAccount{}, apperr.New(apperr.NotFound, "no bank account on file for %s", walletAddress)
	}
	if err != nil {
		return models.BankAccount{}, apperr.Wrap(err, apperr.DatabaseError, "failed to fetch bank account")
	}
	return acc, nil
}

func (r *BankAccountPostgres) Upsert(ctx context.Context, acc models.BankAccount) (models.BankAccount, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (wallet_address, bank_name, bank_code, account_number, account_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (wallet_address) DO UPDATE SET
			bank_name = EXCLUDED.bank_name,
			bank_code = EXCLUDED.bank_code,
			account_number = EXCLUDED.account_number,
			account_name = EXCLUDED.account_name,
			updated_at = EXCLUDED.updated_at
		RETURNING %s`, bankAccountsTable, bankAccountColumns)

	var saved models.BankAccount
	err := r.db.GetContext(ctx, &saved, query,
		acc.WalletAddress, acc.BankName, acc.BankCode, acc.AccountNumber, acc.AccountName, acc.CreatedAt, acc.UpdatedAt)
	if err != nil {
		return models.BankAccount{}, apperr.Wrap(err, apperr.DatabaseError, "failed to save bank account")
	}
	return saved, nil
}

func (r *BankAccountPostgres) Clear(ctx context.Context, walletAddress string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET bank_name = NULL, bank_code = NULL, account_number = NULL, account_name = NULL, updated_at = $2
		WHERE wallet_address = $1`, bankAccountsTable)

	res, err := r.db.ExecContext(ctx, query, walletAddress, at)
	if err != nil {
		return apperr.Wrap(err, apperr.DatabaseError, "failed to clear bank account")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.New(apperr.NotFound, "no bank account on file for %s", walletAddress)
	}
	return nil
}
