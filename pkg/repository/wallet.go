package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
)

type WalletPostgres struct {
	db *sqlx.DB
}

func NewWalletPostgres(db *sqlx.DB) *WalletPostgres {
	return &WalletPostgres{db: db}
}

func (r *WalletPostgres) CreateWallet(ctx context.Context, address, privKey string) (int64, error) {
	var id int64
	query := fmt.Sprintf(`INSERT INTO %s (address, private_key) VALUES ($1, $2) RETURNING id`, walletsTable)
	err := r.db.QueryRowContext(ctx, query, address, privKey).Scan(&id)
	if isUniqueViolation(err) {
		return 0, apperr.Wrap(err, apperr.InvalidInput, "wallet already exists")
	}
	if err != nil {
		return 0, apperr.Wrap(err, apperr.DatabaseError, "failed to create wallet")
	}
	return id, nil
}

func (r *WalletPostgres) GetWallet(ctx context.Context, address string) (models.Wallet, error) {
	var w models.Wallet
	query := fmt.Sprintf(`SELECT id, address, private_key, created_at FROM %s WHERE address = $1`, walletsTable)
	err := r.db.GetContext(ctx, &w, query, address)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Wallet{}, apperr.New(apperr.NotFound, "wallet %s is not managed here", address)
	}
	if err != nil {
		return models.Wallet{}, apperr.Wrap(err, apperr.DatabaseError, "failed to fetch wallet")
	}
	return w, nil
}
