package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"nairaramp_back/models"
)

type Transaction interface {
	Create(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Transaction, error)
	GetByTransactionID(ctx context.Context, transactionID string) (models.Transaction, error)
	// UpdateStatus applies a forward status transition; backward or sideways edges fail with InvalidTransition.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus, notes *string, at time.Time) (models.Transaction, error)
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	Count(ctx context.Context, filter models.TransactionFilter) (int, error)
	Stats(ctx context.Context, toCurrency string) (models.ConversionStats, error)
	TransactionIDs(ctx context.Context, walletAddress string) (map[string]struct{}, error)
}

type BankAccount interface {
	Get(ctx context.Context, walletAddress string) (models.BankAccount, error)
	Upsert(ctx context.Context, account models.BankAccount) (models.BankAccount, error)
	Clear(ctx context.Context, walletAddress string, at time.Time) error
}

type Wallet interface {
	CreateWallet(ctx context.Context, address, privKey string) (int64, error)
	GetWallet(ctx context.Context, address string) (models.Wallet, error)
}

type Repository struct {
	Transaction
	BankAccount
	Wallet

	// DB is nil for the in-memory repository.
	DB *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		Transaction: NewTransactionPostgres(db),
		BankAccount: NewBankAccountPostgres(db),
		Wallet:      NewWalletPostgres(db),
		DB:          db,
	}
}

// NewMemoryRepository backs every store with process memory, for local runs and tests.
func NewMemoryRepository() *Repository {
	return &Repository{
		Transaction: NewTransactionMemory(),
		BankAccount: NewBankAccountMemory(),
		Wallet:      NewWalletMemory(),
	}
}
