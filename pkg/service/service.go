package service

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"nairaramp_back/internal/wallet"
	"nairaramp_back/models"
	"nairaramp_back/pkg/cache"
	"nairaramp_back/pkg/events"
	"nairaramp_back/pkg/repository"
	"nairaramp_back/pkg/solclient"
)

// Chain is the subset of the Solana RPC client the services depend on.
type Chain interface {
	NativeBalance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error)
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, uint64, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	ConfirmTransaction(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error
	RecentSignatures(ctx context.Context, owner solana.PublicKey, limit int) ([]solclient.SignatureInfo, error)
	TransactionDetails(ctx context.Context, signature string) (*solclient.TransactionDetails, error)
}

// BankVerifier resolves an account number to the holder name.
type BankVerifier interface {
	Verify(ctx context.Context, accountNumber, bankCode string) (models.BankVerification, error)
}

type Rates interface {
	Snapshot() models.RateSnapshot
}

type Balances interface {
	Balance(ctx context.Context, owner, symbol string) (decimal.Decimal, error)
	BalanceSnapshot(ctx context.Context, owner string, refresh bool) (models.BalanceSnapshot, error)
}

type Conversion interface {
	Quote(req models.QuoteRequest) (models.Quote, error)
	InitiateConversion(ctx context.Context, req models.ConversionRequest) (*models.ConversionResult, error)
}

type Transaction interface {
	CreateTransaction(ctx context.Context, in models.CreateTransactionInput) (models.Transaction, error)
	GetTransaction(ctx context.Context, ref string) (models.Transaction, error)
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, ref string, in models.UpdateStatusInput) (models.Transaction, error)
	SyncTransactions(ctx context.Context, in models.SyncInput) (models.SyncResult, error)
}

type Bank interface {
	GetBankAccount(ctx context.Context, walletAddress string) (models.BankAccount, error)
	SaveBankAccount(ctx context.Context, walletAddress string, in models.BankAccountInput) (models.BankAccount, error)
	ClearBankAccount(ctx context.Context, walletAddress string) error
	Banks() []models.Bank
	VerifyBankAccount(ctx context.Context, accountNumber, bankCode string) (models.BankVerification, error)
}

type Approval interface {
	Approve(ctx context.Context, transactionID string) (models.Transaction, error)
	Reject(ctx context.Context, transactionID, reason string) (models.Transaction, error)
	ListConversions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	Stats(ctx context.Context) (models.ConversionStats, error)
}

type Wallet interface {
	CreateManagedWallet(ctx context.Context) (models.WalletResponse, error)
	Signer(ctx context.Context, address string) (wallet.Signer, error)
}

type Service struct {
	Rates
	Balances
	Conversion
	Transaction
	Bank
	Approval
	Wallet

	Events *events.Broker
}

type Deps struct {
	Repos    *repository.Repository
	Chain    Chain
	Cache    cache.Cache
	Broker   *events.Broker
	Rates    Rates
	Balances Balances
	Verifier BankVerifier
	Tokens   *Tokens
	Settings Settings
}

// Settings are the process-wide conversion parameters, read-only at runtime.
type Settings struct {
	SettlementAddress     solana.PublicKey
	LocalCurrency         string
	FeePercent            decimal.Decimal
	DriftTolerancePct     decimal.Decimal
	ConfirmTimeout        time.Duration
	RequestTokenTTL       time.Duration
	InFlightTTL           time.Duration
	RecordFailedTransfers bool
	VerificationCacheTTL  time.Duration
}

func NewService(d Deps) *Service {
	wallets := NewWalletService(d.Repos.Wallet)
	banks := NewBankService(d.Repos.BankAccount, d.Verifier, d.Cache, d.Settings.VerificationCacheTTL)
	return &Service{
		Rates:       d.Rates,
		Balances:    d.Balances,
		Conversion:  NewConversionService(d, wallets),
		Transaction: NewTransactionService(d.Repos.Transaction, d.Chain, d.Cache, d.Broker),
		Bank:        banks,
		Approval:    NewApprovalService(d.Repos.Transaction, d.Broker, d.Settings.LocalCurrency),
		Wallet:      wallets,
		Events:      d.Broker,
	}
}

var nowUTC = func() time.Time { return time.Now().UTC() }

// parseRef accepts either a row UUID or an on-chain transaction id.
func parseRef(ref string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ref)
	return id, err == nil
}
