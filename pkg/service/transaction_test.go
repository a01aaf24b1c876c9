package service

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
	"nairaramp_back/pkg/cache"
	"nairaramp_back/pkg/events"
	"nairaramp_back/pkg/repository"
	"nairaramp_back/pkg/solclient"
)

func TestCreateTransactionValidatesAndDefaults(t *testing.T) {
	repo := repository.NewTransactionMemory()
	broker := events.NewBroker(4)
	feed, cancel := broker.Subscribe()
	defer cancel()
	svc := NewTransactionService(repo, newFakeChain(), nil, broker)
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, models.CreateTransactionInput{TransactionID: "x", WalletAddress: "w"})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Missing required fields")

	for _, amount := range []string{"0", "-5"} {
		_, err = svc.CreateTransaction(ctx, models.CreateTransactionInput{
			TransactionID: "bad-" + amount,
			WalletAddress: "wallet-1",
			FromAmount:    decimal.NewNullDecimal(d(amount)),
			FromCurrency:  "USDC",
		})
		assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err), "from_amount %s", amount)
	}
	assert.Len(t, feed, 0)

	created, err := svc.CreateTransaction(ctx, models.CreateTransactionInput{
		TransactionID: "ext-1",
		WalletAddress: "wallet-1",
		FromAmount:    decimal.NewNullDecimal(d("25")),
		FromCurrency:  "usdc",
		ToCurrency:    models.StringPtr("ngn"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, "USDC", created.FromCurrency)
	assert.Equal(t, "NGN", *created.ToCurrency)
	assert.Len(t, feed, 1)

	_, err = svc.CreateTransaction(ctx, models.CreateTransactionInput{
		TransactionID: "ext-1",
		WalletAddress: "wallet-1",
		FromAmount:    decimal.NewNullDecimal(d("1")),
		FromCurrency:  "USDC",
	})
	assert.Equal(t, apperr.DuplicateTransactionID, apperr.KindOf(err))

	_, err = svc.CreateTransaction(ctx, models.CreateTransactionInput{
		TransactionID: "ext-2",
		WalletAddress: "wallet-1",
		FromAmount:    decimal.NewNullDecimal(d("1")),
		FromCurrency:  "USDC",
		Status:        "bogus",
	})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestUpdateTransactionStatusByEitherReference(t *testing.T) {
	repo := repository.NewTransactionMemory()
	svc := NewTransactionService(repo, newFakeChain(), nil, nil)
	ctx := context.Background()

	byUUID := seedPending(t, repo, "sig-uuid", "NGN", time.Now())
	seedPending(t, repo, "sig-ref", "NGN", time.Now())

	got, err := svc.GetTransaction(ctx, byUUID.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "sig-uuid", got.TransactionID)

	updated, err := svc.UpdateTransactionStatus(ctx, byUUID.ID.String(), models.UpdateStatusInput{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.NotNil(t, updated.UpdatedAt)

	updated, err = svc.UpdateTransactionStatus(ctx, "sig-ref", models.UpdateStatusInput{Status: "cancelled", Notes: models.StringPtr("user cancelled")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)

	_, err = svc.UpdateTransactionStatus(ctx, "sig-ref", models.UpdateStatusInput{Status: "pending"})
	assert.Equal(t, apperr.InvalidTransition, apperr.KindOf(err))

	_, err = svc.UpdateTransactionStatus(ctx, "sig-ref", models.UpdateStatusInput{})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	_, err = svc.UpdateTransactionStatus(ctx, "nope", models.UpdateStatusInput{Status: "completed"})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestListTransactionsRequiresWallet(t *testing.T) {
	svc := NewTransactionService(repository.NewTransactionMemory(), newFakeChain(), nil, nil)
	_, err := svc.ListTransactions(context.Background(), models.TransactionFilter{})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestSyncTransactionsImportsNewSignatures(t *testing.T) {
	repo := repository.NewTransactionMemory()
	chain := newFakeChain()
	svc := NewTransactionService(repo, chain, nil, nil)
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey().String()
	blockTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.Create(ctx, models.Transaction{
		TransactionID: "known",
		WalletAddress: owner,
		FromAmount:    d("1"),
		FromCurrency:  "SOL",
		Status:        models.StatusCompleted,
		CreatedAt:     blockTime,
	})
	require.NoError(t, err)

	chain.signatures = []solclient.SignatureInfo{
		{Signature: "known"},
		{Signature: "swap-sig"},
		{Signature: "transfer-sig", Failed: true},
		{Signature: "other-sig"},
		{Signature: "missing-details"},
	}
	chain.details["swap-sig"] = &solclient.TransactionDetails{
		Signature:  "swap-sig",
		Fee:        5000,
		BlockTime:  &blockTime,
		ProgramIDs: []string{"ComputeBudget111111111111111111111111111111", "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4", systemProgramID},
	}
	chain.details["transfer-sig"] = &solclient.TransactionDetails{
		Signature:  "transfer-sig",
		Fee:        5000,
		ProgramIDs: []string{systemProgramID},
	}
	chain.details["other-sig"] = &solclient.TransactionDetails{
		Signature:  "other-sig",
		Fee:        10000,
		ProgramIDs: []string{"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"},
	}

	res, err := svc.SyncTransactions(ctx, models.SyncInput{WalletAddressAlt: owner})
	require.NoError(t, err)
	assert.Equal(t, "Transactions synced successfully", res.Message)
	assert.Equal(t, 3, res.Synced)
	assert.Equal(t, 5, res.Total)

	swap, err := repo.GetByTransactionID(ctx, "swap-sig")
	require.NoError(t, err)
	assert.Equal(t, "Blockchain transaction (swap)", *swap.Notes)
	assert.Equal(t, "5000", *swap.Fee)
	assert.Equal(t, models.StatusCompleted, swap.Status)
	assert.True(t, swap.CreatedAt.Equal(blockTime))
	assert.True(t, swap.FromAmount.IsZero())

	transfer, err := repo.GetByTransactionID(ctx, "transfer-sig")
	require.NoError(t, err)
	assert.Equal(t, "Blockchain transaction (transfer)", *transfer.Notes)
	assert.Equal(t, models.StatusFailed, transfer.Status)

	other, err := repo.GetByTransactionID(ctx, "other-sig")
	require.NoError(t, err)
	assert.Equal(t, "Blockchain transaction (other)", *other.Notes)

	_, err = repo.GetByTransactionID(ctx, "missing-details")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	again, err := svc.SyncTransactions(ctx, models.SyncInput{WalletAddress: owner})
	require.NoError(t, err)
	assert.Equal(t, "No new transactions to sync", again.Message)
	assert.Equal(t, 0, again.Synced)
}

func TestSyncTransactionsWaitsForConversionInFlight(t *testing.T) {
	repo := repository.NewTransactionMemory()
	chain := newFakeChain()
	store := cache.NewMemoryCache()
	svc := NewTransactionService(repo, chain, store, nil)
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey().String()

	chain.signatures = []solclient.SignatureInfo{{Signature: "confirming-sig"}}
	chain.details["confirming-sig"] = &solclient.TransactionDetails{Signature: "confirming-sig", ProgramIDs: []string{systemProgramID}}

	ok, err := store.SetNX(ctx, inFlightPrefix+owner, "1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.SyncTransactions(ctx, models.SyncInput{WalletAddress: owner})
	assert.Equal(t, apperr.ConversionInProgress, apperr.KindOf(err))
	_, err = repo.GetByTransactionID(ctx, "confirming-sig")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err), "no placeholder row while the conversion confirms")

	require.NoError(t, store.Delete(ctx, inFlightPrefix+owner))
	res, err := svc.SyncTransactions(ctx, models.SyncInput{WalletAddress: owner})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
}

func TestSyncTransactionsRejectsBadWallet(t *testing.T) {
	svc := NewTransactionService(repository.NewTransactionMemory(), newFakeChain(), nil, nil)
	_, err := svc.SyncTransactions(context.Background(), models.SyncInput{})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	_, err = svc.SyncTransactions(context.Background(), models.SyncInput{WalletAddress: "not-base58-0OIl"})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "transfer", classify([]string{systemProgramID, "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"}))
	assert.Equal(t, "swap", classify([]string{"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"}))
	assert.Equal(t, "other", classify(nil))
}
