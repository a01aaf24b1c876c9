package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
	"nairaramp_back/pkg/cache"
	"nairaramp_back/pkg/repository"
)

type countingVerifier struct {
	calls int
	err   error
}

func (v *countingVerifier) Verify(_ context.Context, accountNumber, bankCode string) (models.BankVerification, error) {
	v.calls++
	if v.err != nil {
		return models.BankVerification{}, v.err
	}
	return models.BankVerification{AccountName: "ADA OBI", AccountNumber: accountNumber, BankCode: bankCode}, nil
}

func TestVerifyBankAccountCachesSuccess(t *testing.T) {
	verifier := &countingVerifier{}
	svc := NewBankService(repository.NewBankAccountMemory(), verifier, cache.NewMemoryCache(), time.Hour)
	ctx := context.Background()

	first, err := svc.VerifyBankAccount(ctx, "0123456789", "057")
	require.NoError(t, err)
	second, err := svc.VerifyBankAccount(ctx, "0123456789", "057")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "ADA OBI", second.AccountName)
	assert.Equal(t, 1, verifier.calls)

	_, err = svc.VerifyBankAccount(ctx, "0123456789", "058")
	require.NoError(t, err)
	assert.Equal(t, 2, verifier.calls)
}

func TestVerifyBankAccountDoesNotCacheFailure(t *testing.T) {
	verifier := &countingVerifier{err: apperr.New(apperr.BankVerificationFailed, "account not found")}
	svc := NewBankService(repository.NewBankAccountMemory(), verifier, cache.NewMemoryCache(), time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.VerifyBankAccount(ctx, "0123456789", "057")
		assert.Equal(t, apperr.BankVerificationFailed, apperr.KindOf(err))
	}
	assert.Equal(t, 2, verifier.calls)
}

func TestSaveAndClearBankAccount(t *testing.T) {
	svc := NewBankService(repository.NewBankAccountMemory(), nil, cache.NewMemoryCache(), 0)
	ctx := context.Background()

	_, err := svc.SaveBankAccount(ctx, "wallet-1", models.BankAccountInput{BankName: "GTBank", AccountNumber: "123", AccountName: "ADA"})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	saved, err := svc.SaveBankAccount(ctx, "wallet-1", models.BankAccountInput{
		BankName:      " GTBank ",
		BankCode:      "058",
		AccountNumber: "0123456789",
		AccountName:   "ADA OBI",
	})
	require.NoError(t, err)
	assert.Equal(t, "GTBank", *saved.BankName)
	assert.True(t, saved.IsComplete())

	require.NoError(t, svc.ClearBankAccount(ctx, "wallet-1"))
	got, err := svc.GetBankAccount(ctx, "wallet-1")
	require.NoError(t, err)
	assert.False(t, got.IsComplete())

	assert.NotEmpty(t, svc.Banks())
}

func TestVerifyWithoutVerifierFails(t *testing.T) {
	svc := NewBankService(repository.NewBankAccountMemory(), nil, cache.NewMemoryCache(), 0)
	_, err := svc.VerifyBankAccount(context.Background(), "0123456789", "057")
	assert.Equal(t, apperr.BankVerificationFailed, apperr.KindOf(err))
}

func TestSignerForUnknownWallet(t *testing.T) {
	repos := repository.NewMemoryRepository()
	wallets := NewWalletService(repos.Wallet)
	ctx := context.Background()

	_, err := wallets.Signer(ctx, "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	assert.Equal(t, apperr.NoWallet, apperr.KindOf(err))

	created, err := wallets.CreateManagedWallet(ctx)
	require.NoError(t, err)
	signer, err := wallets.Signer(ctx, created.Address)
	require.NoError(t, err)
	assert.Equal(t, created.Address, signer.PublicKey().String())
}
