package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
	"nairaramp_back/pkg/cache"
	"nairaramp_back/pkg/nuban"
	"nairaramp_back/pkg/repository"
)

const verificationPrefix = "bank:verify:"

type BankService struct {
	repos    repository.BankAccount
	verifier BankVerifier
	cache    cache.Cache
	ttl      time.Duration
}

func NewBankService(repos repository.BankAccount, verifier BankVerifier, c cache.Cache, ttl time.Duration) *BankService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &BankService{repos: repos, verifier: verifier, cache: c, ttl: ttl}
}

func (s *BankService) GetBankAccount(ctx context.Context, walletAddress string) (models.BankAccount, error) {
	return s.repos.Get(ctx, walletAddress)
}

func (s *BankService) SaveBankAccount(ctx context.Context, walletAddress string, in models.BankAccountInput) (models.BankAccount, error) {
	if len(strings.TrimSpace(in.AccountNumber)) != 10 {
		return models.BankAccount{}, apperr.New(apperr.InvalidInput, "account number must be 10 digits")
	}
	now := nowUTC()
	acc := models.BankAccount{
		WalletAddress: walletAddress,
		BankName:      models.StringPtr(strings.TrimSpace(in.BankName)),
		AccountNumber: models.StringPtr(strings.TrimSpace(in.AccountNumber)),
		AccountName:   models.StringPtr(strings.TrimSpace(in.AccountName)),
		CreatedAt:     now,
		UpdatedAt:     &now,
	}
	if in.BankCode != "" {
		acc.BankCode = models.StringPtr(in.BankCode)
	}
	return s.repos.Upsert(ctx, acc)
}

func (s *BankService) ClearBankAccount(ctx context.Context, walletAddress string) error {
	return s.repos.Clear(ctx, walletAddress, nowUTC())
}

func (s *BankService) Banks() []models.Bank {
	return nuban.Banks()
}

// VerifyBankAccount resolves the account holder name, caching successful lookups.
func (s *BankService) VerifyBankAccount(ctx context.Context, accountNumber, bankCode string) (models.BankVerification, error) {
	key := verificationPrefix + bankCode + ":" + accountNumber
	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var cached models.BankVerification
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
	}
	if s.verifier == nil {
		return models.BankVerification{}, apperr.New(apperr.BankVerificationFailed, "bank verification is not configured")
	}

	res, err := s.verifier.Verify(ctx, accountNumber, bankCode)
	if err != nil {
		return models.BankVerification{}, err
	}
	if raw, err := json.Marshal(res); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
			logrus.WithError(err).Warn("failed to cache bank verification")
		}
	}
	return res, nil
}
