package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"nairaramp_back/internal/wallet"
	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
	"nairaramp_back/pkg/repository"
)

type WalletService struct {
	repos repository.Wallet
}

func NewWalletService(repos repository.Wallet) *WalletService {
	return &WalletService{repos: repos}
}

// CreateManagedWallet generates a keypair and stores it; only the address leaves the service.
func (s *WalletService) CreateManagedWallet(ctx context.Context) (models.WalletResponse, error) {
	w, err := wallet.GenerateSolanaWallet()
	if err != nil {
		return models.WalletResponse{}, apperr.Wrap(err, apperr.Unknown, "failed to generate wallet")
	}
	id, err := s.repos.CreateWallet(ctx, w.Address, w.PrivateKey)
	if err != nil {
		return models.WalletResponse{}, err
	}
	logrus.WithField("wallet", w.Address).Info("managed wallet created")
	return models.WalletResponse{WalletID: id, Address: w.Address}, nil
}

// Signer returns the signer for a managed wallet. An unknown address means no wallet is connected.
func (s *WalletService) Signer(ctx context.Context, address string) (wallet.Signer, error) {
	stored, err := s.repos.GetWallet(ctx, address)
	if apperr.Is(err, apperr.NotFound) {
		return nil, apperr.New(apperr.NoWallet, "wallet %s is not connected", address)
	}
	if err != nil {
		return nil, err
	}
	signer, err := wallet.NewKeypairSigner(stored.PrivateKey)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Unknown, "stored key for wallet is unreadable")
	}
	if signer.PublicKey().String() != stored.Address {
		return nil, apperr.New(apperr.Unknown, "stored key does not match wallet %s", address)
	}
	return signer, nil
}
