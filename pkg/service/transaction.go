package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
	"nairaramp_back/pkg/cache"
	"nairaramp_back/pkg/events"
	"nairaramp_back/pkg/repository"
)

const (
	defaultSyncLimit = 50
	maxSyncLimit     = 1000
	unknownCurrency  = "UNKNOWN"
	systemProgramID  = "11111111111111111111111111111111"
)

var swapProgramIDs = map[string]struct{}{
	"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4": {},
	"JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB": {},
	"JUP2jxvXaqu7NQY1GmNF4m1vodw12LVXYxbFL2uJvfo": {},
	"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM": {},
}

type TransactionService struct {
	repos  repository.Transaction
	chain  Chain
	cache  cache.Cache
	broker *events.Broker
}

// NewTransactionService builds the ledger service. c may be nil, in which case
// syncing does not check for a conversion in flight.
func NewTransactionService(repos repository.Transaction, chain Chain, c cache.Cache, broker *events.Broker) *TransactionService {
	return &TransactionService{repos: repos, chain: chain, cache: c, broker: broker}
}

func (s *TransactionService) publish(t events.Type, tx models.Transaction) {
	if s.broker != nil {
		s.broker.Publish(events.Event{Type: t, Transaction: tx})
	}
}

// CreateTransaction records an externally supplied transaction. Rows default to pending.
func (s *TransactionService) CreateTransaction(ctx context.Context, in models.CreateTransactionInput) (models.Transaction, error) {
	if in.TransactionID == "" || in.WalletAddress == "" || !in.FromAmount.Valid || !in.FromAmount.Decimal.IsPositive() || in.FromCurrency == "" {
		return models.Transaction{}, apperr.New(apperr.InvalidInput, "Missing required fields")
	}
	status := models.StatusPending
	if in.Status != "" {
		parsed, ok := models.ParseStatus(in.Status)
		if !ok {
			return models.Transaction{}, apperr.New(apperr.InvalidInput, "unknown status %q", in.Status)
		}
		status = parsed
	}

	created, err := s.repos.Create(ctx, models.Transaction{
		ID:            uuid.New(),
		TransactionID: in.TransactionID,
		WalletAddress: in.WalletAddress,
		FromAmount:    in.FromAmount.Decimal,
		FromCurrency:  strings.ToUpper(in.FromCurrency),
		ToAmount:      in.ToAmount,
		ToCurrency:    upperPtr(in.ToCurrency),
		BankName:      in.BankName,
		AccountNumber: in.AccountNumber,
		AccountName:   in.AccountName,
		ExchangeRate:  in.ExchangeRate,
		Fee:           in.Fee,
		Status:        status,
		Notes:         in.Notes,
		CreatedAt:     nowUTC(),
	})
	if err != nil {
		return models.Transaction{}, err
	}
	s.publish(events.TransactionCreated, created)
	return created, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, ref string) (models.Transaction, error) {
	if id, ok := parseRef(ref); ok {
		return s.repos.GetByID(ctx, id)
	}
	return s.repos.GetByTransactionID(ctx, ref)
}

func (s *TransactionService) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	if filter.WalletAddress == "" {
		return nil, apperr.New(apperr.InvalidInput, "wallet_address is required")
	}
	return s.repos.List(ctx, filter)
}

// UpdateTransactionStatus applies a forward transition; the store rejects any other edge.
func (s *TransactionService) UpdateTransactionStatus(ctx context.Context, ref string, in models.UpdateStatusInput) (models.Transaction, error) {
	if in.Status == "" {
		return models.Transaction{}, apperr.New(apperr.InvalidInput, "status is required")
	}
	status, ok := models.ParseStatus(in.Status)
	if !ok {
		return models.Transaction{}, apperr.New(apperr.InvalidInput, "unknown status %q", in.Status)
	}
	current, err := s.GetTransaction(ctx, ref)
	if err != nil {
		return models.Transaction{}, err
	}
	updated, err := s.repos.UpdateStatus(ctx, current.ID, status, in.Notes, nowUTC())
	if err != nil {
		return models.Transaction{}, err
	}
	s.publish(events.TransactionUpdated, updated)
	return updated, nil
}

// SyncTransactions imports on-chain history for a wallet, skipping signatures already stored.
func (s *TransactionService) SyncTransactions(ctx context.Context, in models.SyncInput) (models.SyncResult, error) {
	walletAddress := in.Wallet()
	if walletAddress == "" {
		return models.SyncResult{}, apperr.New(apperr.InvalidInput, "wallet_address is required")
	}
	owner, err := solana.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return models.SyncResult{}, apperr.Wrap(err, apperr.InvalidInput, "invalid wallet address")
	}
	if err := s.checkNotConverting(ctx, walletAddress); err != nil {
		return models.SyncResult{}, err
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultSyncLimit
	}
	if limit > maxSyncLimit {
		limit = maxSyncLimit
	}

	sigs, err := s.chain.RecentSignatures(ctx, owner, limit)
	if err != nil {
		return models.SyncResult{}, apperr.Wrap(err, apperr.ChainUnavailable, "failed to fetch wallet history")
	}
	known, err := s.repos.TransactionIDs(ctx, walletAddress)
	if err != nil {
		return models.SyncResult{}, err
	}

	log := logrus.WithField("wallet", walletAddress)
	synced := make([]models.Transaction, 0)
	for _, sig := range sigs {
		if _, ok := known[sig.Signature]; ok {
			continue
		}
		details, err := s.chain.TransactionDetails(ctx, sig.Signature)
		if err != nil {
			log.WithError(err).WithField("signature", sig.Signature).Warn("skipping transaction, details unavailable")
			continue
		}

		status := models.StatusCompleted
		if details.Failed || sig.Failed {
			status = models.StatusFailed
		}
		createdAt := nowUTC()
		if details.BlockTime != nil {
			createdAt = *details.BlockTime
		} else if sig.BlockTime != nil {
			createdAt = *sig.BlockTime
		}

		row, err := s.repos.Create(ctx, models.Transaction{
			ID:            uuid.New(),
			TransactionID: sig.Signature,
			WalletAddress: walletAddress,
			FromAmount:    decimal.Zero,
			FromCurrency:  unknownCurrency,
			Fee:           models.StringPtr(strconv.FormatUint(details.Fee, 10)),
			Status:        status,
			Notes:         models.StringPtr(fmt.Sprintf("Blockchain transaction (%s)", classify(details.ProgramIDs))),
			CreatedAt:     createdAt,
		})
		if apperr.Is(err, apperr.DuplicateTransactionID) {
			continue
		}
		if err != nil {
			return models.SyncResult{}, apperr.Wrap(err, apperr.DatabaseError, "Failed to sync transactions")
		}
		synced = append(synced, row)
		s.publish(events.TransactionCreated, row)
	}

	if len(synced) == 0 {
		return models.SyncResult{Message: "No new transactions to sync", Total: len(sigs)}, nil
	}
	log.WithField("synced", len(synced)).Info("wallet history synced")
	return models.SyncResult{
		Message:      "Transactions synced successfully",
		Synced:       len(synced),
		Total:        len(sigs),
		Transactions: synced,
	}, nil
}

// checkNotConverting refuses to sync while a conversion holds the wallet lock,
// so the conversion records its own signature with amounts and bank details
// instead of racing a placeholder row. A cache error does not block syncing.
func (s *TransactionService) checkNotConverting(ctx context.Context, walletAddress string) error {
	if s.cache == nil {
		return nil
	}
	_, held, err := s.cache.Get(ctx, inFlightPrefix+walletAddress)
	if err != nil {
		logrus.WithError(err).WithField("wallet", walletAddress).Warn("could not check conversion lock before sync")
		return nil
	}
	if held {
		return apperr.New(apperr.ConversionInProgress, "a conversion for this wallet is confirming, sync again shortly")
	}
	return nil
}

// classify labels a transaction by the first recognised program it invokes.
func classify(programIDs []string) string {
	for _, id := range programIDs {
		if _, ok := swapProgramIDs[id]; ok {
			return "swap"
		}
		if id == systemProgramID {
			return "transfer"
		}
	}
	return "other"
}

func upperPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return models.StringPtr(strings.ToUpper(*s))
}
