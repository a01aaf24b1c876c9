package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
)

// TransactionMemory mirrors TransactionPostgres semantics: unique
// transaction_id, guarded status transitions, newest-first listing.
type TransactionMemory struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]models.Transaction
	ids  map[string]uuid.UUID
}

func NewTransactionMemory() *TransactionMemory {
	return &TransactionMemory{
		rows: make(map[uuid.UUID]models.Transaction),
		ids:  make(map[string]uuid.UUID),
	}
}

func (m *TransactionMemory) Create(_ context.Context, t models.Transaction) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ids[t.TransactionID]; ok {
		return models.Transaction{}, apperr.New(apperr.DuplicateTransactionID, "transaction %s already exists", t.TransactionID)
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m.rows[t.ID] = t
	m.ids[t.TransactionID] = t.ID
	return t, nil
}

func (m *TransactionMemory) GetByID(_ context.Context, id uuid.UUID) (models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.rows[id]
	if !ok {
		return models.Transaction{}, apperr.New(apperr.NotFound, "transaction not found")
	}
	return t, nil
}

func (m *TransactionMemory) GetByTransactionID(ctx context.Context, transactionID string) (models.Transaction, error) {
	m.mu.RLock()
	id, ok := m.ids[transactionID]
	m.mu.RUnlock()
	if !ok {
		return models.Transaction{}, apperr.New(apperr.NotFound, "transaction not found")
	}
	return m.GetByID(ctx, id)
}

func (m *TransactionMemory) UpdateStatus(_ context.Context, id uuid.UUID, status models.TransactionStatus, notes *string, at time.Time) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.rows[id]
	if !ok {
		return models.Transaction{}, apperr.New(apperr.NotFound, "transaction not found")
	}
	if !t.Status.CanTransitionTo(status) {
		return t, apperr.New(apperr.InvalidTransition,
			"transaction %s cannot move from %s to %s", t.TransactionID, t.Status, status)
	}
	t.Status = status
	if notes != nil {
		t.Notes = notes
	}
	t.UpdatedAt = &at
	m.rows[id] = t
	return t, nil
}

func (m *TransactionMemory) List(_ context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	matched := m.matching(filter)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if filter.Offset >= len(matched) {
		return []models.Transaction{}, nil
	}
	end := filter.Offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], nil
}

func (m *TransactionMemory) Count(_ context.Context, filter models.TransactionFilter) (int, error) {
	return len(m.matching(filter)), nil
}

func (m *TransactionMemory) Stats(_ context.Context, toCurrency string) (models.ConversionStats, error) {
	stats := models.ConversionStats{TotalVolume: decimal.Zero}
	for _, t := range m.matching(models.TransactionFilter{ToCurrency: toCurrency}) {
		switch t.Status {
		case models.StatusPending:
			stats.PendingCount++
		case models.StatusCompleted:
			stats.CompletedCount++
		case models.StatusRejected:
			stats.RejectedCount++
		}
		if t.ToAmount.Valid {
			stats.TotalVolume = stats.TotalVolume.Add(t.ToAmount.Decimal)
		}
	}
	return stats, nil
}

func (m *TransactionMemory) TransactionIDs(_ context.Context, walletAddress string) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	for _, t := range m.matching(models.TransactionFilter{WalletAddress: walletAddress}) {
		set[t.TransactionID] = struct{}{}
	}
	return set, nil
}

func (m *TransactionMemory) matching(filter models.TransactionFilter) []models.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Transaction, 0, len(m.rows))
	for _, t := range m.rows {
		if filter.WalletAddress != "" && t.WalletAddress != filter.WalletAddress {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.ToCurrency != "" && (t.ToCurrency == nil || !strings.EqualFold(*t.ToCurrency, filter.ToCurrency)) {
			continue
		}
		out = append(out, t)
	}
	return out
}

type BankAccountMemory struct {
	mu       sync.RWMutex
	accounts map[string]models.BankAccount
}

func NewBankAccountMemory() *BankAccountMemory {
	return &BankAccountMemory{accounts: make(map[string]models.BankAccount)}
}

func (m *BankAccountMemory) Get(_ context.Context, walletAddress string) (models.BankAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, ok := m.accounts[walletAddress]
	if !ok {
		return models.BankAccount{}, apperr.New(apperr.NotFound, "no bank account on file for %s", walletAddress)
	}
	return acc, nil
}

func (m *BankAccountMemory) Upsert(_ context.Context, acc models.BankAccount) (models.BankAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.accounts[acc.WalletAddress]; ok {
		acc.CreatedAt = existing.CreatedAt
	}
	m.accounts[acc.WalletAddress] = acc
	return acc, nil
}

func (m *BankAccountMemory) Clear(_ context.Context, walletAddress string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[walletAddress]
	if !ok {
		return apperr.New(apperr.NotFound, "no bank account on file for %s", walletAddress)
	}
	acc.BankName, acc.BankCode, acc.AccountNumber, acc.AccountName = nil, nil, nil, nil
	acc.UpdatedAt = &at
	m.accounts[walletAddress] = acc
	return nil
}

type WalletMemory struct {
	mu      sync.RWMutex
	nextID  int64
	wallets map[string]models.Wallet
}

func NewWalletMemory() *WalletMemory {
	return &WalletMemory{wallets: make(map[string]models.Wallet)}
}

func (m *WalletMemory) CreateWallet(_ context.Context, address, privKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.wallets[address]; ok {
		return 0, apperr.New(apperr.InvalidInput, "wallet already exists")
	}
	m.nextID++
	m.wallets[address] = models.Wallet{ID: m.nextID, Address: address, PrivateKey: privKey, CreatedAt: time.Now().UTC()}
	return m.nextID, nil
}

func (m *WalletMemory) GetWallet(_ context.Context, address string) (models.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.wallets[address]
	if !ok {
		return models.Wallet{}, apperr.New(apperr.NotFound, "wallet %s is not managed here", address)
	}
	return w, nil
}
