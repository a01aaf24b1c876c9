package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusRejected  TransactionStatus = "rejected"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

// Only pending rows may move, and only forward.
var statusTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending: {StatusCompleted, StatusRejected, StatusFailed, StatusCancelled},
}

func ParseStatus(s string) (TransactionStatus, bool) {
	switch st := TransactionStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusCompleted, StatusRejected, StatusFailed, StatusCancelled:
		return st, true
	}
	return "", false
}

func (s TransactionStatus) IsTerminal() bool {
	return s != StatusPending
}

func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Transaction struct {
	ID            uuid.UUID           `db:"id" json:"id"`
	TransactionID string              `db:"transaction_id" json:"transaction_id"` // on-chain signature or external reference
	WalletAddress string              `db:"wallet_address" json:"wallet_address"`
	FromAmount    decimal.Decimal     `db:"from_amount" json:"from_amount"`
	FromCurrency  string              `db:"from_currency" json:"from_currency"`
	ToAmount      decimal.NullDecimal `db:"to_amount" json:"to_amount"`
	ToCurrency    *string             `db:"to_currency" json:"to_currency"`
	BankName      *string             `db:"bank_name" json:"bank_name"`
	AccountNumber *string             `db:"account_number" json:"account_number"`
	AccountName   *string             `db:"account_name" json:"account_name"`
	ExchangeRate  decimal.NullDecimal `db:"exchange_rate" json:"exchange_rate"`
	Fee           *string             `db:"fee" json:"fee"`
	Status        TransactionStatus   `db:"status" json:"status"`
	Notes         *string             `db:"notes" json:"notes"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time          `db:"updated_at" json:"updated_at"`
}

// IsConversion reports whether the row pays out in the given fiat currency.
func (t Transaction) IsConversion(localCurrency string) bool {
	return t.ToCurrency != nil && strings.EqualFold(*t.ToCurrency, localCurrency)
}

type TransactionFilter struct {
	WalletAddress string
	Status        TransactionStatus
	ToCurrency    string
	Limit         int
	Offset        int
}

type CreateTransactionInput struct {
	TransactionID string              `json:"transaction_id"`
	WalletAddress string              `json:"wallet_address"`
	FromAmount    decimal.NullDecimal `json:"from_amount"`
	FromCurrency  string              `json:"from_currency"`
	ToAmount      decimal.NullDecimal `json:"to_amount"`
	ToCurrency    *string             `json:"to_currency"`
	BankName      *string             `json:"bank_name"`
	AccountNumber *string             `json:"account_number"`
	AccountName   *string             `json:"account_name"`
	ExchangeRate  decimal.NullDecimal `json:"exchange_rate"`
	Fee           *string             `json:"fee"`
	Status        string              `json:"status"`
	Notes         *string             `json:"notes"`
}

type UpdateStatusInput struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

type SyncInput struct {
	WalletAddress    string `json:"wallet_address"`
	// WalletAddressAlt accepts the camelCase key older clients send.
	WalletAddressAlt string `json:"walletAddress"`
	Limit            int    `json:"limit"`
}

func (in SyncInput) Wallet() string {
	if in.WalletAddress != "" {
		return in.WalletAddress
	}
	return in.WalletAddressAlt
}

type SyncResult struct {
	Message      string        `json:"message"`
	Synced       int           `json:"synced"`
	Total        int           `json:"total"`
	Transactions []Transaction `json:"transactions,omitempty"`
}

type ConversionStats struct {
	PendingCount   int             `db:"pending_count" json:"pending_count"`
	CompletedCount int             `db:"completed_count" json:"completed_count"`
	RejectedCount  int             `db:"rejected_count" json:"rejected_count"`
	TotalVolume    decimal.Decimal `db:"total_volume" json:"total_volume"`
}

func StringPtr(s string) *string {
	return &s
}
