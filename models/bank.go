package models

import "time"

// BankAccount is keyed by wallet address. Clearing nulls the fields instead of deleting the row.
type BankAccount struct {
	WalletAddress string     `db:"wallet_address" json:"wallet_address"`
	BankName      *string    `db:"bank_name" json:"bank_name"`
	BankCode      *string    `db:"bank_code" json:"bank_code"`
	AccountNumber *string    `db:"account_number" json:"account_number"`
	AccountName   *string    `db:"account_name" json:"account_name"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updated_at"`
}

// IsComplete reports whether payout details are on file.
func (b BankAccount) IsComplete() bool {
	return nonEmpty(b.BankName) && nonEmpty(b.AccountNumber) && nonEmpty(b.AccountName)
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

type BankAccountInput struct {
	BankName      string `json:"bank_name" binding:"required"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number" binding:"required"`
	AccountName   string `json:"account_name" binding:"required"`
}

type Bank struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type BankVerification struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
}
