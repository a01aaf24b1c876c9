package models

import "time"

// Wallet is a managed (custodial) Solana keypair. PrivateKey is the base58 ed25519 secret.
type Wallet struct {
	ID         int64     `db:"id" json:"id"`
	Address    string    `db:"address" json:"address"`
	PrivateKey string    `db:"private_key" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type WalletResponse struct {
	WalletID int64  `json:"id"`
	Address  string `json:"address"`
}
