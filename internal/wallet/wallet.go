package wallet

import (
	"crypto/ed25519"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Wallet holds a base58 encoded ed25519 secret key and its address.
type Wallet struct {
	PrivateKey string
	Address    string
}

// Signer signs transactions for a single fee payer / token owner.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
}

// GenerateSolanaWallet creates a fresh managed keypair.
func GenerateSolanaWallet() (*Wallet, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	pk := solana.PrivateKey(priv)
	return &Wallet{
		PrivateKey: base58.Encode(priv),
		Address:    pk.PublicKey().String(),
	}, nil
}

// ParsePrivateKey decodes a base58 64-byte secret key.
func ParsePrivateKey(encoded string) (solana.PrivateKey, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "decode private key")
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length: got %d bytes, want %d", len(raw), ed25519.PrivateKeySize)
	}
	return solana.PrivateKey(raw), nil
}

// AddressFromPrivKey returns the base58 address of an encoded secret key.
func AddressFromPrivKey(encoded string) (string, error) {
	pk, err := ParsePrivateKey(encoded)
	if err != nil {
		return "", err
	}
	return pk.PublicKey().String(), nil
}

type KeypairSigner struct {
	key solana.PrivateKey
}

func NewKeypairSigner(encoded string) (*KeypairSigner, error) {
	pk, err := ParsePrivateKey(encoded)
	if err != nil {
		return nil, err
	}
	return &KeypairSigner{key: pk}, nil
}

func (s *KeypairSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

func (s *KeypairSigner) SignTransaction(tx *solana.Transaction) error {
	owner := s.key.PublicKey()
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(owner) {
			return &s.key
		}
		return nil
	})
	return errors.Wrap(err, "sign transaction")
}
