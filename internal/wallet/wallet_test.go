package wallet

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSolanaWalletRoundTrip(t *testing.T) {
	w, err := GenerateSolanaWallet()
	require.NoError(t, err)

	addr, err := AddressFromPrivKey(w.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, w.Address, addr)

	_, err = solana.PublicKeyFromBase58(w.Address)
	assert.NoError(t, err)
}

func TestParsePrivateKeyRejectsGarbage(t *testing.T) {
	_, err := ParsePrivateKey("0OIl")
	assert.Error(t, err)

	_, err = ParsePrivateKey("3yZe7d")
	assert.Error(t, err)
}

func TestKeypairSignerSignsFeePayer(t *testing.T) {
	w, err := GenerateSolanaWallet()
	require.NoError(t, err)
	signer, err := NewKeypairSigner(w.PrivateKey)
	require.NoError(t, err)

	to := solana.NewWallet().PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1000, signer.PublicKey(), to).Build()},
		solana.Hash{1, 2, 3},
		solana.TransactionPayer(signer.PublicKey()),
	)
	require.NoError(t, err)

	require.NoError(t, signer.SignTransaction(tx))
	require.Len(t, tx.Signatures, 1)
	assert.NotEqual(t, solana.Signature{}, tx.Signatures[0])
}
