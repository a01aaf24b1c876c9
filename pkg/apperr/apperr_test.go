package apperr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOfThroughWraps(t *testing.T) {
	base := New(InsufficientBalance, "requested 10 USDC, available 0 USDC")
	wrapped := errors.Wrap(base, "initiate conversion")

	assert.Equal(t, InsufficientBalance, KindOf(wrapped))
	assert.True(t, Is(wrapped, InsufficientBalance))
	assert.False(t, Is(wrapped, NoWallet))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, Unknown))
}

func TestErrorMessageCarriesStageAndSignature(t *testing.T) {
	err := Wrap(errors.New(`{"InstructionError":[0,"Custom"]}`), TransferRejected, "transfer failed on chain").
		WithStage("confirm").
		WithSignature("5sig")

	assert.Equal(t, `confirm: transfer failed on chain: {"InstructionError":[0,"Custom"]} (signature 5sig)`, err.Error())
	assert.Equal(t, "5sig", SignatureOf(errors.Wrap(err, "outer")))
	assert.Equal(t, "", SignatureOf(errors.New("plain")))
}
