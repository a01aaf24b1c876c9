// Package solclient wraps the Solana JSON-RPC API with the calls the
// conversion flow needs: balances, account lookups, submission,
// confirmation polling and signature history.
package solclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrBlockhashExpired = errors.New("blockhash expired before the transaction was confirmed")

// TransactionError is a non-null err reported by the cluster for a landed transaction.
type TransactionError struct {
	Signature string
	Raw       string
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed on chain: %s", e.Signature, e.Raw)
}

func newTransactionError(sig solana.Signature, chainErr interface{}) *TransactionError {
	raw, err := json.Marshal(chainErr)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", chainErr))
	}
	return &TransactionError{Signature: sig.String(), Raw: string(raw)}
}

type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime *time.Time
	Failed    bool
}

type TransactionDetails struct {
	Signature  string
	Fee        uint64
	Failed     bool
	BlockTime  *time.Time
	ProgramIDs []string
}

type Config struct {
	Endpoint     string
	Commitment   string
	PollInterval time.Duration
}

type Client struct {
	rpc          *rpc.Client
	commitment   rpc.CommitmentType
	pollInterval time.Duration
}

func New(cfg Config) *Client {
	commitment := rpc.CommitmentType(cfg.Commitment)
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &Client{
		rpc:          rpc.New(cfg.Endpoint),
		commitment:   commitment,
		pollInterval: poll,
	}
}

// NativeBalance returns the lamport balance; unknown accounts report zero.
func (c *Client) NativeBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, owner, c.commitment)
	if err != nil {
		return 0, errors.Wrapf(err, "get balance of %s", owner)
	}
	return out.Value, nil
}

// TokenBalance returns the raw amount held in owner's associated token account
// for mint. A missing account is reported as zero, not as an error.
func (c *Client) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, errors.Wrap(err, "derive associated token address")
	}
	exists, err := c.AccountExists(ctx, ata)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	out, err := c.rpc.GetTokenAccountBalance(ctx, ata, c.commitment)
	if err != nil {
		return 0, errors.Wrapf(err, "get token balance of %s", ata)
	}
	if out == nil || out.Value == nil {
		return 0, nil
	}
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse token amount %q", out.Value.Amount)
	}
	return amount, nil
}

func (c *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	_, err := c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "get account info of %s", account)
	}
	return true, nil
}

func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, 0, errors.Wrap(err, "get latest blockhash")
	}
	return out.Value.Blockhash, out.Value.LastValidBlockHeight, nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "send transaction")
	}
	return sig, nil
}

// ConfirmTransaction polls the signature status until it reaches the client
// commitment. It returns a *TransactionError when the cluster reports a
// failure, ErrBlockhashExpired once lastValidBlockHeight has passed, and the
// context error when ctx ends first.
func (c *Client) ConfirmTransaction(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		out, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logrus.WithError(err).WithField("signature", sig.String()).Warn("signature status poll failed")
		} else if out != nil && len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return newTransactionError(sig, status.Err)
			}
			if c.reached(status.ConfirmationStatus) {
				return nil
			}
		}

		if lastValidBlockHeight > 0 {
			height, err := c.rpc.GetBlockHeight(ctx, c.commitment)
			if err == nil && height > lastValidBlockHeight {
				return ErrBlockhashExpired
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) reached(status rpc.ConfirmationStatusType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return c.commitment != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return c.commitment == rpc.CommitmentProcessed
	}
	return false
}

func (c *Client) RecentSignatures(ctx context.Context, owner solana.PublicKey, limit int) ([]SignatureInfo, error) {
	out, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, owner, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: c.commitment,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get signatures for %s", owner)
	}

	infos := make([]SignatureInfo, 0, len(out))
	for _, s := range out {
		info := SignatureInfo{
			Signature: s.Signature.String(),
			Slot:      s.Slot,
			Failed:    s.Err != nil,
		}
		if s.BlockTime != nil {
			bt := time.Unix(int64(*s.BlockTime), 0).UTC()
			info.BlockTime = &bt
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (c *Client) TransactionDetails(ctx context.Context, signature string) (*TransactionDetails, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, errors.Wrapf(err, "parse signature %s", signature)
	}
	maxVersion := uint64(0)
	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     c.commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get transaction %s", signature)
	}
	if out == nil {
		return nil, rpc.ErrNotFound
	}

	details := &TransactionDetails{Signature: signature}
	if out.Meta != nil {
		details.Fee = out.Meta.Fee
		details.Failed = out.Meta.Err != nil
	}
	if out.BlockTime != nil {
		bt := time.Unix(int64(*out.BlockTime), 0).UTC()
		details.BlockTime = &bt
	}
	if out.Transaction != nil {
		parsed, err := out.Transaction.GetTransaction()
		if err == nil && parsed != nil {
			keys := parsed.Message.AccountKeys
			for _, ix := range parsed.Message.Instructions {
				if int(ix.ProgramIDIndex) < len(keys) {
					details.ProgramIDs = append(details.ProgramIDs, keys[ix.ProgramIDIndex].String())
				}
			}
		}
	}
	return details, nil
}
