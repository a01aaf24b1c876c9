package service

import (
	"context"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/pkg/errors"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
)

type accountChecker interface {
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
}

// buildTransfer returns the instructions moving units of tok from owner to
// recipient. Token transfers create the recipient's associated token account
// when it does not exist yet, paid for by owner.
func buildTransfer(ctx context.Context, chain accountChecker, tok models.Token, owner, recipient solana.PublicKey, units uint64) ([]solana.Instruction, error) {
	if tok.Native {
		return []solana.Instruction{
			system.NewTransferInstruction(units, owner, recipient).Build(),
		}, nil
	}

	mint := mintOf(tok)
	source, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, errors.Wrap(err, "derive source token account")
	}
	destination, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, errors.Wrap(err, "derive destination token account")
	}

	exists, err := chain.AccountExists(ctx, source)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ChainUnavailable, "failed to look up source token account")
	}
	if !exists {
		return nil, apperr.New(apperr.TokenAccountMissing, "wallet %s has no %s token account", owner, tok.Symbol)
	}

	var ixs []solana.Instruction
	exists, err = chain.AccountExists(ctx, destination)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ChainUnavailable, "failed to look up settlement token account")
	}
	if !exists {
		ixs = append(ixs, associatedtokenaccount.NewCreateInstruction(owner, recipient, mint).Build())
	}
	ixs = append(ixs, token.NewTransferCheckedInstruction(
		units, tok.Decimals, source, mint, destination, owner, []solana.PublicKey{},
	).Build())
	return ixs, nil
}
