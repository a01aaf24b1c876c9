package service

import (
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
)

// Tokens is the registry of convertible assets keyed by upper-case symbol.
type Tokens struct {
	bySymbol map[string]models.Token
	order    []string
}

func NewTokens(list []models.Token) (*Tokens, error) {
	t := &Tokens{bySymbol: make(map[string]models.Token, len(list))}
	for _, tok := range list {
		tok.Symbol = strings.ToUpper(tok.Symbol)
		if !tok.Native {
			if _, err := solana.PublicKeyFromBase58(tok.Mint); err != nil {
				return nil, errors.Wrapf(err, "token %s: invalid mint %q", tok.Symbol, tok.Mint)
			}
		}
		if _, dup := t.bySymbol[tok.Symbol]; dup {
			return nil, errors.Errorf("token %s configured twice", tok.Symbol)
		}
		t.bySymbol[tok.Symbol] = tok
		t.order = append(t.order, tok.Symbol)
	}
	return t, nil
}

func (t *Tokens) Lookup(symbol string) (models.Token, error) {
	tok, ok := t.bySymbol[strings.ToUpper(symbol)]
	if !ok {
		return models.Token{}, apperr.New(apperr.UnsupportedToken, "unsupported token %q", symbol)
	}
	return tok, nil
}

// All returns tokens in configuration order.
func (t *Tokens) All() []models.Token {
	out := make([]models.Token, 0, len(t.order))
	for _, s := range t.order {
		out = append(out, t.bySymbol[s])
	}
	return out
}

func mintOf(tok models.Token) solana.PublicKey {
	return solana.MustPublicKeyFromBase58(tok.Mint)
}
