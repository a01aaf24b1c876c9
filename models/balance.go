package models

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceSnapshot holds native and token balances of one wallet keyed by symbol.
type BalanceSnapshot struct {
	Owner      string                     `json:"owner"`
	PerToken   map[string]decimal.Decimal `json:"balances"`
	CapturedAt time.Time                  `json:"captured_at"`
}

func (b BalanceSnapshot) Of(symbol string) decimal.Decimal {
	if v, ok := b.PerToken[symbol]; ok {
		return v
	}
	return decimal.Zero
}

type Token struct {
	Symbol   string `mapstructure:"symbol" json:"symbol"`
	Mint     string `mapstructure:"mint" json:"mint,omitempty"`
	Decimals uint8  `mapstructure:"decimals" json:"decimals"`
	Native   bool   `mapstructure:"native" json:"native"`
	PriceID  string `mapstructure:"price_id" json:"-"`
}

// BaseUnits converts a display amount into the token's smallest unit, truncating dust.
func (t Token) BaseUnits(amount decimal.Decimal) uint64 {
	return amount.Shift(int32(t.Decimals)).Truncate(0).BigInt().Uint64()
}

func (t Token) FromBaseUnits(units uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(t.Decimals))
}
