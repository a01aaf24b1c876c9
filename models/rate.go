package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyPair is formatted as "FROM/TO", upper case.
type CurrencyPair string

func NewPair(from, to string) CurrencyPair {
	return CurrencyPair(strings.ToUpper(from) + "/" + strings.ToUpper(to))
}

// RateSnapshot is replaced wholesale on every successful poll.
type RateSnapshot struct {
	Rates      map[CurrencyPair]decimal.Decimal `json:"rates"`
	Changes    map[CurrencyPair]decimal.Decimal `json:"changes_pct,omitempty"`
	UsdFiat    decimal.Decimal                  `json:"usd_fiat"`
	CapturedAt time.Time                        `json:"captured_at"`
}

// Rate returns the cross rate for a pair; a missing or non-positive rate is reported as unavailable.
func (s RateSnapshot) Rate(pair CurrencyPair) (decimal.Decimal, bool) {
	r, ok := s.Rates[pair]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

func (s RateSnapshot) IsZero() bool {
	return s.CapturedAt.IsZero()
}
