// Package calculator computes fiat payouts for crypto conversions in exact decimal arithmetic.
package calculator

import (
	"github.com/shopspring/decimal"

	"nairaramp_back/pkg/apperr"
)

var hundred = decimal.NewFromInt(100)

type Result struct {
	Gross decimal.Decimal `json:"gross"`
	Fee   decimal.Decimal `json:"fee"`
	Net   decimal.Decimal `json:"net"`
}

// Compute returns gross = amount*rate, fee = gross*feePct/100 and net = gross-fee.
// A zero rate yields a zero result; callers treat that as rate unavailable.
func Compute(amount, rate, feePct decimal.Decimal) (Result, error) {
	if !amount.IsPositive() {
		return Result{}, apperr.New(apperr.InvalidAmount, "amount must be positive, got %s", amount)
	}
	if rate.IsNegative() {
		return Result{}, apperr.New(apperr.RateUnavailable, "rate must not be negative, got %s", rate)
	}
	if feePct.IsNegative() || feePct.GreaterThan(hundred) {
		return Result{}, apperr.New(apperr.InvalidInput, "fee percent must be within [0, 100], got %s", feePct)
	}

	gross := amount.Mul(rate)
	fee := gross.Mul(feePct).Shift(-2)
	return Result{
		Gross: gross,
		Fee:   fee,
		Net:   gross.Sub(fee),
	}, nil
}

// ParseAmount parses user input into a positive decimal.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperr.New(apperr.InvalidAmount, "please enter a valid amount, got %q", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, apperr.New(apperr.InvalidAmount, "amount must be greater than zero, got %s", d)
	}
	return d, nil
}

// DriftPercent is the absolute relative difference between two rates, in percent.
func DriftPercent(quoted, current decimal.Decimal) decimal.Decimal {
	if current.IsZero() {
		return hundred
	}
	return quoted.Sub(current).Abs().Mul(hundred).DivRound(current, 8)
}
