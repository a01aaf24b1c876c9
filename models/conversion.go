package models

import (
	"github.com/shopspring/decimal"
)

// ConversionRequest lives only for the duration of one conversion attempt.
type ConversionRequest struct {
	FromAmount    string              `json:"from_amount"`
	FromCurrency  string              `json:"from_currency"`
	ToCurrency    string              `json:"to_currency"`
	WalletAddress string              `json:"-"`
	QuotedRate    decimal.NullDecimal `json:"quoted_rate"`
	RequestToken  string              `json:"request_token"`
}

type ConversionState string

const (
	StateIdle              ConversionState = "idle"
	StateValidating        ConversionState = "validating"
	StateAwaitingSignature ConversionState = "awaiting_signature"
	StateSubmitting        ConversionState = "submitting"
	StateConfirming        ConversionState = "confirming"
	StateRecording         ConversionState = "recording"
	StateSuccess           ConversionState = "success"
	StateFailed            ConversionState = "failed"
)

type Quote struct {
	Pair       CurrencyPair    `json:"pair"`
	FromAmount decimal.Decimal `json:"from_amount"`
	Rate       decimal.Decimal `json:"rate"`
	FeePercent decimal.Decimal `json:"fee_percent"`
	Gross      decimal.Decimal `json:"gross"`
	Fee        decimal.Decimal `json:"fee"`
	Net        decimal.Decimal `json:"net"`
}

type QuoteRequest struct {
	FromAmount   string `json:"from_amount" binding:"required"`
	FromCurrency string `json:"from_currency" binding:"required"`
	ToCurrency   string `json:"to_currency" binding:"required"`
}

type ConversionResult struct {
	Signature   string            `json:"signature"`
	Transaction *Transaction      `json:"transaction"`
	Quote       Quote             `json:"quote"`
	States      []ConversionState `json:"states"`
}
