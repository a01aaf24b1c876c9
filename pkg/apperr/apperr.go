package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind string

const (
	Unknown                     Kind = "Unknown"
	NoWallet                    Kind = "NoWallet"
	InvalidAmount               Kind = "InvalidAmount"
	InsufficientBalance         Kind = "InsufficientBalance"
	NoBankAccount               Kind = "NoBankAccount"
	UnsupportedToken            Kind = "UnsupportedToken"
	TokenAccountMissing         Kind = "TokenAccountMissing"
	TransferRejected            Kind = "TransferRejected"
	ConfirmationTimeout         Kind = "ConfirmationTimeout"
	DuplicateTransactionID      Kind = "DuplicateTransactionId"
	NotFound                    Kind = "NotFound"
	DatabaseError               Kind = "DatabaseError"
	RateUnavailable             Kind = "RateUnavailable"
	RateDrift                   Kind = "RateDrift"
	PostTransferRecordingFailed Kind = "PostTransferRecordingFailed"
	ConversionInProgress        Kind = "ConversionInProgress"
	DuplicateRequest            Kind = "DuplicateRequest"
	InvalidTransition           Kind = "InvalidTransition"
	InvalidInput                Kind = "InvalidInput"
	BankVerificationFailed      Kind = "BankVerificationFailed"
	ChainUnavailable            Kind = "ChainUnavailable"
)

// Error is the typed failure surfaced to callers. Stage names the conversion
// step that failed and Signature is set once a transfer reached the chain.
type Error struct {
	Kind      Kind
	Stage     string
	Message   string
	Signature string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Signature != "" {
		msg = msg + " (signature " + e.Signature + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Cause() error { return e.Err }

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

func (e *Error) WithSignature(sig string) *Error {
	e.Signature = sig
	return e
}

// KindOf walks the wrap chain and returns the first typed kind found.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// SignatureOf returns the on-chain signature carried by err, if any.
func SignatureOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Signature
	}
	return ""
}
