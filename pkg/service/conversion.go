package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
	"nairaramp_back/pkg/cache"
	"nairaramp_back/pkg/calculator"
	"nairaramp_back/pkg/events"
	"nairaramp_back/pkg/repository"
	"nairaramp_back/pkg/solclient"
)

const (
	inFlightPrefix     = "conversion:inflight:"
	requestTokenPrefix = "conversion:request:"
)

// ConversionService validates a conversion request, moves the tokens to the
// settlement address and records the completed conversion.
type ConversionService struct {
	chain        Chain
	rates        Rates
	balances     Balances
	banks        repository.BankAccount
	transactions repository.Transaction
	wallets      *WalletService
	cache        cache.Cache
	broker       *events.Broker
	tokens       *Tokens
	settings     Settings
}

func NewConversionService(d Deps, wallets *WalletService) *ConversionService {
	return &ConversionService{
		chain:        d.Chain,
		rates:        d.Rates,
		balances:     d.Balances,
		banks:        d.Repos.BankAccount,
		transactions: d.Repos.Transaction,
		wallets:      wallets,
		cache:        d.Cache,
		broker:       d.Broker,
		tokens:       d.Tokens,
		settings:     d.Settings,
	}
}

// Quote prices a conversion against the current rate snapshot. The returned
// rate is what a client pins as quoted_rate when it submits.
func (s *ConversionService) Quote(req models.QuoteRequest) (models.Quote, error) {
	amount, err := calculator.ParseAmount(req.FromAmount)
	if err != nil {
		return models.Quote{}, err
	}
	tok, err := s.pair(req.FromCurrency, req.ToCurrency)
	if err != nil {
		return models.Quote{}, err
	}
	if _, err := baseUnits(tok, amount); err != nil {
		return models.Quote{}, err
	}
	pair := models.NewPair(tok.Symbol, s.settings.LocalCurrency)
	rate, ok := s.rates.Snapshot().Rate(pair)
	if !ok {
		return models.Quote{}, apperr.New(apperr.RateUnavailable, "no current rate for %s", pair)
	}
	return s.quote(pair, amount, rate)
}

// baseUnits converts amount into tok's smallest unit. Amounts finer than the
// token's decimals are rejected so the recorded amount is exactly what moves.
func baseUnits(tok models.Token, amount decimal.Decimal) (uint64, error) {
	units := tok.BaseUnits(amount)
	if !tok.FromBaseUnits(units).Equal(amount) {
		return 0, apperr.New(apperr.InvalidAmount, "%s supports at most %d decimal places, got %s", tok.Symbol, tok.Decimals, amount)
	}
	return units, nil
}

func (s *ConversionService) quote(pair models.CurrencyPair, amount, rate decimal.Decimal) (models.Quote, error) {
	res, err := calculator.Compute(amount, rate, s.settings.FeePercent)
	if err != nil {
		return models.Quote{}, err
	}
	return models.Quote{
		Pair:       pair,
		FromAmount: amount,
		Rate:       rate,
		FeePercent: s.settings.FeePercent,
		Gross:      res.Gross,
		Fee:        res.Fee,
		Net:        res.Net,
	}, nil
}

func (s *ConversionService) pair(from, to string) (models.Token, error) {
	tok, err := s.tokens.Lookup(from)
	if err != nil {
		return models.Token{}, err
	}
	if !strings.EqualFold(to, s.settings.LocalCurrency) {
		return models.Token{}, apperr.New(apperr.UnsupportedToken, "conversions pay out in %s only, got %q", s.settings.LocalCurrency, to)
	}
	return tok, nil
}

type conversionFlow struct {
	states []models.ConversionState
	log    *logrus.Entry
}

func (f *conversionFlow) enter(state models.ConversionState) {
	f.states = append(f.states, state)
	f.log.WithField("state", state).Debug("conversion state")
}

// InitiateConversion runs one conversion attempt. The returned result is never
// nil and carries the states passed through, also on failure.
func (s *ConversionService) InitiateConversion(ctx context.Context, req models.ConversionRequest) (*models.ConversionResult, error) {
	flow := &conversionFlow{
		states: []models.ConversionState{models.StateIdle},
		log: logrus.WithFields(logrus.Fields{
			"wallet":   req.WalletAddress,
			"currency": strings.ToUpper(req.FromCurrency),
			"amount":   req.FromAmount,
		}),
	}
	flow.enter(models.StateValidating)

	result, err := s.run(ctx, req, flow)
	if err != nil {
		flow.enter(models.StateFailed)
		entry := flow.log.WithError(err).WithField("kind", apperr.KindOf(err))
		if sig := apperr.SignatureOf(err); sig != "" {
			entry = entry.WithField("signature", sig)
		}
		if apperr.Is(err, apperr.PostTransferRecordingFailed) {
			entry.Error("conversion transferred but not recorded, reconcile manually")
		} else {
			entry.Warn("conversion failed")
		}
		return &models.ConversionResult{Signature: apperr.SignatureOf(err), States: flow.states}, err
	}
	flow.enter(models.StateSuccess)
	result.States = flow.states
	flow.log.WithField("signature", result.Signature).Info("conversion completed")
	return result, nil
}

func (s *ConversionService) run(ctx context.Context, req models.ConversionRequest, flow *conversionFlow) (*models.ConversionResult, error) {
	if req.WalletAddress == "" {
		return nil, apperr.New(apperr.NoWallet, "connect a wallet before converting")
	}
	signer, err := s.wallets.Signer(ctx, req.WalletAddress)
	if err != nil {
		return nil, err
	}

	amount, err := calculator.ParseAmount(req.FromAmount)
	if err != nil {
		return nil, err
	}
	tok, err := s.pair(req.FromCurrency, req.ToCurrency)
	if err != nil {
		return nil, err
	}
	units, err := baseUnits(tok, amount)
	if err != nil {
		return nil, err
	}

	lockKey := inFlightPrefix + req.WalletAddress
	acquired, err := s.cache.SetNX(ctx, lockKey, "1", s.settings.InFlightTTL)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Unknown, "failed to acquire conversion lock")
	}
	if !acquired {
		return nil, apperr.New(apperr.ConversionInProgress, "a conversion for this wallet is already in progress")
	}
	defer func() {
		if err := s.cache.Delete(context.WithoutCancel(ctx), lockKey); err != nil {
			flow.log.WithError(err).Warn("failed to release conversion lock")
		}
	}()

	available, err := s.balances.Balance(ctx, req.WalletAddress, tok.Symbol)
	if err != nil {
		return nil, err
	}
	if available.LessThan(amount) {
		return nil, apperr.New(apperr.InsufficientBalance,
			"insufficient %s balance: requested %s, available %s", tok.Symbol, amount, available)
	}

	bank, err := s.banks.Get(ctx, req.WalletAddress)
	if err != nil && !apperr.Is(err, apperr.NotFound) {
		return nil, err
	}
	if err != nil || !bank.IsComplete() {
		return nil, apperr.New(apperr.NoBankAccount, "add a bank account before converting")
	}

	pair := models.NewPair(tok.Symbol, s.settings.LocalCurrency)
	current, ok := s.rates.Snapshot().Rate(pair)
	if !ok {
		return nil, apperr.New(apperr.RateUnavailable, "no current rate for %s, try again shortly", pair)
	}
	rate := current
	if req.QuotedRate.Valid {
		drift := calculator.DriftPercent(req.QuotedRate.Decimal, current)
		if drift.GreaterThan(s.settings.DriftTolerancePct) {
			return nil, apperr.New(apperr.RateDrift,
				"rate moved from %s to %s (%s%%), request a new quote", req.QuotedRate.Decimal, current, drift.StringFixed(2))
		}
		rate = req.QuotedRate.Decimal
	}
	quote, err := s.quote(pair, amount, rate)
	if err != nil {
		return nil, err
	}

	tokenKey := ""
	if req.RequestToken != "" {
		tokenKey = requestTokenPrefix + req.RequestToken
		fresh, err := s.cache.SetNX(ctx, tokenKey, "pending", s.settings.RequestTokenTTL)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.Unknown, "failed to register request token")
		}
		if !fresh {
			return nil, apperr.New(apperr.DuplicateRequest, "request %s was already submitted", req.RequestToken)
		}
	}
	submitted := false
	defer func() {
		if tokenKey != "" && !submitted {
			_ = s.cache.Delete(context.WithoutCancel(ctx), tokenKey)
		}
	}()

	flow.enter(models.StateAwaitingSignature)
	ixs, err := buildTransfer(ctx, s.chain, tok, signer.PublicKey(), s.settings.SettlementAddress, units)
	if err != nil {
		return nil, withStage(err, "build")
	}
	blockhash, lastValid, err := s.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ChainUnavailable, "failed to fetch recent blockhash").WithStage("build")
	}
	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(signer.PublicKey()))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Unknown, "failed to assemble transaction").WithStage("build")
	}
	if err := signer.SignTransaction(tx); err != nil {
		return nil, apperr.Wrap(err, apperr.Unknown, "failed to sign transaction").WithStage("sign")
	}

	flow.enter(models.StateSubmitting)
	sig, err := s.chain.SendTransaction(ctx, tx)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.TransferRejected, "transfer was not accepted").WithStage("submit")
	}
	submitted = true
	signature := sig.String()
	flow.log = flow.log.WithField("signature", signature)
	if tokenKey != "" {
		if err := s.cache.Set(context.WithoutCancel(ctx), tokenKey, signature, s.settings.RequestTokenTTL); err != nil {
			flow.log.WithError(err).Warn("failed to store request token signature")
		}
	}

	flow.enter(models.StateConfirming)
	if err := s.confirm(ctx, sig, lastValid); err != nil {
		s.recordFailure(ctx, req, tok, quote, signature, err)
		return nil, err
	}

	flow.enter(models.StateRecording)
	row := models.Transaction{
		ID:            uuid.New(),
		TransactionID: signature,
		WalletAddress: req.WalletAddress,
		FromAmount:    amount,
		FromCurrency:  tok.Symbol,
		ToAmount:      decimal.NewNullDecimal(quote.Net),
		ToCurrency:    models.StringPtr(s.settings.LocalCurrency),
		BankName:      bank.BankName,
		AccountNumber: bank.AccountNumber,
		AccountName:   bank.AccountName,
		ExchangeRate:  decimal.NewNullDecimal(quote.Rate),
		Fee:           models.StringPtr(formatFee(quote, s.settings.LocalCurrency)),
		Status:        models.StatusCompleted,
		CreatedAt:     nowUTC(),
	}
	saved, err := s.transactions.Create(context.WithoutCancel(ctx), row)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.PostTransferRecordingFailed,
			"transfer confirmed but the conversion could not be recorded").WithStage("record").WithSignature(signature)
	}
	if s.broker != nil {
		s.broker.Publish(events.Event{Type: events.TransactionCreated, Transaction: saved})
	}

	return &models.ConversionResult{Signature: signature, Transaction: &saved, Quote: quote}, nil
}

// confirm waits for sig with the configured bound and classifies the outcome.
func (s *ConversionService) confirm(ctx context.Context, sig solana.Signature, lastValid uint64) error {
	// Once submitted the transfer may land regardless of the caller, so the
	// wait is bounded only by the confirm timeout.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.settings.ConfirmTimeout)
	defer cancel()

	err := s.chain.ConfirmTransaction(cctx, sig, lastValid)
	if err == nil {
		return nil
	}
	var txErr *solclient.TransactionError
	switch {
	case errors.As(err, &txErr):
		return apperr.Wrap(errors.New(txErr.Raw), apperr.TransferRejected, "transfer failed on chain").
			WithStage("confirm").WithSignature(sig.String())
	case errors.Is(err, solclient.ErrBlockhashExpired), errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(err, apperr.ConfirmationTimeout,
			fmt.Sprintf("transfer not confirmed within %s, check the signature before retrying", s.settings.ConfirmTimeout)).
			WithStage("confirm").WithSignature(sig.String())
	default:
		return apperr.Wrap(err, apperr.ConfirmationTimeout, "transfer status unknown, check the signature before retrying").
			WithStage("confirm").WithSignature(sig.String())
	}
}

// recordFailure writes a Failed audit row for transfers the chain rejected,
// when enabled. Timeouts are not recorded since the transfer may still land.
func (s *ConversionService) recordFailure(ctx context.Context, req models.ConversionRequest, tok models.Token, quote models.Quote, signature string, cause error) {
	if !s.settings.RecordFailedTransfers || !apperr.Is(cause, apperr.TransferRejected) {
		return
	}
	row := models.Transaction{
		ID:            uuid.New(),
		TransactionID: signature,
		WalletAddress: req.WalletAddress,
		FromAmount:    quote.FromAmount,
		FromCurrency:  tok.Symbol,
		ToCurrency:    models.StringPtr(s.settings.LocalCurrency),
		ExchangeRate:  decimal.NewNullDecimal(quote.Rate),
		Status:        models.StatusFailed,
		Notes:         models.StringPtr(cause.Error()),
		CreatedAt:     nowUTC(),
	}
	if _, err := s.transactions.Create(context.WithoutCancel(ctx), row); err != nil {
		logrus.WithError(err).WithField("signature", signature).Error("failed to record rejected transfer")
	}
}

var fiatSymbols = map[string]string{"NGN": "₦"}

// formatFee renders the fee as e.g. "0.1% (₦155.00)".
func formatFee(q models.Quote, currency string) string {
	sym, ok := fiatSymbols[currency]
	if !ok {
		sym = currency + " "
	}
	return fmt.Sprintf("%s%% (%s%s)", q.FeePercent.String(), sym, q.Fee.StringFixed(2))
}

func withStage(err error, stage string) error {
	var e *apperr.Error
	if errors.As(err, &e) && e.Stage == "" {
		e.Stage = stage
	}
	return err
}
