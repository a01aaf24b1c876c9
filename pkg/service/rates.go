package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"nairaramp_back/models"
)

const usdPriceID = "usd"

type RateOracleConfig struct {
	BaseURL       string
	APIKey        string
	LocalCurrency string
	// Adjustment is subtracted from the USD/local rate before cross rates are derived.
	Adjustment decimal.Decimal
	Interval   time.Duration
	Tokens     []models.Token
}

// RateOracle polls CoinGecko and publishes token/local cross rates.
// The snapshot has a single writer (Poll) and is replaced wholesale.
type RateOracle struct {
	client     *resty.Client
	local      string
	adjustment decimal.Decimal
	interval   time.Duration
	tokens     []models.Token

	mu       sync.RWMutex
	snapshot models.RateSnapshot
}

func NewRateOracle(cfg RateOracleConfig) *RateOracle {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(15*time.Second).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("x-cg-demo-api-key", cfg.APIKey)
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &RateOracle{
		client:     client,
		local:      strings.ToUpper(cfg.LocalCurrency),
		adjustment: cfg.Adjustment,
		interval:   interval,
		tokens:     cfg.Tokens,
	}
}

func (o *RateOracle) Snapshot() models.RateSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshot
}

// Poll fetches prices and replaces the snapshot. On any failure the previous
// snapshot is kept and the error returned.
func (o *RateOracle) Poll(ctx context.Context) (models.RateSnapshot, error) {
	ids := []string{usdPriceID}
	for _, t := range o.tokens {
		ids = append(ids, t.PriceID)
	}
	localKey := strings.ToLower(o.local)

	resp, err := o.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           strings.Join(ids, ","),
			"vs_currencies": localKey + ",usd",
		}).
		SetResult(map[string]map[string]decimal.Decimal{}).
		Get("/simple/price")
	if err != nil {
		return o.keep(errors.Wrap(err, "fetch prices"))
	}
	if resp.IsError() {
		return o.keep(errors.Errorf("fetch prices: status %d: %s", resp.StatusCode(), resp.String()))
	}
	prices, ok := resp.Result().(*map[string]map[string]decimal.Decimal)
	if !ok || prices == nil {
		return o.keep(errors.New("fetch prices: unexpected response body"))
	}

	next, err := o.derive(*prices)
	if err != nil {
		return o.keep(err)
	}

	o.mu.Lock()
	prev := o.snapshot
	next.Changes = changes(prev, next)
	o.snapshot = next
	o.mu.Unlock()

	logrus.WithFields(logrus.Fields{"pairs": len(next.Rates), "usd_fiat": next.UsdFiat.String()}).Debug("rates refreshed")
	return next, nil
}

func (o *RateOracle) derive(prices map[string]map[string]decimal.Decimal) (models.RateSnapshot, error) {
	usdFiat := prices[usdPriceID][strings.ToLower(o.local)]
	if !usdFiat.IsPositive() {
		return models.RateSnapshot{}, errors.Errorf("price feed returned no usd/%s rate", strings.ToLower(o.local))
	}
	adjusted := usdFiat.Sub(o.adjustment)
	if !adjusted.IsPositive() {
		return models.RateSnapshot{}, errors.Errorf("adjustment %s leaves no positive usd/%s rate (%s)", o.adjustment, o.local, usdFiat)
	}

	snap := models.RateSnapshot{
		Rates:      map[models.CurrencyPair]decimal.Decimal{models.NewPair("USD", o.local): adjusted},
		UsdFiat:    adjusted,
		CapturedAt: nowUTC(),
	}
	for _, t := range o.tokens {
		usd := prices[t.PriceID]["usd"]
		if !usd.IsPositive() {
			logrus.WithField("token", t.Symbol).Warn("price feed returned no usd price, pair left unavailable")
			continue
		}
		snap.Rates[models.NewPair(t.Symbol, o.local)] = usd.Mul(adjusted)
	}
	return snap, nil
}

// changes reports the percent move of each pair against the previous snapshot.
func changes(prev, next models.RateSnapshot) map[models.CurrencyPair]decimal.Decimal {
	out := make(map[models.CurrencyPair]decimal.Decimal, len(next.Rates))
	for pair, rate := range next.Rates {
		old, ok := prev.Rates[pair]
		if !ok || !old.IsPositive() {
			out[pair] = decimal.Zero
			continue
		}
		out[pair] = rate.Sub(old).Mul(decimal.NewFromInt(100)).DivRound(old, 4)
	}
	return out
}

func (o *RateOracle) keep(err error) (models.RateSnapshot, error) {
	logrus.WithError(err).Warn("rate poll failed, keeping previous snapshot")
	return o.Snapshot(), err
}

// Run polls once immediately and then on every interval until ctx is done.
func (o *RateOracle) Run(ctx context.Context) {
	_, _ = o.Poll(ctx)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = o.Poll(ctx)
		}
	}
}
