package service

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
)

const defaultMaxTracked = 1000

// BalanceReader reads wallet balances from the chain. Snapshots are a display
// aid refreshed on a timer; Balance always goes to the chain.
//
// Only wallets that asked for a snapshot recently are polled. A wallet idle for
// longer than idleAfter is dropped, and at most maxTracked wallets are kept.
type BalanceReader struct {
	chain      Chain
	tokens     *Tokens
	interval   time.Duration
	idleAfter  time.Duration
	maxTracked int
	now        func() time.Time

	mu        sync.RWMutex
	snapshots map[string]models.BalanceSnapshot
	tracked   map[string]time.Time // owner -> last requested
}

func NewBalanceReader(chain Chain, tokens *Tokens, interval time.Duration) *BalanceReader {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &BalanceReader{
		chain:      chain,
		tokens:     tokens,
		interval:   interval,
		idleAfter:  20 * interval,
		maxTracked: defaultMaxTracked,
		now:        nowUTC,
		snapshots:  make(map[string]models.BalanceSnapshot),
		tracked:    make(map[string]time.Time),
	}
}

// Balance returns the live balance of symbol held by owner. An absent token
// account reads as zero.
func (r *BalanceReader) Balance(ctx context.Context, owner, symbol string) (decimal.Decimal, error) {
	pub, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return decimal.Zero, apperr.Wrap(err, apperr.InvalidInput, "invalid wallet address")
	}
	tok, err := r.tokens.Lookup(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return r.read(ctx, pub, tok)
}

func (r *BalanceReader) read(ctx context.Context, owner solana.PublicKey, tok models.Token) (decimal.Decimal, error) {
	var (
		units uint64
		err   error
	)
	if tok.Native {
		units, err = r.chain.NativeBalance(ctx, owner)
	} else {
		units, err = r.chain.TokenBalance(ctx, owner, mintOf(tok))
	}
	if err != nil {
		return decimal.Zero, apperr.Wrap(err, apperr.ChainUnavailable, "failed to read "+tok.Symbol+" balance")
	}
	return tok.FromBaseUnits(units), nil
}

// Refresh re-reads every configured token for owner and stores the snapshot.
func (r *BalanceReader) Refresh(ctx context.Context, owner string) (models.BalanceSnapshot, error) {
	snap, err := r.load(ctx, owner)
	if err != nil {
		return models.BalanceSnapshot{}, err
	}

	r.mu.Lock()
	r.track(owner)
	r.snapshots[owner] = snap
	r.mu.Unlock()
	return snap, nil
}

func (r *BalanceReader) load(ctx context.Context, owner string) (models.BalanceSnapshot, error) {
	pub, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return models.BalanceSnapshot{}, apperr.Wrap(err, apperr.InvalidInput, "invalid wallet address")
	}
	snap := models.BalanceSnapshot{Owner: owner, PerToken: make(map[string]decimal.Decimal)}
	for _, tok := range r.tokens.All() {
		amount, err := r.read(ctx, pub, tok)
		if err != nil {
			return models.BalanceSnapshot{}, err
		}
		snap.PerToken[tok.Symbol] = amount
	}
	snap.CapturedAt = nowUTC()
	return snap, nil
}

// track marks owner as requested now, evicting the least recently requested
// wallet when the set is full. Callers hold mu.
func (r *BalanceReader) track(owner string) {
	if _, ok := r.tracked[owner]; !ok && len(r.tracked) >= r.maxTracked {
		var (
			oldest string
			seen   time.Time
		)
		for o, t := range r.tracked {
			if oldest == "" || t.Before(seen) {
				oldest, seen = o, t
			}
		}
		r.forget(oldest)
	}
	r.tracked[owner] = r.now()
}

func (r *BalanceReader) forget(owner string) {
	delete(r.tracked, owner)
	delete(r.snapshots, owner)
}

// BalanceSnapshot returns the cached snapshot for owner, reading the chain
// when none exists yet or refresh is set.
func (r *BalanceReader) BalanceSnapshot(ctx context.Context, owner string, refresh bool) (models.BalanceSnapshot, error) {
	if !refresh {
		r.mu.Lock()
		snap, ok := r.snapshots[owner]
		if ok {
			r.track(owner)
		}
		r.mu.Unlock()
		if ok {
			return snap, nil
		}
	}
	return r.Refresh(ctx, owner)
}

func (r *BalanceReader) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshTracked(ctx)
		}
	}
}

func (r *BalanceReader) refreshTracked(ctx context.Context) {
	cutoff := r.now().Add(-r.idleAfter)

	r.mu.Lock()
	owners := make([]string, 0, len(r.tracked))
	for owner, seen := range r.tracked {
		if seen.Before(cutoff) {
			r.forget(owner)
			continue
		}
		owners = append(owners, owner)
	}
	r.mu.Unlock()

	for _, owner := range owners {
		snap, err := r.load(ctx, owner)
		if err != nil {
			logrus.WithError(err).WithField("wallet", owner).Warn("balance refresh failed")
			continue
		}
		r.mu.Lock()
		if _, ok := r.tracked[owner]; ok {
			r.snapshots[owner] = snap
		}
		r.mu.Unlock()
	}
}

// Tracked reports how many wallets the poller currently refreshes.
func (r *BalanceReader) Tracked() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tracked)
}
