package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
	"nairaramp_back/pkg/cache"
	"nairaramp_back/pkg/config"
	"nairaramp_back/pkg/events"
	"nairaramp_back/pkg/repository"
	"nairaramp_back/pkg/solclient"
)

const (
	usdtMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

type tokenKey struct {
	owner, mint solana.PublicKey
}

type fakeChain struct {
	mu sync.Mutex

	native   map[solana.PublicKey]uint64
	tokens   map[tokenKey]uint64
	accounts map[solana.PublicKey]bool

	sendErr      error
	confirmErr   error
	confirmBlock bool
	afterSend    func()

	sent         []*solana.Transaction
	sendCalls    int
	confirmCalls int

	signatures []solclient.SignatureInfo
	details    map[string]*solclient.TransactionDetails
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		native:   make(map[solana.PublicKey]uint64),
		tokens:   make(map[tokenKey]uint64),
		accounts: make(map[solana.PublicKey]bool),
		details:  make(map[string]*solclient.TransactionDetails),
	}
}

func (f *fakeChain) NativeBalance(_ context.Context, owner solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.native[owner], nil
}

func (f *fakeChain) TokenBalance(_ context.Context, owner, mint solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[tokenKey{owner, mint}], nil
}

func (f *fakeChain) AccountExists(_ context.Context, account solana.PublicKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[account], nil
}

func (f *fakeChain) LatestBlockhash(context.Context) (solana.Hash, uint64, error) {
	return solana.Hash{7, 7, 7}, 1000, nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	f.sent = append(f.sent, tx)
	if f.afterSend != nil {
		f.afterSend()
	}
	return tx.Signatures[0], nil
}

func (f *fakeChain) ConfirmTransaction(ctx context.Context, _ solana.Signature, _ uint64) error {
	f.mu.Lock()
	f.confirmCalls++
	block, err := f.confirmBlock, f.confirmErr
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (f *fakeChain) RecentSignatures(context.Context, solana.PublicKey, int) ([]solclient.SignatureInfo, error) {
	return f.signatures, nil
}

func (f *fakeChain) TransactionDetails(_ context.Context, signature string) (*solclient.TransactionDetails, error) {
	d, ok := f.details[signature]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "unknown signature")
	}
	return d, nil
}

func (f *fakeChain) setTokenBalance(owner solana.PublicKey, mint string, units uint64) {
	f.tokens[tokenKey{owner, solana.MustPublicKeyFromBase58(mint)}] = units
}

func (f *fakeChain) createTokenAccount(owner solana.PublicKey, mint string) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, solana.MustPublicKeyFromBase58(mint))
	if err != nil {
		panic(err)
	}
	f.accounts[ata] = true
}

type staticRates struct {
	snap models.RateSnapshot
}

func (s *staticRates) Snapshot() models.RateSnapshot { return s.snap }

type failingCreate struct {
	repository.Transaction
}

func (failingCreate) Create(context.Context, models.Transaction) (models.Transaction, error) {
	return models.Transaction{}, apperr.New(apperr.DatabaseError, "connection reset")
}

type harness struct {
	svc        *ConversionService
	chain      *fakeChain
	repos      *repository.Repository
	cache      *cache.MemoryCache
	rates      *staticRates
	broker     *events.Broker
	owner      solana.PublicKey
	address    string
	settlement solana.PublicKey
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	repos := repository.NewMemoryRepository()
	wallets := NewWalletService(repos.Wallet)
	created, err := wallets.CreateManagedWallet(ctx)
	require.NoError(t, err)

	_, err = repos.BankAccount.Upsert(ctx, models.BankAccount{
		WalletAddress: created.Address,
		BankName:      models.StringPtr("Zenith Bank"),
		AccountNumber: models.StringPtr("0123456789"),
		AccountName:   models.StringPtr("ADA OBI"),
	})
	require.NoError(t, err)

	tokens, err := NewTokens(config.DefaultTokens())
	require.NoError(t, err)

	chain := newFakeChain()
	rates := &staticRates{snap: models.RateSnapshot{
		Rates: map[models.CurrencyPair]decimal.Decimal{
			"USDT/NGN": d("1550"),
			"USDC/NGN": d("1550"),
			"SOL/NGN":  d("250000"),
		},
		CapturedAt: time.Now(),
	}}
	c := cache.NewMemoryCache()
	broker := events.NewBroker(8)
	settlement := solana.NewWallet().PublicKey()

	deps := Deps{
		Repos:    repos,
		Chain:    chain,
		Cache:    c,
		Broker:   broker,
		Rates:    rates,
		Balances: NewBalanceReader(chain, tokens, time.Minute),
		Tokens:   tokens,
		Settings: Settings{
			SettlementAddress: settlement,
			LocalCurrency:     "NGN",
			FeePercent:        d("0.1"),
			DriftTolerancePct: d("1"),
			ConfirmTimeout:    2 * time.Second,
			RequestTokenTTL:   time.Hour,
			InFlightTTL:       time.Minute,
		},
	}
	return &harness{
		svc:        NewConversionService(deps, wallets),
		chain:      chain,
		repos:      repos,
		cache:      c,
		rates:      rates,
		broker:     broker,
		owner:      solana.MustPublicKeyFromBase58(created.Address),
		address:    created.Address,
		settlement: settlement,
	}
}

// fundUSDT gives the managed wallet a USDT account holding amount.
func (h *harness) fundUSDT(amount string) {
	h.chain.createTokenAccount(h.owner, usdtMint)
	h.chain.setTokenBalance(h.owner, usdtMint, d(amount).Shift(6).BigInt().Uint64())
}

func (h *harness) rowCount(t *testing.T) int {
	t.Helper()
	n, err := h.repos.Transaction.Count(context.Background(), models.TransactionFilter{})
	require.NoError(t, err)
	return n
}
