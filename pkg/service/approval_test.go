package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
	"nairaramp_back/pkg/events"
	"nairaramp_back/pkg/repository"
)

func seedPending(t *testing.T, repo repository.Transaction, sig string, toCurrency string, created time.Time) models.Transaction {
	t.Helper()
	row, err := repo.Create(context.Background(), models.Transaction{
		ID:            uuid.New(),
		TransactionID: sig,
		WalletAddress: "wallet-1",
		FromAmount:    d("100"),
		FromCurrency:  "USDT",
		ToAmount:      decimal.NewNullDecimal(d("154845")),
		ToCurrency:    models.StringPtr(toCurrency),
		Status:        models.StatusPending,
		CreatedAt:     created,
	})
	require.NoError(t, err)
	return row
}

func TestApproveStampsUpdatedAtAndIsIdempotent(t *testing.T) {
	repo := repository.NewTransactionMemory()
	broker := events.NewBroker(4)
	feed, cancel := broker.Subscribe()
	defer cancel()
	svc := NewApprovalService(repo, broker, "NGN")
	ctx := context.Background()
	seedPending(t, repo, "sig-1", "NGN", time.Now())

	approved, err := svc.Approve(ctx, "sig-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, approved.Status)
	require.NotNil(t, approved.UpdatedAt)
	assert.Len(t, feed, 1)

	again, err := svc.Approve(ctx, "sig-1")
	require.NoError(t, err, "second approve is a no-op")
	assert.Equal(t, models.StatusCompleted, again.Status)
	assert.Equal(t, approved.UpdatedAt, again.UpdatedAt)
	assert.Len(t, feed, 1, "no-op publishes nothing")

	_, err = svc.Reject(ctx, "sig-1", "too late")
	assert.Equal(t, apperr.InvalidTransition, apperr.KindOf(err))
}

func TestRejectStoresReason(t *testing.T) {
	repo := repository.NewTransactionMemory()
	svc := NewApprovalService(repo, nil, "NGN")
	ctx := context.Background()
	seedPending(t, repo, "sig-2", "NGN", time.Now())

	rejected, err := svc.Reject(ctx, "sig-2", "account name mismatch")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.Notes)
	assert.Equal(t, "account name mismatch", *rejected.Notes)

	_, err = svc.Approve(ctx, "sig-2")
	assert.Equal(t, apperr.InvalidTransition, apperr.KindOf(err))

	_, err = svc.Approve(ctx, "missing")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestListConversionsAndStats(t *testing.T) {
	repo := repository.NewTransactionMemory()
	svc := NewApprovalService(repo, nil, "NGN")
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	seedPending(t, repo, "a", "NGN", base)
	seedPending(t, repo, "b", "NGN", base.Add(time.Minute))
	seedPending(t, repo, "c", "GHS", base.Add(2*time.Minute))
	_, err := svc.Approve(ctx, "a")
	require.NoError(t, err)

	rows, err := svc.ListConversions(ctx, models.TransactionFilter{Status: models.StatusPending})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0].TransactionID)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingCount)
	assert.Equal(t, 1, stats.CompletedCount)
	assert.True(t, stats.TotalVolume.Equal(d("309690")))
}
