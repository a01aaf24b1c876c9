package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/mailjet/mailjet-apiv3-go/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"nairaramp_back/models"
)

func pendingTx() *models.Transaction {
	return &models.Transaction{
		TransactionID: "5sig",
		FromAmount:    decimal.NewFromInt(100),
		FromCurrency:  "USDT",
		ToAmount:      decimal.NewNullDecimal(decimal.NewFromInt(154845)),
		ToCurrency:    models.StringPtr("NGN"),
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "New conversion request! 3 new transaction(s) pending approval.", Message(3))
}

func TestNewSelectsProvider(t *testing.T) {
	n, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, LogNotifier{}, n)

	_, err = New(Config{Provider: "mailjet"})
	assert.Error(t, err)

	n, err = New(Config{Provider: "smtp", SMTPHost: "smtp.example.com", From: "ops@example.com", To: []string{"admin@example.com"}})
	require.NoError(t, err)
	assert.IsType(t, Multi{}, n)

	_, err = New(Config{Provider: "pigeon"})
	assert.Error(t, err)
}

func TestMailjetNotifierBuildsMessage(t *testing.T) {
	var got *mailjet.MessagesV31
	n := &MailjetNotifier{
		send:         func(m *mailjet.MessagesV31) error { got = m; return nil },
		from:         "ops@example.com",
		to:           []string{"a@example.com", "b@example.com"},
		dashboardURL: "https://example.com/admin",
	}

	require.NoError(t, n.NotifyPending(context.Background(), 2, pendingTx()))
	require.NotNil(t, got)
	require.Len(t, got.Info, 1)
	msg := got.Info[0]
	assert.Equal(t, subject, msg.Subject)
	assert.Len(t, *msg.To, 2)
	assert.Contains(t, msg.HTMLPart, "5sig")
	assert.Contains(t, msg.HTMLPart, "154845.00 NGN")
	assert.Equal(t, Message(2), msg.TextPart)
}

func TestSMTPNotifierSends(t *testing.T) {
	var (
		to   []string
		body bytes.Buffer
	)
	n, err := NewSMTP(Config{SMTPHost: "smtp.example.com", From: "ops@example.com", To: []string{"admin@example.com"}})
	require.NoError(t, err)
	n.sender = gomail.SendFunc(func(_ string, rcpt []string, msg io.WriterTo) error {
		to = rcpt
		_, err := msg.WriteTo(&body)
		return err
	})

	require.NoError(t, n.NotifyPending(context.Background(), 1, nil))
	assert.Equal(t, []string{"admin@example.com"}, to)
	assert.Contains(t, body.String(), "pending approval")
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) NotifyPending(context.Context, int, *models.Transaction) error {
	f.calls++
	return errors.New("down")
}

func TestMultiNotifiesAll(t *testing.T) {
	a, b := &failingNotifier{}, &failingNotifier{}
	err := Multi{a, b}.NotifyPending(context.Background(), 1, nil)
	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}
