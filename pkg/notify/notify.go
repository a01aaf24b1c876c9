// Package notify tells operators that conversions are waiting for approval.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"nairaramp_back/models"
)

type Notifier interface {
	// NotifyPending reports count new pending conversions; latest may be nil when only the count is known.
	NotifyPending(ctx context.Context, count int, latest *models.Transaction) error
}

type Config struct {
	Provider     string
	From         string
	FromName     string
	To           []string
	DashboardURL string

	MailjetAPIKey    string
	MailjetSecretKey string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
}

// New builds the notifier named by cfg.Provider. Mail providers always log as well.
func New(cfg Config) (Notifier, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "log":
		return LogNotifier{}, nil
	case "mailjet":
		mj, err := NewMailjet(cfg)
		if err != nil {
			return nil, err
		}
		return Multi{LogNotifier{}, mj}, nil
	case "smtp":
		s, err := NewSMTP(cfg)
		if err != nil {
			return nil, err
		}
		return Multi{LogNotifier{}, s}, nil
	default:
		return nil, fmt.Errorf("unknown notifier provider %q", cfg.Provider)
	}
}

func Message(count int) string {
	return fmt.Sprintf("New conversion request! %d new transaction(s) pending approval.", count)
}

type LogNotifier struct{}

func (LogNotifier) NotifyPending(_ context.Context, count int, latest *models.Transaction) error {
	entry := logrus.WithField("pending_new", count)
	if latest != nil {
		entry = entry.WithFields(logrus.Fields{
			"transaction_id": latest.TransactionID,
			"wallet":         latest.WalletAddress,
			"from_amount":    latest.FromAmount.String(),
			"from_currency":  latest.FromCurrency,
		})
	}
	entry.Info(Message(count))
	return nil
}

// Multi notifies every channel and returns the first error.
type Multi []Notifier

func (m Multi) NotifyPending(ctx context.Context, count int, latest *models.Transaction) error {
	var first error
	for _, n := range m {
		if err := n.NotifyPending(ctx, count, latest); err != nil && first == nil {
			first = err
		}
	}
	return first
}
