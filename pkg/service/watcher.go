package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"nairaramp_back/models"
	"nairaramp_back/pkg/events"
	"nairaramp_back/pkg/notify"
	"nairaramp_back/pkg/repository"
)

// PendingWatcher notifies operators when pending conversions arrive. Create
// events are delivered immediately; the periodic count diff catches anything
// the feed missed. Only the net increase since the last poll is reported.
type PendingWatcher struct {
	repos    repository.Transaction
	notifier notify.Notifier
	broker   *events.Broker
	local    string
	interval time.Duration

	mu       sync.Mutex
	last     int
	baseline bool
}

func NewPendingWatcher(repos repository.Transaction, notifier notify.Notifier, broker *events.Broker, localCurrency string, interval time.Duration) *PendingWatcher {
	if interval <= 0 {
		interval = 120 * time.Second
	}
	return &PendingWatcher{
		repos:    repos,
		notifier: notifier,
		broker:   broker,
		local:    localCurrency,
		interval: interval,
	}
}

func (w *PendingWatcher) pendingFilter() models.TransactionFilter {
	return models.TransactionFilter{Status: models.StatusPending, ToCurrency: w.local}
}

// Poll counts pending conversions and notifies on a positive delta. The first
// poll only records the baseline. It returns the number of new rows reported.
func (w *PendingWatcher) Poll(ctx context.Context) (int, error) {
	count, err := w.repos.Count(ctx, w.pendingFilter())
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	if !w.baseline {
		w.baseline = true
		w.last = count
		w.mu.Unlock()
		logrus.WithField("pending", count).Info("approval watcher baseline set")
		return 0, nil
	}
	delta := count - w.last
	w.last = count
	w.mu.Unlock()

	if delta <= 0 {
		return 0, nil
	}

	var latest *models.Transaction
	filter := w.pendingFilter()
	filter.Limit = 1
	if rows, err := w.repos.List(ctx, filter); err == nil && len(rows) > 0 {
		latest = &rows[0]
	}
	w.send(ctx, delta, latest)
	return delta, nil
}

func (w *PendingWatcher) handle(ctx context.Context, evt events.Event) {
	if evt.Type != events.TransactionCreated || evt.Transaction.Status != models.StatusPending || !evt.Transaction.IsConversion(w.local) {
		return
	}
	w.mu.Lock()
	if w.baseline {
		w.last++
	}
	w.mu.Unlock()

	tx := evt.Transaction
	w.send(ctx, 1, &tx)
}

func (w *PendingWatcher) send(ctx context.Context, count int, latest *models.Transaction) {
	if err := w.notifier.NotifyPending(ctx, count, latest); err != nil {
		logrus.WithError(err).Warn("pending approval notification failed")
	}
}

func (w *PendingWatcher) Run(ctx context.Context) {
	var feed <-chan events.Event
	if w.broker != nil {
		ch, cancel := w.broker.Subscribe()
		defer cancel()
		feed = ch
	}

	if _, err := w.Poll(ctx); err != nil {
		logrus.WithError(err).Warn("approval poll failed")
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-feed:
			if !ok {
				feed = nil
				continue
			}
			w.handle(ctx, evt)
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil {
				logrus.WithError(err).Warn("approval poll failed")
			}
		}
	}
}
