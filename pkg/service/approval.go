package service

import (
	"context"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
	"nairaramp_back/pkg/events"
	"nairaramp_back/pkg/repository"
)

// ApprovalService is the merchant side of the ledger: pending conversions are
// approved or rejected by a human.
type ApprovalService struct {
	repos  repository.Transaction
	broker *events.Broker
	local  string
}

func NewApprovalService(repos repository.Transaction, broker *events.Broker, localCurrency string) *ApprovalService {
	return &ApprovalService{repos: repos, broker: broker, local: localCurrency}
}

// Approve moves a pending row to completed. Approving an already completed
// row returns it unchanged; any other terminal state is an invalid transition.
func (s *ApprovalService) Approve(ctx context.Context, transactionID string) (models.Transaction, error) {
	return s.decide(ctx, transactionID, models.StatusCompleted, nil)
}

// Reject moves a pending row to rejected and stores reason in notes.
func (s *ApprovalService) Reject(ctx context.Context, transactionID, reason string) (models.Transaction, error) {
	var notes *string
	if reason != "" {
		notes = models.StringPtr(reason)
	}
	return s.decide(ctx, transactionID, models.StatusRejected, notes)
}

func (s *ApprovalService) decide(ctx context.Context, transactionID string, target models.TransactionStatus, notes *string) (models.Transaction, error) {
	current, err := s.repos.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	if current.Status == target {
		return current, nil
	}
	if current.Status.IsTerminal() {
		return models.Transaction{}, apperr.New(apperr.InvalidTransition,
			"transaction %s is already %s", transactionID, current.Status)
	}

	updated, err := s.repos.UpdateStatus(ctx, current.ID, target, notes, nowUTC())
	if err != nil {
		// Lost a race with another decision; report the winner's state.
		if apperr.Is(err, apperr.InvalidTransition) && updated.Status == target {
			return updated, nil
		}
		return models.Transaction{}, err
	}
	if s.broker != nil {
		s.broker.Publish(events.Event{Type: events.TransactionUpdated, Transaction: updated})
	}
	return updated, nil
}

// ListConversions lists rows paying out in the local currency.
func (s *ApprovalService) ListConversions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	filter.ToCurrency = s.local
	return s.repos.List(ctx, filter)
}

func (s *ApprovalService) Stats(ctx context.Context) (models.ConversionStats, error) {
	return s.repos.Stats(ctx, s.local)
}
