package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"parking-ticket-system/internal/services/bank"
	"parking-ticket-system/internal/status"
	"parking-ticket-system/internal/store"
	"parking-ticket-system/models"
	"parking-ticket-system/monitoring"
)

const (
	rollbackAttempts = 3
	rollbackBackoff  = 100 * time.Millisecond
)

// Auditor keeps the settlement history of a ticket.
type Auditor interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

// Notifier tells a ticket owner how a settlement ended.
type Notifier interface {
	NotifySettlement(ctx context.Context, ownerID string, result *models.SettlementResult) error
}

// AttemptLimiter bounds how often one user may try to settle.
type AttemptLimiter interface {
	Allow(ctx context.Context, userID string) bool
}

// SettlementService moves tickets through the payment states:
//
//	pending -> processing -> paid
//	pending -> processing -> pending (rollback on any capture or commit failure)
//
// The begin step is a conditional write on payment_status, so concurrent
// attempts on one ticket cannot both get past it.
type SettlementService struct {
	store    store.TicketStore
	gateway  bank.Gateway
	auditor  Auditor
	notifier Notifier
	limiter  AttemptLimiter
	monitor  *monitoring.Monitor
	now      func() time.Time
}

type SettlementOption func(*SettlementService)

func WithAuditor(a Auditor) SettlementOption {
	return func(s *SettlementService) { s.auditor = a }
}

func WithNotifier(n Notifier) SettlementOption {
	return func(s *SettlementService) { s.notifier = n }
}

func WithAttemptLimiter(l AttemptLimiter) SettlementOption {
	return func(s *SettlementService) { s.limiter = l }
}

func WithMonitor(m *monitoring.Monitor) SettlementOption {
	return func(s *SettlementService) { s.monitor = m }
}

func WithClock(now func() time.Time) SettlementOption {
	return func(s *SettlementService) { s.now = now }
}

func NewSettlementService(ticketStore store.TicketStore, gateway bank.Gateway, opts ...SettlementOption) *SettlementService {
	s := &SettlementService{
		store:   ticketStore,
		gateway: gateway,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settle pays ticketID with card on behalf of actor.
//
// Rejections before any mutation: *status.ValidationError for bad card
// details, status.ErrRateLimited, status.ErrTicketNotFound (also for tickets
// actor does not own), *status.InvalidStateError when the ticket is not
// pending, *status.StoreError.
//
// Once the ticket is processing the call always runs to commit or rollback,
// regardless of ctx. A failed capture or commit returns a failed result
// holding the restored pending ticket together with *status.SettlementFailure.
func (s *SettlementService) Settle(ctx context.Context, actor models.Identity, ticketID string, card models.CardDetails) (*models.SettlementResult, error) {
	card = normalizeCard(card)
	if err := validateCard(&card); err != nil {
		s.monitor.TrackSettlement(monitoring.OutcomeRejected)
		return nil, err
	}

	if s.limiter != nil && !s.limiter.Allow(ctx, actor.ID) {
		s.monitor.TrackSettlement(monitoring.OutcomeRateLimited)
		return nil, status.ErrRateLimited
	}

	ticket, err := s.store.Get(ctx, ticketID)
	if err != nil {
		s.monitor.TrackSettlement(lookupOutcome(err))
		return nil, err
	}
	if !actor.IsAdmin && ticket.OwnerID != actor.ID {
		s.monitor.TrackSettlement(monitoring.OutcomeRejected)
		return nil, fmt.Errorf("%w: %s", status.ErrTicketNotFound, ticketID)
	}

	fingerprint := CardFingerprint(card.Number)

	begun, err := s.begin(ctx, ticketID)
	if err != nil {
		var stateErr *status.InvalidStateError
		if errors.As(err, &stateErr) {
			s.monitor.TrackSettlement(monitoring.OutcomeInvalidState)
			s.audit(ctx, models.AuditEntry{
				TicketID: ticketID, ActorID: actor.ID, Step: "rejected",
				Status: stateErr.Current, Reason: err.Error(), CardFingerprint: fingerprint,
			})
			return nil, err
		}
		s.monitor.TrackSettlement(monitoring.OutcomeStoreError)
		return nil, err
	}

	started := s.now()
	slog.Info("Settlement begun", "ticket_id", ticketID, "actor_id", actor.ID)

	// No cancellation past this point: the ticket must leave processing.
	work := context.WithoutCancel(ctx)
	s.audit(work, models.AuditEntry{
		TicketID: ticketID, ActorID: actor.ID, Step: "begin",
		Status: models.StatusProcessing, CardFingerprint: fingerprint,
	})

	receipt, cause := s.capture(work, begun, card)
	if cause == nil {
		paid, commitErr := s.commit(work, begun)
		if commitErr == nil {
			result := &models.SettlementResult{
				TicketID: ticketID,
				Success:  true,
				Status:   models.StatusPaid,
				Ticket:   paid,
				Receipt:  receipt,
			}
			s.finish(work, actor, paid, result, started, fingerprint)
			return result, nil
		}
		cause = fmt.Errorf("commit: %w", commitErr)
	}

	failure := &status.SettlementFailure{TicketID: ticketID, Reason: cause.Error(), Cause: cause}
	slog.Error("Settlement failed, rolling back", "ticket_id", ticketID, "error", cause)

	restored, rbErr := s.rollback(work, ticketID)
	if rbErr != nil {
		// The commit may have landed even though it reported an error.
		var stateErr *status.InvalidStateError
		if errors.As(rbErr, &stateErr) && stateErr.Current == models.StatusPaid {
			if paid, err := s.store.Get(work, ticketID); err == nil {
				result := &models.SettlementResult{
					TicketID: ticketID, Success: true, Status: models.StatusPaid, Ticket: paid, Receipt: receipt,
				}
				s.finish(work, actor, paid, result, started, fingerprint)
				return result, nil
			}
		}

		slog.Error("Settlement rollback failed", "ticket_id", ticketID, "error", rbErr)
		s.monitor.TrackRollback(false)
		s.monitor.TrackSettlement(monitoring.OutcomeStoreError)
		return nil, errors.Join(failure, rbErr)
	}
	s.monitor.TrackRollback(true)

	result := &models.SettlementResult{
		TicketID: ticketID,
		Success:  false,
		Status:   models.StatusFailed,
		Reason:   failure.Reason,
		Ticket:   restored,
	}
	s.finish(work, actor, restored, result, started, fingerprint)
	return result, failure
}

func lookupOutcome(err error) string {
	if errors.Is(err, status.ErrTicketNotFound) {
		return monitoring.OutcomeRejected
	}
	return monitoring.OutcomeStoreError
}

func (s *SettlementService) begin(ctx context.Context, ticketID string) (*models.Ticket, error) {
	now := s.now().UTC()
	method := models.PaymentMethodCreditCard

	return s.store.UpdatePayment(ctx, ticketID, models.StatusPending, store.PaymentPatch{
		Status:        models.StatusProcessing,
		Paid:          false,
		PaymentDate:   &now,
		PaymentMethod: &method,
	})
}

func (s *SettlementService) capture(ctx context.Context, ticket *models.Ticket, card models.CardDetails) (receipt *models.Receipt, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capture panicked: %v", r)
		}
	}()

	receipt, err = s.gateway.Capture(ctx, &bank.CaptureRequest{
		TicketID: ticket.ID,
		Amount:   ticket.Amount,
		Card:     card,
	})
	if err == nil && receipt == nil {
		err = errors.New("capture returned no receipt")
	}
	return receipt, err
}

func (s *SettlementService) commit(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	return s.store.UpdatePayment(ctx, ticket.ID, models.StatusProcessing, store.PaymentPatch{
		Status:        models.StatusPaid,
		Paid:          true,
		PaymentDate:   ticket.PaymentDate,
		PaymentMethod: ticket.PaymentMethod,
	})
}

// rollback restores a processing ticket to pending with cleared payment
// fields, retrying store failures a few times.
func (s *SettlementService) rollback(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var err error
	for attempt := 1; attempt <= rollbackAttempts; attempt++ {
		var restored *models.Ticket
		restored, err = s.store.UpdatePayment(ctx, ticketID, models.StatusProcessing, store.PaymentPatch{
			Status: models.StatusPending,
			Paid:   false,
		})
		if err == nil {
			return restored, nil
		}
		if !errors.Is(err, status.ErrStore) {
			return nil, err
		}

		slog.Warn("Rollback attempt failed", "ticket_id", ticketID, "attempt", attempt, "error", err)
		if attempt < rollbackAttempts {
			time.Sleep(time.Duration(attempt) * rollbackBackoff)
		}
	}
	return nil, err
}

func (s *SettlementService) finish(ctx context.Context, actor models.Identity, ticket *models.Ticket, result *models.SettlementResult, started time.Time, fingerprint string) {
	outcome := monitoring.OutcomePaid
	step := "commit"
	if !result.Success {
		outcome = monitoring.OutcomeFailed
		step = "rollback"
	}

	elapsed := s.now().Sub(started)
	s.monitor.TrackSettlement(outcome)
	s.monitor.TrackSettlementDuration(outcome, elapsed)
	slog.Info("Settlement finished", "ticket_id", result.TicketID, "outcome", outcome, "duration", elapsed)

	s.audit(ctx, models.AuditEntry{
		TicketID: result.TicketID, ActorID: actor.ID, Step: step,
		Status: ticket.PaymentStatus, Reason: result.Reason, CardFingerprint: fingerprint,
	})

	if s.notifier != nil {
		if err := s.notifier.NotifySettlement(ctx, ticket.OwnerID, result); err != nil {
			slog.Warn("Failed to publish settlement notification", "ticket_id", result.TicketID, "error", err)
		}
	}
}

func (s *SettlementService) audit(ctx context.Context, entry models.AuditEntry) {
	if s.auditor == nil {
		return
	}
	entry.At = s.now().UTC()
	if err := s.auditor.Record(ctx, entry); err != nil {
		slog.Warn("Failed to record settlement audit entry", "ticket_id", entry.TicketID, "step", entry.Step, "error", err)
	}
}
