package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"parking-ticket-system/internal/status"
	"parking-ticket-system/internal/store"
	"parking-ticket-system/models"
	"parking-ticket-system/monitoring"
)

type TicketService struct {
	store   store.TicketStore
	monitor *monitoring.Monitor
	now     func() time.Time
}

func NewTicketService(ticketStore store.TicketStore, monitor *monitoring.Monitor) *TicketService {
	return &TicketService{
		store:   ticketStore,
		monitor: monitor,
		now:     time.Now,
	}
}

// CreateTicket validates the submitted fields and stores a new pending
// ticket owned by owner.
func (s *TicketService) CreateTicket(ctx context.Context, owner models.Identity, fields models.TicketFields) (*models.Ticket, error) {
	if strings.TrimSpace(owner.ID) == "" {
		return nil, status.NewValidationError("owner_id", "cannot be blank")
	}

	fields = normalizeFields(fields)
	if err := validateFields(&fields); err != nil {
		s.monitor.TrackIntakeRejected()
		return nil, err
	}

	ticket, err := s.store.Insert(ctx, &models.Ticket{
		OwnerID:       owner.ID,
		LicensePlate:  fields.LicensePlate,
		ViolationType: fields.ViolationType,
		Location:      fields.Location,
		Notes:         fields.Notes,
		Amount:        fields.Amount,
		IssuedAt:      s.now().UTC(),
		PaymentStatus: models.StatusPending,
		Paid:          false,
	})
	if err != nil {
		slog.Error("Failed to create ticket", "owner_id", owner.ID, "error", err)
		return nil, err
	}

	s.monitor.TrackTicketCreated(string(ticket.ViolationType))
	slog.Info("Ticket issued", "ticket_id", ticket.ID, "owner_id", ticket.OwnerID, "amount", ticket.Amount.String())

	return ticket, nil
}

// ListTickets returns the tickets requester may see, narrowed by the search
// term and status filter, most recent first.
func (s *TicketService) ListTickets(ctx context.Context, requester models.Identity, searchTerm, statusFilter string) ([]models.Ticket, error) {
	q, err := BuildQuery(requester, searchTerm, statusFilter)
	if err != nil {
		return nil, err
	}
	return s.store.Query(ctx, q)
}

// GetTicket returns one ticket if requester may see it. Other owners'
// tickets are reported as not found.
func (s *TicketService) GetTicket(ctx context.Context, requester models.Identity, id string) (*models.Ticket, error) {
	ticket, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.IsAdmin && ticket.OwnerID != requester.ID {
		return nil, fmt.Errorf("%w: %s", status.ErrTicketNotFound, id)
	}
	return ticket, nil
}

func normalizeFields(f models.TicketFields) models.TicketFields {
	f.LicensePlate = strings.TrimSpace(f.LicensePlate)
	f.Location = strings.TrimSpace(f.Location)
	f.Notes = strings.TrimSpace(f.Notes)
	f.ViolationType = models.ViolationType(strings.TrimSpace(string(f.ViolationType)))
	return f
}

func validateFields(f *models.TicketFields) error {
	violationTypes := make([]any, len(models.ViolationTypes))
	for i, v := range models.ViolationTypes {
		violationTypes[i] = v
	}

	return toValidationError(validation.ValidateStruct(f,
		validation.Field(&f.LicensePlate, validation.Required, validation.RuneLength(0, models.MaxLicensePlateLength)),
		validation.Field(&f.ViolationType, validation.Required, validation.In(violationTypes...)),
		validation.Field(&f.Location, validation.Required, validation.RuneLength(0, models.MaxLocationLength)),
		validation.Field(&f.Notes, validation.RuneLength(0, models.MaxNotesLength)),
		validation.Field(&f.Amount, validation.By(nonNegativeAmount)),
	))
}

func nonNegativeAmount(value any) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a number")
	}
	if amount.IsNegative() {
		return errors.New("must be no less than 0")
	}
	return nil
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}

	fields := make(map[string]string, len(errs))
	for field, fieldErr := range errs {
		fields[field] = fieldErr.Error()
	}
	return &status.ValidationError{Fields: fields}
}
