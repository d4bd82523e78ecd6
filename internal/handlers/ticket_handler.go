package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"parking-ticket-system/internal/services"
	"parking-ticket-system/internal/status"
	"parking-ticket-system/models"
)

// AuditReader reads a ticket's settlement history.
type AuditReader interface {
	History(ctx context.Context, ticketID string) ([]models.AuditEntry, error)
}

type TicketHandler struct {
	tickets    *services.TicketService
	settlement *services.SettlementService
	audit      AuditReader
}

func NewTicketHandler(tickets *services.TicketService, settlement *services.SettlementService, audit AuditReader) *TicketHandler {
	return &TicketHandler{
		tickets:    tickets,
		settlement: settlement,
		audit:      audit,
	}
}

// CreateTicket - Issue a ticket owned by the caller
func (h *TicketHandler) CreateTicket(e *core.RequestEvent) error {
	identity, err := identityFromRequest(e)
	if err != nil {
		return err
	}

	var fields models.TicketFields
	if err := e.BindBody(&fields); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	ticket, err := h.tickets.CreateTicket(e.Request.Context(), identity, fields)
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusCreated, ticket)
}

// ListTickets - Visible tickets with their summary and most recent entries
func (h *TicketHandler) ListTickets(e *core.RequestEvent) error {
	identity, err := identityFromRequest(e)
	if err != nil {
		return err
	}

	query := e.Request.URL.Query()
	tickets, err := h.tickets.ListTickets(e.Request.Context(), identity, query.Get("search"), query.Get("status"))
	if err != nil {
		return toAPIError(err)
	}

	dashboard := services.BuildDashboard(tickets)
	return e.JSON(http.StatusOK, map[string]any{
		"items":   tickets,
		"summary": dashboard.Summary,
		"recent":  dashboard.Recent,
	})
}

// GetTicket - One ticket, if the caller may see it
func (h *TicketHandler) GetTicket(e *core.RequestEvent) error {
	identity, err := identityFromRequest(e)
	if err != nil {
		return err
	}

	ticket, err := h.tickets.GetTicket(e.Request.Context(), identity, e.Request.PathValue("ticketId"))
	if err != nil {
		return toAPIError(err)
	}
	return e.JSON(http.StatusOK, ticket)
}

// SettleTicket - Pay a pending ticket by card
func (h *TicketHandler) SettleTicket(e *core.RequestEvent) error {
	identity, err := identityFromRequest(e)
	if err != nil {
		return err
	}

	var card models.CardDetails
	if err := e.BindBody(&card); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	ticketID := e.Request.PathValue("ticketId")
	result, err := h.settlement.Settle(e.Request.Context(), identity, ticketID, card)
	if err != nil {
		var failure *status.SettlementFailure
		if errors.As(err, &failure) && result != nil {
			return e.JSON(http.StatusPaymentRequired, result)
		}
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, result)
}

// GetAuditTrail - Settlement history of a ticket
func (h *TicketHandler) GetAuditTrail(e *core.RequestEvent) error {
	identity, err := identityFromRequest(e)
	if err != nil {
		return err
	}
	if h.audit == nil {
		return apis.NewNotFoundError("Audit trail is not enabled", nil)
	}

	ctx := e.Request.Context()
	ticket, err := h.tickets.GetTicket(ctx, identity, e.Request.PathValue("ticketId"))
	if err != nil {
		return toAPIError(err)
	}

	entries, err := h.audit.History(ctx, ticket.ID)
	if err != nil {
		slog.Error("Failed to read audit trail", "ticket_id", ticket.ID, "error", err)
		return apis.NewApiError(http.StatusInternalServerError, "Failed to read audit trail", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticket_id": ticket.ID,
		"entries":   entries,
	})
}

// GetAdminSummary - Summary over every ticket, admins only
func (h *TicketHandler) GetAdminSummary(e *core.RequestEvent) error {
	identity, err := identityFromRequest(e)
	if err != nil {
		return err
	}
	if !identity.IsAdmin {
		return apis.NewForbiddenError("Admin access required", nil)
	}

	tickets, err := h.tickets.ListTickets(e.Request.Context(), identity, "", e.Request.URL.Query().Get("status"))
	if err != nil {
		return toAPIError(err)
	}

	return e.JSON(http.StatusOK, services.Summarize(tickets))
}

// identityFromRequest resolves the caller. Superusers and users flagged
// is_admin act as admins.
func identityFromRequest(e *core.RequestEvent) (models.Identity, error) {
	if e.Auth == nil {
		return models.Identity{}, apis.NewUnauthorizedError("Unauthorized", nil)
	}

	return models.Identity{
		ID:      e.Auth.Id,
		IsAdmin: e.HasSuperuserAuth() || e.Auth.GetBool("is_admin"),
	}, nil
}

// toAPIError maps service errors to API errors. Store failures win over
// every other kind, so a joined error never reaches the client verbatim.
func toAPIError(err error) error {
	var validationErr *status.ValidationError
	var stateErr *status.InvalidStateError
	switch {
	case errors.As(err, &validationErr):
		fieldErrs := make(validation.Errors, len(validationErr.Fields))
		for field, msg := range validationErr.Fields {
			fieldErrs[field] = validation.NewError("validation_invalid_value", msg)
		}
		return apis.NewBadRequestError("Validation failed", fieldErrs)

	case errors.Is(err, status.ErrStore):
		return internalError(err)

	case errors.Is(err, status.ErrTicketNotFound):
		return apis.NewNotFoundError("Ticket not found", nil)

	case errors.As(err, &stateErr):
		return apis.NewApiError(http.StatusConflict, stateErr.Error(), nil)

	case errors.Is(err, status.ErrRateLimited):
		return apis.NewApiError(http.StatusTooManyRequests, "Too many settlement attempts, try again later", nil)

	case errors.Is(err, status.ErrSettlementFailed):
		slog.Warn("Settlement failed", "error", err)
		return apis.NewApiError(http.StatusPaymentRequired, "Payment could not be completed", nil)

	default:
		return internalError(err)
	}
}

func internalError(err error) error {
	slog.Error("Request failed", "error", err)
	return apis.NewApiError(http.StatusInternalServerError, "Something went wrong while processing your request", nil)
}
