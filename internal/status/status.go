package status

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"parking-ticket-system/models"
)

var (
	ErrValidation       = errors.New("ticket: validation failed")
	ErrTicketNotFound   = errors.New("ticket: ticket not found")
	ErrInvalidState     = errors.New("settlement: ticket is not pending")
	ErrSettlementFailed = errors.New("settlement: payment failed")
	ErrRateLimited      = errors.New("settlement: too many attempts")
	ErrStore            = errors.New("store: operation failed")
)

// ValidationError carries one message per rejected input field.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type InvalidStateError struct {
	TicketID string
	Current  models.PaymentStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: ticket %s is %s", ErrInvalidState, e.TicketID, e.Current)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// SettlementFailure means capture or commit failed and the ticket was
// restored to pending.
type SettlementFailure struct {
	TicketID string
	Reason   string
	Cause    error
}

func (e *SettlementFailure) Error() string {
	return fmt.Sprintf("%s: ticket %s: %s", ErrSettlementFailed, e.TicketID, e.Reason)
}

func (e *SettlementFailure) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrSettlementFailed}
	}
	return []error{ErrSettlementFailed, e.Cause}
}

type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStore, e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStore, e.Err}
}
