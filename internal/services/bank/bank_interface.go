package bank

import (
	"context"

	"github.com/shopspring/decimal"

	"parking-ticket-system/models"
)

// Provider names a capture backend.
type Provider string

const (
	ProviderSimulated Provider = "simulated"
)

// CaptureRequest represents a card capture for one ticket
type CaptureRequest struct {
	TicketID string             `json:"ticket_id"`
	Amount   decimal.Decimal    `json:"amount"`
	Card     models.CardDetails `json:"-"`
}

// Gateway authorizes and captures card payments.
type Gateway interface {
	// Provider returns the backend type
	Provider() Provider

	// Capture blocks until the payment is captured or refused.
	Capture(ctx context.Context, req *CaptureRequest) (*models.Receipt, error)
}
