package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	StatusPending    PaymentStatus = "pending"
	StatusProcessing PaymentStatus = "processing"
	StatusPaid       PaymentStatus = "paid"
	// StatusFailed labels a failed settlement attempt. Tickets never rest in it,
	// a failed attempt is always rolled back to pending.
	StatusFailed PaymentStatus = "failed"
)

// StatusFilterAll is the status filter sentinel that disables status filtering.
const StatusFilterAll = "all"

// PaymentMethodCreditCard is the only payment method settlement records.
const PaymentMethodCreditCard = "credit_card"

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusPaid, StatusFailed:
		return true
	}
	return false
}

type ViolationType string

const (
	ViolationExpiredMeter ViolationType = "Expired Meter"
	ViolationNoParking    ViolationType = "No Parking Zone"
	ViolationHandicap     ViolationType = "Handicap Violation"
	ViolationOther        ViolationType = "Other"
)

var ViolationTypes = []ViolationType{
	ViolationExpiredMeter,
	ViolationNoParking,
	ViolationHandicap,
	ViolationOther,
}

type Ticket struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	LicensePlate  string          `json:"license_plate"`
	ViolationType ViolationType   `json:"violation_type"`
	Location      string          `json:"location"`
	Notes         string          `json:"notes"`
	Amount        decimal.Decimal `json:"amount"`
	IssuedAt      time.Time       `json:"issued_at"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaymentDate   *time.Time      `json:"payment_date"`
	PaymentMethod *string         `json:"payment_method"`
	Paid          bool            `json:"paid"`
}

// CheckInvariants reports the first broken record invariant, if any.
func (t *Ticket) CheckInvariants() error {
	if t.Amount.IsNegative() {
		return fmt.Errorf("ticket %s: negative amount %s", t.ID, t.Amount)
	}
	if t.Paid != (t.PaymentStatus == StatusPaid) {
		return fmt.Errorf("ticket %s: paid=%t with status %s", t.ID, t.Paid, t.PaymentStatus)
	}

	inFlight := t.PaymentStatus == StatusProcessing || t.PaymentStatus == StatusPaid
	if inFlight != (t.PaymentDate != nil) {
		return fmt.Errorf("ticket %s: payment_date set=%t with status %s", t.ID, t.PaymentDate != nil, t.PaymentStatus)
	}
	if inFlight != (t.PaymentMethod != nil) {
		return fmt.Errorf("ticket %s: payment_method set=%t with status %s", t.ID, t.PaymentMethod != nil, t.PaymentStatus)
	}
	return nil
}

// Length limits of the descriptive fields, in characters. The
// parking_tickets collection enforces the same limits.
const (
	MaxLicensePlateLength = 32
	MaxLocationLength     = 255
	MaxNotesLength        = 2000
)

// TicketFields is the intake form. The owner is never taken from it.
type TicketFields struct {
	LicensePlate  string          `json:"license_plate"`
	ViolationType ViolationType   `json:"violation_type"`
	Location      string          `json:"location"`
	Amount        decimal.Decimal `json:"amount"`
	Notes         string          `json:"notes"`
}

// Identity is the acting user as resolved by the auth layer.
type Identity struct {
	ID      string `json:"id"`
	IsAdmin bool   `json:"is_admin"`
}
