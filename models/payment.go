package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CardDetails struct {
	Number string `json:"card_number"`
	Expiry string `json:"expiry"` // MMYY
	CVC    string `json:"cvc"`
}

// Receipt is what a successful capture hands back.
type Receipt struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	CapturedAt    time.Time       `json:"captured_at"`
}

type SettlementResult struct {
	TicketID string        `json:"ticket_id"`
	Success  bool          `json:"success"`
	Status   PaymentStatus `json:"status"` // paid or failed
	Reason   string        `json:"reason,omitempty"`
	Ticket   *Ticket       `json:"ticket,omitempty"`
	Receipt  *Receipt      `json:"receipt,omitempty"`
}

type Summary struct {
	TicketCount            int             `json:"ticket_count"`
	TotalAmount            decimal.Decimal `json:"total_amount"`
	CollectedAmount        decimal.Decimal `json:"collected_amount"`
	PendingCount           int             `json:"pending_count"`
	DistinctViolationTypes int             `json:"distinct_violation_types"`
}

// AuditEntry is one step of a ticket's settlement history.
type AuditEntry struct {
	TicketID        string        `json:"ticket_id"`
	ActorID         string        `json:"actor_id"`
	Step            string        `json:"step"` // begin, commit, rollback, rejected
	Status          PaymentStatus `json:"status"`
	Reason          string        `json:"reason,omitempty"`
	CardFingerprint string        `json:"card_fingerprint,omitempty"`
	At              time.Time     `json:"at"`
}
