package services

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"parking-ticket-system/models"
)

const recentTicketsCount = 5

// Summarize derives dashboard statistics from tickets. It does not depend on
// the order of tickets.
func Summarize(tickets []models.Ticket) models.Summary {
	total := lo.Reduce(tickets, func(sum decimal.Decimal, t models.Ticket, _ int) decimal.Decimal {
		return sum.Add(t.Amount)
	}, decimal.Zero)

	collected := lo.Reduce(tickets, func(sum decimal.Decimal, t models.Ticket, _ int) decimal.Decimal {
		if t.PaymentStatus != models.StatusPaid {
			return sum
		}
		return sum.Add(t.Amount)
	}, decimal.Zero)

	pending := lo.CountBy(tickets, func(t models.Ticket) bool {
		return t.PaymentStatus == models.StatusPending
	})

	violationTypes := lo.Uniq(lo.Map(tickets, func(t models.Ticket, _ int) models.ViolationType {
		return t.ViolationType
	}))

	return models.Summary{
		TicketCount:            len(tickets),
		TotalAmount:            total,
		CollectedAmount:        collected,
		PendingCount:           pending,
		DistinctViolationTypes: len(violationTypes),
	}
}

type Dashboard struct {
	Summary models.Summary  `json:"summary"`
	Recent  []models.Ticket `json:"recent"`
}

// BuildDashboard summarizes an already ordered ticket list and keeps its
// first few entries as the recent tickets.
func BuildDashboard(tickets []models.Ticket) Dashboard {
	n := min(len(tickets), recentTicketsCount)
	recent := make([]models.Ticket, n)
	copy(recent, tickets[:n])

	return Dashboard{
		Summary: Summarize(tickets),
		Recent:  recent,
	}
}
