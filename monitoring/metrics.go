package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticketsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_tickets_created_total",
			Help: "Tickets issued, by violation type",
		},
		[]string{"violation_type"},
	)

	intakeRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parking_ticket_intake_rejections_total",
			Help: "Ticket submissions rejected by validation",
		},
	)

	settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_ticket_settlements_total",
			Help: "Settlement attempts by outcome",
		},
		[]string{"outcome"},
	)

	rollbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_ticket_settlement_rollbacks_total",
			Help: "Settlement rollbacks to pending, by result",
		},
		[]string{"result"},
	)

	settlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parking_ticket_settlement_duration_seconds",
			Help:    "Wall-clock duration of settlements that passed begin",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"outcome"},
	)
)

// Settlement outcomes
const (
	OutcomePaid         = "paid"
	OutcomeFailed       = "failed"
	OutcomeInvalidState = "invalid_state"
	OutcomeRejected     = "rejected"
	OutcomeRateLimited  = "rate_limited"
	OutcomeStoreError   = "store_error"
)

// Monitor records service metrics. A nil *Monitor records nothing.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) TrackTicketCreated(violationType string) {
	if m == nil {
		return
	}
	ticketsCreated.WithLabelValues(violationType).Inc()
}

func (m *Monitor) TrackIntakeRejected() {
	if m == nil {
		return
	}
	intakeRejections.Inc()
}

func (m *Monitor) TrackSettlement(outcome string) {
	if m == nil {
		return
	}
	settlements.WithLabelValues(outcome).Inc()
}

func (m *Monitor) TrackSettlementDuration(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	settlementDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Monitor) TrackRollback(ok bool) {
	if m == nil {
		return
	}
	result := "restored"
	if !ok {
		result = "error"
	}
	rollbacks.WithLabelValues(result).Inc()
}
