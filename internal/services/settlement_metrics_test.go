package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-ticket-system/internal/status"
	"parking-ticket-system/internal/store"
	"parking-ticket-system/models"
	"parking-ticket-system/monitoring"
)

// steppingClock advances by step on every reading.
func steppingClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := fixedNow
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

type failingGetStore struct {
	*store.MemoryStore
}

func (failingGetStore) Get(context.Context, string) (*models.Ticket, error) {
	return nil, &status.StoreError{Op: "get", Err: errors.New("db locked")}
}

// settlementMetrics reads the settlement counter and the duration histogram
// for one outcome from the default registry.
func settlementMetrics(t *testing.T, outcome string) (settlements float64, durationCount uint64, durationSum float64) {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			matches := false
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" && lp.GetValue() == outcome {
					matches = true
				}
			}
			if !matches {
				continue
			}

			switch mf.GetName() {
			case "parking_ticket_settlements_total":
				settlements = m.GetCounter().GetValue()
			case "parking_ticket_settlement_duration_seconds":
				durationCount = m.GetHistogram().GetSampleCount()
				durationSum = m.GetHistogram().GetSampleSum()
			}
		}
	}
	return settlements, durationCount, durationSum
}

func TestSettle_DurationUsesInjectedClock(t *testing.T) {
	s := store.NewMemoryStore()
	ticket := seedTicket(t, s, "alice", "50")

	svc := newTestSettlement(s, gatewayFunc(approve),
		WithMonitor(monitoring.NewMonitor()),
		WithClock(steppingClock(time.Second)),
	)

	countBefore, samplesBefore, sumBefore := settlementMetrics(t, monitoring.OutcomePaid)

	result, err := svc.Settle(context.Background(), alice, ticket.ID, validCard())
	require.NoError(t, err)
	require.True(t, result.Success)

	countAfter, samplesAfter, sumAfter := settlementMetrics(t, monitoring.OutcomePaid)
	assert.Equal(t, countBefore+1, countAfter)
	assert.Equal(t, samplesBefore+1, samplesAfter)
	// One clock step between the start reading and the finish reading.
	assert.InDelta(t, 1.0, sumAfter-sumBefore, 1e-9)
}

func TestSettle_LookupFailuresAreCounted(t *testing.T) {
	tests := []struct {
		name    string
		store   store.TicketStore
		actor   models.Identity
		outcome string
		target  error
	}{
		{"store error", failingGetStore{store.NewMemoryStore()}, alice, monitoring.OutcomeStoreError, status.ErrStore},
		{"unknown ticket", store.NewMemoryStore(), alice, monitoring.OutcomeRejected, status.ErrTicketNotFound},
		{"someone else's ticket", nil, bob, monitoring.OutcomeRejected, status.ErrTicketNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticketStore := tt.store
			ticketID := "missing"
			if ticketStore == nil {
				mem := store.NewMemoryStore()
				ticketID = seedTicket(t, mem, "alice", "50").ID
				ticketStore = mem
			}

			svc := newTestSettlement(ticketStore, gatewayFunc(approve), WithMonitor(monitoring.NewMonitor()))
			before, _, _ := settlementMetrics(t, tt.outcome)

			_, err := svc.Settle(context.Background(), tt.actor, ticketID, validCard())
			assert.ErrorIs(t, err, tt.target)

			after, _, _ := settlementMetrics(t, tt.outcome)
			assert.Equal(t, before+1, after)
		})
	}
}
