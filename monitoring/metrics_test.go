package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMonitor_TracksSettlements(t *testing.T) {
	m := NewMonitor()

	before := testutil.ToFloat64(settlements.WithLabelValues(OutcomePaid))
	m.TrackSettlement(OutcomePaid)
	m.TrackSettlement(OutcomePaid)

	assert.Equal(t, before+2, testutil.ToFloat64(settlements.WithLabelValues(OutcomePaid)))
}

func TestMonitor_TracksRollbacks(t *testing.T) {
	m := NewMonitor()

	restored := testutil.ToFloat64(rollbacks.WithLabelValues("restored"))
	failed := testutil.ToFloat64(rollbacks.WithLabelValues("error"))

	m.TrackRollback(true)
	m.TrackRollback(false)

	assert.Equal(t, restored+1, testutil.ToFloat64(rollbacks.WithLabelValues("restored")))
	assert.Equal(t, failed+1, testutil.ToFloat64(rollbacks.WithLabelValues("error")))
}

func TestMonitor_TracksIntake(t *testing.T) {
	m := NewMonitor()

	created := testutil.ToFloat64(ticketsCreated.WithLabelValues("Other"))
	rejected := testutil.ToFloat64(intakeRejections)

	m.TrackTicketCreated("Other")
	m.TrackIntakeRejected()

	assert.Equal(t, created+1, testutil.ToFloat64(ticketsCreated.WithLabelValues("Other")))
	assert.Equal(t, rejected+1, testutil.ToFloat64(intakeRejections))
}

func TestMonitor_NilIsNoop(t *testing.T) {
	var m *Monitor

	assert.NotPanics(t, func() {
		m.TrackTicketCreated("Other")
		m.TrackIntakeRejected()
		m.TrackSettlement(OutcomeFailed)
		m.TrackSettlementDuration(OutcomeFailed, time.Second)
		m.TrackRollback(true)
	})
}
