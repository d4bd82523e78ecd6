package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"parking-ticket-system/models"
)

func TestUserChannel(t *testing.T) {
	assert.Equal(t, "user-alice", userChannel("alice"))
}

func TestSettlementMessage(t *testing.T) {
	paid := settlementMessage(&models.SettlementResult{
		TicketID: "t1",
		Success:  true,
		Status:   models.StatusPaid,
		Receipt:  &models.Receipt{TransactionID: "SIM-ABC123"},
	})
	assert.Equal(t, map[string]any{
		"type":           "payment_success",
		"ticket_id":      "t1",
		"status":         "paid",
		"transaction_id": "SIM-ABC123",
	}, paid)

	failed := settlementMessage(&models.SettlementResult{
		TicketID: "t2",
		Status:   models.StatusFailed,
		Reason:   "card declined",
	})
	assert.Equal(t, map[string]any{
		"type":      "payment_failed",
		"ticket_id": "t2",
		"status":    "failed",
		"reason":    "card declined",
	}, failed)
}
