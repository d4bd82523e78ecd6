package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingTicket() Ticket {
	return Ticket{
		ID:            "ticket-123",
		OwnerID:       "user-456",
		LicensePlate:  "ABC123",
		ViolationType: ViolationExpiredMeter,
		Location:      "Main St",
		Amount:        decimal.RequireFromString("50.00"),
		IssuedAt:      time.Now(),
		PaymentStatus: StatusPending,
	}
}

func TestPaymentStatus_Valid(t *testing.T) {
	for _, s := range []PaymentStatus{StatusPending, StatusProcessing, StatusPaid, StatusFailed} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, PaymentStatus("refunded").Valid())
	assert.False(t, PaymentStatus(StatusFilterAll).Valid())
}

func TestTicket_CheckInvariants(t *testing.T) {
	now := time.Now()
	method := PaymentMethodCreditCard

	tests := []struct {
		name    string
		mutate  func(t *Ticket)
		wantErr bool
	}{
		{"fresh pending ticket", func(t *Ticket) {}, false},
		{"processing with payment fields", func(t *Ticket) {
			t.PaymentStatus = StatusProcessing
			t.PaymentDate = &now
			t.PaymentMethod = &method
		}, false},
		{"paid with flag", func(t *Ticket) {
			t.PaymentStatus = StatusPaid
			t.Paid = true
			t.PaymentDate = &now
			t.PaymentMethod = &method
		}, false},
		{"negative amount", func(t *Ticket) {
			t.Amount = decimal.NewFromInt(-1)
		}, true},
		{"paid flag without paid status", func(t *Ticket) {
			t.Paid = true
		}, true},
		{"paid status without flag", func(t *Ticket) {
			t.PaymentStatus = StatusPaid
			t.PaymentDate = &now
			t.PaymentMethod = &method
		}, true},
		{"pending with leftover payment date", func(t *Ticket) {
			t.PaymentDate = &now
		}, true},
		{"processing without method", func(t *Ticket) {
			t.PaymentStatus = StatusProcessing
			t.PaymentDate = &now
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := pendingTicket()
			tt.mutate(&ticket)

			err := ticket.CheckInvariants()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTicket_JSONKeepsExactAmountAndNullPaymentFields(t *testing.T) {
	ticket := pendingTicket()
	ticket.Amount = decimal.RequireFromString("0.10")

	jsonData, err := json.Marshal(ticket)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(jsonData, &raw))
	assert.Equal(t, "0.1", raw["amount"])
	assert.Nil(t, raw["payment_date"])
	assert.Nil(t, raw["payment_method"])
	assert.Equal(t, false, raw["paid"])

	var unmarshaled Ticket
	require.NoError(t, json.Unmarshal(jsonData, &unmarshaled))
	assert.True(t, ticket.Amount.Equal(unmarshaled.Amount))
	assert.Nil(t, unmarshaled.PaymentDate)
	assert.WithinDuration(t, ticket.IssuedAt, unmarshaled.IssuedAt, time.Second)
}

func TestTicketFields_AmountAcceptsNumberOrString(t *testing.T) {
	var fromNumber, fromString TicketFields
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 75.25}`), &fromNumber))
	require.NoError(t, json.Unmarshal([]byte(`{"amount": "75.25"}`), &fromString))

	assert.True(t, fromNumber.Amount.Equal(decimal.RequireFromString("75.25")))
	assert.True(t, fromNumber.Amount.Equal(fromString.Amount))
}
