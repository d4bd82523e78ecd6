package services

import (
	"context"
	"fmt"

	pubnub "github.com/pubnub/go"

	"parking-ticket-system/models"
)

// PubNubNotifier publishes settlement outcomes on the owner's user channel.
type PubNubNotifier struct {
	pubnub *pubnub.PubNub
}

func NewPubNubNotifier(pn *pubnub.PubNub) *PubNubNotifier {
	return &PubNubNotifier{pubnub: pn}
}

func userChannel(ownerID string) string {
	return fmt.Sprintf("user-%s", ownerID)
}

func (n *PubNubNotifier) NotifySettlement(ctx context.Context, ownerID string, result *models.SettlementResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, _, err := n.pubnub.Publish().
		Channel(userChannel(ownerID)).
		Message(settlementMessage(result)).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to publish settlement of %s: %w", result.TicketID, err)
	}
	return nil
}

func settlementMessage(result *models.SettlementResult) map[string]any {
	msg := map[string]any{
		"type":      "payment_success",
		"ticket_id": result.TicketID,
		"status":    string(result.Status),
	}
	if !result.Success {
		msg["type"] = "payment_failed"
		msg["reason"] = result.Reason
	}
	if result.Receipt != nil {
		msg["transaction_id"] = result.Receipt.TransactionID
	}
	return msg
}
