package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"parking-ticket-system/models"
)

// AuditTrail keeps the most recent settlement steps of each ticket in a
// capped Redis list, newest first.
type AuditTrail struct {
	redis redis.Cmdable
	size  int64
}

func NewAuditTrail(redisClient redis.Cmdable, size int) *AuditTrail {
	if size <= 0 {
		size = 50
	}
	return &AuditTrail{redis: redisClient, size: int64(size)}
}

func auditKey(ticketID string) string {
	return fmt.Sprintf("audit:ticket:%s", ticketID)
}

func (a *AuditTrail) Record(ctx context.Context, entry models.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	key := auditKey(entry.TicketID)
	if err := a.redis.LPush(ctx, key, string(data)).Err(); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	if err := a.redis.LTrim(ctx, key, 0, a.size-1).Err(); err != nil {
		return fmt.Errorf("failed to trim audit trail: %w", err)
	}
	return nil
}

// History returns the recorded entries of ticketID, newest first.
func (a *AuditTrail) History(ctx context.Context, ticketID string) ([]models.AuditEntry, error) {
	raw, err := a.redis.LRange(ctx, auditKey(ticketID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read audit trail: %w", err)
	}

	entries := make([]models.AuditEntry, 0, len(raw))
	for _, r := range raw {
		var entry models.AuditEntry
		if err := json.Unmarshal([]byte(r), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
