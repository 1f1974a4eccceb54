package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// WebhookDedup short-circuits duplicate gateway deliveries by event id. It is
// an optimization in front of the ledger's uniqueness constraint, never the
// authority: a cache miss or a Redis outage only means the fulfillment engine
// absorbs the duplicate instead.
type WebhookDedup struct {
	cli *redis.Client
	ttl time.Duration
}

func NewWebhookDedup(c *Client, ttl time.Duration) *WebhookDedup {
	return &WebhookDedup{cli: c.cli, ttl: ttl}
}

func dedupKey(eventID string) string { return "payments:webhook:event:" + eventID }

// IsProcessed reports whether the event id was already fulfilled.
func (d *WebhookDedup) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, nil
	}
	_, err := d.cli.Get(ctx, dedupKey(eventID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkProcessed records the event id after a successful fulfillment. Marked
// only on success so a failed fulfillment still benefits from gateway retries.
func (d *WebhookDedup) MarkProcessed(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	return d.cli.Set(ctx, dedupKey(eventID), 1, d.ttl).Err()
}
