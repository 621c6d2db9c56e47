package counter

import (
	"context"
	"strconv"

	"github.com/claimpilot/ClaimPilot/internal/pkg/cache"
)

const (
	webhookReceivedKey  = "billing:webhook:counters:received"
	webhookDuplicateKey = "billing:webhook:counters:duplicate"
	webhookRejectedKey  = "billing:webhook:counters:rejected"
	webhookFailedKey    = "billing:webhook:counters:failed"
)

// AddWebhookReceived increments the received counter for an entity in Redis
func AddWebhookReceived(entityCode string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookReceivedKey, entityCode, 1).Err()
}

// AddWebhookDuplicate increments the duplicate-delivery counter for an entity
func AddWebhookDuplicate(entityCode string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookDuplicateKey, entityCode, 1).Err()
}

// AddWebhookRejected increments the rejected-delivery counter for an entity
func AddWebhookRejected(entityCode string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookRejectedKey, entityCode, 1).Err()
}

// AddWebhookFailed increments the processing-failure counter for an entity
func AddWebhookFailed(entityCode string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookFailedKey, entityCode, 1).Err()
}

// WebhookSnapshot returns the current per-entity webhook counters.
func WebhookSnapshot() (map[string]map[string]int64, error) {
	ctx := context.Background()
	out := make(map[string]map[string]int64)

	keys := map[string]string{
		"received":  webhookReceivedKey,
		"duplicate": webhookDuplicateKey,
		"rejected":  webhookRejectedKey,
		"failed":    webhookFailedKey,
	}
	for name, key := range keys {
		fields, err := cache.GetClient().HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		counts := make(map[string]int64, len(fields))
		for entity, raw := range fields {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			counts[entity] = n
		}
		out[name] = counts
	}
	return out, nil
}
