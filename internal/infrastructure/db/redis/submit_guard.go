package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const submitGuardTTL = 30 * time.Second

// SubmitGuard rejects a second submission while the first is in flight.
// Key format: submit:<requester_id>:<type>
type SubmitGuard struct {
	client *redis.Client
}

func NewSubmitGuard(client *redis.Client) *SubmitGuard {
	return &SubmitGuard{client: client}
}

// Acquire reports whether the caller holds the guard. The key expires after
// submitGuardTTL so a crashed request cannot block its requester for long.
func (g *SubmitGuard) Acquire(ctx context.Context, requesterID, requestType string) (bool, error) {
	ok, err := g.client.SetNX(ctx, submitKey(requesterID, requestType), "1", submitGuardTTL).Result()
	if err != nil {
		return false, fmt.Errorf("submit guard: %w", err)
	}
	return ok, nil
}

func (g *SubmitGuard) Release(ctx context.Context, requesterID, requestType string) error {
	return g.client.Del(ctx, submitKey(requesterID, requestType)).Err()
}

func submitKey(requesterID, requestType string) string {
	return fmt.Sprintf("submit:%s:%s", requesterID, requestType)
}
