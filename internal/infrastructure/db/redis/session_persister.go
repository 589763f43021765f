package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionTTL = 30 * 24 * time.Hour

// SessionPersister keeps the durable copy of client sessions.
// Key format: session:<identity_id>
type SessionPersister struct {
	client *redis.Client
}

func NewSessionPersister(client *redis.Client) *SessionPersister {
	return &SessionPersister{client: client}
}

func (p *SessionPersister) Save(ctx context.Context, id string, fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return p.client.Set(ctx, sessionKey(id), payload, sessionTTL).Err()
}

func (p *SessionPersister) Load(ctx context.Context, id string) (map[string]any, bool, error) {
	raw, err := p.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}

	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false, fmt.Errorf("decode session: %w", err)
	}
	return fields, true, nil
}

func (p *SessionPersister) Delete(ctx context.Context, id string) error {
	return p.client.Del(ctx, sessionKey(id)).Err()
}

func sessionKey(id string) string {
	return "session:" + id
}
