package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

// ChangeFeed carries identity changes over Redis pub/sub.
// Channel format: identity:<identity_id>
type ChangeFeed struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewChangeFeed(client *redis.Client, log zerolog.Logger) *ChangeFeed {
	return &ChangeFeed{client: client, log: log}
}

func channel(identityID string) string {
	return "identity:" + identityID
}

func (f *ChangeFeed) Publish(ctx context.Context, change ports.IdentityChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode identity change: %w", err)
	}
	if err := f.client.Publish(ctx, channel(change.IdentityID), payload).Err(); err != nil {
		return fmt.Errorf("publish identity change: %w", err)
	}
	return nil
}

// Subscribe confirms the subscription before returning, then delivers
// messages from a goroutine until the handle is closed or ctx ends.
func (f *ChangeFeed) Subscribe(ctx context.Context, identityID string, onChange func(ports.IdentityChange), onError func(error)) (ports.Subscription, error) {
	ps := f.client.Subscribe(ctx, channel(identityID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", identityID, err)
	}

	sub := &subscription{ps: ps, done: make(chan struct{})}
	go sub.run(ctx, f.log, onChange, onError)
	return sub, nil
}

type subscription struct {
	ps   *redis.PubSub
	once sync.Once
	done chan struct{}
	err  error
}

func (s *subscription) run(ctx context.Context, log zerolog.Logger, onChange func(ports.IdentityChange), onError func(error)) {
	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var change ports.IdentityChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed identity change")
				if onError != nil {
					onError(fmt.Errorf("decode identity change: %w", err))
				}
				continue
			}
			onChange(change)
		}
	}
}

// Close is safe to call more than once.
func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.ps.Close()
	})
	return s.err
}
