package ports

import (
	"context"
	"time"
)

// IdentityChange is one live update of an identity record. Fields holds only
// what changed, keyed like domain.Identity.Snapshot.
type IdentityChange struct {
	IdentityID string         `json:"identity_id"`
	Fields     map[string]any `json:"fields"`
	At         time.Time      `json:"at"`
}

// Subscription is an owned live-feed handle. The owner must Close it when
// the view it serves goes away.
type Subscription interface {
	Close() error
}

// ChangePublisher announces identity changes after they are written.
type ChangePublisher interface {
	Publish(ctx context.Context, change IdentityChange) error
}

// ChangeFeed delivers identity changes to subscribers. onChange and onError
// are called from the feed's goroutine.
type ChangeFeed interface {
	ChangePublisher
	Subscribe(ctx context.Context, identityID string, onChange func(IdentityChange), onError func(error)) (Subscription, error)
}

// SessionPersister keeps a durable copy of a client session so it survives
// reloads.
type SessionPersister interface {
	Save(ctx context.Context, id string, fields map[string]any) error
	Load(ctx context.Context, id string) (fields map[string]any, found bool, err error)
	Delete(ctx context.Context, id string) error
}

// SubmitGuard rejects concurrent duplicate form submissions.
type SubmitGuard interface {
	Acquire(ctx context.Context, requesterID, requestType string) (bool, error)
	Release(ctx context.Context, requesterID, requestType string) error
}
