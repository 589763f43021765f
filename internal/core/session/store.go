// Package session holds the live-synced local mirror of one signed-in
// identity. A Store is owned by a single view (one live stream) and is never
// shared through package state.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

// Session is a point-in-time copy of the mirrored identity.
type Session struct {
	ID     string
	Fields map[string]any
}

// Role parses the mirrored role. Unknown values yield "".
func (s Session) Role() domain.Role {
	r, err := domain.ParseRole(s.String(domain.FieldRole))
	if err != nil {
		return ""
	}
	return r
}

// Banned reports whether the mirrored identity has been banned.
func (s Session) Banned() bool {
	return s.String(domain.FieldStatus) == string(domain.StatusBanned)
}

func (s Session) String(key string) string {
	v, _ := s.Fields[key].(string)
	return v
}

func (s Session) Bool(key string) bool {
	v, _ := s.Fields[key].(bool)
	return v
}

// Strings reads a list field. Values decoded from JSON arrive as []any.
func (s Session) Strings(key string) []string {
	switch v := s.Fields[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Store is the single writer of a session. All mutation goes through Login,
// Restore, live-sync merges and Logout.
type Store struct {
	feed      ports.ChangeFeed
	persister ports.SessionPersister
	log       zerolog.Logger

	mu       sync.Mutex
	current  *Session
	loading  bool
	syncErr  error
	attached ports.Subscription
	changes  chan Session
}

// NewStore returns an empty store in the loading state.
func NewStore(feed ports.ChangeFeed, persister ports.SessionPersister, log zerolog.Logger) *Store {
	return &Store{
		feed:      feed,
		persister: persister,
		log:       log,
		loading:   true,
		changes:   make(chan Session, 1),
	}
}

// Login replaces the session wholesale and persists it.
func (s *Store) Login(ctx context.Context, identity *domain.Identity) error {
	if identity == nil || identity.ID == "" {
		return fmt.Errorf("session login: %w", domain.NewValidationError(
			domain.FieldViolation{Field: "id", Rule: "required", Message: "identity id is required"}))
	}

	fields := identity.Snapshot()
	s.mu.Lock()
	s.current = &Session{ID: identity.ID, Fields: fields}
	s.loading = false
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)

	if err := s.persister.Save(ctx, identity.ID, fields); err != nil {
		return fmt.Errorf("session login: persist: %w", err)
	}
	return nil
}

// Restore reloads a persisted session after a reload. The store stays in the
// loading state until live sync or Login confirms it.
func (s *Store) Restore(ctx context.Context, id string) (bool, error) {
	fields, found, err := s.persister.Load(ctx, id)
	if err != nil {
		return false, fmt.Errorf("session restore: %w", err)
	}
	if !found {
		return false, nil
	}

	s.mu.Lock()
	if s.current == nil {
		fields[domain.FieldID] = id
		s.current = &Session{ID: id, Fields: fields}
	}
	s.mu.Unlock()
	return true, nil
}

// Current returns a copy of the session, if any.
func (s *Store) Current() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Session{}, false
	}
	return s.snapshotLocked(), true
}

// Loading reports whether the session has not yet been confirmed by Login
// or a live-sync update.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastSyncError is the most recent live-sync failure. Sync failures are
// logged and otherwise silent; this makes a stalled session observable.
func (s *Store) LastSyncError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncErr
}

// Changes delivers the latest session after every change. Only the newest
// snapshot is buffered.
func (s *Store) Changes() <-chan Session {
	return s.changes
}

// ListenToUser opens a new live subscription on the session's identity.
// Every call opens an independent subscription owned by the caller. Without
// a session id it returns a no-op handle.
func (s *Store) ListenToUser(ctx context.Context) (ports.Subscription, error) {
	s.mu.Lock()
	var id string
	if s.current != nil {
		id = s.current.ID
	}
	s.mu.Unlock()

	if id == "" {
		return noopSubscription{}, nil
	}

	sub, err := s.feed.Subscribe(ctx, id, s.apply, s.recordSyncError)
	if err != nil {
		s.recordSyncError(err)
		return noopSubscription{}, fmt.Errorf("listen to user %s: %w", id, err)
	}
	return sub, nil
}

// Attach hands a subscription to the store and closes the one it replaces.
func (s *Store) Attach(sub ports.Subscription) {
	s.mu.Lock()
	prev := s.attached
	s.attached = sub
	s.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			s.log.Warn().Err(err).Msg("failed to close replaced subscription")
		}
	}
}

// Close releases the attached subscription, if any.
func (s *Store) Close() error {
	s.mu.Lock()
	sub := s.attached
	s.attached = nil
	s.mu.Unlock()

	if sub == nil {
		return nil
	}
	return sub.Close()
}

// Logout clears the session and its persisted copy. Subscriptions are left
// to their owner.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	var id string
	if s.current != nil {
		id = s.current.ID
	}
	s.current = nil
	s.loading = false
	s.mu.Unlock()

	if id == "" {
		return nil
	}
	if err := s.persister.Delete(ctx, id); err != nil {
		return fmt.Errorf("session logout: %w", err)
	}
	return nil
}

// apply merges a live change: incoming fields win, the id never changes.
func (s *Store) apply(change ports.IdentityChange) {
	s.mu.Lock()
	if s.current == nil || change.IdentityID != s.current.ID {
		s.mu.Unlock()
		s.log.Debug().Str("identity_id", change.IdentityID).Msg("change for another identity ignored")
		return
	}

	merged := make(map[string]any, len(s.current.Fields)+len(change.Fields))
	for k, v := range s.current.Fields {
		merged[k] = v
	}
	for k, v := range change.Fields {
		merged[k] = v
	}
	merged[domain.FieldID] = s.current.ID

	s.current = &Session{ID: s.current.ID, Fields: merged}
	s.loading = false
	s.syncErr = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)

	if err := s.persister.Save(context.Background(), snap.ID, snap.Fields); err != nil {
		s.log.Warn().Err(err).Str("identity_id", snap.ID).Msg("failed to persist synced session")
	}
}

func (s *Store) recordSyncError(err error) {
	s.mu.Lock()
	s.syncErr = err
	s.mu.Unlock()
	s.log.Warn().Err(err).Msg("live sync error")
}

// notify replaces any undelivered snapshot with the newest one.
func (s *Store) notify(snap Session) {
	for {
		select {
		case s.changes <- snap:
			return
		default:
		}
		select {
		case <-s.changes:
		default:
		}
	}
}

func (s *Store) snapshotLocked() Session {
	fields := make(map[string]any, len(s.current.Fields))
	for k, v := range s.current.Fields {
		fields[k] = v
	}
	return Session{ID: s.current.ID, Fields: fields}
}

type noopSubscription struct{}

func (noopSubscription) Close() error { return nil }
