package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

func cloneIdentity(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.Business = i.Business.Normalized()
	return &c
}

type memIdentityRepo struct {
	mu          sync.Mutex
	byID        map[string]*domain.Identity
	seq         int
	elevateErr  error
	elevateCall int
}

func newMemIdentityRepo() *memIdentityRepo {
	return &memIdentityRepo{byID: make(map[string]*domain.Identity)}
}

func (r *memIdentityRepo) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == identity.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	c := cloneIdentity(identity)
	if c.ID == "" {
		r.seq++
		c.ID = fmt.Sprintf("user-%d", r.seq)
	}
	r.byID[c.ID] = c
	return cloneIdentity(c), nil
}

func (r *memIdentityRepo) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return cloneIdentity(i), nil
}

func (r *memIdentityRepo) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.byID {
		if i.Email == email {
			return cloneIdentity(i), nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (r *memIdentityRepo) UpdateProfile(_ context.Context, id, displayName string, profile domain.Profile) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	i.DisplayName = displayName
	i.Profile = profile
	return cloneIdentity(i), nil
}

func (r *memIdentityRepo) Elevate(_ context.Context, id string, role domain.Role, phone string, business domain.BusinessFields) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elevateCall++
	if r.elevateErr != nil {
		return nil, r.elevateErr
	}
	i, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	i.Role = role
	i.IsVerified = true
	i.Profile.Phone = phone
	i.Business = business.Normalized()
	return cloneIdentity(i), nil
}

func (r *memIdentityRepo) SetStatus(_ context.Context, id string, status domain.IdentityStatus) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	i.Status = status
	return cloneIdentity(i), nil
}

func (r *memIdentityRepo) put(i *domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[i.ID] = cloneIdentity(i)
}

func cloneRequest(r *domain.ApprovalRequest) *domain.ApprovalRequest {
	c := *r
	c.Business = r.Business.Normalized()
	return &c
}

type memApprovalRepo struct {
	mu          sync.Mutex
	items       map[string]*domain.ApprovalRequest
	order       []string
	inserts     int
	listErr     error
	finalizeErr error
	// beforeFinalize runs once, outside the lock, ahead of the next Finalize.
	beforeFinalize func()
}

func newMemApprovalRepo() *memApprovalRepo {
	return &memApprovalRepo{items: make(map[string]*domain.ApprovalRequest)}
}

func (r *memApprovalRepo) Insert(_ context.Context, req *domain.ApprovalRequest) (*domain.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	c := cloneRequest(req)
	c.ID = fmt.Sprintf("req-%d", r.inserts)
	r.items[c.ID] = c
	r.order = append(r.order, c.ID)
	return cloneRequest(c), nil
}

func (r *memApprovalRepo) FindByID(_ context.Context, id string) (*domain.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.items[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return cloneRequest(req), nil
}

func (r *memApprovalRepo) List(_ context.Context, f ports.RequestFilter) ([]*domain.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*domain.ApprovalRequest
	for _, id := range r.order {
		req := r.items[id]
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		if f.Type != "" && req.Type != f.Type {
			continue
		}
		if f.RequesterID != "" && req.RequesterID != f.RequesterID {
			continue
		}
		if f.Interrupted && req.DecisionInProgress == "" {
			continue
		}
		if f.Interrupted && !f.MarkedBefore.IsZero() && req.DecisionMarkedAt != nil && !req.DecisionMarkedAt.Before(f.MarkedBefore) {
			continue
		}
		out = append(out, cloneRequest(req))
	}
	return out, nil
}

func (r *memApprovalRepo) MarkDecisionInProgress(_ context.Context, id string, d domain.Decision, decidedBy, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.items[id]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if req.Status != domain.RequestPending || (req.DecisionInProgress != "" && req.DecisionInProgress != d) {
		return domain.ErrInvalidTransition
	}
	req.DecisionInProgress = d
	req.DecisionMarkedAt = &at
	req.DecidedBy = decidedBy
	req.RejectionReason = reason
	return nil
}

func (r *memApprovalRepo) Finalize(_ context.Context, id string, d domain.Decision, decidedBy, reason string, at time.Time) (*domain.ApprovalRequest, error) {
	if hook := r.beforeFinalize; hook != nil {
		r.beforeFinalize = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalizeErr != nil {
		return nil, r.finalizeErr
	}
	req, ok := r.items[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	if req.Status != domain.RequestPending || req.DecisionInProgress != d {
		return nil, domain.ErrInvalidTransition
	}
	req.Status = d.Status()
	req.DecisionInProgress = ""
	req.DecisionMarkedAt = nil
	req.DecidedBy = decidedBy
	req.RejectionReason = reason
	req.DecidedAt = &at
	return cloneRequest(req), nil
}

func (r *memApprovalRepo) get(id string) *domain.ApprovalRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneRequest(r.items[id])
}

type stubGuard struct {
	deny     bool
	err      error
	releases int
}

func (g *stubGuard) Acquire(context.Context, string, string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	return !g.deny, nil
}

func (g *stubGuard) Release(context.Context, string, string) error {
	g.releases++
	return nil
}

type stubThrottle struct {
	deny bool
	err  error
}

func (t stubThrottle) Allow(context.Context, string) (bool, error) {
	if t.err != nil {
		return false, t.err
	}
	return !t.deny, nil
}

// memFeed delivers published changes synchronously to subscribers.
type memFeed struct {
	mu         sync.Mutex
	subs       map[int]memSub
	next       int
	published  []ports.IdentityChange
	publishErr error
}

type memSub struct {
	identityID string
	onChange   func(ports.IdentityChange)
}

type memHandle struct {
	feed *memFeed
	id   int
}

func (h memHandle) Close() error {
	h.feed.mu.Lock()
	defer h.feed.mu.Unlock()
	delete(h.feed.subs, h.id)
	return nil
}

func newMemFeed() *memFeed {
	return &memFeed{subs: make(map[int]memSub)}
}

func (f *memFeed) Publish(_ context.Context, change ports.IdentityChange) error {
	f.mu.Lock()
	if f.publishErr != nil {
		f.mu.Unlock()
		return f.publishErr
	}
	f.published = append(f.published, change)
	var targets []func(ports.IdentityChange)
	for _, s := range f.subs {
		if s.identityID == change.IdentityID {
			targets = append(targets, s.onChange)
		}
	}
	f.mu.Unlock()

	for _, fn := range targets {
		fn(change)
	}
	return nil
}

func (f *memFeed) Subscribe(_ context.Context, identityID string, onChange func(ports.IdentityChange), _ func(error)) (ports.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.subs[f.next] = memSub{identityID: identityID, onChange: onChange}
	return memHandle{feed: f, id: f.next}, nil
}

func (f *memFeed) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

// memPersister is an in-memory SessionPersister.
type memPersister struct {
	mu    sync.Mutex
	saved map[string]map[string]any
}

func newMemPersister() *memPersister {
	return &memPersister{saved: make(map[string]map[string]any)}
}

func (p *memPersister) Save(_ context.Context, id string, fields map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved[id] = fields
	return nil
}

func (p *memPersister) Load(_ context.Context, id string) (map[string]any, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.saved[id]
	return f, ok, nil
}

func (p *memPersister) Delete(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.saved, id)
	return nil
}
