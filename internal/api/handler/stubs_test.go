package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/vivulocal/marketplace-api/internal/api/middleware"
	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

func newContext(method, target, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set(middleware.CtxUserID, userID)
	}
	return c, rec
}

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.Identity, error)
	loginFn    func(ctx context.Context, email, password string) (string, *domain.Identity, error)
	externalFn func(ctx context.Context, ext ports.ExternalIdentity) (string, *domain.Identity, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Identity, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.Identity, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) SignInExternal(ctx context.Context, ext ports.ExternalIdentity) (string, *domain.Identity, error) {
	return s.externalFn(ctx, ext)
}

type stubProvider struct {
	ext *ports.ExternalIdentity
	err error
}

func (stubProvider) Name() string { return "google" }

func (stubProvider) ConsentURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (p stubProvider) Exchange(context.Context, string) (*ports.ExternalIdentity, error) {
	return p.ext, p.err
}

type stubProfiles struct {
	getFn    func(ctx context.Context, id string) (*domain.Identity, error)
	updateFn func(ctx context.Context, id string, in ports.UpdateProfileInput) (*domain.Identity, error)
	banFn    func(ctx context.Context, id string, banned bool) (*domain.Identity, error)
}

func (s *stubProfiles) Get(ctx context.Context, id string) (*domain.Identity, error) {
	return s.getFn(ctx, id)
}

func (s *stubProfiles) Update(ctx context.Context, id string, in ports.UpdateProfileInput) (*domain.Identity, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubProfiles) SetBanned(ctx context.Context, id string, banned bool) (*domain.Identity, error) {
	return s.banFn(ctx, id, banned)
}

type stubApprovals struct {
	submitFn func(ctx context.Context, in ports.SubmitRequestInput) (*domain.ApprovalRequest, error)
	pending  []*domain.ApprovalRequest
	approved []*domain.ApprovalRequest
	mine     []*domain.ApprovalRequest
	lastType domain.RequestType
}

func (s *stubApprovals) Submit(ctx context.Context, in ports.SubmitRequestInput) (*domain.ApprovalRequest, error) {
	return s.submitFn(ctx, in)
}

func (s *stubApprovals) ListPending(context.Context) ([]*domain.ApprovalRequest, error) {
	return s.pending, nil
}

func (s *stubApprovals) ListApproved(_ context.Context, t domain.RequestType) ([]*domain.ApprovalRequest, error) {
	s.lastType = t
	return s.approved, nil
}

func (s *stubApprovals) ListMine(context.Context, string) ([]*domain.ApprovalRequest, error) {
	return s.mine, nil
}

type stubDecisions struct {
	decideFn func(ctx context.Context, in ports.DecideInput) (*ports.DecisionResult, error)
}

func (s *stubDecisions) Decide(ctx context.Context, in ports.DecideInput) (*ports.DecisionResult, error) {
	return s.decideFn(ctx, in)
}

func (s *stubDecisions) ResumeInterrupted(context.Context) (int, error) { return 0, nil }

type stubFeed struct {
	mu         sync.Mutex
	subscribed []string
	closed     int
	handlers   []func(ports.IdentityChange)
}

type stubSub struct{ feed *stubFeed }

func (s stubSub) Close() error {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	s.feed.closed++
	return nil
}

func (f *stubFeed) Publish(context.Context, ports.IdentityChange) error { return nil }

func (f *stubFeed) Subscribe(_ context.Context, id string, onChange func(ports.IdentityChange), _ func(error)) (ports.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, id)
	f.handlers = append(f.handlers, onChange)
	return stubSub{feed: f}, nil
}

// emit delivers a change to every subscriber, as the live feed would.
func (f *stubFeed) emit(change ports.IdentityChange) {
	f.mu.Lock()
	handlers := make([]func(ports.IdentityChange), len(f.handlers))
	copy(handlers, f.handlers)
	f.mu.Unlock()
	for _, h := range handlers {
		h(change)
	}
}

// streamRecorder is a ResponseWriter that can be read while a stream is
// still writing. Every Flush is signalled on flushed.
type streamRecorder struct {
	mu      sync.Mutex
	header  http.Header
	body    bytes.Buffer
	code    int
	flushed chan struct{}
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{header: http.Header{}, flushed: make(chan struct{}, 16)}
}

func (r *streamRecorder) Header() http.Header { return r.header }

func (r *streamRecorder) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.code = code
}

func (r *streamRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.Write(p)
}

func (r *streamRecorder) Flush() {
	r.flushed <- struct{}{}
}

func (r *streamRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.String()
}

type stubPersister struct {
	saved map[string]map[string]any
}

func (p *stubPersister) Save(_ context.Context, id string, fields map[string]any) error {
	if p.saved == nil {
		p.saved = map[string]map[string]any{}
	}
	p.saved[id] = fields
	return nil
}

func (p *stubPersister) Load(_ context.Context, id string) (map[string]any, bool, error) {
	f, ok := p.saved[id]
	if !ok {
		return nil, false, nil
	}
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out, true, nil
}

func (p *stubPersister) Delete(_ context.Context, id string) error {
	delete(p.saved, id)
	return nil
}
