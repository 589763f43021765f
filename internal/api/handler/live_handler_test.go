package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivulocal/marketplace-api/internal/api/middleware"
	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/guard"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

func buddy() *domain.Identity {
	return &domain.Identity{ID: "u1", Email: "a@example.com", Role: domain.RoleBuddy, IsVerified: true, Status: domain.StatusActive}
}

func profilesReturning(identity *domain.Identity, err error) *stubProfiles {
	return &stubProfiles{getFn: func(context.Context, string) (*domain.Identity, error) { return identity, err }}
}

func decodeView(t *testing.T, body []byte) viewEvent {
	t.Helper()
	var v viewEvent
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestNavigation_RegistrationPageRedirectsElevatedUser(t *testing.T) {
	h := NewLiveHandler(profilesReturning(buddy(), nil), &stubFeed{}, &stubPersister{}, time.Second, zerolog.Nop())

	c, rec := newContext(http.MethodGet, "/v1/navigation?route=/register-buddy", "", "u1")
	require.NoError(t, h.Navigation(c))

	v := decodeView(t, rec.Body.Bytes())
	assert.Equal(t, guard.ActionRedirect, v.Outcome.Action)
	assert.Equal(t, "/buddy/dashboard", v.Outcome.Redirect.To)
	assert.True(t, v.Outcome.Redirect.Replace)
	assert.Equal(t, "buddy", v.Session["role"])
}

func TestNavigation_Verdicts(t *testing.T) {
	slow := &stubProfiles{getFn: func(ctx context.Context, _ string) (*domain.Identity, error) {
		<-ctx.Done()
		return nil, fmt.Errorf("find identity: %w", ctx.Err())
	}}
	user := &domain.Identity{ID: "u1", Role: domain.RoleUser, Status: domain.StatusActive}

	tests := []struct {
		name     string
		route    string
		userID   string
		profiles *stubProfiles
		action   guard.Action
		to       string
	}{
		{"anonymous on protected page", "/admin/dashboard", "", profilesReturning(nil, nil), guard.ActionRedirect, guard.LoginRoute},
		{"wrong role", "/admin/dashboard", "u1", profilesReturning(user, nil), guard.ActionRedirect, guard.HomeRoute},
		{"identity slow to load", "/admin/dashboard", "u1", slow, guard.ActionLoading, ""},
		{"public page", "/tours", "", profilesReturning(nil, nil), guard.ActionRender, ""},
		{"still waiting for approval", "/register-buddy", "u1", profilesReturning(user, nil), guard.ActionRender, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewLiveHandler(tc.profiles, &stubFeed{}, &stubPersister{}, 20*time.Millisecond, zerolog.Nop())
			c, rec := newContext(http.MethodGet, "/v1/navigation?route="+tc.route, "", tc.userID)

			require.NoError(t, h.Navigation(c))
			v := decodeView(t, rec.Body.Bytes())
			assert.Equal(t, tc.action, v.Outcome.Action)
			if tc.to != "" {
				require.NotNil(t, v.Outcome.Redirect)
				assert.Equal(t, tc.to, v.Outcome.Redirect.To)
			}
		})
	}
}

func TestStream_LoadingThenConfirmed(t *testing.T) {
	feed := &stubFeed{}
	persister := &stubPersister{saved: map[string]map[string]any{
		"u1": {"id": "u1", "role": "user"},
	}}
	h := NewLiveHandler(profilesReturning(buddy(), nil), feed, persister, time.Second, zerolog.Nop())

	c, rec := newContext(http.MethodGet, "/v1/live?route=/register-buddy", "", "u1")
	ctx, cancel := context.WithCancel(c.Request().Context())
	cancel()
	c.SetRequest(c.Request().WithContext(ctx))

	require.NoError(t, h.Stream(c))
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := parseEvents(t, rec.Body.String())
	require.Len(t, events, 2)

	assert.True(t, events[0].Loading)
	assert.Equal(t, guard.ActionLoading, events[0].Outcome.Action)

	assert.False(t, events[1].Loading)
	assert.Equal(t, guard.ActionRedirect, events[1].Outcome.Action)
	assert.Equal(t, "/buddy/dashboard", events[1].Outcome.Redirect.To)

	assert.Equal(t, []string{"u1"}, feed.subscribed)
	assert.Equal(t, 1, feed.closed, "subscription must be released when the stream ends")
}

func TestStream_AnonymousIsSignedOut(t *testing.T) {
	feed := &stubFeed{}
	h := NewLiveHandler(profilesReturning(nil, nil), feed, &stubPersister{}, time.Second, zerolog.Nop())

	c, rec := newContext(http.MethodGet, "/v1/live?route=/profile", "", "")
	ctx, cancel := context.WithCancel(c.Request().Context())
	cancel()
	c.SetRequest(c.Request().WithContext(ctx))

	require.NoError(t, h.Stream(c))

	events := parseEvents(t, rec.Body.String())
	require.Len(t, events, 2)
	assert.Equal(t, guard.ActionRedirect, events[1].Outcome.Action)
	assert.Equal(t, guard.LoginRoute, events[1].Outcome.Redirect.To)
	assert.Empty(t, feed.subscribed)
}

func TestStream_RequiresRoute(t *testing.T) {
	h := NewLiveHandler(profilesReturning(nil, nil), &stubFeed{}, &stubPersister{}, time.Second, zerolog.Nop())

	c, _ := newContext(http.MethodGet, "/v1/live", "", "")
	assert.Error(t, h.Stream(c))
}

// openStream starts Stream for userID on route and returns once the initial
// loading and confirmed views have been flushed.
func openStream(t *testing.T, h *LiveHandler, route, userID string) (*streamRecorder, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/v1/live?route="+route, nil).WithContext(ctx)
	w := newStreamRecorder()
	c := echo.New().NewContext(req, w)
	c.Set(middleware.CtxUserID, userID)

	done := make(chan error, 1)
	go func() { done <- h.Stream(c) }()

	waitFlushes(t, w, 2)
	return w, func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("stream did not stop after the client left")
		}
	}
}

func waitFlushes(t *testing.T, w *streamRecorder, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-w.flushed:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i+1)
		}
	}
}

func TestStream_LiveChanges(t *testing.T) {
	user := &domain.Identity{ID: "u1", Email: "a@example.com", Role: domain.RoleUser, Status: domain.StatusActive}

	tests := []struct {
		name     string
		identity *domain.Identity
		route    string
		change   map[string]any
		signedIn bool
		to       string
		notified bool
	}{
		{"ban on a dashboard signs out", buddy(), "/buddy/dashboard", map[string]any{"status": "banned"}, false, guard.LoginRoute, false},
		{"ban on a public page clears the session", buddy(), "/tours", map[string]any{"status": "banned"}, false, "", false},
		{"approval on the waiting page redirects", user, "/register-buddy", map[string]any{"role": "buddy", "is_verified": true}, true, "/buddy/dashboard", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			feed := &stubFeed{}
			h := NewLiveHandler(profilesReturning(tc.identity, nil), feed, &stubPersister{}, time.Second, zerolog.Nop())

			w, stop := openStream(t, h, tc.route, "u1")
			feed.emit(ports.IdentityChange{IdentityID: "u1", Fields: tc.change, At: time.Now()})
			waitFlushes(t, w, 1)
			stop()

			events := parseEvents(t, w.String())
			require.Len(t, events, 3)
			assert.Equal(t, guard.ActionRender, events[1].Outcome.Action, "the page renders before the change")

			last := events[2]
			assert.Equal(t, tc.signedIn, last.Session != nil)
			if tc.to == "" {
				assert.Equal(t, guard.ActionRender, last.Outcome.Action)
				return
			}
			require.NotNil(t, last.Outcome.Redirect)
			assert.Equal(t, tc.to, last.Outcome.Redirect.To)
			assert.Equal(t, tc.notified, last.Outcome.Redirect.Notification != "")
		})
	}
}

func parseEvents(t *testing.T, body string) []viewEvent {
	t.Helper()
	var out []viewEvent
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		lines := strings.Split(block, "\n")
		require.Equal(t, "event: view", lines[0])
		out = append(out, decodeView(t, []byte(strings.TrimPrefix(lines[1], "data: "))))
	}
	return out
}
