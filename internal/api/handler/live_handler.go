package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vivulocal/marketplace-api/internal/api/metrics"
	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/guard"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
	"github.com/vivulocal/marketplace-api/internal/core/session"
)

const defaultPingEvery = 25 * time.Second

// LiveHandler serves page views. A stream is one page view: it owns its
// session store and live subscription and releases both when the client
// goes away.
type LiveHandler struct {
	profiles   ports.ProfileService
	feed       ports.ChangeFeed
	persister  ports.SessionPersister
	navTimeout time.Duration
	pingEvery  time.Duration
	log        zerolog.Logger
}

func NewLiveHandler(profiles ports.ProfileService, feed ports.ChangeFeed, persister ports.SessionPersister, navTimeout time.Duration, log zerolog.Logger) *LiveHandler {
	if navTimeout <= 0 {
		navTimeout = 2 * time.Second
	}
	return &LiveHandler{
		profiles:   profiles,
		feed:       feed,
		persister:  persister,
		navTimeout: navTimeout,
		pingEvery:  defaultPingEvery,
		log:        log,
	}
}

// Stream pushes a "view" event whenever the viewer's session changes. The
// first event may be a loading view built from the persisted session; the
// next reflects the stored identity.
//
// @Summary      Live page view
// @Tags         live
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        route  query  string  true  "Page route, e.g. /register-buddy"
// @Success      200
// @Router       /v1/live [get]
func (h *LiveHandler) Stream(c echo.Context) error {
	route := c.QueryParam("route")
	if route == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "route is required")
	}

	ctx := c.Request().Context()
	userID := optionalUserID(c)
	log := h.log.With().Str("route", route).Str("identity_id", userID).Logger()

	store := session.NewStore(h.feed, h.persister, log)
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close live subscription")
		}
	}()
	page := guard.NewPage(route)

	if userID != "" {
		if _, err := store.Restore(ctx, userID); err != nil {
			log.Warn().Err(err).Msg("failed to restore session")
		}
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.LiveSubscriptions.Inc()
	defer metrics.LiveSubscriptions.Dec()

	if err := h.send(w, page, store); err != nil {
		return nil
	}

	h.confirm(ctx, store, userID, log)
	select {
	case <-store.Changes():
	default:
	}
	if err := h.send(w, page, store); err != nil {
		return nil
	}

	ticker := time.NewTicker(h.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-store.Changes():
			if err := h.send(w, page, store); err != nil {
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

// confirm replaces the restored session with the stored identity and starts
// live sync. A failed read leaves the store loading.
func (h *LiveHandler) confirm(ctx context.Context, store *session.Store, userID string, log zerolog.Logger) {
	if userID == "" {
		_ = store.Logout(ctx)
		return
	}

	identity, err := h.profiles.Get(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		_ = store.Logout(ctx)
		return
	case err != nil:
		log.Warn().Err(err).Msg("failed to load identity, view stays loading")
		return
	case identity.Status == domain.StatusBanned:
		_ = store.Logout(ctx)
		return
	}

	if err := store.Login(ctx, identity); err != nil {
		log.Warn().Err(err).Msg("failed to persist session")
	}

	sub, err := store.ListenToUser(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("live sync unavailable")
		return
	}
	store.Attach(sub)

	// Catch a write that landed between the read and the subscription.
	latest, err := h.profiles.Get(ctx, userID)
	if err == nil && latest.UpdatedAt.After(identity.UpdatedAt) {
		if err := store.Login(ctx, latest); err != nil {
			log.Warn().Err(err).Msg("failed to persist session")
		}
	}
}

func (h *LiveHandler) send(w *echo.Response, page *guard.Page, store *session.Store) error {
	view := guard.View{Loading: store.Loading()}
	var fields map[string]any
	// A ban arriving over the live feed signs the viewer out.
	if s, ok := store.Current(); ok && !s.Banned() {
		view.SignedIn = true
		view.Role = s.Role()
		fields = s.Fields
	}

	event := viewEvent{
		Route:   page.Route(),
		Loading: view.Loading,
		Session: fields,
		Outcome: page.Evaluate(view),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: view\ndata: %s\n\n", payload); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// Navigation evaluates a route once for the caller. If the identity cannot
// be read within the navigation timeout the answer is "loading".
//
// @Summary      Evaluate a route
// @Tags         live
// @Produce      json
// @Security     BearerAuth
// @Param        route  query     string  true  "Page route"
// @Success      200    {object}  viewEvent
// @Router       /v1/navigation [get]
func (h *LiveHandler) Navigation(c echo.Context) error {
	route := c.QueryParam("route")
	if route == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "route is required")
	}

	view := guard.View{}
	var fields map[string]any

	if userID := optionalUserID(c); userID != "" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), h.navTimeout)
		defer cancel()

		identity, err := h.profiles.Get(ctx, userID)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			view.Loading = true
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return err
		case identity.Status != domain.StatusBanned:
			view.SignedIn = true
			view.Role = identity.Role
			fields = identity.Snapshot()
		}
	}

	page := guard.NewPage(route)
	return c.JSON(http.StatusOK, viewEvent{
		Route:   route,
		Loading: view.Loading,
		Session: fields,
		Outcome: page.Evaluate(view),
	})
}
