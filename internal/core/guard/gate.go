// Package guard decides what a client view may show: the access gate checks
// a view against a route's allowed roles, and the redirect notifier moves a
// user off a registration page once their role has been elevated.
package guard

import "github.com/vivulocal/marketplace-api/internal/core/domain"

const (
	LoginRoute = "/login"
	HomeRoute  = "/"
)

// View is what the gate knows about the viewer.
type View struct {
	// Loading is true while the viewer's profile has not yet synced.
	Loading  bool
	SignedIn bool
	Role     domain.Role
}

// Verdict is the gate's decision.
type Verdict int

const (
	VerdictLoading Verdict = iota
	VerdictRedirectLogin
	VerdictRedirectHome
	VerdictRender
)

func (v Verdict) String() string {
	switch v {
	case VerdictLoading:
		return "loading"
	case VerdictRedirectLogin:
		return "redirect_login"
	case VerdictRedirectHome:
		return "redirect_home"
	case VerdictRender:
		return "render"
	}
	return "unknown"
}

// CanRender gates a role-restricted view. The order is fixed: a loading
// view is never redirected, so a signed-in user whose profile is still
// syncing is not bounced to login.
func CanRender(v View, allowed ...domain.Role) Verdict {
	if v.Loading {
		return VerdictLoading
	}
	if !v.SignedIn {
		return VerdictRedirectLogin
	}
	for _, r := range allowed {
		if r == v.Role {
			return VerdictRender
		}
	}
	return VerdictRedirectHome
}
