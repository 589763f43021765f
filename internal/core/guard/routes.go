package guard

import "github.com/vivulocal/marketplace-api/internal/core/domain"

// registrationRoutes maps each waiting page to the role it waits for.
var registrationRoutes = map[string]domain.Role{
	"/register-partner": domain.RoleManager,
	"/register-buddy":   domain.RoleBuddy,
}

// protectedRoutes lists the roles allowed on each restricted page. Pages not
// listed are public.
var protectedRoutes = map[string][]domain.Role{
	"/admin/dashboard":   {domain.RoleAdmin},
	"/buddy/dashboard":   {domain.RoleBuddy},
	"/manager/dashboard": {domain.RoleManager},
	"/profile":           domain.Roles(),
	"/register-buddy":    domain.Roles(),
	"/register-partner":  domain.Roles(),
}

// AllowedRoles returns the roles allowed on route and whether it is
// restricted at all.
func AllowedRoles(route string) ([]domain.Role, bool) {
	roles, ok := protectedRoutes[route]
	return roles, ok
}

// Action is what the client should do with a page.
type Action string

const (
	ActionLoading  Action = "loading"
	ActionRender   Action = "render"
	ActionRedirect Action = "redirect"
)

// Outcome is one evaluation of a page.
type Outcome struct {
	Action   Action    `json:"action"`
	Redirect *Redirect `json:"redirect,omitempty"`
}

// Page is the single authoritative guard for one page view: the access gate
// followed by the redirect notifier.
type Page struct {
	route     string
	allowed   []domain.Role
	protected bool
	notifier  *Notifier
}

func NewPage(route string) *Page {
	allowed, protected := AllowedRoles(route)
	return &Page{
		route:     route,
		allowed:   allowed,
		protected: protected,
		notifier:  NewNotifier(route),
	}
}

func (p *Page) Route() string { return p.route }

// Notifier exposes the page's notifier state.
func (p *Page) Notifier() *Notifier { return p.notifier }

// Evaluate decides what to do for the viewer right now.
func (p *Page) Evaluate(v View) Outcome {
	if p.protected {
		switch CanRender(v, p.allowed...) {
		case VerdictLoading:
			return Outcome{Action: ActionLoading}
		case VerdictRedirectLogin:
			return Outcome{Action: ActionRedirect, Redirect: &Redirect{To: LoginRoute, Replace: true}}
		case VerdictRedirectHome:
			return Outcome{Action: ActionRedirect, Redirect: &Redirect{To: HomeRoute, Replace: true}}
		case VerdictRender:
		}
	}

	// A session restored from cache may be stale; wait for sync before
	// celebrating.
	if v.SignedIn && !v.Loading {
		if r, fired := p.notifier.Observe(v.Role); fired {
			return Outcome{Action: ActionRedirect, Redirect: &r}
		}
	}
	return Outcome{Action: ActionRender}
}
