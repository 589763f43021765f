package guard

import "github.com/vivulocal/marketplace-api/internal/core/domain"

// NotifierState is the per-page state of a Notifier.
type NotifierState int

const (
	Waiting NotifierState = iota
	Notified
)

func (s NotifierState) String() string {
	if s == Notified {
		return "notified"
	}
	return "waiting"
}

// Redirect instructs the client to leave the current page. Replace means the
// page must be replaced in history so back-navigation does not return to it.
type Redirect struct {
	To           string `json:"to"`
	Replace      bool   `json:"replace"`
	Notification string `json:"notification,omitempty"`
}

var approvalNotices = map[domain.Role]string{
	domain.RoleBuddy:   "Congratulations! Your Buddy application has been approved. Welcome aboard!",
	domain.RoleManager: "Congratulations! Your partner application has been approved. Your manager dashboard is ready.",
}

// Notifier watches a registration page for the viewer's role reaching the
// page's expected role. It fires once per instance; a new page view needs a
// new Notifier.
type Notifier struct {
	expected domain.Role
	state    NotifierState
}

// NewNotifier returns a notifier armed for route. Routes that are not
// registration pages yield a notifier that never fires.
func NewNotifier(route string) *Notifier {
	return &Notifier{expected: registrationRoutes[route]}
}

// Expected is the role the page waits for, or "" when it waits for none.
func (n *Notifier) Expected() domain.Role { return n.expected }

func (n *Notifier) State() NotifierState { return n.state }

// Observe reports the redirect to perform for the viewer's current role.
// A role that already matches on the first observation fires exactly like a
// role that just changed.
func (n *Notifier) Observe(role domain.Role) (Redirect, bool) {
	if n.state == Notified || n.expected == "" || role != n.expected {
		return Redirect{}, false
	}
	n.state = Notified
	return Redirect{
		To:           role.DashboardRoute(),
		Replace:      true,
		Notification: approvalNotices[role],
	}, true
}
