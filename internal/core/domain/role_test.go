package domain

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	for _, r := range Roles() {
		got, err := ParseRole(string(r))
		if err != nil {
			t.Fatalf("ParseRole(%q) returned error: %v", r, err)
		}
		if got != r {
			t.Errorf("ParseRole(%q) = %q", r, got)
		}
	}

	if _, err := ParseRole("partner"); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("expected ErrUnknownRole, got %v", err)
	}
}

func TestRole_DashboardRoute(t *testing.T) {
	cases := map[Role]string{
		RoleUser:    "/",
		RoleBuddy:   "/buddy/dashboard",
		RoleManager: "/manager/dashboard",
		RoleAdmin:   "/admin/dashboard",
	}
	for role, want := range cases {
		if got := role.DashboardRoute(); got != want {
			t.Errorf("%s: expected %q, got %q", role, want, got)
		}
	}
}

func TestRole_Elevated(t *testing.T) {
	if RoleUser.Elevated() {
		t.Error("user must not be elevated")
	}
	for _, r := range []Role{RoleBuddy, RoleManager, RoleAdmin} {
		if !r.Elevated() {
			t.Errorf("%s must be elevated", r)
		}
	}
}
