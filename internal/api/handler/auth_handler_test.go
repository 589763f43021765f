package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*domain.Identity, error) {
			assert.Equal(t, "alice@example.com", in.Email)
			assert.Equal(t, "Alice", in.DisplayName)
			return &domain.Identity{ID: "u1", Email: in.Email, Role: domain.RoleUser, PasswordHash: "hash"}, nil
		},
	}
	h := NewAuthHandler(stub, stubProvider{}, "http://localhost:5173")

	c, rec := newContext(http.MethodPost, "/auth/register", `{"email":"alice@example.com","password":"secret1","display_name":"Alice"}`, "")
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	user := resp["user"].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, rec.Body.String(), "hash")
}

func TestAuthHandler_Login_PropagatesAuthError(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (string, *domain.Identity, error) {
			return "", nil, domain.NewAuthError(domain.AuthInvalidCredentials, nil)
		},
	}
	h := NewAuthHandler(stub, stubProvider{}, "")

	c, _ := newContext(http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"x"}`, "")
	var aerr *domain.AuthError
	require.ErrorAs(t, h.Login(c), &aerr)
	assert.Equal(t, domain.AuthInvalidCredentials, aerr.Code)
}

func TestAuthHandler_Login_BadPayload(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, stubProvider{}, "")

	c, _ := newContext(http.MethodPost, "/auth/login", `{"email":`, "")
	assert.Error(t, h.Login(c))
}

func TestAuthHandler_GoogleStart_SetsState(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, stubProvider{}, "")

	c, rec := newContext(http.MethodGet, "/auth/oauth/google", "", "")
	require.NoError(t, h.GoogleStart(c))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	cookie := rec.Result().Cookies()[0]
	assert.Equal(t, oauthStateCookie, cookie.Name)
	assert.True(t, strings.HasSuffix(rec.Header().Get("Location"), "state="+cookie.Value))
}

func TestAuthHandler_GoogleCallback(t *testing.T) {
	stub := &stubAuthService{
		externalFn: func(_ context.Context, ext ports.ExternalIdentity) (string, *domain.Identity, error) {
			assert.Equal(t, "carol@example.com", ext.Email)
			return "jwt-token", &domain.Identity{ID: "u9"}, nil
		},
	}
	h := NewAuthHandler(stub, stubProvider{ext: &ports.ExternalIdentity{Provider: "google", Email: "carol@example.com"}}, "http://localhost:5173")

	c, rec := newContext(http.MethodGet, "/auth/oauth/google/callback?state=s1&code=abc", "", "")
	c.Request().AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "s1"})

	require.NoError(t, h.GoogleCallback(c))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "http://localhost:5173/auth/callback#token=jwt-token", rec.Header().Get("Location"))
}

func TestAuthHandler_GoogleCallback_StateMismatch(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, stubProvider{}, "")

	c, _ := newContext(http.MethodGet, "/auth/oauth/google/callback?state=other&code=abc", "", "")
	c.Request().AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "s1"})

	var aerr *domain.AuthError
	require.ErrorAs(t, h.GoogleCallback(c), &aerr)
	assert.Equal(t, domain.AuthInvalidCredentials, aerr.Code)
}
