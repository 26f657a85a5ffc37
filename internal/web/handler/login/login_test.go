package login_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/auth"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler/handlertest"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler/login"
)

func newEnv(t *testing.T) *handlertest.Env {
	t.Helper()

	return handlertest.New(t, nil, &login.Service{})
}

func TestInitRequiresDeps(t *testing.T) {
	t.Parallel()

	env := newEnv(t)

	s := &login.Service{}
	require.Error(t, s.Init(env.App, nil))
	require.Error(t, s.Init(nil, env.Deps))
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	env := newEnv(t)

	resp := env.Do(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "Carol@Example.com",
		"password": handlertest.Password,
		"name":     "Carol",
	}, "")
	require.Equal(t, http.StatusCreated, resp.Status, resp.Raw)
	assert.Equal(t, true, resp.Body["success"])
	assert.Equal(t, "carol@example.com", resp.Object("user")["email"])
	assert.Equal(t, string(auth.RoleUser), resp.Object("user")["role"])
	assert.NotContains(t, resp.Raw, "password\":")

	resp = env.Do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "carol@example.com",
		"password": handlertest.Password,
	}, "")
	require.Equal(t, http.StatusOK, resp.Status, resp.Raw)
	assert.NotEmpty(t, resp.String("token"))
	assert.NotEmpty(t, resp.String("refreshToken"))

	claims, err := env.Deps.Tokens.VerifyAccessToken(t.Context(), resp.String("token"))
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", claims.Email)
	assert.Equal(t, string(auth.RoleUser), claims.Role)
}

func TestRegisterRejects(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.Seed("taken@example.com", auth.RoleUser)

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{
			name:   "missing name",
			body:   map[string]string{"email": "a@example.com", "password": handlertest.Password},
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid email",
			body:   map[string]string{"email": "nope", "password": handlertest.Password, "name": "A"},
			status: http.StatusBadRequest,
		},
		{
			name:   "weak password",
			body:   map[string]string{"email": "a@example.com", "password": "short", "name": "A"},
			status: http.StatusBadRequest,
		},
		{
			name:   "email taken",
			body:   map[string]string{"email": "TAKEN@example.com", "password": handlertest.Password, "name": "A"},
			status: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.Do(http.MethodPost, "/api/auth/register", tt.body, "")
			assert.Equal(t, tt.status, resp.Status, resp.Raw)
			assert.Equal(t, false, resp.Body["success"])
			assert.NotEmpty(t, resp.String("message"))
		})
	}
}

func TestLoginRejects(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.Seed("alice@example.com", auth.RoleUser)

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"wrong password", map[string]string{"email": "alice@example.com", "password": "Wr0ng!Password"}, http.StatusUnauthorized},
		{"unknown email", map[string]string{"email": "bob@example.com", "password": handlertest.Password}, http.StatusUnauthorized},
		{"missing password", map[string]string{"email": "alice@example.com"}, http.StatusBadRequest},
		{"unknown source", map[string]string{"email": "alice@example.com", "password": handlertest.Password, "source": "oidc"}, http.StatusBadRequest},
		{"ldap disabled", map[string]string{"email": "alice@example.com", "password": handlertest.Password, "source": "ldap"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.Do(http.MethodPost, "/api/auth/login", tt.body, "")
			assert.Equal(t, tt.status, resp.Status, resp.Raw)
			assert.Empty(t, resp.String("token"))
		})
	}

	// both credential failures share one message
	wrong := env.Do(http.MethodPost, "/api/auth/login", tests[0].body, "")
	unknown := env.Do(http.MethodPost, "/api/auth/login", tests[1].body, "")
	assert.Equal(t, wrong.String("message"), unknown.String("message"))
}

func TestLoginLocalDisabled(t *testing.T) {
	t.Parallel()

	cfg := handlertest.Config()
	cfg.Auth.LocalDB.Enabled = false

	env := handlertest.New(t, cfg, &login.Service{})
	env.Seed("alice@example.com", auth.RoleUser)

	resp := env.Do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": handlertest.Password,
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	alice := env.Seed("alice@example.com", auth.RoleUser)

	session := env.Do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": handlertest.Password,
	}, "")
	require.Equal(t, http.StatusOK, session.Status, session.Raw)

	refresh := session.String("refreshToken")

	resp := env.Do(http.MethodPost, "/api/auth/refresh", map[string]string{"refreshToken": refresh}, "")
	require.Equal(t, http.StatusOK, resp.Status, resp.Raw)
	assert.NotEmpty(t, resp.String("token"))
	assert.NotEqual(t, refresh, resp.String("refreshToken"))

	// rotated tokens are single use
	resp = env.Do(http.MethodPost, "/api/auth/refresh", map[string]string{"refreshToken": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = env.Do(http.MethodPost, "/api/auth/refresh", map[string]string{"refreshToken": "garbage"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	pair, err := env.Deps.Tokens.IssuePair(t.Context(), identity(alice.ID, alice.Email, alice.Role))
	require.NoError(t, err)

	inactive := false
	_, err = env.Users.Update(t.Context(), alice.ID, changesActive(inactive))
	require.NoError(t, err)

	resp = env.Do(http.MethodPost, "/api/auth/refresh", map[string]string{"refreshToken": pair.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.Seed("alice@example.com", auth.RoleUser)

	session := env.Do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": handlertest.Password,
	}, "")
	require.Equal(t, http.StatusOK, session.Status, session.Raw)

	bearer := "Bearer " + session.String("token")

	resp := env.Do(http.MethodPost, "/api/auth/logout", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = env.Do(http.MethodPost, "/api/auth/logout",
		map[string]string{"refreshToken": session.String("refreshToken")}, bearer)
	require.Equal(t, http.StatusOK, resp.Status, resp.Raw)

	assert.True(t, env.Deps.Tokens.IsDenylisted(t.Context(), session.String("token")))

	resp = env.Do(http.MethodPost, "/api/auth/logout", nil, bearer)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = env.Do(http.MethodPost, "/api/auth/refresh",
		map[string]string{"refreshToken": session.String("refreshToken")}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestPasswordStrength(t *testing.T) {
	t.Parallel()

	env := newEnv(t)

	resp := env.Do(http.MethodGet, "/api/auth/password-strength", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = env.Do(http.MethodGet, "/api/auth/password-strength?password=S3cure%21Passw0rd", nil, "")
	require.Equal(t, http.StatusOK, resp.Status, resp.Raw)
	assert.NotNil(t, resp.Object("strength"))
}
