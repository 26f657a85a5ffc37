package auth_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/auth"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/token"
)

func newApp(t *testing.T) (*fiber.App, func(id token.Identity) string) {
	t.Helper()

	authz, tokens := newAuthorizer(t)

	app := fiber.New(fiber.Config{ErrorHandler: apperror.FiberErrorHandler})

	whoami := func(c *fiber.Ctx) error {
		id, ok := auth.IdentityFromContext(c)
		if !ok {
			return c.SendString("anonymous")
		}

		raw, _ := auth.AccessTokenFromContext(c)

		return c.JSON(fiber.Map{"sub": id.SubjectID, "role": id.Role, "hasToken": raw != ""})
	}

	app.Get("/health", auth.Authenticate(authz), whoami)

	api := app.Group("/api", auth.Authenticate(authz))
	api.Get("/profile", auth.RequireAll(authz, auth.PermProfileRead), whoami)
	api.Get("/users", auth.RequireAll(authz, auth.PermUsersReadAll), whoami)
	api.Put("/users/:id",
		auth.RequireAny(authz, auth.PermUsersUpdate, auth.PermProfileUpdate),
		auth.RequireSelfOrAdmin(authz, "id"),
		whoami,
	)

	// a route that forgot Authenticate
	app.Get("/unguarded", auth.RequireAll(authz, auth.PermProfileRead), whoami)

	return app, func(id token.Identity) string { return bearerFor(t, tokens, id) }
}

type response struct {
	status int
	body   map[string]any
	raw    string
}

func do(t *testing.T, app *fiber.App, method, path, authorization string) response {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	r := response{status: resp.StatusCode, raw: string(raw)}
	_ = json.Unmarshal(raw, &r.body)

	return r
}

func TestMiddleware(t *testing.T) {
	app, bearer := newApp(t)

	tests := []struct {
		name    string
		method  string
		path    string
		auth    string
		status  int
		message string
	}{
		{name: "public", method: http.MethodGet, path: "/health", status: http.StatusOK},
		{name: "no token", method: http.MethodGet, path: "/api/profile", status: http.StatusUnauthorized, message: auth.MsgTokenRequired},
		{name: "bad token", method: http.MethodGet, path: "/api/profile", auth: "Bearer nope", status: http.StatusUnauthorized, message: auth.MsgInvalidToken},
		{name: "profile", method: http.MethodGet, path: "/api/profile", auth: bearer(user), status: http.StatusOK},
		{name: "list as user", method: http.MethodGet, path: "/api/users", auth: bearer(user), status: http.StatusForbidden, message: auth.MsgInsufficientRights},
		{name: "list as moderator", method: http.MethodGet, path: "/api/users", auth: bearer(moderator), status: http.StatusOK},
		{name: "update self", method: http.MethodPut, path: "/api/users/" + strconv.FormatUint(user.SubjectID, 10), auth: bearer(user), status: http.StatusOK},
		{name: "update other", method: http.MethodPut, path: "/api/users/1", auth: bearer(user), status: http.StatusForbidden, message: auth.MsgInsufficientRights},
		{name: "update bad id", method: http.MethodPut, path: "/api/users/abc", auth: bearer(user), status: http.StatusForbidden, message: auth.MsgInsufficientRights},
		{name: "admin updates other", method: http.MethodPut, path: "/api/users/3", auth: bearer(admin), status: http.StatusOK},
		{name: "missing authenticate", method: http.MethodGet, path: "/unguarded", auth: bearer(admin), status: http.StatusUnauthorized, message: auth.MsgTokenRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := do(t, app, tt.method, tt.path, tt.auth)

			assert.Equal(t, tt.status, r.status, r.raw)

			if tt.message != "" {
				assert.Equal(t, tt.message, r.body["message"])
				assert.Equal(t, false, r.body["success"])
			}
		})
	}
}

func TestMiddlewareStoresIdentity(t *testing.T) {
	app, bearer := newApp(t)

	r := do(t, app, http.MethodGet, "/api/profile", bearer(moderator))
	require.Equal(t, http.StatusOK, r.status, r.raw)

	assert.InDelta(t, float64(moderator.SubjectID), r.body["sub"], 0)
	assert.Equal(t, "moderador", r.body["role"])
	assert.Equal(t, true, r.body["hasToken"])

	r = do(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, "anonymous", r.raw)
}
