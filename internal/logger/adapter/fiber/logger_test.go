package fiber_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapter "github.com/ivolevy/grupo5-usuarios-sub001/internal/logger/adapter/fiber"
)

// accessLine implements the access log json format.
type accessLine struct {
	IP           string  `json:"IP"`
	Status       int     `json:"status"`
	XPerformance float64 `json:"X-Performance"`
	URI          string  `json:"URI"`
	Method       string  `json:"method"`
	Host         string  `json:"host"`
	RequestID    string  `json:"requestId"`
	Error        string  `json:"error"`
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		targetPath string
		wantStatus int
		wantURI    string
	}{
		{name: "root", targetPath: "/", wantStatus: fiber.StatusOK, wantURI: "/"},
		{name: "multiple slashes keep requested path", targetPath: "//test", wantStatus: fiber.StatusNotFound, wantURI: "//test"},
		{name: "query string kept", targetPath: "/?test=123", wantStatus: fiber.StatusOK, wantURI: "/?test=123"},
		{
			name:       "password is redacted",
			targetPath: "/api/auth/password-strength?password=Hunter2Secret!",
			wantStatus: fiber.StatusOK,
			wantURI:    "/api/auth/password-strength?password=%2A%2A%2A",
		},
		{
			name:       "only sensitive values are redacted",
			targetPath: "/?code=123456&page=2",
			wantStatus: fiber.StatusOK,
			wantURI:    "/?code=%2A%2A%2A&page=2",
		},
		{name: "failed chain logs error status", targetPath: "/fail", wantStatus: fiber.StatusTeapot, wantURI: "/fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			line := serve(t, tt.targetPath, adapter.Config{Output: &buf}, &buf)

			assert.Equal(t, tt.wantStatus, line.Status)
			assert.Equal(t, tt.wantURI, line.URI)
			assert.Equal(t, fiber.MethodGet, line.Method)
			assert.Equal(t, "example.com", line.Host)
			assert.Equal(t, "0.0.0.0", line.IP)
			assert.NotEmpty(t, line.RequestID)
		})
	}
}

func TestNewSkipsCheckAlive(t *testing.T) {
	var buf bytes.Buffer

	cfg := adapter.Config{Output: &buf, CheckAliveURI: "/health"}
	cfg.Config.DisableCheckAlive = true

	app := newApp(cfg)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, buf.String())
}

func TestNewWithoutWritersIsSilent(t *testing.T) {
	app := newApp(adapter.Config{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Performance"))
}

func newApp(cfg adapter.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		Immutable:     true,
	})

	app.Use(requestid.New())
	app.Use(adapter.New(cfg))

	ok := func(ctx *fiber.Ctx) error { return ctx.SendString("hello test") }

	app.Get("/", ok)
	app.Get("/health", ok)
	app.Get("/api/auth/password-strength", ok)
	app.Get("/fail", func(*fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "nope") })

	return app
}

func serve(t *testing.T, target string, cfg adapter.Config, buf *bytes.Buffer) accessLine {
	t.Helper()

	app := newApp(cfg)

	_, err := app.Test(httptest.NewRequest(fiber.MethodGet, target, nil), 100000)
	require.NoError(t, err)

	var line accessLine
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), "output: %s", buf.String())

	return line
}
