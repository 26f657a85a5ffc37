// Package handlertest builds a fully wired API on sqlite and in-memory caches for handler tests.
package handlertest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/auth"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/config"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/credential"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/controller/userstore"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/models"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/notify"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/recovery"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/token"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler"
)

// Password passes every strength rule.
const Password = "S3cure!Passw0rd"

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// Config returns the configuration the environment is built from.
func Config() *config.Config {
	return &config.Config{
		Title: "Test",
		Webserver: config.Webserver{
			Port:        3000,
			URL:         "http://localhost:3000",
			PublicPaths: config.DefaultPublicPaths(),
		},
		Auth: config.Auth{LocalDB: config.LocalDBAuth{Enabled: true}, ModeratorLabel: "moderador"},
		Token: config.Token{
			Secret:     "0123456789abcdef0123456789abcdef",
			Issuer:     "usuarios-api",
			Audience:   "usuarios-web",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
		},
		Password: config.Password{Algorithm: "bcrypt", BcryptCost: bcrypt.MinCost, MinLength: 8, StrongLength: 12},
		Recovery: config.Recovery{
			CodeTTL:       15 * time.Minute,
			ResetTokenTTL: 15 * time.Minute,
			RateLimit:     config.RateLimit{Max: 3, Window: time.Minute},
		},
	}
}

// Recorder is a notifier keeping every message.
type Recorder struct {
	mu   sync.Mutex
	sent map[string][]notify.Message
}

// Send implements notify.Notifier.
func (r *Recorder) Send(_ context.Context, to string, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sent == nil {
		r.sent = map[string][]notify.Message{}
	}

	r.sent[to] = append(r.sent[to], msg)

	return nil
}

// Count returns the number of messages sent to to.
func (r *Recorder) Count(to string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sent[to])
}

// LastCode returns the verification code of the last message sent to to.
func (r *Recorder) LastCode(t *testing.T, to string) string {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.sent[to]
	require.NotEmpty(t, msgs, "no message sent to %s", to)

	code := codePattern.FindString(msgs[len(msgs)-1].Body)
	require.NotEmpty(t, code, "no code in message")

	return code
}

// Env is a wired API.
type Env struct {
	t     *testing.T
	App   *fiber.App
	Deps  *handler.Deps
	Users *userstore.GormStore
	Mail  *Recorder
}

// New wires the API with cfg, nil for Config(), and registers services below /api.
func New(t *testing.T, cfg *config.Config, services ...handler.Service) *Env {
	t.Helper()

	if cfg == nil {
		cfg = Config()
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{})
	require.NoError(t, err)

	users, err := userstore.NewGormStore(db)
	require.NoError(t, err)
	require.NoError(t, users.Migrate())

	cache := memory.New()
	t.Cleanup(func() { _ = cache.Close() })

	tokens, err := token.New(token.Config{
		Secret:        []byte(cfg.Token.Secret),
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		CodeTTL:       cfg.Recovery.CodeTTL,
		ResetTokenTTL: cfg.Recovery.ResetTokenTTL,
	}, cache)
	require.NoError(t, err)

	codec, err := credential.New(credential.Config{
		Algorithm:    cfg.Password.Algorithm,
		BcryptCost:   cfg.Password.BcryptCost,
		MinLength:    cfg.Password.MinLength,
		StrongLength: cfg.Password.StrongLength,
		ValidityRule: cfg.Password.ValidityRule,
	})
	require.NoError(t, err)

	catalog, err := auth.NewCatalog(cfg.Auth.ModeratorLabel)
	require.NoError(t, err)

	mail := &Recorder{}

	deps := &handler.Deps{
		Cfg:      cfg,
		Users:    users,
		Tokens:   tokens,
		Codec:    codec,
		Authz:    auth.NewAuthorizer(catalog, tokens, cfg.Webserver.PublicPaths),
		Local:    auth.NewLocalProvider(users, codec, catalog),
		Recovery: recovery.New(users, tokens, codec, mail, recovery.WithTitle(cfg.Title)),
		Cache:    cache,
	}

	app := fiber.New(fiber.Config{ErrorHandler: apperror.FiberErrorHandler})
	api := app.Group(handler.APIPath, auth.Authenticate(deps.Authz))

	for _, s := range services {
		require.NoError(t, s.Init(api, deps))
	}

	return &Env{t: t, App: app, Deps: deps, Users: users, Mail: mail}
}

// Seed creates a local user with Password.
func (e *Env) Seed(email string, role auth.Role) *models.User {
	e.t.Helper()

	u, err := e.Deps.Local.CreateUser(context.Background(), auth.NewUser{
		Email:    email,
		Password: Password,
		Name:     string(role) + " user",
		Role:     role,
	})
	require.NoError(e.t, err)

	return u
}

// Bearer returns an Authorization header value for u.
func (e *Env) Bearer(u *models.User) string {
	e.t.Helper()

	raw, err := e.Deps.Tokens.IssueAccessToken(context.Background(), token.Identity{
		SubjectID: u.ID,
		Email:     u.Email,
		Role:      u.Role,
	})
	require.NoError(e.t, err)

	return "Bearer " + raw
}

// Response is a decoded API answer.
type Response struct {
	Status int
	Header http.Header
	Body   map[string]any
	Raw    string
}

// Do sends a request. body is JSON encoded unless nil.
func (e *Env) Do(method, path string, body any, authorization string) Response {
	e.t.Helper()

	var rd io.Reader

	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)

		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}

	resp, err := e.App.Test(req, -1)
	require.NoError(e.t, err)

	// recovery emails go out in the background
	e.Deps.Recovery.Wait()

	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)

	r := Response{Status: resp.StatusCode, Header: resp.Header, Raw: string(raw)}
	_ = json.Unmarshal(raw, &r.Body)

	return r
}

// String returns the string field key of the body.
func (r Response) String(key string) string {
	s, _ := r.Body[key].(string)

	return s
}

// Object returns the object field key of the body.
func (r Response) Object(key string) map[string]any {
	m, _ := r.Body[key].(map[string]any)

	return m
}
