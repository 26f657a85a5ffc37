package token_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/storage/memory/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func testConfig() token.Config {
	return token.Config{
		Secret:        []byte(testSecret),
		Issuer:        "usuarios-api",
		Audience:      "usuarios-web",
		AccessTTL:     24 * time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		CodeTTL:       15 * time.Minute,
		ResetTokenTTL: 15 * time.Minute,
	}
}

func newService(t *testing.T) (*token.Service, *clock) {
	t.Helper()

	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	store := memory.New()
	t.Cleanup(func() { _ = store.Close() })

	svc, err := token.New(testConfig(), store, token.WithClock(c.Now))
	require.NoError(t, err)

	return svc, c
}

var alice = token.Identity{SubjectID: 42, Email: "alice@example.com", Role: "usuario"}

func TestNewRejectsShortSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Secret = []byte("short")

	_, err := token.New(cfg, memory.New())
	require.ErrorIs(t, err, token.ErrSecretTooShort)

	_, err = token.New(testConfig(), nil)
	require.ErrorIs(t, err, token.ErrNoStore)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()

	raw, err := svc.IssueAccessToken(ctx, alice)
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(ctx, raw)
	require.NoError(t, err)

	assert.Equal(t, alice, claims.Identity())
	assert.Equal(t, token.TypeAccess, claims.Type)
	assert.Equal(t, "usuarios-api", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"usuarios-web"}, claims.Audience)
	assert.WithinDuration(t, c.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Millisecond)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyAccessTokenRejects(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()

	valid, err := svc.IssueAccessToken(ctx, alice)
	require.NoError(t, err)

	refresh, err := svc.IssueRefreshToken(ctx, alice)
	require.NoError(t, err)

	sign := func(method jwt.SigningMethod, key any, mutate func(*token.Claims)) string {
		claims := &token.Claims{
			SubjectID: alice.SubjectID,
			Email:     alice.Email,
			Role:      alice.Role,
			Type:      token.TypeAccess,

			IssuedAtMilli: c.Now().UnixMilli(),
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "usuarios-api",
				Audience:  jwt.ClaimStrings{"usuarios-web"},
				IssuedAt:  jwt.NewNumericDate(c.Now()),
				ExpiresAt: jwt.NewNumericDate(c.Now().Add(time.Hour)),
				ID:        "jti-1",
			},
		}
		mutate(claims)

		s, errSign := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, errSign)

		return s
	}

	secret := []byte(testSecret)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "garbage", raw: "not.a.jwt"},
		{name: "tampered payload", raw: tamper(valid)},
		{name: "wrong secret", raw: sign(jwt.SigningMethodHS256, []byte(strings.Repeat("x", 32)), func(*token.Claims) {})},
		{name: "wrong algorithm", raw: sign(jwt.SigningMethodHS512, secret, func(*token.Claims) {})},
		{name: "alg none", raw: sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, func(*token.Claims) {})},
		{name: "wrong issuer", raw: sign(jwt.SigningMethodHS256, secret, func(c *token.Claims) { c.Issuer = "other" })},
		{
			name: "wrong audience",
			raw:  sign(jwt.SigningMethodHS256, secret, func(c *token.Claims) { c.Audience = jwt.ClaimStrings{"x"} }),
		},
		{
			name: "back dated",
			raw: sign(jwt.SigningMethodHS256, secret, func(c *token.Claims) {
				c.ExpiresAt = jwt.NewNumericDate(c.IssuedAt.Add(-time.Second))
			}),
		},
		{name: "missing exp", raw: sign(jwt.SigningMethodHS256, secret, func(c *token.Claims) { c.ExpiresAt = nil })},
		{name: "missing subject", raw: sign(jwt.SigningMethodHS256, secret, func(c *token.Claims) { c.SubjectID = 0 })},
		{name: "missing iat_ms", raw: sign(jwt.SigningMethodHS256, secret, func(c *token.Claims) { c.IssuedAtMilli = 0 })},
		{
			name: "iat_ms after iat",
			raw: sign(jwt.SigningMethodHS256, secret, func(c *token.Claims) {
				c.IssuedAtMilli += time.Hour.Milliseconds()
			}),
		},
		{name: "refresh token", raw: refresh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, errVerify := svc.VerifyAccessToken(ctx, tt.raw)
			require.ErrorIs(t, errVerify, token.ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestAccessTokenExpires(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()

	raw, err := svc.IssueAccessToken(ctx, alice)
	require.NoError(t, err)

	c.Advance(24*time.Hour - time.Second)

	_, err = svc.VerifyAccessToken(ctx, raw)
	require.NoError(t, err)

	c.Advance(time.Second)

	_, err = svc.VerifyAccessToken(ctx, raw)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestDenylist(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	raw, err := svc.IssueAccessToken(ctx, alice)
	require.NoError(t, err)

	other, err := svc.IssueAccessToken(ctx, alice)
	require.NoError(t, err)

	assert.False(t, svc.IsDenylisted(ctx, raw))
	require.NoError(t, svc.Denylist(ctx, raw, "logout"))
	assert.True(t, svc.IsDenylisted(ctx, raw))

	_, err = svc.VerifyAccessToken(ctx, raw)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = svc.VerifyAccessToken(ctx, other)
	require.NoError(t, err)
}

func TestRevokeAllForSubject(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()

	bob := token.Identity{SubjectID: 7, Email: "bob@example.com", Role: "admin"}

	aliceOld, err := svc.IssueAccessToken(ctx, alice)
	require.NoError(t, err)

	aliceRefresh, err := svc.IssueRefreshToken(ctx, alice)
	require.NoError(t, err)

	bobToken, err := svc.IssueAccessToken(ctx, bob)
	require.NoError(t, err)

	c.Advance(time.Second)
	require.NoError(t, svc.RevokeAllForSubject(ctx, alice.SubjectID, "password reset"))
	c.Advance(time.Second)

	_, err = svc.VerifyAccessToken(ctx, aliceOld)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = svc.VerifyRefreshToken(ctx, aliceRefresh)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = svc.VerifyAccessToken(ctx, bobToken)
	require.NoError(t, err, "other subjects are untouched")

	aliceNew, err := svc.IssueAccessToken(ctx, alice)
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(ctx, aliceNew)
	require.NoError(t, err, "tokens issued after the revocation are valid")
}

func TestRevokeAllForSubjectWithinASecond(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()

	before, err := svc.IssueAccessToken(ctx, alice)
	require.NoError(t, err)

	c.Advance(300 * time.Millisecond)
	require.NoError(t, svc.RevokeAllForSubject(ctx, alice.SubjectID, "role changed"))
	c.Advance(300 * time.Millisecond)

	after, err := svc.IssueAccessToken(ctx, alice)
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(ctx, before)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = svc.VerifyAccessToken(ctx, after)
	require.NoError(t, err, "same second as the revocation but issued after it")
}

func TestIssuedAtOnTheWire(t *testing.T) {
	svc, c := newService(t)
	c.Advance(600 * time.Millisecond)

	raw, err := svc.IssueAccessToken(context.Background(), alice)
	require.NoError(t, err)

	payload, err := base64.RawURLEncoding.DecodeString(strings.Split(raw, ".")[1])
	require.NoError(t, err)

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var all map[string]any
	require.NoError(t, dec.Decode(&all))

	fields := map[string]json.Number{}

	for _, k := range []string{"iat", "exp", "iat_ms"} {
		n, ok := all[k].(json.Number)
		require.True(t, ok, "%s is not a number", k)

		fields[k] = n
	}

	assert.Equal(t, strconv.FormatInt(c.Now().Unix(), 10), fields["iat"].String(), "whole seconds")
	assert.Equal(t, strconv.FormatInt(c.Now().Add(24*time.Hour).Unix(), 10), fields["exp"].String())
	assert.Equal(t, strconv.FormatInt(c.Now().UnixMilli(), 10), fields["iat_ms"].String())
}

func TestRefreshRotates(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()

	first, err := svc.IssuePair(ctx, alice)
	require.NoError(t, err)

	c.Advance(time.Minute)

	promoted := func(_ context.Context, id token.Identity) (token.Identity, error) {
		id.Role = "moderador"

		return id, nil
	}

	second, err := svc.Refresh(ctx, first.RefreshToken, promoted)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	claims, err := svc.VerifyAccessToken(ctx, second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "moderador", claims.Role)

	_, err = svc.Refresh(ctx, first.RefreshToken, nil)
	require.ErrorIs(t, err, token.ErrInvalidToken, "a used refresh token is gone")

	_, err = svc.Refresh(ctx, first.AccessToken, nil)
	require.ErrorIs(t, err, token.ErrInvalidToken, "access tokens do not refresh")

	require.NoError(t, svc.RevokeRefreshToken(ctx, second.RefreshToken))

	_, err = svc.VerifyRefreshToken(ctx, second.RefreshToken)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func tamper(raw string) string {
	parts := strings.Split(raw, ".")
	payload := []byte(parts[1])

	if payload[0] == 'a' {
		payload[0] = 'b'
	} else {
		payload[0] = 'a'
	}

	parts[1] = string(payload)

	return strings.Join(parts, ".")
}
