package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
)

const (
	minSecretLength = 32

	prefixDenylist = "token:deny:"
	prefixRefresh  = "token:refresh:"
	prefixRevoked  = "token:revoked:"
)

// Config of the token service.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Leeway tolerates clock skew on iat. Expiry is always checked strictly.
	Leeway time.Duration

	CodeTTL       time.Duration
	ResetTokenTTL time.Duration
}

// Service issues, verifies and revokes tokens.
type Service struct {
	cfg    Config
	store  fiber.Storage
	now    func() time.Time
	parser *jwt.Parser
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New returns a Service keeping denylist, refresh and revocation entries in store.
func New(cfg Config, store fiber.Storage, opts ...Option) (*Service, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, ErrSecretTooShort
	}

	if store == nil {
		return nil, ErrNoStore
	}

	s := &Service{
		cfg:   cfg,
		store: store,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)

	return s, nil
}

// IssueAccessToken signs an access token for id valid for AccessTTL.
func (s *Service) IssueAccessToken(_ context.Context, id Identity) (string, error) {
	signed, _, err := s.sign(id, TypeAccess, s.cfg.AccessTTL)

	return signed, err
}

// IssueRefreshToken signs a refresh token for id and records it in the refresh store.
func (s *Service) IssueRefreshToken(ctx context.Context, id Identity) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err //nolint:wrapcheck
	}

	signed, claims, err := s.sign(id, TypeRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return "", err
	}

	subject := strconv.FormatUint(id.SubjectID, 10)
	if err = s.store.Set(prefixRefresh+claims.ID, []byte(subject), s.cfg.RefreshTTL); err != nil {
		return "", apperror.Internal(fmt.Errorf("record refresh token: %w", err))
	}

	return signed, nil
}

// IssuePair issues an access token and a refresh token for id.
func (s *Service) IssuePair(ctx context.Context, id Identity) (Pair, error) {
	access, err := s.IssueAccessToken(ctx, id)
	if err != nil {
		return Pair{}, err
	}

	refresh, err := s.IssueRefreshToken(ctx, id)
	if err != nil {
		return Pair{}, err
	}

	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) sign(id Identity, typ Type, ttl time.Duration) (string, *Claims, error) {
	now := s.now()

	claims := &Claims{
		SubjectID: id.SubjectID,
		Email:     id.Email,
		Role:      id.Role,
		Type:      typ,

		IssuedAtMilli: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", nil, apperror.TokenIssuance(err)
	}

	return signed, claims, nil
}

// VerifyAccessToken returns the claims of a valid access token.
// Every rejection is ErrInvalidToken, only revocation store failures differ.
func (s *Service) VerifyAccessToken(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.parse(raw, TypeAccess)
	if err != nil {
		return nil, err
	}

	denied, err := s.denylisted(ctx, raw)
	if err != nil {
		return nil, err
	}

	if denied {
		return nil, ErrInvalidToken
	}

	if err = s.checkWatermark(ctx, claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// VerifyRefreshToken returns the claims of a refresh token that is still recorded.
func (s *Service) VerifyRefreshToken(ctx context.Context, raw string) (*Claims, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	claims, err := s.parse(raw, TypeRefresh)
	if err != nil {
		return nil, err
	}

	subject, err := s.store.Get(prefixRefresh + claims.ID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("read refresh token: %w", err))
	}

	if string(subject) != strconv.FormatUint(claims.SubjectID, 10) {
		return nil, ErrInvalidToken
	}

	if err = s.checkWatermark(ctx, claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// Resolver reloads an identity before new tokens are issued, e.g. to pick up a role change.
type Resolver func(ctx context.Context, id Identity) (Identity, error)

// Refresh rotates a refresh token: the presented one is removed and a new pair is issued.
// resolve may be nil to keep the identity of the refresh token.
func (s *Service) Refresh(ctx context.Context, raw string, resolve Resolver) (Pair, error) {
	claims, err := s.VerifyRefreshToken(ctx, raw)
	if err != nil {
		return Pair{}, err
	}

	if err = s.store.Delete(prefixRefresh + claims.ID); err != nil {
		return Pair{}, apperror.Internal(fmt.Errorf("rotate refresh token: %w", err))
	}

	id := claims.Identity()

	if resolve != nil {
		if id, err = resolve(ctx, id); err != nil {
			return Pair{}, err
		}
	}

	return s.IssuePair(ctx, id)
}

// RevokeRefreshToken removes a refresh token from the refresh store.
func (s *Service) RevokeRefreshToken(ctx context.Context, raw string) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}

	claims, err := s.parse(raw, TypeRefresh)
	if err != nil {
		return err
	}

	if err = s.store.Delete(prefixRefresh + claims.ID); err != nil {
		return apperror.Internal(fmt.Errorf("revoke refresh token: %w", err))
	}

	return nil
}

// Denylist rejects raw until it would have expired anyway.
func (s *Service) Denylist(ctx context.Context, raw, reason string) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}

	ttl := s.cfg.AccessTTL

	var claims Claims
	if _, _, err := s.parser.ParseUnverified(raw, &claims); err == nil && claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}

	if ttl <= 0 {
		return nil
	}

	if err := s.store.Set(prefixDenylist+fingerprint(raw), []byte(reason), ttl); err != nil {
		return apperror.Internal(fmt.Errorf("denylist token: %w", err))
	}

	log.Info().Str("jti", claims.ID).Uint64("subject", claims.SubjectID).Str("reason", reason).
		Msg("token denylisted")

	return nil
}

// IsDenylisted reports whether raw was denylisted. A failing store counts as denylisted.
func (s *Service) IsDenylisted(ctx context.Context, raw string) bool {
	denied, err := s.denylisted(ctx, raw)
	if err != nil {
		log.Error().Err(err).Msg("denylist lookup failed")

		return true
	}

	return denied
}

func (s *Service) denylisted(ctx context.Context, raw string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err //nolint:wrapcheck
	}

	v, err := s.store.Get(prefixDenylist + fingerprint(raw))
	if err != nil {
		return false, apperror.Internal(fmt.Errorf("read denylist: %w", err))
	}

	return v != nil, nil
}

// RevokeAllForSubject rejects every token of subjectID issued up to now.
func (s *Service) RevokeAllForSubject(ctx context.Context, subjectID uint64, reason string) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}

	// older tokens are expired once the longest lifetime has passed
	ttl := max(s.cfg.AccessTTL, s.cfg.RefreshTTL) + s.cfg.Leeway
	watermark := strconv.FormatInt(s.now().UnixMilli(), 10)

	if err := s.store.Set(prefixRevoked+strconv.FormatUint(subjectID, 10), []byte(watermark), ttl); err != nil {
		return apperror.Internal(fmt.Errorf("revoke subject tokens: %w", err))
	}

	log.Info().Uint64("subject", subjectID).Str("reason", reason).Msg("all tokens of subject revoked")

	return nil
}

func (s *Service) checkWatermark(ctx context.Context, claims *Claims) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}

	v, err := s.store.Get(prefixRevoked + strconv.FormatUint(claims.SubjectID, 10))
	if err != nil {
		return apperror.Internal(fmt.Errorf("read revocation watermark: %w", err))
	}

	if v == nil {
		return nil
	}

	watermark, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return apperror.Internal(fmt.Errorf("corrupt revocation watermark %q: %w", v, err))
	}

	if claims.IssuedAtMilli <= watermark {
		return ErrInvalidToken
	}

	return nil
}

func (s *Service) parse(raw string, typ Type) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}

	tok, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	})

	switch {
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	case !tok.Valid:
		return nil, ErrInvalidToken
	}

	// explicit, the library tolerates leeway on exp
	if claims.ExpiresAt == nil || !s.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrInvalidToken
	}

	if claims.Type != typ || claims.SubjectID == 0 || claims.IssuedAt == nil || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	// both carry the issue time, iat only to the second
	if claims.IssuedAtMilli/1000 != claims.IssuedAt.Unix() {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// IsInvalid reports whether err is a token rejection rather than a store failure.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))

	return hex.EncodeToString(sum[:])
}
