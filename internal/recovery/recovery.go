// Package recovery implements the password recovery flow:
// request a code by email, exchange the code for a reset token, set a new password.
//
// Every user has at most one outstanding secret, stored on the user row as a
// hash. Requesting a new code replaces it, verifying a code replaces it with a
// reset token and a successful reset clears it. Each step only applies while
// the stored hash is still the one it read, so a secret is consumed once.
//
// Unknown emails and directory accounts are answered exactly like local ones.
// Emails are sent in the background so the answer does not depend on delivery.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/controller/userstore"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/models"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/notify"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/token"
)

const (
	msgInvalidEmail      = "invalid email"
	msgInvalidCode       = "invalid or expired code"
	msgInvalidResetToken = "invalid or expired reset token"

	reasonPasswordReset = "password reset"

	defaultSendTimeout = 30 * time.Second
)

// Tokens issues recovery secrets and revokes sessions.
type Tokens interface {
	IssueVerificationCode() (string, error)
	IssueResetToken() (string, error)
	CodeExpiry(now time.Time) time.Time
	ResetTokenExpiry(now time.Time) time.Time
	RevokeAllForSubject(ctx context.Context, subjectID uint64, reason string) error
}

// Passwords checks and hashes new passwords.
type Passwords interface {
	CheckStrength(plain string) error
	Hash(plain string) (string, error)
}

// Controller runs the recovery flow.
type Controller struct {
	users     userstore.Store
	tokens    Tokens
	passwords Passwords
	notifier  notify.Notifier
	validate  *validator.Validate
	title     string
	now       func() time.Time

	sendTimeout time.Duration
	pending     sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithTitle sets the application name used in email subjects.
func WithTitle(title string) Option {
	return func(c *Controller) {
		c.title = title
	}
}

// WithSendTimeout bounds a single email delivery.
func WithSendTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.sendTimeout = d
		}
	}
}

// New returns a Controller.
func New(
	users userstore.Store,
	tokens Tokens,
	passwords Passwords,
	notifier notify.Notifier,
	opts ...Option,
) *Controller {
	c := &Controller{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		notifier:  notifier,
		validate:  validator.New(),
		title:     "Usuarios",
		now:       time.Now,

		sendTimeout: defaultSendTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RequestCode emails a fresh verification code to a known local account.
// An unknown address or a directory account gets the same answer and no code.
func (c *Controller) RequestCode(ctx context.Context, email string) error {
	email = userstore.NormalizeEmail(email)
	if err := c.validate.Var(email, "required,email"); err != nil {
		return apperror.Validation(msgInvalidEmail)
	}

	u, err := c.users.FindByEmail(ctx, email)
	if err != nil {
		return apperror.Internal(err)
	}

	if u == nil {
		log.Debug().Msg("recovery code requested for unknown email")

		return nil
	}

	if !recoverable(u) {
		log.Info().Uint64("user_id", u.ID).Str("auth_source", string(u.AuthSource)).
			Msg("recovery code requested for directory account")

		return nil
	}

	code, err := c.tokens.IssueVerificationCode()
	if err != nil {
		return apperror.Internal(err)
	}

	now := c.now()
	expires := c.tokens.CodeExpiry(now)
	secret := models.CodeSecret(token.HashSecret(code), expires)

	if _, err = c.users.Update(ctx, u.ID, userstore.Changes{Recovery: &secret}); err != nil {
		return apperror.Internal(err)
	}

	// the code is stored, a failed delivery can be retried with a new request
	c.deliver(ctx, u.ID, u.Email, notify.VerificationCode(c.title, code, expires.Sub(now)),
		"failed to send recovery code")

	log.Info().Uint64("user_id", u.ID).Msg("recovery code issued")

	return nil
}

// VerifyCode exchanges a valid code for a reset token. The code can not be used again.
func (c *Controller) VerifyCode(ctx context.Context, email, code string) (string, error) {
	email = userstore.NormalizeEmail(email)
	if err := c.validate.Var(email, "required,email"); err != nil {
		return "", apperror.Validation(msgInvalidEmail)
	}

	if err := c.validate.Var(code, "required,len=6,numeric"); err != nil {
		return "", apperror.Validation(msgInvalidCode)
	}

	u, err := c.users.FindByEmail(ctx, email)
	if err != nil {
		return "", apperror.Internal(err)
	}

	if u == nil || u.Recovery.IsNone() || u.Recovery.Kind != models.RecoveryCode {
		return "", apperror.Validation(msgInvalidCode)
	}

	if !recoverable(u) {
		c.clear(ctx, u.ID)

		return "", apperror.Validation(msgInvalidCode)
	}

	now := c.now()

	if token.IsExpired(*u.Recovery.ExpiresAt, now) {
		c.clear(ctx, u.ID)

		return "", apperror.Validation(msgInvalidCode)
	}

	if !token.SecretMatches(u.Recovery.Hash, code) {
		log.Info().Uint64("user_id", u.ID).Msg("wrong recovery code")

		return "", apperror.Validation(msgInvalidCode)
	}

	resetToken, err := c.tokens.IssueResetToken()
	if err != nil {
		return "", apperror.Internal(err)
	}

	secret := models.TokenSecret(token.HashSecret(resetToken), c.tokens.ResetTokenExpiry(now))

	_, err = c.users.Update(ctx, u.ID, userstore.Changes{
		Recovery:           &secret,
		ExpectRecoveryHash: &u.Recovery.Hash,
	})
	if errors.Is(err, userstore.ErrRecoveryChanged) {
		log.Info().Uint64("user_id", u.ID).Msg("recovery code consumed concurrently")

		return "", apperror.Validation(msgInvalidCode)
	}

	if err != nil {
		return "", apperror.Internal(err)
	}

	log.Info().Uint64("user_id", u.ID).Msg("recovery code verified")

	return resetToken, nil
}

// ResetPassword sets a new password for the holder of a valid reset token,
// clears the secret and revokes every token of the user.
func (c *Controller) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if err := c.passwords.CheckStrength(newPassword); err != nil {
		return err //nolint:wrapcheck
	}

	if len(resetToken) != token.ResetTokenLen {
		return apperror.Validation(msgInvalidResetToken)
	}

	u, err := c.users.FindByRecoveryHash(ctx, models.RecoveryToken, token.HashSecret(resetToken))
	if err != nil {
		return apperror.Internal(err)
	}

	if u == nil || u.Recovery.IsNone() || !token.SecretMatches(u.Recovery.Hash, resetToken) {
		return apperror.Validation(msgInvalidResetToken)
	}

	if !recoverable(u) {
		c.clear(ctx, u.ID)

		return apperror.Validation(msgInvalidResetToken)
	}

	if token.IsExpired(*u.Recovery.ExpiresAt, c.now()) {
		c.clear(ctx, u.ID)

		return apperror.Validation(msgInvalidResetToken)
	}

	digest, err := c.passwords.Hash(newPassword)
	if err != nil {
		return err //nolint:wrapcheck
	}

	_, err = c.users.Update(ctx, u.ID, userstore.Changes{
		Password:           &digest,
		Recovery:           userstore.Ptr(models.NoRecovery()),
		ExpectRecoveryHash: &u.Recovery.Hash,
	})
	if errors.Is(err, userstore.ErrRecoveryChanged) {
		log.Info().Uint64("user_id", u.ID).Msg("reset token consumed concurrently")

		return apperror.Validation(msgInvalidResetToken)
	}

	if err != nil {
		return apperror.Internal(err)
	}

	if err = c.tokens.RevokeAllForSubject(ctx, u.ID, reasonPasswordReset); err != nil {
		log.Error().Err(err).Uint64("user_id", u.ID).Msg("password reset but tokens not revoked")

		if _, ok := apperror.As(err); ok {
			return err //nolint:wrapcheck
		}

		return apperror.Internal(fmt.Errorf("revoke tokens: %w", err))
	}

	c.deliver(ctx, u.ID, u.Email, notify.PasswordChanged(c.title), "failed to send password change confirmation")

	log.Info().Uint64("user_id", u.ID).Msg("password reset")

	return nil
}

// Wait blocks until every queued email was handed to the notifier or timed out.
func (c *Controller) Wait() {
	c.pending.Wait()
}

// deliver sends msg in the background. The request context only contributes its values,
// the send is bounded by sendTimeout.
func (c *Controller) deliver(ctx context.Context, userID uint64, to string, msg notify.Message, failure string) {
	detached := context.WithoutCancel(ctx)

	c.pending.Go(func() {
		sendCtx, cancel := context.WithTimeout(detached, c.sendTimeout)
		defer cancel()

		if err := c.notifier.Send(sendCtx, to, msg); err != nil {
			log.Warn().Err(err).Uint64("user_id", userID).Msg(failure)
		}
	})
}

// recoverable reports whether the password of u is managed here. Directory accounts change it at the directory.
func recoverable(u *models.User) bool {
	return u.AuthSource == models.AuthSourceLocal
}

// clear drops a secret that can not be used anymore. Failures only leave a dead secret behind.
func (c *Controller) clear(ctx context.Context, id uint64) {
	_, err := c.users.Update(ctx, id, userstore.Changes{Recovery: userstore.Ptr(models.NoRecovery())})
	if err != nil && !errors.Is(err, userstore.ErrUserNotFound) {
		log.Warn().Err(err).Uint64("user_id", id).Msg("failed to clear recovery secret")
	}
}
