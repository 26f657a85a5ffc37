// Package reset serves the password recovery endpoints.
package reset

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/rs/zerolog/log"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/config"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler"
)

const (
	// Path is the path of the recovery routes, relative to the API group.
	Path = handler.AuthPath

	msgTooManyRequests = "too many requests, try again later"
	msgCodeSent        = "if the email is registered, a verification code has been sent"
)

// Service is the password recovery handler service.
type Service struct {
	handler.Service
	deps      *handler.Deps
	validator *validator.Validate
}

type forgotRequest struct {
	Email string `json:"email" validate:"required,max=255"`
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,max=255"`
	Code  string `json:"code"  validate:"required"`
}

type resetRequest struct {
	Token       string `json:"token"       validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,max=1024"`
}

// Init registers the routes.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil {
		return handler.ErrNilDeps
	}

	if err := deps.Check(); err != nil {
		return err
	}

	s.deps = deps
	s.validator = handler.NewValidator()

	rl := deps.Cfg.Recovery.RateLimit

	router.Route(Path, func(r fiber.Router) {
		r.Post("/forgot-password", RateLimit(rl, deps.Cache, "forgot"), s.ForgotPassword)
		r.Post("/verify-code", RateLimit(rl, deps.Cache, "verify"), s.VerifyCode)
		r.Post("/reset-password", s.ResetPassword)
	})

	return nil
}

// RateLimit allows rl.Max requests per client address and rl.Window on the routes it guards.
// Counters live in store so every instance sharing it enforces the same quota.
func RateLimit(rl config.RateLimit, store fiber.Storage, name string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        rl.Max,
		Expiration: rl.Window,
		Storage:    store,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "recovery:" + name + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			// the limiter sets Retry-After before calling us
			secs, err := strconv.Atoi(c.GetRespHeader(fiber.HeaderRetryAfter))
			if err != nil || secs <= 0 {
				secs = int(rl.Window.Seconds())
			}

			log.Warn().Str("ip", c.IP()).Str("route", name).Int("retry_after", secs).Msg("recovery rate limit reached")

			return apperror.RateLimited(msgTooManyRequests, time.Duration(secs)*time.Second)
		},
	})
}

// ForgotPassword emails a verification code. The answer is the same for unknown emails.
func (s *Service) ForgotPassword(c *fiber.Ctx) error {
	in := new(forgotRequest)
	if err := handler.ParseBody(c, s.validator, in); err != nil {
		return err
	}

	if err := s.deps.Recovery.RequestCode(c.UserContext(), in.Email); err != nil {
		return err //nolint:wrapcheck
	}

	return c.JSON(fiber.Map{"success": true, "message": msgCodeSent})
}

// VerifyCode exchanges a verification code for a reset token.
func (s *Service) VerifyCode(c *fiber.Ctx) error {
	in := new(verifyRequest)
	if err := handler.ParseBody(c, s.validator, in); err != nil {
		return err
	}

	resetToken, err := s.deps.Recovery.VerifyCode(c.UserContext(), in.Email, in.Code)
	if err != nil {
		return err //nolint:wrapcheck
	}

	return c.JSON(fiber.Map{"success": true, "message": "code verified", "token": resetToken})
}

// ResetPassword sets the new password for the holder of a reset token.
func (s *Service) ResetPassword(c *fiber.Ctx) error {
	in := new(resetRequest)
	if err := handler.ParseBody(c, s.validator, in); err != nil {
		return err
	}

	if err := s.deps.Recovery.ResetPassword(c.UserContext(), in.Token, in.NewPassword); err != nil {
		return err //nolint:wrapcheck
	}

	return c.JSON(fiber.Map{"success": true, "message": "password updated, sign in again"})
}
