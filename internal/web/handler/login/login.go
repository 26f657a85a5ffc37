// Package login serves the session endpoints: login, registration, token refresh and logout.
package login

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/auth"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/models"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/token"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler"
)

const (
	// Path is the path of the session routes, relative to the API group.
	Path = handler.AuthPath

	sourceLocal = "local"
	sourceLDAP  = "ldap"

	reasonLogout = "logout"
)

// Service is the login handler service.
type Service struct {
	handler.Service
	deps      *handler.Deps
	validator *validator.Validate
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=1024"`
	Source   string `json:"source"   validate:"omitempty,oneof=local ldap"`
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=1024"`
	Name     string `json:"name"     validate:"required,max=200"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
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

	router.Route(Path, func(r fiber.Router) {
		r.Post("/login", s.Login)
		r.Post("/register", s.Register)
		r.Post("/refresh", s.Refresh)
		r.Post("/logout", s.Logout)
		r.Get("/password-strength", s.PasswordStrength)
	})

	return nil
}

// Login authenticates against the local user table or the directory and issues a token pair.
func (s *Service) Login(c *fiber.Ctx) error {
	in := new(loginRequest)
	if err := handler.ParseBody(c, s.validator, in); err != nil {
		return err
	}

	var (
		user *models.User
		err  error
		ctx  = c.UserContext()
	)

	switch in.Source {
	case sourceLDAP:
		if s.deps.LDAP == nil {
			return apperror.Validation("ldap authentication is disabled")
		}

		user, err = s.deps.LDAP.Authenticate(ctx, in.Email, in.Password)
	default:
		if !s.deps.Cfg.Auth.LocalDB.Enabled {
			return apperror.Validation("local authentication is disabled")
		}

		user, err = s.deps.Local.Authenticate(ctx, in.Email, in.Password)
	}

	if err != nil {
		return err //nolint:wrapcheck
	}

	pair, err := s.deps.Tokens.IssuePair(ctx, identityOf(user))
	if err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().Uint64("user_id", user.ID).Str("source", string(user.AuthSource)).Msg("user logged in")

	return c.JSON(fiber.Map{
		"success":      true,
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         user,
	})
}

// Register creates a self-service account with the default role.
func (s *Service) Register(c *fiber.Ctx) error {
	in := new(registerRequest)
	if err := handler.ParseBody(c, s.validator, in); err != nil {
		return err
	}

	user, err := s.deps.Local.Register(c.UserContext(), in.Email, in.Password, in.Name)
	if err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().Uint64("user_id", user.ID).Msg("user registered")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "user registered",
		"user":    user,
	})
}

// Refresh rotates a refresh token. The identity is reloaded so role changes apply.
func (s *Service) Refresh(c *fiber.Ctx) error {
	in := new(refreshRequest)
	if err := handler.ParseBody(c, s.validator, in); err != nil {
		return err
	}

	pair, err := s.deps.Tokens.Refresh(c.UserContext(), in.RefreshToken, s.resolve)
	if err != nil {
		if token.IsInvalid(err) {
			return apperror.Authentication(auth.MsgInvalidToken)
		}

		return err //nolint:wrapcheck
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (s *Service) resolve(ctx context.Context, id token.Identity) (token.Identity, error) {
	user, err := s.deps.Users.FindByID(ctx, id.SubjectID)
	if err != nil {
		return token.Identity{}, apperror.Internal(err)
	}

	if user == nil || !user.Active {
		return token.Identity{}, apperror.Authentication(auth.MsgInvalidToken)
	}

	return identityOf(user), nil
}

// Logout denylists the presented access token and revokes the refresh token of the body, if any.
func (s *Service) Logout(c *fiber.Ctx) error {
	raw, ok := auth.AccessTokenFromContext(c)
	if !ok {
		return apperror.Authentication(auth.MsgTokenRequired)
	}

	ctx := c.UserContext()

	if err := s.deps.Tokens.Denylist(ctx, raw, reasonLogout); err != nil {
		return err //nolint:wrapcheck
	}

	in := new(logoutRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(in); err != nil {
			return apperror.Validation("invalid request body")
		}
	}

	if in.RefreshToken != "" {
		err := s.deps.Tokens.RevokeRefreshToken(ctx, in.RefreshToken)
		if err != nil && !errors.Is(err, token.ErrInvalidToken) {
			return err //nolint:wrapcheck
		}
	}

	return c.JSON(fiber.Map{"success": true, "message": "logged out"})
}

// PasswordStrength scores the password query parameter.
func (s *Service) PasswordStrength(c *fiber.Ctx) error {
	pw := c.Query("password")
	if pw == "" {
		return apperror.Validation("password is required")
	}

	return c.JSON(fiber.Map{"success": true, "strength": s.deps.Codec.ScoreStrength(pw)})
}

func identityOf(u *models.User) token.Identity {
	return token.Identity{SubjectID: u.ID, Email: u.Email, Role: u.Role}
}
