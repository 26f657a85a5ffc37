// Package profile serves the endpoints of the signed in user.
package profile

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/auth"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/models"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler/admin/user"
)

const (
	// Path is the path of the profile routes, relative to the API group.
	Path = "/profile"

	reasonPasswordChange = "password changed"
)

// Service is the profile handler service.
type Service struct {
	handler.Service
	deps      *handler.Deps
	validator *validator.Validate
}

type updateRequest struct {
	Email *string `json:"email" validate:"omitempty,email,max=255"`
	Name  *string `json:"name"  validate:"omitempty,max=200"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required,max=1024"`
	NewPassword     string `json:"newPassword"     validate:"required,max=1024"`
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

	authz := deps.Authz

	router.Route(Path, func(r fiber.Router) {
		r.Get(handler.RootPath, auth.RequireAll(authz, auth.PermProfileRead), s.Get)
		r.Put(handler.RootPath, auth.RequireAll(authz, auth.PermProfileUpdate), s.Update)
		r.Put("/password", auth.RequireAll(authz, auth.PermProfileUpdate), s.ChangePassword)
	})

	return nil
}

// Get returns the signed in user with its permissions.
func (s *Service) Get(c *fiber.Ctx) error {
	u, err := s.current(c)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"user":        u,
		"permissions": s.deps.Authz.Catalog().PermissionsFor(auth.Role(u.Role)),
	})
}

// Update edits name and email of the signed in user.
func (s *Service) Update(c *fiber.Ctx) error {
	u, err := s.current(c)
	if err != nil {
		return err
	}

	in := new(updateRequest)
	if err = handler.ParseBody(c, s.validator, in); err != nil {
		return err
	}

	id, err := handler.Identity(c)
	if err != nil {
		return err //nolint:wrapcheck
	}

	updated, err := user.Apply(c, s.deps, id, u, &user.UpdateRequest{Email: in.Email, Name: in.Name})
	if err != nil {
		return err //nolint:wrapcheck
	}

	return c.JSON(fiber.Map{"success": true, "user": updated})
}

// ChangePassword replaces the password and signs out every session of the user.
func (s *Service) ChangePassword(c *fiber.Ctx) error {
	in := new(passwordRequest)
	if err := handler.ParseBody(c, s.validator, in); err != nil {
		return err
	}

	id, err := handler.Identity(c)
	if err != nil {
		return err //nolint:wrapcheck
	}

	ctx := c.UserContext()

	if err = s.deps.Local.ChangePassword(ctx, id.SubjectID, in.CurrentPassword, in.NewPassword); err != nil {
		return err //nolint:wrapcheck
	}

	if err = s.deps.Tokens.RevokeAllForSubject(ctx, id.SubjectID, reasonPasswordChange); err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().Uint64("user_id", id.SubjectID).Msg("password changed")

	return c.JSON(fiber.Map{"success": true, "message": "password changed, sign in again"})
}

func (s *Service) current(c *fiber.Ctx) (*models.User, error) {
	id, err := handler.Identity(c)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	u, err := s.deps.Users.FindByID(c.UserContext(), id.SubjectID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if u == nil {
		return nil, apperror.NotFound("user not found")
	}

	return u, nil
}
