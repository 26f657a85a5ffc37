// Package user provides handlers for managing users (CRUD) in admin area.
package user

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/auth"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/controller/userstore"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/models"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/token"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler"
)

const (
	// Path is the base path for user management, relative to the API group.
	Path = "/users"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25
	// MaxPageSize caps the limit query parameter.
	MaxPageSize = 100

	paramID = "id"

	reasonRoleChange   = "role changed"
	reasonDeactivation = "account deactivated"
	reasonDeletion     = "account deleted"
)

// Service provides CRUD operations for users.
type Service struct {
	handler.Service
	deps      *handler.Deps
	validator *validator.Validate
}

type createRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=1024"`
	Name     string `json:"name"     validate:"required,max=200"`
	Role     string `json:"role"     validate:"omitempty,max=20"`
	Verified bool   `json:"verified"`
}

// UpdateRequest lists the editable fields. Omitted fields are left untouched.
type UpdateRequest struct {
	Email    *string `json:"email"    validate:"omitempty,email,max=255"`
	Name     *string `json:"name"     validate:"omitempty,max=200"`
	Role     *string `json:"role"     validate:"omitempty,max=20"`
	Active   *bool   `json:"active"`
	Verified *bool   `json:"verified"`
}

// Init registers routes.
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
		r.Get(handler.RootPath,
			auth.RequireAll(authz, auth.PermUsersReadAll),
			s.List,
		)
		r.Post(handler.RootPath,
			auth.RequireAll(authz, auth.PermUsersCreate),
			s.Create,
		)
		r.Get("/:"+paramID,
			auth.RequireAll(authz, auth.PermUsersRead),
			auth.RequireSelfOrAdmin(authz, paramID),
			s.Get,
		)
		r.Put("/:"+paramID,
			auth.RequireAny(authz, auth.PermUsersUpdate, auth.PermProfileUpdate),
			auth.RequireSelfOrAdmin(authz, paramID),
			s.Update,
		)
		r.Delete("/:"+paramID,
			auth.RequireAll(authz, auth.PermUsersDelete),
			s.Delete,
		)
	})

	return nil
}

// List returns a page of users, optionally filtered by role.
func (s *Service) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", DefaultPageSize)
	if limit < 1 || limit > MaxPageSize {
		limit = DefaultPageSize
	}

	offset := max(c.QueryInt("offset", 0), 0)

	role := c.Query("role")
	if role != "" && !s.deps.Authz.Catalog().IsRole(role) {
		return apperror.Validation("unknown role")
	}

	users, total, err := s.deps.Users.List(c.UserContext(), userstore.ListOptions{
		Limit:  limit,
		Offset: offset,
		Role:   role,
	})
	if err != nil {
		return apperror.Internal(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"users":   users,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// Create creates a new local user with any role.
func (s *Service) Create(c *fiber.Ctx) error {
	in := new(createRequest)
	if err := handler.ParseBody(c, s.validator, in); err != nil {
		return err
	}

	user, err := s.deps.Local.CreateUser(c.UserContext(), auth.NewUser{
		Email:    in.Email,
		Password: in.Password,
		Name:     in.Name,
		Role:     auth.Role(in.Role),
		Verified: in.Verified,
	})
	if err != nil {
		return err //nolint:wrapcheck
	}

	id, _ := handler.Identity(c)
	log.Info().Uint64("user_id", user.ID).Uint64("by", id.SubjectID).Str("role", user.Role).Msg("user created")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "user": user})
}

// Get returns one user.
func (s *Service) Get(c *fiber.Ctx) error {
	user, err := s.load(c)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "user": user})
}

// Update edits a user. Role, activation and verification changes are reserved to administrators.
func (s *Service) Update(c *fiber.Ctx) error {
	target, err := s.load(c)
	if err != nil {
		return err
	}

	in := new(UpdateRequest)
	if err = handler.ParseBody(c, s.validator, in); err != nil {
		return err
	}

	requester, err := handler.Identity(c)
	if err != nil {
		return err //nolint:wrapcheck
	}

	updated, err := Apply(c, s.deps, requester, target, in)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "user": updated})
}

// Apply writes in to target on behalf of requester. The profile handler shares it.
func Apply(
	c *fiber.Ctx,
	deps *handler.Deps,
	requester token.Identity,
	target *models.User,
	in *UpdateRequest,
) (*models.User, error) {
	catalog := deps.Authz.Catalog()
	privileged := in.Role != nil || in.Active != nil || in.Verified != nil

	if privileged && !catalog.IsAdministrator(auth.Role(requester.Role)) {
		return nil, apperror.Authorization(auth.MsgInsufficientRights)
	}

	if in.Role != nil && !catalog.IsRole(*in.Role) {
		return nil, apperror.Validation("unknown role")
	}

	if in.Email != nil && target.AuthSource != models.AuthSourceLocal {
		return nil, apperror.Validation("the email of directory accounts is managed by the directory")
	}

	ctx := c.UserContext()

	updated, err := deps.Users.Update(ctx, target.ID, userstore.Changes{
		Email:    in.Email,
		Name:     in.Name,
		Role:     in.Role,
		Active:   in.Active,
		Verified: in.Verified,
	})

	switch {
	case errors.Is(err, userstore.ErrEmailExists):
		return nil, apperror.Wrap(apperror.KindConflict, "email already registered", err)
	case errors.Is(err, userstore.ErrUserNotFound):
		return nil, apperror.NotFound("user not found")
	case err != nil:
		return nil, apperror.Internal(err)
	}

	// tokens carry the role, old ones must not outlive a change
	var reason string

	switch {
	case in.Active != nil && !*in.Active:
		reason = reasonDeactivation
	case in.Role != nil && *in.Role != target.Role:
		reason = reasonRoleChange
	}

	if reason != "" {
		if err = deps.Tokens.RevokeAllForSubject(ctx, target.ID, reason); err != nil {
			return nil, err //nolint:wrapcheck
		}
	}

	log.Info().Uint64("user_id", target.ID).Uint64("by", requester.SubjectID).Msg("user updated")

	return updated, nil
}

// Delete removes a user and revokes its tokens. Administrators can not delete themselves.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params(paramID), 10, 64)
	if err != nil {
		return apperror.NotFound("user not found")
	}

	requester, err := handler.Identity(c)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if requester.SubjectID == id {
		return apperror.Validation("you can not delete your own account")
	}

	ctx := c.UserContext()

	err = s.deps.Users.Delete(ctx, id)

	switch {
	case errors.Is(err, userstore.ErrUserNotFound):
		return apperror.NotFound("user not found")
	case err != nil:
		return apperror.Internal(err)
	}

	if err = s.deps.Tokens.RevokeAllForSubject(ctx, id, reasonDeletion); err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().Uint64("user_id", id).Uint64("by", requester.SubjectID).Msg("user deleted")

	return c.JSON(fiber.Map{"success": true, "message": "user deleted"})
}

func (s *Service) load(c *fiber.Ctx) (*models.User, error) {
	id, err := strconv.ParseUint(c.Params(paramID), 10, 64)
	if err != nil {
		return nil, apperror.NotFound("user not found")
	}

	user, err := s.deps.Users.FindByID(c.UserContext(), id)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if user == nil {
		return nil, apperror.NotFound("user not found")
	}

	return user, nil
}
