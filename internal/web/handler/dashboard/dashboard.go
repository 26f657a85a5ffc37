// Package dashboard provides the administrative summary and the permission catalog.
package dashboard

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/auth"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler"
)

const (
	// Path is the path of the admin routes, relative to the API group.
	Path = "/admin"

	defaultTimeout = 10 * time.Second
)

// Service is the dashboard handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
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

	router.Route(Path, func(r fiber.Router) {
		r.Get("/dashboard", auth.RequireAll(deps.Authz, auth.PermAdminDashboard), s.Dashboard)
		r.Get("/permissions", auth.RequireAll(deps.Authz, auth.PermAdminSystem), s.Permissions)
	})

	return nil
}

// Dashboard returns the number of users in total and per role.
func (s *Service) Dashboard(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), defaultTimeout)
	defer cancel()

	total, err := s.deps.Users.Count(ctx)
	if err != nil {
		return apperror.Internal(err)
	}

	byRole, err := s.deps.Users.CountByRole(ctx)
	if err != nil {
		return apperror.Internal(err)
	}

	// every role is listed, also the empty ones
	roles := make(map[string]int64, len(byRole))
	for _, r := range s.deps.Authz.Catalog().Roles() {
		roles[string(r)] = byRole[string(r)]
	}

	return c.JSON(fiber.Map{"success": true, "users": total, "roles": roles})
}

// Permissions returns the role to permission mapping.
func (s *Service) Permissions(c *fiber.Ctx) error {
	catalog := s.deps.Authz.Catalog()

	return c.JSON(fiber.Map{
		"success":       true,
		"moderatorRole": catalog.ModeratorRole(),
		"roles":         catalog.Dump(),
		"permissions":   auth.AllPermissions(),
	})
}
