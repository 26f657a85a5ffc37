package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/auth"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/config"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/credential"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/controller/userstore"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/recovery"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/token"
)

// ErrNilDeps is returned by Init when a required dependency is missing.
var ErrNilDeps = errors.New(ErrNilDepsFatalLogMsg)

// Deps are the services the handlers share.
type Deps struct {
	Cfg      *config.Config
	Users    userstore.Store
	Tokens   *token.Service
	Codec    *credential.Codec
	Authz    *auth.Authorizer
	Local    *auth.LocalProvider
	Recovery *recovery.Controller

	// LDAP is nil when directory login is disabled.
	LDAP *auth.LDAPProvider

	// Cache backs the rate limiter.
	Cache fiber.Storage
}

// Check returns ErrNilDeps when a required dependency is missing.
func (d *Deps) Check() error {
	if d == nil || d.Cfg == nil || d.Users == nil || d.Tokens == nil || d.Codec == nil ||
		d.Authz == nil || d.Local == nil || d.Recovery == nil || d.Cache == nil {
		return ErrNilDeps
	}

	return nil
}

// Identity returns the identity of an authenticated request.
func Identity(c *fiber.Ctx) (token.Identity, error) {
	id, ok := auth.IdentityFromContext(c)
	if !ok {
		return token.Identity{}, errMissingIdentity
	}

	return id, nil
}

var errMissingIdentity = errors.New("route registered without auth.Authenticate")
