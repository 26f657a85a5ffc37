package auth

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/logger"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/token"
)

const (
	localsIdentity = "identity"
	localsToken    = "accessToken"
)

// Authenticate verifies the bearer token of every non public request and stores the identity
// in the request locals. Routes behind it read the identity, they never verify again.
func Authenticate(authz *Authorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := requestOf(c, 0)

		d := authz.Authenticate(c.UserContext(), req)
		audit(c, d)

		if !d.Allow {
			return decisionError(d)
		}

		if d.Identity != nil {
			c.Locals(localsIdentity, *d.Identity)

			if raw, ok := bearer(req.Authorization); ok {
				c.Locals(localsToken, raw)
			}
		}

		return c.Next()
	}
}

// RequireAll requires every one of perms.
func RequireAll(authz *Authorizer, perms ...Permission) fiber.Handler {
	return requireRule(authz, "", Rule{Mode: ModeAll, Permissions: perms})
}

// RequireAny requires at least one of perms.
func RequireAny(authz *Authorizer, perms ...Permission) fiber.Handler {
	return requireRule(authz, "", Rule{Mode: ModeAny, Permissions: perms})
}

// RequireSelfOrAdmin restricts the route to the user addressed by the route parameter param
// or an administrator.
func RequireSelfOrAdmin(authz *Authorizer, param string) fiber.Handler {
	return requireRule(authz, param, Rule{SelfOrAdmin: true})
}

func requireRule(authz *Authorizer, param string, rule Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := IdentityFromContext(c)
		if !ok {
			d := deny(OutcomeUnauthenticated, fiber.StatusUnauthorized, MsgTokenRequired, "no identity in context")
			audit(c, d)

			return decisionError(d)
		}

		var owner uint64

		if param != "" {
			// an unparsable id matches nobody
			owner, _ = strconv.ParseUint(c.Params(param), 10, 64)
		}

		d := authz.Authorize(id, requestOf(c, owner), rule)
		audit(c, d)

		if !d.Allow {
			return decisionError(d)
		}

		return c.Next()
	}
}

// IdentityFromContext returns the identity stored by Authenticate.
func IdentityFromContext(c *fiber.Ctx) (token.Identity, bool) {
	id, ok := c.Locals(localsIdentity).(token.Identity)

	return id, ok
}

// AccessTokenFromContext returns the raw bearer token stored by Authenticate.
func AccessTokenFromContext(c *fiber.Ctx) (string, bool) {
	raw, ok := c.Locals(localsToken).(string)

	return raw, ok && raw != ""
}

func requestOf(c *fiber.Ctx, owner uint64) Request {
	return Request{
		Method:        c.Method(),
		Path:          c.Path(),
		Authorization: c.Get(fiber.HeaderAuthorization),
		ResourceOwner: owner,
	}
}

func decisionError(d Decision) error {
	switch d.Status {
	case fiber.StatusUnauthorized:
		return apperror.Authentication(d.Message)
	case fiber.StatusForbidden:
		return apperror.Authorization(d.Message)
	default:
		return apperror.Internal(errors.New(d.Reason))
	}
}

// audit writes the decision to the audit trail and counts it.
func audit(c *fiber.Ctx, d Decision) {
	decisionCounter().WithLabelValues(string(d.Outcome)).Inc()

	l := logger.Audit()

	var e *zerolog.Event

	switch d.Outcome {
	case OutcomePublic:
		e = l.Debug()
	case OutcomeAllow:
		e = l.Info()
	case OutcomeError:
		e = l.Error()
	default:
		e = l.Warn()
	}

	e = e.Str("outcome", string(d.Outcome)).
		Str("ip", c.IP()).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", d.Status).
		Str("reason", d.Reason)

	if d.Identity != nil {
		e = e.Uint64("subject", d.Identity.SubjectID).Str("role", d.Identity.Role)
	}

	e.Msg("authorization decision")
}
