package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/token"
)

// Messages of the denied decisions.
const (
	MsgTokenRequired      = "authorization token required"
	MsgInvalidToken       = "invalid or expired token"
	MsgInsufficientRights = "insufficient permissions"
	MsgInternal           = "internal server error"
)

const bearerScheme = "bearer"

// Verifier checks an access token. token.Service implements it.
type Verifier interface {
	VerifyAccessToken(ctx context.Context, raw string) (*token.Claims, error)
}

// Mode selects how Rule.Permissions combine.
type Mode uint8

const (
	// ModeAll requires every permission.
	ModeAll Mode = iota
	// ModeAny requires at least one permission.
	ModeAny
)

// Rule is the requirement of a route.
type Rule struct {
	Mode        Mode
	Permissions []Permission
	// SelfOrAdmin additionally restricts access to the owner of the resource or an administrator.
	SelfOrAdmin bool
}

// Request is the part of an HTTP request a decision looks at.
type Request struct {
	Method        string
	Path          string
	Authorization string
	// ResourceOwner is the user id the route addresses. Zero matches nobody.
	ResourceOwner uint64
}

// Outcome classifies a decision for the audit trail and metrics.
type Outcome string

//nolint:revive // names document themselves
const (
	OutcomeAllow           Outcome = "allow"
	OutcomePublic          Outcome = "public"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeForbidden       Outcome = "forbidden"
	OutcomeError           Outcome = "error"
)

// Decision is the result of Decide. Identity is set once the token verified, also on a 403.
type Decision struct {
	Allow    bool
	Outcome  Outcome
	Status   int
	Message  string
	Reason   string
	Identity *token.Identity
}

func allow(id *token.Identity, outcome Outcome, reason string) Decision {
	return Decision{Allow: true, Outcome: outcome, Status: fiber.StatusOK, Reason: reason, Identity: id}
}

func deny(outcome Outcome, status int, message, reason string) Decision {
	return Decision{Outcome: outcome, Status: status, Message: message, Reason: reason}
}

// Authorizer decides requests against the catalog.
type Authorizer struct {
	catalog     *Catalog
	verifier    Verifier
	publicPaths []string
}

// NewAuthorizer returns an Authorizer. publicPaths are served without a token, matching the path
// itself or anything below it.
func NewAuthorizer(catalog *Catalog, verifier Verifier, publicPaths []string) *Authorizer {
	paths := make([]string, 0, len(publicPaths))

	for _, p := range publicPaths {
		if p = strings.TrimRight(p, "/"); p != "" {
			paths = append(paths, p)
		}
	}

	return &Authorizer{catalog: catalog, verifier: verifier, publicPaths: paths}
}

// Catalog returns the permission catalog of the authorizer.
func (a *Authorizer) Catalog() *Catalog {
	return a.catalog
}

// IsPublic reports whether path is served without a token.
func (a *Authorizer) IsPublic(path string) bool {
	for _, p := range a.publicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}

	return false
}

// Decide runs authentication and authorization for req in one step.
func (a *Authorizer) Decide(ctx context.Context, req Request, rule Rule) Decision {
	d := a.Authenticate(ctx, req)
	if !d.Allow || d.Identity == nil {
		return d
	}

	return a.Authorize(*d.Identity, req, rule)
}

// Authenticate resolves the bearer token of req to an identity.
func (a *Authorizer) Authenticate(ctx context.Context, req Request) Decision {
	if a.IsPublic(req.Path) {
		return allow(nil, OutcomePublic, "public path")
	}

	raw, ok := bearer(req.Authorization)
	if !ok {
		return deny(OutcomeUnauthenticated, fiber.StatusUnauthorized, MsgTokenRequired, "missing bearer token")
	}

	claims, err := a.verifier.VerifyAccessToken(ctx, raw)

	switch {
	case token.IsInvalid(err):
		return deny(OutcomeUnauthenticated, fiber.StatusUnauthorized, MsgInvalidToken, err.Error())
	case err != nil:
		return deny(OutcomeError, fiber.StatusInternalServerError, MsgInternal, err.Error())
	}

	id := claims.Identity()

	return allow(&id, OutcomeAllow, "token verified")
}

// Authorize checks rule for an authenticated identity.
func (a *Authorizer) Authorize(id token.Identity, req Request, rule Rule) Decision {
	role := Role(id.Role)

	granted := a.catalog.HasAll(role, rule.Permissions...)
	if rule.Mode == ModeAny && len(rule.Permissions) > 0 {
		granted = a.catalog.HasAny(role, rule.Permissions...)
	}

	if !granted {
		d := deny(OutcomeForbidden, fiber.StatusForbidden, MsgInsufficientRights,
			"role "+id.Role+" lacks "+joinPermissions(rule.Permissions))
		d.Identity = &id

		return d
	}

	if rule.SelfOrAdmin && id.SubjectID != req.ResourceOwner && !a.catalog.IsAdministrator(role) {
		d := deny(OutcomeForbidden, fiber.StatusForbidden, MsgInsufficientRights, "not owner nor administrator")
		d.Identity = &id

		return d
	}

	return allow(&id, OutcomeAllow, "granted")
}

// bearer extracts the token of an "Authorization: Bearer <token>" header.
func bearer(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}

	raw = strings.TrimSpace(raw)

	return raw, raw != ""
}

func joinPermissions(perms []Permission) string {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}

	return strings.Join(names, ",")
}
