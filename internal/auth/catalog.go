package auth

import (
	"slices"

	"github.com/pkg/errors"
)

// ErrUnknownModeratorLabel is returned for an intermediate role label other than moderador or interno.
var ErrUnknownModeratorLabel = errors.New("moderator label must be moderador or interno")

// Catalog maps each role to its permission set. It is immutable after NewCatalog.
type Catalog struct {
	moderator Role
	roles     []Role
	perms     map[Role]map[Permission]struct{}
}

// NewCatalog builds the catalog. moderatorLabel selects the name of the intermediate role,
// empty defaults to moderador.
func NewCatalog(moderatorLabel string) (*Catalog, error) {
	moderator := Role(moderatorLabel)

	switch moderator {
	case "":
		moderator = RoleModerator
	case RoleModerator, RoleInternal:
	default:
		return nil, errors.Wrapf(ErrUnknownModeratorLabel, "label %q", moderatorLabel)
	}

	c := &Catalog{
		moderator: moderator,
		roles:     []Role{RoleAdmin, moderator, RoleUser},
		perms:     make(map[Role]map[Permission]struct{}, 3), //nolint:mnd
	}

	// admin is the union of the closed set, no shortcut in the checks
	c.perms[RoleAdmin] = toSet(AllPermissions())
	c.perms[moderator] = toSet([]Permission{
		PermUsersRead,
		PermUsersUpdate,
		PermUsersReadAll,
		PermAdminDashboard,
		PermProfileRead,
		PermProfileUpdate,
	})
	c.perms[RoleUser] = toSet([]Permission{
		PermProfileRead,
		PermProfileUpdate,
	})

	return c, nil
}

func toSet(perms []Permission) map[Permission]struct{} {
	s := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}

	return s
}

// ModeratorRole returns the configured label of the intermediate role.
func (c *Catalog) ModeratorRole() Role {
	return c.moderator
}

// Roles returns the known roles, most privileged first.
func (c *Catalog) Roles() []Role {
	return slices.Clone(c.roles)
}

// IsRole reports whether name is a known role.
func (c *Catalog) IsRole(name string) bool {
	_, ok := c.perms[Role(name)]

	return ok
}

// PermissionsFor returns the permissions of role in declaration order. Unknown roles get none.
func (c *Catalog) PermissionsFor(role Role) []Permission {
	set, ok := c.perms[role]
	if !ok {
		return []Permission{}
	}

	out := make([]Permission, 0, len(set))

	for _, p := range AllPermissions() {
		if _, has := set[p]; has {
			out = append(out, p)
		}
	}

	return out
}

// HasPermission checks if role grants perm.
func (c *Catalog) HasPermission(role Role, perm Permission) bool {
	_, ok := c.perms[role][perm]

	return ok
}

// HasAny checks if role grants at least one of perms. No perms is false.
func (c *Catalog) HasAny(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if c.HasPermission(role, p) {
			return true
		}
	}

	return false
}

// HasAll checks if role grants every one of perms. No perms is true.
func (c *Catalog) HasAll(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if !c.HasPermission(role, p) {
			return false
		}
	}

	return true
}

// IsAdministrator reports whether role holds admin:system.
func (c *Catalog) IsAdministrator(role Role) bool {
	return c.HasPermission(role, PermAdminSystem)
}

// Dump returns role to permission names, used by the admin catalog endpoint.
func (c *Catalog) Dump() map[string][]string {
	out := make(map[string][]string, len(c.roles))

	for _, r := range c.roles {
		perms := c.PermissionsFor(r)
		names := make([]string, len(perms))

		for i, p := range perms {
			names[i] = string(p)
		}

		out[string(r)] = names
	}

	return out
}
