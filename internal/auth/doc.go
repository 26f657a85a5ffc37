// Package auth provides authentication and authorization for the API.
//
// # Permission Catalog
//
// Catalog maps the closed set of roles (admin, the moderator role labelled moderador or
// interno, usuario) onto resource:action permissions. The administrator holds the union of
// every permission and is recognised by holding admin:system, never by its role name.
//
// # Authentication Providers
//
// LocalProvider authenticates against the user table, hashing with the credential codec and
// transparently rehashing digests made with a previously configured algorithm.
//
// LDAPProvider binds against LDAP or Active Directory and keeps a local copy of the directory
// users so tokens and the admin API treat them like any other account.
//
// # Authorization
//
// Authorizer.Decide is the pure decision over a Request and a Rule. The Fiber middlewares
// split it in two steps:
//
//	api := app.Group("/api", auth.Authenticate(authz))
//	api.Get("/users", auth.RequireAll(authz, auth.PermUsersReadAll), list)
//	api.Get("/users/:id",
//	    auth.RequireAll(authz, auth.PermUsersRead),
//	    auth.RequireSelfOrAdmin(authz, "id"),
//	    get,
//	)
//
// Every decision is written to the audit log and counted in authz_decisions_total.
package auth
