package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidOldPassword is returned when the provided current password does not match.
	ErrInvalidOldPassword = errors.New("invalid old password")

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrUnknownRole is returned when a user is given a role outside the catalog.
	ErrUnknownRole = errors.New("unknown role")

	// ErrMultipleUsersFound is returned when a directory query expected one user but found multiple.
	// This typically indicates a misconfigured LDAP filter or duplicate entries.
	ErrMultipleUsersFound = errors.New("multiple users found")

	// ErrLDAPDisabled is returned when LDAP authentication is disabled via configuration.
	ErrLDAPDisabled = errors.New("ldap authentication is disabled")

	// ErrLocalAccount is returned when a directory login matches an account with a local password.
	ErrLocalAccount = errors.New("email belongs to a local account")
)
