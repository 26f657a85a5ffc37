// Package main is the entry point of usuarios, the user management API.
// It serves registration, login against the local user table or an LDAP
// directory, JWT access and refresh tokens, role based access control and
// an email based password recovery flow over a fiber HTTP server backed by gorm.
package main
