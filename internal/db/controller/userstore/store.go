// Package userstore reads and writes user records.
package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/models"
)

var (
	// ErrUserNotFound is returned by Update and Delete for an unknown id.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned by Create and Update when the email is taken.
	ErrEmailExists = errors.New("user with email already exists")
	// ErrRecoveryChanged is returned by Update when ExpectRecoveryHash no longer matches.
	ErrRecoveryChanged = errors.New("recovery secret changed")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Store is the user datastore. Finders return nil, nil for unknown users.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uint64) (*models.User, error)
	FindByRecoveryHash(ctx context.Context, kind models.RecoveryKind, hash string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, id uint64, ch Changes) (*models.User, error)
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, opts ListOptions) ([]models.User, int64, error)
	Count(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context) (map[string]int64, error)
}

// Changes lists the fields Update writes. Nil fields are left untouched.
type Changes struct {
	Email       *string
	Name        *string
	Password    *string
	Role        *string
	Verified    *bool
	Active      *bool
	Recovery    *models.RecoverySecret
	LastLoginAt *time.Time

	// ExpectRecoveryHash makes the update conditional on the stored recovery hash.
	ExpectRecoveryHash *string
}

// ListOptions pages List.
type ListOptions struct {
	Limit  int
	Offset int
	Role   string
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Ptr returns a pointer to v, used to fill Changes.
func Ptr[T any](v T) *T {
	return &v
}
