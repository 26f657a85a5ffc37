// Package models contains database model definitions.
package models

import (
	"time"
)

// AuthSource represents the authentication source for a user account.
type AuthSource string

const (
	// AuthSourceLocal indicates the user authenticates with a local database password.
	AuthSourceLocal AuthSource = "local"
	// AuthSourceLDAP indicates the user authenticates via LDAP or Active Directory.
	AuthSourceLDAP AuthSource = "ldap"
)

// User represents a user account in the system.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// Email is the unique login name of the user, stored lowercased.
	Email string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	// Name is the display name.
	Name string `gorm:"size:200" json:"name"`
	// Password is the password digest. Empty for directory users.
	Password string `gorm:"size:255" json:"-"`
	// Role is one of the catalog roles.
	Role string `gorm:"size:20;not null;index" json:"role"`
	// Verified is set once the user proved control of the email address.
	Verified bool `json:"verified"`
	// Active users can log in.
	Active bool `json:"active"`
	// AuthSource indicates how this user authenticates.
	AuthSource AuthSource `gorm:"type:varchar(20);not null;default:'local'" json:"authSource"`
	// ExternalID is the LDAP DN of directory users.
	ExternalID string `gorm:"size:255" json:"-"`
	// Recovery is the single outstanding password recovery secret.
	Recovery RecoverySecret `gorm:"embedded;embeddedPrefix:recovery_" json:"-"`
	// LastLoginAt is the time of the last successful login.
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}
