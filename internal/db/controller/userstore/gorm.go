package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/models"
)

const (
	whereEmail = "email = ?"
	whereID    = "id = ?"

	defaultListLimit = 50
	maxListLimit     = 500
)

// GormStore implements Store on gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by db.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	return &GormStore{db: db}, nil
}

// Migrate creates or updates the users table.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&models.User{})
}

func (s *GormStore) first(ctx context.Context, query any, args ...any) (*models.User, error) {
	var u models.User

	err := s.db.WithContext(ctx).Where(query, args...).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &u, nil
}

// FindByEmail returns the user with email, compared lowercased.
func (s *GormStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.first(ctx, whereEmail, NormalizeEmail(email))
}

// FindByID returns the user with id.
func (s *GormStore) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	return s.first(ctx, whereID, id)
}

// FindByRecoveryHash returns the user whose outstanding recovery secret has kind and hash.
func (s *GormStore) FindByRecoveryHash(
	ctx context.Context,
	kind models.RecoveryKind,
	hash string,
) (*models.User, error) {
	if kind == models.RecoveryNone || hash == "" {
		return nil, nil //nolint:nilnil
	}

	return s.first(ctx, "recovery_kind = ? AND recovery_hash = ?", kind, hash)
}

// Create inserts u. The email is stored normalized.
func (s *GormStore) Create(ctx context.Context, u *models.User) error {
	u.Email = NormalizeEmail(u.Email)

	existing, err := s.FindByEmail(ctx, u.Email)
	if err != nil {
		return err
	}

	if existing != nil {
		return ErrEmailExists
	}

	if u.AuthSource == "" {
		u.AuthSource = models.AuthSourceLocal
	}

	if err = s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// Update writes the set fields of ch and returns the updated user.
func (s *GormStore) Update(ctx context.Context, id uint64, ch Changes) (*models.User, error) {
	updates := map[string]any{
		"updated_at": time.Now(),
	}

	if ch.Email != nil {
		email := NormalizeEmail(*ch.Email)

		other, err := s.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}

		if other != nil && other.ID != id {
			return nil, ErrEmailExists
		}

		updates["email"] = email
	}

	if ch.Name != nil {
		updates["name"] = *ch.Name
	}

	if ch.Password != nil {
		updates["password"] = *ch.Password
	}

	if ch.Role != nil {
		updates["role"] = *ch.Role
	}

	if ch.Verified != nil {
		updates["verified"] = *ch.Verified
	}

	if ch.Active != nil {
		updates["active"] = *ch.Active
	}

	if ch.LastLoginAt != nil {
		updates["last_login_at"] = *ch.LastLoginAt
	}

	if ch.Recovery != nil {
		updates["recovery_kind"] = ch.Recovery.Kind
		updates["recovery_hash"] = ch.Recovery.Hash
		updates["recovery_expires_at"] = ch.Recovery.ExpiresAt
	}

	query := s.db.WithContext(ctx).Model(&models.User{}).Where(whereID, id)
	if ch.ExpectRecoveryHash != nil {
		query = query.Where("recovery_hash = ?", *ch.ExpectRecoveryHash)
	}

	res := query.Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update user: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		if ch.ExpectRecoveryHash != nil {
			return nil, ErrRecoveryChanged
		}

		return nil, ErrUserNotFound
	}

	return s.FindByID(ctx, id)
}

// Delete removes the user with id.
func (s *GormStore) Delete(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// List returns a page of users ordered by id and the total count.
func (s *GormStore) List(ctx context.Context, opts ListOptions) ([]models.User, int64, error) {
	var (
		users []models.User
		total int64
	)

	query := s.db.WithContext(ctx).Model(&models.User{})

	if opts.Role != "" {
		query = query.Where("role = ?", opts.Role)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	limit = min(limit, maxListLimit)

	if err := query.Order("id").Limit(limit).Offset(max(opts.Offset, 0)).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}

// Count returns the number of users.
func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var count int64

	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	return count, nil
}

// CountByRole returns the number of users per role.
func (s *GormStore) CountByRole(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Role  string
		Total int64
	}

	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("role, count(*) AS total").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count users by role: %w", err)
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Role] = r.Total
	}

	return out, nil
}
