package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/controller/userstore"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/models"
)

const msgInvalidCredentials = "invalid email or password"

// PasswordCodec hashes and checks passwords. credential.Codec implements it.
type PasswordCodec interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
	NeedsRehash(digest string) bool
	CheckStrength(plain string) error
}

// NewUser holds the fields of an account created through the API.
type NewUser struct {
	Email    string
	Password string
	Name     string
	Role     Role
	Verified bool
}

// LocalProvider handles authentication against the user table.
type LocalProvider struct {
	users   userstore.Store
	codec   PasswordCodec
	catalog *Catalog
	now     func() time.Time
}

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(users userstore.Store, codec PasswordCodec, catalog *Catalog) *LocalProvider {
	return &LocalProvider{
		users:   users,
		codec:   codec,
		catalog: catalog,
		now:     time.Now,
	}
}

// Authenticate checks email and password. Unknown emails and wrong passwords fail the same way.
// A digest made with another algorithm than the configured one is replaced on success.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if user == nil || user.AuthSource != models.AuthSourceLocal || user.Password == "" || password == "" {
		return nil, apperror.Wrap(apperror.KindAuthentication, msgInvalidCredentials, ErrInvalidCredentials)
	}

	ok, err := p.codec.Verify(password, user.Password)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if !ok {
		log.Info().Uint64("user_id", user.ID).Msg("wrong password")

		return nil, apperror.Wrap(apperror.KindAuthentication, msgInvalidCredentials, ErrInvalidCredentials)
	}

	if !user.Active {
		return nil, apperror.Wrap(apperror.KindAuthentication, "user account is disabled", ErrUserAccountDisabled)
	}

	ch := userstore.Changes{LastLoginAt: userstore.Ptr(p.now())}

	if p.codec.NeedsRehash(user.Password) {
		if digest, errHash := p.codec.Hash(password); errHash == nil {
			ch.Password = &digest
		} else {
			log.Warn().Err(errHash).Uint64("user_id", user.ID).Msg("failed to rehash password")
		}
	}

	updated, err := p.users.Update(ctx, user.ID, ch)
	if err != nil {
		// the login itself succeeded
		log.Warn().Err(err).Uint64("user_id", user.ID).Msg("failed to record login")

		return user, nil
	}

	return updated, nil
}

// Register creates a self-service account with the default role.
func (p *LocalProvider) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	return p.CreateUser(ctx, NewUser{Email: email, Password: password, Name: name, Role: RoleUser})
}

// CreateUser creates a new local user after checking the password policy.
func (p *LocalProvider) CreateUser(ctx context.Context, nu NewUser) (*models.User, error) {
	if nu.Role == "" {
		nu.Role = RoleUser
	}

	if !p.catalog.IsRole(string(nu.Role)) {
		return nil, apperror.Wrap(apperror.KindValidation, "unknown role", ErrUnknownRole)
	}

	if err := p.codec.CheckStrength(nu.Password); err != nil {
		return nil, err //nolint:wrapcheck
	}

	digest, err := p.codec.Hash(nu.Password)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	user := &models.User{
		Email:      nu.Email,
		Name:       nu.Name,
		Password:   digest,
		Role:       string(nu.Role),
		Verified:   nu.Verified,
		Active:     true,
		AuthSource: models.AuthSourceLocal,
	}

	if err = p.users.Create(ctx, user); err != nil {
		if errors.Is(err, userstore.ErrEmailExists) {
			return nil, apperror.Wrap(apperror.KindConflict, "email already registered", err)
		}

		return nil, apperror.Internal(err)
	}

	return user, nil
}

// ChangePassword replaces the password of a local user after checking the current one.
func (p *LocalProvider) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	user, err := p.users.FindByID(ctx, userID)
	if err != nil {
		return apperror.Internal(err)
	}

	if user == nil {
		return apperror.NotFound("user not found")
	}

	if user.AuthSource != models.AuthSourceLocal {
		return apperror.Validation("the password of directory accounts is managed by the directory")
	}

	ok, err := p.codec.Verify(current, user.Password)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if !ok {
		return apperror.Wrap(apperror.KindValidation, "current password is incorrect", ErrInvalidOldPassword)
	}

	if err = p.codec.CheckStrength(next); err != nil {
		return err //nolint:wrapcheck
	}

	digest, err := p.codec.Hash(next)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if _, err = p.users.Update(ctx, userID, userstore.Changes{Password: &digest}); err != nil {
		return apperror.Internal(err)
	}

	return nil
}
