package auth_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/auth"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/credential"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/controller/userstore"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/models"
)

const goodPassword = "S3cure!Passw0rd"

func newStore(t *testing.T) *userstore.GormStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{})
	require.NoError(t, err)

	s, err := userstore.NewGormStore(db)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())

	return s
}

func bcryptCodec(t *testing.T) *credential.Codec {
	t.Helper()

	c, err := credential.New(credential.Config{Algorithm: credential.AlgorithmBcrypt, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	return c
}

func newLocal(t *testing.T) (*auth.LocalProvider, *userstore.GormStore) {
	t.Helper()

	s := newStore(t)

	return auth.NewLocalProvider(s, bcryptCodec(t), newCatalog(t)), s
}

func TestRegisterAndAuthenticate(t *testing.T) {
	p, s := newLocal(t)
	ctx := context.Background()

	u, err := p.Register(ctx, "Bob@Example.com", goodPassword, "Bob")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", u.Email)
	assert.Equal(t, "usuario", u.Role)
	assert.True(t, u.Active)
	assert.NotEqual(t, goodPassword, u.Password)

	got, err := p.Authenticate(ctx, "bob@example.com", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.LastLoginAt)

	stored, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestRegisterRejects(t *testing.T) {
	p, _ := newLocal(t)
	ctx := context.Background()

	_, err := p.Register(ctx, "bob@example.com", goodPassword, "Bob")
	require.NoError(t, err)

	_, err = p.Register(ctx, "BOB@example.com", goodPassword, "Bob again")
	assert.True(t, apperror.Is(err, apperror.KindConflict), "duplicate email: %v", err)

	_, err = p.Register(ctx, "weak@example.com", "short", "Weak")
	require.True(t, apperror.Is(err, apperror.KindValidation), "weak password: %v", err)

	ae, _ := apperror.As(err)
	assert.NotEmpty(t, ae.Feedback)

	_, err = p.CreateUser(ctx, auth.NewUser{Email: "x@example.com", Password: goodPassword, Role: "root"})
	require.ErrorIs(t, err, auth.ErrUnknownRole)
}

func TestCreateUserWithRole(t *testing.T) {
	p, _ := newLocal(t)

	u, err := p.CreateUser(context.Background(), auth.NewUser{
		Email:    "mod@example.com",
		Password: goodPassword,
		Name:     "Mod",
		Role:     auth.RoleModerator,
		Verified: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "moderador", u.Role)
	assert.True(t, u.Verified)
}

func TestAuthenticateRejects(t *testing.T) {
	p, s := newLocal(t)
	ctx := context.Background()

	u, err := p.Register(ctx, "bob@example.com", goodPassword, "Bob")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "bob@example.com", password: "Wrong!Passw0rd"},
		{name: "unknown email", email: "nobody@example.com", password: goodPassword},
		{name: "empty password", email: "bob@example.com", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Authenticate(ctx, tt.email, tt.password)
			require.ErrorIs(t, err, auth.ErrInvalidCredentials)

			ae, ok := apperror.As(err)
			require.True(t, ok)
			assert.Equal(t, apperror.KindAuthentication, ae.Kind)
			assert.Equal(t, "invalid email or password", ae.Message)
		})
	}

	_, err = s.Update(ctx, u.ID, userstore.Changes{Active: userstore.Ptr(false)})
	require.NoError(t, err)

	_, err = p.Authenticate(ctx, "bob@example.com", goodPassword)
	require.ErrorIs(t, err, auth.ErrUserAccountDisabled)
}

func TestAuthenticateRejectsDirectoryUser(t *testing.T) {
	p, s := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &models.User{
		Email:      "dir@example.com",
		Role:       "usuario",
		Active:     true,
		AuthSource: models.AuthSourceLDAP,
		ExternalID: "cn=dir,dc=example,dc=com",
	}))

	_, err := p.Authenticate(ctx, "dir@example.com", "")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAuthenticateRehashes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	argon, err := credential.New(credential.Config{Algorithm: credential.AlgorithmArgon2id})
	require.NoError(t, err)

	u, err := auth.NewLocalProvider(s, argon, newCatalog(t)).Register(ctx, "bob@example.com", goodPassword, "Bob")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u.Password, "$argon2id$"))

	got, err := auth.NewLocalProvider(s, bcryptCodec(t), newCatalog(t)).Authenticate(ctx, "bob@example.com", goodPassword)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.Password, "$2"), "digest moved to bcrypt: %s", got.Password)

	// still verifies with the new digest
	_, err = auth.NewLocalProvider(s, bcryptCodec(t), newCatalog(t)).Authenticate(ctx, "bob@example.com", goodPassword)
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	p, _ := newLocal(t)
	ctx := context.Background()

	u, err := p.Register(ctx, "bob@example.com", goodPassword, "Bob")
	require.NoError(t, err)

	err = p.ChangePassword(ctx, u.ID, "Wrong!Passw0rd", "N3w!Secret-pass")
	require.ErrorIs(t, err, auth.ErrInvalidOldPassword)

	err = p.ChangePassword(ctx, u.ID, goodPassword, "short")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	err = p.ChangePassword(ctx, 999, goodPassword, "N3w!Secret-pass")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	require.NoError(t, p.ChangePassword(ctx, u.ID, goodPassword, "N3w!Secret-pass"))

	_, err = p.Authenticate(ctx, "bob@example.com", "N3w!Secret-pass")
	require.NoError(t, err)

	_, err = p.Authenticate(ctx, "bob@example.com", goodPassword)
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}
