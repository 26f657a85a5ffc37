package daemon

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/auth"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/config"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/controller/userstore"
)

// seed creates the configured administrator if the user table is empty.
func seed(ctx context.Context, cfg config.Seed, users userstore.Store, local *auth.LocalProvider) error {
	count, err := users.Count(ctx)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if count > 0 {
		return nil
	}

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Warn().Msg("user table is empty and no seed administrator is configured")

		return nil
	}

	name := cfg.AdminName
	if name == "" {
		name = "Administrator"
	}

	u, err := local.CreateUser(ctx, auth.NewUser{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Name:     name,
		Role:     auth.RoleAdmin,
		Verified: true,
	})
	if err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().Uint64("user_id", u.ID).Str("email", u.Email).Msg("seed administrator created")

	return nil
}
