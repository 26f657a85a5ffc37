// Package daemon wires the configuration into the running service.
package daemon

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/auth"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/cache"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/config"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/credential"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/controller/userstore"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/notify"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/recovery"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/token"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	cache      fiber.Storage
	recovery   *recovery.Controller
	webService *web.Service
}

// Start serves the API until SIGINT or SIGTERM and releases the resources afterwards.
func (d *Daemon) Start() error {
	done := make(chan error, 1)

	go func() {
		done <- d.webService.Start(":" + strconv.Itoa(d.cfg.Webserver.Port))
	}()

	d.webService.WaitShutdown()

	if err := <-done; err != nil {
		return err
	}

	return d.Close()
}

// Close waits for queued emails and releases the cache and the database connection.
func (d *Daemon) Close() error {
	d.recovery.Wait()

	if err := d.cache.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close cache")
	}

	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}

	return sqlDB.Close() //nolint:wrapcheck
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, handler.ErrNilDeps
	}

	ctx := context.Background()

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	users, err := userstore.NewGormStore(db)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if err = users.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store, err := cache.New(cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	deps, err := wire(cfg, users, store)
	if err != nil {
		return nil, err
	}

	if err = seed(ctx, cfg.Seed, users, deps.Local); err != nil {
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	webService, err := web.New(cfg, deps)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &Daemon{
		cfg:        cfg,
		db:         db,
		cache:      store,
		recovery:   deps.Recovery,
		webService: webService,
	}, nil
}

// wire builds the services the handlers share.
func wire(cfg *config.Config, users userstore.Store, store fiber.Storage) (*handler.Deps, error) {
	tokens, err := token.New(token.Config{
		Secret:        []byte(cfg.Token.Secret),
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		Leeway:        cfg.Token.Leeway,
		CodeTTL:       cfg.Recovery.CodeTTL,
		ResetTokenTTL: cfg.Recovery.ResetTokenTTL,
	}, store)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	codec, err := credential.New(credential.Config{
		Algorithm:    cfg.Password.Algorithm,
		BcryptCost:   cfg.Password.BcryptCost,
		MinLength:    cfg.Password.MinLength,
		StrongLength: cfg.Password.StrongLength,
		ValidityRule: cfg.Password.ValidityRule,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	catalog, err := auth.NewCatalog(cfg.Auth.ModeratorLabel)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	notifier, err := newNotifier(cfg)
	if err != nil {
		return nil, err
	}

	local := auth.NewLocalProvider(users, codec, catalog)

	deps := &handler.Deps{
		Cfg:      cfg,
		Users:    users,
		Tokens:   tokens,
		Codec:    codec,
		Authz:    auth.NewAuthorizer(catalog, tokens, cfg.Webserver.PublicPaths),
		Local:    local,
		Recovery: recovery.New(users, tokens, codec, notifier,
			recovery.WithTitle(cfg.Title), recovery.WithSendTimeout(cfg.Mail.Timeout)),
		Cache:    store,
	}

	if cfg.Auth.LDAP.Enabled {
		if deps.LDAP, err = auth.NewLDAPProvider(cfg.Auth.LDAP, users, catalog); err != nil {
			return nil, err //nolint:wrapcheck
		}

		// an unreachable directory is not fatal, local login keeps working
		if err = deps.LDAP.TestConnection(); err != nil {
			log.Warn().Err(err).Str("url", deps.LDAP.URL()).Msg("ldap connection test failed")
		}
	}

	return deps, nil
}

func newNotifier(cfg *config.Config) (notify.Notifier, error) {
	if !cfg.Mail.Enabled || cfg.DevMode {
		log.Warn().Msg("mail disabled, recovery emails are written to the log")

		return notify.NewLogNotifier(), nil
	}

	smtp, err := notify.NewSMTP(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return smtp, nil
}
