package auth

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/config"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/controller/userstore"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/models"
)

const (
	defaultLDAPTimeout = 10
	defaultUserFilter  = "(mail={email})"
)

// LDAPProvider authenticates against an LDAP or Active Directory server and keeps a local copy
// of the directory users in the user store.
type LDAPProvider struct {
	config  config.LDAPAuth
	users   userstore.Store
	catalog *Catalog
	now     func() time.Time
}

// NewLDAPProvider creates a new LDAP provider.
func NewLDAPProvider(cfg config.LDAPAuth, users userstore.Store, catalog *Catalog) (*LDAPProvider, error) {
	if !cfg.Enabled {
		return nil, ErrLDAPDisabled
	}

	// Set defaults
	if cfg.UserFilter == "" {
		cfg.UserFilter = defaultUserFilter
	}

	if cfg.EmailAttr == "" {
		cfg.EmailAttr = "mail"
	}

	if cfg.NameAttr == "" {
		cfg.NameAttr = "cn"
	}

	if cfg.Port == 0 {
		cfg.Port = 389

		if cfg.UseSSL {
			cfg.Port = 636
		}
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultLDAPTimeout
	}

	return &LDAPProvider{
		config:  cfg,
		users:   users,
		catalog: catalog,
		now:     time.Now,
	}, nil
}

// URL returns the server address the provider dials.
func (p *LDAPProvider) URL() string {
	hostPort := net.JoinHostPort(p.config.Host, strconv.Itoa(p.config.Port))

	if p.config.UseSSL {
		return "ldaps://" + hostPort
	}

	return "ldap://" + hostPort
}

// Connect establishes a connection to the LDAP server.
func (p *LDAPProvider) Connect() (*ldap.Conn, error) {
	var tlsConfig *tls.Config
	if p.config.UseSSL || p.config.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: p.config.SkipVerify, //nolint:gosec // skipping verifying tls is ok
			ServerName:         p.config.Host,
		}
	}

	timeout := time.Duration(p.config.Timeout) * time.Second

	conn, err := ldap.DialURL(p.URL(),
		ldap.DialWithTLSConfig(tlsConfig),
		ldap.DialWithDialer(&net.Dialer{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	// Upgrade to TLS if requested (for non-SSL connections)
	if !p.config.UseSSL && p.config.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			if errClose := conn.Close(); errClose != nil {
				log.Error().Err(errClose).Msg("failed to close LDAP connection")
			}

			return nil, fmt.Errorf("failed to start TLS: %w", errStartTLS)
		}
	}

	conn.SetTimeout(timeout)

	return conn, nil
}

// Authenticate binds as the directory entry of email and returns the matching local user,
// creating or refreshing it from the directory attributes.
func (p *LDAPProvider) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	// an empty password would be an anonymous bind that many servers accept
	if email == "" || password == "" {
		return nil, apperror.Wrap(apperror.KindAuthentication, msgInvalidCredentials, ErrInvalidCredentials)
	}

	conn, err := p.Connect()
	if err != nil {
		return nil, apperror.Internal(err)
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if err = p.bindService(conn); err != nil {
		return nil, apperror.Internal(err)
	}

	entry, err := p.searchUserEntry(conn, email)

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return nil, apperror.Wrap(apperror.KindAuthentication, msgInvalidCredentials, err)
	case err != nil:
		return nil, apperror.Internal(err)
	}

	if err = conn.Bind(entry.DN, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return nil, apperror.Wrap(apperror.KindAuthentication, msgInvalidCredentials, ErrInvalidCredentials)
		}

		return nil, apperror.Internal(fmt.Errorf("authentication failed: %w", err))
	}

	return p.upsertLDAPUser(ctx, entry)
}

// bindService binds with the configured service account, if any, to search for users.
func (p *LDAPProvider) bindService(conn *ldap.Conn) error {
	if p.config.BindDN == "" {
		return nil
	}

	if err := conn.Bind(p.config.BindDN, p.config.BindPassword); err != nil {
		return fmt.Errorf("failed to bind with service account: %w", err)
	}

	return nil
}

// searchUserEntry returns the single directory entry of email.
func (p *LDAPProvider) searchUserEntry(conn *ldap.Conn, email string) (*ldap.Entry, error) {
	searchRequest := ldap.NewSearchRequest(
		p.config.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		2, // one more than needed to spot duplicates
		p.config.Timeout,
		false,
		p.userFilter(email),
		p.attributes(),
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		return nil, fmt.Errorf("failed to search for user: %w", err)
	}

	if searchResult == nil {
		return nil, fmt.Errorf("failed to search for user: %w", err)
	}

	switch len(searchResult.Entries) {
	case 0:
		return nil, ErrInvalidCredentials
	case 1:
		return searchResult.Entries[0], nil
	default:
		return nil, ErrMultipleUsersFound
	}
}

// userFilter fills the {email} placeholder of the configured filter.
func (p *LDAPProvider) userFilter(email string) string {
	return strings.ReplaceAll(p.config.UserFilter, "{email}", ldap.EscapeFilter(email))
}

func (p *LDAPProvider) attributes() []string {
	attrs := []string{p.config.EmailAttr, p.config.NameAttr, "dn"}
	if p.config.RoleAttr != "" {
		attrs = append(attrs, p.config.RoleAttr)
	}

	return attrs
}

// roleOf maps the role attribute of entry onto the catalog. Anything else is the default role.
func (p *LDAPProvider) roleOf(entry *ldap.Entry) Role {
	if p.config.RoleAttr == "" {
		return RoleUser
	}

	for _, v := range entry.GetAttributeValues(p.config.RoleAttr) {
		if r := strings.ToLower(strings.TrimSpace(v)); p.catalog.IsRole(r) {
			return Role(r)
		}
	}

	return RoleUser
}

// upsertLDAPUser creates or updates a user record based on LDAP attributes.
func (p *LDAPProvider) upsertLDAPUser(ctx context.Context, entry *ldap.Entry) (*models.User, error) {
	email := userstore.NormalizeEmail(entry.GetAttributeValue(p.config.EmailAttr))
	name := entry.GetAttributeValue(p.config.NameAttr)
	role := string(p.roleOf(entry))
	now := p.now()

	user, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if user == nil {
		user = &models.User{
			Email:       email,
			Name:        name,
			Role:        role,
			Verified:    true,
			Active:      true,
			AuthSource:  models.AuthSourceLDAP,
			ExternalID:  entry.DN,
			LastLoginAt: &now,
		}

		if err = p.users.Create(ctx, user); err != nil {
			return nil, apperror.Internal(fmt.Errorf("failed to create user: %w", err))
		}

		log.Info().Uint64("user_id", user.ID).Str("dn", entry.DN).Msg("directory user created")

		return user, nil
	}

	if user.AuthSource != models.AuthSourceLDAP {
		return nil, apperror.Wrap(apperror.KindConflict, "email belongs to a local account", ErrLocalAccount)
	}

	if !user.Active {
		return nil, apperror.Wrap(apperror.KindAuthentication, "user account is disabled", ErrUserAccountDisabled)
	}

	ch := userstore.Changes{Name: &name, LastLoginAt: &now}

	// without a role attribute the role is managed locally
	if p.config.RoleAttr != "" {
		ch.Role = &role
	}

	user, err = p.users.Update(ctx, user.ID, ch)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to update user: %w", err))
	}

	return user, nil
}

// TestConnection tests the LDAP server connection and bind credentials.
func (p *LDAPProvider) TestConnection() error {
	conn, err := p.Connect()
	if err != nil {
		return err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	return p.bindService(conn)
}
