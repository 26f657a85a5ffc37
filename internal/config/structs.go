package config

import (
	"time"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
	Token     Token
	Password  Password
	Recovery  Recovery
	Cache     Cache
	Mail      Mail
	Seed      Seed
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool     // disable recover middleware
	Port           int      // listening port for the webserver
	ShutDownTime   int      // wait time for shutdown
	URL            string   // base url for the webserver
	PublicPaths    []string // path prefixes served without a bearer token
	BodyLimit      int      // max request body in bytes
}

// Auth holds the login source and role settings.
type Auth struct {
	LocalDB LocalDBAuth
	LDAP    LDAPAuth

	// ModeratorLabel selects the deployment label of the moderator role ("moderador" or "interno").
	ModeratorLabel string
}

// LocalDBAuth toggles login against the user table.
type LocalDBAuth struct {
	Enabled bool
}

// LDAPAuth holds LDAP/Active Directory configuration for authentication.
type LDAPAuth struct {
	// Enabled indicates if LDAP authentication is enabled.
	Enabled bool
	// Host is the LDAP server hostname or IP address.
	Host string
	// Port is the LDAP server port (typically 389 for LDAP, 636 for LDAPS).
	Port int
	// UseSSL enables LDAPS (LDAP over SSL/TLS).
	UseSSL bool
	// UseTLS enables StartTLS to upgrade an LDAP connection to TLS.
	UseTLS bool
	// SkipVerify skips TLS certificate verification (insecure, for testing only).
	SkipVerify bool
	// BindDN is the distinguished name to bind with for performing searches.
	BindDN string
	// BindPassword is the password for the bind DN.
	BindPassword string
	// BaseDN is the base distinguished name for user searches.
	BaseDN string
	// UserFilter is the LDAP filter for finding users, e.g. "(mail={email})".
	UserFilter string
	// EmailAttr is the LDAP attribute containing the email address.
	EmailAttr string
	// NameAttr is the LDAP attribute containing the display name.
	NameAttr string
	// RoleAttr is the LDAP attribute mapped onto the user role. Empty keeps the default role.
	RoleAttr string
	// Timeout is the connection timeout in seconds.
	Timeout int
}

// Token holds the access and refresh token settings.
type Token struct {
	Secret     string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// Password holds the hashing and strength policy.
type Password struct {
	Algorithm    string // argon2id or bcrypt
	BcryptCost   int
	MinLength    int
	StrongLength int
	ValidityRule string // min-length or all-rules
}

// Recovery holds the password recovery settings.
type Recovery struct {
	CodeTTL       time.Duration
	ResetTokenTTL time.Duration
	RateLimit     RateLimit
}

// RateLimit is a fixed request quota per client address and window.
type RateLimit struct {
	Max    int
	Window time.Duration
}

// Cache selects the backend of the shared token and rate-limit caches.
type Cache struct {
	Driver        string // memory, redis, postgres or mysql
	SweepInterval time.Duration
	Redis         RedisCache
	SQL           SQLCache
}

// RedisCache holds the redis connection settings.
type RedisCache struct {
	Host     string
	Port     int
	Username string
	Password string
	Database int
	URL      string
}

// SQLCache holds the connection settings of the postgres and mysql cache drivers.
type SQLCache struct {
	ConnectionURI string
	Table         string
}

// Mail holds the SMTP settings of the notifier.
type Mail struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds the delivery of a single message.
	Timeout time.Duration
}

// Seed holds the administrator created on the first start, when the user table is empty.
type Seed struct {
	AdminEmail    string
	AdminName     string
	AdminPassword string // keep it out of the file, use USUARIOS_SEED_ADMINPASSWORD
}
