// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvConfigJSON holds a JSON document merged over the TOML configuration.
	EnvConfigJSON = "USUARIOS_CONFIG_JSON"

	// envPrefix is the prefix of the single-value secret overrides, e.g. USUARIOS_TOKEN_SECRET.
	envPrefix = "USUARIOS"

	minSecretLength = 32
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	applySecretEnv(&c)

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	return c, nil
}

// applySecretEnv lets deployments keep secrets out of the TOML file.
func applySecretEnv(c *Config) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	overrides := map[string]*string{
		"token.secret":         &c.Token.Secret,
		"db.password":          &c.DB.Password,
		"mail.password":        &c.Mail.Password,
		"ldap.bindpassword":    &c.Auth.LDAP.BindPassword,
		"cache.redis.password": &c.Cache.Redis.Password,
		"seed.adminpassword":   &c.Seed.AdminPassword,
	}

	for key, target := range overrides {
		if value := v.GetString(key); value != "" {
			*target = value
		}
	}
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate checks the settings the service can not start without and fills in defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	if len(c.Token.Secret) < minSecretLength {
		return errors.Wrap(ErrTokenSecretTooShort, invalidErrMessage)
	}

	setDefaults(c)

	if c.Recovery.CodeTTL < 5*time.Minute || c.Recovery.CodeTTL > 15*time.Minute {
		return errors.Wrap(ErrCodeTTLOutOfRange, invalidErrMessage)
	}

	switch c.Password.Algorithm {
	case "argon2id", "bcrypt":
	default:
		return errors.Wrap(ErrUnknownPasswordAlgorithm, invalidErrMessage)
	}

	switch c.Password.ValidityRule {
	case "min-length", "all-rules":
	default:
		return errors.Wrap(ErrUnknownValidityRule, invalidErrMessage)
	}

	switch c.Auth.ModeratorLabel {
	case "moderador", "interno":
	default:
		return errors.Wrap(ErrUnknownModeratorLabel, invalidErrMessage)
	}

	switch c.Cache.Driver {
	case "memory", "redis", "postgres", "mysql":
	default:
		return errors.Wrap(ErrUnknownCacheDriver, invalidErrMessage)
	}

	return nil
}

//nolint:mnd // defaults are documented in etc/main.toml
func setDefaults(c *Config) {
	if c.Token.Issuer == "" {
		c.Token.Issuer = "usuarios-api"
	}

	if c.Token.Audience == "" {
		c.Token.Audience = "usuarios-web"
	}

	if c.Token.AccessTTL == 0 {
		c.Token.AccessTTL = 24 * time.Hour
	}

	if c.Token.RefreshTTL == 0 {
		c.Token.RefreshTTL = 7 * 24 * time.Hour
	}

	if c.Password.Algorithm == "" {
		c.Password.Algorithm = "argon2id"
	}

	if c.Password.BcryptCost == 0 {
		c.Password.BcryptCost = 12
	}

	if c.Password.MinLength == 0 {
		c.Password.MinLength = 8
	}

	if c.Password.StrongLength == 0 {
		c.Password.StrongLength = 12
	}

	if c.Password.ValidityRule == "" {
		c.Password.ValidityRule = "min-length"
	}

	if c.Recovery.CodeTTL == 0 {
		c.Recovery.CodeTTL = 15 * time.Minute
	}

	if c.Recovery.ResetTokenTTL == 0 {
		c.Recovery.ResetTokenTTL = 15 * time.Minute
	}

	if c.Recovery.RateLimit.Max == 0 {
		c.Recovery.RateLimit.Max = 5
	}

	if c.Recovery.RateLimit.Window == 0 {
		c.Recovery.RateLimit.Window = 15 * time.Minute
	}

	if c.Mail.Timeout == 0 {
		c.Mail.Timeout = 30 * time.Second
	}

	if c.Auth.ModeratorLabel == "" {
		c.Auth.ModeratorLabel = "moderador"
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}

	if c.Cache.SweepInterval == 0 {
		c.Cache.SweepInterval = time.Hour
	}

	if c.Webserver.BodyLimit == 0 {
		c.Webserver.BodyLimit = 1 << 20
	}

	if len(c.Webserver.PublicPaths) == 0 {
		c.Webserver.PublicPaths = DefaultPublicPaths()
	}
}

// DefaultPublicPaths returns the routes served without a bearer token.
func DefaultPublicPaths() []string {
	return []string{
		"/health",
		"/metrics",
		"/api/auth/login",
		"/api/auth/register",
		"/api/auth/refresh",
		"/api/auth/forgot-password",
		"/api/auth/verify-code",
		"/api/auth/reset-password",
		"/api/auth/password-strength",
	}
}
