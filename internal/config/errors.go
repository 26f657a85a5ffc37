package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrTokenSecretTooShort error if the token signing secret is shorter than 32 bytes.
	ErrTokenSecretTooShort = errors.New("toml config token.secret must be at least 32 bytes")

	// ErrCodeTTLOutOfRange error if recovery.codeTTL is outside 5 to 15 minutes.
	ErrCodeTTLOutOfRange = errors.New("toml config recovery.codettl must be between 5m and 15m")

	// ErrUnknownPasswordAlgorithm error if password.algorithm is not argon2id or bcrypt.
	ErrUnknownPasswordAlgorithm = errors.New("toml config password.algorithm must be argon2id or bcrypt")

	// ErrUnknownValidityRule error if password.validityRule is not min-length or all-rules.
	ErrUnknownValidityRule = errors.New("toml config password.validityrule must be min-length or all-rules")

	// ErrUnknownModeratorLabel error if auth.moderatorLabel is not moderador or interno.
	ErrUnknownModeratorLabel = errors.New("toml config auth.moderatorlabel must be moderador or interno")

	// ErrUnknownCacheDriver error if cache.driver is not a supported backend.
	ErrUnknownCacheDriver = errors.New("toml config cache.driver must be memory, redis, postgres or mysql")
)
