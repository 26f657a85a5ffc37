package token

import "errors"

var (
	// ErrInvalidToken is returned for every token that must not be accepted:
	// malformed, bad signature, wrong algorithm, issuer or audience, expired, denylisted or revoked.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrSecretTooShort is returned by New when the signing secret is shorter than 32 bytes.
	ErrSecretTooShort = errors.New("token signing secret must be at least 32 bytes")

	// ErrNoStore is returned by New without a revocation store.
	ErrNoStore = errors.New("token revocation store is required")
)
