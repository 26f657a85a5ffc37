// Package credential hashes and verifies passwords and scores their strength.
package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
)

const (
	// AlgorithmArgon2id is the default hashing algorithm.
	AlgorithmArgon2id = "argon2id"
	// AlgorithmBcrypt is kept for stores migrated from bcrypt digests.
	AlgorithmBcrypt = "bcrypt"

	// RuleMinLength accepts a password once it reaches the minimum length, other rules are advisory.
	RuleMinLength = "min-length"
	// RuleAllRules accepts a password only when every rule passes.
	RuleAllRules = "all-rules"

	defaultBcryptCost   = 12
	defaultMinLength    = 8
	defaultStrongLength = 12
	bcryptMaxBytes      = 72
)

var (
	// ErrUnknownAlgorithm is returned by New for an algorithm other than argon2id or bcrypt.
	ErrUnknownAlgorithm = errors.New("unknown password hashing algorithm")

	// ErrUnknownValidityRule is returned by New for a rule other than min-length or all-rules.
	ErrUnknownValidityRule = errors.New("unknown password validity rule")

	// ErrMalformedDigest is the cause of a CredentialProcessing error for digests of no known algorithm.
	ErrMalformedDigest = errors.New("malformed password digest")
)

// Config of the codec. Zero values fall back to the defaults.
type Config struct {
	Algorithm    string
	BcryptCost   int
	MinLength    int
	StrongLength int
	ValidityRule string
}

// Codec hashes passwords with the configured algorithm and verifies digests of any supported one.
type Codec struct {
	cfg    Config
	params *argon2id.Params
}

// New validates cfg and returns a Codec.
func New(cfg Config) (*Codec, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmArgon2id
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaultBcryptCost
	}

	if cfg.MinLength == 0 {
		cfg.MinLength = defaultMinLength
	}

	if cfg.StrongLength == 0 {
		cfg.StrongLength = defaultStrongLength
	}

	if cfg.ValidityRule == "" {
		cfg.ValidityRule = RuleMinLength
	}

	switch cfg.Algorithm {
	case AlgorithmArgon2id, AlgorithmBcrypt:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, cfg.Algorithm)
	}

	switch cfg.ValidityRule {
	case RuleMinLength, RuleAllRules:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownValidityRule, cfg.ValidityRule)
	}

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cfg.BcryptCost) //nolint:err113
	}

	return &Codec{cfg: cfg, params: argon2id.DefaultParams}, nil
}

// Algorithm returns the algorithm new digests are created with.
func (c *Codec) Algorithm() string {
	return c.cfg.Algorithm
}

// Hash returns a salted digest of plain.
func (c *Codec) Hash(plain string) (string, error) {
	if plain == "" {
		return "", apperror.Validation("password is required")
	}

	if c.cfg.Algorithm == AlgorithmBcrypt {
		if len(plain) > bcryptMaxBytes {
			return "", apperror.Validation("password must be at most 72 bytes")
		}

		digest, err := bcrypt.GenerateFromPassword([]byte(plain), c.cfg.BcryptCost)
		if err != nil {
			return "", apperror.CredentialProcessing(err)
		}

		return string(digest), nil
	}

	digest, err := argon2id.CreateHash(plain, c.params)
	if err != nil {
		return "", apperror.CredentialProcessing(err)
	}

	return digest, nil
}

// Verify reports whether plain matches digest. The algorithm is taken from the digest prefix.
// A mismatch is false with no error, an unreadable digest is a CredentialProcessing error.
func (c *Codec) Verify(plain, digest string) (bool, error) {
	switch algorithmOf(digest) {
	case AlgorithmArgon2id:
		match, err := argon2id.ComparePasswordAndHash(plain, digest)
		if err != nil {
			return false, apperror.CredentialProcessing(err)
		}

		return match, nil
	case AlgorithmBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))

		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, apperror.CredentialProcessing(err)
		}
	default:
		return false, apperror.CredentialProcessing(ErrMalformedDigest)
	}
}

// NeedsRehash reports whether digest was made by another algorithm or bcrypt cost than configured.
func (c *Codec) NeedsRehash(digest string) bool {
	alg := algorithmOf(digest)
	if alg != c.cfg.Algorithm {
		return true
	}

	if alg == AlgorithmBcrypt {
		cost, err := bcrypt.Cost([]byte(digest))

		return err != nil || cost != c.cfg.BcryptCost
	}

	return false
}

func algorithmOf(digest string) string {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return AlgorithmArgon2id
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		return AlgorithmBcrypt
	default:
		return ""
	}
}
