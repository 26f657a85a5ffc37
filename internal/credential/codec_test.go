package credential_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/credential"
)

func newCodec(t *testing.T, cfg credential.Config) *credential.Codec {
	t.Helper()

	c, err := credential.New(cfg)
	require.NoError(t, err)

	return c
}

func TestNew(t *testing.T) {
	c := newCodec(t, credential.Config{})
	assert.Equal(t, credential.AlgorithmArgon2id, c.Algorithm())

	_, err := credential.New(credential.Config{Algorithm: "md5"})
	require.ErrorIs(t, err, credential.ErrUnknownAlgorithm)

	_, err = credential.New(credential.Config{ValidityRule: "none"})
	require.ErrorIs(t, err, credential.ErrUnknownValidityRule)

	_, err = credential.New(credential.Config{Algorithm: credential.AlgorithmBcrypt, BcryptCost: 99})
	require.Error(t, err)
}

func TestHashAndVerify(t *testing.T) {
	tests := []struct {
		name string
		cfg  credential.Config
	}{
		{name: "argon2id", cfg: credential.Config{Algorithm: credential.AlgorithmArgon2id}},
		{name: "bcrypt", cfg: credential.Config{Algorithm: credential.AlgorithmBcrypt, BcryptCost: bcrypt.MinCost}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCodec(t, tt.cfg)

			digest, err := c.Hash("S3cure!Passw0rd")
			require.NoError(t, err)
			assert.NotContains(t, digest, "S3cure!Passw0rd")

			again, err := c.Hash("S3cure!Passw0rd")
			require.NoError(t, err)
			assert.NotEqual(t, digest, again, "digests are salted")

			ok, err := c.Verify("S3cure!Passw0rd", digest)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = c.Verify("wrong", digest)
			require.NoError(t, err)
			assert.False(t, ok)

			assert.False(t, c.NeedsRehash(digest))
		})
	}
}

func TestVerifyAcrossAlgorithms(t *testing.T) {
	argon := newCodec(t, credential.Config{Algorithm: credential.AlgorithmArgon2id})
	bc := newCodec(t, credential.Config{Algorithm: credential.AlgorithmBcrypt, BcryptCost: bcrypt.MinCost})

	argonDigest, err := argon.Hash("first-password")
	require.NoError(t, err)

	bcryptDigest, err := bc.Hash("second-password")
	require.NoError(t, err)

	ok, err := bc.Verify("first-password", argonDigest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = argon.Verify("second-password", bcryptDigest)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, argon.NeedsRehash(bcryptDigest))
	assert.True(t, bc.NeedsRehash(argonDigest))

	costly := newCodec(t, credential.Config{Algorithm: credential.AlgorithmBcrypt, BcryptCost: bcrypt.MinCost + 1})
	assert.True(t, costly.NeedsRehash(bcryptDigest), "cost changes trigger a rehash")
}

func TestHashErrors(t *testing.T) {
	bc := newCodec(t, credential.Config{Algorithm: credential.AlgorithmBcrypt, BcryptCost: bcrypt.MinCost})

	_, err := bc.Hash("")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = bc.Hash(strings.Repeat("a", 73))
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestVerifyMalformedDigest(t *testing.T) {
	c := newCodec(t, credential.Config{})

	for _, digest := range []string{"", "plaintext", "$argon2id$broken", "$2b$broken"} {
		ok, err := c.Verify("whatever", digest)
		assert.False(t, ok, digest)
		assert.True(t, apperror.Is(err, apperror.KindCredentialProcessing), digest)
	}
}
