package app

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/credential"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		algorithm = credential.AlgorithmArgon2id
		validityRule = credential.RuleMinLength
	})

	err := rootCmd.Execute()

	return out.String(), err
}

func TestPasswordHash(t *testing.T) {
	out, err := run(t, "password", "hash", "--algorithm", "bcrypt", "S3cure!Passw0rd")
	require.NoError(t, err)

	digest := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(digest, "$2"), digest)

	codec, err := credential.New(credential.Config{})
	require.NoError(t, err)

	ok, err := codec.Verify("S3cure!Passw0rd", digest)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPasswordHashUnknownAlgorithm(t *testing.T) {
	_, err := run(t, "password", "hash", "--algorithm", "md5", "secret")
	require.ErrorIs(t, err, credential.ErrUnknownAlgorithm)
}

func TestPasswordScore(t *testing.T) {
	out, err := run(t, "password", "score", "abc")
	require.NoError(t, err)

	var s credential.Strength
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.False(t, s.IsValid)
	assert.NotEmpty(t, s.Feedback)
	assert.Equal(t, 7, s.MaxScore)
}
