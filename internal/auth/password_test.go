package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8}

func TestHashAndVerify(t *testing.T) {
	t.Parallel()
	h := NewPasswordHasher(testParams)

	encoded, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))

	assert.True(t, h.Verify("correct horse", encoded))
	assert.False(t, h.Verify("Correct horse", encoded))
	assert.False(t, h.Verify("", encoded))
}

func TestHashIsSalted(t *testing.T) {
	t.Parallel()
	h := NewPasswordHasher(testParams)

	a, err := h.Hash("secret")
	require.NoError(t, err)
	b, err := h.Hash("secret")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyUsesStoredCost(t *testing.T) {
	t.Parallel()

	encoded, err := NewPasswordHasher(testParams).Hash("secret")
	require.NoError(t, err)

	stronger := NewPasswordHasher(Argon2Params{Time: 2, Memory: 2048, Threads: 1, KeyLen: 32, SaltLen: 16})
	assert.True(t, stronger.Verify("secret", encoded))
}

func TestEmptyPasswordRejected(t *testing.T) {
	t.Parallel()

	_, err := NewPasswordHasher(testParams).Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestMalformedHashesNeverVerify(t *testing.T) {
	t.Parallel()
	h := NewPasswordHasher(testParams)

	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$garbage$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
	} {
		assert.False(t, h.Verify("secret", encoded), "hash %q", encoded)
	}
}
