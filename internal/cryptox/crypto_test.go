package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cheap = Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 16, SaltLen: 8}

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword([]byte("s3cret"), cheap)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := VerifyPassword([]byte("s3cret"), hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword([]byte("wrong"), hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	a, err := HashPassword([]byte("same"), cheap)
	require.NoError(t, err)
	b, err := HashPassword([]byte("same"), cheap)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	for _, enc := range []string{
		"",
		"plain",
		"$bcrypt$v=19$m=1,t=1,p=1$AAAA$AAAA",
		"$argon2id$v=1$m=1,t=1,p=1$AAAA$AAAA",
		"$argon2id$v=19$garbage$AAAA$AAAA",
		"$argon2id$v=19$m=1,t=1,p=1$!!!$AAAA",
	} {
		_, err := VerifyPassword([]byte("x"), enc)
		assert.ErrorIs(t, err, ErrMalformedHash, enc)
	}
}
