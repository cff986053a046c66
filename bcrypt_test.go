package auth_test

import (
	"testing"

	auth "github.com/mortgagematch/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordAndCompare(t *testing.T) {
	hash, err := auth.HashPassword("some-long-password")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "some-long-password", hash)

	assert.NoError(t, auth.ComparePasswordAndHash("some-long-password", hash))

	err = auth.ComparePasswordAndHash("wrong-password", hash)
	assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
}

func TestHashPasswordRejectsEmptyString(t *testing.T) {
	_, err := auth.HashPassword("")
	assert.ErrorIs(t, err, auth.ErrNoEmptyString)
}

func TestRandomPasswordHash(t *testing.T) {
	h1 := auth.RandomPasswordHash()
	h2 := auth.RandomPasswordHash()
	assert.NotEmpty(t, h1)
	assert.NotEqual(t, h1, h2)
}
