package pms_test

import (
	"testing"

	"github.com/pmsworks/pms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func useMinCost(t *testing.T) {
	t.Helper()
	prev := pms.PasswordHashCost
	pms.PasswordHashCost = bcrypt.MinCost
	t.Cleanup(func() { pms.PasswordHashCost = prev })
}

func TestHashPassword(t *testing.T) {
	useMinCost(t)

	hash, err := pms.HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.NoError(t, pms.ComparePasswordAndHash("secret1", hash))
	assert.ErrorIs(t, pms.ComparePasswordAndHash("secret2", hash), pms.ErrMismatchedHashAndPassword)
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := pms.HashPassword("")
	assert.ErrorIs(t, err, pms.ErrNoEmptyString)
}

func TestRandomPasswordHash(t *testing.T) {
	useMinCost(t)

	a := pms.RandomPasswordHash()
	b := pms.RandomPasswordHash()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
