package pms_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/pmsworks/pms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

func TestTokenService_RoundTrip(t *testing.T) {
	ts := pms.NewTokenService(testSigningKey, 0, nil)
	assert.Equal(t, 24*time.Hour, ts.Expiration())

	in := &pms.Session{UserID: "u1", DisplayName: "kim", Email: "kim@example.com", Provider: pms.ProviderPassword}
	raw, err := ts.Generate(in)
	require.NoError(t, err)

	out, err := ts.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestTokenService_RejectsAbsentSession(t *testing.T) {
	ts := pms.NewTokenService(testSigningKey, 1, nil)

	_, err := ts.Generate(nil)
	assert.Error(t, err)

	_, err = ts.Generate(&pms.Session{})
	assert.Error(t, err)
}

func TestTokenService_Expired(t *testing.T) {
	ts := pms.NewTokenService(testSigningKey, 1, nil)

	past := time.Now().Add(-2 * time.Hour)
	claims := &pms.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "pms",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	require.NoError(t, err)

	_, err = ts.Validate(raw)
	assert.ErrorIs(t, err, pms.ErrTokenExpired)
}

func TestTokenService_Malformed(t *testing.T) {
	ts := pms.NewTokenService(testSigningKey, 1, nil)
	other := pms.NewTokenService([]byte("another-key-another-key-another!!"), 1, nil)

	raw, err := other.Generate(&pms.Session{UserID: "u1"})
	require.NoError(t, err)

	_, err = ts.Validate(raw)
	assertMalformed(t, err)

	_, err = ts.Validate("not-a-jwt")
	assertMalformed(t, err)
}

func assertMalformed(t *testing.T, err error) {
	t.Helper()

	var rich *goerrors.Error
	require.True(t, goerrors.As(err, &rich))
	assert.Equal(t, pms.ErrTokenMalformed.TextCode, rich.TextCode)
	assert.Equal(t, goerrors.CategoryAuth, rich.Category)
	assert.Equal(t, goerrors.CodeUnauthorized, rich.Code)
}
