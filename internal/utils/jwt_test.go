package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionTokenClaims(t *testing.T) {
	tok, err := NewSessionToken("secret", 7, "Admin", 3, 24)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)

	parsed, err := jwt.Parse(tok.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, okCast := parsed.Claims.(jwt.MapClaims)
	require.True(t, okCast)
	assert.EqualValues(t, 7, claims["sub"])
	assert.Equal(t, "Admin", claims["role"])
	assert.EqualValues(t, 3, claims["tenant"])
	assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), tok.Exp, time.Minute)
}

func TestSessionTokenRejectsWrongSecret(t *testing.T) {
	tok, err := NewSessionToken("secret", 7, "Viewer", 0, 1)
	require.NoError(t, err)

	_, err = jwt.Parse(tok.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte("other"), nil
	})
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "hunter22"))
	assert.False(t, VerifyPassword(hash, "hunter23"))
}
