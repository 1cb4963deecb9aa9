package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_RejectsShortSecret(t *testing.T) {
	_, err := NewService("too-short", time.Hour)
	assert.ErrorIs(t, err, ErrInvalidSecretLength)
}

func TestIssueAndValidateToken_RoundTrips(t *testing.T) {
	svc, err := NewService("this-is-a-32-byte-or-longer-secret!", time.Hour)
	require.NoError(t, err)

	token, expiresAt, err := svc.IssueToken("rinactl")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "rinactl", claims.Subject)
}

func TestValidateToken_RejectsWrongSecret(t *testing.T) {
	svc, err := NewService("this-is-a-32-byte-or-longer-secret!", time.Hour)
	require.NoError(t, err)
	token, _, err := svc.IssueToken("rinactl")
	require.NoError(t, err)

	other, err := NewService("a-completely-different-32-byte-secret!!", time.Hour)
	require.NoError(t, err)
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCheckSecret(t *testing.T) {
	svc, err := NewService("this-is-a-32-byte-or-longer-secret!", time.Hour)
	require.NoError(t, err)
	assert.True(t, svc.CheckSecret("this-is-a-32-byte-or-longer-secret!"))
	assert.False(t, svc.CheckSecret("wrong"))
}
