package auth

import (
	"testing"
	"time"

	"organlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("donor123")
	require.NoError(t, err)
	assert.NotEqual(t, "donor123", hash)

	assert.NoError(t, VerifyPassword(hash, "donor123"))
	assert.ErrorIs(t, VerifyPassword(hash, "donor124"), types.ErrInvalidCredentials)
	assert.ErrorIs(t, VerifyPassword("", "donor123"), types.ErrInvalidCredentials)

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("12345"), ErrPasswordTooShort)
	assert.NoError(t, ValidatePassword("123456"))
}

func TestTokenRoundTrip(t *testing.T) {
	tokens, err := NewTokens("test-secret", 7*24*time.Hour)
	require.NoError(t, err)

	raw, err := tokens.Issue(&types.User{ID: "user-1", Role: types.RoleDoctor})
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, types.RoleDoctor, claims.Role)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt, time.Minute)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer, err := NewTokens("secret-a", time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokens("secret-b", time.Hour)
	require.NoError(t, err)

	raw, err := issuer.Issue(&types.User{ID: "user-1", Role: types.RoleAdmin})
	require.NoError(t, err)

	_, err = verifier.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsExpired(t *testing.T) {
	tokens, err := NewTokens("test-secret", time.Hour)
	require.NoError(t, err)
	tokens.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }

	raw, err := tokens.Issue(&types.User{ID: "user-1", Role: types.RoleDonor})
	require.NoError(t, err)

	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsGarbage(t *testing.T) {
	tokens, err := NewTokens("test-secret", time.Hour)
	require.NoError(t, err)

	_, err = tokens.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokensValidation(t *testing.T) {
	_, err := NewTokens("", time.Hour)
	assert.Error(t, err)

	_, err = NewTokens("secret", 0)
	assert.Error(t, err)
}
