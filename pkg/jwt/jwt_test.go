package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateToken("abc123", "jessica@example.com", "participant", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "abc123", claims.UserID)
	assert.Equal(t, "participant", claims.Role)
}

func TestValidateRejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := GenerateToken("abc123", "a@b.c", "admin", "secret", time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken(token, "other")
	assert.Error(t, err)

	expired, err := GenerateToken("abc123", "a@b.c", "admin", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(expired, "secret")
	assert.Error(t, err)
}

func TestGenerateRequiresSecret(t *testing.T) {
	_, err := GenerateToken("abc123", "a@b.c", "admin", "", time.Hour)
	assert.Error(t, err)
}
