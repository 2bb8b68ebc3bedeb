package security

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_IssueAndValidate(t *testing.T) {
	manager := NewSessionManager("a-very-long-test-secret-key!!!!!", time.Hour)
	userID := uuid.New()

	token, err := manager.Issue(userID, "fan@example.com")
	require.NoError(t, err)

	claims, err := manager.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "fan@example.com", claims.Email)
	assert.Equal(t, "hooper", claims.Issuer)
}

func TestSessionManager_RejectsWrongSecret(t *testing.T) {
	manager := NewSessionManager("secret-one-secret-one-secret-one", time.Hour)
	other := NewSessionManager("secret-two-secret-two-secret-two", time.Hour)

	token, err := manager.Issue(uuid.New(), "fan@example.com")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestSessionManager_RejectsExpired(t *testing.T) {
	manager := NewSessionManager("a-very-long-test-secret-key!!!!!", -time.Minute)

	token, err := manager.Issue(uuid.New(), "fan@example.com")
	require.NoError(t, err)

	_, err = manager.Validate(token)
	assert.Error(t, err)
}

func TestLoginCodes(t *testing.T) {
	code, err := GenerateLoginCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9')
	}

	hash, err := HashLoginCode(code)
	require.NoError(t, err)
	assert.NotEqual(t, code, hash)

	assert.True(t, CompareLoginCode(hash, code))

	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}
	assert.False(t, CompareLoginCode(hash, wrong))
}
