package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	userID := uuid.New()

	t.Run("Valid token", func(t *testing.T) {
		token, err := m.Generate(userID, "tenant@example.com")
		require.NoError(t, err)

		claims, err := m.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, "tenant@example.com", claims.Email)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		token, err := NewJWTManager("other-secret", time.Hour).Generate(userID, "")
		require.NoError(t, err)

		_, err = m.Verify(token)
		assert.Error(t, err)
	})

	t.Run("Expired token", func(t *testing.T) {
		token, err := NewJWTManager("test-secret", -time.Minute).Generate(userID, "")
		require.NoError(t, err)

		_, err = m.Verify(token)
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := m.Verify("not-a-token")
		assert.Error(t, err)
	})
}
