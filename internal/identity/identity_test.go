package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func TestFromToken(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		exp := time.Now().Add(time.Hour)
		tokenString := signedToken(t, jwt.MapClaims{
			"user_id": 42,
			"exp":     exp.Unix(),
		})

		claims, err := FromToken(tokenString)
		assert.NoError(t, err, "expected no error parsing token")
		assert.Equal(t, 42, claims.UserId, "expected user id claim to match")
		assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix(), "expected expiry claim to match")
		assert.False(t, claims.Expired(), "expected token not to be expired")
	})
	t.Run("expired token", func(t *testing.T) {
		tokenString := signedToken(t, jwt.MapClaims{
			"user_id": 42,
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})

		claims, err := FromToken(tokenString)
		assert.NoError(t, err, "expected no error parsing expired token")
		assert.True(t, claims.Expired(), "expected token to be expired")
	})
	t.Run("no expiry claim", func(t *testing.T) {
		tokenString := signedToken(t, jwt.MapClaims{"user_id": 42})

		claims, err := FromToken(tokenString)
		assert.NoError(t, err, "expected no error parsing token without exp")
		assert.False(t, claims.Expired(), "expected token without exp never to be expired")
	})
	t.Run("missing user id claim", func(t *testing.T) {
		tokenString := signedToken(t, jwt.MapClaims{"exp": time.Now().Unix()})

		_, err := FromToken(tokenString)
		assert.Error(t, err, "expected error for token without user id claim")
	})
	t.Run("malformed token", func(t *testing.T) {
		_, err := FromToken("not-a-jwt")
		assert.Error(t, err, "expected error for malformed token")
	})
}
