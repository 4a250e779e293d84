package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	userIdClaim = "user_id"
	expClaim    = "exp"
)

// Claims holds the fields of the credential token the client cares
// about. The client cannot verify the signature (the signing key is the
// backend's); the token is parsed unverified only to recover the user id
// used in the channel handshake and to warn before sending an expired
// credential.
type Claims struct {
	UserId    int
	ExpiresAt time.Time
}

func (c Claims) Expired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

func FromToken(tokenString string) (Claims, error) {
	parser := &jwt.Parser{}
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("invalid token claims")
	}

	userId, ok := mapClaims[userIdClaim].(float64)
	if !ok {
		return Claims{}, fmt.Errorf("invalid user id claim")
	}

	claims := Claims{UserId: int(userId)}
	if exp, ok := mapClaims[expClaim].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(exp), 0)
	}

	return claims, nil
}
