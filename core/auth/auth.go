// Package auth verifies bearer tokens issued by the external auth
// collaborator. Session issuance and entitlement bookkeeping live outside
// this service; a token arrives here as an opaque "caller identity +
// entitlement set".
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles understood by the API layer.
const (
	RoleParent  = "parent"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Claims carries the caller identity plus the entitled event ids.
type Claims struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	// EntitledEvents lists the event ids the caller holds a paid
	// full-audio entitlement for.
	EntitledEvents []int64 `json:"entitledEvents"`
	jwt.RegisteredClaims
}

// HasEntitlement reports whether the caller paid for full audio of event.
func (c *Claims) HasEntitlement(eventID int64) bool {
	for _, id := range c.EntitledEvents {
		if id == eventID {
			return true
		}
	}
	return false
}

// GenerateToken signs a token. Used by tests and local tooling; production
// tokens come from the auth collaborator with the shared secret.
func GenerateToken(secret string, userID int64, role string, entitledEvents []int64, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:         userID,
		Role:           role,
		EntitledEvents: entitledEvents,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token and returns its claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
