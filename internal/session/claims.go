package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields of a JWT session token the front end can read
// without holding the signing secret.
type Claims struct {
	UserID    string
	ExpiresAt time.Time
}

var ErrNotJWT = errors.New("token is not a JWT")

// ParseClaims decodes token claims without verifying the signature. Only
// the API can verify tokens; the front end uses the claims as hints.
func ParseClaims(token string) (Claims, error) {
	parser := jwt.NewParser()
	mc := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, mc); err != nil {
		return Claims{}, ErrNotJWT
	}

	var c Claims
	if uid, ok := mc["userID"].(string); ok {
		c.UserID = uid
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

// Expired reports whether the claims carry an expiry before now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
