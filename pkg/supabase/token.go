package supabase

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields of a GoTrue access token the client reads.
type Claims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// DisplayName returns user_metadata.display_name when it is a string.
func (c *Claims) DisplayName() string {
	name, _ := c.UserMetadata["display_name"].(string)
	return name
}

// ParseAccessToken decodes token. With a secret the HS256 signature and the
// expiry are verified, without one the claims are read as-is.
func ParseAccessToken(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	if len(secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("decode access token: %w", err)
		}
		return claims, nil
	}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", err)
	}
	return claims, nil
}
