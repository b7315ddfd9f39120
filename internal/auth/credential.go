package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/shoplist/internal/api"
)

// Claims are the fields the backend puts in its session token.
type Claims struct {
	Email    string `json:"email"`
	SecretID string `json:"secretId"`
	jwt.RegisteredClaims
}

// Credential is a decoded session token.
type Credential struct {
	Token     string
	Email     string
	ExpiresAt *time.Time
}

// DecodeCredential reads the claims of a backend token without verifying
// its signature; only the backend can do that.
func DecodeCredential(token string) (*Credential, error) {
	const op = "decode credential"
	if token == "" {
		return nil, api.Errorf(api.KindCorruptCredential, op, "empty token")
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, &api.Error{Kind: api.KindCorruptCredential, Op: op, Err: err}
	}

	c := &Credential{Token: token, Email: claims.Email}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time.UTC()
		c.ExpiresAt = &exp
	}
	return c, nil
}
