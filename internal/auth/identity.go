package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned before any verification is attempted.
var ErrMalformedToken = errors.New("malformed identity token")

// Identity is what the provider vouches for.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// IdentityVerifier checks a client-obtained ID token.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (Identity, error)
}

type idClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies RS256 ID tokens against the provider's public key,
// issuer and audience (the project id).
type JWTVerifier struct {
	parser *jwt.Parser
	key    interface{}
}

// NewJWTVerifier parses the PEM public key and binds issuer/audience.
func NewJWTVerifier(publicKeyPEM, issuer, audience string) (*JWTVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("identity public key: %w", err)
	}
	return &JWTVerifier{
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
		key: key,
	}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, idToken string) (Identity, error) {
	if !wellFormed(idToken) {
		return Identity{}, ErrMalformedToken
	}
	var claims idClaims
	if _, err := v.parser.ParseWithClaims(idToken, &claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	}); err != nil {
		return Identity{}, err
	}
	if claims.Subject == "" {
		return Identity{}, errors.New("identity token has no subject")
	}
	return Identity{UID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

// wellFormed checks the compact JWS shape: three non-empty dot-separated
// segments.
func wellFormed(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}
