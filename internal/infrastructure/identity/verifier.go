// Package identity verifies ID tokens issued by the external identity
// provider and maps their claims to a domain.Identity.
package identity

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
)

var (
	ErrNoKey          = errors.New("identity: no verification key configured")
	ErrMissingSubject = errors.New("identity: token has no subject")
)

// Config selects the verification key and optional claim checks. When
// PublicKeyPEM is set, RS256 tokens are accepted; otherwise HS256 with
// Secret.
type Config struct {
	Secret       string
	PublicKeyPEM string
	Issuer       string
	Audience     string
}

type idTokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

type Verifier struct {
	parser *jwt.Parser
	key    interface{}
}

func NewVerifier(cfg Config) (*Verifier, error) {
	var (
		key    interface{}
		method string
	)
	switch {
	case strings.TrimSpace(cfg.PublicKeyPEM) != "":
		pub, err := parsePublicKey(cfg.PublicKeyPEM)
		if err != nil {
			return nil, err
		}
		key, method = pub, jwt.SigningMethodRS256.Alg()
	case cfg.Secret != "":
		key, method = []byte(cfg.Secret), jwt.SigningMethodHS256.Alg()
	default:
		return nil, ErrNoKey
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Verifier{parser: jwt.NewParser(opts...), key: key}, nil
}

// Verify checks signature, expiry and the configured issuer/audience.
func (v *Verifier) Verify(_ context.Context, assertion string) (*domain.Identity, error) {
	var claims idTokenClaims
	_, err := v.parser.ParseWithClaims(assertion, &claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	return &domain.Identity{
		UID:         claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
	}, nil
}

func parsePublicKey(pemText string) (*rsa.PublicKey, error) {
	pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemText))
	if err != nil {
		return nil, fmt.Errorf("identity: parse public key: %w", err)
	}
	return pub, nil
}
