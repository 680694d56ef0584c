package ports

import (
	"context"
	"time"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
)

// IdentityVerifier exchanges an identity-provider assertion for an identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, assertion string) (*domain.Identity, error)
}

// TokenRevoker records signed-out session tokens until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// SessionClaims is what the auth middleware extracts from a session token.
type SessionClaims struct {
	UID       string
	Email     string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// SignInResult is returned after a successful sign-in.
type SignInResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
	IsAdmin   bool
}

type AuthService interface {
	SignIn(ctx context.Context, assertion string) (*SignInResult, error)
	SignOut(ctx context.Context, claims SessionClaims) error
}

// RoleResolver decides whether a uid holds administrative privilege.
type RoleResolver interface {
	IsAdmin(ctx context.Context, uid string) bool
}
