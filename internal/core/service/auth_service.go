package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
)

// AuthService exchanges identity-provider assertions for session tokens and
// revokes them on sign-out.
type AuthService struct {
	verifier  ports.IdentityVerifier
	users     ports.LedgerRepository
	roles     ports.RoleResolver
	revoker   ports.TokenRevoker
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
}

func NewAuthService(
	verifier ports.IdentityVerifier,
	users ports.LedgerRepository,
	roles ports.RoleResolver,
	revoker ports.TokenRevoker,
	jwtSecret string,
	tokenTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		verifier:  verifier,
		users:     users,
		roles:     roles,
		revoker:   revoker,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

// SignIn verifies the assertion, creates the user on first sight and resolves
// the role once. The role travels inside the session token.
func (s *AuthService) SignIn(ctx context.Context, assertion string) (*ports.SignInResult, error) {
	identity, err := s.verifier.Verify(ctx, assertion)
	if err != nil {
		s.log.Warn().Err(err).Msg("identity assertion rejected")
		return nil, fmt.Errorf("sign in: %w", domain.ErrSignInFailed)
	}

	user, err := s.users.UpsertUser(ctx, *identity)
	if err != nil {
		s.log.Error().Err(err).Str("uid", identity.UID).Msg("failed to upsert user")
		return nil, fmt.Errorf("sign in: %w", domain.ErrSignInFailed)
	}

	isAdmin := s.roles.IsAdmin(ctx, user.UID)

	token, expiresAt, err := s.generateToken(user, isAdmin)
	if err != nil {
		s.log.Error().Err(err).Str("uid", user.UID).Msg("failed to sign session token")
		return nil, fmt.Errorf("sign in: %w", domain.ErrSignInFailed)
	}

	s.log.Info().Str("uid", user.UID).Bool("admin", isAdmin).Msg("signed in")

	return &ports.SignInResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
		IsAdmin:   isAdmin,
	}, nil
}

// SignOut revokes the session token until its natural expiry.
func (s *AuthService) SignOut(ctx context.Context, claims ports.SessionClaims) error {
	if claims.TokenID == "" {
		return fmt.Errorf("sign out: %w", domain.ErrSignOutFailed)
	}
	until := claims.ExpiresAt
	if until.IsZero() {
		until = time.Now().Add(s.tokenTTL)
	}
	if err := s.revoker.Revoke(ctx, claims.TokenID, until); err != nil {
		s.log.Error().Err(err).Str("uid", claims.UID).Msg("failed to revoke session token")
		return fmt.Errorf("sign out: %w", domain.ErrSignOutFailed)
	}

	s.log.Info().Str("uid", claims.UID).Msg("signed out")
	return nil
}

func (s *AuthService) generateToken(user *domain.User, isAdmin bool) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := jwt.MapClaims{
		"sub":   user.UID,
		"email": user.Email,
		"role":  domain.RoleFor(isAdmin),
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, time.Unix(expiresAt.Unix(), 0), nil
}
