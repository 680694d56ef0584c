package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/abhichhetri09/ravintola/internal/core/ports"
)

// RoleResolver looks up AdminGrant records. Lookup failures resolve to
// "not admin".
type RoleResolver struct {
	admins ports.AdminRepository
	log    zerolog.Logger
}

func NewRoleResolver(admins ports.AdminRepository, log zerolog.Logger) *RoleResolver {
	return &RoleResolver{admins: admins, log: log}
}

// IsAdmin reports whether an AdminGrant exists for uid.
func (r *RoleResolver) IsAdmin(ctx context.Context, uid string) bool {
	if uid == "" {
		return false
	}
	ok, err := r.admins.AdminGrantExists(ctx, uid)
	if err != nil {
		r.log.Warn().Err(err).Str("uid", uid).Msg("admin lookup failed, resolving as customer")
		return false
	}
	return ok
}
