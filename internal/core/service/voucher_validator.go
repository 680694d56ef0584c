package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
)

// VoucherValidator checks a decoded voucher before any store mutation.
type VoucherValidator struct {
	users  ports.LedgerRepository
	window time.Duration
}

func NewVoucherValidator(users ports.LedgerRepository, window time.Duration) *VoucherValidator {
	if window <= 0 {
		window = domain.DefaultFreshnessWindow
	}
	return &VoucherValidator{users: users, window: window}
}

// Validate returns Expired for stale or future-dated vouchers and NotFound
// when the subject has no user record. The error is reserved for store
// failures.
func (v *VoucherValidator) Validate(ctx context.Context, vch domain.Voucher, now time.Time) (domain.ValidationResult, error) {
	if !vch.IsFresh(now, v.window) {
		return domain.VoucherExpired, nil
	}

	if _, err := v.users.GetUser(ctx, vch.UID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.VoucherNotFound, nil
		}
		return "", fmt.Errorf("validate voucher: %w: %w", domain.ErrStoreUnavailable, err)
	}

	return domain.VoucherValid, nil
}
