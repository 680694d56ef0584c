package domain

import "errors"

var (
	ErrMalformedVoucher = errors.New("malformed voucher")
	ErrVoucherExpired   = errors.New("voucher expired")
	ErrVoucherConsumed  = errors.New("voucher already redeemed")
	ErrUserNotFound     = errors.New("user not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrSignInFailed     = errors.New("failed to sign in")
	ErrSignOutFailed    = errors.New("failed to log out")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("access forbidden")
)
