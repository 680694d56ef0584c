package domain

import "time"

// VoucherAction is the instruction carried inside a QR payload.
type VoucherAction string

const ActionAddMeal VoucherAction = "ADD_MEAL"

// DefaultFreshnessWindow is how long a voucher stays redeemable after issue.
const DefaultFreshnessWindow = 5 * time.Minute

// Voucher is the ephemeral claim shown as a QR code by the customer.
// CurrentMeals is an advisory snapshot, never authoritative.
type Voucher struct {
	Action       VoucherAction `json:"action"`
	UID          string        `json:"uid"`
	Timestamp    int64         `json:"timestamp"`
	CurrentMeals int           `json:"currentMeals"`
}

// IssuedAt returns the voucher's issue instant.
func (v Voucher) IssuedAt() time.Time {
	return time.UnixMilli(v.Timestamp)
}

// IsFresh reports whether the voucher was issued within window before now.
// Vouchers stamped in the future are not fresh.
func (v Voucher) IsFresh(now time.Time, window time.Duration) bool {
	nowMs := now.UnixMilli()
	return v.Timestamp <= nowMs && v.Timestamp >= nowMs-window.Milliseconds()
}

// ValidationResult is the outcome of checking a voucher before redemption.
type ValidationResult string

const (
	VoucherValid    ValidationResult = "valid"
	VoucherExpired  ValidationResult = "expired"
	VoucherNotFound ValidationResult = "not_found"
)

// ScanStatus is the outcome reported to the administrator after a scan.
type ScanStatus string

const (
	ScanRedeemed        ScanStatus = "redeemed"
	ScanMalformed       ScanStatus = "malformed"
	ScanExpired         ScanStatus = "expired"
	ScanUserNotFound    ScanStatus = "user_not_found"
	ScanIgnored         ScanStatus = "ignored"
	ScanAlreadyRedeemed ScanStatus = "already_redeemed"
	ScanFailed          ScanStatus = "failed"
)

// Message returns the short status line shown on the scanner.
func (s ScanStatus) Message() string {
	switch s {
	case ScanRedeemed:
		return "Meal added successfully!"
	case ScanMalformed:
		return "Invalid QR code"
	case ScanExpired:
		return "QR code expired. Please generate a new one."
	case ScanUserNotFound:
		return "User not found"
	case ScanIgnored:
		return "QR code action not supported"
	case ScanAlreadyRedeemed:
		return "QR code already used"
	default:
		return "Failed to add meal. Please try again."
	}
}
