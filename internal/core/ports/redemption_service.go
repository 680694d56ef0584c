package ports

import (
	"context"
	"time"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
)

// ScanInput is the DTO passed from the transport layer to RedemptionService.
type ScanInput struct {
	Payload        string
	RestaurantName string // optional; the configured label is used when empty
	ScannedBy      string
}

// ScanResult reports what a single scan did.
type ScanResult struct {
	Status         domain.ScanStatus
	Message        string
	UID            string
	Meals          int
	MealsUntilFree int
	FreeMealEarned bool
	Transactions   []domain.Transaction
}

// RedemptionResult describes the ledger effect of one redeemed voucher.
type RedemptionResult struct {
	UID            string
	Meals          int
	MealsUntilFree int
	FreeMealEarned bool
	Transactions   []domain.Transaction
}

// VoucherValidator checks freshness and subject existence.
type VoucherValidator interface {
	Validate(ctx context.Context, v domain.Voucher, now time.Time) (domain.ValidationResult, error)
}

// RedemptionService turns scanned payloads into ledger mutations.
type RedemptionService interface {
	Scan(ctx context.Context, in ScanInput) (*ScanResult, error)
	Redeem(ctx context.Context, v domain.Voucher, restaurantName string) (*RedemptionResult, error)
}
