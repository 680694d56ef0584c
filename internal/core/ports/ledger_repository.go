package ports

import (
	"context"
	"time"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
)

// DefaultTransactionLimit is the size of the customer's recent-activity feed.
const DefaultTransactionLimit = 10

// MealEntries builds the ledger entries to append for a meal, given the
// counter value after the increment. It may be called more than once when
// the store retries a transaction, so it must be free of side effects.
type MealEntries func(meals int) []domain.Transaction

// LedgerRepository is the per-user counter plus append-only transaction log.
type LedgerRepository interface {
	// GetUser returns domain.ErrUserNotFound when no record exists.
	GetUser(ctx context.Context, uid string) (*domain.User, error)
	// UpsertUser creates the user on first sign-in and refreshes profile
	// fields afterwards. Meals is never touched.
	UpsertUser(ctx context.Context, identity domain.Identity) (*domain.User, error)
	// IncrementMeals atomically adds by to the counter and returns the new value.
	IncrementMeals(ctx context.Context, uid string, by int) (int, error)
	AppendTransaction(ctx context.Context, uid string, tx domain.Transaction) (string, error)
	// RecordMeal increments the counter by one and appends the entries built
	// from the new value as a single atomic unit.
	RecordMeal(ctx context.Context, uid string, build MealEntries) (int, []domain.Transaction, error)
	// ListRecentTransactions returns at most limit entries, newest first.
	ListRecentTransactions(ctx context.Context, uid string, limit int) ([]domain.Transaction, error)
}

// AdminRepository answers whether an out-of-band AdminGrant exists.
type AdminRepository interface {
	AdminGrantExists(ctx context.Context, uid string) (bool, error)
}

// ReplayGuard remembers vouchers that have already been redeemed.
type ReplayGuard interface {
	// Claim marks the voucher as consumed for ttl. It returns false when the
	// voucher was already claimed.
	Claim(ctx context.Context, v domain.Voucher, ttl time.Duration) (bool, error)
	// Release forgets a claim whose redemption did not complete.
	Release(ctx context.Context, v domain.Voucher) error
}
