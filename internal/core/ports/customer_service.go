package ports

import (
	"context"
	"time"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
)

// Dashboard is the customer's own view of their card.
type Dashboard struct {
	User           *domain.User
	MealsUntilFree int
	CardProgress   int
	CardSize       int
}

// IssuedVoucher is a freshly minted voucher with its wire payload.
type IssuedVoucher struct {
	Voucher   domain.Voucher
	Payload   string
	ExpiresAt time.Time
}

// CustomerService backs the customer dashboard.
type CustomerService interface {
	Dashboard(ctx context.Context, uid string) (*Dashboard, error)
	IssueVoucher(ctx context.Context, uid string) (*IssuedVoucher, error)
	RecentTransactions(ctx context.Context, uid string, limit int) ([]domain.Transaction, error)
}
