package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
	"github.com/abhichhetri09/ravintola/internal/core/voucher"
)

const maxTransactionLimit = 50

type CustomerService struct {
	ledger ports.LedgerRepository
	window time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

func NewCustomerService(ledger ports.LedgerRepository, window time.Duration, logger zerolog.Logger) *CustomerService {
	if window <= 0 {
		window = domain.DefaultFreshnessWindow
	}
	return &CustomerService{ledger: ledger, window: window, now: time.Now, logger: logger}
}

// Dashboard returns the user's counter and card progress.
func (s *CustomerService) Dashboard(ctx context.Context, uid string) (*ports.Dashboard, error) {
	user, err := s.getUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &ports.Dashboard{
		User:           user,
		MealsUntilFree: domain.MealsUntilFree(user.Meals),
		CardProgress:   domain.CardProgress(user.Meals),
		CardSize:       domain.MealsPerFreeMeal,
	}, nil
}

// IssueVoucher mints a new voucher stamped with the current time, so every
// view of the dashboard restarts the freshness window.
func (s *CustomerService) IssueVoucher(ctx context.Context, uid string) (*ports.IssuedVoucher, error) {
	user, err := s.getUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	now := s.now()
	v := domain.Voucher{
		Action:       domain.ActionAddMeal,
		UID:          user.UID,
		Timestamp:    now.UnixMilli(),
		CurrentMeals: user.Meals,
	}

	payload, err := voucher.Encode(v)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("uid", uid).Int64("issued_at", v.Timestamp).Msg("voucher issued")

	return &ports.IssuedVoucher{
		Voucher:   v,
		Payload:   payload,
		ExpiresAt: v.IssuedAt().Add(s.window).UTC(),
	}, nil
}

// RecentTransactions lists the newest ledger entries. limit is clamped to
// [1, 50] and defaults to 10.
func (s *CustomerService) RecentTransactions(ctx context.Context, uid string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = ports.DefaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}

	txs, err := s.ledger.ListRecentTransactions(ctx, uid, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("uid", uid).Msg("failed to list transactions")
		return nil, fmt.Errorf("list transactions: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return txs, nil
}

func (s *CustomerService) getUser(ctx context.Context, uid string) (*domain.User, error) {
	user, err := s.ledger.GetUser(ctx, uid)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("uid", uid).Msg("failed to load user")
		return nil, fmt.Errorf("get user: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return user, nil
}
