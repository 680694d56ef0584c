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

const defaultWriteTimeout = 10 * time.Second

// RedemptionConfig tunes the redemption engine.
type RedemptionConfig struct {
	FreshnessWindow time.Duration
	// RestaurantName labels transactions when the scan carries no label.
	RestaurantName string
	// ReplayProtection rejects a second redemption of the same voucher.
	ReplayProtection bool
	// RewardIssuance appends a free-meal transaction on every completed card.
	RewardIssuance bool
	// WriteTimeout bounds a submitted store write, which is never cancelled
	// by the caller.
	WriteTimeout time.Duration
	Now          func() time.Time
}

type redemptionService struct {
	ledger    ports.LedgerRepository
	validator ports.VoucherValidator
	replay    ports.ReplayGuard
	cfg       RedemptionConfig
	log       zerolog.Logger
}

// NewRedemptionService returns a RedemptionService implementation. replay may
// be nil when ReplayProtection is off.
func NewRedemptionService(
	ledger ports.LedgerRepository,
	validator ports.VoucherValidator,
	replay ports.ReplayGuard,
	cfg RedemptionConfig,
	log zerolog.Logger,
) ports.RedemptionService {
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = domain.DefaultFreshnessWindow
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.RestaurantName == "" {
		cfg.RestaurantName = "Restaurant Name"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &redemptionService{
		ledger:    ledger,
		validator: validator,
		replay:    replay,
		cfg:       cfg,
		log:       log,
	}
}

// Scan decodes, validates and redeems a single scanned payload. Decode and
// validation outcomes are reported in the result; only store failures are
// returned as errors.
func (s *redemptionService) Scan(ctx context.Context, in ports.ScanInput) (*ports.ScanResult, error) {
	// 1. Decode. Garbage from the camera is routine, so keep it at debug.
	v, err := voucher.Decode(in.Payload)
	if err != nil {
		s.log.Debug().Err(err).Str("scanned_by", in.ScannedBy).Msg("undecodable payload")
		return outcome(domain.ScanMalformed, ""), nil
	}

	now := s.cfg.Now()

	// 2. Freshness before anything else, as a dead voucher has no effect.
	if !v.IsFresh(now, s.cfg.FreshnessWindow) {
		return outcome(domain.ScanExpired, v.UID), nil
	}

	// 3. Only ADD_MEAL redeems; anything else passes through.
	if v.Action != domain.ActionAddMeal {
		s.log.Warn().Str("action", string(v.Action)).Str("uid", v.UID).Msg("unsupported voucher action ignored")
		return outcome(domain.ScanIgnored, v.UID), nil
	}

	// 4. Subject must exist.
	result, err := s.validator.Validate(ctx, v, now)
	if err != nil {
		s.log.Error().Err(err).Str("uid", v.UID).Msg("voucher validation failed")
		return nil, fmt.Errorf("scan: %w", err)
	}
	switch result {
	case domain.VoucherExpired:
		return outcome(domain.ScanExpired, v.UID), nil
	case domain.VoucherNotFound:
		return outcome(domain.ScanUserNotFound, v.UID), nil
	}

	// 5. Claim the voucher so a replay inside the window is refused.
	claimed := false
	if s.cfg.ReplayProtection && s.replay != nil {
		ok, err := s.replay.Claim(ctx, v, s.cfg.FreshnessWindow)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("uid", v.UID).Msg("replay check failed, processing anyway")
		case !ok:
			s.log.Info().Str("uid", v.UID).Int64("issued_at", v.Timestamp).Msg("voucher replay refused")
			return outcome(domain.ScanAlreadyRedeemed, v.UID), nil
		default:
			claimed = true
		}
	}

	// 6. Apply the ledger effect.
	res, err := s.Redeem(ctx, v, in.RestaurantName)
	if err != nil {
		if claimed {
			s.release(ctx, v)
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			return outcome(domain.ScanUserNotFound, v.UID), nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	out := outcome(domain.ScanRedeemed, v.UID)
	out.Meals = res.Meals
	out.MealsUntilFree = res.MealsUntilFree
	out.FreeMealEarned = res.FreeMealEarned
	out.Transactions = res.Transactions
	return out, nil
}

// Redeem increments the subject's counter and appends the meal transaction
// as one atomic unit. The voucher must already be valid.
func (s *redemptionService) Redeem(ctx context.Context, v domain.Voucher, restaurantName string) (*ports.RedemptionResult, error) {
	if restaurantName == "" {
		restaurantName = s.cfg.RestaurantName
	}
	at := s.cfg.Now().UTC()

	build := func(meals int) []domain.Transaction {
		entries := []domain.Transaction{{
			UID:            v.UID,
			Type:           domain.TransactionMeal,
			Timestamp:      at,
			RestaurantName: restaurantName,
		}}
		if s.cfg.RewardIssuance && domain.EarnsFreeMeal(meals) {
			entries = append(entries, domain.Transaction{
				UID:            v.UID,
				Type:           domain.TransactionFree,
				Timestamp:      at,
				RestaurantName: restaurantName,
			})
		}
		return entries
	}

	// A submitted write runs to completion even if the scanner goes away.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()

	meals, entries, err := s.ledger.RecordMeal(writeCtx, v.UID, build)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("redeem: %w", domain.ErrUserNotFound)
		}
		s.log.Error().Err(err).Str("uid", v.UID).Msg("failed to record meal")
		return nil, fmt.Errorf("redeem: %w: %w", domain.ErrStoreUnavailable, err)
	}

	free := false
	for _, e := range entries {
		if e.Type == domain.TransactionFree {
			free = true
		}
	}

	s.log.Info().
		Str("uid", v.UID).
		Int("meals", meals).
		Str("restaurant", restaurantName).
		Bool("free_meal", free).
		Msg("meal redeemed")

	return &ports.RedemptionResult{
		UID:            v.UID,
		Meals:          meals,
		MealsUntilFree: domain.MealsUntilFree(meals),
		FreeMealEarned: free,
		Transactions:   entries,
	}, nil
}

func (s *redemptionService) release(ctx context.Context, v domain.Voucher) {
	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()
	if err := s.replay.Release(relCtx, v); err != nil {
		s.log.Warn().Err(err).Str("uid", v.UID).Msg("failed to release voucher claim")
	}
}

func outcome(status domain.ScanStatus, uid string) *ports.ScanResult {
	return &ports.ScanResult{Status: status, Message: status.Message(), UID: uid}
}
