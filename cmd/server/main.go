// Command server runs the meal-card HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abhichhetri09/ravintola/internal/api"
	"github.com/abhichhetri09/ravintola/internal/api/handler"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
	"github.com/abhichhetri09/ravintola/internal/core/service"
	"github.com/abhichhetri09/ravintola/internal/infrastructure/config"
	mongodb "github.com/abhichhetri09/ravintola/internal/infrastructure/db/mongo"
	redisdb "github.com/abhichhetri09/ravintola/internal/infrastructure/db/redis"
	"github.com/abhichhetri09/ravintola/internal/infrastructure/identity"
	"github.com/abhichhetri09/ravintola/internal/scanner"
	"github.com/abhichhetri09/ravintola/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{Service: "ravintola-api"})
		bootLog.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "ravintola-api",
	})

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "ravintola-api",
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to MongoDB")
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to Redis")
		return err
	}
	defer rdb.Close()

	ledger := mongodb.NewLedgerRepository(db)
	if err := ledger.EnsureIndexes(ctx); err != nil {
		log.Error().Err(err).Msg("failed to create indexes")
		return err
	}
	admins := mongodb.NewAdminRepository(db)
	revoker := redisdb.NewTokenRevoker(rdb)

	var replay ports.ReplayGuard
	if cfg.Voucher.ReplayProtection {
		replay = redisdb.NewReplayGuard(rdb)
	}

	// --- Services ---
	verifier, err := identity.NewVerifier(identity.Config{
		Secret:       cfg.Identity.Secret,
		PublicKeyPEM: cfg.Identity.PublicKey,
		Issuer:       cfg.Identity.Issuer,
		Audience:     cfg.Identity.Audience,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to configure identity verifier")
		return err
	}

	roles := service.NewRoleResolver(admins, logger.Component("roles"))
	authService := service.NewAuthService(verifier, ledger, roles, revoker, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger.Component("auth"))
	customers := service.NewCustomerService(ledger, cfg.Voucher.FreshnessWindow, logger.Component("customer"))
	validator := service.NewVoucherValidator(ledger, cfg.Voucher.FreshnessWindow)
	redemption := service.NewRedemptionService(ledger, validator, replay, service.RedemptionConfig{
		FreshnessWindow:  cfg.Voucher.FreshnessWindow,
		RestaurantName:   cfg.RestaurantName,
		ReplayProtection: cfg.Voucher.ReplayProtection,
		RewardIssuance:   cfg.Reward.Issuance,
		WriteTimeout:     cfg.Voucher.WriteTimeout,
	}, logger.Component("redemption"))

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Auth:       authService,
		Customers:  customers,
		Redemption: redemption,
		Revoker:    revoker,
		Health: map[string]handler.DependencyCheck{
			"mongodb": handler.MongoCheck(db),
			"redis":   handler.RedisCheck(rdb),
		},
		JWTSecret: cfg.Auth.JWTSecret,
		Scanner: scanner.Options{
			Interval: cfg.Scanner.Interval,
			Debounce: cfg.Scanner.Debounce,
		},
		AllowedOrigins: cfg.Scanner.AllowedOrigins,
		Log:            log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}
