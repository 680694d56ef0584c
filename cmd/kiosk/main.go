// Command kiosk is the scanner terminal for a keyboard-wedge QR reader.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/abhichhetri09/ravintola/internal/core/session"
	"github.com/abhichhetri09/ravintola/internal/infrastructure/config"
	"github.com/abhichhetri09/ravintola/internal/kiosk"
	"github.com/abhichhetri09/ravintola/internal/scanner"
	"github.com/abhichhetri09/ravintola/pkg/client"
	"github.com/abhichhetri09/ravintola/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadKiosk(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{Pretty: true, Output: os.Stderr})
		bootLog.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  true,
		Service: "ravintola-kiosk",
		Output:  os.Stderr,
	})

	// The session owns the token; the API client reads it per request.
	var sess *session.Session
	api := client.New(cfg.APIURL,
		client.WithTimeout(cfg.Timeout),
		client.WithTokenSource(func() string { return sess.Token() }),
	)
	sess = session.New(api, logger.Component("session"))
	sess.Init()
	defer sess.Teardown()

	term := kiosk.NewTerminal(sess, api, cfg.RestaurantName, scanner.Options{
		Interval: cfg.Scanner.Interval,
		Debounce: cfg.Scanner.Debounce,
	}, os.Stdout, logger.Component("kiosk"))

	if cfg.IDToken != "" {
		if err := sess.SignIn(ctx, cfg.IDToken); err != nil {
			log.Warn().Err(err).Msg("automatic sign-in failed")
		}
	}

	err = term.Run(ctx, os.Stdin)

	if sess.Current().SignedIn() {
		if err := sess.SignOut(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("sign-out on exit failed")
		}
	}
	return err
}
