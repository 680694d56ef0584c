// Package kiosk is the interactive scanner terminal. Each input line is a
// frame from a keyboard-wedge QR reader unless it is one of the commands
// signin, signout, pause, resume or quit.
package kiosk

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
	"github.com/abhichhetri09/ravintola/internal/core/session"
	"github.com/abhichhetri09/ravintola/internal/scanner"
)

// ScanClient submits payloads to the API.
type ScanClient interface {
	Scan(ctx context.Context, payload, restaurantName string) (*ports.ScanResult, error)
}

type Terminal struct {
	sess       *session.Session
	client     ScanClient
	restaurant string
	scanOpts   scanner.Options
	log        zerolog.Logger

	outMu sync.Mutex
	out   io.Writer
}

func NewTerminal(sess *session.Session, client ScanClient, restaurant string, scanOpts scanner.Options, out io.Writer, log zerolog.Logger) *Terminal {
	return &Terminal{
		sess:       sess,
		client:     client,
		restaurant: restaurant,
		scanOpts:   scanOpts,
		out:        out,
		log:        log,
	}
}

// Run reads lines from in until EOF, quit or ctx is cancelled.
func (t *Terminal) Run(ctx context.Context, in io.Reader) error {
	unsubscribe := t.sess.Subscribe(t.onSessionChange)
	defer unsubscribe()

	sc := scanner.New(t.scan, t.scanOpts, t.log)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go sc.Run(runCtx)

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for r := range sc.Results() {
			t.printResult(r)
		}
	}()
	defer func() {
		sc.Close()
		<-printed
	}()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		s := bufio.NewScanner(in)
		for s.Scan() {
			select {
			case lines <- s.Text():
			case <-runCtx.Done():
				return
			}
		}
		readErr <- s.Err()
	}()

	t.printf("ready: scan a code or type a command (signin <token>, signout, pause, resume, quit)\n")
	if st := t.sess.Current(); st.SignedIn() {
		t.onSessionChange(st)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if quit := t.handleLine(ctx, sc, line); quit {
				return nil
			}
		}
	}
}

func (t *Terminal) handleLine(ctx context.Context, sc *scanner.Scanner, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "quit", "exit":
		return true
	case "pause":
		sc.Pause()
		t.printf("scanner paused\n")
		return false
	case "resume":
		sc.Resume()
		t.printf("scanner running\n")
		return false
	case "signout":
		if err := t.sess.SignOut(ctx); err != nil {
			t.printf("%s\n", domain.ErrSignOutFailed)
		}
		return false
	case "signin":
		if len(fields) != 2 {
			t.printf("usage: signin <id-token>\n")
			return false
		}
		_ = t.sess.SignIn(ctx, fields[1])
		return false
	}

	if !t.sess.Current().SignedIn() {
		t.printf("sign in first\n")
		return false
	}
	if !t.sess.IsAdmin() {
		t.printf("%s: scanning requires an admin account\n", domain.ErrForbidden)
		return false
	}
	if !sc.Submit(line) {
		t.log.Debug().Msg("frame dropped")
	}
	return false
}

func (t *Terminal) scan(ctx context.Context, payload string) (*ports.ScanResult, error) {
	return t.client.Scan(ctx, payload, t.restaurant)
}

func (t *Terminal) onSessionChange(st session.State) {
	switch {
	case st.Error != "":
		t.printf("%s\n", st.Error)
	case st.SignedIn():
		t.printf("signed in as %s (%s)\n", displayName(st.User), domain.RoleFor(st.IsAdmin))
	default:
		t.printf("signed out\n")
	}
}

func (t *Terminal) printResult(r scanner.Result) {
	if r.Err != nil || r.Scan == nil {
		t.printf("✗ %s\n", domain.ScanFailed.Message())
		return
	}
	if r.Scan.Status != domain.ScanRedeemed {
		t.printf("✗ %s\n", r.Scan.Message)
		return
	}
	t.printf("✓ %s meals=%d until_free=%d\n", r.Scan.Message, r.Scan.Meals, r.Scan.MealsUntilFree)
	if r.Scan.FreeMealEarned {
		t.printf("★ free meal earned\n")
	}
}

func (t *Terminal) printf(format string, args ...any) {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func displayName(u *domain.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Email != "" {
		return u.Email
	}
	return u.UID
}
