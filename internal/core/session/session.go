// Package session holds the signed-in state of a single client application.
//
// A Session is owned by the top-level controller: call Init on start-up and
// Teardown on exit. Observers register with Subscribe and receive a copy of
// the state after every change. Identity and role are always replaced
// together, so no observer ever sees an identity paired with another
// identity's role.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
)

var ErrClosed = errors.New("session is not active")

// Authenticator talks to the identity side of the backend.
type Authenticator interface {
	SignIn(ctx context.Context, assertion string) (*ports.SignInResult, error)
	SignOut(ctx context.Context, token string) error
}

// State is an immutable snapshot of the session.
type State struct {
	User      *domain.User
	IsAdmin   bool
	Token     string
	ExpiresAt time.Time
	// Error is a short human-readable message from the last failed action.
	Error string
}

// SignedIn reports whether an identity is present.
func (s State) SignedIn() bool {
	return s.User != nil
}

type Session struct {
	auth Authenticator
	log  zerolog.Logger

	// notifyMu is held across a state swap and its delivery so that
	// subscribers observe changes in commit order.
	notifyMu sync.Mutex

	mu      sync.Mutex
	active  bool
	state   State
	subs    map[int]func(State)
	nextSub int
}

func New(auth Authenticator, log zerolog.Logger) *Session {
	return &Session{auth: auth, log: log, subs: make(map[int]func(State))}
}

// Init activates the session.
func (s *Session) Init() {
	s.mu.Lock()
	s.active = true
	s.mu.Unlock()
}

// Teardown drops local state and all subscribers. It does not contact the
// backend; call SignOut first to revoke the token.
func (s *Session) Teardown() {
	s.mu.Lock()
	s.active = false
	s.state = State{}
	s.subs = make(map[int]func(State))
	s.mu.Unlock()
}

// Subscribe registers fn for state changes and returns its deregistration.
// Deliveries are serialised and arrive in the order the changes were made;
// fn must not call SignIn or SignOut.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Current returns the latest snapshot.
func (s *Session) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Token returns the session token, or "" when signed out.
func (s *Session) Token() string {
	return s.Current().Token
}

// IsAdmin reports the role resolved at sign-in.
func (s *Session) IsAdmin() bool {
	return s.Current().IsAdmin
}

// SignIn exchanges the assertion and caches the resolved role until sign-out.
func (s *Session) SignIn(ctx context.Context, assertion string) error {
	if !s.isActive() {
		return ErrClosed
	}

	res, err := s.auth.SignIn(ctx, assertion)
	if err != nil {
		s.log.Error().Err(err).Msg("sign in failed")
		s.set(State{Error: domain.ErrSignInFailed.Error()})
		return fmt.Errorf("session: %w", domain.ErrSignInFailed)
	}

	s.set(State{
		User:      res.User,
		IsAdmin:   res.IsAdmin,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	})
	return nil
}

// SignOut clears identity and role in one step, then revokes the token. A
// failed revocation is reported but never restores the old state.
func (s *Session) SignOut(ctx context.Context) error {
	if !s.isActive() {
		return ErrClosed
	}

	prev := s.set(State{})
	if prev.Token == "" {
		return nil
	}

	if err := s.auth.SignOut(ctx, prev.Token); err != nil {
		s.log.Error().Err(err).Msg("logout failed")
		s.set(State{Error: domain.ErrSignOutFailed.Error()})
		return fmt.Errorf("session: %w", domain.ErrSignOutFailed)
	}
	return nil
}

func (s *Session) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// set replaces the state, notifies subscribers and returns the old state.
func (s *Session) set(next State) State {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	prev := s.state
	s.state = next
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return prev
}
