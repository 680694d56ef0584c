package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
)

type stubAuth struct {
	result     *ports.SignInResult
	signInErr  error
	signOutErr error
	signedOut  []string
}

func (a *stubAuth) SignIn(_ context.Context, _ string) (*ports.SignInResult, error) {
	if a.signInErr != nil {
		return nil, a.signInErr
	}
	return a.result, nil
}

func (a *stubAuth) SignOut(_ context.Context, token string) error {
	a.signedOut = append(a.signedOut, token)
	return a.signOutErr
}

func adminResult() *ports.SignInResult {
	return &ports.SignInResult{
		Token:   "tok-1",
		User:    &domain.User{UID: "owner"},
		IsAdmin: true,
	}
}

func newSession(auth *stubAuth) *Session {
	s := New(auth, zerolog.Nop())
	s.Init()
	return s
}

func TestSession_SignInCachesRole(t *testing.T) {
	s := newSession(&stubAuth{result: adminResult()})

	require.NoError(t, s.SignIn(context.Background(), "assertion"))

	st := s.Current()
	assert.True(t, st.SignedIn())
	assert.True(t, s.IsAdmin())
	assert.Equal(t, "tok-1", s.Token())
}

func TestSession_SignInFailure(t *testing.T) {
	s := newSession(&stubAuth{signInErr: errors.New("popup closed")})

	err := s.SignIn(context.Background(), "assertion")
	require.ErrorIs(t, err, domain.ErrSignInFailed)

	st := s.Current()
	assert.False(t, st.SignedIn())
	assert.False(t, st.IsAdmin)
	assert.Equal(t, "failed to sign in", st.Error)
}

func TestSession_SignOutClearsIdentityAndRoleTogether(t *testing.T) {
	auth := &stubAuth{result: adminResult()}
	s := newSession(auth)
	require.NoError(t, s.SignIn(context.Background(), "assertion"))

	var seen []State
	unsubscribe := s.Subscribe(func(st State) { seen = append(seen, st) })
	defer unsubscribe()

	require.NoError(t, s.SignOut(context.Background()))

	require.Len(t, seen, 1)
	assert.False(t, seen[0].SignedIn())
	assert.False(t, seen[0].IsAdmin)
	assert.Equal(t, []string{"tok-1"}, auth.signedOut)
}

func TestSession_SignOutFailureNeverRestoresRole(t *testing.T) {
	auth := &stubAuth{result: adminResult(), signOutErr: errors.New("network")}
	s := newSession(auth)
	require.NoError(t, s.SignIn(context.Background(), "assertion"))

	var seen []State
	s.Subscribe(func(st State) { seen = append(seen, st) })

	err := s.SignOut(context.Background())
	require.ErrorIs(t, err, domain.ErrSignOutFailed)

	for _, st := range seen {
		assert.False(t, st.IsAdmin, "no notification may carry the old role")
	}
	assert.False(t, s.IsAdmin())
	assert.Equal(t, "failed to log out", s.Current().Error)
}

func TestSession_Unsubscribe(t *testing.T) {
	s := newSession(&stubAuth{result: adminResult()})

	calls := 0
	unsubscribe := s.Subscribe(func(State) { calls++ })
	unsubscribe()

	require.NoError(t, s.SignIn(context.Background(), "assertion"))
	assert.Equal(t, 0, calls)
}

func TestSession_Teardown(t *testing.T) {
	s := newSession(&stubAuth{result: adminResult()})
	require.NoError(t, s.SignIn(context.Background(), "assertion"))

	calls := 0
	s.Subscribe(func(State) { calls++ })
	s.Teardown()

	assert.False(t, s.Current().SignedIn())
	assert.ErrorIs(t, s.SignIn(context.Background(), "assertion"), ErrClosed)
	assert.Equal(t, 0, calls)
}

func TestSession_OverlappingChangesDeliveredInOrder(t *testing.T) {
	s := newSession(&stubAuth{result: adminResult()})

	var (
		mu   sync.Mutex
		last State
	)
	entered := make(chan struct{})
	var once sync.Once
	s.Subscribe(func(st State) {
		if st.IsAdmin {
			once.Do(func() { close(entered) })
			time.Sleep(50 * time.Millisecond)
		}
		mu.Lock()
		last = st
		mu.Unlock()
	})

	signedIn := make(chan error, 1)
	go func() { signedIn <- s.SignIn(context.Background(), "assertion") }()

	<-entered
	require.NoError(t, s.SignOut(context.Background()))
	require.NoError(t, <-signedIn)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, s.Current().SignedIn())
	assert.False(t, last.SignedIn(), "last delivered state must match the session")
	assert.False(t, last.IsAdmin)
}
