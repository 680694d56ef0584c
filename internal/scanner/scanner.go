// Package scanner turns a stream of raw decoded frames into scan results.
//
// Frames arrive from a camera decoder, a keyboard-wedge reader or a
// websocket. They are consumed lazily by Run, one at a time. Frames are
// dropped while paused, when they arrive faster than the configured
// interval, or when they repeat the previous payload within the debounce
// window.
package scanner

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/abhichhetri09/ravintola/internal/core/ports"
)

const (
	DefaultInterval = 300 * time.Millisecond
	DefaultDebounce = 2 * time.Second
	frameBuffer     = 16
)

// ScanFunc submits one payload to the redemption engine.
type ScanFunc func(ctx context.Context, payload string) (*ports.ScanResult, error)

type Options struct {
	// Interval is the minimum gap between two decode attempts.
	Interval time.Duration
	// Debounce drops a payload identical to the previous one within this window.
	Debounce time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Result pairs a payload with its outcome. Err is set only when the scan
// could not be submitted at all.
type Result struct {
	Payload string
	Scan    *ports.ScanResult
	Err     error
	Took    time.Duration
}

type Scanner struct {
	scan     ScanFunc
	limiter  *rate.Limiter
	debounce time.Duration
	now      func() time.Time
	log      zerolog.Logger

	frames    chan string
	results   chan Result
	paused    atomic.Bool
	closeOnce sync.Once

	lastPayload string
	lastAt      time.Time
}

func New(scan ScanFunc, opts Options, log zerolog.Logger) *Scanner {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scanner{
		scan:     scan,
		limiter:  rate.NewLimiter(rate.Every(opts.Interval), 1),
		debounce: opts.Debounce,
		now:      opts.Now,
		log:      log,
		frames:   make(chan string, frameBuffer),
		results:  make(chan Result, frameBuffer),
	}
}

// Submit offers a frame without blocking. It returns false when the frame
// was dropped because the scanner is paused or busy.
func (s *Scanner) Submit(payload string) bool {
	if s.paused.Load() {
		return false
	}
	select {
	case s.frames <- payload:
		return true
	default:
		return false
	}
}

// Results is closed when Run returns.
func (s *Scanner) Results() <-chan Result {
	return s.results
}

// Pause stops decoding new frames. A scan already submitted completes.
func (s *Scanner) Pause() {
	s.paused.Store(true)
}

func (s *Scanner) Resume() {
	s.paused.Store(false)
}

func (s *Scanner) Paused() bool {
	return s.paused.Load()
}

// Close stops accepting frames; Run drains what is queued and returns.
func (s *Scanner) Close() {
	s.closeOnce.Do(func() { close(s.frames) })
}

// Run consumes frames until ctx is cancelled or Close is called.
func (s *Scanner) Run(ctx context.Context) {
	defer close(s.results)

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-s.frames:
			if !ok {
				return
			}
			payload, accept := s.admit(frame)
			if !accept {
				continue
			}

			started := time.Now()
			scan, err := s.scan(ctx, payload)
			took := time.Since(started)
			if err != nil {
				s.log.Error().Err(err).Msg("scan submission failed")
			}

			select {
			case s.results <- Result{Payload: payload, Scan: scan, Err: err, Took: took}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Scanner) admit(frame string) (string, bool) {
	if s.paused.Load() {
		return "", false
	}
	payload := strings.TrimSpace(frame)
	if payload == "" {
		return "", false
	}

	now := s.now()
	if payload == s.lastPayload && now.Sub(s.lastAt) < s.debounce {
		s.log.Debug().Msg("duplicate frame debounced")
		return "", false
	}
	if !s.limiter.AllowN(now, 1) {
		s.log.Debug().Msg("frame dropped by rate limit")
		return "", false
	}

	s.lastPayload = payload
	s.lastAt = now
	return payload, true
}
