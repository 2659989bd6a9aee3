// Package resilience wraps calls to the generation backend with bounded
// exponential-backoff retries on transient failures.
package resilience

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/clinic-studio/internal/logger"
	"github.com/jonathan/clinic-studio/internal/metrics"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3
	// DefaultInitialDelay is the wait before the first retry.
	DefaultInitialDelay = time.Second
	// DefaultAttemptTimeout bounds a single backend round trip.
	DefaultAttemptTimeout = 45 * time.Second
)

// Policy configures Execute.
type Policy struct {
	MaxRetries     int
	InitialDelay   time.Duration
	AttemptTimeout time.Duration // zero disables the per-attempt deadline
	// Jitter adds up to 10% of the current delay to each wait. The doubling
	// base is unaffected.
	Jitter bool

	// Sleep waits for d or until ctx is done. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
	// Classify reports whether an error may be retried. Defaults to IsTransient.
	Classify func(error) bool
	Log      *logger.Logger
}

// DefaultPolicy returns 3 retries starting at 1s with a 45s attempt timeout.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     DefaultMaxRetries,
		InitialDelay:   DefaultInitialDelay,
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	if p.Classify == nil {
		p.Classify = IsTransient
	}
	if p.Log == nil {
		p.Log = logger.Nop()
	}
	return p
}

// Execute runs op, retrying transient failures with doubling delays.
// A non-transient error, or the last transient one once retries are
// exhausted, is returned exactly as op produced it.
func Execute[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	p := policy.withDefaults()

	delay := p.InitialDelay
	retries := p.MaxRetries
	for attempt := 1; ; attempt++ {
		result, err := runAttempt(ctx, p.AttemptTimeout, op)
		if err == nil {
			return result, nil
		}
		if retries <= 0 || !p.Classify(err) {
			return zero, err
		}

		wait := delay
		if p.Jitter && delay > 0 {
			wait += time.Duration(rand.Int63n(int64(delay)/10 + 1))
		}
		p.Log.Warn("Backend call failed, retrying",
			"attempt", attempt,
			"retries_left", retries,
			"sleep", wait.String(),
			"error", err.Error(),
		)
		metrics.BackendRetriesTotal.Inc()

		if sleepErr := p.Sleep(ctx, wait); sleepErr != nil {
			return zero, sleepErr
		}
		delay *= 2
		retries--
	}
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatusCode() int
}

var overloadSignals = []string{
	"overloaded",
	`"code":503`,
	`"code": 503`,
	"service unavailable",
	"code = unavailable",
	"resource_exhausted",
	"rate limit",
	"too many requests",
}

// statusTokens are backend status names, matched case-sensitively so that
// prose such as "model unavailable in region" is not taken for overload.
var statusTokens = []string{
	"UNAVAILABLE",
	"RESOURCE_EXHAUSTED",
}

// IsTransient reports whether err signals backend overload or rate limiting.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		switch sc.HTTPStatusCode() {
		case http.StatusServiceUnavailable, http.StatusTooManyRequests:
			return true
		}
	}

	raw := err.Error()
	for _, token := range statusTokens {
		if strings.Contains(raw, token) {
			return true
		}
	}
	msg := strings.ToLower(raw)
	for _, signal := range overloadSignals {
		if strings.Contains(msg, signal) {
			return true
		}
	}
	return false
}
