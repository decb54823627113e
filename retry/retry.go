package retry

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/soriapp/soria/spotify"
)

const (
	maxAttempts   = 3
	cooldownAfter = 3

	defaultBackoffUnit = time.Second
	defaultCooldown    = time.Minute
)

// NewState creates the throttle state for one upstream family. A single
// State is shared by every request thread calling that family; its fields
// are atomics because the read path takes no lock.
func NewState() *State {
	return &State{}
}

type State struct {
	cooldownUntil  atomic.Int64 // unix nanos, 0 when disarmed
	consecutive429 atomic.Int32
}

func (st *State) cooldownRemaining(now time.Time) time.Duration {
	until := st.cooldownUntil.Load()
	if until == 0 {
		return 0
	}
	remaining := time.Unix(0, until).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// A TokenRefresher can replace its upstream credentials on demand. The
// token lifecycle belongs to the upstream client; the handler only asks
// for a refresh reactively when a call comes back 401.
type TokenRefresher interface {
	ForceRefreshToken(ctx context.Context) error
}

// New creates a Handler with the standard policy: 1s-unit backoff and a
// 60s cooldown after three consecutive rate-limit responses.
func New(state *State, refresher TokenRefresher) *Handler {
	return NewWithPolicy(state, refresher, defaultBackoffUnit, defaultCooldown)
}

// NewWithPolicy creates a Handler with custom pacing. The retry caps and
// the shape of the policy are fixed; only the durations vary.
func NewWithPolicy(state *State, refresher TokenRefresher, backoffUnit, cooldown time.Duration) *Handler {
	return &Handler{
		state:       state,
		refresher:   refresher,
		backoffUnit: backoffUnit,
		cooldown:    cooldown,
	}
}

// A Handler wraps remote calls with 401 (token refresh) and 429 (backoff
// plus shared cooldown) recovery.
type Handler struct {
	state       *State
	refresher   TokenRefresher
	backoffUnit time.Duration
	cooldown    time.Duration
}

// An ExhaustedError reports that a call kept failing with a recoverable
// status through every permitted attempt.
type ExhaustedError struct {
	Label string
	Err   error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: retries exhausted: %v", e.Label, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Execute runs call under h's recovery policy.
//
// 401 responses trigger a token refresh and a linear backoff (attempt x
// unit); 429 responses count toward the shared cooldown and back off
// exponentially (unit, 2x unit, 4x unit). Any other error propagates
// immediately. Both paths are capped at three total attempts, after which
// an *ExhaustedError wrapping the last cause is returned. Before every
// attempt the handler blocks while the family-wide cooldown is armed.
func Execute[T any](ctx context.Context, h *Handler, label string, call func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := h.waitCooldown(ctx, label); err != nil {
			return zero, err
		}

		result, err := call(ctx)
		if err == nil {
			h.state.consecutive429.Store(0)
			return result, nil
		}
		lastErr = err

		switch {
		case spotify.IsStatus(err, http.StatusUnauthorized):
			log.Warnf("%s: authorization expired (attempt %d of %d)", label, attempt, maxAttempts)
			if refreshErr := h.refresher.ForceRefreshToken(ctx); refreshErr != nil {
				log.Warnf("%s: token refresh failed: %s", label, refreshErr)
			}
			if attempt < maxAttempts {
				if err := sleep(ctx, time.Duration(attempt)*h.backoffUnit); err != nil {
					return zero, err
				}
			}

		case spotify.IsStatus(err, http.StatusTooManyRequests):
			if n := h.state.consecutive429.Add(1); n >= cooldownAfter {
				h.state.cooldownUntil.Store(time.Now().Add(h.cooldown).UnixNano())
				h.state.consecutive429.Store(0)
				log.Warnf("%s: %d consecutive 429s, cooling down for %s", label, cooldownAfter, h.cooldown)
			}
			if attempt < maxAttempts {
				if err := sleep(ctx, h.backoffUnit<<(attempt-1)); err != nil {
					return zero, err
				}
			}

		default:
			return zero, err
		}
	}

	return zero, &ExhaustedError{Label: label, Err: lastErr}
}

// waitCooldown blocks until the shared cooldown has lapsed. The check and
// the wait are not one atomic step: several waiters may sit out the same
// cooldown and then proceed together, which is fine for a blunt throttle.
func (h *Handler) waitCooldown(ctx context.Context, label string) error {
	for {
		remaining := h.state.cooldownRemaining(time.Now())
		if remaining == 0 {
			return nil
		}
		log.Warnf("%s: waiting out %s cooldown", label, remaining.Truncate(time.Millisecond))
		if err := sleep(ctx, remaining); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
