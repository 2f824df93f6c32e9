package llm

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/spherical/book-translator/internal/domain"
)

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 60 * time.Second
)

// Policy holds the retry/backoff tunables for one inference call.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: defaultMaxAttempts,
		BaseDelay:   defaultBaseDelay,
		MaxDelay:    defaultMaxDelay,
	}
}

// Delay returns the backoff before the retry that follows failed attempt n
// (1-based): BaseDelay doubled per retry, capped at MaxDelay. With Jitter
// enabled the result is drawn from [d/2, d] to spread concurrent pipelines.
func (p Policy) Delay(n int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(2, float64(n-1))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		half := d / 2
		d = half + rand.Float64()*half
	}
	return time.Duration(d)
}

// retryState enumerates the per-page attempt state machine. Each inference
// call walks ATTEMPT -> {DONE, WAIT -> ATTEMPT, FAILED} until it lands on a
// terminal state.
type retryState int

const (
	stateAttempt retryState = iota
	stateWait
	stateDone
	stateFailed
)

// Retrier drives classified operations through the retry state machine.
// Attempt counters reset on every Do call; nothing persists across pages.
type Retrier struct {
	policy Policy
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a retrier with the given policy.
func NewRetrier(policy Policy, logger zerolog.Logger) *Retrier {
	return &Retrier{
		policy: policy,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Do runs op until it succeeds, fails fatally, or exhausts the attempt
// budget. Rate-limit and transient failures wait and retry; fatal failures
// short-circuit with no backoff. A context cancellation during a wait or an
// attempt is returned as-is so the caller can stop the whole run.
func (r *Retrier) Do(ctx context.Context, op func(context.Context) (string, error)) (string, error) {
	state := stateAttempt
	attempt := 0
	var out string
	var lastErr error

	for {
		switch state {
		case stateAttempt:
			attempt++
			out, lastErr = op(ctx)
			switch {
			case lastErr == nil:
				state = stateDone
			case ctx.Err() != nil:
				return "", ctx.Err()
			case !domain.IsRetryable(lastErr):
				state = stateFailed
			case attempt >= r.policy.MaxAttempts:
				lastErr = domain.ExhaustedError(
					fmt.Sprintf("giving up after %d attempts", attempt), lastErr)
				state = stateFailed
			default:
				state = stateWait
			}

		case stateWait:
			delay := r.policy.Delay(attempt)
			r.logger.Warn().
				Int("attempt", attempt).
				Int("max_attempts", r.policy.MaxAttempts).
				Dur("backoff", delay).
				Err(lastErr).
				Msg("Inference attempt failed, backing off")
			if err := r.sleep(ctx, delay); err != nil {
				return "", err
			}
			state = stateAttempt

		case stateDone:
			return out, nil

		case stateFailed:
			return "", lastErr
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
