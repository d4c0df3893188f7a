package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evolvinglmms-lab/docsync/internal/config"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction. The zero value never retries.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth
	MaxRetries int                     // maximum retry attempts after the first failure
}

// DefaultPolicy returns the default policy (linear, 1s initial, 30s cap, 2 retries).
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffLinear, Initial: time.Second, Max: 30 * time.Second, MaxRetries: 2}
}

// FromConfig builds the policy described by a remote.retry block. Unset
// fields take the defaults; explicitly negative durations or counts are
// rejected rather than silently replaced.
func FromConfig(rc config.RetryConfig) (Policy, error) {
	p := DefaultPolicy()
	if rc.Mode != "" {
		p.Mode = rc.Mode
	}
	if rc.Initial != 0 {
		p.Initial = rc.Initial
	}
	if rc.Max != 0 {
		p.Max = rc.Max
	}
	if rc.MaxRetries != nil {
		p.MaxRetries = *rc.MaxRetries
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p, nil
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default: // linear
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	switch p.Mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
	default:
		return fmt.Errorf("unknown backoff mode %q", p.Mode)
	}
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// Do calls fn until it succeeds, fails with an error retryable rejects, or the
// retry budget runs out. The last error is returned unchanged. Backoff waits
// end early when ctx is done.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt > p.MaxRetries || ctx.Err() != nil || (retryable != nil && !retryable(err)) {
			return err
		}

		delay := p.Delay(attempt)
		slog.Debug("Retrying after transient failure",
			slog.Int("attempt", attempt),
			logfields.DurationMS(float64(delay.Milliseconds())),
			logfields.Error(err))

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}
