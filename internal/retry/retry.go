// Package retry runs an operation under an explicit bounded-backoff policy.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes how many times an operation is retried and how long to wait in between.
type Policy struct {
	MaxRetries   int           // retries after the first attempt
	InitialDelay time.Duration // delay before the first retry
	Multiplier   float64       // growth factor applied after each retry
}

// DefaultPolicy is 1 attempt + 3 retries waiting 1s, 2s, 4s.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, InitialDelay: time.Second, Multiplier: 2}
}

// Attempts returns the total number of attempts the policy allows.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Delay returns the wait before retry number n (0-based).
func (p Policy) Delay(n int) time.Duration {
	d := float64(p.InitialDelay)
	m := p.Multiplier
	if m <= 0 {
		m = 1
	}
	for i := 0; i < n; i++ {
		d *= m
	}
	return time.Duration(d)
}

// Delays lists every wait the policy performs when all attempts fail.
func (p Policy) Delays() []time.Duration {
	out := make([]time.Duration, 0, p.Attempts()-1)
	for i := 0; i < p.Attempts()-1; i++ {
		out = append(out, p.Delay(i))
	}
	return out
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-clock Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ExhaustedError is returned by Do when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do calls fn until it succeeds or the policy is exhausted. fn receives the 0-based attempt.
// A nil sleeper uses Sleep. Context cancellation during a wait ends the loop early.
func Do(ctx context.Context, p Policy, sleep Sleeper, fn func(attempt int) error) error {
	if sleep == nil {
		sleep = Sleep
	}
	attempts := p.Attempts()
	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = fn(i); lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		if err := sleep(ctx, p.Delay(i)); err != nil {
			return &ExhaustedError{Attempts: i + 1, Err: fmt.Errorf("%w (stopped: %v)", lastErr, err)}
		}
	}
	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}
