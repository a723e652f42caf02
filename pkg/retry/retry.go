// Package retry runs an operation under an explicit attempt/delay policy.
//
// The policy is a value object: attempts, base delay, backoff shape and cap
// are all visible at the call site, and sleeping goes through a Clock so the
// schedule can be asserted in tests without real waits.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backoff is the delay growth between attempts
type Backoff string

const (
	BackoffFixed       Backoff = "fixed"
	BackoffExponential Backoff = "exponential"
)

// ErrExhausted is matched (errors.Is) by every error returned after the last attempt failed
var ErrExhausted = errors.New("retry attempts exhausted")

// Clock abstracts waiting between attempts
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock waits on the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Sleep blocks for d or until ctx is done
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy describes how many times to try and how long to wait in between
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     Backoff
	MaxDelay    time.Duration // 0 = uncapped
	Clock       Clock

	// Retryable classifies errors; nil means every non-permanent error is retried
	Retryable func(error) bool
}

// ExhaustedError carries the attempt count and the last failure
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Is makes errors.Is(err, ErrExhausted) true
func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// DelayAfter returns the wait following the given failed attempt (1-based)
func (p Policy) DelayAfter(attempt int) time.Duration {
	d := p.Delay
	if p.Backoff == BackoffExponential {
		for i := 1; i < attempt; i++ {
			d *= 2
			if p.MaxDelay > 0 && d >= p.MaxDelay {
				break
			}
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do calls fn until it succeeds, the error is not retryable, attempts run
// out or ctx is done. It returns the number of attempts made.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	clock := p.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if last == nil {
				last = err
			}
			return attempt - 1, &ExhaustedError{Attempts: attempt - 1, Last: last}
		}

		last = fn(ctx, attempt)
		if last == nil {
			return attempt, nil
		}

		// 재시도 불가능한 오류는 즉시 종료
		if IsPermanent(last) || (p.Retryable != nil && !p.Retryable(last)) {
			return attempt, &ExhaustedError{Attempts: attempt, Last: last}
		}

		if attempt == maxAttempts {
			break
		}

		if err := clock.Sleep(ctx, p.DelayAfter(attempt)); err != nil {
			return attempt, &ExhaustedError{Attempts: attempt, Last: last}
		}
	}

	return maxAttempts, &ExhaustedError{Attempts: maxAttempts, Last: last}
}
