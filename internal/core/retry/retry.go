// Package retry runs an operation a bounded number of times with a backoff
// between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Backoff returns the wait after the given failed attempt (1-based).
type Backoff func(attempt int) time.Duration

// Doubling waits base, 2*base, 4*base, ...
func Doubling(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	}
}

// Power waits base^attempt seconds: 5s, 25s, 125s for base 5.
func Power(base int) Backoff {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return time.Duration(math.Pow(float64(base), float64(attempt))) * time.Second
	}
}

type Policy struct {
	Name        string
	MaxAttempts int
	Backoff     Backoff
	Logger      *slog.Logger
	// Sleep waits between attempts. It must return ctx.Err() if ctx ends first.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DownloadPolicy is used for object downloads: 3 attempts, waiting 1s then 2s.
func DownloadPolicy(logger *slog.Logger) Policy {
	return Policy{Name: "download", MaxAttempts: 3, Backoff: Doubling(time.Second), Logger: logger}
}

// EmbedPolicy wraps a whole download-embed-upsert unit: 5 attempts, waiting 5s, 25s, 125s, 625s.
func EmbedPolicy(logger *slog.Logger) Policy {
	return Policy{Name: "embed", MaxAttempts: 5, Backoff: Power(5), Logger: logger}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so Do stops retrying immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err carries the Permanent marker.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do calls op until it succeeds, returns a permanent error, or MaxAttempts is reached.
// The final error wraps the last failure.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	p = p.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if IsPermanent(err) {
			return zero, fmt.Errorf("%s: permanent failure on attempt %d: %w", p.Name, attempt, err)
		}
		if attempt == p.MaxAttempts {
			break
		}

		wait := p.Backoff(attempt)
		p.Logger.Warn("attempt failed, retrying",
			"op", p.Name,
			"attempt", attempt,
			"max_attempts", p.MaxAttempts,
			"wait", wait.String(),
			"error", err,
		)
		if serr := p.Sleep(ctx, wait); serr != nil {
			return zero, errors.Join(serr, fmt.Errorf("%s: gave up after attempt %d: %w", p.Name, attempt, lastErr))
		}
	}

	return zero, fmt.Errorf("%s: failed after %d attempts: %w", p.Name, p.MaxAttempts, lastErr)
}

func (p Policy) withDefaults() Policy {
	if p.Name == "" {
		p.Name = "operation"
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff == nil {
		p.Backoff = Doubling(time.Second)
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Sleep == nil {
		p.Sleep = sleepCtx
	}
	return p
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoSleep skips the wait entirely; useful in tests and dry runs.
func NoSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }
