package retry

import (
	"context"
	"log/slog"
	"time"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/logfields"
)

// Op is one attempt of a retried operation. attempt is 0 for the first call.
type Op func(ctx context.Context, attempt int) error

// Do runs op until it succeeds, returns a non-transient error, or the policy runs out of
// retries. Only errors classified as transient are retried. When the policy carries a
// timeout, each attempt runs under its own deadline.
func Do(ctx context.Context, p Policy, op Op) error {
	return DoWithLogger(ctx, p, slog.Default(), op)
}

// DoWithLogger is Do with an explicit logger for retry diagnostics.
func DoWithLogger(ctx context.Context, p Policy, logger *slog.Logger, op Op) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = runAttempt(ctx, p, attempt, op)
		if err == nil {
			return nil
		}
		if !ferrors.IsTransient(err) || attempt >= p.MaxRetries {
			return err
		}
		delay := p.Delay(attempt + 1)
		logger.Debug("Retrying after transient failure",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			logfields.Error(err))
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}
}

func runAttempt(ctx context.Context, p Policy, attempt int, op Op) error {
	timeout := p.AttemptTimeout(attempt)
	if timeout <= 0 {
		return op(ctx, attempt)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx, attempt)
}

func sleep(ctx context.Context, d time.Duration) error {
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
