package main

import (
	"context"
	"math"
	"time"
)

// LoginAttempter makes one login attempt.
type LoginAttempter interface {
	AttemptLogin(ctx context.Context) (Outcome, error)
}

// RetryPolicy bounds the retry loop.
type RetryPolicy struct {
	// Retries is the number of attempts after the first one.
	Retries int
	// RetryTime is the wait before the first retry, and before every retry if NoExpWait.
	RetryTime time.Duration
	NoExpWait bool
}

// Delay returns the wait before retry n, counting from zero. Doubling saturates
// at the largest representable duration.
func (p RetryPolicy) Delay(n int) time.Duration {
	d := p.RetryTime
	if p.NoExpWait || d <= 0 {
		return d
	}
	for i := 0; i < n; i++ {
		if d > math.MaxInt64>>1 {
			return time.Duration(math.MaxInt64)
		}
		d <<= 1
	}
	return d
}

// RetryDriver repeats login attempts until one completes or the budget runs out.
type RetryDriver struct {
	attempter LoginAttempter
	policy    RetryPolicy
	logger    Logger
	sleep     func(ctx context.Context, d time.Duration) error

	// OnSuccess runs once after an attempt logs in, e.g. to schedule a recheck.
	OnSuccess func(Outcome)
}

func NewRetryDriver(attempter LoginAttempter, policy RetryPolicy, logger Logger) *RetryDriver {
	if logger == nil {
		logger = noopLogger{}
	}
	return &RetryDriver{
		attempter: attempter,
		policy:    policy,
		logger:    logger,
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run never fails on its own. It returns the last attempt's outcome and error so the
// caller can report them; an exhausted budget is not an error in itself.
func (d *RetryDriver) Run(ctx context.Context) (Outcome, error) {
	remaining := d.policy.Retries
	for {
		outcome, err := d.attempter.AttemptLogin(ctx)
		switch {
		case err != nil:
			d.logger.Error("%v", err)
			outcome = failedOutcome(err)
		case outcome.Kind == OutcomeSucceeded:
			if d.OnSuccess != nil {
				d.OnSuccess(outcome)
			}
			return outcome, nil
		case outcome.Kind == OutcomeAlreadyAuthenticated:
			return outcome, nil
		default:
			d.logger.Warn("Login attempt %s", outcome)
		}

		if remaining <= 0 {
			return outcome, err
		}

		wait := d.policy.Delay(d.policy.Retries - remaining)
		d.logger.Info("Waiting %v before retrying (%d retries remaining)", wait, remaining)
		remaining--
		if serr := d.sleep(ctx, wait); serr != nil {
			return outcome, serr
		}
	}
}
