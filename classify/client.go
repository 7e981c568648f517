package classify

import (
	"context"
	"errors"
	"time"

	retry "github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"

	"github.com/hazyhaar/clarity/observability"
	"github.com/hazyhaar/clarity/segment"
)

// Client wraps a Classifier with a global bound on outstanding calls,
// bounded exponential retries of transient failures and a circuit breaker.
type Client struct {
	inner   Classifier
	cfg     Config
	sem     *semaphore.Weighted
	breaker *Breaker
}

// Wrap builds a Client around any Classifier.
func Wrap(inner Classifier, cfg Config) *Client {
	cfg.defaults()
	return &Client{
		inner: inner,
		cfg:   cfg,
		sem:   semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		breaker: NewBreaker(
			WithBreakerThreshold(cfg.BreakerThreshold),
			WithBreakerResetTimeout(cfg.BreakerReset),
			WithBreakerHalfOpenMax(cfg.BreakerHalfOpenMax),
		),
	}
}

func (c *Client) Name() string { return c.inner.Name() }

// Breaker exposes the circuit breaker state (health checks).
func (c *Client) Breaker() *Breaker { return c.breaker }

// Classify classifies one clause. The error, when not nil, is one of:
// ctx.Err() when the caller gave up, an *UnrecognizedError when the model
// answered something unusable, or a *FailedError once attempts are
// exhausted or the error is permanent.
func (c *Client) Classify(ctx context.Context, clause segment.Clause) (Result, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return Result{Clause: clause}, err
	}
	defer c.sem.Release(1)

	start := time.Now()
	var (
		res      Result
		attempts int
	)
	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxAttempts-1),
		retry.WithCappedDuration(c.cfg.MaxDelay, retry.NewExponential(c.cfg.BaseDelay)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if !c.breaker.Allow() {
			return &CircuitOpenError{Provider: c.Name()}
		}
		attempts++

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		r, err := c.inner.Classify(callCtx, clause)
		switch {
		case err == nil:
			c.breaker.Success()
			res = r
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrUnrecognizedClassification):
			// The provider answered; only the content was unusable.
			c.breaker.Success()
			return err
		}

		c.breaker.Failure()
		if transient(err) {
			c.cfg.Logger.WarnContext(ctx, "classify attempt failed",
				"provider", c.Name(), "clause", clause.Index, "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})

	elapsed := time.Since(start)
	c.record(observability.MetricClassifyDurationMs, float64(elapsed.Milliseconds()), "milliseconds", nil)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{Clause: clause}, ctxErr
		}
		kind := "classification_failed"
		if errors.Is(err, ErrUnrecognizedClassification) {
			kind = "unrecognized_classification"
		} else {
			err = &FailedError{Clause: clause.Index, Provider: c.Name(), Attempts: attempts, Err: err}
		}
		c.record(observability.MetricClassifyFailures, 1, "count", map[string]string{"kind": kind})
		c.cfg.Logger.WarnContext(ctx, "clause not classified",
			"provider", c.Name(), "clause", clause.Index, "attempts", attempts, "error", err)
		return Result{Clause: clause, Provider: c.Name(), Attempts: attempts}, err
	}

	res.Clause = clause
	res.Provider = c.Name()
	res.Attempts = attempts
	if scan := ScanInjection(clause.Text); scan.Risk != "none" {
		res.Injection = scan
		c.cfg.Logger.WarnContext(ctx, "prompt injection pattern in clause",
			"clause", clause.Index, "risk", scan.Risk, "matches", len(scan.Matches))
	}
	return res, nil
}

func (c *Client) record(name string, v float64, unit string, labels map[string]string) {
	if labels == nil {
		labels = map[string]string{}
	}
	labels["provider"] = c.Name()
	c.cfg.Recorder.Record(&observability.Metric{Name: name, Value: v, Unit: unit, Labels: labels})
}
