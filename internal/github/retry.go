package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/merge-warden/internal/core"
)

const (
	defaultAttempts = 3
	initialDelay    = 500 * time.Millisecond
)

// withRetry runs fn up to attempts times, sleeping with doubling delay
// between tries. Only errors classified as transient are retried;
// everything else propagates immediately.
func withRetry[T any](ctx context.Context, logger *slog.Logger, attempts int, op string, fn func() (T, error)) (T, error) {
	var zero T
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	delay := initialDelay

	for attempt := 1; ; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !core.IsRetryable(err) || attempt >= attempts {
			return zero, err
		}
		logger.Warn("retrying after transient failure", "op", op, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%w: %s: %v", core.ErrTransient, op, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// withRetryResp is withRetry for paginated calls that also need the API
// response to follow the next-page cursor.
func withRetryResp[T any](ctx context.Context, logger *slog.Logger, attempts int, op string, fn func() (T, *github.Response, error)) (T, *github.Response, error) {
	type result struct {
		value T
		resp  *github.Response
	}
	res, err := withRetry(ctx, logger, attempts, op, func() (result, error) {
		v, resp, err := fn()
		return result{value: v, resp: resp}, err
	})
	return res.value, res.resp, err
}

// classify maps a raw go-github error into the core error taxonomy. The
// evaluator and the exit-code contract only ever see classified errors.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %s: rate limited: %v", core.ErrTransient, op, err)
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch code := ghErr.Response.StatusCode; {
		case code == http.StatusNotFound || code == http.StatusGone:
			return fmt.Errorf("%w: %s: %v", core.ErrNotFound, op, err)
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return fmt.Errorf("%w: %s: %v", core.ErrAuth, op, err)
		case code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %s: %v", core.ErrTransient, op, err)
		default:
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	// Everything else is transport-level: timeouts, connection resets,
	// cancelled contexts, malformed responses.
	return fmt.Errorf("%w: %s: %v", core.ErrTransient, op, err)
}
