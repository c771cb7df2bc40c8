package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/chess-graph-crawler/internal/metrics"
)

// ResilientFetcher wraps a Fetcher with bounded exponential backoff. A 404
// short-circuits without sleeping; any other failure is retried.
type ResilientFetcher struct {
	fetcher Fetcher
	sleeper Sleeper
	policy  ExponentialRetryPolicy
	logger  *zap.Logger
}

// NewResilientFetcher builds a ResilientFetcher. A zero policy falls back to
// NewExponentialRetryPolicy.
func NewResilientFetcher(
	fetcher Fetcher,
	sleeper Sleeper,
	policy ExponentialRetryPolicy,
	logger *zap.Logger,
) (*ResilientFetcher, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if sleeper == nil {
		return nil, errors.New("sleeper is required")
	}
	if policy == (ExponentialRetryPolicy{}) {
		policy = NewExponentialRetryPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &ResilientFetcher{
		fetcher: fetcher,
		sleeper: sleeper,
		policy:  policy,
		logger:  logger,
	}, nil
}

// Fetch issues the GET until it succeeds, the resource is reported absent, or
// the attempt ceiling is reached.
func (f *ResilientFetcher) Fetch(ctx context.Context, url string) (FetchResponse, error) {
	var lastErr error
	for attempt := 0; attempt < f.policy.MaxAttempts; attempt++ {
		resp, err := f.fetcher.Fetch(ctx, url)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return FetchResponse{}, fmt.Errorf("fetch %s: %w", url, ctxErr)
			}
			metrics.ObserveFetchAttempt("error")
			lastErr = fmt.Errorf("%w: %w", ErrTransientFetch, err)
		case resp.StatusCode == http.StatusNotFound:
			metrics.ObserveFetchAttempt("not_found")
			return FetchResponse{}, fmt.Errorf("fetch %s: %w", url, ErrEntityNotFound)
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			metrics.ObserveFetchAttempt("ok")
			return resp, nil
		default:
			metrics.ObserveFetchAttempt("bad_status")
			lastErr = fmt.Errorf("%w: status %d", ErrTransientFetch, resp.StatusCode)
		}

		backoff := f.policy.Backoff(attempt)
		f.logger.Debug("sleeping before retry",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr),
		)
		metrics.ObserveBackoff(backoff)
		if err := f.sleeper.Sleep(ctx, backoff); err != nil {
			return FetchResponse{}, fmt.Errorf("fetch %s: backoff interrupted: %w", url, err)
		}
	}
	f.logger.Debug("backoff failed", zap.String("url", url), zap.Error(lastErr))
	return FetchResponse{}, fmt.Errorf("fetch %s: %w after %d attempts: %w",
		url, ErrFetchExhausted, f.policy.MaxAttempts, lastErr)
}
