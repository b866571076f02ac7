package completion

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type retryClient struct {
	next       Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// WithRetry retries calls that upstream rejected with 429, waiting
// (attempt+1)*backoff between attempts. Any other failure is returned as is.
func WithRetry(next Client, maxRetries int, backoff time.Duration, logger *slog.Logger) Client {
	if maxRetries <= 0 {
		return next
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &retryClient{next: next, maxRetries: maxRetries, backoff: backoff, logger: logger}
}

func (r *retryClient) Complete(ctx context.Context, req Request) (string, error) {
	var err error
	for attempt := 0; ; attempt++ {
		var text string
		text, err = r.next.Complete(ctx, req)
		if err == nil {
			return text, nil
		}

		var upstreamErr *UpstreamError
		if !errors.As(err, &upstreamErr) || !upstreamErr.RateLimited() || attempt >= r.maxRetries {
			return "", err
		}

		wait := time.Duration(attempt+1) * r.backoff
		r.logger.Warn("upstream rate limited, retrying", "attempt", attempt+1, "wait", wait)

		select {
		case <-ctx.Done():
			// the caller gave up, report the last upstream answer
			return "", err
		case <-time.After(wait):
		}
	}
}
