// Package completion sends prompts to a remote LLM and returns the raw text it
// generated. Providers share one Client contract; retry, pacing and circuit
// breaking are layered on top as wrappers.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Client is implemented by every provider and wrapper in this package.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (string, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int
}

// Request is built per call and never stored.
type Request struct {
	System  string
	Prompt  string
	Options Options
}

const defaultTimeout = 30 * time.Second

// UpstreamError reports a failed call to the completion service. Status is the
// HTTP status when one was received, 0 for network and decoding failures.
type UpstreamError struct {
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream error: %s", e.Message)
	}
	return fmt.Sprintf("upstream error (status %d): %s", e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// RateLimited reports whether upstream rejected the call with 429.
func (e *UpstreamError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// ConfigError reports a missing or invalid provider setting, usually the API key.
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("completion not configured: missing %s", e.Key)
}

// upstreamFailure wraps err as an UpstreamError unless it already is one.
func upstreamFailure(status int, err error) error {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return err
	}
	return &UpstreamError{Status: status, Message: err.Error(), Err: err}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
