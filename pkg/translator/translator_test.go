package translator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyenvanduocit/tradubot/pkg/completion"
	"github.com/nguyenvanduocit/tradubot/pkg/ratelimit"
	"github.com/nguyenvanduocit/tradubot/pkg/variant"
)

type stubClient struct {
	mu       sync.Mutex
	response string
	err      error
	requests []completion.Request
}

func (s *stubClient) Complete(ctx context.Context, req completion.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.response, s.err
}

func (s *stubClient) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newTestEngine(t *testing.T, client completion.Client, maxCalls int, cfg Config) *Engine {
	t.Helper()
	limiter, err := ratelimit.New(ratelimit.Config{MaxCalls: maxCalls, Window: time.Minute})
	require.NoError(t, err)

	if cfg.IdealLength == 0 {
		cfg.IdealLength = variant.DefaultIdealLength
	}
	engine, err := NewEngine(limiter, client, cfg, nil)
	require.NoError(t, err)
	return engine
}

func TestNewEngine_Validation(t *testing.T) {
	limiter, err := ratelimit.New(ratelimit.Config{MaxCalls: 1, Window: time.Minute})
	require.NoError(t, err)

	_, err = NewEngine(nil, &stubClient{}, Config{IdealLength: 150}, nil)
	assert.EqualError(t, err, "rate limiter is required")

	_, err = NewEngine(limiter, nil, Config{IdealLength: 150}, nil)
	assert.EqualError(t, err, "completion client is required")

	_, err = NewEngine(limiter, &stubClient{}, Config{IdealLength: 0}, nil)
	assert.EqualError(t, err, "ideal length must be greater than 0")

	engine, err := NewEngine(limiter, &stubClient{}, Config{IdealLength: 150}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTargetLanguage, engine.Config().TargetLanguage)
	assert.Equal(t, variant.FormatLines, engine.Config().Format)
}

func TestTranslateWithVariants(t *testing.T) {
	client := &stubClient{response: "Versão A texto\nVersão B texto\nVersão C texto"}
	engine := newTestEngine(t, client, 5, Config{})

	result, err := engine.TranslateWithVariants(context.Background(), 1, "hello")
	require.NoError(t, err)

	assert.Len(t, result.Variants, 3)
	assert.Contains(t, result.Variants, result.Best)
	assert.Equal(t, 1, client.calls())
}

func TestTranslateWithVariants_PicksClosestToIdealLength(t *testing.T) {
	client := &stubClient{response: "abcde\nabcdefghij\nabcdefghijklmnop"}
	engine := newTestEngine(t, client, 5, Config{IdealLength: 10})

	result, err := engine.TranslateWithVariants(context.Background(), 1, "hello")
	require.NoError(t, err)
	assert.Equal(t, "abcdefghij", result.Best)
	assert.Equal(t, []string{"abcde", "abcdefghij", "abcdefghijklmnop"}, result.Variants)
}

func TestTranslateWithVariants_PromptAndOptions(t *testing.T) {
	client := &stubClient{response: "a"}
	opts := completion.Options{Model: "gpt-4o-mini", Temperature: 0.7, MaxOutputTokens: 500}
	engine := newTestEngine(t, client, 5, Config{IdealLength: 150, TargetLanguage: "European Portuguese", Options: opts})

	_, err := engine.TranslateWithVariants(context.Background(), 1, "the *original* text\nwith two lines")
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, opts, req.Options)
	assert.Contains(t, req.Prompt, "the *original* text\nwith two lines")
	assert.Contains(t, req.Prompt, "exactly 3")
	assert.Contains(t, req.Prompt, "150 characters")
	assert.Contains(t, req.Prompt, "European Portuguese")
	assert.Contains(t, req.System, "European Portuguese")
}

func TestTranslateWithVariants_JSONFormat(t *testing.T) {
	client := &stubClient{response: "```json\n[\"um\", \"dois\"]\n```"}
	engine := newTestEngine(t, client, 5, Config{IdealLength: 3, Format: variant.FormatJSON})

	result, err := engine.TranslateWithVariants(context.Background(), 1, "one")
	require.NoError(t, err)
	assert.Equal(t, []string{"um", "dois"}, result.Variants)
	assert.Equal(t, "um", result.Best)
	assert.Contains(t, client.requests[0].Prompt, "JSON array")
}

func TestTranslateWithVariants_DeniedMakesNoUpstreamCall(t *testing.T) {
	client := &stubClient{response: "a\nb\nc"}
	engine := newTestEngine(t, client, 2, Config{})

	for i := 0; i < 2; i++ {
		_, err := engine.TranslateWithVariants(context.Background(), 7, "hi")
		require.NoError(t, err)
	}

	result, err := engine.TranslateWithVariants(context.Background(), 7, "hi")

	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, time.Minute, limited.RetryAfter)
	assert.Equal(t, Result{}, result)
	assert.Equal(t, 2, client.calls())

	// other users are unaffected
	_, err = engine.TranslateWithVariants(context.Background(), 8, "hi")
	require.NoError(t, err)
	assert.Equal(t, 3, client.calls())
}

func TestTranslateWithVariants_ZeroQuota(t *testing.T) {
	client := &stubClient{response: "a"}
	engine := newTestEngine(t, client, 0, Config{})

	_, err := engine.TranslateWithVariants(context.Background(), 1, "hi")

	var limited *RateLimitedError
	assert.ErrorAs(t, err, &limited)
	assert.Zero(t, client.calls())
}

func TestTranslateWithVariants_UpstreamErrorPropagates(t *testing.T) {
	upstreamErr := &completion.UpstreamError{Status: 500, Message: "boom"}
	client := &stubClient{err: upstreamErr}
	engine := newTestEngine(t, client, 1, Config{})

	result, err := engine.TranslateWithVariants(context.Background(), 1, "hi")
	assert.Same(t, upstreamErr, err)
	assert.Equal(t, Result{}, result)

	// the failed attempt still counted
	_, err = engine.TranslateWithVariants(context.Background(), 1, "hi")
	var limited *RateLimitedError
	assert.ErrorAs(t, err, &limited)
	assert.Equal(t, 1, client.calls())
}

func TestTranslateWithVariants_ConfigErrorPropagates(t *testing.T) {
	client := &stubClient{err: &completion.ConfigError{Key: "openai.api_key"}}
	engine := newTestEngine(t, client, 1, Config{})

	_, err := engine.TranslateWithVariants(context.Background(), 1, "hi")

	var configErr *completion.ConfigError
	assert.ErrorAs(t, err, &configErr)
}

func TestTranslateWithVariants_EmptyCompletion(t *testing.T) {
	for _, raw := range []string{"", "  \n \n"} {
		client := &stubClient{response: raw}
		engine := newTestEngine(t, client, 1, Config{})

		result, err := engine.TranslateWithVariants(context.Background(), 1, "hi")
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Equal(t, Result{}, result)
	}
}

func TestTranslateWithVariants_CancelledCallStillCounts(t *testing.T) {
	client := completion.ClientFunc(func(ctx context.Context, req completion.Request) (string, error) {
		<-ctx.Done()
		return "", &completion.UpstreamError{Message: ctx.Err().Error(), Err: ctx.Err()}
	})
	engine := newTestEngine(t, client, 1, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.TranslateWithVariants(ctx, 1, "hi")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, engine.Limiter().Remaining(1))
}

func TestTranslateWithVariants_ConcurrentUsers(t *testing.T) {
	client := &stubClient{response: strings.Repeat("x", 150) + "\nshort"}
	engine := newTestEngine(t, client, 3, Config{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := map[int64]int{}
	for user := int64(1); user <= 5; user++ {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(user int64) {
				defer wg.Done()
				if _, err := engine.TranslateWithVariants(context.Background(), user, "hi"); err == nil {
					mu.Lock()
					accepted[user]++
					mu.Unlock()
				}
			}(user)
		}
	}
	wg.Wait()

	for user := int64(1); user <= 5; user++ {
		assert.Equal(t, 3, accepted[user], "user %d", user)
	}
	assert.Equal(t, 15, client.calls())
}

func TestRateLimitedError(t *testing.T) {
	err := &RateLimitedError{RetryAfter: 30 * time.Second}
	assert.Equal(t, "rate limit exceeded, retry after 30s", err.Error())
	assert.Equal(t, 30, err.Seconds())

	tests := []struct {
		retryAfter time.Duration
		want       int
	}{
		{retryAfter: 1500 * time.Millisecond, want: 2},
		{retryAfter: 500 * time.Millisecond, want: 1},
		{retryAfter: 0, want: 1},
		{retryAfter: time.Minute, want: 60},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, (&RateLimitedError{RetryAfter: tt.retryAfter}).Seconds(), tt.retryAfter.String())
	}
}
