package translator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/nguyenvanduocit/tradubot/pkg/completion"
	"github.com/nguyenvanduocit/tradubot/pkg/ratelimit"
	"github.com/nguyenvanduocit/tradubot/pkg/variant"
)

// ErrEmptyInput is returned when upstream produced no usable candidate.
var ErrEmptyInput = variant.ErrEmptyInput

// RateLimitedError means the user has used up their quota for now.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// Seconds is RetryAfter rounded up to whole seconds, never less than one.
func (e *RateLimitedError) Seconds() int {
	s := int(math.Ceil(e.RetryAfter.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

type Translator interface {
	TranslateWithVariants(ctx context.Context, userID int64, text string) (Result, error)
	Ask(ctx context.Context, userID int64, task Task, text string) (string, error)
}

// Result is the chosen candidate together with every candidate it was chosen from.
type Result struct {
	Best     string   `json:"best"`
	Variants []string `json:"variants"`
}

type Config struct {
	TargetLanguage string
	IdealLength    int
	Options        completion.Options
	Format         variant.Format
}

// Engine is the long-lived translator shared by every chat. It owns the
// per-user rate limiter state.
type Engine struct {
	limiter *ratelimit.Limiter
	client  completion.Client
	config  Config
	logger  *slog.Logger
}

func NewEngine(limiter *ratelimit.Limiter, client completion.Client, cfg Config, logger *slog.Logger) (*Engine, error) {
	if limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	if client == nil {
		return nil, errors.New("completion client is required")
	}
	if cfg.IdealLength <= 0 {
		return nil, errors.New("ideal length must be greater than 0")
	}
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = DefaultTargetLanguage
	}
	if cfg.Format == "" {
		cfg.Format = variant.FormatLines
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{limiter: limiter, client: client, config: cfg, logger: logger}, nil
}

func (e *Engine) Limiter() *ratelimit.Limiter {
	return e.limiter
}

func (e *Engine) Config() Config {
	return e.config
}

// TranslateWithVariants asks upstream for three variants of text and returns
// the one closest to the ideal length. A denied call never reaches upstream;
// an accepted one counts against the quota whatever its outcome.
func (e *Engine) TranslateWithVariants(ctx context.Context, userID int64, text string) (Result, error) {
	if !e.limiter.CheckAndRecord(userID) {
		e.logger.Info("translation denied by rate limiter", "user_id", userID)
		return Result{}, &RateLimitedError{RetryAfter: e.limiter.Config().Window}
	}

	raw, err := e.client.Complete(ctx, completion.Request{
		System:  createSystemPrompt(e.config.TargetLanguage),
		Prompt:  createVariantPrompt(text, e.config.TargetLanguage, e.config.IdealLength, e.config.Format),
		Options: e.config.Options,
	})
	if err != nil {
		e.logger.Warn("completion failed", "user_id", userID, "err", err)
		return Result{}, err
	}

	variants := variant.ParseAs(e.config.Format, raw)
	best, err := variant.Pick(variants, e.config.IdealLength)
	if err != nil {
		e.logger.Warn("completion produced no variants", "user_id", userID, "raw_length", len(raw))
		return Result{}, err
	}

	e.logger.Debug("translation done", "user_id", userID, "variants", len(variants), "best_length", len([]rune(best)))

	return Result{Best: best, Variants: variants}, nil
}
