package completion

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

type Anthropic struct {
	client  *anthropic.Client
	timeout time.Duration
}

func NewAnthropic(cfg ProviderConfig) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigError{Key: "anthropic.api_key"}
	}

	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")))
	}

	return &Anthropic{
		client:  anthropic.NewClient(cfg.APIKey, opts...),
		timeout: cfg.Timeout,
	}, nil
}

func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	temperature := req.Options.Temperature
	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       req.Options.Model,
		System:      req.System,
		Messages:    []anthropic.Message{anthropic.NewUserTextMessage(req.Prompt)},
		Temperature: &temperature,
		MaxTokens:   req.Options.MaxOutputTokens,
	})
	if err != nil {
		return "", anthropicError(err)
	}

	if len(resp.Content) == 0 {
		return "", &UpstreamError{Status: http.StatusOK, Message: "no content returned"}
	}

	return resp.GetFirstContentText(), nil
}

// anthropicStatus maps the error type of a JSON error body to the HTTP status
// Anthropic documents for it. The SDK does not keep the response status.
var anthropicStatus = map[anthropic.ErrType]int{
	anthropic.ErrTypeInvalidRequest: http.StatusBadRequest,
	anthropic.ErrTypeAuthentication: http.StatusUnauthorized,
	anthropic.ErrTypePermission:     http.StatusForbidden,
	anthropic.ErrTypeNotFound:       http.StatusNotFound,
	anthropic.ErrTypeRateLimit:      http.StatusTooManyRequests,
	anthropic.ErrTypeApi:            http.StatusInternalServerError,
	anthropic.ErrTypeOverloaded:     529,
}

func anthropicError(err error) error {
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return &UpstreamError{Status: reqErr.StatusCode, Message: err.Error(), Err: err}
	}

	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Status: anthropicStatus[apiErr.Type], Message: apiErr.Message, Err: err}
	}

	return upstreamFailure(0, err)
}
