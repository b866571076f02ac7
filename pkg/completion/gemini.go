package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

type Gemini struct {
	client  *genai.Client
	timeout time.Duration
}

func NewGemini(ctx context.Context, cfg ProviderConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigError{Key: "gemini.api_key"}
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{client: client, timeout: cfg.Timeout}, nil
}

func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	temperature := req.Options.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.Options.MaxOutputTokens),
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Role:  "system",
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx,
		req.Options.Model,
		[]*genai.Content{
			{
				Role:  "user",
				Parts: []*genai.Part{{Text: req.Prompt}},
			},
		},
		config,
	)
	if err != nil {
		return "", geminiError(err)
	}

	if len(resp.Candidates) == 0 {
		return "", &UpstreamError{Status: http.StatusOK, Message: "no candidates returned"}
	}

	return resp.Text(), nil
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Status: apiErr.Code, Message: apiErr.Message, Err: err}
	}

	return upstreamFailure(0, err)
}
