package translator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyenvanduocit/tradubot/pkg/completion"
)

func TestAsk_TaskOptions(t *testing.T) {
	tests := []struct {
		name       string
		task       Task
		wantPrompt string
		wantTemp   float32
		wantTokens int
	}{
		{name: "gpt", task: TaskAsk, wantPrompt: "quem é o Batman?", wantTemp: 0.7, wantTokens: 512},
		{name: "resumo", task: TaskSummary, wantPrompt: "Faça um resumo rápido e objetivo do seguinte texto, focado em cultura pop:\n\nquem é o Batman?", wantTemp: 0.5, wantTokens: 256},
		{name: "meme", task: TaskMeme, wantPrompt: "Crie um meme engraçado e rápido sobre cultura pop baseado no tema: quem é o Batman?", wantTemp: 0.9, wantTokens: 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{response: "  resposta \n"}
			engine := newTestEngine(t, client, 5, Config{Options: completion.Options{Model: "gpt-4o-mini", Temperature: 0.2, MaxOutputTokens: 500}})

			answer, err := engine.Ask(context.Background(), 1, tt.task, "quem é o Batman?")
			require.NoError(t, err)
			assert.Equal(t, "resposta", answer)

			require.Len(t, client.requests, 1)
			req := client.requests[0]
			assert.Equal(t, tt.task.System, req.System)
			assert.Equal(t, tt.wantPrompt, req.Prompt)
			assert.Equal(t, "gpt-4o-mini", req.Options.Model)
			assert.Equal(t, tt.wantTemp, req.Options.Temperature)
			assert.Equal(t, tt.wantTokens, req.Options.MaxOutputTokens)
		})
	}
}

func TestAsk_SharesTranslationQuota(t *testing.T) {
	client := &stubClient{response: "a\nb\nc"}
	engine := newTestEngine(t, client, 2, Config{})

	_, err := engine.TranslateWithVariants(context.Background(), 1, "one")
	require.NoError(t, err)
	_, err = engine.Ask(context.Background(), 1, TaskMeme, "gatos")
	require.NoError(t, err)

	_, err = engine.Ask(context.Background(), 1, TaskAsk, "again")
	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, 2, client.calls(), "denied call must not reach upstream")

	// other users keep their own quota
	_, err = engine.Ask(context.Background(), 2, TaskAsk, "hi")
	assert.NoError(t, err)
}

func TestAsk_Failures(t *testing.T) {
	engine := newTestEngine(t, &stubClient{response: " \n "}, 5, Config{})
	_, err := engine.Ask(context.Background(), 1, TaskAsk, "hi")
	assert.ErrorIs(t, err, ErrEmptyInput)

	boom := errors.New("boom")
	engine = newTestEngine(t, &stubClient{err: boom}, 5, Config{})
	_, err = engine.Ask(context.Background(), 1, TaskAsk, "hi")
	assert.ErrorIs(t, err, boom)
}
