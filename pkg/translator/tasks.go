package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/nguyenvanduocit/tradubot/pkg/completion"
)

// Task is a free form prompt answered by the same upstream as translations.
// Template receives the user text through a single %s verb.
type Task struct {
	Name            string
	System          string
	Template        string
	Temperature     float32
	MaxOutputTokens int
}

var (
	TaskAsk = Task{
		Name:            "gpt",
		System:          "Você é um assistente de cultura pop divertido e informativo.",
		Template:        "%s",
		Temperature:     0.7,
		MaxOutputTokens: 512,
	}
	TaskSummary = Task{
		Name:            "resumo",
		System:          "Você é um assistente que resume textos de cultura pop.",
		Template:        "Faça um resumo rápido e objetivo do seguinte texto, focado em cultura pop:\n\n%s",
		Temperature:     0.5,
		MaxOutputTokens: 256,
	}
	TaskMeme = Task{
		Name:            "meme",
		System:          "Você é um gerador de memes engraçados e criativos sobre cultura pop.",
		Template:        "Crie um meme engraçado e rápido sobre cultura pop baseado no tema: %s",
		Temperature:     0.9,
		MaxOutputTokens: 128,
	}
)

// Ask runs task over text for userID. It shares the translation quota: a
// denied call never reaches upstream and returns a RateLimitedError.
func (e *Engine) Ask(ctx context.Context, userID int64, task Task, text string) (string, error) {
	if !e.limiter.CheckAndRecord(userID) {
		e.logger.Info("task denied by rate limiter", "user_id", userID, "task", task.Name)
		return "", &RateLimitedError{RetryAfter: e.limiter.Config().Window}
	}

	opts := e.config.Options
	opts.Temperature = task.Temperature
	if task.MaxOutputTokens > 0 {
		opts.MaxOutputTokens = task.MaxOutputTokens
	}

	raw, err := e.client.Complete(ctx, completion.Request{
		System:  task.System,
		Prompt:  fmt.Sprintf(task.Template, text),
		Options: opts,
	})
	if err != nil {
		e.logger.Warn("completion failed", "user_id", userID, "task", task.Name, "err", err)
		return "", err
	}

	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "", ErrEmptyInput
	}
	return answer, nil
}
