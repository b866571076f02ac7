// Package server exposes the bot over HTTP: the Telegram webhook and a small
// JSON API for other callers.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nguyenvanduocit/tradubot/pkg/bot"
	"github.com/nguyenvanduocit/tradubot/pkg/completion"
	"github.com/nguyenvanduocit/tradubot/pkg/translator"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

type Config struct {
	// WebhookSecret must match the secret token header when set.
	WebhookSecret  string
	RequestTimeout time.Duration
}

type TranslateRequest struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

type ErrorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// New builds the fiber app. The caller owns Listen and Shutdown.
func New(cfg Config, b *bot.Bot, logger *slog.Logger) *fiber.App {
	if logger == nil {
		logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	h := &handlers{config: cfg, bot: b, logger: logger}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Post("/telegram/webhook", h.webhook)
	app.Post("/api/translate", h.translate)

	return app
}

type handlers struct {
	config Config
	bot    *bot.Bot
	logger *slog.Logger
}

func (h *handlers) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.config.RequestTimeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), h.config.RequestTimeout)
}

func (h *handlers) webhook(c *fiber.Ctx) error {
	if h.config.WebhookSecret != "" {
		got := c.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.config.WebhookSecret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid secret token"})
		}
	}

	var update bot.Update
	if err := c.BodyParser(&update); err != nil {
		h.logger.Warn("invalid webhook update", "err", err)
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid update"})
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	reply := h.bot.Handle(ctx, update)
	if reply == nil {
		return c.SendStatus(fiber.StatusOK)
	}

	return c.JSON(reply)
}

func (h *handlers) translate(c *fiber.Ctx) error {
	var req TranslateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "text is required"})
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.bot.Translate(ctx, req.UserID, req.Text)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(result)
}

func writeError(c *fiber.Ctx, err error) error {
	var limited *translator.RateLimitedError
	var upstreamErr *completion.UpstreamError
	var configErr *completion.ConfigError

	switch {
	case errors.As(err, &limited):
		retryAfter := limited.Seconds()
		c.Set("Retry-After", strconv.Itoa(retryAfter))
		return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{Error: "rate limit exceeded", RetryAfter: retryAfter})
	case errors.Is(err, translator.ErrEmptyInput):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Error: "no usable variants"})
	case errors.As(err, &configErr):
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "translation is not configured"})
	case errors.As(err, &upstreamErr):
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "translation service failed"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
	}
}
