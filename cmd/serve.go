package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nguyenvanduocit/tradubot/pkg/bot"
	"github.com/nguyenvanduocit/tradubot/pkg/ratelimit"
	"github.com/nguyenvanduocit/tradubot/pkg/server"
)

var Serve = &cobra.Command{
	Use:     "serve",
	Short:   "serve the Telegram webhook and the translation API",
	Example: "tradubot serve --port 8080",
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	Serve.Flags().StringP("port", "p", "", "port to listen on (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}

	history, err := bot.NewHistory(cfg.Bot.HistoryTTL)
	if err != nil {
		return fmt.Errorf("failed to create history cache: %w", err)
	}
	defer history.Close()

	b := bot.New(cfg.BotSettings(), engine, history, engine.Limiter(), logger)
	app := server.New(cfg.ServerSettings(), b, logger)

	port := cfg.Server.Port
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		port = p
	}
	addr := net.JoinHostPort("", port)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening",
			"addr", addr,
			"provider", cfg.Provider,
			"max_calls", cfg.RateLimit.MaxCalls,
			"window_seconds", cfg.RateLimit.WindowSeconds,
		)
		return app.Listen(addr)
	})

	g.Go(func() error {
		sweep(ctx, engine.Limiter(), logger)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.RequestTimeout+5*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	return g.Wait()
}

// sweep drops idle identities from limiter once per window until ctx is done.
func sweep(ctx context.Context, limiter *ratelimit.Limiter, logger *slog.Logger) {
	ticker := time.NewTicker(limiter.Config().Window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := limiter.Sweep(); removed > 0 {
				logger.Debug("swept idle identities", "removed", removed, "tracked", limiter.Len())
			}
		}
	}
}
