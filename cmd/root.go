package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nguyenvanduocit/tradubot/pkg/completion"
	"github.com/nguyenvanduocit/tradubot/pkg/config"
	"github.com/nguyenvanduocit/tradubot/pkg/ratelimit"
	"github.com/nguyenvanduocit/tradubot/pkg/translator"
)

var (
	configFile string
	appConfig  *config.Config
)

var Root = &cobra.Command{
	Use:           "tradubot",
	Short:         "Translate text into a fixed target language, picking the variant closest to an ideal length",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		appConfig = cfg
		slog.SetDefault(cfg.Logger(os.Stderr))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	Root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./tradubot.yaml or $HOME/.config/tradubot/tradubot.yaml)")

	Root.AddCommand(Translate)
	Root.AddCommand(Serve)
}

// newEngine wires the limiter, the completion client and the translator from cfg.
func newEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*translator.Engine, error) {
	limiter, err := ratelimit.New(cfg.RateLimiter())
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	client, err := completion.New(ctx, cfg.Completion(), logger)
	var configErr *completion.ConfigError
	switch {
	case errors.As(err, &configErr):
		// keep serving; every translation reports the missing credential
		logger.Warn("completion provider is not configured", "key", configErr.Key)
		client = completion.ClientFunc(func(context.Context, completion.Request) (string, error) {
			return "", configErr
		})
	case err != nil:
		return nil, err
	}

	return translator.NewEngine(limiter, client, cfg.Translator(), logger)
}
