// Package config loads tradubot settings from defaults, an optional YAML file,
// .env files and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nguyenvanduocit/tradubot/pkg/bot"
	"github.com/nguyenvanduocit/tradubot/pkg/completion"
	"github.com/nguyenvanduocit/tradubot/pkg/ratelimit"
	"github.com/nguyenvanduocit/tradubot/pkg/server"
	"github.com/nguyenvanduocit/tradubot/pkg/translator"
	"github.com/nguyenvanduocit/tradubot/pkg/util"
	"github.com/nguyenvanduocit/tradubot/pkg/variant"
)

const fileName = "tradubot"

type Config struct {
	Provider        string          `mapstructure:"provider"`
	OpenAI          Credentials     `mapstructure:"openai"`
	Anthropic       Credentials     `mapstructure:"anthropic"`
	Gemini          Credentials     `mapstructure:"gemini"`
	Model           string          `mapstructure:"model"`
	Temperature     float32         `mapstructure:"temperature"`
	MaxOutputTokens int             `mapstructure:"max_output_tokens"`
	Upstream        UpstreamConfig  `mapstructure:"upstream"`
	RateLimit       RateLimitConfig `mapstructure:"ratelimit"`
	IdealLength     int             `mapstructure:"ideal_length"`
	TargetLanguage  string          `mapstructure:"target_language"`
	ResponseFormat  string          `mapstructure:"response_format"`
	Bot             BotConfig       `mapstructure:"bot"`
	Server          ServerConfig    `mapstructure:"server"`
	Log             LogConfig       `mapstructure:"log"`
}

type Credentials struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type UpstreamConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
}

type RateLimitConfig struct {
	MaxCalls      int `mapstructure:"max_calls"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type BotConfig struct {
	Name string `mapstructure:"name"`
	// AdminIDs is a comma separated list of Telegram user ids.
	AdminIDs      string        `mapstructure:"admin_ids"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	HistoryTTL    time.Duration `mapstructure:"history_ttl"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", completion.ProviderOpenAI)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("model", "")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_output_tokens", 500)

	v.SetDefault("upstream.timeout", 30*time.Second)
	v.SetDefault("upstream.requests_per_minute", 60)
	v.SetDefault("upstream.max_retries", 2)
	v.SetDefault("upstream.retry_backoff", time.Second)
	v.SetDefault("upstream.breaker_failures", 5)
	v.SetDefault("upstream.breaker_timeout", 30*time.Second)

	v.SetDefault("ratelimit.max_calls", 20)
	v.SetDefault("ratelimit.window_seconds", 60)
	v.SetDefault("ideal_length", variant.DefaultIdealLength)
	v.SetDefault("target_language", translator.DefaultTargetLanguage)
	v.SetDefault("response_format", string(variant.FormatLines))

	v.SetDefault("bot.name", "Tradubot")
	v.SetDefault("bot.admin_ids", "")
	v.SetDefault("bot.webhook_secret", "")
	v.SetDefault("bot.history_ttl", 30*time.Minute)

	v.SetDefault("server.port", "3000")
	v.SetDefault("server.request_timeout", 45*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// envAliases are the short variable names accepted next to the automatic
// SECTION_KEY style names. An alias must never equal a section name such as
// BOT or RATELIMIT: with AutomaticEnv viper would take it as the value of the
// whole section and drop every other key in it.
var envAliases = map[string][]string{
	"provider":            {"PROVIDER"},
	"openai.api_key":      {"OPENAI_API_KEY", "OPENAI_KEY"},
	"openai.base_url":     {"OPENAI_BASE_URL"},
	"anthropic.api_key":   {"ANTHROPIC_API_KEY", "ANTHROPIC_KEY"},
	"gemini.api_key":      {"GEMINI_API_KEY", "GOOGLE_AI_API_KEY"},
	"model":               {"MODEL"},
	"ratelimit.max_calls": {"RATELIMIT_MAX_CALLS", "RATE_LIMIT"},
	"bot.name":            {"BOT_NAME"},
	"bot.admin_ids":       {"BOT_ADMIN_IDS", "ADMIN_IDS"},
	"server.port":         {"SERVER_PORT", "PORT"},
	"log.level":           {"LOG_LEVEL"},
}

// Load reads the configuration. file may be empty, in which case tradubot.yaml
// is looked up in the working directory and in $HOME/.config/tradubot.
func Load(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", fileName))
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.RateLimit.MaxCalls < 0 {
		return errors.New("ratelimit.max_calls must not be negative")
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return errors.New("ratelimit.window_seconds must be greater than 0")
	}
	if c.IdealLength <= 0 {
		return errors.New("ideal_length must be greater than 0")
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %v", c.Temperature)
	}
	if c.MaxOutputTokens <= 0 {
		return errors.New("max_output_tokens must be greater than 0")
	}
	if _, err := variant.ParseFormat(c.ResponseFormat); err != nil {
		return fmt.Errorf("response_format: %w", err)
	}
	if _, err := util.ParseIDs(c.Bot.AdminIDs); err != nil {
		return fmt.Errorf("bot.admin_ids: %w", err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func (c *Config) RateLimiter() ratelimit.Config {
	return ratelimit.Config{
		MaxCalls: c.RateLimit.MaxCalls,
		Window:   time.Duration(c.RateLimit.WindowSeconds) * time.Second,
	}
}

// Completion returns the provider settings. Only the selected provider's
// credentials are passed on; a missing key surfaces as a completion.ConfigError.
func (c *Config) Completion() completion.Settings {
	var creds Credentials
	switch strings.ToLower(c.Provider) {
	case completion.ProviderAnthropic:
		creds = c.Anthropic
	case completion.ProviderGemini:
		creds = c.Gemini
	default:
		creds = c.OpenAI
	}

	return completion.Settings{
		Provider: c.Provider,
		Credentials: completion.ProviderConfig{
			APIKey:  creds.APIKey,
			BaseURL: creds.BaseURL,
			Timeout: c.Upstream.Timeout,
		},
		RequestsPerMinute: c.Upstream.RequestsPerMinute,
		MaxRetries:        c.Upstream.MaxRetries,
		RetryBackoff:      c.Upstream.RetryBackoff,
		Breaker: completion.BreakerConfig{
			ConsecutiveFailures: c.Upstream.BreakerFailures,
			OpenTimeout:         c.Upstream.BreakerTimeout,
		},
	}
}

func (c *Config) Translator() translator.Config {
	model := c.Model
	if model == "" {
		model = completion.DefaultModel(c.Provider)
	}
	// validated in Load
	format, _ := variant.ParseFormat(c.ResponseFormat)

	return translator.Config{
		TargetLanguage: c.TargetLanguage,
		IdealLength:    c.IdealLength,
		Options: completion.Options{
			Model:           model,
			Temperature:     c.Temperature,
			MaxOutputTokens: c.MaxOutputTokens,
		},
		Format: format,
	}
}

func (c *Config) BotSettings() bot.Config {
	ids, _ := util.ParseIDs(c.Bot.AdminIDs)
	return bot.Config{
		Name:        c.Bot.Name,
		AdminIDs:    ids,
		IdealLength: c.IdealLength,
	}
}

func (c *Config) ServerSettings() server.Config {
	return server.Config{
		WebhookSecret:  c.Bot.WebhookSecret,
		RequestTimeout: c.Server.RequestTimeout,
	}
}

// Logger builds the slog logger described by the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
