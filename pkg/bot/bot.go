// Package bot maps Telegram updates onto the translator and turns its results
// and failures into chat replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nguyenvanduocit/tradubot/pkg/completion"
	"github.com/nguyenvanduocit/tradubot/pkg/ratelimit"
	"github.com/nguyenvanduocit/tradubot/pkg/translator"
	"github.com/nguyenvanduocit/tradubot/pkg/util"
	"github.com/nguyenvanduocit/tradubot/pkg/variant"
)

type taskCommand struct {
	translator.Task
	usage string
}

var tasks = map[string]taskCommand{
	"gpt":    {Task: translator.TaskAsk, usage: "📝 Use: /gpt <pergunta>"},
	"resumo": {Task: translator.TaskSummary, usage: "📝 Use: /resumo <texto para resumir>"},
	"meme":   {Task: translator.TaskMeme, usage: "📝 Use: /meme <tema para meme>"},
}

type Config struct {
	Name        string
	AdminIDs    []int64
	IdealLength int
}

type Bot struct {
	config     Config
	translator translator.Translator
	history    *History
	stats      *Stats
	// limiter is only read for /stats and may be nil.
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

func New(cfg Config, t translator.Translator, history *History, limiter *ratelimit.Limiter, logger *slog.Logger) *Bot {
	if cfg.IdealLength <= 0 {
		cfg.IdealLength = variant.DefaultIdealLength
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Bot{
		config:     cfg,
		translator: t,
		history:    history,
		stats:      NewStats(),
		limiter:    limiter,
		logger:     logger,
	}
}

func (b *Bot) Stats() *Stats {
	return b.stats
}

// Handle returns the reply for update, or nil when the update needs none.
func (b *Bot) Handle(ctx context.Context, update Update) *Reply {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	command, _ := util.ParseCommand(text)
	var answer string
	switch command {
	case "":
		b.logger.Info("message received", "user_id", msg.From.ID, "length", len([]rune(text)))
		answer = b.translate(ctx, msg.From.ID, text)
	case "start":
		answer = b.welcome(msg.From)
	case "help":
		answer = b.help()
	case "traduz":
		arg := util.CommandArgument(text)
		if arg == "" {
			answer = "📝 Use: /traduz <texto para traduzir>"
			break
		}
		answer = b.translate(ctx, msg.From.ID, arg)
	case "gpt", "resumo", "meme":
		task := tasks[command]
		arg := util.CommandArgument(text)
		if arg == "" {
			answer = task.usage
			break
		}
		answer = b.ask(ctx, msg.From.ID, task.Task, arg)
	case "variantes":
		answer = b.variants(msg.From.ID)
	case "stats":
		answer = b.statsReport(msg.From.ID)
	default:
		answer = "🤷 Comando desconhecido. Use /help para ver os comandos disponíveis."
	}

	return &Reply{
		Method:           "sendMessage",
		ChatID:           msg.Chat.ID,
		Text:             util.SanitizeText(answer, util.MaxMessageLength),
		ReplyToMessageID: msg.MessageID,
	}
}

// Translate runs one translation for userID and records its outcome.
func (b *Bot) Translate(ctx context.Context, userID int64, text string) (translator.Result, error) {
	result, err := b.translator.TranslateWithVariants(ctx, userID, text)
	if err == nil {
		b.stats.translations.Add(1)
		if b.history != nil {
			b.history.Remember(userID, result)
		}
		return result, nil
	}

	b.recordFailure(userID, err)
	return result, err
}

func (b *Bot) ask(ctx context.Context, userID int64, task translator.Task, text string) string {
	b.logger.Info("task requested", "user_id", userID, "task", task.Name, "length", len([]rune(text)))

	answer, err := b.translator.Ask(ctx, userID, task, text)
	if err != nil {
		b.recordFailure(userID, err)
		return ErrorMessage(err)
	}

	b.stats.answers.Add(1)
	return answer
}

func (b *Bot) recordFailure(userID int64, err error) {
	var limited *translator.RateLimitedError
	if errors.As(err, &limited) {
		b.stats.denied.Add(1)
		return
	}
	b.stats.failed.Add(1)
	b.logFailure(userID, err)
}

func (b *Bot) translate(ctx context.Context, userID int64, text string) string {
	result, err := b.Translate(ctx, userID, text)
	if err != nil {
		return ErrorMessage(err)
	}
	return result.Best
}

func (b *Bot) logFailure(userID int64, err error) {
	var upstreamErr *completion.UpstreamError
	var configErr *completion.ConfigError
	switch {
	case errors.As(err, &upstreamErr):
		b.logger.Error("completion failed", "user_id", userID, "status", upstreamErr.Status, "err", upstreamErr.Message)
	case errors.As(err, &configErr):
		b.logger.Error("completion not configured", "user_id", userID, "key", configErr.Key)
	default:
		b.logger.Warn("request failed", "user_id", userID, "err", err)
	}
}

// ErrorMessage is the user facing wording for a failed translation or task.
func ErrorMessage(err error) string {
	var limited *translator.RateLimitedError
	switch {
	case errors.As(err, &limited):
		return fmt.Sprintf("⏳ Você atingiu o limite de traduções. Tente novamente em %d segundos.", limited.Seconds())
	case errors.Is(err, translator.ErrEmptyInput):
		return "❌ Não consegui gerar variações para esse texto. Tente reformular a mensagem."
	default:
		return "❌ Desculpe, ocorreu um erro ao processar sua solicitação.\nTente novamente em alguns instantes."
	}
}

func (b *Bot) welcome(user *User) string {
	return fmt.Sprintf("🤖 Olá, %s! Eu sou o %s!\n\n"+
		"Me envie qualquer texto e eu devolvo a tradução com o tamanho ideal para postagens.\n\n"+
		"Comandos disponíveis:\n"+
		"/start - Iniciar o bot\n"+
		"/help - Mostrar ajuda\n"+
		"/traduz <texto> - Traduzir texto\n"+
		"/variantes - Ver as variações da última tradução\n"+
		"/gpt <pergunta> - Perguntar sobre cultura pop\n"+
		"/resumo <texto> - Resumir um texto\n"+
		"/meme <tema> - Gerar um meme\n"+
		"/stats - Estatísticas (admin)", user.FirstName, b.config.Name)
}

func (b *Bot) help() string {
	return fmt.Sprintf("🆘 Ajuda do %s\n\n"+
		"• /traduz <texto> - Tradução com três variações; escolho a mais próxima de %d caracteres\n"+
		"• /variantes - Mostra todas as variações da sua última tradução\n"+
		"• /gpt <pergunta> - Responde perguntas sobre cultura pop\n"+
		"• /resumo <texto> - Resumo rápido e objetivo do texto\n"+
		"• /meme <tema> - Cria um meme sobre o tema\n"+
		"• /stats - Estatísticas (apenas admins)\n\n"+
		"Você também pode simplesmente enviar o texto, sem comando.", b.config.Name, b.config.IdealLength)
}

func (b *Bot) variants(userID int64) string {
	if b.history == nil {
		return "🤷 Nenhuma tradução recente encontrada."
	}

	result, ok := b.history.Last(userID)
	if !ok || len(result.Variants) == 0 {
		return "🤷 Nenhuma tradução recente encontrada. Envie um texto primeiro."
	}

	var sb strings.Builder
	sb.WriteString("📋 Variações da sua última tradução:\n")
	for i, v := range variant.Rank(result.Variants, b.config.IdealLength) {
		marker := ""
		if i == 0 {
			marker = " ⭐"
		}
		fmt.Fprintf(&sb, "\n%d. (%d caracteres, desvio %d)%s\n%s\n",
			i+1, len([]rune(v)), variant.Deviation(v, b.config.IdealLength), marker, v)
	}

	return sb.String()
}

func (b *Bot) statsReport(userID int64) string {
	if !slices.Contains(b.config.AdminIDs, userID) {
		return "❌ Comando disponível apenas para administradores."
	}

	b.logger.Info("admin requested stats", "user_id", userID)

	snapshot := b.stats.Snapshot()
	tracked := 0
	if b.limiter != nil {
		tracked = b.limiter.Len()
	}

	return fmt.Sprintf("📊 Estatísticas do %s\n\n"+
		"Status: ✅ Online\n"+
		"Horário: %s\n"+
		"No ar desde: %s\n"+
		"Traduções: %d\n"+
		"Respostas (/gpt, /resumo, /meme): %d\n"+
		"Bloqueadas pelo limite: %d\n"+
		"Falhas: %d\n"+
		"Usuários no limitador: %d\n"+
		"Admins configurados: %d",
		b.config.Name,
		time.Now().Format(time.DateTime),
		snapshot.StartedAt.Format(time.DateTime),
		snapshot.Translations,
		snapshot.Answers,
		snapshot.Denied,
		snapshot.Failed,
		tracked,
		len(b.config.AdminIDs),
	)
}
