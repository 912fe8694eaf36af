package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/bat-bot-search/internal/access"
	"github.com/BatmanBruc/bat-bot-search/internal/admin"
	"github.com/BatmanBruc/bat-bot-search/internal/contextkeys"
	"github.com/BatmanBruc/bat-bot-search/internal/i18n"
	"github.com/BatmanBruc/bat-bot-search/internal/logger"
	"github.com/BatmanBruc/bat-bot-search/internal/messages"
	"github.com/BatmanBruc/bat-bot-search/types"
)

// Sender is the part of *bot.Bot the handlers reply through.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type Handlers struct {
	access   *access.Service
	admin    *admin.Service
	prefs    types.PreferenceStore
	log      *logger.Logger
	timezone string
}

func NewHandlers(acc *access.Service, adm *admin.Service, prefs types.PreferenceStore, log *logger.Logger, timezone string) *Handlers {
	if log == nil {
		log = logger.Nop()
	}
	if timezone == "" {
		timezone = "UTC"
	}
	return &Handlers{
		access:   acc,
		admin:    adm,
		prefs:    prefs,
		log:      log,
		timezone: timezone,
	}
}

func (h *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.Handle(ctx, b, update)
}

// Handle dispatches commands. Plain text is ignored so the bot stays quiet in groups.
func (h *Handlers) Handle(ctx context.Context, s Sender, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return
	}
	text := strings.TrimSpace(update.Message.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	h.HandleCommand(ctx, s, update.Message)
}

func langFromCtx(ctx context.Context) i18n.Lang {
	if v, ok := contextkeys.GetLang(ctx); ok {
		return i18n.Parse(v)
	}
	return i18n.Default
}

func (h *Handlers) reply(ctx context.Context, s Sender, chatID int64, text string) {
	_, err := s.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		h.log.Error(ctx, "send message failed", err)
	}
}

// parseCommand splits "/cmd@bot arg1 arg2" into "/cmd" and its arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", nil
	}
	cmd := fields[0]
	if strings.Contains(cmd, "@") {
		cmd = strings.SplitN(cmd, "@", 2)[0]
	}
	return strings.ToLower(cmd), fields[1:]
}
