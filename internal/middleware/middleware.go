package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/BatmanBruc/bat-bot-search/internal/contextkeys"
	"github.com/BatmanBruc/bat-bot-search/internal/i18n"
	"github.com/BatmanBruc/bat-bot-search/internal/logger"
	"github.com/BatmanBruc/bat-bot-search/internal/messages"
	"github.com/BatmanBruc/bat-bot-search/types"
)

type Middlewares struct {
	log   *logger.Logger
	prefs types.PreferenceStore
}

func New(log *logger.Logger, prefs types.PreferenceStore) *Middlewares {
	if log == nil {
		log = logger.Nop()
	}
	return &Middlewares{log: log, prefs: prefs}
}

// UpdateContext attaches the caller identity, a request id and the resolved
// language to ctx. Updates without a sender and chat are dropped.
func (m *Middlewares) UpdateContext(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update == nil || update.Message == nil || update.Message.From == nil {
			return
		}
		msg := update.Message
		userID := msg.From.ID
		chatID := msg.Chat.ID
		if userID == 0 || chatID == 0 {
			return
		}

		requestID := uuid.NewString()
		ctx = contextkeys.WithUserID(ctx, userID)
		ctx = contextkeys.WithChatID(ctx, chatID)
		ctx = contextkeys.WithRequestID(ctx, requestID)
		ctx = contextkeys.WithLang(ctx, string(m.resolveLang(ctx, userID, msg.From.LanguageCode)))

		ctx = m.log.WithRequestID(ctx, requestID)
		ctx = m.log.WithUserID(ctx, userID)
		ctx = m.log.WithChatID(ctx, chatID)

		next(ctx, b, update)
	}
}

func (m *Middlewares) resolveLang(ctx context.Context, userID int64, code string) i18n.Lang {
	if m.prefs != nil {
		pref, err := m.prefs.GetLang(ctx, userID)
		if err != nil {
			m.log.Warn(m.log.WithField(ctx, "error", err.Error()), "language preference unavailable")
		} else if i18n.Supported(pref) {
			return i18n.Parse(pref)
		}
	}
	return i18n.FromLanguageCode(code)
}

// Recover stops a panic in one update from taking the process down and answers
// with the generic error text.
func (m *Middlewares) Recover(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			m.log.Error(m.log.WithField(ctx, "stack", string(debug.Stack())), "panic in update handler", fmt.Errorf("%v", r))
			if b == nil || update == nil || update.Message == nil {
				return
			}
			lang := i18n.Default
			if v, ok := contextkeys.GetLang(ctx); ok {
				lang = i18n.Parse(v)
			}
			_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    update.Message.Chat.ID,
				Text:      messages.ErrorDefault(lang),
				ParseMode: messages.ParseModeHTML,
			})
		}()
		next(ctx, b, update)
	}
}
