package middleware

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/bat-bot-search/internal/contextkeys"
	"github.com/BatmanBruc/bat-bot-search/internal/logger"
	"github.com/BatmanBruc/bat-bot-search/store"
)

func textUpdate(userID, chatID int64, langCode string) *models.Update {
	return &models.Update{Message: &models.Message{
		Text: "/start",
		From: &models.User{ID: userID, LanguageCode: langCode},
		Chat: models.Chat{ID: chatID},
	}}
}

func TestUpdateContextPopulatesIdentity(t *testing.T) {
	prefs := store.NewMemoryStore()
	mw := New(nil, prefs)

	var got context.Context
	h := mw.UpdateContext(func(ctx context.Context, _ *bot.Bot, _ *models.Update) { got = ctx })
	h(context.Background(), nil, textUpdate(7, -100, "en-GB"))

	require.NotNil(t, got)
	userID, _ := contextkeys.GetUserID(got)
	chatID, _ := contextkeys.GetChatID(got)
	reqID, _ := contextkeys.GetRequestID(got)
	lang, _ := contextkeys.GetLang(got)
	assert.Equal(t, int64(7), userID)
	assert.Equal(t, int64(-100), chatID)
	assert.Len(t, reqID, 36)
	assert.Equal(t, "en", lang)
}

func TestUpdateContextPrefersStoredLanguage(t *testing.T) {
	prefs := store.NewMemoryStore()
	require.NoError(t, prefs.SetLang(context.Background(), 7, "es"))
	mw := New(nil, prefs)

	var lang string
	h := mw.UpdateContext(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		lang, _ = contextkeys.GetLang(ctx)
	})
	h(context.Background(), nil, textUpdate(7, 1, "en"))
	assert.Equal(t, "es", lang)
}

func TestUpdateContextDropsUpdatesWithoutSender(t *testing.T) {
	mw := New(nil, nil)
	called := false
	h := mw.UpdateContext(func(context.Context, *bot.Bot, *models.Update) { called = true })

	h(context.Background(), nil, &models.Update{})
	h(context.Background(), nil, &models.Update{Message: &models.Message{Chat: models.Chat{ID: 1}}})
	assert.False(t, called)
}

func TestRecoverSwallowsPanics(t *testing.T) {
	var buf bytes.Buffer
	mw := New(logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: &buf}), nil)
	h := mw.Recover(func(context.Context, *bot.Bot, *models.Update) { panic("boom") })

	assert.NotPanics(t, func() { h(context.Background(), nil, textUpdate(1, 1, "")) })
	assert.Contains(t, buf.String(), "panic in update handler")
	assert.Contains(t, buf.String(), "boom")
}
