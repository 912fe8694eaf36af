package handlers

import (
	"context"

	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/bat-bot-search/internal/admin"
	"github.com/BatmanBruc/bat-bot-search/internal/i18n"
	"github.com/BatmanBruc/bat-bot-search/internal/messages"
)

type adminHandler func(h *Handlers, ctx context.Context, s Sender, msg *models.Message, args []string, lang i18n.Lang)

var adminCommands = map[string]adminHandler{
	"/adduser":       (*Handlers).addUser,
	"/removeuser":    (*Handlers).removeUser,
	"/addcredits":    (*Handlers).addCredits,
	"/setprice":      (*Handlers).setPrice,
	"/authchat":      (*Handlers).authChat,
	"/unauthchat":    (*Handlers).unauthChat,
	"/setfree":       (*Handlers).setFree,
	"/resetfree":     (*Handlers).resetFree,
	"/resetfreeuser": (*Handlers).resetFreeUser,
	"/stats":         (*Handlers).stats,
}

const (
	usageAddUser       = "/adduser <id> <credits> <days>"
	usageRemoveUser    = "/removeuser <id>"
	usageAddCredits    = "/addcredits <id> <delta>"
	usageSetPrice      = "/setprice <price>"
	usageAuthChat      = "/authchat [chatId] [title]"
	usageUnauthChat    = "/unauthchat [chatId]"
	usageSetFree       = "/setfree <dailyLimit> <cooldownSeconds> [chatId]"
	usageResetFree     = "/resetfree [chatId]"
	usageResetFreeUser = "/resetfreeuser <userId> [chatId]"
)

func (h *Handlers) addUser(ctx context.Context, s Sender, msg *models.Message, args []string, lang i18n.Lang) {
	a, err := admin.ParseGrant(args)
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, usageAddUser)
		return
	}
	acct, err := h.admin.GrantPremium(ctx, msg.From.ID, a.UserID, msg.Chat.ID, a.Credits, a.Days)
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, usageAddUser)
		return
	}
	h.reply(ctx, s, msg.Chat.ID, messages.AdminUserAdded(lang, acct.UserID, acct.Credits, a.Days, acct.ExpiryDate))
}

func (h *Handlers) removeUser(ctx context.Context, s Sender, msg *models.Message, args []string, lang i18n.Lang) {
	userID, err := admin.ParseUserID(args)
	if err == nil {
		err = h.admin.RevokePremium(ctx, msg.From.ID, userID)
	}
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, usageRemoveUser)
		return
	}
	h.reply(ctx, s, msg.Chat.ID, messages.AdminUserRemoved(lang, userID))
}

func (h *Handlers) addCredits(ctx context.Context, s Sender, msg *models.Message, args []string, lang i18n.Lang) {
	userID, delta, err := admin.ParseAdjust(args)
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, usageAddCredits)
		return
	}
	balance, err := h.admin.AdjustCredits(ctx, msg.From.ID, userID, delta)
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, usageAddCredits)
		return
	}
	h.reply(ctx, s, msg.Chat.ID, messages.AdminCreditsAdjusted(lang, userID, delta, balance))
}

func (h *Handlers) setPrice(ctx context.Context, s Sender, msg *models.Message, args []string, lang i18n.Lang) {
	price, err := admin.ParsePrice(args)
	if err == nil {
		err = h.admin.SetPrice(ctx, msg.From.ID, price)
	}
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, usageSetPrice)
		return
	}
	h.reply(ctx, s, msg.Chat.ID, messages.AdminPriceSet(lang, price))
}

func (h *Handlers) authChat(ctx context.Context, s Sender, msg *models.Message, args []string, lang i18n.Lang) {
	chatID, title := admin.ParseChatTarget(args, msg.Chat.ID)
	if title == "" && chatID == msg.Chat.ID {
		title = msg.Chat.Title
	}
	if err := h.admin.AuthorizeChat(ctx, msg.From.ID, chatID, title); err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, usageAuthChat)
		return
	}
	h.reply(ctx, s, msg.Chat.ID, messages.AdminChatAuthorized(lang, chatID, title))
}

func (h *Handlers) unauthChat(ctx context.Context, s Sender, msg *models.Message, args []string, lang i18n.Lang) {
	chatID, err := admin.ParseOptionalChat(args, msg.Chat.ID, usageUnauthChat)
	if err == nil {
		err = h.admin.DeauthorizeChat(ctx, msg.From.ID, chatID)
	}
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, usageUnauthChat)
		return
	}
	h.reply(ctx, s, msg.Chat.ID, messages.AdminChatDeauthorized(lang, chatID))
}

func (h *Handlers) setFree(ctx context.Context, s Sender, msg *models.Message, args []string, lang i18n.Lang) {
	a, err := admin.ParseFreeConfig(args, msg.Chat.ID)
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, usageSetFree)
		return
	}
	cfg, err := h.admin.SetFreeTierConfig(ctx, msg.From.ID, a.ChatID, a.DailyLimit, a.CooldownSeconds)
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, usageSetFree)
		return
	}
	h.reply(ctx, s, msg.Chat.ID, messages.AdminFreeConfigSet(lang, cfg))
}

func (h *Handlers) resetFree(ctx context.Context, s Sender, msg *models.Message, args []string, lang i18n.Lang) {
	chatID, err := admin.ParseOptionalChat(args, msg.Chat.ID, usageResetFree)
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, usageResetFree)
		return
	}
	n, err := h.admin.ResetFreeCounters(ctx, msg.From.ID, chatID)
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, usageResetFree)
		return
	}
	h.reply(ctx, s, msg.Chat.ID, messages.AdminCountersReset(lang, chatID, n))
}

func (h *Handlers) resetFreeUser(ctx context.Context, s Sender, msg *models.Message, args []string, lang i18n.Lang) {
	userID, chatID, err := admin.ParseUserChat(args, msg.Chat.ID)
	if err == nil {
		err = h.admin.ResetFreeCounter(ctx, msg.From.ID, userID, chatID)
	}
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, usageResetFreeUser)
		return
	}
	h.reply(ctx, s, msg.Chat.ID, messages.AdminCounterReset(lang, userID, chatID))
}

func (h *Handlers) stats(ctx context.Context, s Sender, msg *models.Message, _ []string, lang i18n.Lang) {
	st, err := h.admin.Stats(ctx, msg.From.ID)
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, "")
		return
	}
	h.reply(ctx, s, msg.Chat.ID, messages.Stats(lang, st, h.timezone))
}
