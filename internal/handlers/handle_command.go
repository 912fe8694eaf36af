package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot/models"

	apperrors "github.com/BatmanBruc/bat-bot-search/internal/errors"
	"github.com/BatmanBruc/bat-bot-search/internal/i18n"
	"github.com/BatmanBruc/bat-bot-search/internal/messages"
	"github.com/BatmanBruc/bat-bot-search/internal/policy"
	"github.com/BatmanBruc/bat-bot-search/types"
)

func (h *Handlers) HandleCommand(ctx context.Context, s Sender, msg *models.Message) {
	cmd, args := parseCommand(msg.Text)
	if cmd == "" {
		return
	}
	ctx = h.log.WithField(ctx, "command", cmd)
	lang := langFromCtx(ctx)
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if handler, ok := adminCommands[cmd]; ok {
		if !h.admin.IsAdmin(userID) {
			h.log.Warn(ctx, "admin command from non-admin")
			h.reply(ctx, s, chatID, messages.AdminDenied(lang))
			return
		}
		handler(h, ctx, s, msg, args, lang)
		return
	}

	switch cmd {
	case "/start":
		h.reply(ctx, s, chatID, messages.StartWelcome(lang, msg.From.FirstName, userID))
	case "/cmds", "/help":
		price, err := h.access.Price(ctx)
		if err != nil {
			h.failure(ctx, s, chatID, lang, err, "")
			return
		}
		h.reply(ctx, s, chatID, messages.Commands(lang, price, h.admin.IsAdmin(userID)))
	case "/credits", "/creditos":
		h.handleCredits(ctx, s, msg, lang)
	case "/profile", "/perfil":
		h.handleProfile(ctx, s, msg, lang)
	case "/free":
		h.handleFree(ctx, s, msg, lang)
	case "/live", "/search":
		h.handleSearch(ctx, s, msg, strings.Join(args, " "), lang)
	case "/lang":
		h.handleLang(ctx, s, msg, args, lang)
	default:
		h.reply(ctx, s, chatID, messages.ErrorUnknownCommand(lang))
	}
}

func (h *Handlers) handleCredits(ctx context.Context, s Sender, msg *models.Message, lang i18n.Lang) {
	st, err := h.access.PremiumStatus(ctx, msg.From.ID)
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		h.noPremium(ctx, s, msg.Chat.ID, lang)
		return
	}
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, "")
		return
	}
	h.reply(ctx, s, msg.Chat.ID, messages.Credits(lang, st.Account.Credits, st.SearchesAvailable, st.Price, st.Valid))
}

func (h *Handlers) handleProfile(ctx context.Context, s Sender, msg *models.Message, lang i18n.Lang) {
	st, err := h.access.PremiumStatus(ctx, msg.From.ID)
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		h.noPremium(ctx, s, msg.Chat.ID, lang)
		return
	}
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, "")
		return
	}
	h.reply(ctx, s, msg.Chat.ID, messages.ProfileText(lang, messages.Profile{
		UserID:        msg.From.ID,
		Username:      msg.From.Username,
		FirstName:     strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName),
		Credits:       st.Account.Credits,
		DaysRemaining: st.DaysRemaining,
		Expiry:        st.Account.ExpiryDate,
		MemberSince:   st.Account.CreatedAt,
		Active:        st.Account.IsActive,
		Valid:         st.Valid,
	}))
}

func (h *Handlers) noPremium(ctx context.Context, s Sender, chatID int64, lang i18n.Lang) {
	price, err := h.access.Price(ctx)
	if err != nil {
		h.failure(ctx, s, chatID, lang, err, "")
		return
	}
	h.reply(ctx, s, chatID, messages.NoPremium(lang, price))
}

func (h *Handlers) handleFree(ctx context.Context, s Sender, msg *models.Message, lang i18n.Lang) {
	st, err := h.access.FreeStatus(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		h.failure(ctx, s, msg.Chat.ID, lang, err, "")
		return
	}
	h.reply(ctx, s, msg.Chat.ID, messages.FreeStatus(lang, messages.FreeTier{
		Authorized:      st.Authorized,
		DailyLimit:      st.Config.DailyLimit,
		Count:           st.Count,
		Remaining:       st.Remaining,
		Cooldown:        st.Config.SpamCooldownSeconds,
		CooldownSeconds: st.CooldownSeconds,
	}))
}

func (h *Handlers) handleSearch(ctx context.Context, s Sender, msg *models.Message, term string, lang i18n.Lang) {
	chatID := msg.Chat.ID
	out, err := h.access.Search(ctx, msg.From.ID, chatID, term)
	if err != nil {
		switch {
		case apperrors.IsCode(err, apperrors.CodeValidation):
			h.reply(ctx, s, chatID, messages.SearchUsage(lang))
		case out != nil:
			h.reply(ctx, s, chatID, messages.SearchFailed(lang, out.Refunded))
		default:
			h.reply(ctx, s, chatID, messages.ErrorTransient(lang))
		}
		return
	}

	d := out.Decision
	switch d.Outcome {
	case policy.OutcomeThrottle:
		h.reply(ctx, s, chatID, messages.Throttled(lang, d.RemainingSeconds))
	case policy.OutcomeDeny:
		switch d.Reason {
		case policy.ReasonInsufficientCredits:
			h.reply(ctx, s, chatID, messages.DenyInsufficientCredits(lang, d.Have, d.Need))
		case policy.ReasonChatNotAuthorized:
			h.reply(ctx, s, chatID, messages.DenyChatNotAuthorized(lang))
		case policy.ReasonDailyLimitReached:
			h.reply(ctx, s, chatID, messages.DenyDailyLimit(lang, d.Limit))
		default:
			h.reply(ctx, s, chatID, messages.ErrorDefault(lang))
		}
	case policy.OutcomeGrant:
		if d.Tier == types.TierPremium {
			h.reply(ctx, s, chatID, messages.SearchPremiumDone(lang, out.Term, out.Result.Status, out.Result.Count, d.Charge.Amount, out.RemainingCredits))
			return
		}
		h.reply(ctx, s, chatID, messages.SearchFreeDone(lang, out.Term, out.Result.Status, out.Result.Count, d.Charge.Counter.NewCount, d.Limit))
	}
}

func (h *Handlers) handleLang(ctx context.Context, s Sender, msg *models.Message, args []string, lang i18n.Lang) {
	chatID := msg.Chat.ID
	if len(args) != 1 || h.prefs == nil {
		h.reply(ctx, s, chatID, messages.LangUsage(lang))
		return
	}
	arg := strings.ToLower(strings.TrimSpace(args[0]))
	switch {
	case i18n.Supported(arg):
		if err := h.prefs.SetLang(ctx, msg.From.ID, arg); err != nil {
			h.failure(ctx, s, chatID, lang, apperrors.Wrap(apperrors.CodeDependency, err, "save language"), "")
			return
		}
		h.reply(ctx, s, chatID, messages.LangSet(i18n.Parse(arg)))
	case arg == "auto":
		if err := h.prefs.ClearLang(ctx, msg.From.ID); err != nil {
			h.failure(ctx, s, chatID, lang, apperrors.Wrap(apperrors.CodeDependency, err, "clear language"), "")
			return
		}
		h.reply(ctx, s, chatID, messages.LangAuto(i18n.FromLanguageCode(msg.From.LanguageCode)))
	default:
		h.reply(ctx, s, chatID, messages.LangUsage(lang))
	}
}

// failure answers a coded error with the matching public text.
func (h *Handlers) failure(ctx context.Context, s Sender, chatID int64, lang i18n.Lang, err error, usage string) {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeForbidden:
		h.reply(ctx, s, chatID, messages.AdminDenied(lang))
	case apperrors.CodeValidation:
		h.reply(ctx, s, chatID, messages.InvalidParams(lang, usage))
	case apperrors.CodeNotFound:
		h.reply(ctx, s, chatID, messages.NotFound(lang))
	case apperrors.CodeDependency:
		h.log.Error(ctx, "command failed", err)
		h.reply(ctx, s, chatID, messages.ErrorTransient(lang))
	default:
		h.log.Error(ctx, "command failed", err)
		h.reply(ctx, s, chatID, messages.ErrorDefault(lang))
	}
}
