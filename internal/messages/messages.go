package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/BatmanBruc/bat-bot-search/internal/i18n"
	"github.com/BatmanBruc/bat-bot-search/types"
)

const ParseModeHTML = "HTML"

const dateLayout = "02/01/2006"

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func tr(lang i18n.Lang, es, en string) string {
	if lang == i18n.EN {
		return en
	}
	return es
}

func date(tm *time.Time) string {
	if tm == nil {
		return "-"
	}
	return tm.Format(dateLayout)
}

func ErrorDefault(lang i18n.Lang) string {
	return tr(lang, "🚫 <b>Error</b>\nInténtalo de nuevo.", "🚫 <b>Error</b>\nPlease try again.")
}

func ErrorTransient(lang i18n.Lang) string {
	return tr(lang,
		"⚠️ <b>Servicio no disponible</b>\nNo se realizó ningún cargo. Inténtalo en unos segundos.",
		"⚠️ <b>Service unavailable</b>\nNothing was charged. Try again in a few seconds.")
}

func ErrorUnknownCommand(lang i18n.Lang) string {
	return tr(lang, "❓ <b>Comando no encontrado</b>\nEscribe /cmds", "❓ <b>Unknown command</b>\nType /cmds")
}

func AdminDenied(lang i18n.Lang) string {
	return tr(lang, "❌ Solo el administrador puede usar este comando.", "❌ Only the administrator can use this command.")
}

func InvalidParams(lang i18n.Lang, usage string) string {
	msg := tr(lang, "❌ <b>Parámetros inválidos</b>", "❌ <b>Invalid parameters</b>")
	if usage = strings.TrimSpace(usage); usage != "" {
		msg += "\n" + tr(lang, "Uso: ", "Usage: ") + "<code>" + Escape(usage) + "</code>"
	}
	return msg
}

func NotFound(lang i18n.Lang) string {
	return tr(lang, "🔎 <b>No encontrado</b>", "🔎 <b>Not found</b>")
}

func StartWelcome(lang i18n.Lang, firstName string, userID int64) string {
	name := Escape(firstName)
	if name == "" {
		name = tr(lang, "Usuario", "User")
	}
	return fmt.Sprintf(tr(lang,
		"👋 <b>¡Bienvenido %s!</b>\n\n🔑 ID: <code>%d</code>\n\n"+
			"/live &lt;palabra&gt; - Buscar en el canal\n/creditos - Ver tus créditos\n/perfil - Ver tu información\n/free - Búsquedas gratis en este chat\n\n"+
			"¿Necesitas ayuda? Escribe /cmds",
		"👋 <b>Welcome %s!</b>\n\n🔑 ID: <code>%d</code>\n\n"+
			"/live &lt;term&gt; - Search the channel\n/credits - Your credits\n/profile - Your account\n/free - Free searches in this chat\n\n"+
			"Need help? Type /cmds"), name, userID)
}

func Commands(lang i18n.Lang, price int64, isAdmin bool) string {
	var b strings.Builder
	b.WriteString(tr(lang, "📋 <b>COMANDOS DISPONIBLES</b>\n\n", "📋 <b>AVAILABLE COMMANDS</b>\n\n"))
	b.WriteString(tr(lang, "🔍 <b>Búsqueda:</b>\n", "🔍 <b>Search:</b>\n"))
	b.WriteString(fmt.Sprintf(tr(lang,
		"/live &lt;palabra&gt; - Busca en el canal\n   Costo premium: %d créditos por búsqueda\n   Ejemplo: /live python\n\n",
		"/live &lt;term&gt; - Search the channel\n   Premium cost: %d credits per search\n   Example: /live python\n\n"), price))
	b.WriteString(tr(lang, "👤 <b>Usuario:</b>\n", "👤 <b>User:</b>\n"))
	b.WriteString(tr(lang,
		"/start - Inicia el bot\n/creditos - Ver créditos disponibles\n/perfil - Ver tu cuenta\n/free - Estado gratuito en este chat\n/lang es|en|auto - Idioma\n/cmds - Este menú\n",
		"/start - Start the bot\n/credits - Available credits\n/profile - Your account\n/free - Free tier status in this chat\n/lang es|en|auto - Language\n/cmds - This menu\n"))
	if isAdmin {
		b.WriteString("\n━━━━━━━━━━━━━━━━━━━━\n")
		b.WriteString(tr(lang, "⚙️ <b>ADMIN:</b>\n", "⚙️ <b>ADMIN:</b>\n"))
		b.WriteString("/adduser &lt;id&gt; &lt;credits&gt; &lt;days&gt;\n")
		b.WriteString("/removeuser &lt;id&gt;\n")
		b.WriteString("/addcredits &lt;id&gt; &lt;delta&gt;\n")
		b.WriteString("/setprice &lt;price&gt;\n")
		b.WriteString("/authchat [chatId] [title]\n")
		b.WriteString("/unauthchat [chatId]\n")
		b.WriteString("/setfree &lt;limit&gt; &lt;cooldown&gt; [chatId]\n")
		b.WriteString("/resetfree [chatId]\n")
		b.WriteString("/resetfreeuser &lt;userId&gt; [chatId]\n")
		b.WriteString("/stats\n")
	}
	return b.String()
}

func Credits(lang i18n.Lang, credits, searches, price int64, valid bool) string {
	msg := fmt.Sprintf(tr(lang,
		"💳 <b>TUS CRÉDITOS</b>\n\n💰 Créditos disponibles: <b>%d</b>\n🔍 Búsquedas disponibles: <b>%d</b>\n💵 Costo por búsqueda: <b>%d créditos</b>\n\n",
		"💳 <b>YOUR CREDITS</b>\n\n💰 Available credits: <b>%d</b>\n🔍 Searches available: <b>%d</b>\n💵 Cost per search: <b>%d credits</b>\n\n"),
		credits, searches, price)
	switch {
	case !valid:
		msg += tr(lang, "⏰ Tu acceso premium no está activo. Contacta al administrador.", "⏰ Your premium access is not active. Contact the administrator.")
	case searches > 0:
		msg += tr(lang, "✅ Tienes suficientes créditos para buscar", "✅ You have enough credits to search")
	default:
		msg += tr(lang, "❌ Créditos insuficientes. Contacta al admin", "❌ Not enough credits. Contact the admin")
	}
	return msg
}

func NoPremium(lang i18n.Lang, price int64) string {
	return fmt.Sprintf(tr(lang,
		"ℹ️ No tienes una cuenta premium.\n💵 Costo por búsqueda: <b>%d créditos</b>\n\nUsa /free para ver tus búsquedas gratis en este chat.",
		"ℹ️ You have no premium account.\n💵 Cost per search: <b>%d credits</b>\n\nUse /free to see your free searches in this chat."), price)
}

type Profile struct {
	UserID        int64
	Username      string
	FirstName     string
	Credits       int64
	DaysRemaining int
	Expiry        *time.Time
	MemberSince   time.Time
	Active        bool
	Valid         bool
}

func ProfileText(lang i18n.Lang, p Profile) string {
	username := Escape(p.Username)
	if username == "" {
		username = "-"
	} else {
		username = "@" + username
	}
	state := tr(lang, "INACTIVO", "INACTIVE")
	switch {
	case p.Valid:
		state = tr(lang, "ACTIVO", "ACTIVE")
	case p.Active:
		state = tr(lang, "EXPIRADO", "EXPIRED")
	}
	member := p.MemberSince
	return fmt.Sprintf(tr(lang,
		"👤 <b>TU PERFIL</b>\n\n🔑 ID Telegram: <code>%d</code>\n👤 Usuario: <b>%s</b>\n📝 Nombre: <b>%s</b>\n💳 Créditos: <b>%d</b>\n📅 Acceso expira en: <b>%d días</b>\n📆 Fecha expiración: %s\n📝 Miembro desde: %s\n✅ Estado: <b>%s</b>",
		"👤 <b>YOUR PROFILE</b>\n\n🔑 Telegram ID: <code>%d</code>\n👤 User: <b>%s</b>\n📝 Name: <b>%s</b>\n💳 Credits: <b>%d</b>\n📅 Access expires in: <b>%d days</b>\n📆 Expiry date: %s\n📝 Member since: %s\n✅ Status: <b>%s</b>"),
		p.UserID, username, Escape(p.FirstName), p.Credits, p.DaysRemaining, date(p.Expiry), date(&member), state)
}

type FreeTier struct {
	Authorized      bool
	DailyLimit      int
	Count           int
	Remaining       int
	Cooldown        int
	CooldownSeconds int
}

func FreeStatus(lang i18n.Lang, f FreeTier) string {
	if !f.Authorized {
		return DenyChatNotAuthorized(lang)
	}
	msg := fmt.Sprintf(tr(lang,
		"🆓 <b>BÚSQUEDAS GRATIS</b>\n\n🔍 Usadas: <b>%d/%d</b>\n✅ Restantes: <b>%d</b>\n⏱ Espera entre búsquedas: <b>%ds</b>",
		"🆓 <b>FREE SEARCHES</b>\n\n🔍 Used: <b>%d/%d</b>\n✅ Remaining: <b>%d</b>\n⏱ Wait between searches: <b>%ds</b>"),
		f.Count, f.DailyLimit, f.Remaining, f.Cooldown)
	if f.CooldownSeconds > 0 {
		msg += fmt.Sprintf(tr(lang, "\n⏳ Podrás buscar en <b>%ds</b>", "\n⏳ Next search in <b>%ds</b>"), f.CooldownSeconds)
	}
	return msg
}

func SearchUsage(lang i18n.Lang) string {
	return tr(lang,
		"❌ Uso correcto: /live &lt;palabra clave&gt;\nEjemplo: /live python",
		"❌ Usage: /live &lt;keyword&gt;\nExample: /live python")
}

func searchStatus(lang i18n.Lang, status string, count int) string {
	if status == "" || status == "processing" {
		return tr(lang, "Se está procesando...", "Processing...")
	}
	return fmt.Sprintf("%d", count)
}

func SearchPremiumDone(lang i18n.Lang, term string, status string, count int, price, remaining int64) string {
	searches := int64(0)
	if price > 0 {
		searches = remaining / price
	}
	return fmt.Sprintf(tr(lang,
		"✅ <b>Búsqueda Completada</b>\n\n🔍 Término: <b>%s</b>\n📍 Resultados: %s\n💳 Créditos usados: <b>%d</b>\n💰 Créditos restantes: <b>%d</b>\n\nPuedes hacer %d búsquedas más con tus créditos actuales.",
		"✅ <b>Search Completed</b>\n\n🔍 Term: <b>%s</b>\n📍 Results: %s\n💳 Credits used: <b>%d</b>\n💰 Credits left: <b>%d</b>\n\nYou can make %d more searches with your current credits."),
		Escape(term), searchStatus(lang, status, count), price, remaining, searches)
}

func SearchFreeDone(lang i18n.Lang, term string, status string, count int, used, limit int) string {
	left := limit - used
	if left < 0 {
		left = 0
	}
	return fmt.Sprintf(tr(lang,
		"✅ <b>Búsqueda Completada</b>\n\n🔍 Término: <b>%s</b>\n📍 Resultados: %s\n🆓 Búsquedas gratis restantes hoy: <b>%d/%d</b>",
		"✅ <b>Search Completed</b>\n\n🔍 Term: <b>%s</b>\n📍 Results: %s\n🆓 Free searches left today: <b>%d/%d</b>"),
		Escape(term), searchStatus(lang, status, count), left, limit)
}

func SearchFailed(lang i18n.Lang, refunded bool) string {
	msg := tr(lang, "❌ <b>Error en la búsqueda</b>", "❌ <b>Search failed</b>")
	if refunded {
		msg += tr(lang, "\n💳 Tus créditos fueron devueltos.", "\n💳 Your credits were refunded.")
	}
	return msg
}

func DenyInsufficientCredits(lang i18n.Lang, have, need int64) string {
	return fmt.Sprintf(tr(lang,
		"❌ Créditos insuficientes.\nNecesitas: %d créditos\nTienes: %d créditos\n\nContacta al administrador para agregar créditos.",
		"❌ Not enough credits.\nYou need: %d credits\nYou have: %d credits\n\nContact the administrator to add credits."), need, have)
}

func DenyChatNotAuthorized(lang i18n.Lang) string {
	return tr(lang,
		"🔒 Este chat no está autorizado para búsquedas gratis.\nContacta al administrador.",
		"🔒 This chat is not authorized for free searches.\nContact the administrator.")
}

func DenyDailyLimit(lang i18n.Lang, limit int) string {
	return fmt.Sprintf(tr(lang,
		"⛔ Alcanzaste el límite de <b>%d</b> búsquedas gratis por día en este chat.",
		"⛔ You reached the limit of <b>%d</b> free searches per day in this chat."), limit)
}

func Throttled(lang i18n.Lang, seconds int) string {
	return fmt.Sprintf(tr(lang,
		"⏳ Espera <b>%d</b> segundos antes de volver a buscar.",
		"⏳ Wait <b>%d</b> seconds before searching again."), seconds)
}

func LangUsage(lang i18n.Lang) string {
	return tr(lang, "🌐 Uso: /lang es | en | auto", "🌐 Usage: /lang es | en | auto")
}

func LangSet(lang i18n.Lang) string {
	return tr(lang, "✅ Idioma: español", "✅ Language: English")
}

func LangAuto(lang i18n.Lang) string {
	return tr(lang, "✅ Idioma automático", "✅ Automatic language")
}

func AdminUserAdded(lang i18n.Lang, userID, credits int64, days int, expiry *time.Time) string {
	return fmt.Sprintf(tr(lang,
		"✅ <b>Usuario Agregado</b>\n🔑 ID: <code>%d</code>\n💳 Créditos: %d\n📅 Acceso: %d días (hasta %s)",
		"✅ <b>User Added</b>\n🔑 ID: <code>%d</code>\n💳 Credits: %d\n📅 Access: %d days (until %s)"),
		userID, credits, days, date(expiry))
}

func AdminUserRemoved(lang i18n.Lang, userID int64) string {
	return fmt.Sprintf(tr(lang, "✅ Usuario %d desactivado.", "✅ User %d deactivated."), userID)
}

func AdminCreditsAdjusted(lang i18n.Lang, userID, delta, balance int64) string {
	return fmt.Sprintf(tr(lang,
		"✅ Créditos de %d ajustados en %+d\nCréditos actuales: %d",
		"✅ Credits of %d adjusted by %+d\nCurrent credits: %d"), userID, delta, balance)
}

func AdminPriceSet(lang i18n.Lang, price int64) string {
	return fmt.Sprintf(tr(lang,
		"✅ Precio actualizado a %d créditos por búsqueda.",
		"✅ Price updated to %d credits per search."), price)
}

func AdminChatAuthorized(lang i18n.Lang, chatID int64, title string) string {
	msg := fmt.Sprintf(tr(lang, "✅ Chat <code>%d</code> autorizado", "✅ Chat <code>%d</code> authorized"), chatID)
	if title = Escape(title); title != "" {
		msg += " (" + title + ")"
	}
	return msg
}

func AdminChatDeauthorized(lang i18n.Lang, chatID int64) string {
	return fmt.Sprintf(tr(lang, "✅ Chat <code>%d</code> desautorizado", "✅ Chat <code>%d</code> deauthorized"), chatID)
}

func AdminFreeConfigSet(lang i18n.Lang, cfg types.FreeTierConfig) string {
	return fmt.Sprintf(tr(lang,
		"✅ Chat <code>%d</code>: %d búsquedas gratis por día, %ds de espera",
		"✅ Chat <code>%d</code>: %d free searches per day, %ds cooldown"),
		cfg.ChatID, cfg.DailyLimit, cfg.SpamCooldownSeconds)
}

func AdminCountersReset(lang i18n.Lang, chatID, n int64) string {
	return fmt.Sprintf(tr(lang,
		"✅ %d contadores reiniciados en el chat <code>%d</code>",
		"✅ %d counters reset in chat <code>%d</code>"), n, chatID)
}

func AdminCounterReset(lang i18n.Lang, userID, chatID int64) string {
	return fmt.Sprintf(tr(lang,
		"✅ Contador de %d reiniciado en el chat <code>%d</code>",
		"✅ Counter of %d reset in chat <code>%d</code>"), userID, chatID)
}

func Stats(lang i18n.Lang, st types.Stats, tz string) string {
	return fmt.Sprintf(tr(lang,
		"📊 <b>ESTADÍSTICAS DEL SISTEMA</b>\n\n👥 Cuentas premium activas: <b>%d</b>\n💬 Chats autorizados: <b>%d</b>\n🆓 Contadores gratis: <b>%d</b>\n🔍 Búsquedas hoy (%s): <b>%d</b>\n💳 Precio por búsqueda: <b>%d créditos</b>",
		"📊 <b>SYSTEM STATISTICS</b>\n\n👥 Active premium accounts: <b>%d</b>\n💬 Authorized chats: <b>%d</b>\n🆓 Free counters: <b>%d</b>\n🔍 Searches today (%s): <b>%d</b>\n💳 Price per search: <b>%d credits</b>"),
		st.ActivePremiumAccounts, st.ActiveAuthorizedChats, st.FreeCounterRows, Escape(tz), st.SearchesToday, st.PricePerSearch)
}
