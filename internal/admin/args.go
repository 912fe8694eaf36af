package admin

import (
	"strconv"
	"strings"

	apperrors "github.com/BatmanBruc/bat-bot-search/internal/errors"
)

// Argument parsers for the admin chat commands. args excludes the command itself.

type GrantArgs struct {
	UserID  int64
	Credits int64
	Days    int
}

type FreeConfigArgs struct {
	ChatID          int64
	DailyLimit      int
	CooldownSeconds int
}

func invalid(usage string) error {
	return apperrors.New(apperrors.CodeValidation, "usage: "+usage)
}

func parseInt64(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v, err == nil
}

func parseInt(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	return v, err == nil
}

// ParseGrant reads "<userId> <credits> <days>".
func ParseGrant(args []string) (GrantArgs, error) {
	const usage = "/adduser <id> <credits> <days>"
	if len(args) != 3 {
		return GrantArgs{}, invalid(usage)
	}
	userID, ok1 := parseInt64(args[0])
	credits, ok2 := parseInt64(args[1])
	days, ok3 := parseInt(args[2])
	if !ok1 || !ok2 || !ok3 {
		return GrantArgs{}, invalid(usage)
	}
	return GrantArgs{UserID: userID, Credits: credits, Days: days}, nil
}

func ParseUserID(args []string) (int64, error) {
	const usage = "/removeuser <id>"
	if len(args) != 1 {
		return 0, invalid(usage)
	}
	id, ok := parseInt64(args[0])
	if !ok {
		return 0, invalid(usage)
	}
	return id, nil
}

// ParseAdjust reads "<userId> <delta>"; delta may be negative.
func ParseAdjust(args []string) (int64, int64, error) {
	const usage = "/addcredits <id> <delta>"
	if len(args) != 2 {
		return 0, 0, invalid(usage)
	}
	id, ok1 := parseInt64(args[0])
	delta, ok2 := parseInt64(args[1])
	if !ok1 || !ok2 {
		return 0, 0, invalid(usage)
	}
	return id, delta, nil
}

func ParsePrice(args []string) (int64, error) {
	const usage = "/setprice <price>"
	if len(args) != 1 {
		return 0, invalid(usage)
	}
	p, ok := parseInt64(args[0])
	if !ok {
		return 0, invalid(usage)
	}
	return p, nil
}

// ParseChatTarget reads "[chatId] [title...]". Without a numeric first
// argument the current chat is the target and every argument is the title.
func ParseChatTarget(args []string, currentChat int64) (int64, string) {
	if len(args) > 0 {
		if id, ok := parseInt64(args[0]); ok {
			return id, strings.Join(args[1:], " ")
		}
	}
	return currentChat, strings.Join(args, " ")
}

// ParseOptionalChat reads "[chatId]".
func ParseOptionalChat(args []string, currentChat int64, usage string) (int64, error) {
	switch len(args) {
	case 0:
		return currentChat, nil
	case 1:
		id, ok := parseInt64(args[0])
		if !ok {
			return 0, invalid(usage)
		}
		return id, nil
	}
	return 0, invalid(usage)
}

// ParseFreeConfig reads "<dailyLimit> <cooldownSeconds> [chatId]".
func ParseFreeConfig(args []string, currentChat int64) (FreeConfigArgs, error) {
	const usage = "/setfree <dailyLimit> <cooldownSeconds> [chatId]"
	if len(args) < 2 || len(args) > 3 {
		return FreeConfigArgs{}, invalid(usage)
	}
	limit, ok1 := parseInt(args[0])
	cooldown, ok2 := parseInt(args[1])
	if !ok1 || !ok2 {
		return FreeConfigArgs{}, invalid(usage)
	}
	chatID, err := ParseOptionalChat(args[2:], currentChat, usage)
	if err != nil {
		return FreeConfigArgs{}, err
	}
	return FreeConfigArgs{ChatID: chatID, DailyLimit: limit, CooldownSeconds: cooldown}, nil
}

// ParseUserChat reads "<userId> [chatId]".
func ParseUserChat(args []string, currentChat int64) (int64, int64, error) {
	const usage = "/resetfreeuser <userId> [chatId]"
	if len(args) < 1 || len(args) > 2 {
		return 0, 0, invalid(usage)
	}
	userID, ok := parseInt64(args[0])
	if !ok {
		return 0, 0, invalid(usage)
	}
	chatID, err := ParseOptionalChat(args[1:], currentChat, usage)
	if err != nil {
		return 0, 0, err
	}
	return userID, chatID, nil
}
