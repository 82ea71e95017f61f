package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/models"
)

// ChatMemberChecker implements the membership capability over the Bot API.
type ChatMemberChecker struct {
	api *tgbotapi.BotAPI
}

func NewChatMemberChecker(api *tgbotapi.BotAPI) *ChatMemberChecker {
	return &ChatMemberChecker{api: api}
}

func (c *ChatMemberChecker) IsMember(ctx context.Context, channel models.ChannelRef, userID int64) (bool, error) {
	cfg := tgbotapi.ChatConfigWithUser{UserID: userID}
	switch {
	case channel.ID != 0:
		cfg.ChatID = channel.ID
	case channel.Username != "":
		cfg.SuperGroupUsername = "@" + strings.TrimPrefix(channel.Username, "@")
	default:
		return false, fmt.Errorf("empty channel reference")
	}

	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{ChatConfigWithUser: cfg})
	if err != nil {
		return false, err
	}

	switch strings.ToLower(member.Status) {
	case "creator", "administrator", "member":
		return true, nil
	default:
		return false, nil
	}
}
