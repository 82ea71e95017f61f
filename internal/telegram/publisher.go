package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/models"
)

// ChannelPublisher renders giveaway posts into the target channel and
// delivers winner notifications. It is the service layer's only way to
// reach the messaging transport.
type ChannelPublisher struct {
	api *tgbotapi.BotAPI
	log *slog.Logger
}

func NewChannelPublisher(api *tgbotapi.BotAPI, log *slog.Logger) *ChannelPublisher {
	return &ChannelPublisher{api: api, log: log}
}

func (p *ChannelPublisher) PublishGiveaway(ctx context.Context, channel models.ChannelRef, g *models.Giveaway) (int64, int, error) {
	var msg tgbotapi.MessageConfig
	switch {
	case channel.ID != 0:
		msg = tgbotapi.NewMessage(channel.ID, p.postText(g, 0))
	case channel.Username != "":
		msg = tgbotapi.NewMessageToChannel("@"+channel.Username, p.postText(g, 0))
	default:
		return 0, 0, fmt.Errorf("empty target channel")
	}
	msg.ReplyMarkup = p.postKeyboard(g.ID, true)
	msg.ParseMode = tgbotapi.ModeHTML

	sent, err := p.api.Send(msg)
	if err != nil {
		return 0, 0, fmt.Errorf("publish giveaway post: %w", err)
	}
	return sent.Chat.ID, sent.MessageID, nil
}

func (p *ChannelPublisher) UpdateGiveawayPost(ctx context.Context, g *models.Giveaway, participantCount int) error {
	if g.PostedChatID == 0 || g.PostedMessageID == 0 {
		return nil
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		g.PostedChatID, g.PostedMessageID,
		p.postText(g, participantCount),
		p.postKeyboard(g.ID, g.IsActive),
	)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := p.api.Send(edit); err != nil {
		// Telegram rejects edits that change nothing; that is not a failure.
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("edit giveaway post: %w", err)
	}
	return nil
}

func (p *ChannelPublisher) AnnounceWinners(ctx context.Context, g *models.Giveaway, winners []models.Winner) error {
	if g.PostedChatID == 0 || g.PostedMessageID == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(g.Body)
	b.WriteString("\n\n🎉 The draw is complete!\n\nWinners:\n")
	for _, w := range winners {
		b.WriteString(fmt.Sprintf("🎖 %s", displayName(w.FullName, w.Username)))
		b.WriteString("\n")
	}
	b.WriteString("\nRoulette Panda @" + p.api.Self.UserName)

	edit := tgbotapi.NewEditMessageText(g.PostedChatID, g.PostedMessageID, b.String())
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := p.api.Send(edit); err != nil {
		return fmt.Errorf("announce winners: %w", err)
	}
	return nil
}

func (p *ChannelPublisher) NotifyWinner(ctx context.Context, userID int64, g *models.Giveaway) error {
	msg := tgbotapi.NewMessage(userID, fmt.Sprintf("🎉 Congratulations, you won the giveaway!\n\n%s", g.Body))
	if _, err := p.api.Send(msg); err != nil {
		return fmt.Errorf("notify winner: %w", err)
	}
	return nil
}

func (p *ChannelPublisher) postText(g *models.Giveaway, participantCount int) string {
	var b strings.Builder
	b.WriteString(g.Body)
	b.WriteString("\n\n")
	if g.ConditionChannel != "" {
		ref := models.ParseChannelRef(g.ConditionChannel)
		b.WriteString(fmt.Sprintf("⚡ Entry condition: subscribe to %s\n\n", ref.Display()))
	}
	b.WriteString(fmt.Sprintf("Participants: %d\n\n", participantCount))
	b.WriteString("Roulette Panda @" + p.api.Self.UserName)
	return b.String()
}

func (p *ChannelPublisher) postKeyboard(giveawayID int64, active bool) tgbotapi.InlineKeyboardMarkup {
	toggleLabel := "⏸ Stop entries"
	if !active {
		toggleLabel = "▶️ Resume entries"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Join the giveaway", encodeCallback(TagJoin, giveawayID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎲 Draw winners", encodeCallback(TagDraw, giveawayID)),
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel, encodeCallback(TagToggle, giveawayID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔔 Remind me if I win 💌", "https://t.me/"+p.api.Self.UserName),
		),
	)
}

func displayName(fullName, username string) string {
	switch {
	case fullName != "" && username != "":
		return fmt.Sprintf("%s (@%s)", fullName, username)
	case fullName != "":
		return fullName
	case username != "":
		return "@" + username
	default:
		return "anonymous"
	}
}
