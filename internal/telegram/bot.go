package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/config"
	"github.com/OmarMosad/Roulette-Panda-Bot/internal/models"
	"github.com/OmarMosad/Roulette-Panda-Bot/internal/service"
	"github.com/OmarMosad/Roulette-Panda-Bot/internal/session"
)

const starsCurrency = "XTR"

type Bot struct {
	cfg       config.Config
	api       *tgbotapi.BotAPI
	log       *slog.Logger
	ledger    *service.LedgerService
	giveaways *service.GiveawayService
	gate      *service.MembershipGate
	sessions  *session.Manager
	broadcast models.ChannelRef
}

func NewBot(cfg config.Config, api *tgbotapi.BotAPI, log *slog.Logger, ledger *service.LedgerService, giveaways *service.GiveawayService, gate *service.MembershipGate, sessions *session.Manager) *Bot {
	return &Bot{
		cfg:       cfg,
		api:       api,
		log:       log,
		ledger:    ledger,
		giveaways: giveaways,
		gate:      gate,
		sessions:  sessions,
		broadcast: models.ParseChannelRef(cfg.BroadcastChannel),
	}
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram bot started", "username", b.api.Self.UserName)

	for {
		select {
		case update := <-updates:
			go b.dispatch(ctx, update)
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

// dispatch processes one update. A panic anywhere in a handler is logged
// and answered with a generic apology; the session is left untouched so the
// user can simply retry.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update handler panicked", "panic", r)
			if update.CallbackQuery != nil {
				b.answer(update.CallbackQuery, "Something went wrong. Please try again!", true)
			} else if update.Message != nil {
				b.sendText(update.Message.Chat.ID, "Something went wrong. Please try again!")
			}
		}
	}()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.PreCheckoutQuery != nil:
		b.handlePreCheckout(update.PreCheckoutQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.SuccessfulPayment != nil {
		b.handleSuccessfulPayment(ctx, msg)
		return
	}
	if msg.IsCommand() {
		if msg.Command() == "start" {
			b.handleStart(ctx, msg)
		} else {
			b.sendText(msg.Chat.ID, "Unknown command. Use /start.")
		}
		return
	}
	b.handleText(ctx, msg)
}

// handleStart is the session entry gate: admins land in the admin menu,
// everyone else must be a member of the operator's broadcast channel.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	sess := b.sessions.Get(userID)

	if b.ledger.IsAdmin(userID) {
		sess.State = session.StateAdminMenu
		b.sessions.Put(userID, sess)
		b.sendAdminMenu(msg.Chat.ID)
		return
	}

	if !b.gate.CheckEligibility(ctx, b.broadcast, userID).Eligible() {
		sess.State = session.StateStart
		b.sessions.Put(userID, sess)
		b.sendSubscribePrompt(msg.Chat.ID)
		return
	}

	sess.State = session.StateMainMenu
	b.sessions.Put(userID, sess)
	b.sendMainMenu(ctx, msg.Chat.ID, userID)
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	sess := b.sessions.Get(userID)

	t, ok := session.Resolve(sess.State, session.EventText)
	if !ok {
		b.sendText(msg.Chat.ID, "Use /start to open the menu.")
		return
	}

	next := t.Next
	switch t.Action {
	case session.ActionCaptureGiveawayText:
		body := strings.TrimSpace(msg.Text)
		if body == "" {
			b.sendText(msg.Chat.ID, "The giveaway text cannot be empty. Send it again.")
			return
		}
		sess.Draft.Body = body
		b.sendConditionDecision(msg.Chat.ID)

	case session.ActionCaptureChannelInput:
		next = b.captureChannelInput(ctx, msg, sess)

	case session.ActionApplyPointsInput:
		next = b.applyPointsInput(ctx, msg)

	default:
		b.sendText(msg.Chat.ID, "Use /start to open the menu.")
		return
	}

	sess.State = next
	b.sessions.Put(userID, sess)
}

// captureChannelInput resolves a channel reference the user typed or
// forwarded, verifies the bot can manage it, and routes the result by the
// draft's link purpose. Bad input re-prompts without moving the session.
func (b *Bot) captureChannelInput(ctx context.Context, msg *tgbotapi.Message, sess *session.Session) session.State {
	ref, err := b.resolveChannel(msg)
	if err != nil {
		b.log.Warn("channel input rejected", "user", msg.From.ID, "err", err)
		b.sendText(msg.Chat.ID,
			"❌ Could not use that channel. Make sure:\n"+
				"1. The channel is public or you forwarded a message from it\n"+
				"2. The bot is an administrator there\n"+
				"3. The username is correct (like @ChannelName)")
		return session.StateAwaitingLinkedChannel
	}

	if sess.Draft.LinkPurpose == session.LinkCondition {
		sess.Draft.ConditionChannel = ref.Encode()
		b.sendWinnerCountPrompt(msg.Chat.ID)
		return session.StateAwaitingWinnerCount
	}

	if err := b.ledger.LinkChannel(ctx, msg.From.ID, ref); err != nil {
		b.log.Error("link channel", "user", msg.From.ID, "err", err)
		b.sendText(msg.Chat.ID, "Could not link the channel, please try again later.")
		return session.StateAwaitingLinkedChannel
	}
	b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Channel %s linked successfully!", ref.Display()))
	b.sendMainMenu(ctx, msg.Chat.ID, msg.From.ID)
	return session.StateMainMenu
}

func (b *Bot) resolveChannel(msg *tgbotapi.Message) (models.ChannelRef, error) {
	var chatCfg tgbotapi.ChatConfig
	if msg.ForwardFromChat != nil {
		chatCfg.ChatID = msg.ForwardFromChat.ID
	} else {
		ref := models.ParseChannelRef(msg.Text)
		switch {
		case ref.ID != 0:
			chatCfg.ChatID = ref.ID
		case ref.Username != "":
			chatCfg.SuperGroupUsername = "@" + ref.Username
		default:
			return models.ChannelRef{}, fmt.Errorf("empty channel input")
		}
	}

	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: chatCfg})
	if err != nil {
		return models.ChannelRef{}, fmt.Errorf("resolve channel: %w", err)
	}

	admins, err := b.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chat.ID},
	})
	if err != nil {
		return models.ChannelRef{}, fmt.Errorf("list channel admins: %w", err)
	}
	isAdmin := false
	for _, a := range admins {
		if a.User != nil && a.User.ID == b.api.Self.ID {
			isAdmin = true
			break
		}
	}
	if !isAdmin {
		return models.ChannelRef{}, fmt.Errorf("bot is not an admin in channel %d", chat.ID)
	}

	return models.ChannelRef{ID: chat.ID, Username: chat.UserName}, nil
}

// applyPointsInput parses the admin's "user_id:points" line. Malformed
// input re-prompts and keeps the admin menu position.
func (b *Bot) applyPointsInput(ctx context.Context, msg *tgbotapi.Message) session.State {
	adminID := msg.From.ID
	target, delta, err := parsePointsInput(msg.Text)
	if err != nil {
		b.sendText(msg.Chat.ID, "Invalid format. Please use: user_id:points\n\nExample:\n123456789:100")
		return session.StateAdminMenu
	}

	err = b.ledger.AdjustPoints(ctx, adminID, target, delta, "manual adjustment by admin")
	switch {
	case errors.Is(err, service.ErrForbidden):
		b.sendText(msg.Chat.ID, "You are not allowed to do that.")
	case errors.Is(err, service.ErrInsufficientFunds):
		b.sendText(msg.Chat.ID, "That would take the user's points below zero. Nothing was changed.")
	case err != nil:
		b.log.Error("adjust points", "admin", adminID, "err", err)
		b.sendText(msg.Chat.ID, "Something went wrong. Please try again.")
	default:
		b.sendText(msg.Chat.ID, fmt.Sprintf("Applied %+d points to user %d.", delta, target))
	}
	b.sendAdminMenu(msg.Chat.ID)
	return session.StateAdminMenu
}

func parsePointsInput(text string) (userID int64, delta int, err error) {
	left, right, found := strings.Cut(strings.TrimSpace(text), ":")
	if !found {
		return 0, 0, fmt.Errorf("missing separator")
	}
	userID, err = strconv.ParseInt(strings.TrimSpace(left), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("user id: %w", err)
	}
	delta, err = strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return 0, 0, fmt.Errorf("points: %w", err)
	}
	return userID, delta, nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	parsed, err := parseCallback(cb.Data)
	if err != nil {
		b.log.Warn("bad callback data", "data", cb.Data, "err", err)
		b.answer(cb, "Unknown action.", false)
		return
	}

	// Giveaway-post buttons live in channels and work for any user in any
	// session state.
	switch parsed.Tag {
	case TagJoin:
		b.handleJoin(ctx, cb, parsed.Arg)
		return
	case TagDraw:
		b.handleDraw(ctx, cb, parsed.Arg)
		return
	case TagToggle:
		b.handleToggle(ctx, cb, parsed.Arg)
		return
	case TagParticipants:
		b.handleParticipants(ctx, cb, parsed.Arg)
		return
	}

	event, ok := callbackEvent(parsed.Tag)
	if !ok {
		b.answer(cb, "Unknown action.", false)
		return
	}

	userID := cb.From.ID
	sess := b.sessions.Get(userID)
	t, ok := session.Resolve(sess.State, event)
	if !ok {
		b.answer(cb, "That option is not available right now. Use /start.", false)
		return
	}

	next := b.runMenuAction(ctx, cb, t, parsed, sess)
	sess.State = next
	b.sessions.Put(userID, sess)
}

func callbackEvent(tag CallbackTag) (session.EventKind, bool) {
	switch tag {
	case TagSubscribed:
		return session.EventSubscribed, true
	case TagCreateGiveaway:
		return session.EventCreateGiveaway, true
	case TagLinkChannel:
		return session.EventLinkChannel, true
	case TagUnlinkChannel:
		return session.EventUnlinkChannel, true
	case TagAddCondition:
		return session.EventAddCondition, true
	case TagSkipCondition:
		return session.EventSkipCondition, true
	case TagWinners:
		return session.EventWinnerCount, true
	case TagPayPremium:
		return session.EventPayPremium, true
	case TagPayStars:
		return session.EventPayStars, true
	case TagPayPoints:
		return session.EventPayPoints, true
	case TagDonateMenu:
		return session.EventDonateMenu, true
	case TagDonate:
		return session.EventDonate, true
	case TagBalance:
		return session.EventBalance, true
	case TagSupport:
		return session.EventSupport, true
	case TagBackToMain:
		return session.EventBackToMain, true
	case TagAdminMenu:
		return session.EventAdminMenu, true
	case TagAddPoints:
		return session.EventAdminAddPoints, true
	default:
		return 0, false
	}
}

// runMenuAction executes the resolved transition and returns the state the
// session actually ends up in. Guard failures stay where they are.
func (b *Bot) runMenuAction(ctx context.Context, cb *tgbotapi.CallbackQuery, t session.Transition, parsed Callback, sess *session.Session) session.State {
	userID := cb.From.ID

	switch t.Action {
	case session.ActionRecheckSubscription:
		if b.ledger.IsAdmin(userID) {
			b.answer(cb, "Welcome back, admin!", true)
			b.editAdminMenu(cb)
			return session.StateAdminMenu
		}
		if !b.gate.CheckEligibility(ctx, b.broadcast, userID).Eligible() {
			b.answer(cb, "Subscription not found. Please subscribe first!", true)
			return session.StateStart
		}
		b.answer(cb, "Subscription confirmed!", true)
		b.editMainMenu(ctx, cb)
		return session.StateMainMenu

	case session.ActionShowMainMenu:
		b.answer(cb, "", false)
		b.editMainMenu(ctx, cb)
		return t.Next

	case session.ActionShowAdminMenu:
		if !b.ledger.IsAdmin(userID) {
			b.answer(cb, "You are not allowed to do that.", true)
			return sess.State
		}
		b.answer(cb, "", false)
		b.editAdminMenu(cb)
		return t.Next

	case session.ActionPromptGiveawayText:
		account, err := b.ledger.GetAccount(ctx, userID)
		if err != nil {
			b.log.Error("get account", "user", userID, "err", err)
			b.answer(cb, "Something went wrong. Please try again!", true)
			return sess.State
		}
		if account.LinkedChannel == "" {
			b.answer(cb, "", false)
			b.editText(cb, "⚠️ Link a channel before creating a giveaway.",
				tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("Link a channel", string(TagLinkChannel)),
				)))
			return session.StateMainMenu
		}
		b.answer(cb, "", false)
		b.editText(cb,
			"Send the giveaway text.\n\n"+
				"HTML formatting is supported:\n"+
				"<tg-spoiler>spoiler</tg-spoiler>, <b>bold</b>, <i>italic</i>, <blockquote>quote</blockquote>\n\n"+
				"Please do not include links.",
			backKeyboard())
		return t.Next

	case session.ActionStartConditionUnlock:
		return b.startConditionUnlock(ctx, cb, sess, t.Next)

	case session.ActionPromptWinnerCount:
		sess.Draft.ConditionChannel = ""
		b.answer(cb, "", false)
		b.editText(cb, "Now choose the number of winners:", winnerCountKeyboard())
		return t.Next

	case session.ActionFinalizeGiveaway:
		return b.finalizeGiveaway(ctx, cb, sess, int(parsed.Arg))

	case session.ActionPromptLinkChannel:
		sess.Draft.LinkPurpose = session.LinkPrimary
		b.answer(cb, "", false)
		b.editText(cb,
			"Send your channel's username or link, or forward a message from it.\n\n"+
				"⚠️ The bot must be an administrator in the channel.",
			backKeyboard())
		return t.Next

	case session.ActionCaptureChannelInput:
		// Channel input arrives as text, not as a button press.
		return sess.State

	case session.ActionUnlinkChannel:
		account, err := b.ledger.GetAccount(ctx, userID)
		if err == nil && account.LinkedChannel == "" {
			b.answer(cb, "No channel is linked!", true)
			return t.Next
		}
		if err := b.ledger.UnlinkChannel(ctx, userID); err != nil {
			b.log.Error("unlink channel", "user", userID, "err", err)
			b.answer(cb, "Something went wrong. Please try again!", true)
			return t.Next
		}
		b.answer(cb, "Channel unlinked.", true)
		b.editMainMenu(ctx, cb)
		return t.Next

	case session.ActionShowDonateMenu:
		account, err := b.ledger.GetAccount(ctx, userID)
		stars := 0
		if err == nil {
			stars = account.Stars
		}
		b.answer(cb, "", false)
		b.editText(cb,
			fmt.Sprintf("♻ Support the project\n\nYour donation keeps the bot running.\n\n⭐ Current balance: %d stars", stars),
			tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Donate %d stars", b.cfg.Pricing.DonationUnit), string(TagDonate)),
				),
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("Back", string(TagBackToMain)),
				),
			))
		return t.Next

	case session.ActionSendDonationInvoice:
		if err := b.sendDonationInvoice(cb.From.ID); err != nil {
			b.log.Error("send invoice", "user", userID, "err", err)
			b.answer(cb, "Could not prepare the payment. Please try again later.", true)
			return sess.State
		}
		b.answer(cb, "", false)
		return sess.State

	case session.ActionShowBalance:
		account, err := b.ledger.GetAccount(ctx, userID)
		if err != nil {
			b.log.Error("get account", "user", userID, "err", err)
			b.answer(cb, "Something went wrong. Please try again!", true)
			return sess.State
		}
		b.answer(cb, "", false)
		b.editText(cb,
			fmt.Sprintf("Your balance:\n\n⭐ Stars: %d\n📌 Points: %d", account.Stars, account.Points),
			backKeyboard())
		return t.Next

	case session.ActionShowSupport:
		b.answer(cb, "", false)
		b.editText(cb,
			fmt.Sprintf("For questions or technical problems contact support:\n\n@%s", b.cfg.SupportUsername),
			tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonURL("Contact support", "https://t.me/"+b.cfg.SupportUsername),
				),
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("Back", string(TagBackToMain)),
				),
			))
		return t.Next

	case session.ActionChargePremiumStars:
		return b.chargeForCondition(ctx, cb, sess, models.FeaturePremiumMonth, models.CurrencyStars, t.Next)

	case session.ActionChargeConditionStars:
		return b.chargeForCondition(ctx, cb, sess, models.FeatureConditionChannel, models.CurrencyStars, t.Next)

	case session.ActionChargeConditionPoints:
		return b.chargeForCondition(ctx, cb, sess, models.FeatureConditionChannel, models.CurrencyPoints, t.Next)

	case session.ActionPromptPointsInput:
		b.answer(cb, "", false)
		b.editText(cb,
			"Send the user id and the points to add in this format:\n\n"+
				"user_id:points\n\nExample:\n123456789:100",
			tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Back", string(TagAdminMenu)),
			)))
		return t.Next

	default:
		b.answer(cb, "Unknown action.", false)
		return sess.State
	}
}

// startConditionUnlock gates the condition-channel feature: premium users
// and admins go straight to the channel input, everyone else picks a
// payment method first.
func (b *Bot) startConditionUnlock(ctx context.Context, cb *tgbotapi.CallbackQuery, sess *session.Session, paymentState session.State) session.State {
	userID := cb.From.ID
	account, err := b.ledger.GetAccount(ctx, userID)
	if err != nil {
		b.log.Error("get account", "user", userID, "err", err)
		b.answer(cb, "Something went wrong. Please try again!", true)
		return sess.State
	}

	sess.Draft.LinkPurpose = session.LinkCondition
	if account.IsPremium || b.ledger.IsAdmin(userID) {
		b.answer(cb, "", false)
		b.editText(cb,
			"❗️Next step: send the condition channel's username (like @ChannelName) or forward a message from it.\n\n"+
				"⚠️ The bot must be an admin in the channel.",
			backKeyboard())
		return session.StateAwaitingLinkedChannel
	}

	b.answer(cb, "", false)
	b.editText(cb,
		fmt.Sprintf("♻ Condition channel\n\nRequire subscribers of another channel before anyone can join your giveaway.\n\n"+
			"🔰 Available with premium or a one-time unlock\n"+
			"💳 You have %d stars and %d points\n"+
			"Choose a payment method:", account.Stars, account.Points),
		tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Premium month (%d ⭐)", b.cfg.Pricing.PremiumMonth), string(TagPayPremium)),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("One-time unlock (%d ⭐)", b.cfg.Pricing.UnlockConditionChannel), string(TagPayStars)),
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Pay with points (%d 📌)", b.cfg.Pricing.UnlockConditionChannel), string(TagPayPoints)),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Back", string(TagBackToMain)),
			),
		))
	return paymentState
}

func (b *Bot) chargeForCondition(ctx context.Context, cb *tgbotapi.CallbackQuery, sess *session.Session, kind models.FeatureKind, currency models.Currency, next session.State) session.State {
	userID := cb.From.ID
	err := b.ledger.Charge(ctx, userID, kind, currency)
	switch {
	case errors.Is(err, service.ErrInsufficientFunds):
		label := "stars"
		if currency == models.CurrencyPoints {
			label = "points"
		}
		b.answer(cb, fmt.Sprintf("Not enough %s! Top up via the donate menu.", label), true)
		return session.StateAwaitingPayment
	case err != nil:
		b.log.Error("charge", "user", userID, "kind", kind, "err", err)
		b.answer(cb, "Something went wrong. Please try again!", true)
		return session.StateAwaitingPayment
	}

	b.answer(cb, "Payment successful!", true)
	sess.Draft.LinkPurpose = session.LinkCondition
	b.editText(cb,
		"❗️Next step: send the condition channel's username (like @ChannelName) or forward a message from it.\n\n"+
			"⚠️ The bot must be an admin in the channel.",
		backKeyboard())
	return next
}

// finalizeGiveaway commits the session draft into a persisted, published
// giveaway. This is the only transition that turns draft fields into state.
func (b *Bot) finalizeGiveaway(ctx context.Context, cb *tgbotapi.CallbackQuery, sess *session.Session, winnerCount int) session.State {
	userID := cb.From.ID
	if winnerCount < 1 || winnerCount > 10 {
		b.answer(cb, "Pick a winner count between 1 and 10.", true)
		return session.StateAwaitingWinnerCount
	}
	if strings.TrimSpace(sess.Draft.Body) == "" {
		b.answer(cb, "Your draft expired. Start again with /start.", true)
		return session.StateMainMenu
	}

	g, err := b.giveaways.Create(ctx, userID, sess.Draft.Body, sess.Draft.ConditionChannel, winnerCount)
	switch {
	case errors.Is(err, service.ErrNoLinkedChannel):
		b.answer(cb, "❌ No channel is linked!", true)
		return session.StateMainMenu
	case errors.Is(err, service.ErrPublishFailed):
		b.answer(cb, "❌ Failed to publish in your channel. Make sure the bot is an admin there.", true)
		return session.StateMainMenu
	case err != nil:
		b.log.Error("create giveaway", "user", userID, "err", err)
		b.answer(cb, "Something went wrong. Please try again!", true)
		return session.StateMainMenu
	}

	sess.Draft = session.Draft{}
	b.answer(cb, "Giveaway created!", true)
	b.editText(cb, "✅ Giveaway created!\n\nManage it from here:", manageKeyboard(g.ID))
	return session.StateMainMenu
}

func (b *Bot) handleJoin(ctx context.Context, cb *tgbotapi.CallbackQuery, giveawayID int64) {
	req := service.JoinRequest{
		GiveawayID: giveawayID,
		UserID:     cb.From.ID,
		Username:   cb.From.UserName,
		FullName:   strings.TrimSpace(cb.From.FirstName + " " + cb.From.LastName),
	}
	err := b.giveaways.Join(ctx, req)
	switch {
	case err == nil:
		b.answer(cb, "You're in! 🎉", true)
	case errors.Is(err, service.ErrAlreadyJoined):
		b.answer(cb, "You have already joined this giveaway!", true)
	case errors.Is(err, service.ErrNotEligible):
		b.answer(cb, "Subscribe to the required channel first!", true)
	case errors.Is(err, service.ErrNotFound):
		b.answer(cb, "This giveaway is no longer available!", true)
	default:
		b.log.Error("join giveaway", "giveaway", giveawayID, "user", cb.From.ID, "err", err)
		b.answer(cb, "Something went wrong while checking your entry. Please try again!", true)
	}
}

func (b *Bot) handleDraw(ctx context.Context, cb *tgbotapi.CallbackQuery, giveawayID int64) {
	_, err := b.giveaways.Draw(ctx, giveawayID, cb.From.ID)
	switch {
	case err == nil:
		b.answer(cb, "Winners drawn successfully!", true)
	case errors.Is(err, service.ErrStillCollecting):
		b.answer(cb, "Stop entries before drawing!", true)
	case errors.Is(err, service.ErrNotEnoughParticipants):
		b.answer(cb, "Not enough participants for the requested winner count!", true)
	case errors.Is(err, service.ErrAlreadyDrawn):
		b.answer(cb, "This giveaway is already finished!", true)
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotFound):
		b.answer(cb, "This giveaway is unavailable or you don't manage it!", true)
	default:
		b.log.Error("draw giveaway", "giveaway", giveawayID, "err", err)
		b.answer(cb, "Something went wrong. Please try again!", true)
	}
}

func (b *Bot) handleToggle(ctx context.Context, cb *tgbotapi.CallbackQuery, giveawayID int64) {
	g, err := b.giveaways.ToggleActive(ctx, giveawayID, cb.From.ID)
	switch {
	case err == nil:
		if g.IsActive {
			b.answer(cb, "Entries resumed.", true)
		} else {
			b.answer(cb, "Entries stopped.", true)
		}
	case errors.Is(err, service.ErrAlreadyDrawn):
		b.answer(cb, "This giveaway is already finished!", true)
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotFound):
		b.answer(cb, "This giveaway is unavailable or you don't manage it!", true)
	default:
		b.log.Error("toggle giveaway", "giveaway", giveawayID, "err", err)
		b.answer(cb, "Something went wrong. Please try again!", true)
	}
}

func (b *Bot) handleParticipants(ctx context.Context, cb *tgbotapi.CallbackQuery, giveawayID int64) {
	participants, err := b.giveaways.Participants(ctx, giveawayID, cb.From.ID)
	switch {
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotFound):
		b.answer(cb, "This giveaway is unavailable or you don't manage it!", true)
		return
	case err != nil:
		b.log.Error("list participants", "giveaway", giveawayID, "err", err)
		b.answer(cb, "Something went wrong. Please try again!", true)
		return
	}
	if len(participants) == 0 {
		b.answer(cb, "No participants yet!", true)
		return
	}

	b.answer(cb, "", false)
	var sb strings.Builder
	sb.WriteString("Giveaway participants:\n\n")
	for i, p := range participants {
		sb.WriteString(fmt.Sprintf("%d. %s (%d)\n", i+1, displayName(p.FullName, p.Username), p.UserID))
	}
	b.sendText(cb.From.ID, sb.String())
}

type invoicePayload struct {
	Ref    string `json:"ref"`
	Kind   string `json:"kind"`
	UserID int64  `json:"user_id"`
}

// parseDonationPayload decodes the payload a confirmation carries back and
// rejects anything that is not a donation invoice, so a future paid feature
// can never be credited as a donation by accident.
func parseDonationPayload(raw string) (invoicePayload, error) {
	var p invoicePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return invoicePayload{}, fmt.Errorf("decode invoice payload: %w", err)
	}
	if p.Kind != string(models.FeatureDonation) {
		return invoicePayload{}, fmt.Errorf("unexpected invoice kind %q", p.Kind)
	}
	return p, nil
}

func (b *Bot) sendDonationInvoice(chatID int64) error {
	payload, _ := json.Marshal(invoicePayload{
		Ref:    uuid.NewString(),
		Kind:   string(models.FeatureDonation),
		UserID: chatID,
	})
	prices := []tgbotapi.LabeledPrice{{
		Label:  "Donation",
		Amount: b.cfg.Pricing.DonationUnit,
	}}
	// Telegram Stars invoices carry no provider token.
	invoice := tgbotapi.NewInvoice(chatID,
		"Support the developer",
		fmt.Sprintf("Donate %d Telegram Stars to keep the bot running", b.cfg.Pricing.DonationUnit),
		string(payload),
		"",
		"donate",
		starsCurrency,
		prices,
	)
	if _, err := b.api.Send(invoice); err != nil {
		return fmt.Errorf("send invoice: %w", err)
	}
	return nil
}

func (b *Bot) handlePreCheckout(query *tgbotapi.PreCheckoutQuery) {
	response := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: query.ID,
		OK:                 true,
	}
	if _, err := b.api.Request(response); err != nil {
		b.log.Error("answer pre-checkout", "err", err)
	}
}

// handleSuccessfulPayment records a confirmed Stars payment. The provider
// charge id is the dedup key, so a redelivered confirmation cannot credit
// twice.
func (b *Bot) handleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) {
	sp := msg.SuccessfulPayment
	userID := msg.From.ID

	if _, err := parseDonationPayload(sp.InvoicePayload); err != nil {
		b.log.Error("rejected payment confirmation", "user", userID, "charge_ref", sp.TelegramPaymentChargeID, "err", err)
		b.sendText(msg.Chat.ID, "Your payment arrived but we could not record it. Support has been notified.")
		return
	}

	if err := b.ledger.RecordExternalPayment(ctx, userID, sp.TotalAmount, sp.TelegramPaymentChargeID); err != nil {
		b.log.Error("record external payment", "user", userID, "err", err)
		b.sendText(msg.Chat.ID, "Your payment arrived but we could not record it. Support has been notified.")
		return
	}

	b.sendText(msg.Chat.ID, "✅ Payment received, thank you for your support!")
	b.notifyAdminsOfDonation(msg.From, sp.TotalAmount)
}

func (b *Bot) notifyAdminsOfDonation(from *tgbotapi.User, amount int) {
	details := fmt.Sprintf(
		"🎉 New donation!\n\n👤 Name: %s\n📌 Username: @%s\n🆔 ID: %d\n💰 Amount: %d stars",
		strings.TrimSpace(from.FirstName+" "+from.LastName), from.UserName, from.ID, amount,
	)
	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL("Chat with the donor", fmt.Sprintf("tg://user?id=%d", from.ID)),
	))
	for _, adminID := range b.cfg.AdminIDs {
		msg := tgbotapi.NewMessage(adminID, details)
		msg.ReplyMarkup = markup
		if _, err := b.api.Send(msg); err != nil {
			b.log.Error("notify admin", "admin", adminID, "err", err)
		}
	}
}

func (b *Bot) sendMainMenu(ctx context.Context, chatID, userID int64) {
	text, markup := b.mainMenu(ctx, userID)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send main menu", "err", err)
	}
}

func (b *Bot) editMainMenu(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	text, markup := b.mainMenu(ctx, cb.From.ID)
	b.editText(cb, text, markup)
}

func (b *Bot) mainMenu(ctx context.Context, userID int64) (string, tgbotapi.InlineKeyboardMarkup) {
	points := 0
	if account, err := b.ledger.GetAccount(ctx, userID); err == nil {
		points = account.Points
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Create a giveaway", string(TagCreateGiveaway)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Link channel", string(TagLinkChannel)),
			tgbotapi.NewInlineKeyboardButtonData("Unlink channel", string(TagUnlinkChannel)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔔 Remind me if I win 💌", "https://t.me/"+b.api.Self.UserName),
			tgbotapi.NewInlineKeyboardButtonData("Support the project 💖", string(TagDonateMenu)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛠 Support", string(TagSupport)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Your balance: %d points", points), string(TagBalance)),
		),
	)
	return "Welcome to Roulette Panda! Choose an option:", markup
}

func (b *Bot) sendAdminMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Welcome to the admin panel:")
	msg.ReplyMarkup = adminMenuKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send admin menu", "err", err)
	}
}

func (b *Bot) editAdminMenu(cb *tgbotapi.CallbackQuery) {
	b.editText(cb, "Welcome to the admin panel:", adminMenuKeyboard())
}

func adminMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Add points to a user", string(TagAddPoints)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Main menu", string(TagBackToMain)),
		),
	)
}

func (b *Bot) sendSubscribePrompt(chatID int64) {
	msg := tgbotapi.NewMessage(chatID,
		"Welcome to Roulette Panda!\nPlease subscribe to our channel first to continue:")
	msg.ReplyMarkup = subscribeKeyboard(b.broadcast)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send subscribe prompt", "err", err)
	}
}

// subscribeKeyboard links the channel only when it has a public username; a
// numeric-only broadcast ref would otherwise produce a dead t.me URL.
func subscribeKeyboard(ref models.ChannelRef) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if ref.Username != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Our channel", "https://t.me/"+ref.Username),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("I have subscribed", string(TagSubscribed)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) sendConditionDecision(chatID int64) {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Add a condition channel", string(TagAddCondition)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Skip", string(TagSkipCondition)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Back", string(TagBackToMain)),
		),
	)
	msg := tgbotapi.NewMessage(chatID,
		"Do you want to add a condition channel?\n"+
			"With a condition channel, nobody can join the giveaway before subscribing to it.")
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send condition decision", "err", err)
	}
}

func (b *Bot) sendWinnerCountPrompt(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Now choose the number of winners:")
	msg.ReplyMarkup = winnerCountKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send winner count prompt", "err", err)
	}
}

func winnerCountKeyboard() tgbotapi.InlineKeyboardMarkup {
	row := func(ns ...int64) []tgbotapi.InlineKeyboardButton {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(ns))
		for _, n := range ns {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(strconv.FormatInt(n, 10), encodeCallback(TagWinners, n)))
		}
		return buttons
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		row(1, 2, 3),
		row(4, 5, 6),
		row(7, 8, 9),
		row(10),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Back", string(TagBackToMain)),
		),
	)
}

func manageKeyboard(giveawayID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎲 Draw winners", encodeCallback(TagDraw, giveawayID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⛔ Stop/resume entries", encodeCallback(TagToggle, giveawayID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 View participants", encodeCallback(TagParticipants, giveawayID)),
		),
	)
}

func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Back", string(TagBackToMain)),
	))
}

func (b *Bot) editText(cb *tgbotapi.CallbackQuery, text string, markup tgbotapi.InlineKeyboardMarkup) {
	if cb.Message == nil {
		b.sendTextWithMarkup(cb.From.ID, text, markup)
		return
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(cb.Message.Chat.ID, cb.Message.MessageID, text, markup)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		b.log.Error("edit message", "err", err)
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send text", "err", err)
	}
}

func (b *Bot) sendTextWithMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send text", "err", err)
	}
}

// answer acks a callback query; with text it pops a toast or alert. A
// failed ack falls back to a plain message so the user is never left
// without feedback.
func (b *Bot) answer(cb *tgbotapi.CallbackQuery, text string, alert bool) {
	var callback tgbotapi.CallbackConfig
	if alert {
		callback = tgbotapi.NewCallbackWithAlert(cb.ID, text)
	} else {
		callback = tgbotapi.NewCallback(cb.ID, text)
	}
	if _, err := b.api.Request(callback); err != nil {
		b.log.Error("answer callback", "err", err)
		if text != "" {
			b.sendText(cb.From.ID, text)
		}
	}
}
