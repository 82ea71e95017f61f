package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/admin"
	"github.com/OmarMosad/Roulette-Panda-Bot/internal/config"
	"github.com/OmarMosad/Roulette-Panda-Bot/internal/database"
	"github.com/OmarMosad/Roulette-Panda-Bot/internal/repository"
	"github.com/OmarMosad/Roulette-Panda-Bot/internal/service"
	"github.com/OmarMosad/Roulette-Panda-Bot/internal/session"
	"github.com/OmarMosad/Roulette-Panda-Bot/internal/telegram"
	"github.com/OmarMosad/Roulette-Panda-Bot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	giveawayRepo := repository.NewGiveawayRepository(db)

	gate := service.NewMembershipGate(telegram.NewChatMemberChecker(botAPI), logr)
	ledgerService := service.NewLedgerService(userRepo, ledgerRepo, cfg.Pricing, cfg.AdminIDs, logr)
	publisher := telegram.NewChannelPublisher(botAPI, logr)
	giveawayService := service.NewGiveawayService(giveawayRepo, ledgerService, gate, publisher, logr)

	sessions := session.NewManager(cfg.SessionTTL)
	bot := telegram.NewBot(cfg, botAPI, logr, ledgerService, giveawayService, gate, sessions)

	adminServer := admin.NewServer(cfg.AdminListenAddr, cfg.AdminUsername, cfg.AdminPassword, logr, ledgerService, userRepo, ledgerRepo, giveawayRepo, botAPI)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return adminServer.Run(ctx) })
	g.Go(func() error { return bot.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("shutdown with error", "err", err)
	}
}
