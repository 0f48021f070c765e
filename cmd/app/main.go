// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-card-catalog/internal/application"
	"telegram-card-catalog/internal/config"
	tele "telegram-card-catalog/internal/infra/adapters/telegram"
	pg "telegram-card-catalog/internal/infra/db/postgres"
	"telegram-card-catalog/internal/infra/logging"
	red "telegram-card-catalog/internal/infra/redis"
	"telegram-card-catalog/internal/infra/sched"
	"telegram-card-catalog/internal/infra/web"
	"telegram-card-catalog/internal/infra/worker"
	"telegram-card-catalog/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed sampling)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 0)
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	draftRepo := red.NewDraftStateRepo(redisClient, cfg.Redis.DraftTTL)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	cardRepo := pg.NewCardRepo(pool)
	viewRepo := pg.NewViewRepo(pool)
	ratingRepo := pg.NewRatingRepo(pool)
	reviewRepo := pg.NewReviewRepo(pool)
	ownerRepo := pg.NewCardOwnerRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	cooldownRepo := pg.NewCooldownRepo(pool)

	// ---- Telegram client ----
	botClient, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram client failed")
	}
	logger.Info().Str("bot", botClient.Self.UserName).Msg("authorized on telegram")

	resolver := tele.NewForwardingMediaResolver(botClient, cfg.Bot.ModerationChatID)

	// ---- Worker pool ----
	pool2 := worker.NewPool(cfg.Bot.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(userRepo, tm, cfg.Bot.AdminIDs, logger)
	cooldownUC := usecase.NewCooldownUseCase(cooldownRepo, logger)
	catalogUC := usecase.NewCatalogUseCase(cardRepo, viewRepo, tm, logger)
	searchUC := usecase.NewSearchUseCase(cardRepo, logger)
	intakeUC := usecase.NewIntakeUseCase(draftRepo, cardRepo, resolver, logger)
	feedbackUC := usecase.NewFeedbackUseCase(ratingRepo, reviewRepo, ownerRepo, cardRepo, cooldownUC, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, cardRepo, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, cardRepo, ratingRepo, reviewRepo, logger)

	// ---- Facade + bot adapter ----
	facade := application.NewBotFacade(userUC, catalogUC, searchUC, intakeUC, feedbackUC, subUC, statsUC, nil, cooldownUC)
	botAdapter, err := tele.NewRealTelegramBotAdapter(botClient, &cfg.Bot, &cfg.Catalog, facade, rateLimiter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram adapter failed")
	}
	notifUC := usecase.NewNotificationUseCase(subRepo, botAdapter, pool2, cfg.Bot.ModerationChatID, logger)
	facade.NotifUC = notifUC

	if strings.ToLower(cfg.Bot.Mode) != "" && strings.ToLower(cfg.Bot.Mode) != "polling" {
		logger.Warn().Str("mode", cfg.Bot.Mode).Msg("bot mode not implemented, falling back to polling")
	}
	go func() {
		if err := botAdapter.StartPolling(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Expiry worker ----
	expiry := sched.NewExpiryWorker(cfg.Catalog.SweepInterval, catalogUC, logger)
	go func() { _ = expiry.Run(ctx) }()

	// ---- Admin API ----
	auth := web.NewAuthManager(cfg.Web.JWTSecret, !cfg.Runtime.Dev, "", cfg.Web.TokenTTL)
	srv := web.NewServer(statsUC, catalogUC, cfg.Web.APIKey, auth, logger)
	go func() {
		if err := srv.Serve(ctx, fmt.Sprintf(":%d", cfg.Web.Port)); err != nil {
			logger.Error().Err(err).Msg("admin API stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
}
