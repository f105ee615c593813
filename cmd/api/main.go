package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/api/http/handlers"
	"github.com/spec-kit/ticket-engine/internal/app"
	"github.com/spec-kit/ticket-engine/internal/auth"
	"github.com/spec-kit/ticket-engine/internal/clock"
	"github.com/spec-kit/ticket-engine/internal/config"
	"github.com/spec-kit/ticket-engine/internal/messaging/discord"
	"github.com/spec-kit/ticket-engine/internal/observability"
	"github.com/spec-kit/ticket-engine/internal/persistence"
	"github.com/spec-kit/ticket-engine/internal/repository/memory"
	"github.com/spec-kit/ticket-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var stores app.Stores
	if pg.Enabled() {
		stores = app.NewPostgresStores(pg.PoolHandle())
	} else {
		logger.Warn("using in-memory storage; data is lost on restart")
		stores = memory.NewStore()
	}

	if cfg.Discord.BotToken == "" {
		logger.Fatal("DISCORD_BOT_TOKEN is required")
	}
	session, err := discordgo.New("Bot " + cfg.Discord.BotToken)
	if err != nil {
		logger.Fatal("failed to create discord session", zap.Error(err))
	}
	messenger := discord.NewMessenger(session, cfg.Discord.MemberCacheTTL(), logger.Named("discord"))
	defer messenger.Close()

	metrics := observability.NewMetrics()
	clk := clock.Real()
	services := app.NewServices(app.Dependencies{
		Stores:    stores,
		Messenger: messenger,
		Ticket:    cfg.Ticket,
		Clock:     clk,
		Metrics:   metrics,
		Logger:    logger,
	})

	gateway := discord.NewGateway(session, services.Interactions, services.Messages,
		cfg.App.RequestTimeout(), logger.Named("gateway"))
	gateway.Register(session)
	if err := session.Open(); err != nil {
		logger.Fatal("failed to open discord gateway", zap.Error(err))
	}
	defer session.Close() //nolint:errcheck

	sweeper := worker.NewSweeper(stores.Tickets(), messenger, redis, clk, metrics,
		logger.Named("sweeper"), cfg.Ticket.SweepInterval())
	sweeper.Start(ctx)
	defer sweeper.Stop()

	httpApp := app.NewHTTPApp(services, app.HTTPOptions{
		App:    cfg.App,
		Tokens: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
			"postgres": pg,
			"redis":    redis,
		}),
		Metrics: metrics,
		Logger:  logger,
	})

	go func() {
		if err := httpApp.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = httpApp.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
