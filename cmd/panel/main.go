package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentinel-panel/internal/activity"
	"sentinel-panel/internal/api"
	"sentinel-panel/internal/auth"
	"sentinel-panel/internal/bot"
	"sentinel-panel/internal/command"
	"sentinel-panel/internal/commands"
	"sentinel-panel/internal/config"
	"sentinel-panel/internal/dispatch"
	"sentinel-panel/internal/session"
	"sentinel-panel/internal/stats"
	"sentinel-panel/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Options{URL: cfg.Database.URL, Path: cfg.Database.Path})
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	activityLog := activity.NewLogger(store, logger)
	palette := command.Palette{
		Success: cfg.Colors.Success,
		Error:   cfg.Colors.Error,
		Warning: cfg.Colors.Warning,
		Info:    cfg.Colors.Info,
		Default: cfg.Colors.Default,
	}

	botSvc, err := bot.New(cfg, logger, activityLog)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	registry := command.NewRegistry()
	if err := commands.Register(registry, commands.Deps{
		Palette:   palette,
		Moderator: botSvc,
		Activity:  activityLog,
		Latency:   botSvc.Latency,
		OwnerIDs:  cfg.OwnerIDs,
		Logger:    logger,
	}); err != nil {
		logger.Fatal("command registration failed", zap.Error(err))
	}
	registry.Seal()
	logger.Info("commands loaded", zap.Int("count", registry.Len()))

	cooldowns := dispatch.NewCooldownTable()
	router := dispatch.NewRouter(dispatch.Config{
		Prefix:          cfg.Prefix,
		Palette:         palette,
		DefaultCooldown: cfg.DefaultCooldown(),
	}, registry, botSvc.Platform(), cooldowns, activityLog, logger)

	if err := botSvc.Start(router, registry); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	sessions := session.NewStore(cfg.Session.StateTTL())
	provider := auth.NewDiscordProvider(auth.DiscordConfig{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURL,
		Scopes:       cfg.OAuth.Scopes,
		AuthURL:      cfg.OAuth.AuthURL,
		TokenURL:     cfg.OAuth.TokenURL,
		APIBaseURL:   cfg.OAuth.APIBaseURL,
	}, nil)

	engine := api.NewRouter(api.Config{
		BasePath:          cfg.API.BasePath,
		DashboardURL:      cfg.API.DashboardURL,
		AllowedOrigins:    append([]string{cfg.API.DashboardURL}, cfg.API.AllowedOrigins...),
		RequestsPerMinute: cfg.API.RequestsPerMinute,
		CookieName:        cfg.Session.CookieName,
		CookieMaxAge:      cfg.Session.MaxAge(),
		SecureCookie:      cfg.Production() || cfg.Session.SecureCookieForced,
	}, api.Deps{
		Auth:     auth.NewService(sessions, provider, logger),
		Gate:     auth.NewGate(sessions),
		Stats:    stats.New(botSvc, registry),
		Registry: registry,
		Activity: activityLog,
		Logger:   logger,
	})
	server := api.NewHTTPServer(engine)

	activityLog.Record(ctx, activity.TypeSystem, "Panel started", "", "")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", zap.String("addr", cfg.API.Addr), zap.String("base_path", cfg.API.BasePath))
		return server.Run(gctx, cfg.API.Addr)
	})
	g.Go(func() error {
		return session.NewSweeper(sessions, cfg.Session.SweepInterval(), logger).Run(gctx)
	})
	g.Go(func() error {
		return cooldowns.Run(gctx, cfg.CooldownSweepInterval())
	})

	runErr := g.Wait()
	if runErr != nil {
		logger.Error("service stopped with error", zap.Error(runErr))
	}
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	activityLog.Record(shutdownCtx, activity.TypeSystem, "Panel stopping", "", "")
	if err := botSvc.Close(shutdownCtx); err != nil {
		logger.Warn("bot close failed", zap.Error(err))
	}

	if runErr != nil {
		_ = logger.Sync()
		os.Exit(1)
	}
}
