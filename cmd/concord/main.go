package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"concord/internal/cache"
	"concord/internal/cdn"
	"concord/internal/config"
	"concord/internal/gateway"
	"concord/internal/mail"
	"concord/internal/observability/logging"
	"concord/internal/observability/metrics"
	"concord/internal/service"
	"concord/internal/store"
	httpx "concord/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: "concord",
		Environment: cfg.Instance.Environment,
		Level:       cfg.Instance.LogLevel,
	})
	slog.SetDefault(logger)

	logger.Info("starting", "instance", cfg.Instance.Name)
	metrics.MustRegister()

	gdb, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}
	st := store.New(gdb)
	if err := st.AutoMigrate(context.Background()); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Addr(),
		Username: cfg.Cache.Username,
		Password: cfg.Cache.Password,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Error("cache ping", "error", err)
		os.Exit(1)
	}
	kv := cache.New(rdb)
	pubsub := cache.NewPubSub(rdb)

	sender, err := mail.NewSender(cfg.Mail, logger)
	if err != nil {
		logger.Error("mail sender", "error", err)
		os.Exit(1)
	}
	storage := cdn.New(cfg.Bunny.CDNURL, cfg.Bunny.APIKey, cfg.Bunny.StorageZone)

	perms := service.NewPermissionService(st, kv, cfg.Instance.RequireEmailVerification)
	auth := service.NewAuthService(st, kv, cfg.Instance.Registration)
	users := service.NewUserService(st, kv, storage)
	guilds := service.NewGuildService(st, kv, perms)
	msgs := service.NewMessageService(st, kv, pubsub, perms)
	email := service.NewEmailService(st, kv, sender, logger, cfg.Instance.Name, cfg.Web.FrontendURL)

	gw := gateway.New(auth, users, perms, msgs, pubsub, logger)

	var initialGuild string
	if cfg.Instance.InitialGuild != nil {
		initialGuild = *cfg.Instance.InitialGuild
	}

	router := httpx.NewRouter(httpx.Deps{
		Log:          logger,
		Auth:         auth,
		Users:        users,
		Guilds:       guilds,
		Msgs:         msgs,
		Email:        email,
		Perms:        perms,
		Store:        st,
		GW:           gw,
		Instance:     cfg.Instance.Name,
		CookiePath:   cfg.Web.CookiePath(),
		FrontendURL:  cfg.Web.FrontendURL,
		InitialGuild: initialGuild,
	})

	srv := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
