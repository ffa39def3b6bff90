package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicejournal/internal/audit"
	"voicejournal/internal/auth"
	"voicejournal/internal/calls"
	"voicejournal/internal/config"
	"voicejournal/internal/httpapi"
	"voicejournal/internal/journal"
	"voicejournal/internal/schedule"
	"voicejournal/internal/telephony"
	"voicejournal/internal/users"
	"voicejournal/pkg/logger"
	"voicejournal/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Storage
	userRepo := users.NewPostgresRepo(db)
	callRepo := calls.NewPostgresRepo(db)
	entryRepo := journal.NewPostgresRepo(db)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	// Telephony
	resolver := telephony.NewPhoneResolver(userRepo, rdb)
	adapters := make(map[string]telephony.WebhookAdapter)
	if cfg.Twilio.AuthToken != "" {
		adapters["twilio"] = telephony.NewTwilioAdapter(cfg.Twilio.AuthToken, cfg.App.BaseURL, cfg.Twilio.SkipVerify)
	}
	if cfg.Telnyx.APIKey != "" {
		adapters["telnyx"] = telephony.NewTelnyxAdapter(cfg.Telnyx.PublicKey, cfg.Telnyx.SkipVerify)
	}

	// Domain services
	journalSvc := journal.NewService(entryRepo)
	callSvc := calls.NewService(callRepo, resolver, journalSvc)
	reconciler := schedule.NewReconciler(
		schedule.NewHTTPTriggerService(cfg.Scheduler.BaseURL),
		userRepo,
		cfg.Scheduler.Group,
		cfg.Scheduler.TargetURL,
	)
	dialer := telephony.NewTelnyxCallClient(cfg.Telnyx.APIKey, cfg.Telnyx.ConnectionID, cfg.App.BaseURL)
	dispatcher := telephony.NewDispatcher(userRepo, dialer, callRepo, rdb, cfg.Telnyx.PhoneNumber)

	h := httpapi.Handlers{
		Calls:         callSvc,
		Journal:       journalSvc,
		Users:         userRepo,
		Reconciler:    reconciler,
		Dispatcher:    dispatcher,
		Resolver:      resolver,
		Audit:         auditSvc,
		Adapters:      adapters,
		Deliveries:    utils.RedisDeliveryMarker{Client: rdb},
		BaseURL:       cfg.App.BaseURL,
		InternalToken: cfg.Scheduler.InternalToken,
		DB:            db,
		Redis:         rdb,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
