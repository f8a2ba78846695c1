package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"eta-moderator/internal/admin"
	"eta-moderator/internal/analytics"
	"eta-moderator/internal/audit"
	"eta-moderator/internal/bot"
	"eta-moderator/internal/config"
	"eta-moderator/internal/cooldown"
	"eta-moderator/internal/history"
	"eta-moderator/internal/metrics"
	"eta-moderator/internal/moderation"
	"eta-moderator/internal/settings"
	"eta-moderator/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	sweepInterval   = time.Minute
	cleanupInterval = 24 * time.Hour
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

	store, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	docs := metrics.Instrument(store, m)

	settingsStore, err := settings.Open(ctx, docs, cfg.Seed)
	if err != nil {
		logger.Fatal("settings load failed", zap.Error(err))
	}
	ledger, err := history.Open(ctx, docs)
	if err != nil {
		logger.Fatal("history load failed", zap.Error(err))
	}
	m.SetHistoryRecords(ledger.Len())

	current := settingsStore.Get()
	auditLogger := audit.NewLogger(store, logger)
	cooldowns := cooldown.NewTracker()
	analyticsService := analytics.New(ledger)

	botSvc, err := bot.New(current.Token, settingsStore, analyticsService, logger)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}
	engine := moderation.NewEngine(settingsStore, cooldowns, ledger, bot.NewModerator(botSvc.Session()), auditLogger, m, logger)
	botSvc.SetEngine(engine)

	adminService := admin.NewService(settingsStore, ledger, auditLogger, store, m)
	adminServer := admin.NewServer(adminService, store, m, logger, admin.Options{
		Health:  cfg.Health.Enabled,
		Metrics: cfg.Metrics.Enabled,
	})
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(current.WebPort),
		Handler:           adminServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("admin server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// The admin server keeps running when the bot cannot connect.
	if current.Token == "" {
		logger.Warn("discord token not configured, bot disabled")
	} else if err := botSvc.Start(); err != nil {
		logger.Error("bot start failed", zap.Error(err))
	} else {
		logger.Info("bot started")
	}

	g.Go(func() error {
		runMaintenance(gctx, store, cooldowns, cfg.RetentionDays, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownSeconds)*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("admin server shutdown", zap.Error(err))
		}
		botSvc.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("exited with error", zap.Error(err))
	}
}

// runMaintenance evicts expired cooldowns and trims the audit table until ctx
// is done.
func runMaintenance(ctx context.Context, store *storage.Store, cooldowns *cooldown.Tracker, retentionDays int, logger *zap.Logger) {
	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()
	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			if n := cooldowns.Sweep(); n > 0 {
				logger.Debug("cooldowns evicted", zap.Int("count", n))
			}
		case <-cleanup.C:
			if retentionDays <= 0 {
				continue
			}
			if err := store.CleanupAuditLogs(ctx, retentionDays); err != nil {
				logger.Warn("audit cleanup failed", zap.Error(err))
			}
		}
	}
}
