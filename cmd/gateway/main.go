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

	"conekta-checkout/internal/config"
	"conekta-checkout/internal/database"
	"conekta-checkout/internal/http/router"
	"conekta-checkout/internal/infrastructure/cache"
	"conekta-checkout/internal/infrastructure/events"
	"conekta-checkout/internal/infrastructure/processor"
	"conekta-checkout/internal/render"
	"conekta-checkout/internal/repo"
	"conekta-checkout/internal/service"
	"conekta-checkout/internal/worker"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	dbService := database.New(db)
	defer dbService.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	orderRepo := repo.NewOrderRepo(db)
	paymentRepo := repo.NewPaymentRepo(db)

	var guard service.DeliveryGuard
	if cfg.Redis.Addr != "" {
		store := cache.NewDeliveryStore(cfg.Redis)
		defer store.Close()
		if err := store.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, relying on status checks for duplicate webhooks", "addr", cfg.Redis.Addr, "error", err)
		}
		guard = store
	}

	var publisher service.Publisher
	if cfg.NATS.URL != "" {
		pub, err := events.Connect(cfg.NATS)
		if err != nil {
			logger.Warn("nats unavailable, status changes will not be published", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	dispatcher := service.NewDispatcher(orderRepo, paymentRepo, logger)

	var (
		gateways    []service.Gateway
		reconcilers = make(map[string]*service.Reconciler)
		sources     []worker.Source
	)
	for _, settings := range cfg.Gateways() {
		var client processor.Client
		if settings.APIKey != "" {
			client, err = processor.NewHTTPClient(processor.Config{
				BaseURL: cfg.Processor.BaseURL,
				APIKey:  settings.APIKey,
				Locale:  cfg.Processor.Locale,
				Timeout: cfg.Processor.Timeout,
				Name:    settings.ID,
			}, logger)
			if err != nil {
				logger.Error("failed to build processor client", "gateway", settings.ID, "error", err)
				os.Exit(1)
			}
		}

		gw := service.NewGateway(settings, client, orderRepo, dispatcher, service.GatewayOptions{
			PlatformVersion: cfg.PlatformVersion,
			Logger:          logger,
		})
		rec := service.NewReconciler(gw, orderRepo, service.ReconcilerOptions{
			PaidStatus: cfg.PaidStatus,
			Guard:      guard,
			Publisher:  publisher,
			Logger:     logger,
		})

		gateways = append(gateways, gw)
		reconcilers[gw.ID()] = rec
		if client != nil {
			sources = append(sources, worker.Source{Gateway: gw, Reconciler: rec})
		}
	}

	if cfg.Reconcile.Interval > 0 && len(sources) > 0 {
		w := worker.NewReconciliationWorker(orderRepo, sources, cfg.Reconcile.Interval, cfg.Reconcile.StaleAfter, logger)
		go w.Run(ctx)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := router.New(router.Deps{
		Logger:      logger,
		DB:          dbService,
		Orders:      service.NewOrderService(orderRepo, paymentRepo),
		Gateways:    gateways,
		Reconcilers: reconcilers,
		Catalog:     render.Spanish,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Processor.Timeout + 15*time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
