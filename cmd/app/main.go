package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nlukin/sheet-orders/internal/application/service"
	"github.com/nlukin/sheet-orders/internal/cache"
	"github.com/nlukin/sheet-orders/internal/config"
	"github.com/nlukin/sheet-orders/internal/domain"
	"github.com/nlukin/sheet-orders/internal/httpapi"
	"github.com/nlukin/sheet-orders/internal/infrastructure/email"
	"github.com/nlukin/sheet-orders/internal/infrastructure/events"
	"github.com/nlukin/sheet-orders/internal/infrastructure/imghost"
	"github.com/nlukin/sheet-orders/internal/infrastructure/sheets"
	"github.com/nlukin/sheet-orders/internal/observability"
	"github.com/nlukin/sheet-orders/internal/pkg/breaker"
	"github.com/nlukin/sheet-orders/internal/pkg/pool"
	"github.com/nlukin/sheet-orders/internal/queue"
)

const sideEffectWorkers = 4

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	creds, err := cfg.Sheets.ServiceAccountJSON()
	if err != nil {
		logger.Fatal("bad service account key", zap.Error(err))
	}
	store, err := sheets.New(ctx, cfg.Sheets, creds, logger)
	if err != nil {
		logger.Fatal("sheets client", zap.Error(err))
	}

	metrics := observability.NewInmem(1000)

	writeQueue := queue.New(store, queue.Config{
		Attempts:    cfg.Queue.Attempts,
		BackoffBase: cfg.Queue.BackoffBase,
		BatchDelay:  cfg.Queue.BatchDelay,
		DedupeSize:  cfg.Queue.DedupeSize,
	}, logger, metrics)

	productCache := cache.New[[]domain.Product](cfg.Cache.TTL, logger)
	catalog := service.NewCatalogService(productCache, store, breaker.New(cfg.Breaker), logger, metrics)
	catalog.StartAutoRefresh()
	if _, err := catalog.Refresh(ctx); err != nil {
		logger.Warn("initial catalog fetch failed, cache starts cold", zap.Error(err))
	}

	var mailer email.Sender = email.Disabled{}
	if cfg.SMTP.Host != "" {
		mailer = email.NewSMTP(cfg.SMTP, logger)
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer func() { _ = kp.Close() }()
		publisher = kp
	}

	var uploader imghost.Uploader = imghost.Disabled{}
	if cfg.ImageHost.APIKey != "" {
		uploader = imghost.NewImgBB(cfg.ImageHost, logger)
	}

	workers := pool.New(sideEffectWorkers)
	orders := service.NewOrderService(
		writeQueue, mailer, publisher, workers, cfg.Sheets.OrdersSheet, logger, metrics,
	)

	srv := httpapi.New(
		orders, catalog, uploader,
		httpapi.NewTokenVerifier(cfg.Auth, logger),
		logger, metrics,
	)

	logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
	if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped with error", zap.Error(err))
	}

	catalog.Stop()
	writeQueue.Close()
	workers.Close()
	workers.Wait()
	logger.Info("shutdown complete")
}
