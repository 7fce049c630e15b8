package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/halbgrad/climate-anomaly-service/internal/adapter/assethost"
	httpadapter "github.com/halbgrad/climate-anomaly-service/internal/adapter/http"
	kafkaadapter "github.com/halbgrad/climate-anomaly-service/internal/adapter/kafka"
	httpapi "github.com/halbgrad/climate-anomaly-service/internal/api/http"
	"github.com/halbgrad/climate-anomaly-service/internal/config"
	"github.com/halbgrad/climate-anomaly-service/internal/live"
	"github.com/halbgrad/climate-anomaly-service/internal/observability"
	"github.com/halbgrad/climate-anomaly-service/internal/scheduler"
	"github.com/halbgrad/climate-anomaly-service/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := cfg.Clock()

	assetClient := assethost.NewClient(cfg.AssetBaseURL, cfg.AssetTimeout, logger, metrics)
	source := assethost.NewCachedSource(assetClient, cfg.SeriesCacheSize, cfg.DayCacheSize, metrics)
	checks := []httpadapter.Check{{Name: "asset-host", Checker: assetClient}}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Live feed is feature-flagged via KAFKA_BROKERS / LIVE_ENABLED.
	var liveStore *live.Store
	var reader *kafkaadapter.Reader
	if cfg.LiveEnabled {
		liveStore = live.NewStore(cfg.LiveMaxAge, clock, metrics)
		reader = kafkaadapter.NewReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger)
		consumer := live.NewConsumer(reader, liveStore, logger, metrics)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("live consumer error", "error", err)
			}
		}()
		checks = append(checks, httpadapter.Check{Name: "live-feed", Checker: liveStore})
		logger.Info("live feed enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("live feed disabled")
	}

	svc := service.New(source, source, liveStore, clock, logger, metrics)

	app := httpapi.NewApp(svc, logger)
	ops := httpadapter.NewServer(cfg.OpsAddr, logger, checks...)

	sched := scheduler.New(svc, cfg.RefreshInterval, logger)
	if err := sched.Start(); err != nil {
		logger.Error("refresh scheduler failed to start", "error", err)
	}

	go func() {
		logger.Info("api server starting", "addr", cfg.APIAddr)
		if err := app.Listen(cfg.APIAddr); err != nil {
			logger.Error("api server error", "error", err)
		}
	}()
	go func() {
		if err := ops.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("api server shutdown error", "error", err)
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
