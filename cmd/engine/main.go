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

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	httpapi "github.com/epiforecast/outbreak-engine/internal/adapter/httpapi"
	kafkaadapter "github.com/epiforecast/outbreak-engine/internal/adapter/kafka"
	"github.com/epiforecast/outbreak-engine/internal/adapter/memstore"
	"github.com/epiforecast/outbreak-engine/internal/adapter/roster"
	"github.com/epiforecast/outbreak-engine/internal/adapter/weather"
	"github.com/epiforecast/outbreak-engine/internal/config"
	"github.com/epiforecast/outbreak-engine/internal/domain"
	"github.com/epiforecast/outbreak-engine/internal/engine"
	"github.com/epiforecast/outbreak-engine/internal/observability"
)

func main() {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	registry, err := roster.Load(cfg.LocationsFile)
	if err != nil {
		logger.Error("failed to load location roster", "file", cfg.LocationsFile, "error", err)
		os.Exit(1)
	}

	seasonal, err := domain.NewSeasonalAdjuster()
	if err != nil {
		logger.Error("failed to build seasonal adjuster", "error", err)
		os.Exit(1)
	}

	var variation domain.VariationSource
	if cfg.VariationEnabled {
		variation = domain.NewUniformVariation(cfg.VariationSeed, domain.DefaultVariationMin, domain.DefaultVariationMax)
	}
	forecaster := domain.NewHorizonForecaster(seasonal, variation, domain.DefaultWindowSize)

	store := memstore.New(nil)
	seedBaselines(registry, store, logger)

	weatherClient := weather.NewClient(cfg.WeatherBaseURL, cfg.WeatherAPIKey, cfg.WeatherTimeout, logger)
	cache := engine.NewSnapshotCache(cfg.WeatherCacheTTL, cfg.CasesCacheTTL, nil)

	eng := engine.New(store, weatherClient, registry, forecaster, cache, logger, metrics, engine.Options{
		ProviderTimeout:   cfg.ProviderTimeout,
		WorkerLimit:       cfg.WorkerLimit,
		HistoryWindowDays: cfg.HistoryWindowDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ingest case reports from Kafka (feature-flagged via INGESTION_ENABLED).
	var consumer *kafkaadapter.Consumer
	if cfg.IngestionEnabled {
		consumer = kafkaadapter.NewConsumer(cfg, store, logger, metrics)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("case report consumer error", "error", err)
			}
		}()
		logger.Info("case report ingestion enabled",
			"brokers", cfg.KafkaBrokers, "topic", cfg.KafkaCasesTopic, "group", cfg.KafkaGroupID)
	} else {
		logger.Info("case report ingestion disabled")
	}

	// Periodic snapshot refresh.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.WeatherRefresh, func() {
		if err := eng.RefreshWeather(ctx); err != nil {
			logger.Error("weather refresh error", "error", err)
		}
	}); err != nil {
		logger.Error("invalid weather refresh schedule", "schedule", cfg.WeatherRefresh, "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.AddFunc(cfg.HistoryRefresh, func() {
		if err := eng.RefreshHistory(ctx); err != nil {
			logger.Error("history refresh error", "error", err)
		}
	}); err != nil {
		logger.Error("invalid history refresh schedule", "schedule", cfg.HistoryRefresh, "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	// Warm the weather snapshot cache before serving.
	go func() {
		if err := eng.RefreshWeather(ctx); err != nil {
			logger.Error("initial weather refresh error", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewServer(eng, logger).Router(),
	}
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	<-scheduler.Stop().Done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("consumer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// seedBaselines pre-loads flat series from each profile's baseline daily
// case counts so forecasts have history before live reports arrive.
func seedBaselines(registry *roster.Registry, store *memstore.Store, logger *slog.Logger) {
	profiles, err := registry.List(context.Background())
	if err != nil {
		logger.Warn("baseline seeding skipped", "error", err)
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	seeded := 0
	for _, profile := range profiles {
		for disease, daily := range profile.BaselineCases {
			series := domain.DiseaseSeries{Disease: disease, Location: profile.ID}
			for i := -domain.DefaultWindowSize; i < 0; i++ {
				series.Points = append(series.Points, domain.TimeSeriesPoint{
					Date:  today.AddDate(0, 0, i),
					Count: daily,
				})
			}
			if err := store.Seed(series); err != nil {
				logger.Warn("baseline seed rejected",
					"location", profile.ID, "disease", disease, "error", err)
				continue
			}
			seeded++
		}
	}
	if seeded > 0 {
		logger.Info("baseline case histories seeded", "series", seeded)
	}
}
