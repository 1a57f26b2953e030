package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oneentry/currency-sync/config"
	httpDelivery "github.com/oneentry/currency-sync/internal/delivery/http"
	"github.com/oneentry/currency-sync/internal/infrastructure/currencyfreaks"
	"github.com/oneentry/currency-sync/internal/infrastructure/logging"
	"github.com/oneentry/currency-sync/internal/infrastructure/metrics"
	"github.com/oneentry/currency-sync/internal/infrastructure/oneentry"
	"github.com/oneentry/currency-sync/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("shutdown complete")
			return
		}
		logger.Error("sync stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting currency-sync",
		"environment", cfg.Server.Environment,
		"host", cfg.Catalog.Host,
		"base", cfg.Sync.BaseCurrency+"/"+cfg.Sync.BaseLocale,
		"sync", cfg.Sync.SyncCurrency+"/"+cfg.Sync.SyncLocale,
		"update_every", cfg.Sync.UpdateEvery(),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize infrastructure dependencies
	rateOpts := []currencyfreaks.Option{
		currencyfreaks.WithHTTPClient(&http.Client{Timeout: cfg.Rates.Timeout}),
		currencyfreaks.WithRateLimit(cfg.Rates.RequestsPerSecond),
		currencyfreaks.WithLogger(logger),
		currencyfreaks.WithMetrics(m),
	}
	if cfg.Rates.FilterSymbols {
		rateOpts = append(rateOpts, currencyfreaks.WithSymbols(cfg.Sync.BaseCurrency, cfg.Sync.SyncCurrency))
	}
	rateClient := currencyfreaks.NewClient(cfg.Rates.APIKey, cfg.Rates.BaseURL, rateOpts...)

	catalog, err := oneentry.Connect(ctx, cfg.Catalog.Host,
		oneentry.Credentials{Login: cfg.Catalog.Login, Password: cfg.Catalog.Password},
		oneentry.WithHTTPClient(&http.Client{Timeout: cfg.Catalog.Timeout}),
		oneentry.WithRateLimit(cfg.Catalog.RequestsPerSecond, cfg.Catalog.Burst),
		oneentry.WithLogger(logger),
		oneentry.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("connect to developer API: %w", err)
	}

	// Initialize usecase layer
	rateService := usecase.NewRateService(rateClient, usecase.RateServiceConfig{
		BaseCurrency: cfg.Sync.BaseCurrency,
		SyncCurrency: cfg.Sync.SyncCurrency,
		MaxAttempts:  cfg.Rates.MaxAttempts,
	}, logger, m)

	syncService := usecase.NewSyncService(catalog, rateService, usecase.SyncConfig{
		BaseLocale:           cfg.Sync.BaseLocale,
		SyncLocale:           cfg.Sync.SyncLocale,
		AttributeSetMarker:   cfg.Sync.AttributeSetMarker,
		PriceAttributeMarker: cfg.Sync.PriceAttributeMarker,
		PageSize:             cfg.Sync.PageSize,
		Concurrency:          cfg.Sync.Concurrency,
		UpdateEvery:          cfg.Sync.UpdateEvery(),
		AbortOnWriteError:    cfg.Sync.AbortOnWriteError,
	}, logger, m)

	if cfg.Server.Enabled {
		srv := newServer(cfg, syncService, m, logger)
		go func() {
			logger.Info("ops server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("ops server shutdown error", "error", err)
			}
		}()
	}

	return syncService.Run(ctx)
}

func newServer(cfg *config.Config, status httpDelivery.StatusProvider, m *metrics.Metrics, logger *slog.Logger) *http.Server {
	handler := httpDelivery.NewHandler(status)
	router := httpDelivery.SetupRouter(cfg, handler, m.Handler(), logger)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
