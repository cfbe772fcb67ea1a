package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripvera/internal/availability"
	"tripvera/internal/booking"
	"tripvera/internal/config"
	"tripvera/internal/domain"
	"tripvera/internal/events"
	"tripvera/internal/export"
	"tripvera/internal/gateway"
	"tripvera/internal/logging"
	"tripvera/internal/metrics"
	"tripvera/internal/notify"
	"tripvera/internal/repository"
	"tripvera/internal/selection"
	"tripvera/internal/store"
	"tripvera/internal/travelapi"
	"tripvera/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	apiClient := travelapi.NewClient(cfg.Upstream.BaseURL, time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second)

	redisClient, selectionRepo := initSelectionRepository(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
		apiClient.UseRedisCache(redisClient, time.Duration(cfg.Booking.AvailabilityTTLSeconds)*time.Second)
	}

	stateAdapter, err := initStateAdapter(cfg, logger)
	if err != nil {
		return err
	}
	defer stateAdapter.Close()

	selections := selection.NewService(selectionRepo, logger)
	adapter := availability.NewAdapter(apiClient, logger)
	favorites := store.NewFavoritesStore(stateAdapter, logger)
	recent := store.NewRecentViewedStore(stateAdapter, cfg.Booking.RecentViewedCap, cfg.Booking.RecentViewedExpiryDays, logger)

	eventBus := events.NewEventBus()

	notifyWorker := initNotifier(ctx, cfg, redisClient, logger)

	bookingSvc := booking.NewService(selections, apiClient, eventBus, notifyWorker, cfg.Booking, logger)

	sheetsService, err := initGoogleSheets(ctx, cfg, logger)
	if err != nil {
		return err
	}

	auth := gateway.NewAuthenticator(cfg.Gateway, apiClient, logger)
	handlers := gateway.NewHandlers(apiClient, selections, adapter, bookingSvc, favorites, recent, auth, sheetsService, cfg.Exports, logger)
	server := gateway.NewServer(cfg.Gateway, handlers, auth, logger)

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(cfg.Monitoring, logger)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.Component(baseLogger, "gateway-main")
	return cfg, &logger, closer, nil
}

// initSelectionRepository wires the redis-backed selection store with an
// in-memory failover; without redis configured only memory is used.
func initSelectionRepository(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.SelectionRepository) {
	ttl := time.Duration(cfg.Booking.SelectionTTLSeconds) * time.Second
	memory := repository.NewMemorySelectionRepository(ttl)

	if cfg.Redis.Address == "" {
		logger.Info().Msg("redis not configured, selections are in-memory only")
		return nil, memory
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable at startup, failover starts on memory")
	}

	primary := repository.NewRedisSelectionRepository(redisClient, ttl)
	return redisClient, repository.NewFailoverSelectionRepository(primary, memory, logger)
}

func initStateAdapter(cfg *config.Config, logger *zerolog.Logger) (store.Adapter, error) {
	adapter, err := store.NewSQLiteAdapter(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("init state database: %w", err)
	}
	logger.Info().Str("path", cfg.Database.Path).Msg("state database ready")
	return adapter, nil
}

func initNotifier(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.NotifyEnqueuer {
	if !cfg.Notify.Enabled {
		return nil
	}

	var mailer domain.Mailer
	if cfg.Notify.DevMode {
		mailer = notify.NewDevMailer(logger)
	} else {
		mailer = notify.NewMailerSend(cfg.Notify)
	}

	notifyWorker := worker.NewNotifyWorker(mailer, redisClient, worker.RetryPolicy{}, logger)
	go notifyWorker.Start(ctx)
	return notifyWorker
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*export.SheetsService, error) {
	if cfg.Google.CredentialsFile == "" || cfg.Google.ReservationsSpreadsheetID == "" {
		return nil, nil
	}

	sheetsService, err := export.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.ReservationsSpreadsheetID)
	if err != nil {
		return nil, fmt.Errorf("init google sheets: %w", err)
	}

	testCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sheetsService.TestConnection(testCtx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed, export sync may not work")
	}

	return sheetsService, nil
}

func startMetricsServer(cfg config.MonitoringConfig, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.PrometheusPort)
	logger.Info().Str("addr", addr).Msg("metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
