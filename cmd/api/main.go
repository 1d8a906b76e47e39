package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coworking/internal/api"
	"coworking/internal/booking"
	"coworking/internal/clock"
	"coworking/internal/config"
	"coworking/internal/database"
	"coworking/internal/domain"
	"coworking/internal/events"
	"coworking/internal/export"
	"coworking/internal/logging"
	"coworking/internal/metrics"
	"coworking/internal/pricing"
	"coworking/internal/repository"
	"coworking/internal/service"
	"coworking/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

// store is what the API needs from a reservation backend.
type store interface {
	domain.ReservationStore
	api.Pinger
}

func run() error {
	cfg, base, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := base.With().Str("component", "api-main").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reservations, db, err := initStore(cfg, &base)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	draftTTL, err := cfg.DraftTTL()
	if err != nil {
		return err
	}
	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}
	drafts := initDraftRepository(redisClient, draftTTL, &base)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	eventBus := events.NewEventBus()
	eventLogger := logging.Component(&base, "events")
	for _, eventType := range []string{events.EventReservationCreated, events.EventReservationRejected, events.EventDraftSubmitted} {
		eventBus.Subscribe(eventType, events.LogHandler(eventLogger))
	}

	resolver := booking.NewResolver(clock.NewRealClock(), loc, logging.Component(&base, "availability"))
	calculator := pricing.NewCalculator(cfg.Rates, logging.Component(&base, "pricing"))

	bookingService := service.NewBookingService(
		reservations,
		cfg.Spaces,
		resolver,
		calculator,
		eventBus,
		service.BookingOptions{MaxBookingDays: cfg.Booking.MaxBookingDays, CalendarDays: cfg.Booking.CalendarDays},
		logging.Component(&base, "booking"),
	)
	draftService := service.NewDraftService(drafts, bookingService, eventBus, logging.Component(&base, "drafts"))
	exporter := export.NewExporter(cfg.Exports.Path, logging.Component(&base, "export"))

	startMetrics(ctx, cfg, &logger)
	startBackups(ctx, cfg, db, &base)
	if err := startExports(ctx, cfg, bookingService, exporter, &base); err != nil {
		return err
	}

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API, bookingService, &base)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	httpServer := api.NewHTTPServer(cfg.API, bookingService, draftService, exporter, reservations, &base)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, *logger, closer, nil
}

// initStore returns the reservation store and, for sqlite, the database
// handle that backups need.
func initStore(cfg *config.Config, logger *zerolog.Logger) (store, *database.DB, error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn().Msg("using in-memory reservation store; data is lost on restart")
		return database.NewMemoryStore(), nil, nil
	}

	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, nil, err
	}
	return db, db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, drafts will start on the in-memory store")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}
	return client
}

func initDraftRepository(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) domain.DraftRepository {
	memory := repository.NewMemoryDraftRepository(ttl)
	if client == nil {
		return memory
	}
	return repository.NewFailoverDraftRepository(
		repository.NewRedisDraftRepository(client, ttl),
		memory,
		logging.Component(logger, "drafts-store"),
	)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startBackups(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) {
	if db == nil || !cfg.Backup.Enabled {
		return
	}
	interval, err := cfg.BackupInterval()
	if err != nil {
		logger.Error().Err(err).Msg("backup interval")
		return
	}
	backups := database.NewBackupService(db, cfg.Backup, interval, logging.Component(logger, "backup"))
	go backups.Start(ctx)
}

func startExports(ctx context.Context, cfg *config.Config, bookings *service.BookingService, exporter *export.Exporter, logger *zerolog.Logger) error {
	if !cfg.Exports.Scheduled {
		return nil
	}
	interval, err := cfg.ExportInterval()
	if err != nil {
		return err
	}
	w := worker.NewExportWorker(
		bookings,
		exporter,
		interval,
		cfg.Exports.RangeDays,
		worker.RetryPolicy{MaxRetries: cfg.Exports.MaxRetries},
		logging.Component(logger, "export-worker"),
	)
	go w.Start(ctx)
	return nil
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().
		Bool("grpc_enabled", grpcServer != nil).
		Int("grpc_port", cfg.API.GRPC.Port).
		Bool("http_enabled", cfg.API.HTTP.Enabled).
		Int("http_port", cfg.API.HTTP.Port).
		Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
