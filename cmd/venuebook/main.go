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

	"venuebook/internal/api"
	"venuebook/internal/checkout"
	"venuebook/internal/config"
	"venuebook/internal/database"
	"venuebook/internal/domain"
	"venuebook/internal/events"
	"venuebook/internal/export"
	"venuebook/internal/logging"
	"venuebook/internal/metrics"
	"venuebook/internal/repository"
	"venuebook/internal/service"
	"venuebook/internal/session"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var cmdErr *commandError
		switch {
		case errors.Is(err, errUsage):
			os.Exit(2)
		case errors.As(err, &cmdErr):
			fmt.Fprintln(os.Stderr, domain.UserMessage(cmdErr.err))
			os.Exit(1)
		}
		log.Fatalf("Fatal error: %v", err)
	}
}

// commandError is a failure of the requested command itself, as opposed to
// startup. It is shown to the user as a friendly message.
type commandError struct {
	command string
	err     error
}

func (e *commandError) Error() string { return e.command + ": " + e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

// app holds everything a command may need; it is built once per invocation.
type app struct {
	cfg      *config.Config
	logger   *zerolog.Logger
	session  *session.Session
	db       *database.DB
	redis    *redis.Client
	slots    *repository.RedisSlotRepository
	bookings *service.BookingService
	payments *service.PaymentService
	exporter *export.Exporter
	backup   *database.BackupService
	out      io.Writer
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(os.Stderr)
		if len(args) == 0 {
			return errUsage
		}
		return nil
	}

	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := newApp(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer cleanup()

	startMetrics(ctx, cfg, &logger)

	if err := a.dispatch(ctx, args[0], args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return err
		}
		logger.Debug().Err(err).Str("command", args[0]).Msg("command failed")
		return &commandError{command: args[0], err: err}
	}
	return nil
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

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "cli").Logger()

	return cfg, logger, closer, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*app, func(), error) {
	sess, err := session.FromToken(cfg.Session.Token)
	if err != nil {
		return nil, nil, err
	}

	db, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	redisClient := initRedis(ctx, cfg, logger)

	cleanup := func() {
		if redisClient != nil {
			_ = repository.Close(redisClient)
		}
		_ = db.Close()
	}

	backend := api.NewClient(cfg.Backend, logging.Component(logger, "backend"))
	if redisClient != nil {
		backend.UseRedisCache(redisClient, cfg.Backend.CacheTTL())
	}

	bus := initEventBus(redisClient, logger)
	slots, redisSlots := initSlots(redisClient, logger)

	loader := checkout.NewLoader(
		checkout.NewHTTPScript(cfg.Gateway.ScriptURL),
		checkout.NewTerminalConstructor(os.Stdin, os.Stdout),
		cfg.Gateway.LoadTimeout(),
		logging.Component(logger, "checkout"),
	)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		session:  sess,
		db:       db,
		redis:    redisClient,
		slots:    redisSlots,
		bookings: service.NewBookingService(backend, bus, cfg.Booking.Location(), logging.Component(logger, "bookings")),
		payments: service.NewPaymentService(backend, loader, slots, db, bus, service.PaymentConfig{
			KeyID:        cfg.Gateway.KeyID,
			Currency:     cfg.Gateway.Currency,
			MerchantName: cfg.Gateway.MerchantName,
			SlotTTL:      cfg.Gateway.SlotTTL(),
		}, logging.Component(logger, "payments")),
		exporter: export.NewExporter(cfg.Exports.Path, logging.Component(logger, "export")),
		backup:   database.NewBackupService(db, cfg.Database.Backup, logging.Component(logger, "backup")),
		out:      os.Stdout,
	}
	return a, cleanup, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	// сессии, пережившие слот, уже никто не завершит
	expired, err := db.ExpireStale(ctx, time.Now().Add(-cfg.Gateway.SlotTTL()))
	if err != nil {
		logger.Warn().Err(err).Msg("expire stale payment sessions")
	} else if expired > 0 {
		logger.Info().Int64("sessions", expired).Msg("stale payment sessions marked failed")
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initEventBus(redisClient *redis.Client, logger *zerolog.Logger) *events.EventBus {
	bus := events.NewEventBus()
	eventLogger := logging.Component(logger, "events")
	bus.OnError(func(event *events.Event, err error) {
		eventLogger.Warn().Err(err).Str("event", event.Type).Msg("event handler failed")
	})
	bus.Subscribe(events.Wildcard, events.LogHandler(eventLogger))
	if redisClient != nil {
		bus.Subscribe(events.Wildcard, events.NewRedisStream(redisClient, "", 0).Handle)
	}
	return bus
}

// initSlots prefers Redis so that checkout slots are shared between
// processes; the in-memory store takes over while Redis is unreachable.
func initSlots(redisClient *redis.Client, logger *zerolog.Logger) (domain.SlotRepository, *repository.RedisSlotRepository) {
	memory := repository.NewMemorySlotRepository()
	if redisClient == nil {
		return memory, nil
	}
	redisSlots := repository.NewRedisSlotRepository(redisClient)
	return repository.NewFailoverSlotRepository(redisSlots, memory, logging.Component(logger, "slots")), redisSlots
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
