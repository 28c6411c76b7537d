package main

import (
	_ "aquacare/docs"
	"aquacare/internal/api"
	mw "aquacare/internal/api/middleware"
	"aquacare/internal/batch"
	"aquacare/internal/config"
	"aquacare/internal/domain/customer"
	"aquacare/internal/event"
	"aquacare/internal/infrastructure/database/postgres"
	"aquacare/internal/infrastructure/localstore"
	"aquacare/internal/infrastructure/logging"
	"aquacare/internal/infrastructure/notify"
	"aquacare/internal/realtime"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// @title AquaCare Customer API
// @version 1.0
// @description Customer, AMC contract and service visit records for an RO water-purifier service business.

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, closeRepo := initializeRepository(ctx, cfg, logger)
	defer closeRepo()

	publisher, closePublisher := initializePublisher(cfg, logger)
	defer closePublisher()

	hub := realtime.NewHub(logger)
	defer hub.Close()

	store := customer.NewStore(repo, publisher, hub, logger)
	reminderJob := batch.NewRenewalReminderJob(store, initializeSender(cfg, logger), publisher, cfg.Reminders.WindowDays, logger)

	cronScheduler := startBatchJobs(cfg, logger, reminderJob)
	redisClient := initializeRedisClient(ctx, cfg, logger)
	defer closeRedisClient(redisClient, logger)
	rateLimiter := initializeRateLimiter(ctx, cfg, redisClient, logger)
	router := api.SetupRouter(rateLimiter, store, hub, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed(), "storage_driver", cfg.Storage.Driver)

	return cfg, logger
}

// initializeRepository picks the persistence strategy named by
// storage.driver. The returned func releases whatever the strategy holds.
func initializeRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (customer.Repository, func()) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(cfg.Database.URL, logger); err != nil {
				logger.Error("Failed to bootstrap database schema", "error", err)
				os.Exit(1)
			}
		}
		dbPool := initializeDatabase(ctx, cfg, logger)
		return postgres.NewCustomerRepository(dbPool, logger), func() { closeDatabase(dbPool, logger) }
	default:
		logger.Info("Using local storage", "dir", cfg.Storage.LocalDir, "key", cfg.Storage.LocalKey)
		repo, err := localstore.NewFileRepository(cfg.Storage.LocalDir, cfg.Storage.LocalKey, logger)
		if err != nil {
			logger.Error("Failed to open local storage", "error", err)
			os.Exit(1)
		}
		return repo, func() {}
	}
}

func initializeDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

// initializePublisher connects to RabbitMQ when enabled. A broker that
// cannot be reached degrades to log-only publishing.
func initializePublisher(cfg *config.Config, logger *slog.Logger) (event.EventPublisher, func()) {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("RabbitMQ disabled, domain events are only logged")
		return event.NewLogPublisher(logger), func() {}
	}

	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Warn("Failed to connect to RabbitMQ, falling back to log publisher", "error", err)
		return event.NewLogPublisher(logger), func() {}
	}

	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Warn("Failed to set up RabbitMQ publisher, falling back to log publisher", "error", err)
		conn.Close()
		return event.NewLogPublisher(logger), func() {}
	}

	logger.Info("Publishing domain events to RabbitMQ", "exchange", cfg.RabbitMQ.ExchangeName)
	return publisher, func() {
		logger.Info("Closing RabbitMQ connection...")
		if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			logger.Warn("RabbitMQ close failed", "error", err)
		}
	}
}

func initializeSender(cfg *config.Config, logger *slog.Logger) notify.Sender {
	if !cfg.Twilio.Enabled {
		return notify.NewLogSender(logger)
	}
	sender, err := notify.NewTwilioSender(cfg.Twilio, logger)
	if err != nil {
		logger.Warn("Twilio not usable, reminders will only be logged", "error", err)
		return notify.NewLogSender(logger)
	}
	return sender
}

// initializeRedisClient returns nil unless a rate-limit Redis URL is set and
// the server answers a ping.
func initializeRedisClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) *redis.Client {
	url := cfg.Server.RateLimit.RedisURL
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn("Invalid Redis URL, using in-memory rate limiting", "error", err)
		return nil
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, using in-memory rate limiting", "error", err)
		client.Close()
		return nil
	}
	logger.Info("Connected to Redis for rate limiting", "addr", opts.Addr)
	return client
}

func closeRedisClient(client *redis.Client, logger *slog.Logger) {
	if client == nil {
		return
	}
	logger.Info("Closing Redis client...")
	if err := client.Close(); err != nil {
		logger.Warn("Redis close failed", "error", err)
	}
}

func initializeRateLimiter(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) mw.RateLimiter {
	if redisClient != nil {
		return mw.NewRedisRateLimiter(cfg.Server.RateLimit, redisClient, logger)
	}
	return mw.NewRateLimiterMiddleware(ctx, cfg.Server.RateLimit, logger)
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
		logger.Info("Server goroutine finished before signal.", "error", err)
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		} else {
			logger.Info("HTTP server shutdown initiated.")
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}
	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}

	logger.Info("Application shutdown process complete.")
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, reminderJob *batch.RenewalReminderJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	if !cfg.Reminders.Enabled {
		logger.Info("Renewal reminders disabled")
		c.Start()
		return c
	}

	scheduleSpec := cfg.Reminders.Schedule
	if scheduleSpec == "" {
		scheduleSpec = "0 9 * * *"
		logger.Warn("Renewal reminder schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Reminders.Timeout
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "RenewalReminder")
		jobLogger.Info("Cron triggered: Running renewal reminder job.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := reminderJob.Run(ctx); runErr != nil {
			jobLogger.Error("Renewal reminder job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Renewal reminder job finished successfully.")
		}
	}))

	if err != nil {
		logger.Error("Failed to schedule renewal reminder job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled renewal reminder job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func setupLogger(cfg config.LoggerConfig) *slog.Logger {
	return logging.NewLogger(cfg)
}
