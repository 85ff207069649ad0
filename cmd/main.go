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

	"goldloan-engine/internal/api"
	"goldloan-engine/internal/batch"
	"goldloan-engine/internal/config"
	"goldloan-engine/internal/domain/loan"
	"goldloan-engine/internal/event"
	"goldloan-engine/internal/infrastructure/database/postgres"
	"goldloan-engine/internal/infrastructure/logging"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

func main() {
	cfg, logger := initializeApp()

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)

	amqpConn := initializeRabbitMQ(cfg, logger)
	defer closeRabbitMQ(amqpConn, logger)

	loanService, loanRepo := initializeServices(cfg, dbPool, amqpConn, logger)

	clock := loan.SystemClock{}
	upgradeSweep := batch.NewRateUpgradeSweep(loanRepo, loanService, clock, logger)
	goldReturnSweep := batch.NewGoldReturnSweep(loanRepo, loanService, clock, logger)

	cronScheduler := startBatchJobs(cfg, logger, upgradeSweep, goldReturnSweep)
	router := api.SetupRouter(loanService, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(context.Background(), cfg.Database, logger)
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

func initializeRabbitMQ(cfg *config.Config, logger *slog.Logger) *amqp.Connection {
	logger.Info("Connecting to RabbitMQ...", "exchange", cfg.RabbitMQ.ExchangeName)
	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	return conn
}

func closeRabbitMQ(conn *amqp.Connection, logger *slog.Logger) {
	logger.Info("Closing RabbitMQ connection...")
	if err := conn.Close(); err != nil {
		logger.Warn("Failed to close RabbitMQ connection", "error", err)
	}
}

func initializeServices(cfg *config.Config, dbPool *pgxpool.Pool, amqpConn *amqp.Connection, logger *slog.Logger) (loan.LoanService, loan.Repository) {
	logger.Info("Initializing application components...")

	loanRepo := postgres.NewLoanRepository(dbPool, logger)

	publisher, err := event.NewRabbitMQEventPublisher(amqpConn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to initialize event publisher", "error", err)
		os.Exit(1)
	}

	calendar, err := loan.NewFixedHolidayCalendar(cfg.Calendar.Holidays)
	if err != nil {
		logger.Error("Invalid holiday calendar configuration", "error", err)
		os.Exit(1)
	}

	svc := loan.NewLoanService(loanRepo, publisher, loan.SystemClock{}, calendar, logger)
	return svc, loanRepo
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

type sweepJob interface {
	Run(ctx context.Context) error
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, upgradeSweep, goldReturnSweep sweepJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	jobTimeout := cfg.Batch.SweepTimeout
	if jobTimeout <= 0 {
		jobTimeout = 1 * time.Hour
	}

	scheduleSweep(c, logger, "RateUpgradeSweep", cfg.Batch.UpgradeSweepSchedule, "0 1 * * *", jobTimeout, upgradeSweep)
	scheduleSweep(c, logger, "GoldReturnSweep", cfg.Batch.GoldReturnSweepSchedule, "0 2 * * *", jobTimeout, goldReturnSweep)

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func scheduleSweep(c *cron.Cron, logger *slog.Logger, name, scheduleSpec, defaultSpec string, timeout time.Duration, job sweepJob) {
	if scheduleSpec == "" {
		scheduleSpec = defaultSpec
		logger.Warn("Batch schedule not configured, using default", "job_name", name, "schedule", scheduleSpec)
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", name)
		jobLogger.Info("Cron triggered: running sweep.")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if runErr := job.Run(ctx); runErr != nil {
			jobLogger.Error("Sweep finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Sweep finished successfully.")
		}
	}))

	if err != nil {
		logger.Error("Failed to schedule sweep", "job_name", name, "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled sweep", "job_name", name, "schedule", scheduleSpec, "job_id", jobID)
	}
}
