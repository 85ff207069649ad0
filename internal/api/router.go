package api

import (
	"log/slog"
	"net/http"
	"time"

	"goldloan-engine/internal/api/handler"
	mw "goldloan-engine/internal/api/middleware"
	"goldloan-engine/internal/config"
	"goldloan-engine/internal/domain/loan"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(loanService loan.LoanService, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupLoanRoutes(router, loanService, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupLoanRoutes(router *chi.Mux, loanService loan.LoanService, cfg *config.Config, logger *slog.Logger) {
	loanHandler := handler.NewLoanHandler(loanService, logger)
	authHandler := handler.NewAuthHandler(*cfg, logger)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})

	router.Route("/loans", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", loanHandler.OriginateLoan)
		r.Route("/{loanID}", func(r chi.Router) {
			r.Get("/", loanHandler.GetLoan)
			r.Get("/early-repayment", loanHandler.CalculateEarlyRepayment)
			r.Post("/payments", loanHandler.RecordPayment)
			r.Put("/payments/{paymentID}/approve", loanHandler.ApprovePayment)
			r.Post("/rate-upgrades", loanHandler.UpgradeInterestRate)
			r.Route("/gold-return", func(r chi.Router) {
				r.Post("/initialize", loanHandler.InitializeGoldReturnStatus)
				r.Post("/schedule", loanHandler.ScheduleGoldReturn)
				r.Post("/returned", loanHandler.MarkGoldReturned)
				r.Post("/reminders", loanHandler.AddGoldReturnReminder)
			})
			r.Route("/auction", func(r chi.Router) {
				r.Post("/ready", loanHandler.MarkReadyForAuction)
				r.Post("/schedule", loanHandler.ScheduleAuction)
				r.Post("/complete", loanHandler.MarkAsAuctioned)
				r.Post("/cancel", loanHandler.CancelAuction)
			})
		})
	})
}
