package main

import (
	"io"
	"net/http"
	"os"

	"timesheets/batch"
	"timesheets/config"
	"timesheets/dashboard"
	"timesheets/database"
	"timesheets/handlers"
	"timesheets/middleware"
	"timesheets/models"
	"timesheets/timesheet"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)

	middleware.SetJWTSecret(cfg.JWTSecret)

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}

	validate := validator.New()

	timesheetSvc := timesheet.NewService(db, logger)
	batchSvc := batch.NewService(db, logger)
	dashboardSvc := dashboard.NewService(db, dashboard.NewNagerClient(cfg.HolidayCountry), logger)

	authHandler := &handlers.AuthHandler{Config: cfg, DB: db}
	timesheetHandler := &handlers.TimesheetHandler{Service: timesheetSvc, Validate: validate}
	entryHandler := &handlers.EntryHandler{Service: timesheetSvc, Validate: validate}
	batchHandler := &handlers.BatchHandler{Service: batchSvc, Validate: validate}
	dashboardHandler := &handlers.DashboardHandler{Service: dashboardSvc, Validate: validate}
	exportHandler := &handlers.ExportHandler{DB: db, Validate: validate, Log: logger}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	authHandler.RegisterPublicRoutes(router)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(db))

		authHandler.RegisterRoutes(r)
		timesheetHandler.RegisterRoutes(r)
		entryHandler.RegisterRoutes(r)
		batchHandler.RegisterRoutes(r)
		dashboardHandler.RegisterRoutes(r)

		// Admin and manager only
		r.Group(func(ar chi.Router) {
			ar.Use(middleware.RequireRole(models.RoleAdmin, models.RoleManager))
			exportHandler.RegisterRoutes(ar)
		})

		// Admin only
		r.Group(func(ar chi.Router) {
			ar.Use(middleware.RequireRole(models.RoleAdmin))
			entryHandler.RegisterAdminRoutes(ar)
			batchHandler.RegisterAdminRoutes(ar)
		})
	})

	logger.Info().Str("port", cfg.ServerPort).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.ServerPort, router); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var w io.Writer = os.Stdout
	if cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
