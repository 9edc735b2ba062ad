package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"

	httpapi "github.com/i474232898/weather-report/internal/api/http"
	"github.com/i474232898/weather-report/internal/config"
	"github.com/i474232898/weather-report/internal/store"
	"github.com/i474232898/weather-report/internal/weather"
	"github.com/i474232898/weather-report/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(log)

	if cfg.WeatherAPIKey == "" {
		log.Warn("WEATHER_API_KEY not found in environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cache store: PostgreSQL when configured, in-memory otherwise.
	var cache weather.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			log.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		cache = pg
		log.Info("using postgres cache store")
	} else {
		cache = store.NewMemoryStore()
		log.Info("DATABASE_URL not set; using in-memory cache store")
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider := providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey,
		providers.WithBaseURL(cfg.WeatherAPIBaseURL),
		providers.WithRateLimit(cfg.ProviderRPS, cfg.ProviderBurst),
		providers.WithBackoff(providers.BackoffConfig{
			MaxRetries:      cfg.ProviderMaxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}),
	)

	// Core service orchestrating provider and store.
	service := weather.NewService(cache, provider,
		weather.WithCities(cfg.Cities),
		weather.WithForecastDays(cfg.ForecastDays),
		weather.WithConcurrency(cfg.FetchConcurrency),
		weather.WithLogger(log),
	)

	app := fiber.New(fiber.Config{
		AppName:               "weather-report",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// A cold refresh fans out to every configured city.
		WriteTimeout: 2 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-report",
		})
	})

	httpapi.RegisterRoutes(app, service, log)

	go func() {
		log.Info("listening", "port", cfg.Port, "cities", len(cfg.Cities))
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}
