package httpapi

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-report/internal/weather"
)

var validate = validator.New()

// Reporter produces the current weather report. *weather.Service satisfies it.
type Reporter interface {
	Report(ctx context.Context) ([]weather.Record, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, reporter Reporter, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	report := func(c *fiber.Ctx) error {
		records, err := reporter.Report(c.UserContext())
		if err != nil {
			logger.Error("error fetching weather data", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to fetch weather data",
			})
		}
		return c.JSON(records)
	}

	app.Get("/api/weather", report)

	v1 := app.Group("/api/v1")
	v1.Get("/weather", report)

	v1.Get("/weather/:city", func(c *fiber.Ctx) error {
		q, err := parseCityParam(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := reporter.Report(c.UserContext())
		if err != nil {
			logger.Error("error fetching weather data", "city", q.City, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		for _, r := range records {
			if strings.EqualFold(r.City, q.City) {
				return c.JSON(r)
			}
		}
		return fiber.NewError(fiber.StatusNotFound, "no weather data for requested city")
	})
}

// cityQuery holds the path parameter identifying a city.
type cityQuery struct {
	City string `validate:"required"`
}

func parseCityParam(c *fiber.Ctx) (cityQuery, error) {
	var q cityQuery

	// Params are URL-encoded ("New%20York").
	raw := c.Params("city")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	q.City = strings.TrimSpace(raw)

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}
