// Package httpapi serves the public climate API over Fiber.
package httpapi

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/halbgrad/climate-anomaly-service/internal/adapter/assethost"
	"github.com/halbgrad/climate-anomaly-service/internal/colormap"
	"github.com/halbgrad/climate-anomaly-service/internal/csvdata"
	"github.com/halbgrad/climate-anomaly-service/internal/domain"
	"github.com/halbgrad/climate-anomaly-service/internal/service"
)

var validate = validator.New()

// NewApp builds the Fiber application with middleware, error mapping, and
// all API routes registered.
func NewApp(svc *service.Service, log *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "climate-anomaly-service",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
			} else {
				log.Error("request failed", "path", c.Path(), "error", err)
				err = errors.New("internal server error")
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())

	RegisterRoutes(app, svc)
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc *service.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/stations", func(c *fiber.Ctx) error {
		stations, err := svc.Stations(c.Context())
		if err != nil {
			return httpError(err)
		}
		return c.JSON(stations)
	})

	v1.Get("/stations/:id/anomalies", handleAnomalies(svc))
	v1.Get("/stations/:id/threshold-days", handleThresholdDays(svc))
	v1.Get("/heatmap", handleHeatmap(svc))

	v1.Get("/schemes", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"schemes": colormap.SchemeNames()})
	})

	v1.Get("/live", func(c *fiber.Ctx) error {
		readings, err := svc.LiveReadings(c.Context())
		if err != nil {
			return httpError(err)
		}
		return c.JSON(readings)
	})

	v1.Get("/live/:station", func(c *fiber.Ctx) error {
		reading, err := svc.LiveReading(c.Context(), c.Params("station"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(reading)
	})
}

func handleAnomalies(svc *service.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q anomalyQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		day, err := domain.ParseMonthDay(q.Day)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		resp, err := svc.AnomalySeries(c.Context(), service.AnomalyQuery{
			StationID: c.Params("id"),
			Day:       day,
			Radius:    q.Window,
			Metric:    domain.MetricKey(q.Metric),
			Baseline:  domain.Years(q.BaselineFrom, q.BaselineTo),
		})
		if err != nil {
			return httpError(err)
		}
		return c.JSON(resp)
	}
}

func handleThresholdDays(svc *service.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q thresholdQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		mode, err := domain.ParseThresholdMode(q.Mode)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		resp, err := svc.ThresholdDays(c.Context(), c.Params("id"), domain.MetricKey(q.Metric), q.Threshold, mode)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(resp)
	}
}

func handleHeatmap(svc *service.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q heatmapQuery
		q.bind(c)
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		day, err := domain.ParseMonthDay(q.Day)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		fc, err := svc.Heatmap(c.Context(), day, domain.MetricKey(q.Metric), q.Scheme)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fc)
	}
}

// httpError maps service and domain sentinels onto HTTP statuses. Anything
// unmapped surfaces as a 500 through the app error handler.
func httpError(err error) error {
	switch {
	case errors.Is(err, service.ErrUnknownMetric),
		errors.Is(err, colormap.ErrUnknownScheme):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, assethost.ErrNotFound),
		errors.Is(err, csvdata.ErrNoRows),
		errors.Is(err, service.ErrLiveDisabled),
		errors.Is(err, service.ErrNoLiveReading):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNoPrimaryDay),
		errors.Is(err, domain.ErrInsufficientBaseline):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, csvdata.ErrHeaderMismatch):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, assethost.ErrUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}

// anomalyQuery holds query parameters for the anomaly-series endpoint.
type anomalyQuery struct {
	Day          string `validate:"required"`
	Window       int    `validate:"min=0,max=182"`
	Metric       string `validate:"required,oneof=tas tasmin tasmax hurs"`
	BaselineFrom int    `validate:"min=1700,max=2200"`
	BaselineTo   int    `validate:"min=1700,max=2200,gtefield=BaselineFrom"`
}

func (q *anomalyQuery) bind(c *fiber.Ctx) error {
	q.Day = c.Query("day")
	q.Metric = c.Query("metric", "tas")

	var err error
	if q.Window, err = intQuery(c, "window", 7); err != nil {
		return err
	}
	if q.BaselineFrom, err = intQuery(c, "baseline_from", 1961); err != nil {
		return err
	}
	if q.BaselineTo, err = intQuery(c, "baseline_to", 1990); err != nil {
		return err
	}
	return nil
}

// thresholdQuery holds query parameters for the threshold-days endpoint.
type thresholdQuery struct {
	Metric    string  `validate:"required,oneof=tas tasmin tasmax hurs"`
	Threshold float64 `validate:"min=-100,max=100"`
	Mode      string  `validate:"required,oneof=above below"`
}

func (q *thresholdQuery) bind(c *fiber.Ctx) error {
	q.Metric = c.Query("metric", "tasmax")
	q.Mode = c.Query("mode", "above")

	raw := c.Query("threshold")
	if raw == "" {
		return errors.New("threshold query parameter is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return errors.New("threshold must be a number")
	}
	q.Threshold = v
	return nil
}

// heatmapQuery holds query parameters for the district heatmap endpoint.
type heatmapQuery struct {
	Day    string `validate:"required"`
	Metric string `validate:"required,oneof=tas tasmin tasmax hurs"`
	Scheme string `validate:"required"`
}

func (q *heatmapQuery) bind(c *fiber.Ctx) {
	q.Day = c.Query("day")
	q.Metric = c.Query("metric", "tas")
	q.Scheme = c.Query("scheme", "Temperature")
}

// intQuery parses an optional integer query parameter.
func intQuery(c *fiber.Ctx, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return v, nil
}
