package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lithammer/shortuuid/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"venuebook/booking"
	"venuebook/entity"
	"venuebook/log"
)

// OccupancyReadModel serves the ops dashboard projection.
type OccupancyReadModel interface {
	Get(ctx context.Context, date string) (entity.DateOccupancy, error)
	FindRange(ctx context.Context, from, to time.Time) ([]entity.DateOccupancy, error)
}

// SlotCatalogAdmin extends the read-side catalog with the staff upsert.
type SlotCatalogAdmin interface {
	booking.SlotCatalog
	Upsert(ctx context.Context, def entity.SlotDefinition) error
}

type Server struct {
	addr string
	e    *echo.Echo

	bookings  *booking.Service
	catalog   SlotCatalogAdmin
	resolver  *booking.PriceResolver
	schedules booking.SchedulesRepository
	occupancy OccupancyReadModel

	location *time.Location
	now      func() time.Time
}

func NewServer(
	addr string,
	bookings *booking.Service,
	catalog SlotCatalogAdmin,
	resolver *booking.PriceResolver,
	schedules booking.SchedulesRepository,
	occupancy OccupancyReadModel,
	location *time.Location,
	now func() time.Time,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	server := &Server{
		addr:      addr,
		e:         e,
		bookings:  bookings,
		catalog:   catalog,
		resolver:  resolver,
		schedules: schedules,
		occupancy: occupancy,
		location:  location,
		now:       now,
	}

	e.HTTPErrorHandler = server.handleError

	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("venuebook"))
	e.Use(correlationMiddleware)
	e.Use(requestLogMiddleware)

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/bookings", server.PostBooking)
	e.GET("/bookings", server.GetBookings)
	e.GET("/bookings/archive", server.GetArchivedBookings)
	e.GET("/bookings/:booking_id", server.GetBooking)
	e.PUT("/bookings/:booking_id", server.PutBooking)
	e.DELETE("/bookings/:booking_id", server.DeleteBooking)

	e.GET("/availability/:date", server.GetAvailability)

	e.GET("/slots", server.GetSlots)
	e.PUT("/slots/:slot_id", server.PutSlot)

	e.GET("/pricing", server.GetPricing)
	e.PUT("/pricing/:slot_name", server.PutPricing)

	e.GET("/ops/occupancy", server.GetOccupancyRange)
	e.GET("/ops/occupancy/:date", server.GetOccupancy)

	return server
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		if err := s.e.Shutdown(context.Background()); err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()

	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleError maps the domain error taxonomy onto status codes. Validation
// failures keep their field-level structure all the way to the client.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var verrs entity.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		_ = c.JSON(http.StatusBadRequest, map[string]any{"errors": verrs})
	case errors.Is(err, entity.ErrSlotConflict):
		_ = c.JSON(http.StatusConflict, map[string]any{"message": "slot already booked, refresh availability and pick another"})
	case errors.Is(err, entity.ErrNotFound):
		_ = c.JSON(http.StatusNotFound, map[string]any{"message": "not found"})
	case errors.Is(err, entity.ErrUnknownSlot), errors.Is(err, entity.ErrUnknownSlotName):
		_ = c.JSON(http.StatusUnprocessableEntity, map[string]any{"message": err.Error()})
	default:
		s.e.DefaultHTTPErrorHandler(err, c)
	}
}

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		correlationID := c.Request().Header.Get("Correlation-ID")
		if correlationID == "" {
			correlationID = shortuuid.New()
		}

		ctx := log.ContextWithCorrelationID(c.Request().Context(), correlationID)
		ctx = log.ToContext(ctx, logrus.WithField("correlation_id", correlationID))
		c.SetRequest(c.Request().WithContext(ctx))

		c.Response().Header().Set("Correlation-ID", correlationID)
		return next(c)
	}
}

func requestLogMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		entry := log.FromContext(c.Request().Context()).WithFields(logrus.Fields{
			"method":   c.Request().Method,
			"path":     c.Request().URL.Path,
			"status":   c.Response().Status,
			"duration": time.Since(start).String(),
		})
		if err != nil {
			entry.WithError(err).Warn("request failed")
		} else {
			entry.Info("request handled")
		}

		return err
	}
}
