package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"venuebook/entity"
)

func (s *Server) GetAvailability(c echo.Context) error {
	date, err := time.Parse(entity.DateFormat, c.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be formatted as "+entity.DateFormat)
	}

	availability, err := s.bookings.AvailabilityForDate(c.Request().Context(), date)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, availability)
}
