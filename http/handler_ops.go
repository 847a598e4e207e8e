package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"venuebook/entity"
)

func (s *Server) GetOccupancy(c echo.Context) error {
	date := c.Param("date")
	if _, err := time.Parse(entity.DateFormat, date); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be formatted as "+entity.DateFormat)
	}

	occupancy, err := s.occupancy.Get(c.Request().Context(), date)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, occupancy)
}

func (s *Server) GetOccupancyRange(c echo.Context) error {
	from, to, err := parseRange(c)
	if err != nil {
		return err
	}

	occupancies, err := s.occupancy.FindRange(c.Request().Context(), from, to)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"dates": occupancies})
}
