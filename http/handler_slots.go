package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"venuebook/entity"
)

type slotResponse struct {
	SlotID       int64  `json:"slot_id"`
	Name         string `json:"name"`
	Label        string `json:"label"`
	TimeRange    string `json:"time_range"`
	BasePrice    int64  `json:"base_price"`
	CurrentPrice int64  `json:"current_price"`
}

// GetSlots lists the catalog with the price each slot resolves to today.
func (s *Server) GetSlots(c echo.Context) error {
	ctx := c.Request().Context()

	defs, err := s.catalog.List(ctx)
	if err != nil {
		return err
	}

	today := entity.Day(s.now().In(s.location))

	slots := make([]slotResponse, 0, len(defs))
	for _, def := range defs {
		price, err := s.resolver.PriceForSlot(ctx, def, today)
		if err != nil {
			return err
		}
		slots = append(slots, slotResponse{
			SlotID:       def.SlotID,
			Name:         string(def.Name),
			Label:        def.Label,
			TimeRange:    def.TimeRange,
			BasePrice:    int64(def.BasePrice),
			CurrentPrice: int64(price),
		})
	}

	return c.JSON(http.StatusOK, map[string]any{"slots": slots})
}

type slotRequest struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	TimeRange string `json:"time_range"`
	BasePrice int64  `json:"base_price"`
}

func (s *Server) PutSlot(c echo.Context) error {
	slotID, err := strconv.ParseInt(c.Param("slot_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "slot_id must be an integer")
	}

	var req slotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var verrs entity.ValidationErrors
	if req.Name == "" {
		verrs = append(verrs, entity.FieldError{
			Field: "name", Rule: entity.RuleRequired, Message: "slot name is required",
		})
	}
	if req.Label == "" {
		verrs = append(verrs, entity.FieldError{
			Field: "label", Rule: entity.RuleRequired, Message: "slot label is required",
		})
	}
	if req.BasePrice <= 0 {
		verrs = append(verrs, entity.FieldError{
			Field: "base_price", Rule: entity.RuleInvalidValue, Message: "base price must be positive",
		})
	}
	if len(verrs) > 0 {
		return verrs
	}

	def := entity.SlotDefinition{
		SlotID:    slotID,
		Name:      entity.SlotName(req.Name),
		Label:     req.Label,
		TimeRange: req.TimeRange,
		BasePrice: entity.Money(req.BasePrice),
	}
	if err := s.catalog.Upsert(c.Request().Context(), def); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, def)
}
