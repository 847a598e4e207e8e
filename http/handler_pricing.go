package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"venuebook/entity"
)

func (s *Server) GetPricing(c echo.Context) error {
	schedules, err := s.schedules.List(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"schedules": schedules})
}

type pricingRequest struct {
	CurrentPrice  int64  `json:"current_price"`
	FuturePrice   *int64 `json:"future_price"`
	EffectiveFrom string `json:"effective_from"`
}

// PutPricing sets a slot's schedule: the price that applies now, plus an
// optional future price with the date it starts applying to event dates.
func (s *Server) PutPricing(c echo.Context) error {
	ctx := c.Request().Context()
	slotName := entity.SlotName(c.Param("slot_name"))

	if err := s.knownSlotName(ctx, slotName); err != nil {
		return err
	}

	var req pricingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var verrs entity.ValidationErrors
	if req.CurrentPrice <= 0 {
		verrs = append(verrs, entity.FieldError{
			Field: "current_price", Rule: entity.RuleInvalidValue, Message: "price must be positive",
		})
	}
	if (req.FuturePrice == nil) != (req.EffectiveFrom == "") {
		verrs = append(verrs, entity.FieldError{
			Field: "future_price", Rule: entity.RuleRequired,
			Message: "future price and effective date must be set together",
		})
	}

	var futurePrice *entity.Money
	var effectiveFrom *time.Time
	if req.FuturePrice != nil && req.EffectiveFrom != "" {
		if *req.FuturePrice <= 0 {
			verrs = append(verrs, entity.FieldError{
				Field: "future_price", Rule: entity.RuleInvalidValue, Message: "price must be positive",
			})
		}
		from, err := time.Parse(entity.DateFormat, req.EffectiveFrom)
		if err != nil {
			verrs = append(verrs, entity.FieldError{
				Field: "effective_from", Rule: entity.RuleFormat,
				Message: fmt.Sprintf("effective date must be formatted as %s", entity.DateFormat),
			})
		} else {
			local := s.now().In(s.location)
			today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
			if !entity.Day(from).After(today) {
				verrs = append(verrs, entity.FieldError{
					Field: "effective_from", Rule: entity.RuleInvalidValue,
					Message: "effective date must be in the future",
				})
			} else {
				price := entity.Money(*req.FuturePrice)
				futurePrice = &price
				day := entity.Day(from)
				effectiveFrom = &day
			}
		}
	}
	if len(verrs) > 0 {
		return verrs
	}

	schedule := entity.PricingSchedule{
		SlotName:      slotName,
		CurrentPrice:  entity.Money(req.CurrentPrice),
		FuturePrice:   futurePrice,
		EffectiveFrom: effectiveFrom,
	}
	if err := s.schedules.Set(ctx, schedule); err != nil {
		return err
	}

	saved, err := s.schedules.GetBySlotName(ctx, slotName)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, saved)
}

func (s *Server) knownSlotName(c context.Context, slotName entity.SlotName) error {
	defs, err := s.catalog.List(c)
	if err != nil {
		return err
	}
	for _, def := range defs {
		if def.Name == slotName {
			return nil
		}
	}
	return fmt.Errorf("no slot named %q: %w", slotName, entity.ErrUnknownSlotName)
}
