package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venuebook/entity"
)

// SlotCatalog is the static set of bookable slot definitions.
type SlotCatalog interface {
	List(ctx context.Context) ([]entity.SlotDefinition, error)
	Get(ctx context.Context, slotID int64) (entity.SlotDefinition, error)
}

// SchedulesRepository stores per-slot-name pricing schedules. Reads see
// already-rolled-over state (lazy promotion happens in the repository).
type SchedulesRepository interface {
	List(ctx context.Context) ([]entity.PricingSchedule, error)
	GetBySlotName(ctx context.Context, slotName entity.SlotName) (entity.PricingSchedule, error)
	Set(ctx context.Context, schedule entity.PricingSchedule) error
}

// PriceResolver answers "what does this slot cost for an event on this date".
// A schedule's future price applies to event dates on or after its effective
// date; without a schedule the catalog base price is the fallback.
type PriceResolver struct {
	catalog   SlotCatalog
	schedules SchedulesRepository
}

func NewPriceResolver(catalog SlotCatalog, schedules SchedulesRepository) *PriceResolver {
	return &PriceResolver{catalog: catalog, schedules: schedules}
}

// ResolvePrice resolves by slot name. Unknown names are a configuration
// problem, not a zero price.
func (r *PriceResolver) ResolvePrice(ctx context.Context, slotName entity.SlotName, eventDate time.Time) (entity.Money, error) {
	schedule, err := r.schedules.GetBySlotName(ctx, slotName)
	if err == nil {
		return schedule.PriceOn(eventDate), nil
	}
	if !errors.Is(err, entity.ErrNotFound) {
		return 0, err
	}

	// no schedule yet, fall back to the catalog base price
	defs, err := r.catalog.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, def := range defs {
		if def.Name == slotName {
			return def.BasePrice, nil
		}
	}
	return 0, fmt.Errorf("no slot named %q: %w", slotName, entity.ErrUnknownSlotName)
}

// PriceForSlot resolves the price of a known catalog slot.
func (r *PriceResolver) PriceForSlot(ctx context.Context, def entity.SlotDefinition, eventDate time.Time) (entity.Money, error) {
	schedule, err := r.schedules.GetBySlotName(ctx, def.Name)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return def.BasePrice, nil
		}
		return 0, err
	}
	return schedule.PriceOn(eventDate), nil
}

// Quote sums the resolved prices of the given slots for one event date.
func (r *PriceResolver) Quote(ctx context.Context, defs []entity.SlotDefinition, eventDate time.Time) (entity.Money, error) {
	var total entity.Money
	for _, def := range defs {
		price, err := r.PriceForSlot(ctx, def, eventDate)
		if err != nil {
			return 0, err
		}
		total += price
	}
	return total, nil
}
