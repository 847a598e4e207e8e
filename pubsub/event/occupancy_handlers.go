package event

import (
	"context"
	"fmt"

	"venuebook/entity"
)

// OccupancyReadModel is the projection store the handlers write into.
type OccupancyReadModel interface {
	Update(ctx context.Context, date string, fn func(entity.DateOccupancy) (entity.DateOccupancy, error)) error
}

type OccupancyHandlers struct {
	readModel OccupancyReadModel
}

func NewOccupancyHandlers(readModel OccupancyReadModel) OccupancyHandlers {
	return OccupancyHandlers{readModel: readModel}
}

func (h OccupancyHandlers) OnBookingMade(ctx context.Context, event *entity.BookingMade) error {
	err := h.readModel.Update(ctx, event.EventDate, func(occupancy entity.DateOccupancy) (entity.DateOccupancy, error) {
		occupancy.Bookings[event.BookingID] = entity.DateOccupancyBooking{
			SlotIDs:       event.SlotIDs,
			CustomerName:  event.CustomerName,
			OccasionType:  event.OccasionType,
			TotalAmount:   event.TotalAmount,
			BalanceAmount: event.BalanceAmount,
		}
		return occupancy, nil
	})
	if err != nil {
		return fmt.Errorf("could not project booking made: %w", err)
	}
	return nil
}

func (h OccupancyHandlers) OnBookingUpdated(ctx context.Context, event *entity.BookingUpdated) error {
	if event.PreviousEventDate != "" && event.PreviousEventDate != event.EventDate {
		err := h.readModel.Update(ctx, event.PreviousEventDate, func(occupancy entity.DateOccupancy) (entity.DateOccupancy, error) {
			delete(occupancy.Bookings, event.BookingID)
			return occupancy, nil
		})
		if err != nil {
			return fmt.Errorf("could not vacate previous date: %w", err)
		}
	}

	err := h.readModel.Update(ctx, event.EventDate, func(occupancy entity.DateOccupancy) (entity.DateOccupancy, error) {
		occupancy.Bookings[event.BookingID] = entity.DateOccupancyBooking{
			SlotIDs:       event.SlotIDs,
			CustomerName:  event.CustomerName,
			OccasionType:  event.OccasionType,
			TotalAmount:   event.TotalAmount,
			BalanceAmount: event.BalanceAmount,
		}
		return occupancy, nil
	})
	if err != nil {
		return fmt.Errorf("could not project booking updated: %w", err)
	}
	return nil
}

func (h OccupancyHandlers) OnBookingArchived(ctx context.Context, event *entity.BookingArchived) error {
	err := h.readModel.Update(ctx, event.EventDate, func(occupancy entity.DateOccupancy) (entity.DateOccupancy, error) {
		delete(occupancy.Bookings, event.BookingID)
		return occupancy, nil
	})
	if err != nil {
		return fmt.Errorf("could not project booking archived: %w", err)
	}
	return nil
}
