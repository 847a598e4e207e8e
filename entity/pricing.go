package entity

import "time"

// PricingSchedule holds the current price of a slot name and, optionally, a
// scheduled future price that applies to events on or after EffectiveFrom.
// Once the wall clock passes EffectiveFrom the repository promotes the future
// price into CurrentPrice and clears the future fields, so future-vs-current
// is always expressed relative to now.
type PricingSchedule struct {
	SlotName      SlotName   `json:"slot_name" db:"slot_name"`
	CurrentPrice  Money      `json:"current_price" db:"current_price"`
	FuturePrice   *Money     `json:"future_price,omitempty" db:"future_price"`
	EffectiveFrom *time.Time `json:"effective_from,omitempty" db:"effective_from"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// PriceOn returns the price that applies to an event held on eventDate given
// the schedule state as of the time of calculation.
func (s PricingSchedule) PriceOn(eventDate time.Time) Money {
	if s.FuturePrice == nil || s.EffectiveFrom == nil {
		return s.CurrentPrice
	}
	if !Day(eventDate).Before(Day(*s.EffectiveFrom)) {
		return *s.FuturePrice
	}
	return s.CurrentPrice
}
