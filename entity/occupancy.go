package entity

import (
	"sort"
	"time"
)

// DateOccupancy is the ops dashboard projection of one calendar date. It is
// derived from booking events and rebuildable; the authoritative conflict
// check always runs against the booking tables, never against this document.
type DateOccupancy struct {
	Date     string                          `json:"date"`
	Bookings map[string]DateOccupancyBooking `json:"bookings"`

	LastUpdate time.Time `json:"last_update"`
}

type DateOccupancyBooking struct {
	SlotIDs       []int64 `json:"slot_ids"`
	CustomerName  string  `json:"customer_name"`
	OccasionType  string  `json:"occasion_type"`
	TotalAmount   Money   `json:"total_amount"`
	BalanceAmount Money   `json:"balance_amount"`
}

func (d DateOccupancy) BookedSlotIDs() []int64 {
	var ids []int64
	for _, b := range d.Bookings {
		ids = append(ids, b.SlotIDs...)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
