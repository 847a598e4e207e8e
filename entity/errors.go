package entity

import "errors"

var (
	// ErrSlotConflict is returned when another active booking already holds
	// one of the requested slots on the requested date.
	ErrSlotConflict = errors.New("slot already booked")

	// ErrNotFound is returned for booking ids that do not exist or were
	// already archived.
	ErrNotFound = errors.New("not found")

	// ErrUnknownSlotName indicates a pricing lookup for a slot name with no
	// catalog entry. This is a configuration problem, surfaced to staff.
	ErrUnknownSlotName = errors.New("unknown slot name")

	// ErrUnknownSlot indicates a slot id with no catalog entry.
	ErrUnknownSlot = errors.New("unknown slot")
)
