package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

// Event is implemented by everything published on the event bus. Internal
// events skip the shared "events" topic (and with it the data lake).
type Event interface {
	IsInternal() bool
}

// BookingMade is published from the same transaction that persists the
// booking, via the SQL outbox.
type BookingMade struct {
	Header EventHeader `json:"header"`

	BookingID     string  `json:"booking_id"`
	EventDate     string  `json:"event_date"`
	SlotIDs       []int64 `json:"slot_ids"`
	CustomerName  string  `json:"customer_name"`
	OccasionType  string  `json:"occasion_type"`
	TotalAmount   Money   `json:"total_amount"`
	BalanceAmount Money   `json:"balance_amount"`
}

func (BookingMade) IsInternal() bool { return false }

type BookingUpdated struct {
	Header EventHeader `json:"header"`

	BookingID     string  `json:"booking_id"`
	EventDate     string  `json:"event_date"`
	SlotIDs       []int64 `json:"slot_ids"`
	CustomerName  string  `json:"customer_name"`
	OccasionType  string  `json:"occasion_type"`
	TotalAmount   Money   `json:"total_amount"`
	BalanceAmount Money   `json:"balance_amount"`

	// Previous placement, so projections can vacate the old date.
	PreviousEventDate string  `json:"previous_event_date"`
	PreviousSlotIDs   []int64 `json:"previous_slot_ids"`
}

func (BookingUpdated) IsInternal() bool { return false }

type BookingArchived struct {
	Header EventHeader `json:"header"`

	BookingID string  `json:"booking_id"`
	EventDate string  `json:"event_date"`
	SlotIDs   []int64 `json:"slot_ids"`
}

func (BookingArchived) IsInternal() bool { return false }

type PricingScheduleUpdated struct {
	Header EventHeader `json:"header"`

	SlotName      SlotName   `json:"slot_name"`
	CurrentPrice  Money      `json:"current_price"`
	FuturePrice   *Money     `json:"future_price,omitempty"`
	EffectiveFrom *time.Time `json:"effective_from,omitempty"`
}

func (PricingScheduleUpdated) IsInternal() bool { return false }

// DataLakeEvent is the archived form of any published event.
type DataLakeEvent struct {
	ID          string    `db:"event_id"`
	PublishedAt time.Time `db:"published_at"`
	Name        string    `db:"event_name"`
	Payload     []byte    `db:"event_payload"`
}
