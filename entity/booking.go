package entity

import (
	"time"
)

// Money is an amount in whole currency units. The venue operates in a single
// currency, so no currency code is carried around.
type Money int64

type PaymentType string

const (
	PaymentTypeAdvance PaymentType = "advance"
	PaymentTypeFull    PaymentType = "full"
)

type PaymentMode string

const (
	PaymentModeBank PaymentMode = "bank"
	PaymentModeCash PaymentMode = "cash"
	PaymentModeUPI  PaymentMode = "upi"
)

// Booking is one confirmed reservation of one or more slots on a single date.
// TotalAmount and BalanceAmount are locked in at confirmation time; later
// pricing schedule changes never alter them.
type Booking struct {
	BookingID    string    `json:"booking_id" db:"booking_id"`
	EventDate    time.Time `json:"event_date" db:"event_date"`
	CustomerName string    `json:"customer_name" db:"customer_name"`
	Phone1       string    `json:"phone1" db:"phone1"`
	Phone2       string    `json:"phone2,omitempty" db:"phone2"`
	GroomName    string    `json:"groom_name,omitempty" db:"groom_name"`
	BrideName    string    `json:"bride_name,omitempty" db:"bride_name"`
	Address      string    `json:"address" db:"address"`
	OccasionType string    `json:"occasion_type" db:"occasion_type"`
	Notes        string    `json:"notes,omitempty" db:"notes"`

	SlotIDs []int64 `json:"slot_ids"`

	PaymentType   PaymentType `json:"payment_type" db:"payment_type"`
	PaymentMode   PaymentMode `json:"payment_mode" db:"payment_mode"`
	AdvanceAmount Money       `json:"advance_amount" db:"advance_amount"`
	TotalAmount   Money       `json:"total_amount" db:"total_amount"`
	BalanceAmount Money       `json:"balance_amount" db:"balance_amount"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DeletedBooking is the archived copy of a soft-deleted booking. Archive rows
// are append-only and are never edited or removed.
type DeletedBooking struct {
	DeletedBookingID  string `json:"deleted_booking_id" db:"deleted_booking_id"`
	OriginalBookingID string `json:"original_booking_id" db:"original_booking_id"`

	EventDate    time.Time `json:"event_date" db:"event_date"`
	CustomerName string    `json:"customer_name" db:"customer_name"`
	Phone1       string    `json:"phone1" db:"phone1"`
	Phone2       string    `json:"phone2,omitempty" db:"phone2"`
	GroomName    string    `json:"groom_name,omitempty" db:"groom_name"`
	BrideName    string    `json:"bride_name,omitempty" db:"bride_name"`
	Address      string    `json:"address" db:"address"`
	OccasionType string    `json:"occasion_type" db:"occasion_type"`
	Notes        string    `json:"notes,omitempty" db:"notes"`

	SlotIDs []int64 `json:"slot_ids"`

	PaymentType   PaymentType `json:"payment_type" db:"payment_type"`
	PaymentMode   PaymentMode `json:"payment_mode" db:"payment_mode"`
	AdvanceAmount Money       `json:"advance_amount" db:"advance_amount"`
	TotalAmount   Money       `json:"total_amount" db:"total_amount"`
	BalanceAmount Money       `json:"balance_amount" db:"balance_amount"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	DeletedAt time.Time `json:"deleted_at" db:"deleted_at"`
}

// BookingIntent is the untrusted input for a create or update. Everything the
// client claims to have computed (totals, availability) is re-derived server
// side.
type BookingIntent struct {
	EventDate    time.Time `json:"event_date"`
	CustomerName string    `json:"customer_name"`
	Phone1       string    `json:"phone1"`
	Phone2       string    `json:"phone2"`
	GroomName    string    `json:"groom_name"`
	BrideName    string    `json:"bride_name"`
	Address      string    `json:"address"`
	OccasionType string    `json:"occasion_type"`
	Notes        string    `json:"notes"`

	SlotIDs []int64 `json:"slot_ids"`

	PaymentType   string `json:"payment_type"`
	PaymentMode   string `json:"payment_mode"`
	AdvanceAmount Money  `json:"advance_amount"`
}

// BookingFilter narrows ListBookings results for the reporting read path.
type BookingFilter struct {
	OccasionType string
}

// Balance returns totalAmount minus what has been paid. Full payments settle
// the whole total upfront.
func Balance(paymentType PaymentType, total, advance Money) Money {
	if paymentType == PaymentTypeFull {
		return 0
	}
	return total - advance
}

// Day truncates t to the calendar day in UTC. Event dates carry no
// time-of-day component.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

const DateFormat = "2006-01-02"
