package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"venuebook/entity"
	"venuebook/log"
	"venuebook/metrics"
)

// BookingsRepository is the persistence boundary for the booking aggregate.
// Create and Update are atomic over the whole slot selection and return
// entity.ErrSlotConflict when another active booking holds one of the slots.
type BookingsRepository interface {
	Create(ctx context.Context, booking entity.Booking) error
	Update(ctx context.Context, booking entity.Booking) error
	Archive(ctx context.Context, bookingID string) (entity.DeletedBooking, error)
	FindByID(ctx context.Context, bookingID string) (entity.Booking, error)
	FindByDate(ctx context.Context, date time.Time) ([]entity.Booking, error)
	FindByDateRange(ctx context.Context, from, to time.Time, filter entity.BookingFilter) ([]entity.Booking, error)
	FindArchived(ctx context.Context, from, to time.Time) ([]entity.DeletedBooking, error)
	BookedSlotIDs(ctx context.Context, date time.Time, excludeBookingID string) ([]int64, error)
}

// Availability is the per-date view the calendar renders from.
type Availability struct {
	Date               string  `json:"date"`
	BookedSlotIDs      []int64 `json:"booked_slot_ids"`
	AvailableSlotIDs   []int64 `json:"available_slot_ids"`
	OpenForNewBookings bool    `json:"open_for_new_bookings"`
}

// Service is the booking orchestrator: it validates the intent, locks in the
// price, and hands the storage layer one atomic multi-slot commit.
type Service struct {
	repo      BookingsRepository
	catalog   SlotCatalog
	validator *Validator
	location  *time.Location
	now       func() time.Time
}

func NewService(
	repo BookingsRepository,
	catalog SlotCatalog,
	validator *Validator,
	location *time.Location,
	now func() time.Time,
) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalog,
		validator: validator,
		location:  location,
		now:       now,
	}
}

// CreateBooking validates the intent and persists one booking holding the
// whole slot selection. The total is resolved once, here, and stored
// immutably; later pricing changes never touch it.
func (s *Service) CreateBooking(ctx context.Context, intent entity.BookingIntent) (entity.Booking, error) {
	intent = normalize(intent)

	total, verrs, err := s.validator.Validate(ctx, intent, "")
	if err != nil {
		return entity.Booking{}, fmt.Errorf("could not validate booking intent: %w", err)
	}
	if len(verrs) > 0 {
		return entity.Booking{}, verrs
	}

	booking := bookingFromIntent(uuid.NewString(), intent, total)

	if err := s.repo.Create(ctx, booking); err != nil {
		if errors.Is(err, entity.ErrSlotConflict) {
			metrics.BookingConflicts.Inc()
		}
		return entity.Booking{}, err
	}
	metrics.BookingsConfirmed.Inc()

	return s.reload(ctx, booking)
}

// UpdateBooking re-runs the same validation path with the booking itself
// excluded from the conflict check and re-locks the price for the new
// selection.
func (s *Service) UpdateBooking(ctx context.Context, bookingID string, intent entity.BookingIntent) (entity.Booking, error) {
	if _, err := s.repo.FindByID(ctx, bookingID); err != nil {
		return entity.Booking{}, err
	}

	intent = normalize(intent)

	total, verrs, err := s.validator.Validate(ctx, intent, bookingID)
	if err != nil {
		return entity.Booking{}, fmt.Errorf("could not validate booking intent: %w", err)
	}
	if len(verrs) > 0 {
		return entity.Booking{}, verrs
	}

	booking := bookingFromIntent(bookingID, intent, total)

	if err := s.repo.Update(ctx, booking); err != nil {
		if errors.Is(err, entity.ErrSlotConflict) {
			metrics.BookingConflicts.Inc()
		}
		return entity.Booking{}, err
	}
	metrics.BookingsUpdated.Inc()

	return s.reload(ctx, booking)
}

// reload fetches the stored row for its database-assigned timestamps. The
// booking is already committed at this point, so a failing read must not turn
// into a client-facing error.
func (s *Service) reload(ctx context.Context, booking entity.Booking) (entity.Booking, error) {
	stored, err := s.repo.FindByID(ctx, booking.BookingID)
	if err != nil {
		log.FromContext(ctx).WithError(err).
			WithField("booking_id", booking.BookingID).
			Warn("could not reload committed booking")
		return booking, nil
	}
	return stored, nil
}

// ArchiveBooking soft-deletes: the booking moves to the archive and its slots
// free up. History is never erased.
func (s *Service) ArchiveBooking(ctx context.Context, bookingID string) (entity.DeletedBooking, error) {
	archived, err := s.repo.Archive(ctx, bookingID)
	if err != nil {
		return entity.DeletedBooking{}, err
	}
	metrics.BookingsArchived.Inc()
	return archived, nil
}

func (s *Service) GetBooking(ctx context.Context, bookingID string) (entity.Booking, error) {
	return s.repo.FindByID(ctx, bookingID)
}

func (s *Service) BookingsForDate(ctx context.Context, date time.Time) ([]entity.Booking, error) {
	return s.repo.FindByDate(ctx, date)
}

func (s *Service) ListBookings(ctx context.Context, from, to time.Time, filter entity.BookingFilter) ([]entity.Booking, error) {
	return s.repo.FindByDateRange(ctx, from, to, filter)
}

func (s *Service) ListArchivedBookings(ctx context.Context, from, to time.Time) ([]entity.DeletedBooking, error) {
	return s.repo.FindArchived(ctx, from, to)
}

// AvailabilityForDate derives the calendar view: slot-level availability plus
// the date-level "open for new business" rule (past dates are closed even
// when all slots are free).
func (s *Service) AvailabilityForDate(ctx context.Context, date time.Time) (Availability, error) {
	booked, err := s.repo.BookedSlotIDs(ctx, date, "")
	if err != nil {
		return Availability{}, err
	}

	defs, err := s.catalog.List(ctx)
	if err != nil {
		return Availability{}, err
	}

	bookedSet := map[int64]bool{}
	for _, id := range booked {
		bookedSet[id] = true
	}

	available := make([]int64, 0, len(defs))
	for _, def := range defs {
		if !bookedSet[def.SlotID] {
			available = append(available, def.SlotID)
		}
	}

	local := s.now().In(s.location)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	return Availability{
		Date:               date.Format(entity.DateFormat),
		BookedSlotIDs:      booked,
		AvailableSlotIDs:   available,
		OpenForNewBookings: !entity.Day(date).Before(today),
	}, nil
}

func bookingFromIntent(bookingID string, intent entity.BookingIntent, total entity.Money) entity.Booking {
	paymentType := entity.PaymentType(intent.PaymentType)
	advance := intent.AdvanceAmount
	if paymentType == entity.PaymentTypeFull {
		advance = 0
	}

	return entity.Booking{
		BookingID:     bookingID,
		EventDate:     entity.Day(intent.EventDate),
		CustomerName:  intent.CustomerName,
		Phone1:        intent.Phone1,
		Phone2:        intent.Phone2,
		GroomName:     intent.GroomName,
		BrideName:     intent.BrideName,
		Address:       intent.Address,
		OccasionType:  intent.OccasionType,
		Notes:         intent.Notes,
		SlotIDs:       intent.SlotIDs,
		PaymentType:   paymentType,
		PaymentMode:   entity.PaymentMode(intent.PaymentMode),
		AdvanceAmount: advance,
		TotalAmount:   total,
		BalanceAmount: entity.Balance(paymentType, total, advance),
	}
}

// normalize maps the untrusted wire shape onto the canonical booking shape:
// trimmed fields, no alternative field spellings beyond this point.
func normalize(intent entity.BookingIntent) entity.BookingIntent {
	intent.CustomerName = strings.TrimSpace(intent.CustomerName)
	intent.Phone1 = strings.TrimSpace(intent.Phone1)
	intent.Phone2 = strings.TrimSpace(intent.Phone2)
	intent.GroomName = strings.TrimSpace(intent.GroomName)
	intent.BrideName = strings.TrimSpace(intent.BrideName)
	intent.Address = strings.TrimSpace(intent.Address)
	intent.OccasionType = strings.TrimSpace(intent.OccasionType)
	intent.Notes = strings.TrimSpace(intent.Notes)
	intent.PaymentType = strings.TrimSpace(intent.PaymentType)
	intent.PaymentMode = strings.TrimSpace(intent.PaymentMode)
	return intent
}
