package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuebook/db/bookings"
	"venuebook/entity"
)

func newBooking(eventDate time.Time, slotIDs []int64) entity.Booking {
	return entity.Booking{
		BookingID:     uuid.NewString(),
		EventDate:     entity.Day(eventDate),
		CustomerName:  "Asha Verma",
		Phone1:        "9876543210",
		Address:       "12 MG Road, Pune",
		OccasionType:  "wedding",
		SlotIDs:       slotIDs,
		PaymentType:   entity.PaymentTypeAdvance,
		PaymentMode:   entity.PaymentModeUPI,
		AdvanceAmount: 25000,
		TotalAmount:   90000,
		BalanceAmount: 65000,
	}
}

func TestBookingsRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	eventDate := time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC)
	booking := newBooking(eventDate, []int64{1, 2})

	require.NoError(t, repo.Create(ctx, booking))

	stored, err := repo.FindByID(ctx, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, booking.BookingID, stored.BookingID)
	assert.Equal(t, entity.Day(eventDate), stored.EventDate)
	assert.Equal(t, []int64{1, 2}, stored.SlotIDs)
	assert.Equal(t, entity.Money(90000), stored.TotalAmount)
	assert.Equal(t, entity.Money(65000), stored.BalanceAmount)
	assert.False(t, stored.CreatedAt.IsZero())

	booked, err := repo.BookedSlotIDs(ctx, eventDate, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, booked)

	byDate, err := repo.FindByDate(ctx, eventDate)
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, booking.BookingID, byDate[0].BookingID)
}

func TestBookingsRepository_Create_slotConflict(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	eventDate := time.Date(2030, 2, 14, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newBooking(eventDate, []int64{1})))

	err := repo.Create(ctx, newBooking(eventDate, []int64{1}))
	assert.ErrorIs(t, err, entity.ErrSlotConflict)

	// a different slot on the same date is fine
	require.NoError(t, repo.Create(ctx, newBooking(eventDate, []int64{2})))

	// the same slot on a different date is fine
	require.NoError(t, repo.Create(ctx, newBooking(eventDate.AddDate(0, 0, 1), []int64{1})))
}

func TestBookingsRepository_Create_concurrent(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	eventDate := time.Date(2030, 10, 3, 0, 0, 0, 0, time.UTC)

	// two bookings race for the same slot; exactly one may win
	start := make(chan struct{})
	errs := make(chan error, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs <- repo.Create(ctx, newBooking(eventDate, []int64{1}))
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var conflicts, successes int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, entity.ErrSlotConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	booked, err := repo.BookedSlotIDs(ctx, eventDate, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, booked)
}

func TestBookingsRepository_Create_multiSlotAtomicity(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	eventDate := time.Date(2030, 3, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newBooking(eventDate, []int64{2})))

	// {1,2} must fail as a whole: slot 1 stays free
	err := repo.Create(ctx, newBooking(eventDate, []int64{1, 2}))
	require.ErrorIs(t, err, entity.ErrSlotConflict)

	booked, err := repo.BookedSlotIDs(ctx, eventDate, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, booked)

	require.NoError(t, repo.Create(ctx, newBooking(eventDate, []int64{1})))
}

func TestBookingsRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	eventDate := time.Date(2030, 4, 18, 0, 0, 0, 0, time.UTC)
	newDate := eventDate.AddDate(0, 0, 2)

	booking := newBooking(eventDate, []int64{1, 2})
	require.NoError(t, repo.Create(ctx, booking))

	booking.EventDate = newDate
	booking.SlotIDs = []int64{3}
	booking.CustomerName = "Ravi Kumar"
	booking.TotalAmount = 45000
	booking.BalanceAmount = 20000
	require.NoError(t, repo.Update(ctx, booking))

	stored, err := repo.FindByID(ctx, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, entity.Day(newDate), stored.EventDate)
	assert.Equal(t, []int64{3}, stored.SlotIDs)
	assert.Equal(t, "Ravi Kumar", stored.CustomerName)
	assert.Equal(t, entity.Money(45000), stored.TotalAmount)

	// the old placement is fully released
	booked, err := repo.BookedSlotIDs(ctx, eventDate, "")
	require.NoError(t, err)
	assert.Empty(t, booked)
}

func TestBookingsRepository_Update_ownSlotsDontConflict(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	eventDate := time.Date(2030, 5, 25, 0, 0, 0, 0, time.UTC)

	booking := newBooking(eventDate, []int64{1, 2})
	require.NoError(t, repo.Create(ctx, booking))

	// keep slot 1, drop 2, add 3
	booking.SlotIDs = []int64{1, 3}
	require.NoError(t, repo.Update(ctx, booking))

	booked, err := repo.BookedSlotIDs(ctx, eventDate, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, booked)
}

func TestBookingsRepository_Update_conflictWithOther(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	eventDate := time.Date(2030, 6, 7, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newBooking(eventDate, []int64{1})))

	other := newBooking(eventDate, []int64{2})
	require.NoError(t, repo.Create(ctx, other))

	other.SlotIDs = []int64{1, 2}
	err := repo.Update(ctx, other)
	assert.ErrorIs(t, err, entity.ErrSlotConflict)
}

func TestBookingsRepository_Update_notFound(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	err := repo.Update(ctx, newBooking(time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC), []int64{1}))
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestBookingsRepository_Archive(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	eventDate := time.Date(2030, 8, 30, 0, 0, 0, 0, time.UTC)
	booking := newBooking(eventDate, []int64{1, 2})
	require.NoError(t, repo.Create(ctx, booking))

	archived, err := repo.Archive(ctx, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, booking.BookingID, archived.OriginalBookingID)
	assert.Equal(t, []int64{1, 2}, archived.SlotIDs)
	assert.Equal(t, entity.Money(90000), archived.TotalAmount)
	assert.False(t, archived.DeletedAt.IsZero())

	_, err = repo.FindByID(ctx, booking.BookingID)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	// the slots free up immediately
	booked, err := repo.BookedSlotIDs(ctx, eventDate, "")
	require.NoError(t, err)
	assert.Empty(t, booked)

	// the archived copy stays findable
	stored, err := repo.FindArchivedByOriginalID(ctx, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, archived.DeletedBookingID, stored.DeletedBookingID)

	all, err := repo.FindArchived(ctx, eventDate.AddDate(0, 0, -1), eventDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, booking.BookingID, all[0].OriginalBookingID)

	err = repo.Create(ctx, newBooking(eventDate, []int64{1, 2}))
	assert.NoError(t, err)
}

func TestBookingsRepository_Archive_notFound(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	_, err := repo.Archive(ctx, uuid.NewString())
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestBookingsRepository_FindByDateRange(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	first := newBooking(time.Date(2030, 9, 10, 0, 0, 0, 0, time.UTC), []int64{1})
	require.NoError(t, repo.Create(ctx, first))

	second := newBooking(time.Date(2030, 9, 12, 0, 0, 0, 0, time.UTC), []int64{1})
	second.OccasionType = "birthday"
	require.NoError(t, repo.Create(ctx, second))

	from := time.Date(2030, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2030, 9, 30, 0, 0, 0, 0, time.UTC)

	all, err := repo.FindByDateRange(ctx, from, to, entity.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	birthdays, err := repo.FindByDateRange(ctx, from, to, entity.BookingFilter{OccasionType: "birthday"})
	require.NoError(t, err)
	require.Len(t, birthdays, 1)
	assert.Equal(t, second.BookingID, birthdays[0].BookingID)
}
