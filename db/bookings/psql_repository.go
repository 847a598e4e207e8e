package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"venuebook/entity"
	"venuebook/pubsub/bus"
	"venuebook/pubsub/outbox"
)

type PostgresRepository struct {
	db     *sqlx.DB
	logger watermill.LoggerAdapter
}

func NewPostgresRepository(db *sqlx.DB, logger watermill.LoggerAdapter) *PostgresRepository {
	return &PostgresRepository{db: db, logger: logger}
}

const selectBooking = `
	SELECT
		b.booking_id, b.event_date, b.customer_name, b.phone1, b.phone2,
		b.groom_name, b.bride_name, b.address, b.occasion_type, b.notes,
		b.payment_type, b.payment_mode, b.advance_amount, b.total_amount,
		b.balance_amount, b.created_at, b.updated_at,
		COALESCE(array_agg(bs.slot_id ORDER BY bs.slot_id) FILTER (WHERE bs.slot_id IS NOT NULL), '{}') AS slot_ids
	FROM bookings b
	LEFT JOIN booking_slots bs USING (booking_id)
`

type bookingRow struct {
	BookingID     string        `db:"booking_id"`
	EventDate     time.Time     `db:"event_date"`
	CustomerName  string        `db:"customer_name"`
	Phone1        string        `db:"phone1"`
	Phone2        string        `db:"phone2"`
	GroomName     string        `db:"groom_name"`
	BrideName     string        `db:"bride_name"`
	Address       string        `db:"address"`
	OccasionType  string        `db:"occasion_type"`
	Notes         string        `db:"notes"`
	PaymentType   string        `db:"payment_type"`
	PaymentMode   string        `db:"payment_mode"`
	AdvanceAmount int64         `db:"advance_amount"`
	TotalAmount   int64         `db:"total_amount"`
	BalanceAmount int64         `db:"balance_amount"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
	SlotIDs       pq.Int64Array `db:"slot_ids"`
}

func (row bookingRow) toEntity() entity.Booking {
	return entity.Booking{
		BookingID:     row.BookingID,
		EventDate:     entity.Day(row.EventDate),
		CustomerName:  row.CustomerName,
		Phone1:        row.Phone1,
		Phone2:        row.Phone2,
		GroomName:     row.GroomName,
		BrideName:     row.BrideName,
		Address:       row.Address,
		OccasionType:  row.OccasionType,
		Notes:         row.Notes,
		SlotIDs:       row.SlotIDs,
		PaymentType:   entity.PaymentType(row.PaymentType),
		PaymentMode:   entity.PaymentMode(row.PaymentMode),
		AdvanceAmount: entity.Money(row.AdvanceAmount),
		TotalAmount:   entity.Money(row.TotalAmount),
		BalanceAmount: entity.Money(row.BalanceAmount),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

// Create stores the booking and all its slot reservations in one serializable
// transaction and publishes BookingMade through the outbox in the same
// transaction. Either every selected slot is reserved or none are.
func (r *PostgresRepository) Create(ctx context.Context, booking entity.Booking) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			if rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				err = errors.Join(err, rollbackErr)
			}
			return
		}
		err = asConflict(tx.Commit())
	}()

	taken, err := r.conflictingSlotIDs(ctx, tx, booking.EventDate, booking.SlotIDs, "")
	if err != nil {
		return fmt.Errorf("could not check slot availability: %w", err)
	}
	if len(taken) > 0 {
		return fmt.Errorf("slots %v on %s: %w", taken, booking.EventDate.Format(entity.DateFormat), entity.ErrSlotConflict)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bookings (
			booking_id, event_date, customer_name, phone1, phone2,
			groom_name, bride_name, address, occasion_type, notes,
			payment_type, payment_mode, advance_amount, total_amount, balance_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		booking.BookingID, booking.EventDate.Format(entity.DateFormat),
		booking.CustomerName, booking.Phone1, booking.Phone2,
		booking.GroomName, booking.BrideName, booking.Address,
		booking.OccasionType, booking.Notes,
		string(booking.PaymentType), string(booking.PaymentMode),
		int64(booking.AdvanceAmount), int64(booking.TotalAmount), int64(booking.BalanceAmount),
	)
	if err != nil {
		return asConflict(fmt.Errorf("could not insert booking: %w", err))
	}

	err = r.insertSlots(ctx, tx, booking)
	if err != nil {
		return err
	}

	err = r.publish(ctx, tx, entity.BookingMade{
		Header:        entity.NewEventHeader(),
		BookingID:     booking.BookingID,
		EventDate:     booking.EventDate.Format(entity.DateFormat),
		SlotIDs:       booking.SlotIDs,
		CustomerName:  booking.CustomerName,
		OccasionType:  booking.OccasionType,
		TotalAmount:   booking.TotalAmount,
		BalanceAmount: booking.BalanceAmount,
	})
	if err != nil {
		return err
	}

	return nil
}

// Update replaces the booking's fields and slot set, re-running the conflict
// check against every other active booking.
func (r *PostgresRepository) Update(ctx context.Context, booking entity.Booking) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			if rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				err = errors.Join(err, rollbackErr)
			}
			return
		}
		err = asConflict(tx.Commit())
	}()

	previous, err := r.getForUpdate(ctx, tx, booking.BookingID)
	if err != nil {
		return err
	}

	taken, err := r.conflictingSlotIDs(ctx, tx, booking.EventDate, booking.SlotIDs, booking.BookingID)
	if err != nil {
		return fmt.Errorf("could not check slot availability: %w", err)
	}
	if len(taken) > 0 {
		return fmt.Errorf("slots %v on %s: %w", taken, booking.EventDate.Format(entity.DateFormat), entity.ErrSlotConflict)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE bookings SET
			event_date = $2, customer_name = $3, phone1 = $4, phone2 = $5,
			groom_name = $6, bride_name = $7, address = $8, occasion_type = $9,
			notes = $10, payment_type = $11, payment_mode = $12,
			advance_amount = $13, total_amount = $14, balance_amount = $15,
			updated_at = now()
		WHERE booking_id = $1
	`,
		booking.BookingID, booking.EventDate.Format(entity.DateFormat),
		booking.CustomerName, booking.Phone1, booking.Phone2,
		booking.GroomName, booking.BrideName, booking.Address,
		booking.OccasionType, booking.Notes,
		string(booking.PaymentType), string(booking.PaymentMode),
		int64(booking.AdvanceAmount), int64(booking.TotalAmount), int64(booking.BalanceAmount),
	)
	if err != nil {
		return fmt.Errorf("could not update booking: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM booking_slots WHERE booking_id = $1`, booking.BookingID)
	if err != nil {
		return fmt.Errorf("could not clear booking slots: %w", err)
	}

	err = r.insertSlots(ctx, tx, booking)
	if err != nil {
		return err
	}

	err = r.publish(ctx, tx, entity.BookingUpdated{
		Header:            entity.NewEventHeader(),
		BookingID:         booking.BookingID,
		EventDate:         booking.EventDate.Format(entity.DateFormat),
		SlotIDs:           booking.SlotIDs,
		CustomerName:      booking.CustomerName,
		OccasionType:      booking.OccasionType,
		TotalAmount:       booking.TotalAmount,
		BalanceAmount:     booking.BalanceAmount,
		PreviousEventDate: previous.EventDate.Format(entity.DateFormat),
		PreviousSlotIDs:   previous.SlotIDs,
	})
	if err != nil {
		return err
	}

	return nil
}

// Archive moves the booking into the append-only deleted_bookings table. The
// active row disappears, so its slots free up immediately and atomically.
func (r *PostgresRepository) Archive(ctx context.Context, bookingID string) (archived entity.DeletedBooking, err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return entity.DeletedBooking{}, fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			if rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				err = errors.Join(err, rollbackErr)
			}
			return
		}
		err = asConflict(tx.Commit())
	}()

	booking, err := r.getForUpdate(ctx, tx, bookingID)
	if err != nil {
		return entity.DeletedBooking{}, err
	}

	archived = entity.DeletedBooking{
		DeletedBookingID:  uuid.NewString(),
		OriginalBookingID: booking.BookingID,
		EventDate:         booking.EventDate,
		CustomerName:      booking.CustomerName,
		Phone1:            booking.Phone1,
		Phone2:            booking.Phone2,
		GroomName:         booking.GroomName,
		BrideName:         booking.BrideName,
		Address:           booking.Address,
		OccasionType:      booking.OccasionType,
		Notes:             booking.Notes,
		SlotIDs:           booking.SlotIDs,
		PaymentType:       booking.PaymentType,
		PaymentMode:       booking.PaymentMode,
		AdvanceAmount:     booking.AdvanceAmount,
		TotalAmount:       booking.TotalAmount,
		BalanceAmount:     booking.BalanceAmount,
		CreatedAt:         booking.CreatedAt,
		DeletedAt:         time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO deleted_bookings (
			deleted_booking_id, original_booking_id, event_date, customer_name,
			phone1, phone2, groom_name, bride_name, address, occasion_type,
			notes, payment_type, payment_mode, advance_amount, total_amount,
			balance_amount, slot_ids, created_at, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		archived.DeletedBookingID, archived.OriginalBookingID,
		archived.EventDate.Format(entity.DateFormat), archived.CustomerName,
		archived.Phone1, archived.Phone2, archived.GroomName, archived.BrideName,
		archived.Address, archived.OccasionType, archived.Notes,
		string(archived.PaymentType), string(archived.PaymentMode),
		int64(archived.AdvanceAmount), int64(archived.TotalAmount), int64(archived.BalanceAmount),
		pq.Array(archived.SlotIDs), archived.CreatedAt, archived.DeletedAt,
	)
	if err != nil {
		return entity.DeletedBooking{}, fmt.Errorf("could not archive booking: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM booking_slots WHERE booking_id = $1`, bookingID)
	if err != nil {
		return entity.DeletedBooking{}, fmt.Errorf("could not clear booking slots: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM bookings WHERE booking_id = $1`, bookingID)
	if err != nil {
		return entity.DeletedBooking{}, fmt.Errorf("could not remove active booking: %w", err)
	}

	err = r.publish(ctx, tx, entity.BookingArchived{
		Header:    entity.NewEventHeader(),
		BookingID: booking.BookingID,
		EventDate: booking.EventDate.Format(entity.DateFormat),
		SlotIDs:   booking.SlotIDs,
	})
	if err != nil {
		return entity.DeletedBooking{}, err
	}

	return archived, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, bookingID string) (entity.Booking, error) {
	var row bookingRow
	err := r.db.GetContext(ctx, &row, selectBooking+`
		WHERE b.booking_id = $1
		GROUP BY b.booking_id
	`, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Booking{}, entity.ErrNotFound
		}
		return entity.Booking{}, fmt.Errorf("could not get booking: %w", err)
	}
	return row.toEntity(), nil
}

func (r *PostgresRepository) FindByDate(ctx context.Context, date time.Time) ([]entity.Booking, error) {
	var rows []bookingRow
	err := r.db.SelectContext(ctx, &rows, selectBooking+`
		WHERE b.event_date = $1
		GROUP BY b.booking_id
		ORDER BY b.created_at
	`, date.Format(entity.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("could not list bookings for date: %w", err)
	}
	return toEntities(rows), nil
}

func (r *PostgresRepository) FindByDateRange(ctx context.Context, from, to time.Time, filter entity.BookingFilter) ([]entity.Booking, error) {
	query := selectBooking + `
		WHERE b.event_date BETWEEN $1 AND $2
	`
	args := []any{from.Format(entity.DateFormat), to.Format(entity.DateFormat)}
	if filter.OccasionType != "" {
		query += ` AND b.occasion_type = $3`
		args = append(args, filter.OccasionType)
	}
	query += `
		GROUP BY b.booking_id
		ORDER BY b.event_date, b.created_at
	`

	var rows []bookingRow
	err := r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not list bookings: %w", err)
	}
	return toEntities(rows), nil
}

// BookedSlotIDs answers which slots are held on a date by active bookings,
// optionally ignoring one booking (used when validating an edit).
func (r *PostgresRepository) BookedSlotIDs(ctx context.Context, date time.Time, excludeBookingID string) ([]int64, error) {
	var ids pq.Int64Array
	err := r.db.GetContext(ctx, &ids, `
		SELECT COALESCE(array_agg(slot_id ORDER BY slot_id), '{}')
		FROM booking_slots
		WHERE event_date = $1
		  AND ($2 = '' OR booking_id::text <> $2)
	`, date.Format(entity.DateFormat), excludeBookingID)
	if err != nil {
		return nil, fmt.Errorf("could not get booked slots: %w", err)
	}
	return ids, nil
}

func (r *PostgresRepository) FindArchived(ctx context.Context, from, to time.Time) ([]entity.DeletedBooking, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT
			deleted_booking_id, original_booking_id, event_date, customer_name,
			phone1, phone2, groom_name, bride_name, address, occasion_type,
			notes, payment_type, payment_mode, advance_amount, total_amount,
			balance_amount, slot_ids, created_at, deleted_at
		FROM deleted_bookings
		WHERE event_date BETWEEN $1 AND $2
		ORDER BY deleted_at
	`, from.Format(entity.DateFormat), to.Format(entity.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("could not list archived bookings: %w", err)
	}
	defer rows.Close()

	var archived []entity.DeletedBooking
	for rows.Next() {
		db, err := scanDeletedBooking(rows)
		if err != nil {
			return nil, err
		}
		archived = append(archived, db)
	}
	return archived, rows.Err()
}

func (r *PostgresRepository) FindArchivedByOriginalID(ctx context.Context, originalBookingID string) (entity.DeletedBooking, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT
			deleted_booking_id, original_booking_id, event_date, customer_name,
			phone1, phone2, groom_name, bride_name, address, occasion_type,
			notes, payment_type, payment_mode, advance_amount, total_amount,
			balance_amount, slot_ids, created_at, deleted_at
		FROM deleted_bookings
		WHERE original_booking_id = $1
		ORDER BY deleted_at DESC
		LIMIT 1
	`, originalBookingID)
	if err != nil {
		return entity.DeletedBooking{}, fmt.Errorf("could not get archived booking: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return entity.DeletedBooking{}, err
		}
		return entity.DeletedBooking{}, entity.ErrNotFound
	}
	return scanDeletedBooking(rows)
}

func (r *PostgresRepository) getForUpdate(ctx context.Context, tx *sqlx.Tx, bookingID string) (entity.Booking, error) {
	var row bookingRow
	err := tx.GetContext(ctx, &row, `
		SELECT
			b.booking_id, b.event_date, b.customer_name, b.phone1, b.phone2,
			b.groom_name, b.bride_name, b.address, b.occasion_type, b.notes,
			b.payment_type, b.payment_mode, b.advance_amount, b.total_amount,
			b.balance_amount, b.created_at, b.updated_at,
			COALESCE((
				SELECT array_agg(bs.slot_id ORDER BY bs.slot_id)
				FROM booking_slots bs
				WHERE bs.booking_id = b.booking_id
			), '{}') AS slot_ids
		FROM bookings b
		WHERE b.booking_id = $1
		FOR UPDATE OF b
	`, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Booking{}, entity.ErrNotFound
		}
		return entity.Booking{}, fmt.Errorf("could not lock booking: %w", err)
	}
	return row.toEntity(), nil
}

func (r *PostgresRepository) conflictingSlotIDs(
	ctx context.Context,
	tx *sqlx.Tx,
	date time.Time,
	slotIDs []int64,
	excludeBookingID string,
) ([]int64, error) {
	var taken pq.Int64Array
	err := tx.GetContext(ctx, &taken, `
		SELECT COALESCE(array_agg(slot_id ORDER BY slot_id), '{}')
		FROM booking_slots
		WHERE event_date = $1
		  AND slot_id = ANY($2)
		  AND ($3 = '' OR booking_id::text <> $3)
	`, date.Format(entity.DateFormat), pq.Array(slotIDs), excludeBookingID)
	if err != nil {
		return nil, err
	}
	return taken, nil
}

func (r *PostgresRepository) insertSlots(ctx context.Context, tx *sqlx.Tx, booking entity.Booking) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO booking_slots (event_date, slot_id, booking_id)
		SELECT $1, unnest($2::bigint[]), $3
	`, booking.EventDate.Format(entity.DateFormat), pq.Array(booking.SlotIDs), booking.BookingID)
	if err != nil {
		return asConflict(fmt.Errorf("could not reserve slots: %w", err))
	}
	return nil
}

func (r *PostgresRepository) publish(ctx context.Context, tx *sqlx.Tx, event any) error {
	outboxPublisher, err := outbox.NewPublisherForTx(tx.Tx, r.logger)
	if err != nil {
		return fmt.Errorf("could not create outbox publisher: %w", err)
	}

	eventBus, err := bus.NewEventBus(outboxPublisher)
	if err != nil {
		return fmt.Errorf("could not create event bus: %w", err)
	}

	if err := eventBus.Publish(ctx, event); err != nil {
		return fmt.Errorf("could not publish event: %w", err)
	}
	return nil
}

func toEntities(rows []bookingRow) []entity.Booking {
	bookings := make([]entity.Booking, 0, len(rows))
	for _, row := range rows {
		bookings = append(bookings, row.toEntity())
	}
	return bookings
}

func scanDeletedBooking(rows *sqlx.Rows) (entity.DeletedBooking, error) {
	var (
		db      entity.DeletedBooking
		slotIDs pq.Int64Array
		pt, pm  string
	)
	err := rows.Scan(
		&db.DeletedBookingID, &db.OriginalBookingID, &db.EventDate, &db.CustomerName,
		&db.Phone1, &db.Phone2, &db.GroomName, &db.BrideName, &db.Address,
		&db.OccasionType, &db.Notes, &pt, &pm,
		&db.AdvanceAmount, &db.TotalAmount, &db.BalanceAmount,
		&slotIDs, &db.CreatedAt, &db.DeletedAt,
	)
	if err != nil {
		return entity.DeletedBooking{}, fmt.Errorf("could not scan archived booking: %w", err)
	}
	db.EventDate = entity.Day(db.EventDate)
	db.SlotIDs = slotIDs
	db.PaymentType = entity.PaymentType(pt)
	db.PaymentMode = entity.PaymentMode(pm)
	return db, nil
}

// asConflict translates the storage-level loser outcomes of a booking race
// (unique violation on booking_slots, serialization failure) into the domain
// conflict error.
func asConflict(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23505" || pqErr.Code == "40001" {
			return fmt.Errorf("%v: %w", err, entity.ErrSlotConflict)
		}
	}
	return err
}
