// Package read_model_occupancy maintains the per-date occupancy projection
// consumed by the staff dashboard. It is derived from booking events and can
// be rebuilt; the authoritative availability check runs on the booking tables.
package read_model_occupancy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"venuebook/entity"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r PostgresRepository) Get(ctx context.Context, date string) (entity.DateOccupancy, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload, `
		SELECT payload
		FROM read_model_date_occupancy
		WHERE event_date = $1
	`, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.DateOccupancy{}, entity.ErrNotFound
		}
		return entity.DateOccupancy{}, fmt.Errorf("could not get occupancy read model: %w", err)
	}

	var occupancy entity.DateOccupancy
	if err = json.Unmarshal(payload, &occupancy); err != nil {
		return entity.DateOccupancy{}, fmt.Errorf("could not unmarshal occupancy read model: %w", err)
	}

	return occupancy, nil
}

func (r PostgresRepository) FindRange(ctx context.Context, from, to time.Time) ([]entity.DateOccupancy, error) {
	var payloads [][]byte
	err := r.db.SelectContext(ctx, &payloads, `
		SELECT payload
		FROM read_model_date_occupancy
		WHERE event_date BETWEEN $1 AND $2
		ORDER BY event_date
	`, from.Format(entity.DateFormat), to.Format(entity.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("could not list occupancy read models: %w", err)
	}

	occupancies := make([]entity.DateOccupancy, 0, len(payloads))
	for _, payload := range payloads {
		var occupancy entity.DateOccupancy
		if err = json.Unmarshal(payload, &occupancy); err != nil {
			return nil, fmt.Errorf("could not unmarshal occupancy read model: %w", err)
		}
		occupancies = append(occupancies, occupancy)
	}

	return occupancies, nil
}

// Update applies fn to the document for date under a row lock, creating an
// empty document when none exists yet.
func (r PostgresRepository) Update(
	ctx context.Context,
	date string,
	fn func(occupancy entity.DateOccupancy) (entity.DateOccupancy, error),
) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			err = errors.Join(err, rollbackErr)
			return
		}
		err = tx.Commit()
	}()

	occupancy := entity.DateOccupancy{
		Date:     date,
		Bookings: map[string]entity.DateOccupancyBooking{},
	}

	var payload []byte
	err = tx.GetContext(ctx, &payload, `
		SELECT payload
		FROM read_model_date_occupancy
		WHERE event_date = $1
		FOR UPDATE
	`, date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("could not lock occupancy read model: %w", err)
	}
	if err == nil {
		if err = json.Unmarshal(payload, &occupancy); err != nil {
			return fmt.Errorf("could not unmarshal occupancy read model: %w", err)
		}
	}

	occupancy, err = fn(occupancy)
	if err != nil {
		return err
	}
	occupancy.LastUpdate = time.Now().UTC()

	payload, err = json.Marshal(occupancy)
	if err != nil {
		return fmt.Errorf("could not marshal occupancy read model: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO read_model_date_occupancy (event_date, payload)
		VALUES ($1, $2)
		ON CONFLICT (event_date) DO UPDATE SET payload = excluded.payload
	`, date, payload)
	if err != nil {
		return fmt.Errorf("could not store occupancy read model: %w", err)
	}

	return nil
}
