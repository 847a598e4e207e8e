package slots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"venuebook/entity"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]entity.SlotDefinition, error) {
	var defs []entity.SlotDefinition
	err := r.db.SelectContext(ctx, &defs, `
		SELECT slot_id, name, label, time_range, base_price
		FROM slots
		ORDER BY slot_id
	`)
	if err != nil {
		return nil, fmt.Errorf("could not list slots: %w", err)
	}
	return defs, nil
}

func (r *PostgresRepository) Get(ctx context.Context, slotID int64) (entity.SlotDefinition, error) {
	var def entity.SlotDefinition
	err := r.db.GetContext(ctx, &def, `
		SELECT slot_id, name, label, time_range, base_price
		FROM slots
		WHERE slot_id = $1
	`, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.SlotDefinition{}, entity.ErrUnknownSlot
		}
		return entity.SlotDefinition{}, fmt.Errorf("could not get slot %d: %w", slotID, err)
	}
	return def, nil
}

// Upsert creates or replaces a slot definition. Slots referenced by existing
// bookings are never deleted, only updated.
func (r *PostgresRepository) Upsert(ctx context.Context, def entity.SlotDefinition) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO slots (slot_id, name, label, time_range, base_price)
		VALUES (:slot_id, :name, :label, :time_range, :base_price)
		ON CONFLICT (slot_id) DO UPDATE SET
			name = excluded.name,
			label = excluded.label,
			time_range = excluded.time_range,
			base_price = excluded.base_price
	`, def)
	if err != nil {
		return fmt.Errorf("could not upsert slot: %w", err)
	}
	return nil
}
