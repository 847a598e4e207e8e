package pricing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"

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

// promoteDue rolls over schedules whose effective date has arrived: the
// future price becomes current and the future fields are cleared. Runs lazily
// before every read, so rollover needs no background job. Idempotent. No
// event is published here: the change was announced by the Set that scheduled
// it, together with its effective date.
func (r *PostgresRepository) promoteDue(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pricing_schedules
		SET current_price = future_price,
		    future_price = NULL,
		    effective_from = NULL,
		    updated_at = now()
		WHERE future_price IS NOT NULL
		  AND effective_from IS NOT NULL
		  AND effective_from <= CURRENT_DATE
	`)
	if err != nil {
		return fmt.Errorf("could not promote due pricing schedules: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]entity.PricingSchedule, error) {
	if err := r.promoteDue(ctx); err != nil {
		return nil, err
	}

	var schedules []entity.PricingSchedule
	err := r.db.SelectContext(ctx, &schedules, `
		SELECT slot_name, current_price, future_price, effective_from, updated_at
		FROM pricing_schedules
		ORDER BY slot_name
	`)
	if err != nil {
		return nil, fmt.Errorf("could not list pricing schedules: %w", err)
	}
	return schedules, nil
}

func (r *PostgresRepository) GetBySlotName(ctx context.Context, slotName entity.SlotName) (entity.PricingSchedule, error) {
	if err := r.promoteDue(ctx); err != nil {
		return entity.PricingSchedule{}, err
	}

	var schedule entity.PricingSchedule
	err := r.db.GetContext(ctx, &schedule, `
		SELECT slot_name, current_price, future_price, effective_from, updated_at
		FROM pricing_schedules
		WHERE slot_name = $1
	`, slotName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.PricingSchedule{}, entity.ErrNotFound
		}
		return entity.PricingSchedule{}, fmt.Errorf("could not get pricing schedule for %s: %w", slotName, err)
	}
	return schedule, nil
}

// Set upserts the schedule and publishes PricingScheduleUpdated through the
// outbox in the same transaction, so the audit trail never misses a committed
// price change.
func (r *PostgresRepository) Set(ctx context.Context, schedule entity.PricingSchedule) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
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
		err = tx.Commit()
	}()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO pricing_schedules (slot_name, current_price, future_price, effective_from, updated_at)
		VALUES (:slot_name, :current_price, :future_price, :effective_from, now())
		ON CONFLICT (slot_name) DO UPDATE SET
			current_price = excluded.current_price,
			future_price = excluded.future_price,
			effective_from = excluded.effective_from,
			updated_at = now()
	`, schedule)
	if err != nil {
		return fmt.Errorf("could not set pricing schedule: %w", err)
	}

	outboxPublisher, err := outbox.NewPublisherForTx(tx.Tx, r.logger)
	if err != nil {
		return fmt.Errorf("could not create outbox publisher: %w", err)
	}

	eventBus, err := bus.NewEventBus(outboxPublisher)
	if err != nil {
		return fmt.Errorf("could not create event bus: %w", err)
	}

	err = eventBus.Publish(ctx, entity.PricingScheduleUpdated{
		Header:        entity.NewEventHeader(),
		SlotName:      schedule.SlotName,
		CurrentPrice:  schedule.CurrentPrice,
		FuturePrice:   schedule.FuturePrice,
		EffectiveFrom: schedule.EffectiveFrom,
	})
	if err != nil {
		return fmt.Errorf("could not publish event: %w", err)
	}

	return nil
}
