package db

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/jmoiron/sqlx"

	"venuebook/pubsub/outbox"
)

var schema = `
CREATE TABLE IF NOT EXISTS slots (
	slot_id BIGINT PRIMARY KEY,
	name VARCHAR(32) NOT NULL UNIQUE,
	label VARCHAR(255) NOT NULL,
	time_range VARCHAR(255) NOT NULL,
	base_price BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS pricing_schedules (
	slot_name VARCHAR(32) PRIMARY KEY,
	current_price BIGINT NOT NULL,
	future_price BIGINT,
	effective_from DATE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bookings (
	booking_id UUID PRIMARY KEY,
	event_date DATE NOT NULL,
	customer_name VARCHAR(255) NOT NULL,
	phone1 VARCHAR(16) NOT NULL,
	phone2 VARCHAR(16) NOT NULL DEFAULT '',
	groom_name VARCHAR(255) NOT NULL DEFAULT '',
	bride_name VARCHAR(255) NOT NULL DEFAULT '',
	address VARCHAR(140) NOT NULL,
	occasion_type VARCHAR(64) NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	payment_type VARCHAR(16) NOT NULL,
	payment_mode VARCHAR(16) NOT NULL,
	advance_amount BIGINT NOT NULL DEFAULT 0,
	total_amount BIGINT NOT NULL,
	balance_amount BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS bookings_event_date_idx ON bookings (event_date);

-- The (event_date, slot_id) primary key is the storage-level guarantee that
-- two active bookings never hold the same slot on the same date.
CREATE TABLE IF NOT EXISTS booking_slots (
	event_date DATE NOT NULL,
	slot_id BIGINT NOT NULL REFERENCES slots (slot_id),
	booking_id UUID NOT NULL REFERENCES bookings (booking_id) ON DELETE CASCADE,
	PRIMARY KEY (event_date, slot_id)
);

-- Append-only archive of soft-deleted bookings.
CREATE TABLE IF NOT EXISTS deleted_bookings (
	deleted_booking_id UUID PRIMARY KEY,
	original_booking_id UUID NOT NULL,
	event_date DATE NOT NULL,
	customer_name VARCHAR(255) NOT NULL,
	phone1 VARCHAR(16) NOT NULL,
	phone2 VARCHAR(16) NOT NULL DEFAULT '',
	groom_name VARCHAR(255) NOT NULL DEFAULT '',
	bride_name VARCHAR(255) NOT NULL DEFAULT '',
	address VARCHAR(140) NOT NULL,
	occasion_type VARCHAR(64) NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	payment_type VARCHAR(16) NOT NULL,
	payment_mode VARCHAR(16) NOT NULL,
	advance_amount BIGINT NOT NULL DEFAULT 0,
	total_amount BIGINT NOT NULL,
	balance_amount BIGINT NOT NULL,
	slot_ids BIGINT[] NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS deleted_bookings_original_idx ON deleted_bookings (original_booking_id);

CREATE TABLE IF NOT EXISTS events (
	event_id UUID PRIMARY KEY,
	published_at TIMESTAMPTZ NOT NULL,
	event_name VARCHAR(255) NOT NULL,
	event_payload JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS read_model_date_occupancy (
	event_date DATE PRIMARY KEY,
	payload JSONB NOT NULL
);
`

// Default catalog of the venue. basePrice is only the fallback until staff
// store a pricing schedule for the slot name.
var seed = `
INSERT INTO slots (slot_id, name, label, time_range, base_price) VALUES
	(1, 'Lunch', 'Lunch Time', '9am - 6pm', 40000),
	(2, 'Reception', 'Reception Time', '7pm - 12am', 50000),
	(3, 'Night', 'Night Time', '9pm - 6am', 45000)
ON CONFLICT DO NOTHING;
`

// InitializeDatabaseSchema creates all tables, including the outbox table the
// booking repository publishes into. Idempotent.
func InitializeDatabaseSchema(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("could not initialize schema: %w", err)
	}
	if _, err := db.Exec(seed); err != nil {
		return fmt.Errorf("could not seed slot catalog: %w", err)
	}

	sub, err := watermillSQL.NewSubscriber(db.DB, watermillSQL.SubscriberConfig{
		SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
	}, watermill.NopLogger{})
	if err != nil {
		return fmt.Errorf("could not create outbox subscriber: %w", err)
	}
	defer sub.Close()

	if err := sub.SubscribeInitialize(outbox.Topic); err != nil {
		return fmt.Errorf("could not initialize outbox schema: %w", err)
	}
	return nil
}
