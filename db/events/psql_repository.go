// Package events is the data lake: an append-only archive of every published
// event, kept for auditing.
package events

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"venuebook/entity"
)

type DataLake struct {
	db *sqlx.DB
}

func NewDataLake(db *sqlx.DB) *DataLake {
	return &DataLake{db: db}
}

func (r DataLake) StoreEvent(ctx context.Context, event entity.DataLakeEvent) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO events (event_id, published_at, event_name, event_payload)
		VALUES (:event_id, :published_at, :event_name, :event_payload)
		ON CONFLICT DO NOTHING
	`, event)
	if err != nil {
		return fmt.Errorf("could not store event in data lake: %w", err)
	}
	return nil
}

func (r DataLake) FindAll(ctx context.Context) ([]entity.DataLakeEvent, error) {
	var events []entity.DataLakeEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT event_id, published_at, event_name, event_payload
		FROM events
		ORDER BY published_at
	`)
	if err != nil {
		return nil, fmt.Errorf("could not list data lake events: %w", err)
	}
	return events, nil
}
