package repository

import (
	"context"
	"database/sql"

	"github.com/antiapp/cafe-focus-rewards/internal/model"
)

// EventRepo provides read access to the curated event catalog.  The
// catalog is seeded by operators; the service itself only reads it,
// capturing the price on each registration.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns an EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, title, organizer, location, starts_at, price_coins, description, created_at`

// GetByID returns an event by ID or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	var ev model.Event
	err := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id).Scan(
		&ev.ID, &ev.Title, &ev.Organizer, &ev.Location, &ev.StartsAt,
		&ev.PriceCoins, &ev.Description, &ev.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// List returns upcoming events ordered by start time.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY starts_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Organizer, &ev.Location, &ev.StartsAt,
			&ev.PriceCoins, &ev.Description, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
