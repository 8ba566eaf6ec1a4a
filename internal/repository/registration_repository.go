package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/antiapp/cafe-focus-rewards/internal/model"
)

// RegistrationRepo provides read access to event registrations for
// listing endpoints.  Creation and cancellation are settlement
// operations and live on LedgerStore.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a RegistrationRepo bound to the given
// database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// RegistrationDetail is a registration joined with its event for the
// "my events" view.
type RegistrationDetail struct {
	ID          uint64  `json:"id"`
	EventID     uint64  `json:"event_id"`
	EventTitle  string  `json:"event_title"`
	Organizer   string  `json:"organizer"`
	Location    string  `json:"location"`
	StartsAt    string  `json:"starts_at"`
	PriceCoins  float64 `json:"price_coins"`
	Reference   string  `json:"reference"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	CancelledAt *string `json:"cancelled_at,omitempty"`
}

// ListByUser returns the user's registrations joined with event
// details, newest first.  When activeOnly is set, cancelled rows
// are filtered out.
func (r *RegistrationRepo) ListByUser(ctx context.Context, userID uint64, activeOnly bool) ([]RegistrationDetail, error) {
	q := `SELECT r.id, r.event_id, e.title, e.organizer, e.location, e.starts_at,
                 r.price_coins, r.reference, r.status, r.created_at, r.cancelled_at
          FROM registrations r
          JOIN events e ON e.id = r.event_id
          WHERE r.user_id = ?`
	args := []interface{}{userID}
	if activeOnly {
		q += ` AND r.status = ?`
		args = append(args, model.RegistrationActive)
	}
	q += ` ORDER BY r.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]RegistrationDetail, 0)
	for rows.Next() {
		var (
			d         RegistrationDetail
			startsAt  time.Time
			createdAt time.Time
			cancelled sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.EventID, &d.EventTitle, &d.Organizer, &d.Location, &startsAt,
			&d.PriceCoins, &d.Reference, &d.Status, &createdAt, &cancelled); err != nil {
			return nil, err
		}
		d.StartsAt = startsAt.UTC().Format(time.RFC3339)
		d.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		if cancelled.Valid {
			iso := cancelled.Time.UTC().Format(time.RFC3339)
			d.CancelledAt = &iso
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}
