package model

import "time"

// Registration records a spend of balance against an event.  The
// event price is captured at registration time so a later price
// change never alters the refund owed on cancellation.  A user may
// hold at most one active registration per event; cancelling frees
// the slot and refunds the captured price.  This struct corresponds
// to a row in the `registrations` table.
//
// Fields:
//
//	ID          – primary key identifier.
//	UserID      – user who registered.
//	EventID     – event registered for.
//	PriceCoins  – coin price captured at registration time.
//	Reference   – opaque reference returned to the client.
//	Status      – ACTIVE or CANCELLED (terminal).
//	CreatedAt   – when the registration was made.
//	CancelledAt – when it was cancelled (nil while active).
type Registration struct {
	ID          uint64     // registrations.id
	UserID      uint64     // registrations.user_id
	EventID     uint64     // registrations.event_id
	PriceCoins  float64    // registrations.price_coins
	Reference   string     // registrations.reference
	Status      string     // registrations.status
	CreatedAt   time.Time  // registrations.created_at
	CancelledAt *time.Time // registrations.cancelled_at (nullable)
}

// Registration status values.  A registration moves from ACTIVE to
// CANCELLED exactly once; there is no re-activation.
const (
	RegistrationActive    = "ACTIVE"
	RegistrationCancelled = "CANCELLED"
)
