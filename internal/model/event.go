package model

import "time"

// Event represents a catalog item users can spend earned coins on.
// Events are curated by the platform (after parties, coffee
// festivals, meetups) and carry a price in reward coins.  This
// struct corresponds to a row in the `events` table.
//
// Fields:
//
//	ID          – primary key identifier.
//	Title       – event title.
//	Organizer   – organizing party shown on the card.
//	Location    – venue name.
//	StartsAt    – when the event takes place.
//	PriceCoins  – registration price in reward coins.
//	Description – free-form description.
//	CreatedAt   – timestamp when the event was created.
type Event struct {
	ID          uint64    // events.id
	Title       string    // events.title
	Organizer   string    // events.organizer
	Location    string    // events.location
	StartsAt    time.Time // events.starts_at
	PriceCoins  float64   // events.price_coins
	Description string    // events.description
	CreatedAt   time.Time // events.created_at
}
