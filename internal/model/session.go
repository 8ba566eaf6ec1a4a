package model

import "time"

// Session represents one focus period held by a user at a café.  A
// session is created on a verified check-in and closed exactly once
// on a verified check-out; `checked_out_at IS NULL` marks it open.
// The hourly rate is captured at check-in time so later rate changes
// by the merchant never affect an in-flight session.  This struct
// corresponds to a row in the `sessions` table.
//
// Fields:
//
//	ID           – primary key identifier.
//	UserID       – user holding the session.
//	CafeID       – café where the session takes place.
//	RatePerHour  – USDC/hour rate captured at check-in.
//	CheckedInAt  – when the session was opened.
//	CheckedOutAt – when the session was closed (nil while open).
//	RewardCoins  – coins credited on close (nil while open).
//	UsdcPaid     – USDC owed to the café for the elapsed time.
//	Commission   – platform commission on UsdcPaid.
//	TotalUsdc    – UsdcPaid plus Commission.
//	CreatedAt    – timestamp when the row was inserted.
type Session struct {
	ID           uint64     // sessions.id
	UserID       uint64     // sessions.user_id
	CafeID       uint64     // sessions.cafe_id
	RatePerHour  float64    // sessions.rate_per_hour
	CheckedInAt  time.Time  // sessions.checked_in_at
	CheckedOutAt *time.Time // sessions.checked_out_at (nullable)
	RewardCoins  *float64   // sessions.reward_coins (nullable)
	UsdcPaid     float64    // sessions.usdc_paid
	Commission   float64    // sessions.commission
	TotalUsdc    float64    // sessions.total_usdc
	CreatedAt    time.Time  // sessions.created_at
}

// Open reports whether the session has not been checked out yet.
func (s *Session) Open() bool { return s.CheckedOutAt == nil }
