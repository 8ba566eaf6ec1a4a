package model

import "time"

// Balance is a user's running total of reward coins: everything
// earned from closed sessions minus everything spent on event
// registrations.  The row is created lazily on first credit or
// debit and is the single mutable aggregate of the settlement
// model; all mutation goes through an atomic delta apply so the
// amount can never be driven below zero.  This struct corresponds
// to a row in the `balances` table.
//
// Fields:
//
//	UserID    – owner of the balance (unique key).
//	Amount    – current coin amount, always >= 0.
//	UpdatedAt – timestamp of last mutation.
type Balance struct {
	UserID    uint64    // balances.user_id
	Amount    float64   // balances.amount
	UpdatedAt time.Time // balances.updated_at
}
