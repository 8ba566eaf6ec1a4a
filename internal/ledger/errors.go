// Package ledger implements session settlement and the coin balance
// for the focus rewards programme.  It owns the session lifecycle
// (open on check-in, close once on check-out), computes the coin
// reward for elapsed time, and enforces balance sufficiency when
// coins are spent on event registrations.  All balance mutation is
// funnelled through the Store's atomic delta apply so concurrent
// settlements for the same user can never lose an update or drive
// the balance negative.
package ledger

import "errors"

// Sentinel errors returned by the service.  All of them describe
// expected, user-facing conditions; handlers translate them into
// HTTP responses and the caller simply re-prompts the user.
var (
	// ErrSessionAlreadyOpen is returned by OpenSession when the user
	// already holds an open session in the configured scope.
	ErrSessionAlreadyOpen = errors.New("session already open")

	// ErrSessionNotFound is returned when no session exists for the
	// given ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInsufficientBalance is returned when a debit would drive the
	// user's balance below zero.  No mutation occurs.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAlreadyRegistered is returned by Register when the user holds
	// an active registration for the same event.  No mutation occurs.
	ErrAlreadyRegistered = errors.New("already registered for event")

	// ErrRegistrationNotFound is returned when no registration exists
	// for the given ID.
	ErrRegistrationNotFound = errors.New("registration not found")

	// ErrInvalidAmount is returned when a negative (or non-finite)
	// amount or rate is supplied.
	ErrInvalidAmount = errors.New("invalid amount")
)
