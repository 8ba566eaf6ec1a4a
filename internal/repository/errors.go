// Package repository implements MySQL persistence for users, cafés,
// events, sessions, balances and registrations.  This file defines
// error values reused across the repositories.  These sentinel
// values allow higher layers such as handlers to distinguish between
// failure scenarios: ErrForbidden indicates that the current user is
// not authorized to act on a resource owned by someone else, while
// the not-found sentinels map to HTTP 404 responses.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own.  Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrCafeNotFound is returned when a café lookup matches no row.
var ErrCafeNotFound = errors.New("cafe not found")

// ErrEventNotFound is returned when an event lookup matches no row.
var ErrEventNotFound = errors.New("event not found")

// ErrEmailExists is returned by UserRepo.Create when the email is
// already taken.  Handlers should translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")
