// Package repository implements the MySQL-backed store for events, seats
// and bookings.  This file defines sentinel errors shared across the
// repository methods.  Higher layers use errors.Is to translate them into
// HTTP responses.
package repository

import "errors"

// ErrEventNotFound is returned when the referenced event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrSeatNotFound is returned when a seat number does not exist for the
// given event.
var ErrSeatNotFound = errors.New("seat not found")

// ErrBookingNotFound is returned when a booking lookup matches no row.
var ErrBookingNotFound = errors.New("booking not found")
