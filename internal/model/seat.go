package model

import "time"

// Seat status values.  A seat starts AVAILABLE, moves to LOCKED while a
// caller holds it during checkout and becomes BOOKED once a booking is
// confirmed.  BOOKED is terminal for the reservation flow.
const (
	SeatStatusAvailable = "AVAILABLE"
	SeatStatusLocked    = "LOCKED"
	SeatStatusBooked    = "BOOKED"
)

// Seat is one sellable seat of an event.  Seat numbers are unique within
// an event.  The lock fields are only populated while status is LOCKED and
// BookingID only while status is BOOKED; the repository layer enforces the
// transitions with conditional updates so the three never mix.
//
// Fields:
//  ID            – primary key identifier.
//  EventID       – event to which this seat belongs.
//  SeatNumber    – label unique within the event (e.g. "A1").
//  Status        – AVAILABLE, LOCKED or BOOKED.
//  LockOwner     – caller currently holding the lock (nullable).
//  LockExpiresAt – instant after which the lock is stale (nullable).
//  BookingID     – booking that owns this seat once confirmed (nullable).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Seat struct {
	ID            uint64     // seats.id
	EventID       uint64     // seats.event_id
	SeatNumber    string     // seats.seat_number
	Status        string     // seats.status
	LockOwner     *string    // seats.lock_owner (nullable)
	LockExpiresAt *time.Time // seats.lock_expires_at (nullable)
	BookingID     *string    // seats.booking_id (nullable)
	CreatedAt     time.Time  // seats.created_at
	UpdatedAt     time.Time  // seats.updated_at
}

// LockedBy reports whether the seat currently carries a lock owned by
// ownerID that has not expired at the given instant.
func (s *Seat) LockedBy(ownerID string, now time.Time) bool {
	return s.Status == SeatStatusLocked &&
		s.LockOwner != nil && *s.LockOwner == ownerID &&
		s.LockExpiresAt != nil && s.LockExpiresAt.After(now)
}
