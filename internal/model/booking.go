package model

import "time"

// Booking records a confirmed reservation of one or more seats for an
// event.  Bookings are immutable once created; releasing or re-selling a
// booked seat is outside the reservation flow.
//
// Fields:
//  ID        – UUID assigned when the booking is created.
//  EventID   – event the seats belong to.
//  OwnerID   – caller who held the seats and confirmed.
//  Seats     – seat numbers in the order they were requested.
//  CreatedAt – confirmation timestamp.
type Booking struct {
	ID        string    // bookings.id
	EventID   uint64    // bookings.event_id
	OwnerID   string    // bookings.owner_id
	Seats     []string  // booking_seats rows, ordered by position
	CreatedAt time.Time // bookings.created_at
}
