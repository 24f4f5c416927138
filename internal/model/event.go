package model

import "time"

// Event is the metadata container that owns a set of seats.  Events are
// created together with their seats and are not mutated by the
// reservation flow.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the event.
//  Venue     – free-form venue/location description.
//  CreatedAt – creation timestamp.
type Event struct {
	ID        uint64    // events.id
	Name      string    // events.name
	Venue     string    // events.venue
	CreatedAt time.Time // events.created_at
}
