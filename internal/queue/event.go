// Package queue publishes and consumes the booking.confirmed events the
// reservation service emits over RabbitMQ.
package queue

// BookingConfirmedEvent is published when a seat hold is successfully
// confirmed into a booking.  It carries enough information for
// downstream consumers to log or notify without querying the primary
// database.
type BookingConfirmedEvent struct {
	BookingID   string   `json:"booking_id"`
	EventID     uint64   `json:"event_id"`
	EventName   string   `json:"event_name"`
	OwnerID     string   `json:"owner_id"`
	SeatNumbers []string `json:"seat_numbers"`
	ConfirmedAt string   `json:"confirmed_at"`
}
