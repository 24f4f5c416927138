package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-reservation/internal/model"
)

// CreateBooking inserts the booking row together with its booking_seats
// entries.  Seat order is preserved via the position column.  The call is
// expected to run inside WithTx alongside the seat transitions so that a
// booking and its seats commit or roll back as one unit.
func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) error {
	q := s.q(ctx)
	_, err := q.ExecContext(ctx,
		`INSERT INTO bookings (id, event_id, owner_id, created_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.EventID, b.OwnerID, b.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if len(b.Seats) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, event_id, seat_number, position) VALUES `
	args := make([]interface{}, 0, len(b.Seats)*4)
	for i, sn := range b.Seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, b.ID, b.EventID, sn, i)
	}
	_, err = q.ExecContext(ctx, query, args...)
	return err
}

// GetBooking returns a booking with its seat numbers in original request
// order, or ErrBookingNotFound.
func (s *Store) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	var b model.Booking
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT id, event_id, owner_id, created_at FROM bookings WHERE id = ?`, id,
	).Scan(&b.ID, &b.EventID, &b.OwnerID, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT seat_number FROM booking_seats WHERE booking_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sn string
		if err := rows.Scan(&sn); err != nil {
			return nil, err
		}
		b.Seats = append(b.Seats, sn)
	}
	return &b, rows.Err()
}
