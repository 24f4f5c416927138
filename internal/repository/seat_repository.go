package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/event-reservation/internal/model"
)

// CreateSeats inserts the given seat numbers for an event in one
// statement, all starting AVAILABLE.  Passing an empty slice has no
// effect and returns nil.
func (s *Store) CreateSeats(ctx context.Context, eventID uint64, seatNumbers []string) error {
	if len(seatNumbers) == 0 {
		return nil
	}
	query := `INSERT INTO seats (event_id, seat_number, status) VALUES `
	args := make([]interface{}, 0, len(seatNumbers)*3)
	for i, sn := range seatNumbers {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, eventID, sn, model.SeatStatusAvailable)
	}
	_, err := s.q(ctx).ExecContext(ctx, query, args...)
	return err
}

// FindSeat returns the seat identified by (eventID, seatNumber) or
// ErrSeatNotFound.  Inside WithTx the read is consistent with the other
// statements of the same transaction.
func (s *Store) FindSeat(ctx context.Context, eventID uint64, seatNumber string) (*model.Seat, error) {
	const q = `SELECT id, event_id, seat_number, status, lock_owner, lock_expires_at, booking_id, created_at, updated_at
	           FROM seats WHERE event_id = ? AND seat_number = ?`
	seat, err := scanSeat(s.q(ctx).QueryRowContext(ctx, q, eventID, seatNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeatNotFound
	}
	return seat, err
}

// ListSeatsByEvent returns every seat of an event ordered by seat number.
func (s *Store) ListSeatsByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error) {
	const q = `SELECT id, event_id, seat_number, status, lock_owner, lock_expires_at, booking_id, created_at, updated_at
	           FROM seats WHERE event_id = ? ORDER BY seat_number`
	rows, err := s.q(ctx).QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		seat, err := scanSeatRows(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, *seat)
	}
	return seats, rows.Err()
}

// LockSeat attempts the atomic test-and-set that acquires a lease on one
// seat: the row transitions to LOCKED for ownerID only when it is
// currently AVAILABLE, or LOCKED with an expiry at or before now (a stale
// lock is reclaimed as if free).  The condition is evaluated by the
// database against the current row, so there is no read-then-write
// window.  It returns false when the row was not in an acquirable state.
func (s *Store) LockSeat(ctx context.Context, eventID uint64, seatNumber, ownerID string, now, expiresAt time.Time) (bool, error) {
	const q = `UPDATE seats
	           SET status = ?, lock_owner = ?, lock_expires_at = ?, booking_id = NULL
	           WHERE event_id = ? AND seat_number = ?
	             AND (status = ? OR (status = ? AND lock_expires_at <= ?))`
	res, err := s.q(ctx).ExecContext(ctx, q,
		model.SeatStatusLocked, ownerID, expiresAt.UTC(),
		eventID, seatNumber,
		model.SeatStatusAvailable, model.SeatStatusLocked, now.UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ReleaseSeat returns a seat to AVAILABLE, clearing the lock fields, but
// only when it is currently LOCKED by ownerID.  Expiry is deliberately
// not checked: an owner may release its own stale lock.
func (s *Store) ReleaseSeat(ctx context.Context, eventID uint64, seatNumber, ownerID string) (bool, error) {
	const q = `UPDATE seats
	           SET status = ?, lock_owner = NULL, lock_expires_at = NULL
	           WHERE event_id = ? AND seat_number = ? AND status = ? AND lock_owner = ?`
	res, err := s.q(ctx).ExecContext(ctx, q,
		model.SeatStatusAvailable, eventID, seatNumber, model.SeatStatusLocked, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// BookSeat transitions a seat to BOOKED for the given booking, but only
// when it is LOCKED by ownerID with an expiry strictly after now.  An
// expired lock therefore behaves as no lock at all even before the
// reaper has swept it.
func (s *Store) BookSeat(ctx context.Context, eventID uint64, seatNumber, ownerID, bookingID string, now time.Time) (bool, error) {
	const q = `UPDATE seats
	           SET status = ?, booking_id = ?, lock_owner = NULL, lock_expires_at = NULL
	           WHERE event_id = ? AND seat_number = ? AND status = ? AND lock_owner = ? AND lock_expires_at > ?`
	res, err := s.q(ctx).ExecContext(ctx, q,
		model.SeatStatusBooked, bookingID,
		eventID, seatNumber,
		model.SeatStatusLocked, ownerID, now.UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ReleaseExpiredLocks is the reaper's bulk reclamation: every LOCKED seat
// whose expiry is at or before now goes back to AVAILABLE in a single
// conditional update.  Seats that were re-locked or booked concurrently
// no longer match the predicate at update time and are left alone.  It
// runs outside any multi-statement transaction.
func (s *Store) ReleaseExpiredLocks(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE seats
	           SET status = ?, lock_owner = NULL, lock_expires_at = NULL
	           WHERE status = ? AND lock_expires_at <= ?`
	res, err := s.db.ExecContext(ctx, q, model.SeatStatusAvailable, model.SeatStatusLocked, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSeat(row *sql.Row) (*model.Seat, error)   { return scanSeatFrom(row) }
func scanSeatRows(rows *sql.Rows) (*model.Seat, error) { return scanSeatFrom(rows) }

func scanSeatFrom(r rowScanner) (*model.Seat, error) {
	var (
		seat      model.Seat
		owner     sql.NullString
		expiresAt sql.NullTime
		bookingID sql.NullString
	)
	if err := r.Scan(&seat.ID, &seat.EventID, &seat.SeatNumber, &seat.Status,
		&owner, &expiresAt, &bookingID, &seat.CreatedAt, &seat.UpdatedAt); err != nil {
		return nil, err
	}
	if owner.Valid {
		seat.LockOwner = &owner.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		seat.LockExpiresAt = &t
	}
	if bookingID.Valid {
		seat.BookingID = &bookingID.String
	}
	return &seat, nil
}
