package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/event-reservation/internal/model"
	"github.com/iliyamo/event-reservation/internal/repository"
)

// fakeStore is an in-memory Store with transactional rollback semantics:
// WithTx snapshots the state and restores it when the body fails, which
// is exactly the all-or-nothing behaviour the MySQL store provides.  The
// mutex serialises whole transactions, standing in for the database's
// isolation between concurrent batches.
type fakeStore struct {
	mu       sync.Mutex
	seats    map[string]*model.Seat
	bookings map[string]*model.Booking
	failWith error // when set, every seat operation fails with it
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		seats:    make(map[string]*model.Seat),
		bookings: make(map[string]*model.Booking),
	}
}

func seatKey(eventID uint64, seatNumber string) string {
	return fmt.Sprintf("%d/%s", eventID, seatNumber)
}

func (f *fakeStore) addSeat(eventID uint64, seatNumber, status string, owner *string, expiresAt *time.Time) {
	f.seats[seatKey(eventID, seatNumber)] = &model.Seat{
		EventID:       eventID,
		SeatNumber:    seatNumber,
		Status:        status,
		LockOwner:     owner,
		LockExpiresAt: expiresAt,
	}
}

func (f *fakeStore) seat(eventID uint64, seatNumber string) *model.Seat {
	return f.seats[seatKey(eventID, seatNumber)]
}

func (f *fakeStore) snapshot() (map[string]*model.Seat, map[string]*model.Booking) {
	seats := make(map[string]*model.Seat, len(f.seats))
	for k, v := range f.seats {
		c := *v
		seats[k] = &c
	}
	bookings := make(map[string]*model.Booking, len(f.bookings))
	for k, v := range f.bookings {
		c := *v
		c.Seats = append([]string(nil), v.Seats...)
		bookings[k] = &c
	}
	return seats, bookings
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	seats, bookings := f.snapshot()
	if err := fn(ctx); err != nil {
		f.seats, f.bookings = seats, bookings
		return err
	}
	return nil
}

func (f *fakeStore) FindSeat(ctx context.Context, eventID uint64, seatNumber string) (*model.Seat, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	seat, ok := f.seats[seatKey(eventID, seatNumber)]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	c := *seat
	return &c, nil
}

func (f *fakeStore) LockSeat(ctx context.Context, eventID uint64, seatNumber, ownerID string, now, expiresAt time.Time) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	seat, ok := f.seats[seatKey(eventID, seatNumber)]
	if !ok {
		return false, nil
	}
	acquirable := seat.Status == model.SeatStatusAvailable ||
		(seat.Status == model.SeatStatusLocked && seat.LockExpiresAt != nil && !seat.LockExpiresAt.After(now))
	if !acquirable {
		return false, nil
	}
	exp := expiresAt
	seat.Status = model.SeatStatusLocked
	seat.LockOwner = &ownerID
	seat.LockExpiresAt = &exp
	seat.BookingID = nil
	return true, nil
}

func (f *fakeStore) ReleaseSeat(ctx context.Context, eventID uint64, seatNumber, ownerID string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	seat, ok := f.seats[seatKey(eventID, seatNumber)]
	if !ok || seat.Status != model.SeatStatusLocked || seat.LockOwner == nil || *seat.LockOwner != ownerID {
		return false, nil
	}
	seat.Status = model.SeatStatusAvailable
	seat.LockOwner = nil
	seat.LockExpiresAt = nil
	return true, nil
}

func (f *fakeStore) BookSeat(ctx context.Context, eventID uint64, seatNumber, ownerID, bookingID string, now time.Time) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	seat, ok := f.seats[seatKey(eventID, seatNumber)]
	if !ok || !seat.LockedBy(ownerID, now) {
		return false, nil
	}
	seat.Status = model.SeatStatusBooked
	seat.BookingID = &bookingID
	seat.LockOwner = nil
	seat.LockExpiresAt = nil
	return true, nil
}

func (f *fakeStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	if f.failWith != nil {
		return f.failWith
	}
	c := *b
	c.Seats = append([]string(nil), b.Seats...)
	f.bookings[b.ID] = &c
	return nil
}

func (f *fakeStore) ReleaseExpiredLocks(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return 0, f.failWith
	}
	var n int64
	for _, seat := range f.seats {
		if seat.Status == model.SeatStatusLocked && seat.LockExpiresAt != nil && !seat.LockExpiresAt.After(now) {
			seat.Status = model.SeatStatusAvailable
			seat.LockOwner = nil
			seat.LockExpiresAt = nil
			n++
		}
	}
	return n, nil
}
