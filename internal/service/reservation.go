// Package service implements the seat reservation core: time-bounded
// exclusive locks on seats, confirmation of locks into bookings and
// periodic reclamation of expired locks.  All exclusion is enforced by
// the store's conditional updates; the service holds no in-process locks
// over seats.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-reservation/internal/clock"
	"github.com/iliyamo/event-reservation/internal/model"
	"github.com/iliyamo/event-reservation/internal/repository"
)

// Store is the persistence contract the reservation core requires.  The
// MySQL implementation lives in internal/repository; tests substitute an
// in-memory fake.  Seat mutations are atomic test-and-set operations that
// report via their bool result whether the row matched the required
// source state.
type Store interface {
	// WithTx runs fn in a transaction with commit-or-rollback on every
	// exit path.  Seat and booking methods called with the ctx passed to
	// fn take part in that transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	FindSeat(ctx context.Context, eventID uint64, seatNumber string) (*model.Seat, error)
	LockSeat(ctx context.Context, eventID uint64, seatNumber, ownerID string, now, expiresAt time.Time) (bool, error)
	ReleaseSeat(ctx context.Context, eventID uint64, seatNumber, ownerID string) (bool, error)
	BookSeat(ctx context.Context, eventID uint64, seatNumber, ownerID, bookingID string, now time.Time) (bool, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
	ReleaseExpiredLocks(ctx context.Context, now time.Time) (int64, error)
}

// Lock describes a successfully acquired batch of seat locks.
type Lock struct {
	EventID   uint64
	OwnerID   string
	Seats     []string
	ExpiresAt time.Time
}

// ReservationService coordinates acquire/confirm/release/sweep against
// the store.  It is safe for concurrent use.
type ReservationService struct {
	store      Store
	clock      clock.Clock
	defaultTTL time.Duration
	maxTTL     time.Duration
}

const (
	defaultLockTTL = 60 * time.Second
	maxLockTTL     = 15 * time.Minute
)

// Option customises a ReservationService.
type Option func(*ReservationService)

// WithDefaultTTL overrides the lock TTL applied when a caller does not
// request one.
func WithDefaultTTL(d time.Duration) Option {
	return func(s *ReservationService) {
		if d > 0 {
			s.defaultTTL = d
		}
	}
}

// WithMaxTTL overrides the upper bound a caller-requested TTL is clamped to.
func WithMaxTTL(d time.Duration) Option {
	return func(s *ReservationService) {
		if d > 0 {
			s.maxTTL = d
		}
	}
}

// NewReservationService constructs the service.  Store and clock must be
// non-nil.
func NewReservationService(store Store, clk clock.Clock, opts ...Option) *ReservationService {
	if store == nil || clk == nil {
		panic("nil store or clock passed to NewReservationService")
	}
	s := &ReservationService{
		store:      store,
		clock:      clk,
		defaultTTL: defaultLockTTL,
		maxTTL:     maxLockTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire places a time-bounded exclusive lock on every requested seat
// for ownerID, all-or-nothing.  A seat counts as acquirable when it is
// AVAILABLE or carries a lock that has already expired.  The first seat
// that fails aborts the whole batch: the transaction rolls back, no seat
// keeps a partial lock and the returned ConflictError names the seat.
// A ttl of zero selects the configured default; larger values are clamped
// to the configured maximum.
func (s *ReservationService) Acquire(ctx context.Context, eventID uint64, seatNumbers []string, ownerID string, ttl time.Duration) (*Lock, error) {
	seats, err := normalizeRequest(seatNumbers, ownerID)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if ttl > s.maxTTL {
		ttl = s.maxTTL
	}
	now := s.clock.Now()
	expiresAt := now.Add(ttl)

	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		for _, sn := range seats {
			ok, err := s.store.LockSeat(ctx, eventID, sn, ownerID, now, expiresAt)
			if err != nil {
				return err
			}
			if !ok {
				return s.conflictFor(ctx, eventID, sn, ownerID, now)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Lock{EventID: eventID, OwnerID: ownerID, Seats: seats, ExpiresAt: expiresAt}, nil
}

// Release returns the given seats to AVAILABLE, all-or-nothing.  Each
// seat must exist and be locked by ownerID; a booked seat can never be
// released through this path.  Expiry is not checked so an owner may
// drop its own stale lock early.
func (s *ReservationService) Release(ctx context.Context, eventID uint64, seatNumbers []string, ownerID string) ([]string, error) {
	seats, err := normalizeRequest(seatNumbers, ownerID)
	if err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		for _, sn := range seats {
			ok, err := s.store.ReleaseSeat(ctx, eventID, sn, ownerID)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			seat, err := s.store.FindSeat(ctx, eventID, sn)
			if err != nil {
				if errors.Is(err, repository.ErrSeatNotFound) {
					return fmt.Errorf("seat %s: %w", sn, repository.ErrSeatNotFound)
				}
				return err
			}
			if seat.Status == model.SeatStatusBooked {
				return &ConflictError{SeatNumber: sn, Reason: "cannot release a booked seat"}
			}
			return &ConflictError{SeatNumber: sn, Reason: "seat is not locked by this owner"}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return seats, nil
}

// Confirm converts a valid, unexpired lock on every requested seat into a
// permanent booking.  Booking creation and all seat transitions are one
// atomic unit: if any seat is missing, not locked by ownerID or holds an
// expired lock, no booking is created and no seat changes state.  An
// expired lock is rejected here regardless of whether the reaper has
// swept it yet.
func (s *ReservationService) Confirm(ctx context.Context, eventID uint64, seatNumbers []string, ownerID string) (*model.Booking, error) {
	seats, err := normalizeRequest(seatNumbers, ownerID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	booking := &model.Booking{
		ID:        uuid.NewString(),
		EventID:   eventID,
		OwnerID:   ownerID,
		Seats:     seats,
		CreatedAt: now,
	}
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateBooking(ctx, booking); err != nil {
			return err
		}
		for _, sn := range seats {
			ok, err := s.store.BookSeat(ctx, eventID, sn, ownerID, booking.ID, now)
			if err != nil {
				return err
			}
			if !ok {
				return s.conflictFor(ctx, eventID, sn, ownerID, now)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Sweep releases every lock whose expiry is at or before now and returns
// the number of seats reclaimed.  It is idempotent and safe to run
// concurrently with acquire/confirm/release: the store evaluates the
// expiry predicate against the current row, so a seat that was re-locked
// or booked in the meantime is never clobbered.
func (s *ReservationService) Sweep(ctx context.Context, now time.Time) (int64, error) {
	return s.store.ReleaseExpiredLocks(ctx, now)
}

// Now exposes the service clock, mainly for the reaper and handlers.
func (s *ReservationService) Now() time.Time { return s.clock.Now() }

// conflictFor inspects a seat that failed its conditional update and
// builds the error the caller receives.  It runs inside the same
// transaction, which is about to be rolled back either way.
func (s *ReservationService) conflictFor(ctx context.Context, eventID uint64, seatNumber, ownerID string, now time.Time) error {
	seat, err := s.store.FindSeat(ctx, eventID, seatNumber)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return fmt.Errorf("seat %s: %w", seatNumber, repository.ErrSeatNotFound)
		}
		return err
	}
	switch seat.Status {
	case model.SeatStatusBooked:
		return &ConflictError{SeatNumber: seatNumber, Reason: "seat is already booked"}
	case model.SeatStatusLocked:
		if seat.LockedBy(ownerID, now) {
			return &ConflictError{SeatNumber: seatNumber, Reason: "seat is already locked by this owner"}
		}
		if seat.LockOwner != nil && seat.LockedBy(*seat.LockOwner, now) {
			return &ConflictError{SeatNumber: seatNumber, Reason: "seat is locked by another owner"}
		}
		return &ConflictError{SeatNumber: seatNumber, Reason: "seat is not locked by this owner"}
	default:
		return &ConflictError{SeatNumber: seatNumber, Reason: "seat is not locked by this owner"}
	}
}

// normalizeRequest validates owner and seat input and deduplicates seat
// numbers while preserving request order.
func normalizeRequest(seatNumbers []string, ownerID string) ([]string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, &ValidationError{Msg: "owner_id is required"}
	}
	seen := make(map[string]struct{}, len(seatNumbers))
	seats := make([]string, 0, len(seatNumbers))
	for _, sn := range seatNumbers {
		sn = strings.TrimSpace(sn)
		if sn == "" {
			continue
		}
		if _, ok := seen[sn]; ok {
			continue
		}
		seen[sn] = struct{}{}
		seats = append(seats, sn)
	}
	if len(seats) == 0 {
		return nil, &ValidationError{Msg: "at least one seat number is required"}
	}
	return seats, nil
}
