package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-reservation/internal/clock"
	"github.com/iliyamo/event-reservation/internal/model"
	"github.com/iliyamo/event-reservation/internal/repository"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore) (*ReservationService, *clock.Fixed) {
	clk := clock.NewFixed(testNow)
	svc := NewReservationService(store, clk, WithDefaultTTL(60*time.Second))
	return svc, clk
}

func TestAcquireLocksAvailableSeats(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, "A1", model.SeatStatusAvailable, nil, nil)
	store.addSeat(1, "A2", model.SeatStatusAvailable, nil, nil)
	svc, _ := newTestService(store)

	lock, err := svc.Acquire(context.Background(), 1, []string{"A1", "A2"}, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, lock.Seats)
	assert.Equal(t, testNow.Add(60*time.Second), lock.ExpiresAt)

	for _, sn := range []string{"A1", "A2"} {
		seat := store.seat(1, sn)
		assert.Equal(t, model.SeatStatusLocked, seat.Status)
		require.NotNil(t, seat.LockOwner)
		assert.Equal(t, "u1", *seat.LockOwner)
		require.NotNil(t, seat.LockExpiresAt)
		assert.Equal(t, lock.ExpiresAt, *seat.LockExpiresAt)
	}
}

func TestAcquireConflictRollsBackWholeBatch(t *testing.T) {
	store := newFakeStore()
	other := "u2"
	otherExp := testNow.Add(time.Minute)
	store.addSeat(1, "A1", model.SeatStatusAvailable, nil, nil)
	store.addSeat(1, "A2", model.SeatStatusAvailable, nil, nil)
	store.addSeat(1, "A3", model.SeatStatusLocked, &other, &otherExp)
	svc, _ := newTestService(store)

	_, err := svc.Acquire(context.Background(), 1, []string{"A1", "A2", "A3"}, "u1", 0)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "A3", conflict.SeatNumber)
	assert.Equal(t, "seat is locked by another owner", conflict.Reason)

	// A1 and A2 must not be left partially locked.
	assert.Equal(t, model.SeatStatusAvailable, store.seat(1, "A1").Status)
	assert.Equal(t, model.SeatStatusAvailable, store.seat(1, "A2").Status)
	assert.Equal(t, model.SeatStatusLocked, store.seat(1, "A3").Status)
	assert.Equal(t, other, *store.seat(1, "A3").LockOwner)
}

func TestAcquireReclaimsExpiredLock(t *testing.T) {
	store := newFakeStore()
	u1 := "u1"
	staleExp := testNow.Add(-time.Second)
	store.addSeat(1, "A1", model.SeatStatusLocked, &u1, &staleExp)
	svc, _ := newTestService(store)

	lock, err := svc.Acquire(context.Background(), 1, []string{"A1"}, "u2", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, lock.Seats)
	assert.Equal(t, "u2", *store.seat(1, "A1").LockOwner)

	// The original owner's confirm must now fail.
	_, err = svc.Confirm(context.Background(), 1, []string{"A1"}, "u1")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "A1", conflict.SeatNumber)
}

func TestAcquireRejectsBookedSeat(t *testing.T) {
	store := newFakeStore()
	bookingID := "b-1"
	store.addSeat(1, "A1", model.SeatStatusBooked, nil, nil)
	store.seat(1, "A1").BookingID = &bookingID
	svc, _ := newTestService(store)

	_, err := svc.Acquire(context.Background(), 1, []string{"A1"}, "u1", 0)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "seat is already booked", conflict.Reason)
}

func TestAcquireValidation(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, "A1", model.SeatStatusAvailable, nil, nil)
	svc, _ := newTestService(store)
	ctx := context.Background()

	var ve *ValidationError
	_, err := svc.Acquire(ctx, 1, []string{"A1"}, "", 0)
	require.ErrorAs(t, err, &ve)

	_, err = svc.Acquire(ctx, 1, nil, "u1", 0)
	require.ErrorAs(t, err, &ve)

	_, err = svc.Acquire(ctx, 1, []string{"  ", ""}, "u1", 0)
	require.ErrorAs(t, err, &ve)

	// Duplicates collapse into one lock.
	lock, err := svc.Acquire(ctx, 1, []string{"A1", "A1"}, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, lock.Seats)
}

func TestAcquireUnknownSeatIsNotFound(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, "A1", model.SeatStatusAvailable, nil, nil)
	svc, _ := newTestService(store)

	_, err := svc.Acquire(context.Background(), 1, []string{"A1", "Z9"}, "u1", 0)
	require.ErrorIs(t, err, repository.ErrSeatNotFound)
	// The valid seat of the batch must have been rolled back.
	assert.Equal(t, model.SeatStatusAvailable, store.seat(1, "A1").Status)
}

func TestAcquireTTLClamping(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, "A1", model.SeatStatusAvailable, nil, nil)
	svc := NewReservationService(store, clock.NewFixed(testNow),
		WithDefaultTTL(30*time.Second), WithMaxTTL(2*time.Minute))

	lock, err := svc.Acquire(context.Background(), 1, []string{"A1"}, "u1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(2*time.Minute), lock.ExpiresAt)
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, "A1", model.SeatStatusAvailable, nil, nil)
	svc, _ := newTestService(store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, owner := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(i int, owner string) {
			defer wg.Done()
			_, errs[i] = svc.Acquire(context.Background(), 1, []string{"A1"}, owner, 0)
		}(i, owner)
	}
	wg.Wait()

	var conflicts int
	for _, err := range errs {
		if err != nil {
			var conflict *ConflictError
			require.ErrorAs(t, err, &conflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts, "exactly one of two competing acquires must lose")
	assert.Equal(t, model.SeatStatusLocked, store.seat(1, "A1").Status)
}

func TestReleaseByOwner(t *testing.T) {
	store := newFakeStore()
	u1 := "u1"
	exp := testNow.Add(time.Minute)
	store.addSeat(1, "A1", model.SeatStatusLocked, &u1, &exp)
	store.addSeat(1, "A2", model.SeatStatusLocked, &u1, &exp)
	svc, _ := newTestService(store)

	released, err := svc.Release(context.Background(), 1, []string{"A1", "A2"}, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, released)
	for _, sn := range released {
		seat := store.seat(1, sn)
		assert.Equal(t, model.SeatStatusAvailable, seat.Status)
		assert.Nil(t, seat.LockOwner)
		assert.Nil(t, seat.LockExpiresAt)
	}
}

func TestReleaseFailuresAbortBatch(t *testing.T) {
	store := newFakeStore()
	u1, u2 := "u1", "u2"
	exp := testNow.Add(time.Minute)
	svc, _ := newTestService(store)
	ctx := context.Background()

	t.Run("seat locked by someone else", func(t *testing.T) {
		store.addSeat(1, "A1", model.SeatStatusLocked, &u1, &exp)
		store.addSeat(1, "A2", model.SeatStatusLocked, &u2, &exp)
		_, err := svc.Release(ctx, 1, []string{"A1", "A2"}, "u1")
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "A2", conflict.SeatNumber)
		// A1 keeps its lock because the batch rolled back.
		assert.Equal(t, model.SeatStatusLocked, store.seat(1, "A1").Status)
	})

	t.Run("booked seat cannot be released", func(t *testing.T) {
		store.addSeat(1, "B1", model.SeatStatusBooked, nil, nil)
		_, err := svc.Release(ctx, 1, []string{"B1"}, "u1")
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "cannot release a booked seat", conflict.Reason)
		assert.Equal(t, model.SeatStatusBooked, store.seat(1, "B1").Status)
	})

	t.Run("unknown seat", func(t *testing.T) {
		_, err := svc.Release(ctx, 1, []string{"Z9"}, "u1")
		require.ErrorIs(t, err, repository.ErrSeatNotFound)
	})
}

func TestConfirmCreatesBooking(t *testing.T) {
	store := newFakeStore()
	u1 := "u1"
	exp := testNow.Add(time.Minute)
	store.addSeat(1, "A1", model.SeatStatusLocked, &u1, &exp)
	store.addSeat(1, "A2", model.SeatStatusLocked, &u1, &exp)
	svc, _ := newTestService(store)
	ctx := context.Background()

	booking, err := svc.Confirm(ctx, 1, []string{"A1", "A2"}, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, booking.ID)
	assert.Equal(t, uint64(1), booking.EventID)
	assert.Equal(t, "u1", booking.OwnerID)
	assert.Equal(t, []string{"A1", "A2"}, booking.Seats)
	assert.Equal(t, testNow, booking.CreatedAt)

	for _, sn := range booking.Seats {
		seat := store.seat(1, sn)
		assert.Equal(t, model.SeatStatusBooked, seat.Status)
		require.NotNil(t, seat.BookingID)
		assert.Equal(t, booking.ID, *seat.BookingID)
		assert.Nil(t, seat.LockOwner)
		assert.Nil(t, seat.LockExpiresAt)
	}
	require.Contains(t, store.bookings, booking.ID)

	// A second confirm for the same seats must conflict, whoever asks.
	for _, owner := range []string{"u1", "u2"} {
		_, err := svc.Confirm(ctx, 1, []string{"A1", "A2"}, owner)
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "seat is already booked", conflict.Reason)
	}
	assert.Len(t, store.bookings, 1)
}

func TestConfirmExpiredLockAbortsEverything(t *testing.T) {
	store := newFakeStore()
	u1 := "u1"
	liveExp := testNow.Add(time.Minute)
	staleExp := testNow.Add(-time.Second)
	store.addSeat(1, "A1", model.SeatStatusLocked, &u1, &liveExp)
	store.addSeat(1, "A2", model.SeatStatusLocked, &u1, &staleExp)
	svc, _ := newTestService(store)

	_, err := svc.Confirm(context.Background(), 1, []string{"A1", "A2"}, "u1")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "A2", conflict.SeatNumber)
	assert.Equal(t, "seat is not locked by this owner", conflict.Reason)

	// No booking, and A1 keeps its live lock instead of being booked alone.
	assert.Empty(t, store.bookings)
	seat := store.seat(1, "A1")
	assert.Equal(t, model.SeatStatusLocked, seat.Status)
	assert.Equal(t, "u1", *seat.LockOwner)
}

func TestConfirmWrongOwner(t *testing.T) {
	store := newFakeStore()
	u1 := "u1"
	exp := testNow.Add(time.Minute)
	store.addSeat(1, "A1", model.SeatStatusLocked, &u1, &exp)
	svc, _ := newTestService(store)

	_, err := svc.Confirm(context.Background(), 1, []string{"A1"}, "u2")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "seat is locked by another owner", conflict.Reason)
	assert.Empty(t, store.bookings)
}

func TestSweepIdempotent(t *testing.T) {
	store := newFakeStore()
	u1 := "u1"
	stale := testNow.Add(-time.Second)
	live := testNow.Add(time.Minute)
	store.addSeat(1, "A1", model.SeatStatusLocked, &u1, &stale)
	store.addSeat(1, "A2", model.SeatStatusLocked, &u1, &stale)
	store.addSeat(1, "A3", model.SeatStatusLocked, &u1, &live)
	store.addSeat(1, "A4", model.SeatStatusBooked, nil, nil)
	svc, _ := newTestService(store)
	ctx := context.Background()

	n, err := svc.Sweep(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, model.SeatStatusAvailable, store.seat(1, "A1").Status)
	assert.Equal(t, model.SeatStatusAvailable, store.seat(1, "A2").Status)
	assert.Equal(t, model.SeatStatusLocked, store.seat(1, "A3").Status)
	assert.Equal(t, model.SeatStatusBooked, store.seat(1, "A4").Status)

	// Running again with no intervening activity releases nothing.
	n, err = svc.Sweep(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestStaleLockLifecycleScenario(t *testing.T) {
	// create event seats [A1 A2]; u1 locks A1 with ttl=1s; 2s later u2
	// reclaims A1; u1's confirm then conflicts.
	store := newFakeStore()
	store.addSeat(1, "A1", model.SeatStatusAvailable, nil, nil)
	store.addSeat(1, "A2", model.SeatStatusAvailable, nil, nil)
	clk := clock.NewFixed(testNow)
	svc := NewReservationService(store, clk)
	ctx := context.Background()

	_, err := svc.Acquire(ctx, 1, []string{"A1"}, "u1", time.Second)
	require.NoError(t, err)

	clk.Advance(2 * time.Second)

	lock, err := svc.Acquire(ctx, 1, []string{"A1"}, "u2", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, lock.Seats)

	_, err = svc.Confirm(ctx, 1, []string{"A1"}, "u1")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "A1", conflict.SeatNumber)
}

func TestStorageErrorAbortsBatch(t *testing.T) {
	store := newFakeStore()
	store.addSeat(1, "A1", model.SeatStatusAvailable, nil, nil)
	svc, _ := newTestService(store)

	boom := errors.New("connection reset")
	store.failWith = boom
	_, err := svc.Acquire(context.Background(), 1, []string{"A1"}, "u1", 0)
	require.ErrorIs(t, err, boom)

	store.failWith = nil
	assert.Equal(t, model.SeatStatusAvailable, store.seat(1, "A1").Status)
}
