package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-reservation/internal/model"
	"github.com/iliyamo/event-reservation/internal/queue"
	"github.com/iliyamo/event-reservation/internal/repository"
	"github.com/iliyamo/event-reservation/internal/service"
)

// Reserver is the reservation core as the HTTP layer sees it.
type Reserver interface {
	Acquire(ctx context.Context, eventID uint64, seatNumbers []string, ownerID string, ttl time.Duration) (*service.Lock, error)
	Confirm(ctx context.Context, eventID uint64, seatNumbers []string, ownerID string) (*model.Booking, error)
	Release(ctx context.Context, eventID uint64, seatNumbers []string, ownerID string) ([]string, error)
}

// EventGetter resolves event metadata for request validation and event
// publishing.
type EventGetter interface {
	GetEvent(ctx context.Context, id uint64) (*model.Event, error)
}

// Publisher fans a confirmed booking out to the message broker.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// ReservationHandler exposes the lock/confirm/release endpoints.  The
// publisher may be nil, in which case confirmations are not fanned out.
type ReservationHandler struct {
	svc       Reserver
	events    EventGetter
	publisher Publisher
	validate  *validator.Validate
}

// NewReservationHandler constructs a ReservationHandler.  svc and events
// must be non-nil.
func NewReservationHandler(svc Reserver, events EventGetter, publisher Publisher) *ReservationHandler {
	if svc == nil || events == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{
		svc:       svc,
		events:    events,
		publisher: publisher,
		validate:  validator.New(),
	}
}

type lockRequest struct {
	OwnerID     string   `json:"owner_id" validate:"required"`
	SeatNumbers []string `json:"seat_numbers" validate:"required,min=1,dive,required"`
	TTLSeconds  int      `json:"ttl_seconds" validate:"omitempty,gte=1"`
}

type confirmRequest struct {
	OwnerID     string   `json:"owner_id" validate:"required"`
	SeatNumbers []string `json:"seat_numbers" validate:"required,min=1,dive,required"`
}

// Lock handles POST /v1/events/:id/lock.  It places a time-bounded
// exclusive hold on the requested seats for the given owner,
// all-or-nothing, and returns the expiry the caller has to confirm by.
func (h *ReservationHandler) Lock(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req lockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	if _, err := h.events.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	lock, err := h.svc.Acquire(ctx, eventID, req.SeatNumbers, req.OwnerID, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"seat_numbers": lock.Seats,
		"expires_at":   lock.ExpiresAt.Format(time.RFC3339),
	})
}

// Confirm handles POST /v1/events/:id/confirm.  It converts a live hold
// into a permanent booking and publishes a booking.confirmed event on
// success.  Publishing is best effort; a broker failure never fails the
// request.
func (h *ReservationHandler) Confirm(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	event, err := h.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	booking, err := h.svc.Confirm(ctx, eventID, req.SeatNumbers, req.OwnerID)
	if err != nil {
		return writeError(c, err)
	}
	if h.publisher != nil {
		ev := queue.BookingConfirmedEvent{
			BookingID:   booking.ID,
			EventID:     booking.EventID,
			EventName:   event.Name,
			OwnerID:     booking.OwnerID,
			SeatNumbers: booking.Seats,
			ConfirmedAt: booking.CreatedAt.Format(time.RFC3339),
		}
		if err := h.publisher.PublishBookingConfirmed(ctx, ev); err != nil {
			log.Printf("booking confirmed but publish failed: %v", err)
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id":   booking.ID,
		"seat_numbers": booking.Seats,
		"created_at":   booking.CreatedAt.Format(time.RFC3339),
	})
}

// Release handles POST /v1/events/:id/release.  It drops the owner's
// holds on the requested seats, all-or-nothing.
func (h *ReservationHandler) Release(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	if _, err := h.events.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	released, err := h.svc.Release(ctx, eventID, req.SeatNumbers, req.OwnerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"released":     len(released),
		"seat_numbers": released,
	})
}

func eventIDParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid event id")
	}
	return id, nil
}
