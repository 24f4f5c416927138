package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-reservation/internal/model"
	"github.com/iliyamo/event-reservation/internal/repository"
)

// EventHandler serves the catalog: event creation with its seats, event
// and seat listing, and booking lookup.  It consumes the reservation
// core's outputs but never mutates seat state itself.
type EventHandler struct {
	store    *repository.Store
	validate *validator.Validate
}

// NewEventHandler constructs an EventHandler.  The store must be non-nil.
func NewEventHandler(store *repository.Store) *EventHandler {
	if store == nil {
		panic("nil store passed to NewEventHandler")
	}
	return &EventHandler{store: store, validate: validator.New()}
}

type createEventRequest struct {
	Name        string   `json:"name" validate:"required"`
	Venue       string   `json:"venue"`
	SeatNumbers []string `json:"seat_numbers" validate:"required,min=1,dive,required"`
}

// CreateEvent handles POST /v1/events.  The event row and all its seats
// are created in one transaction; every seat starts AVAILABLE.
func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	seats := dedupeSeatNumbers(req.SeatNumbers)
	if len(seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one seat number is required"})
	}

	event := &model.Event{Name: req.Name, Venue: req.Venue}
	ctx := c.Request().Context()
	err := h.store.WithTx(ctx, func(ctx context.Context) error {
		if err := h.store.CreateEvent(ctx, event); err != nil {
			return err
		}
		return h.store.CreateSeats(ctx, event.ID, seats)
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create event"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":           event.ID,
		"name":         event.Name,
		"venue":        event.Venue,
		"seat_numbers": seats,
	})
}

// ListEvents handles GET /v1/events.
func (h *EventHandler) ListEvents(c echo.Context) error {
	events, err := h.store.ListEvents(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load events"})
	}
	items := make([]echo.Map, 0, len(events))
	for _, e := range events {
		items = append(items, echo.Map{
			"id":         e.ID,
			"name":       e.Name,
			"venue":      e.Venue,
			"created_at": e.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetEvent handles GET /v1/events/:id.
func (h *EventHandler) GetEvent(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	event, err := h.store.GetEvent(c.Request().Context(), eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":         event.ID,
		"name":       event.Name,
		"venue":      event.Venue,
		"created_at": event.CreatedAt.Format(time.RFC3339),
	})
}

// GetSeats handles GET /v1/events/:id/seats.  It returns the stored seat
// map as-is: a stale lock still shows LOCKED until the reaper sweeps it
// or a new acquire reclaims the seat.
func (h *EventHandler) GetSeats(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()
	if _, err := h.store.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	seats, err := h.store.ListSeatsByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	items := make([]echo.Map, 0, len(seats))
	for _, seat := range seats {
		item := echo.Map{
			"seat_number": seat.SeatNumber,
			"status":      seat.Status,
		}
		if seat.LockOwner != nil {
			item["lock_owner"] = *seat.LockOwner
		}
		if seat.LockExpiresAt != nil {
			item["lock_expires_at"] = seat.LockExpiresAt.Format(time.RFC3339)
		}
		if seat.BookingID != nil {
			item["booking_id"] = *seat.BookingID
		}
		items = append(items, item)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetBooking handles GET /v1/bookings/:id.
func (h *EventHandler) GetBooking(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	booking, err := h.store.GetBooking(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":           booking.ID,
		"event_id":     booking.EventID,
		"owner_id":     booking.OwnerID,
		"seat_numbers": booking.Seats,
		"created_at":   booking.CreatedAt.Format(time.RFC3339),
	})
}

// dedupeSeatNumbers trims and deduplicates seat labels preserving order.
func dedupeSeatNumbers(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, sn := range in {
		sn = strings.TrimSpace(sn)
		if sn == "" {
			continue
		}
		if _, ok := seen[sn]; ok {
			continue
		}
		seen[sn] = struct{}{}
		out = append(out, sn)
	}
	return out
}
