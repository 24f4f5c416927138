package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-reservation/internal/repository"
	"github.com/iliyamo/event-reservation/internal/service"
)

// writeError translates service and repository errors into HTTP
// responses.  Conflicts carry the offending seat number so multi-seat
// requests can be retried with adjusted input.  Storage failures are
// reported opaquely; the transaction has already been rolled back.
func writeError(c echo.Context, err error) error {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Msg})
	}
	var conflict *service.ConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       conflict.Reason,
			"seat_number": conflict.SeatNumber,
		})
	}
	switch {
	case errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrSeatNotFound),
		errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
}
