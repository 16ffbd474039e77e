package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-booking/internal/model"
)

// statusOf maps an error kind to its HTTP status. Unknown errors are 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrConflict),
		errors.Is(err, model.ErrCapacityExceeded),
		errors.Is(err, model.ErrHasDependents):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail turns a service error into an *echo.HTTPError carrying the message
// shown to the caller. The original error stays attached for the request
// log.
func fail(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	status := statusOf(err)
	msg := "internal error"
	if status != http.StatusInternalServerError {
		var me *model.Error
		if errors.As(err, &me) {
			msg = me.Message
		} else {
			msg = err.Error()
		}
	}
	return echo.NewHTTPError(status, msg).SetInternal(err)
}

// ErrorHandler renders every error as {"error": "<message>"}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := fail(err).(*echo.HTTPError)
	if !ok {
		he = echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	msg, ok := he.Message.(string)
	if !ok {
		msg = http.StatusText(he.Code)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, echo.Map{"error": msg})
}
