package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-booking/internal/middleware"
	"github.com/iliyamo/room-booking/internal/service"
)

// reservationReq is the body of POST and PUT. An omitted user means the
// caller on create and the current holder on update.
type reservationReq struct {
	User  *uint64 `json:"user"`
	Event *uint64 `json:"event" validate:"required"`
}

type reservationPatchReq struct {
	User  *uint64 `json:"user"`
	Event *uint64 `json:"event"`
}

// ReservationHandler serves /v1/reservations.
type ReservationHandler struct {
	Reservations *service.ReservationService
}

func NewReservationHandler(reservations *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{Reservations: reservations}
}

func (h *ReservationHandler) List(c echo.Context) error {
	list, err := h.Reservations.List(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	r, err := h.Reservations.Get(c.Request().Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReservationHandler) Create(c echo.Context) error {
	var req reservationReq
	if err := bind(c, &req); err != nil {
		return fail(err)
	}
	in := service.ReservationInput{EventID: *req.Event}
	if req.User != nil {
		in.UserID = *req.User
	}
	r, err := h.Reservations.Create(c.Request().Context(), middleware.PrincipalFrom(c), in)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *ReservationHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req reservationPatchReq
	if partial(c) {
		if err := bind(c, &req); err != nil {
			return fail(err)
		}
	} else {
		var full reservationReq
		if err := bind(c, &full); err != nil {
			return fail(err)
		}
		req = reservationPatchReq(full)
	}
	r, err := h.Reservations.Update(c.Request().Context(), middleware.PrincipalFrom(c), id,
		service.ReservationPatch{UserID: req.User, EventID: req.Event})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReservationHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.Reservations.Delete(c.Request().Context(), middleware.PrincipalFrom(c), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}
