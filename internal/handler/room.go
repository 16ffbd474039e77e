package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-booking/internal/middleware"
	"github.com/iliyamo/room-booking/internal/service"
)

type roomReq struct {
	Name     *string `json:"name" validate:"required,max=225"`
	Capacity *int    `json:"capacity" validate:"required,gte=0,lte=4294967295"`
}

type roomPatchReq struct {
	Name     *string `json:"name" validate:"omitempty,max=225"`
	Capacity *int    `json:"capacity" validate:"omitempty,gte=0,lte=4294967295"`
}

// RoomHandler serves /v1/rooms.
type RoomHandler struct {
	Rooms *service.RoomService
}

func NewRoomHandler(rooms *service.RoomService) *RoomHandler { return &RoomHandler{Rooms: rooms} }

func (h *RoomHandler) List(c echo.Context) error {
	rooms, err := h.Rooms.List(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, rooms)
}

func (h *RoomHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	room, err := h.Rooms.Get(c.Request().Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) Create(c echo.Context) error {
	var req roomReq
	if err := bind(c, &req); err != nil {
		return fail(err)
	}
	room, err := h.Rooms.Create(c.Request().Context(), middleware.PrincipalFrom(c),
		service.RoomInput{Name: *req.Name, Capacity: *req.Capacity})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, room)
}

// Update serves PUT, which needs every field, and PATCH, which changes only
// the fields supplied.
func (h *RoomHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var patch service.RoomPatch
	if partial(c) {
		var req roomPatchReq
		if err := bind(c, &req); err != nil {
			return fail(err)
		}
		patch = service.RoomPatch{Name: req.Name, Capacity: req.Capacity}
	} else {
		var req roomReq
		if err := bind(c, &req); err != nil {
			return fail(err)
		}
		patch = service.RoomPatch{Name: req.Name, Capacity: req.Capacity}
	}
	room, err := h.Rooms.Update(c.Request().Context(), middleware.PrincipalFrom(c), id, patch)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.Rooms.Delete(c.Request().Context(), middleware.PrincipalFrom(c), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}
