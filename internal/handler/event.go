package handler

import (
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-booking/internal/middleware"
	"github.com/iliyamo/room-booking/internal/model"
	"github.com/iliyamo/room-booking/internal/service"
)

type eventReq struct {
	Name     *string `json:"name" validate:"required,max=225"`
	Room     *uint64 `json:"room" validate:"required"`
	Date     *string `json:"date" validate:"required,datetime=2006-01-02"`
	IsPublic *bool   `json:"is_public"`
}

type eventPatchReq struct {
	Name     *string `json:"name" validate:"omitempty,max=225"`
	Room     *uint64 `json:"room"`
	Date     *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	IsPublic *bool   `json:"is_public"`
}

// patch converts the request; the date was already checked by the validator.
func (r eventPatchReq) patch() (service.EventPatch, error) {
	p := service.EventPatch{Name: r.Name, RoomID: r.Room, IsPublic: r.IsPublic}
	if r.Date != nil {
		d, err := civil.ParseDate(*r.Date)
		if err != nil {
			return p, model.Errorf(model.ErrValidation, "date: Date has wrong format. Use YYYY-MM-DD.")
		}
		p.Date = &d
	}
	return p, nil
}

// EventHandler serves /v1/events.
type EventHandler struct {
	Events *service.EventService
}

func NewEventHandler(events *service.EventService) *EventHandler { return &EventHandler{Events: events} }

func (h *EventHandler) List(c echo.Context) error {
	events, err := h.Events.List(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, events)
}

func (h *EventHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	e, err := h.Events.Get(c.Request().Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *EventHandler) Create(c echo.Context) error {
	var req eventReq
	if err := bind(c, &req); err != nil {
		return fail(err)
	}
	p, err := eventPatchReq(req).patch()
	if err != nil {
		return fail(err)
	}
	in := service.EventInput{Name: *p.Name, RoomID: *p.RoomID, Date: *p.Date}
	if p.IsPublic != nil {
		in.IsPublic = *p.IsPublic
	}
	e, err := h.Events.Create(c.Request().Context(), middleware.PrincipalFrom(c), in)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, e)
}

// Update serves PUT and PATCH. A PUT without is_public resets it to false.
func (h *EventHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req eventPatchReq
	if partial(c) {
		if err := bind(c, &req); err != nil {
			return fail(err)
		}
	} else {
		var full eventReq
		if err := bind(c, &full); err != nil {
			return fail(err)
		}
		req = eventPatchReq(full)
		if req.IsPublic == nil {
			req.IsPublic = new(bool)
		}
	}
	p, err := req.patch()
	if err != nil {
		return fail(err)
	}
	e, err := h.Events.Update(c.Request().Context(), middleware.PrincipalFrom(c), id, p)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *EventHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.Events.Delete(c.Request().Context(), middleware.PrincipalFrom(c), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}
