package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-booking/internal/middleware"
	"github.com/iliyamo/room-booking/internal/service"
)

// UserHandler serves the read-only /v1/users collection.
type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler { return &UserHandler{Users: users} }

func (h *UserHandler) List(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	u, err := h.Users.Get(c.Request().Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, u)
}
