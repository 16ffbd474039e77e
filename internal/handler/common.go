package handler // handler defines http handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// pathID parses the :id parameter. Anything that is not a positive integer
// matches no record.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "Not found.")
	}
	return id, nil
}

// partial reports whether the request updates only the supplied fields.
func partial(c echo.Context) bool {
	return c.Request().Method == http.MethodPatch
}
