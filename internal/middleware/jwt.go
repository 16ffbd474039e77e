package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-booking/internal/policy"
	"github.com/iliyamo/room-booking/internal/utils"
)

// Authenticate resolves the caller of every request. A request without an
// Authorization header is anonymous. A Bearer access token signed with
// secret makes the caller a member or staff principal, depending on its
// role claim. Any other header value is rejected with 401.
func Authenticate(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth == "" {
				setPrincipal(c, policy.Guest)
				return next(c)
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			uid, role, err := utils.ParseAccessToken(secret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			setPrincipal(c, policy.Principal{UserID: uid, Role: policy.RoleFromClaim(role)})
			return next(c)
		}
	}
}
