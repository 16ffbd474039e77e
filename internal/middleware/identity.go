package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-booking/internal/policy"
)

// principalKey is the context key set by Authenticate.
const principalKey = "principal"

// PrincipalFrom returns the caller stored by Authenticate, or the guest
// principal when the request carried no credentials.
func PrincipalFrom(c echo.Context) policy.Principal {
	if p, ok := c.Get(principalKey).(policy.Principal); ok {
		return p
	}
	return policy.Guest
}

func setPrincipal(c echo.Context, p policy.Principal) {
	c.Set(principalKey, p)
}

// label names the caller in logs and rate-limit keys: "staff:7",
// "member:3" or "anonymous".
func label(p policy.Principal) string {
	if !p.Authenticated() {
		return p.Role.String()
	}
	return p.Role.String() + ":" + strconv.FormatUint(p.UserID, 10)
}
