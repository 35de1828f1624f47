package middleware

// identity.go holds small helpers shared across middleware files.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID returns a string form of the authenticated user's ID for
// cache and rate-limit key building. It reads the "user_id" context key
// set by JWTAuth and returns "guest" for unauthenticated requests.
func currentUserID(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "guest"
	}
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case float64:
		return fmt.Sprintf("%.0f", t)
	case uint64:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	}
	return "guest"
}
