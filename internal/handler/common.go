// Package handler contains the HTTP layer: request binding, auth context
// extraction and translation of domain errors into status codes. No
// business rule lives here; handlers delegate to the reservation core
// and the repositories.
package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// getUserID extracts the authenticated user's ID from the Echo context.
// The JWT middleware stores the raw claim value, which arrives as
// float64 after JSON decoding; other numeric kinds are accepted for
// robustness.
func getUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case uint64:
		return v, true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// pathID parses the named route parameter as an unsigned ID.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
