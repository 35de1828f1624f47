package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// RequireRole returns a middleware that enforces that the authenticated
// account has one of the specified roles. The check goes through
// model.ParseRole, so the match is exhaustive over the closed
// BUYER/PROMOTER set: a missing, malformed or unknown role claim is
// rejected with 403 rather than falling through a string comparison.
// JWTAuth must run earlier to populate the "role" context key.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v, _ := c.Get("role").(string)
			role, err := model.ParseRole(v)
			if err != nil || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
