package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireRole returns a middleware function that enforces that the
// authenticated user holds one of the specified roles.  The roles
// accepted must come from the closed set in the repository package.
// If the user's role is not in the allowed set, the request is aborted
// with a 403 Forbidden response.  It assumes JWTAuth ran earlier and
// stored the Identity.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	// Build a set of allowed roles for constant-time lookups.
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentIdentity(c)
			if !ok || !allowed[id.Role] {
				return authErr(c, http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
