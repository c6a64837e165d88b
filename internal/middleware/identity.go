package middleware

// identity.go holds small helpers shared across middleware files.

import "github.com/labstack/echo/v4"

// currentUserID returns the member identifier stored by JWTAuth, or "anon"
// for unauthenticated requests.  Used by the rate limiter key builder.
func currentUserID(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return v
	}
	return "anon"
}
