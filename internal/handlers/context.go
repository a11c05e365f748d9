package handlers

import (
	"net/http"

	"github.com/anonto42/pitchfeed/internal/middleware"
	"github.com/labstack/echo/v4"
)

// getUserIDFromContext returns the authenticated user's ID, or 0 if the request is anonymous
func getUserIDFromContext(c echo.Context) uint {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return 0
	}
	return claims.UserID
}

// requireUserID is getUserIDFromContext for routes behind the JWT middleware
func requireUserID(c echo.Context) (uint, error) {
	id := getUserIDFromContext(c)
	if id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	return id, nil
}

// bindAndValidate binds the request body into req and runs the registered validator
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}
