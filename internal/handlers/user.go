package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/pitchfeed/internal/repositories"
	"github.com/labstack/echo/v4"
)

// UserHandler resolves the caller's identity for clients that only hold a token.
type UserHandler struct {
	userRepository repositories.UserRepository
}

func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo}
}

func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/me", h.GetMe)
}

// GetMe returns the authenticated user's identity
func (h *UserHandler) GetMe(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			// token outlived its user
			return echo.NewHTTPError(http.StatusUnauthorized, "User no longer exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user.ToCompact())
}
