package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"giveaway-referrals/internal/auth"
	"giveaway-referrals/internal/services"
)

// UserHandler handles user-related endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetProfile returns the current user's profile, giveaways and referral total
// GET /api/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondJSONError(c, "profile", err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
