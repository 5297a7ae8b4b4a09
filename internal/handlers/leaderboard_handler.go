package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"giveaway-referrals/internal/auth"
	"giveaway-referrals/internal/services"
)

// LeaderboardHandler serves campaign and global boards
type LeaderboardHandler struct {
	leaderboards *services.LeaderboardService
}

// NewLeaderboardHandler creates a new LeaderboardHandler
func NewLeaderboardHandler(leaderboards *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboards: leaderboards}
}

// GetCampaignBoard returns the ranked referrers of one giveaway
// GET /api/referrals/:id
func (h *LeaderboardHandler) GetCampaignBoard(c *gin.Context) {
	board, err := h.leaderboards.RankCampaign(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondJSONError(c, "campaign board", err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// GetGlobalBoard returns referrers ranked across every giveaway
// GET /api/leaderboard
func (h *LeaderboardHandler) GetGlobalBoard(c *gin.Context) {
	board, err := h.leaderboards.RankGlobal(c.Request.Context())
	if err != nil {
		respondJSONError(c, "global board", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    board,
		"count":   len(board),
	})
}

// GetProfileTotal returns the signed-in user's referrals across all giveaways
// GET /api/profile/total
func (h *LeaderboardHandler) GetProfileTotal(c *gin.Context) {
	username, exists := auth.GetUsername(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	total, err := h.leaderboards.ReferrerTotal(c.Request.Context(), username)
	if err != nil {
		respondJSONError(c, "profile total", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"referrer_name": username,
		"total":         total,
	})
}
