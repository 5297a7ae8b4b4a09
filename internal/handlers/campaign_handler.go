package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"giveaway-referrals/internal/auth"
	"giveaway-referrals/internal/services"
)

// CampaignHandler handles giveaway management endpoints
type CampaignHandler struct {
	campaigns *services.CampaignService
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(campaigns *services.CampaignService) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns}
}

// ListGiveaways returns every active giveaway
// GET /api/giveaways
func (h *CampaignHandler) ListGiveaways(c *gin.Context) {
	campaigns, err := h.campaigns.ListActive(c.Request.Context())
	if err != nil {
		respondJSONError(c, "list giveaways", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    campaigns,
		"count":   len(campaigns),
	})
}

// CreateCampaign creates a giveaway owned by the caller
// POST /api/campaigns
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	ownerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req services.CreateCampaignInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	campaign, err := h.campaigns.Create(c.Request.Context(), ownerID, req)
	if err != nil {
		respondJSONError(c, "create campaign", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    campaign,
	})
}

// ListMine returns the caller's giveaways
// GET /api/campaigns/mine
func (h *CampaignHandler) ListMine(c *gin.Context) {
	ownerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	campaigns, err := h.campaigns.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondJSONError(c, "list own campaigns", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    campaigns,
		"count":   len(campaigns),
	})
}

// GetDashboard returns a giveaway with its leaderboard, owner only
// GET /api/campaigns/:id/dashboard
func (h *CampaignHandler) GetDashboard(c *gin.Context) {
	ownerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	dashboard, err := h.campaigns.Dashboard(c.Request.Context(), c.Param("id"), ownerID)
	if err != nil {
		respondJSONError(c, "dashboard", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    dashboard,
	})
}

// UpdateDestination changes where admitted visitors are sent
// PATCH /api/campaigns/:id/destination
func (h *CampaignHandler) UpdateDestination(c *gin.Context) {
	ownerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		DestinationURL string `json:"destination_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	campaign, err := h.campaigns.UpdateDestination(c.Request.Context(), c.Param("id"), ownerID, req.DestinationURL)
	if err != nil {
		respondJSONError(c, "update destination", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    campaign,
	})
}

// CloseCampaign stops a giveaway from accepting referrals
// POST /api/campaigns/:id/close
func (h *CampaignHandler) CloseCampaign(c *gin.Context) {
	ownerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	campaign, err := h.campaigns.Close(c.Request.Context(), c.Param("id"), ownerID)
	if err != nil {
		respondJSONError(c, "close campaign", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    campaign,
	})
}

// DeleteCampaign removes a giveaway and all of its referrals
// DELETE /api/campaigns/:id
func (h *CampaignHandler) DeleteCampaign(c *gin.Context) {
	ownerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.campaigns.Delete(c.Request.Context(), c.Param("id"), ownerID); err != nil {
		respondJSONError(c, "delete campaign", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Giveaway deleted",
	})
}
