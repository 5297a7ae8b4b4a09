package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"giveaway-referrals/internal/auth"
	"giveaway-referrals/internal/middleware"
)

// Pinger reports whether the backing store answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes bundles the handlers mounted by RegisterRoutes
type Routes struct {
	Referrals    *ReferralHandler
	Leaderboards *LeaderboardHandler
	Campaigns    *CampaignHandler
	Users        *UserHandler
	Limiter      *middleware.RateLimiter
	Store        Pinger
}

// RegisterRoutes mounts every endpoint on router
func RegisterRoutes(router *gin.Engine, r Routes) {
	router.GET("/health", func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if r.Store != nil {
			if err := r.Store.Ping(c.Request.Context()); err != nil {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	refer := []gin.HandlerFunc{auth.OptionalAuth()}
	if r.Limiter != nil {
		refer = append([]gin.HandlerFunc{r.Limiter.RateLimit()}, refer...)
	}
	refer = append(refer, r.Referrals.Refer)
	router.POST("/refer/:id", refer...)

	api := router.Group("/api")
	{
		api.GET("/referrals/:id", r.Leaderboards.GetCampaignBoard)
		api.GET("/leaderboard", r.Leaderboards.GetGlobalBoard)
		api.GET("/giveaways", r.Campaigns.ListGiveaways)
	}

	protected := router.Group("/api")
	protected.Use(auth.AuthMiddleware())
	{
		protected.GET("/profile", r.Users.GetProfile)
		protected.GET("/profile/total", r.Leaderboards.GetProfileTotal)

		protected.POST("/campaigns", r.Campaigns.CreateCampaign)
		protected.GET("/campaigns/mine", r.Campaigns.ListMine)
		protected.GET("/campaigns/:id/dashboard", r.Campaigns.GetDashboard)
		protected.PATCH("/campaigns/:id/destination", r.Campaigns.UpdateDestination)
		protected.POST("/campaigns/:id/close", r.Campaigns.CloseCampaign)
		protected.DELETE("/campaigns/:id", r.Campaigns.DeleteCampaign)
	}
}
