package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"giveaway-referrals/internal/auth"
	"giveaway-referrals/internal/identity"
	"giveaway-referrals/internal/services"
)

const sessionCookieMaxAge = 365 * 24 * 60 * 60

// ReferralHandler serves the public referral link
type ReferralHandler struct {
	referrals     *services.ReferralService
	sessionCookie string
	secureCookie  bool
}

// NewReferralHandler creates a new ReferralHandler. sessionCookie names the
// cookie used as the fallback origin for clients without a usable address.
func NewReferralHandler(referrals *services.ReferralService, sessionCookie string, secureCookie bool) *ReferralHandler {
	return &ReferralHandler{
		referrals:     referrals,
		sessionCookie: sessionCookie,
		secureCookie:  secureCookie,
	}
}

// Refer credits a referrer with the visitor and redirects to the giveaway
// destination.
// POST /refer/:id
func (h *ReferralHandler) Refer(c *gin.Context) {
	var req struct {
		Name string `form:"name" json:"name"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.String(http.StatusBadRequest, "Invalid request.")
		return
	}

	requester, _ := auth.GetUsername(c)
	res, err := h.referrals.Submit(c.Request.Context(), services.Submission{
		CampaignID:   c.Param("id"),
		ReferrerName: req.Name,
		ClientIP:     c.ClientIP(),
		SessionToken: h.session(c),
		Requester:    requester,
	})
	if err != nil {
		respondTextError(c, "refer", err)
		return
	}

	c.Redirect(http.StatusFound, res.DestinationURL)
}

// session returns the visitor's session token, issuing one when absent or
// malformed.
func (h *ReferralHandler) session(c *gin.Context) string {
	if token, err := c.Cookie(h.sessionCookie); err == nil && identity.ValidSessionToken(token) {
		return token
	}

	token, err := identity.NewSessionToken()
	if err != nil {
		log.Printf("[Referral] Warning: failed to issue session token: %v", err)
		return ""
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessionCookie, token, sessionCookieMaxAge, "/", "", h.secureCookie, true)
	return token
}
