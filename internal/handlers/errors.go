package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"giveaway-referrals/internal/admission"
	"giveaway-referrals/internal/repository"
)

// statusFor maps domain errors to HTTP status codes. Transient store failures
// are 503; anything unrecognised is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, admission.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, admission.ErrCampaignNotFound), errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, admission.ErrSelfReferral), errors.Is(err, admission.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, admission.ErrDuplicateOrigin), errors.Is(err, admission.ErrCampaignClosed):
		return http.StatusConflict
	case errors.Is(err, admission.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the text shown to clients. Store failures never leak
// their cause.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, admission.ErrInvalidInput):
		return "Invalid request."
	case errors.Is(err, admission.ErrCampaignNotFound):
		return "Giveaway not found."
	case errors.Is(err, repository.ErrUserNotFound):
		return "User not found."
	case errors.Is(err, admission.ErrSelfReferral):
		return "You cannot refer yourself."
	case errors.Is(err, admission.ErrNotOwner):
		return "Unauthorized access. Only the giveaway owner can do that."
	case errors.Is(err, admission.ErrDuplicateOrigin):
		return "Cannot refer more than once in a giveaway."
	case errors.Is(err, admission.ErrCampaignClosed):
		return "This giveaway has ended."
	default:
		return "Something went wrong, please try again later."
	}
}

func respondJSONError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[HTTP] Error: %s: %v", op, err)
	}
	c.JSON(status, gin.H{"error": publicMessage(err)})
}

func respondTextError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[HTTP] Error: %s: %v", op, err)
	}
	c.String(status, publicMessage(err))
}
