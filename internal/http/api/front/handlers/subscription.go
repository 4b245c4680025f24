package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/optilift/entitlements/internal/plan"
	"github.com/optilift/entitlements/internal/profile"
)

// SubscriptionHandler serves plan change and cancellation for the caller.
type SubscriptionHandler struct {
	profiles *profile.Service
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(profiles *profile.Service) *SubscriptionHandler {
	return &SubscriptionHandler{profiles: profiles}
}

// changePlanRequest defines the request body for a plan change.
type changePlanRequest struct {
	Plan string `json:"plan"`
}

// ChangePlan switches the caller to a new plan.
func (h *SubscriptionHandler) ChangePlan(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	var body changePlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	target, errParse := plan.Parse(body.Plan)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errParse.Error()})
		return
	}

	p, found, errChange := h.profiles.ChangePlan(c.Request.Context(), identityForUser(user).ID, target)
	if errChange != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "change plan failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, formatProfile(p))
}

// Cancel marks the caller's subscription to end at the current period.
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	p, found, errCancel := h.profiles.Cancel(c.Request.Context(), identityForUser(user).ID)
	if errCancel != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cancel failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, formatProfile(p))
}
