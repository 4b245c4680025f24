package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/optilift/entitlements/internal/plan"
	"github.com/optilift/entitlements/internal/profile"
)

// ProfileHandler serves the authenticated user's profile.
type ProfileHandler struct {
	profiles *profile.Service
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(profiles *profile.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Me returns the caller's profile, bootstrapping one when missing.
func (h *ProfileHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	p, errEnsure := h.profiles.Ensure(c.Request.Context(), identityForUser(user), plan.Free)
	if errEnsure != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load profile failed"})
		return
	}
	c.JSON(http.StatusOK, formatProfile(p))
}
