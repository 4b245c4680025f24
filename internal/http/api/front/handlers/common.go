package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/optilift/entitlements/internal/models"
	"github.com/optilift/entitlements/internal/profile"
)

// identityForUser maps a credential user row to a profile identity.
func identityForUser(user *models.User) profile.Identity {
	return profile.Identity{
		ID:       strconv.FormatUint(user.ID, 10),
		Email:    user.Email,
		Name:     user.Name,
		Verified: user.Verified,
	}
}

// currentUser pulls the authenticated user loaded by the auth middleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	value, ok := c.Get("user")
	if !ok {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

// formatProfile formats a profile into response JSON.
func formatProfile(p *profile.UserProfile) gin.H {
	return gin.H{
		"id":           p.ID,
		"email":        p.Email,
		"name":         p.Name,
		"verified":     p.Verified,
		"createdAt":    p.CreatedAt,
		"lastLoginAt":  p.LastLoginAt,
		"subscription": p.Subscription,
		"usage":        p.Usage,
		"limits":       p.Limits,
	}
}
