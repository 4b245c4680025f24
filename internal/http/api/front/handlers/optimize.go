package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/optilift/entitlements/internal/plan"
	"github.com/optilift/entitlements/internal/profile"
	"github.com/optilift/entitlements/internal/ratelimit"
	"github.com/optilift/entitlements/internal/usage"
	log "github.com/sirupsen/logrus"
)

// OptimizeHandler gates and counts optimization requests.
type OptimizeHandler struct {
	profiles *profile.Service
	tracker  *usage.Tracker
	limiter  *ratelimit.Manager
}

// NewOptimizeHandler constructs an OptimizeHandler.
func NewOptimizeHandler(profiles *profile.Service, tracker *usage.Tracker, limiter *ratelimit.Manager) *OptimizeHandler {
	return &OptimizeHandler{profiles: profiles, tracker: tracker, limiter: limiter}
}

// optimizeRequest defines the request body for an optimization.
type optimizeRequest struct {
	Source string `json:"source"`
}

// Create validates the pasted source, applies the burst limiter, and
// consumes one unit of daily usage.
func (h *OptimizeHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var body optimizeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Source == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing source"})
		return
	}

	identity := identityForUser(user)
	p, errEnsure := h.profiles.Ensure(c.Request.Context(), identity, plan.Free)
	if errEnsure != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load profile failed"})
		return
	}
	if max := p.Limits.MaxPasteCharacters; max != plan.Unlimited && len([]rune(body.Source)) > max {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":              "pasted source too large",
			"maxPasteCharacters": max,
		})
		return
	}

	if h.limiter != nil {
		result, errAllow := h.limiter.Allow(c.Request.Context(), identity.ID)
		if errAllow != nil {
			log.WithError(errAllow).WithField("user_id", identity.ID).Warn("optimize: rate limit check failed")
		} else if !result.Allowed {
			c.Header("Retry-After", "60")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
	}

	tracked, errTrack := h.tracker.Track(c.Request.Context(), identity.ID)
	if errTrack != nil {
		var quotaErr *usage.QuotaExceededError
		if errors.As(errTrack, &quotaErr) {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":     quotaErr.Error(),
				"quota":     quotaErr.Quota,
				"remaining": 0,
			})
			return
		}
		if errors.Is(errTrack, profile.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "track usage failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"remaining": tracked.Remaining,
		"usage":     tracked.Profile.Usage,
	})
}
