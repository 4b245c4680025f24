package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/optilift/entitlements/internal/plan"
)

// PlanHandler serves the plan limit table for pricing pages.
type PlanHandler struct{}

// NewPlanHandler constructs a PlanHandler.
func NewPlanHandler() *PlanHandler {
	return &PlanHandler{}
}

// List returns every plan with its effective limits.
func (h *PlanHandler) List(c *gin.Context) {
	out := make([]gin.H, 0, len(plan.All()))
	for _, p := range plan.All() {
		limits := plan.LimitsFor(p)
		out = append(out, gin.H{
			"plan":   p,
			"limits": limits,
		})
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}
