package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	dbutil "github.com/optilift/entitlements/internal/db"
	"github.com/optilift/entitlements/internal/models"
	"github.com/optilift/entitlements/internal/plan"
	"github.com/optilift/entitlements/internal/profile"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// profileKeyPrefix mirrors the profile store's key namespace.
const profileKeyPrefix = "profile:"

// ProfileHandler serves admin views over stored user profiles.
type ProfileHandler struct {
	db       *gorm.DB
	profiles *profile.Service
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(db *gorm.DB, profiles *profile.Service) *ProfileHandler {
	return &ProfileHandler{db: db, profiles: profiles}
}

// List returns profiles with optional search and plan filters.
func (h *ProfileHandler) List(c *gin.Context) {
	var (
		searchQ = strings.TrimSpace(c.Query("search"))
		planQ   = strings.TrimSpace(c.Query("plan"))
	)

	page, errPage := strconv.Atoi(c.DefaultQuery("page", "1"))
	if errPage != nil || page < 1 {
		page = 1
	}
	pageSize, errSize := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if errSize != nil || pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.ProfileRecord{})
	if searchQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+searchQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "key"), pattern)
	}
	if planQ != "" {
		q = q.Where(dbutil.JSONExtractTextExpr(h.db, "content", "subscription.plan")+" = ?", strings.ToLower(planQ))
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count profiles failed"})
		return
	}

	var rows []models.ProfileRecord
	if errFind := q.Order("updated_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list profiles failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		var p profile.UserProfile
		if errUnmarshal := json.Unmarshal(row.Content, &p); errUnmarshal != nil {
			log.WithError(errUnmarshal).WithField("key", row.Key).Warn("admin: skip malformed profile record")
			continue
		}
		out = append(out, gin.H{
			"userId":     strings.TrimPrefix(row.Key, profileKeyPrefix),
			"profile":    p,
			"updated_at": row.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"profiles":  out,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get returns one user's profile by user ID.
func (h *ProfileHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var row models.ProfileRecord
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("key = ?", profileKeyPrefix+id).
		Take(&row).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var p profile.UserProfile
	if errUnmarshal := json.Unmarshal(row.Content, &p); errUnmarshal != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":     id,
		"profile":    p,
		"updated_at": row.UpdatedAt,
	})
}

// changeProfilePlanRequest defines the request body for an admin plan change.
type changeProfilePlanRequest struct {
	Plan string `json:"plan"`
}

// ChangePlan switches a user's plan on their behalf.
func (h *ProfileHandler) ChangePlan(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body changeProfilePlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	target, errParse := plan.Parse(body.Plan)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errParse.Error()})
		return
	}

	p, found, errChange := h.profiles.ChangePlan(c.Request.Context(), id, target)
	if errChange != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "change plan failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":  id,
		"profile": p,
	})
}
