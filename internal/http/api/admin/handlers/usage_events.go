package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/optilift/entitlements/internal/models"
	"gorm.io/gorm"
)

// UsageEventHandler serves the usage event audit log.
type UsageEventHandler struct {
	db *gorm.DB
}

// NewUsageEventHandler constructs a UsageEventHandler.
func NewUsageEventHandler(db *gorm.DB) *UsageEventHandler {
	return &UsageEventHandler{db: db}
}

// List returns usage events with optional filters, newest first.
func (h *UsageEventHandler) List(c *gin.Context) {
	var (
		userQ  = strings.TrimSpace(c.Query("user_id"))
		planQ  = strings.TrimSpace(c.Query("plan"))
		sinceQ = strings.TrimSpace(c.Query("since"))
		untilQ = strings.TrimSpace(c.Query("until"))
	)

	page, errPage := strconv.Atoi(c.DefaultQuery("page", "1"))
	if errPage != nil || page < 1 {
		page = 1
	}
	pageSize, errSize := strconv.Atoi(c.DefaultQuery("page_size", "100"))
	if errSize != nil || pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.UsageEvent{})
	if userQ != "" {
		q = q.Where("user_id = ?", userQ)
	}
	if planQ != "" {
		q = q.Where("plan = ?", strings.ToLower(planQ))
	}
	if sinceQ != "" {
		since, errParse := time.Parse(time.RFC3339, sinceQ)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since timestamp"})
			return
		}
		q = q.Where("counted_at >= ?", since)
	}
	if untilQ != "" {
		until, errParse := time.Parse(time.RFC3339, untilQ)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid until timestamp"})
			return
		}
		q = q.Where("counted_at < ?", until)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count usage events failed"})
		return
	}

	var rows []models.UsageEvent
	if errFind := q.Order("counted_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list usage events failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":         row.ID,
			"user_id":    row.UserID,
			"plan":       row.Plan,
			"counted_at": row.CountedAt,
			"day_total":  row.DayTotal,
			"remaining":  row.Remaining,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"events":    out,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
