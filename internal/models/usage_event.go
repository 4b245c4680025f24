package models

import "time"

// UsageEvent records one tracked optimization for the admin dashboard.
type UsageEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID string `gorm:"type:text;not null;index"` // Owning user ID.
	Plan   string `gorm:"type:text;not null"`       // Plan at the time of the event.

	CountedAt time.Time `gorm:"not null;index"`     // When the optimization was counted.
	DayTotal  int       `gorm:"not null;default:0"` // Daily counter after the increment.
	Remaining int       `gorm:"not null;default:0"` // Remaining units, -1 when unlimited.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
