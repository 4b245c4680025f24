package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProfileRecord stores one serialized user profile as a JSON blob.
//
// The key is "profile:<userID>"; the content is the full profile document
// including subscription, usage counters, and the plan limit snapshot.
type ProfileRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Key     string         `gorm:"type:text;not null;uniqueIndex"` // Storage key derived from the user ID.
	Content datatypes.JSON `gorm:"type:jsonb;not null"`            // Serialized profile document.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
