package settings

import (
	"encoding/json"
	"sync"

	"github.com/optilift/entitlements/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	mu     sync.RWMutex
	conn   *gorm.DB
	cache  map[string]json.RawMessage
	loaded bool
)

// Bind attaches the database connection used for settings lookups.
func Bind(db *gorm.DB) {
	mu.Lock()
	defer mu.Unlock()
	conn = db
	cache = nil
	loaded = false
}

// Invalidate drops the cached snapshot so the next lookup reloads from DB.
func Invalidate() {
	mu.Lock()
	defer mu.Unlock()
	cache = nil
	loaded = false
}

// DBConfigValue returns the raw JSON value for a settings key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	mu.RLock()
	if loaded {
		value, ok := cache[key]
		mu.RUnlock()
		return value, ok
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if !loaded {
		if errLoad := reloadLocked(); errLoad != nil {
			log.WithError(errLoad).Warn("settings: load snapshot failed")
			return nil, false
		}
	}
	value, ok := cache[key]
	return value, ok
}

// reloadLocked refreshes the cached snapshot from the settings table.
func reloadLocked() error {
	if conn == nil {
		cache = map[string]json.RawMessage{}
		loaded = true
		return nil
	}
	var rows []models.Setting
	if errFind := conn.Find(&rows).Error; errFind != nil {
		return errFind
	}
	next := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		if len(row.Value) == 0 {
			continue
		}
		next[row.Key] = row.Value
	}
	cache = next
	loaded = true
	return nil
}
