package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/optilift/entitlements/internal/models"
	"github.com/optilift/entitlements/internal/profile"

	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// keyPrefix namespaces profile rows in the key-value table.
const keyPrefix = "profile:"

// GormProfileStore persists serialized user profiles via GORM.
//
// The store is best-effort: unreadable content reads as absent rather than
// failing the caller flow.
type GormProfileStore struct {
	db *gorm.DB
}

// NewGormProfileStore constructs a GormProfileStore.
func NewGormProfileStore(db *gorm.DB) *GormProfileStore {
	return &GormProfileStore{db: db}
}

// profileKey derives the storage key for a user ID.
func profileKey(id string) string {
	return keyPrefix + strings.TrimSpace(id)
}

// Save upserts the full profile document, overwriting in place.
func (s *GormProfileStore) Save(ctx context.Context, p *profile.UserProfile) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("profile store: not initialized")
	}
	record, errBuild := s.buildRecord(p)
	if errBuild != nil {
		return errBuild
	}
	if errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(record).Error; errUpsert != nil {
		return fmt.Errorf("profile store: upsert: %w", errUpsert)
	}
	return nil
}

// Insert stores a fresh profile and fails with profile.ErrDuplicateKey when
// a record already exists for the user ID.
func (s *GormProfileStore) Insert(ctx context.Context, p *profile.UserProfile) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("profile store: not initialized")
	}
	record, errBuild := s.buildRecord(p)
	if errBuild != nil {
		return errBuild
	}
	if errCreate := s.db.WithContext(ctx).Create(record).Error; errCreate != nil {
		if isUniqueViolation(errCreate) {
			return profile.ErrDuplicateKey
		}
		return fmt.Errorf("profile store: insert: %w", errCreate)
	}
	return nil
}

// Get loads and deserializes the profile for a user ID. Absent rows and
// malformed content both report ok=false; malformed content is logged.
func (s *GormProfileStore) Get(ctx context.Context, id string) (*profile.UserProfile, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, fmt.Errorf("profile store: not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false, nil
	}

	var row models.ProfileRecord
	errFind := s.db.WithContext(ctx).Where("key = ?", profileKey(id)).Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("profile store: get: %w", errFind)
	}
	if len(row.Content) == 0 {
		return nil, false, nil
	}

	var p profile.UserProfile
	if errUnmarshal := json.Unmarshal(row.Content, &p); errUnmarshal != nil {
		log.WithError(errUnmarshal).WithField("user_id", id).Warn("profile store: malformed record, treating as absent")
		return nil, false, nil
	}
	return &p, true, nil
}

// buildRecord serializes a profile into its storage row.
func (s *GormProfileStore) buildRecord(p *profile.UserProfile) (*models.ProfileRecord, error) {
	if p == nil {
		return nil, fmt.Errorf("profile store: profile is nil")
	}
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return nil, fmt.Errorf("profile store: missing user id")
	}
	payload, errMarshal := json.Marshal(p)
	if errMarshal != nil {
		return nil, fmt.Errorf("profile store: marshal failed: %w", errMarshal)
	}
	now := time.Now().UTC()
	return &models.ProfileRecord{
		Key:       profileKey(id),
		Content:   datatypes.JSON(payload),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// isUniqueViolation reports whether the error is a duplicate-key failure
// on either supported dialect.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ profile.Store = (*GormProfileStore)(nil)
