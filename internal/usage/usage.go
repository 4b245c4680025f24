package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/optilift/entitlements/internal/metrics"
	"github.com/optilift/entitlements/internal/models"
	"github.com/optilift/entitlements/internal/plan"
	"github.com/optilift/entitlements/internal/profile"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// QuotaExceededError reports that the daily optimization limit is reached.
type QuotaExceededError struct {
	Quota int
}

// Error includes the numeric quota for user-facing display.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily limit of %d optimizations reached, upgrade your plan for more", e.Quota)
}

// Result is the outcome of a successful track call.
type Result struct {
	// Remaining is the number of optimizations left today, -1 when the
	// plan is unlimited.
	Remaining int
	// Profile is the post-increment profile state.
	Profile *profile.UserProfile
}

// Tracker consumes units of daily usage against a profile's plan limits.
//
// Rollover of the daily counter is lazy: it happens on the next track call
// after a calendar-day boundary, never from a background timer, and always
// before the quota is evaluated.
type Tracker struct {
	store     profile.Store
	events    *gorm.DB
	collector *metrics.Collector
	nowFn     func() time.Time
	loc       *time.Location
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock overrides the tracker's clock.
func WithClock(nowFn func() time.Time) Option {
	return func(t *Tracker) {
		if nowFn != nil {
			t.nowFn = nowFn
		}
	}
}

// WithLocation sets the canonical location for day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithEventLog enables usage event rows written to the given database.
func WithEventLog(db *gorm.DB) Option {
	return func(t *Tracker) { t.events = db }
}

// WithCollector enables metrics recording.
func WithCollector(c *metrics.Collector) Option {
	return func(t *Tracker) { t.collector = c }
}

// NewTracker constructs a Tracker over the given profile store.
func NewTracker(store profile.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		nowFn: time.Now,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track consumes one unit of daily usage for the user.
//
// Order matters: day rollover is applied first so a user at yesterday's
// limit is not locked out across midnight, then the quota is checked
// against the (possibly reset) counter, then the counters are incremented
// and persisted. A rejected attempt other than the rollover mutates
// nothing.
func (t *Tracker) Track(ctx context.Context, userID string) (Result, error) {
	p, ok, errGet := t.store.Get(ctx, userID)
	if errGet != nil {
		log.WithError(errGet).WithField("user_id", userID).Warn("usage: profile load failed")
		t.record(false, "not_found")
		return Result{}, profile.ErrNotFound
	}
	if !ok {
		t.record(false, "not_found")
		return Result{}, profile.ErrNotFound
	}

	now := t.nowFn().In(t.loc)
	rolledOver := false
	if !profile.SameCalendarDay(now, p.Usage.CurrentDayStart, t.loc) {
		p.Usage.OptimizationsToday = 0
		p.Usage.CurrentDayStart = profile.Midnight(now, t.loc)
		rolledOver = true
	}

	quota := p.Limits.OptimizationsPerDay
	if quota != plan.Unlimited && p.Usage.OptimizationsToday >= quota {
		if rolledOver {
			// Persist the reset so reads between now and the next attempt
			// see the new day window; the counter itself is untouched.
			if errSave := t.store.Save(ctx, p); errSave != nil {
				log.WithError(errSave).WithField("user_id", userID).Warn("usage: persist rollover failed")
			}
		}
		t.record(false, "quota")
		return Result{}, &QuotaExceededError{Quota: quota}
	}

	p.Usage.OptimizationsToday++
	p.Usage.TotalOptimizations++
	p.Usage.LastOptimizationAt = &now

	if errSave := t.store.Save(ctx, p); errSave != nil {
		t.record(false, "store")
		return Result{}, fmt.Errorf("track usage: %w", errSave)
	}

	remaining := plan.Unlimited
	if quota != plan.Unlimited {
		remaining = quota - p.Usage.OptimizationsToday
	}

	t.appendEvent(ctx, p, now, remaining)
	t.record(true, "")
	return Result{Remaining: remaining, Profile: p}, nil
}

// appendEvent writes a usage event row; failures are logged, never fatal.
func (t *Tracker) appendEvent(ctx context.Context, p *profile.UserProfile, now time.Time, remaining int) {
	if t.events == nil {
		return
	}
	row := models.UsageEvent{
		UserID:    p.ID,
		Plan:      string(p.Subscription.Plan),
		CountedAt: now.UTC(),
		DayTotal:  p.Usage.OptimizationsToday,
		Remaining: remaining,
		CreatedAt: time.Now().UTC(),
	}
	if errCreate := t.events.WithContext(ctx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).WithField("user_id", p.ID).Warn("usage: append event failed")
	}
}

// record updates metrics counters.
func (t *Tracker) record(allowed bool, reason string) {
	if t.collector == nil {
		return
	}
	if allowed {
		t.collector.RecordTrackAllowed()
		return
	}
	t.collector.RecordTrackRejected(reason)
}
