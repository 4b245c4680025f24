package usage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/optilift/entitlements/internal/db"
	"github.com/optilift/entitlements/internal/models"
	"github.com/optilift/entitlements/internal/plan"
	"github.com/optilift/entitlements/internal/profile"
	"github.com/optilift/entitlements/internal/store"
)

// testClock is a settable clock shared between a test and its tracker.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func seedProfile(t *testing.T, s profile.Store, id string, p plan.Plan, now time.Time) {
	t.Helper()
	prof := &profile.UserProfile{
		ID:          id,
		CreatedAt:   now,
		LastLoginAt: now,
		Subscription: profile.Subscription{
			Plan:      p,
			Status:    profile.StatusActive,
			StartDate: now,
		},
		Usage: profile.Usage{
			CurrentDayStart: profile.Midnight(now, time.UTC),
		},
		Limits: plan.DefaultLimitsFor(p),
	}
	if err := s.Save(context.Background(), prof); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func TestTrack_FreePlanQuotaLifecycle(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	s := store.NewMemoryStore()
	seedProfile(t, s, "u1", plan.Free, clock.now)
	tracker := NewTracker(s, WithClock(clock.Now), WithLocation(time.UTC))
	ctx := context.Background()

	quota := plan.DefaultLimitsFor(plan.Free).OptimizationsPerDay
	for i := 1; i <= quota; i++ {
		res, err := tracker.Track(ctx, "u1")
		if err != nil {
			t.Fatalf("track %d: %v", i, err)
		}
		if res.Remaining != quota-i {
			t.Fatalf("track %d: remaining = %d, want %d", i, res.Remaining, quota-i)
		}
	}

	_, err := tracker.Track(ctx, "u1")
	var quotaErr *QuotaExceededError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if quotaErr.Quota != quota {
		t.Fatalf("error quota = %d, want %d", quotaErr.Quota, quota)
	}

	// A rejected attempt must not mutate the counters.
	prof, ok, errGet := s.Get(ctx, "u1")
	if errGet != nil || !ok {
		t.Fatalf("get after rejection: ok=%v err=%v", ok, errGet)
	}
	if prof.Usage.OptimizationsToday != quota {
		t.Fatalf("rejection mutated daily counter: %d", prof.Usage.OptimizationsToday)
	}
	if prof.Usage.TotalOptimizations != int64(quota) {
		t.Fatalf("rejection mutated lifetime counter: %d", prof.Usage.TotalOptimizations)
	}

	// Crossing midnight resets the daily counter but not the lifetime one.
	clock.Advance(24 * time.Hour)
	res, errTrack := tracker.Track(ctx, "u1")
	if errTrack != nil {
		t.Fatalf("track next day: %v", errTrack)
	}
	if res.Remaining != quota-1 {
		t.Fatalf("next-day remaining = %d, want %d", res.Remaining, quota-1)
	}
	if res.Profile.Usage.TotalOptimizations != int64(quota)+1 {
		t.Fatalf("lifetime counter = %d, want %d", res.Profile.Usage.TotalOptimizations, quota+1)
	}
}

func TestTrack_RolloverUnlocksUserAtLimit(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 14, 23, 50, 0, 0, time.UTC)}
	s := store.NewMemoryStore()
	seedProfile(t, s, "u1", plan.Free, clock.now)
	ctx := context.Background()

	prof, _, _ := s.Get(ctx, "u1")
	prof.Usage.OptimizationsToday = prof.Limits.OptimizationsPerDay
	if err := s.Save(ctx, prof); err != nil {
		t.Fatalf("save: %v", err)
	}

	tracker := NewTracker(s, WithClock(clock.Now), WithLocation(time.UTC))

	if _, err := tracker.Track(ctx, "u1"); err == nil {
		t.Fatalf("expected rejection at limit before midnight")
	}

	// Twenty minutes later it is a new calendar day.
	clock.Advance(20 * time.Minute)
	res, err := tracker.Track(ctx, "u1")
	if err != nil {
		t.Fatalf("track after midnight: %v", err)
	}
	if res.Profile.Usage.OptimizationsToday != 1 {
		t.Fatalf("daily counter = %d, want 1", res.Profile.Usage.OptimizationsToday)
	}
	wantDayStart := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !res.Profile.Usage.CurrentDayStart.Equal(wantDayStart) {
		t.Fatalf("day start = %v, want %v", res.Profile.Usage.CurrentDayStart, wantDayStart)
	}
}

func TestTrack_UnlimitedPlan(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	s := store.NewMemoryStore()
	seedProfile(t, s, "u1", plan.Unleashed, clock.now)
	tracker := NewTracker(s, WithClock(clock.Now), WithLocation(time.UTC))
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		res, err := tracker.Track(ctx, "u1")
		if err != nil {
			t.Fatalf("track %d: %v", i, err)
		}
		if res.Remaining != plan.Unlimited {
			t.Fatalf("unlimited plan remaining = %d, want %d", res.Remaining, plan.Unlimited)
		}
	}

	prof, _, _ := s.Get(ctx, "u1")
	if prof.Usage.OptimizationsToday != 25 || prof.Usage.TotalOptimizations != 25 {
		t.Fatalf("counters must still advance on unlimited plans: %+v", prof.Usage)
	}
}

func TestTrack_MissingProfile(t *testing.T) {
	tracker := NewTracker(store.NewMemoryStore())
	if _, err := tracker.Track(context.Background(), "ghost"); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTrack_WritesUsageEvents(t *testing.T) {
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "usage-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	clock := &testClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	s := store.NewMemoryStore()
	seedProfile(t, s, "u1", plan.Free, clock.now)
	tracker := NewTracker(s, WithClock(clock.Now), WithLocation(time.UTC), WithEventLog(conn))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, errTrack := tracker.Track(ctx, "u1"); errTrack != nil {
			t.Fatalf("track %d: %v", i, errTrack)
		}
	}

	var count int64
	if errCount := conn.Model(&models.UsageEvent{}).Where("user_id = ?", "u1").Count(&count).Error; errCount != nil {
		t.Fatalf("count events: %v", errCount)
	}
	if count != 3 {
		t.Fatalf("usage event rows = %d, want 3", count)
	}

	var last models.UsageEvent
	if errLast := conn.Where("user_id = ?", "u1").Order("day_total DESC").First(&last).Error; errLast != nil {
		t.Fatalf("load last event: %v", errLast)
	}
	if last.Plan != string(plan.Free) || last.DayTotal != 3 {
		t.Fatalf("unexpected last event: %+v", last)
	}
}
