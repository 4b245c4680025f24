package profile

import (
	"context"
	"testing"
	"time"

	"github.com/optilift/entitlements/internal/plan"
)

// fakeStore is a map-backed Store for service tests. getMisses forces
// the first N Get calls to report absence, which opens the same window
// a concurrent Insert winner would.
type fakeStore struct {
	rows       map[string]UserProfile
	getMisses  int
	insertErr  error
	insertSeen int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]UserProfile)}
}

func (s *fakeStore) Save(_ context.Context, p *UserProfile) error {
	s.rows[p.ID] = *p
	return nil
}

func (s *fakeStore) Insert(_ context.Context, p *UserProfile) error {
	s.insertSeen++
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, exists := s.rows[p.ID]; exists {
		return ErrDuplicateKey
	}
	s.rows[p.ID] = *p
	return nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*UserProfile, bool, error) {
	if s.getMisses > 0 {
		s.getMisses--
		return nil, false, nil
	}
	row, ok := s.rows[id]
	if !ok {
		return nil, false, nil
	}
	copied := row
	return &copied, true, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEnsure_BootstrapsFreeProfile(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewService(store, WithClock(fixedClock(now)), WithLocation(time.UTC))

	p, err := svc.Ensure(context.Background(), Identity{ID: "u1", Email: "u1@example.com", Name: "User One"}, plan.Free)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if p.Subscription.Plan != plan.Free {
		t.Fatalf("plan = %q, want free", p.Subscription.Plan)
	}
	if p.Subscription.Status != StatusActive {
		t.Fatalf("status = %q, want active", p.Subscription.Status)
	}
	if p.Subscription.RenewalDate != nil || p.Subscription.TrialEndsAt != nil {
		t.Fatalf("free plan must not carry renewal or trial dates")
	}
	if p.Limits != plan.LimitsFor(plan.Free) {
		t.Fatalf("limits = %+v, want free table entry", p.Limits)
	}
	if p.Usage.OptimizationsToday != 0 || p.Usage.TotalOptimizations != 0 {
		t.Fatalf("fresh profile must have zeroed counters: %+v", p.Usage)
	}
	wantDayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if !p.Usage.CurrentDayStart.Equal(wantDayStart) {
		t.Fatalf("day start = %v, want %v", p.Usage.CurrentDayStart, wantDayStart)
	}
}

func TestEnsure_PaidPlanGetsTrialAndRenewal(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewService(store, WithClock(fixedClock(now)), WithLocation(time.UTC))

	p, err := svc.Ensure(context.Background(), Identity{ID: "u1"}, plan.Pro)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if p.Subscription.Status != StatusTrialing {
		t.Fatalf("status = %q, want trialing", p.Subscription.Status)
	}
	if p.Subscription.RenewalDate == nil || !p.Subscription.RenewalDate.Equal(now.AddDate(0, 0, 30)) {
		t.Fatalf("renewal date = %v, want now+30d", p.Subscription.RenewalDate)
	}
	if p.Subscription.TrialEndsAt == nil || !p.Subscription.TrialEndsAt.Equal(now.AddDate(0, 0, 7)) {
		t.Fatalf("trial end = %v, want now+7d", p.Subscription.TrialEndsAt)
	}
}

func TestEnsure_ReturnsExistingUnchanged(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewService(store, WithClock(fixedClock(now)), WithLocation(time.UTC))
	ctx := context.Background()

	first, err := svc.Ensure(ctx, Identity{ID: "u1"}, plan.Free)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	first.Usage.TotalOptimizations = 5
	if errSave := store.Save(ctx, first); errSave != nil {
		t.Fatalf("save: %v", errSave)
	}

	second, err := svc.Ensure(ctx, Identity{ID: "u1"}, plan.Pro)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if second.Subscription.Plan != plan.Free {
		t.Fatalf("ensure overwrote existing plan: %q", second.Subscription.Plan)
	}
	if second.Usage.TotalOptimizations != 5 {
		t.Fatalf("ensure reset counters: %+v", second.Usage)
	}
	if store.insertSeen != 1 {
		t.Fatalf("ensure inserted %d times, want 1", store.insertSeen)
	}
}

func TestEnsure_LostRaceReadsWinner(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewService(store, WithClock(fixedClock(now)), WithLocation(time.UTC))
	ctx := context.Background()

	winner := UserProfile{
		ID:           "u1",
		Subscription: Subscription{Plan: plan.Pro, Status: StatusActive, StartDate: now},
		Limits:       plan.LimitsFor(plan.Pro),
	}
	store.rows["u1"] = winner
	// First Get misses, Insert conflicts, re-read finds the winner's row.
	store.getMisses = 1
	store.insertErr = ErrDuplicateKey

	got, err := svc.Ensure(ctx, Identity{ID: "u1"}, plan.Free)
	if err != nil {
		t.Fatalf("ensure after lost race: %v", err)
	}
	if got.Subscription.Plan != plan.Pro {
		t.Fatalf("expected winner's profile, got plan %q", got.Subscription.Plan)
	}
	if store.insertSeen != 1 {
		t.Fatalf("expected exactly one insert attempt, got %d", store.insertSeen)
	}
}

func TestChangePlan(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewService(store, WithClock(fixedClock(now)), WithLocation(time.UTC))
	ctx := context.Background()

	p, err := svc.Ensure(ctx, Identity{ID: "u1"}, plan.Free)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	p.Usage.OptimizationsToday = 4
	p.Usage.TotalOptimizations = 9
	p.Subscription.CancelAtPeriodEnd = true
	if errSave := store.Save(ctx, p); errSave != nil {
		t.Fatalf("save: %v", errSave)
	}

	changed, found, errChange := svc.ChangePlan(ctx, "u1", plan.Unleashed)
	if errChange != nil {
		t.Fatalf("change plan: %v", errChange)
	}
	if !found {
		t.Fatalf("expected profile to be found")
	}
	if changed.Subscription.Plan != plan.Unleashed {
		t.Fatalf("plan = %q, want unleashed", changed.Subscription.Plan)
	}
	if changed.Subscription.CancelAtPeriodEnd {
		t.Fatalf("plan change must clear cancel-at-period-end")
	}
	if changed.Subscription.RenewalDate == nil || !changed.Subscription.RenewalDate.Equal(now.AddDate(0, 0, 30)) {
		t.Fatalf("renewal date = %v, want now+30d", changed.Subscription.RenewalDate)
	}
	if changed.Limits != plan.LimitsFor(plan.Unleashed) {
		t.Fatalf("limits not re-derived: %+v", changed.Limits)
	}
	if changed.Usage.OptimizationsToday != 4 || changed.Usage.TotalOptimizations != 9 {
		t.Fatalf("plan change mutated usage: %+v", changed.Usage)
	}
}

func TestChangePlan_ToFreeDropsRenewal(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewService(store, WithClock(fixedClock(now)), WithLocation(time.UTC))
	ctx := context.Background()

	if _, err := svc.Ensure(ctx, Identity{ID: "u1"}, plan.Pro); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	changed, found, errChange := svc.ChangePlan(ctx, "u1", plan.Free)
	if errChange != nil || !found {
		t.Fatalf("change plan: found=%v err=%v", found, errChange)
	}
	if changed.Subscription.RenewalDate != nil {
		t.Fatalf("free plan must not carry a renewal date")
	}
}

func TestChangePlan_MissingProfile(t *testing.T) {
	svc := NewService(newFakeStore())
	_, found, err := svc.ChangePlan(context.Background(), "ghost", plan.Pro)
	if err != nil {
		t.Fatalf("change plan: %v", err)
	}
	if found {
		t.Fatalf("expected found=false for missing profile")
	}
}

func TestChangePlan_RejectsUnknownPlan(t *testing.T) {
	svc := NewService(newFakeStore())
	if _, _, err := svc.ChangePlan(context.Background(), "u1", plan.Plan("enterprise")); err == nil {
		t.Fatalf("expected error for unknown plan")
	}
}

func TestCancel_SetsOnlyFlag(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewService(store, WithClock(fixedClock(now)), WithLocation(time.UTC))
	ctx := context.Background()

	before, err := svc.Ensure(ctx, Identity{ID: "u1"}, plan.Pro)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	cancelled, found, errCancel := svc.Cancel(ctx, "u1")
	if errCancel != nil || !found {
		t.Fatalf("cancel: found=%v err=%v", found, errCancel)
	}
	if !cancelled.Subscription.CancelAtPeriodEnd {
		t.Fatalf("cancel must set CancelAtPeriodEnd")
	}
	if cancelled.Subscription.Plan != before.Subscription.Plan {
		t.Fatalf("cancel mutated plan")
	}
	if cancelled.Subscription.Status != before.Subscription.Status {
		t.Fatalf("cancel mutated status")
	}
	if cancelled.Limits != before.Limits {
		t.Fatalf("cancel mutated limits")
	}
}

func TestSameCalendarDay(t *testing.T) {
	loc := time.UTC
	a := time.Date(2026, 3, 14, 23, 59, 0, 0, loc)
	b := time.Date(2026, 3, 14, 0, 1, 0, 0, loc)
	c := time.Date(2026, 3, 15, 0, 1, 0, 0, loc)

	if !SameCalendarDay(a, b, loc) {
		t.Fatalf("same date must compare equal regardless of elapsed time")
	}
	if SameCalendarDay(a, c, loc) {
		t.Fatalf("dates across midnight must differ even two minutes apart")
	}
}
