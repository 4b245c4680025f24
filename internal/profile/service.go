package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/optilift/entitlements/internal/metrics"
	"github.com/optilift/entitlements/internal/plan"

	log "github.com/sirupsen/logrus"
)

// trialDays and renewalDays derive the paid-plan dates set at bootstrap
// and plan change.
const (
	trialDays   = 7
	renewalDays = 30
)

// Service owns profile lifecycle operations: bootstrap, login stamping,
// plan changes, and cancellation.
type Service struct {
	store     Store
	collector *metrics.Collector
	nowFn     func() time.Time
	loc       *time.Location
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the clock used for all timestamps.
func WithClock(nowFn func() time.Time) Option {
	return func(s *Service) {
		if nowFn != nil {
			s.nowFn = nowFn
		}
	}
}

// WithLocation sets the canonical location for calendar-day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithCollector enables metrics recording.
func WithCollector(c *metrics.Collector) Option {
	return func(s *Service) { s.collector = c }
}

// NewService constructs a Service backed by the given store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		nowFn: time.Now,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ensure returns the stored profile for the identity, creating a fresh one
// when none exists. An existing profile is returned unchanged; Ensure never
// overwrites.
func (s *Service) Ensure(ctx context.Context, identity Identity, p plan.Plan) (*UserProfile, error) {
	if identity.ID == "" {
		return nil, fmt.Errorf("ensure profile: empty user id")
	}
	if existing, ok, errGet := s.store.Get(ctx, identity.ID); errGet != nil {
		return nil, fmt.Errorf("ensure profile: %w", errGet)
	} else if ok {
		return existing, nil
	}

	created := s.build(identity, p)
	if errInsert := s.store.Insert(ctx, created); errInsert != nil {
		if errors.Is(errInsert, ErrDuplicateKey) {
			// Lost a bootstrap race; the winner's record stands.
			existing, ok, errGet := s.store.Get(ctx, identity.ID)
			if errGet == nil && ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("ensure profile: %w", errInsert)
	}
	s.collector.RecordProfileCreated()
	log.WithField("user_id", identity.ID).Infof("bootstrapped %s profile", created.Subscription.Plan)
	return created, nil
}

// build constructs a fresh profile for the identity on the given plan.
func (s *Service) build(identity Identity, p plan.Plan) *UserProfile {
	if !p.Valid() {
		p = plan.Free
	}
	now := s.nowFn().In(s.loc)

	sub := Subscription{
		Plan:      p,
		Status:    StatusActive,
		StartDate: now,
	}
	if p != plan.Free {
		renewal := now.AddDate(0, 0, renewalDays)
		trialEnd := now.AddDate(0, 0, trialDays)
		sub.RenewalDate = &renewal
		sub.TrialEndsAt = &trialEnd
		sub.Status = StatusTrialing
	}

	return &UserProfile{
		ID:           identity.ID,
		Email:        identity.Email,
		Name:         identity.Name,
		Verified:     identity.Verified,
		CreatedAt:    now,
		LastLoginAt:  now,
		Subscription: sub,
		Usage: Usage{
			CurrentDayStart: midnight(now, s.loc),
		},
		Limits: plan.LimitsFor(p),
	}
}

// RecordLogin stamps LastLoginAt on an existing profile.
func (s *Service) RecordLogin(ctx context.Context, id string) (*UserProfile, error) {
	p, ok, errGet := s.store.Get(ctx, id)
	if errGet != nil {
		return nil, fmt.Errorf("record login: %w", errGet)
	}
	if !ok {
		return nil, ErrNotFound
	}
	p.LastLoginAt = s.nowFn().In(s.loc)
	if errSave := s.store.Save(ctx, p); errSave != nil {
		return nil, fmt.Errorf("record login: %w", errSave)
	}
	return p, nil
}

// ChangePlan switches the profile to a new plan and re-derives the limit
// snapshot and renewal date. Usage counters are left untouched: an upgrade
// does not reset today's usage. The second return is false when no profile
// exists for the ID.
func (s *Service) ChangePlan(ctx context.Context, id string, newPlan plan.Plan) (*UserProfile, bool, error) {
	if !newPlan.Valid() {
		return nil, false, fmt.Errorf("change plan: unknown plan %q", newPlan)
	}
	p, ok, errGet := s.store.Get(ctx, id)
	if errGet != nil {
		return nil, false, fmt.Errorf("change plan: %w", errGet)
	}
	if !ok {
		return nil, false, nil
	}

	now := s.nowFn().In(s.loc)
	p.Subscription.Plan = newPlan
	p.Subscription.Status = StatusActive
	p.Subscription.StartDate = now
	p.Subscription.CancelAtPeriodEnd = false
	if newPlan != plan.Free {
		renewal := now.AddDate(0, 0, renewalDays)
		p.Subscription.RenewalDate = &renewal
	} else {
		p.Subscription.RenewalDate = nil
	}
	p.Limits = plan.LimitsFor(newPlan)

	if errSave := s.store.Save(ctx, p); errSave != nil {
		return nil, false, fmt.Errorf("change plan: %w", errSave)
	}
	s.collector.RecordPlanChange(string(newPlan))
	log.WithField("user_id", id).Infof("plan changed to %s", newPlan)
	return p, true, nil
}

// Cancel marks the subscription to end at the current period without
// touching plan or limits.
func (s *Service) Cancel(ctx context.Context, id string) (*UserProfile, bool, error) {
	p, ok, errGet := s.store.Get(ctx, id)
	if errGet != nil {
		return nil, false, fmt.Errorf("cancel subscription: %w", errGet)
	}
	if !ok {
		return nil, false, nil
	}
	p.Subscription.CancelAtPeriodEnd = true
	if errSave := s.store.Save(ctx, p); errSave != nil {
		return nil, false, fmt.Errorf("cancel subscription: %w", errSave)
	}
	return p, true, nil
}

// midnight truncates a time to the start of its calendar day in loc.
func midnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// SameCalendarDay reports whether two instants fall on the same calendar
// date in loc. Comparison is by date components, not elapsed time.
func SameCalendarDay(a, b time.Time, loc *time.Location) bool {
	al, bl := a.In(loc), b.In(loc)
	ay, am, ad := al.Date()
	by, bm, bd := bl.Date()
	return ay == by && am == bm && ad == bd
}

// Midnight exposes the day-start truncation used across the service.
func Midnight(t time.Time, loc *time.Location) time.Time {
	return midnight(t, loc)
}
