package profile

import (
	"context"
	"errors"
	"time"

	"github.com/optilift/entitlements/internal/plan"
)

// SubscriptionStatus describes the lifecycle state of a subscription.
type SubscriptionStatus string

// Subscription lifecycle states.
const (
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusPastDue   SubscriptionStatus = "past_due"
	StatusTrialing  SubscriptionStatus = "trialing"
)

// Subscription captures the plan state of one user.
type Subscription struct {
	Plan              plan.Plan          `json:"plan"`
	Status            SubscriptionStatus `json:"status"`
	StartDate         time.Time          `json:"startDate"`
	RenewalDate       *time.Time         `json:"renewalDate,omitempty"`
	TrialEndsAt       *time.Time         `json:"trialEndsAt,omitempty"`
	CancelAtPeriodEnd bool               `json:"cancelAtPeriodEnd"`
}

// Usage holds the optimization counters for one user.
//
// OptimizationsToday resets lazily at the first tracked action after a
// calendar-day boundary; TotalOptimizations is never reset.
type Usage struct {
	OptimizationsToday int        `json:"optimizationsToday"`
	TotalOptimizations int64      `json:"totalOptimizations"`
	LastOptimizationAt *time.Time `json:"lastOptimizationDate,omitempty"`
	CurrentDayStart    time.Time  `json:"currentDayStart"`
}

// UserProfile is the persisted record of one user's identity, subscription,
// usage, and derived plan limits. Limits are a snapshot of the plan limit
// table taken at the time of the last write, never mutated independently.
type UserProfile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`

	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`

	Subscription Subscription `json:"subscription"`
	Usage        Usage        `json:"usage"`
	Limits       plan.Limits  `json:"limits"`
}

// Identity is the externally supplied identity of a user.
type Identity struct {
	ID       string
	Email    string
	Name     string
	Verified bool
}

// ErrNotFound signals an operation against a user ID with no stored profile.
var ErrNotFound = errors.New("profile not found")

// ErrDuplicateKey signals an insert against an already-stored profile key.
var ErrDuplicateKey = errors.New("profile already exists")

// Store persists user profiles.
//
// Get reports absent rows and unreadable content alike as ok=false; the
// store is a best-effort record, callers treat both as "no profile".
type Store interface {
	Save(ctx context.Context, p *UserProfile) error
	Insert(ctx context.Context, p *UserProfile) error
	Get(ctx context.Context, id string) (*UserProfile, bool, error)
}
