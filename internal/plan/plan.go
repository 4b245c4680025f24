package plan

import (
	"fmt"
	"strings"
)

// Plan identifies a subscription tier.
type Plan string

// Subscription tiers supported by the service.
const (
	// Free is the default tier for new signups.
	Free Plan = "free"
	// Pro is the paid mid tier.
	Pro Plan = "pro"
	// Unleashed removes all count-based limits.
	Unleashed Plan = "unleashed"
)

// Unlimited marks a count-based limit with no cap.
const Unlimited = -1

// Parse converts a raw plan string into a Plan.
func Parse(raw string) (Plan, error) {
	switch Plan(strings.ToLower(strings.TrimSpace(raw))) {
	case Free:
		return Free, nil
	case Pro:
		return Pro, nil
	case Unleashed:
		return Unleashed, nil
	default:
		return "", fmt.Errorf("unknown plan: %q", raw)
	}
}

// Valid reports whether the plan is a known tier.
func (p Plan) Valid() bool {
	switch p {
	case Free, Pro, Unleashed:
		return true
	}
	return false
}

// All returns the known tiers in display order.
func All() []Plan {
	return []Plan{Free, Pro, Unleashed}
}

// Limits is the entitlement snapshot derived from a plan.
type Limits struct {
	OptimizationsPerDay int   `json:"optimizationsPerDay"`
	MaxFileUploads      int   `json:"maxFileUploads"`
	MaxPasteCharacters  int   `json:"maxPasteCharacters"`
	MaxFileSizeBytes    int64 `json:"maxFileSize"`
	PrioritySupport     bool  `json:"prioritySupport"`
	AdvancedFeatures    bool  `json:"advancedFeatures"`
}

// defaultLimits is the hard-coded fallback limit table.
var defaultLimits = map[Plan]Limits{
	Free: {
		OptimizationsPerDay: 10,
		MaxFileUploads:      2,
		MaxPasteCharacters:  10_000,
		MaxFileSizeBytes:    1 << 20,
	},
	Pro: {
		OptimizationsPerDay: 300,
		MaxFileUploads:      50,
		MaxPasteCharacters:  100_000,
		MaxFileSizeBytes:    10 << 20,
		PrioritySupport:     true,
		AdvancedFeatures:    true,
	},
	Unleashed: {
		OptimizationsPerDay: Unlimited,
		MaxFileUploads:      Unlimited,
		MaxPasteCharacters:  Unlimited,
		MaxFileSizeBytes:    100 << 20,
		PrioritySupport:     true,
		AdvancedFeatures:    true,
	},
}

// DefaultLimitsFor returns the hard-coded limits for a plan.
// Unknown plans fall back to the free tier limits.
func DefaultLimitsFor(p Plan) Limits {
	if limits, ok := defaultLimits[p]; ok {
		return limits
	}
	return defaultLimits[Free]
}

// LimitsFor returns the effective limits for a plan, applying any
// configured overrides on top of the hard-coded defaults.
func LimitsFor(p Plan) Limits {
	limits := DefaultLimitsFor(p)
	if !p.Valid() {
		p = Free
	}
	applyOverrides(p, &limits)
	return limits
}
