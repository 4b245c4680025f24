// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records service-level counters.
type Collector struct {
	trackAllowed    prometheus.Counter
	trackRejected   *prometheus.CounterVec
	profilesCreated prometheus.Counter
	planChanges     *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		trackAllowed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "entitlements_track_allowed_total",
			Help: "Tracked optimizations that were counted.",
		}),
		trackRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "entitlements_track_rejected_total",
			Help: "Tracked optimizations that were rejected, by reason.",
		}, []string{"reason"}),
		profilesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "entitlements_profiles_created_total",
			Help: "Profiles bootstrapped on first login.",
		}),
		planChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "entitlements_plan_changes_total",
			Help: "Plan changes applied, by target plan.",
		}, []string{"plan"}),
	}

	reg.MustRegister(
		c.trackAllowed,
		c.trackRejected,
		c.profilesCreated,
		c.planChanges,
	)

	return c
}

// RecordTrackAllowed counts one successful track.
func (c *Collector) RecordTrackAllowed() {
	if c == nil {
		return
	}
	c.trackAllowed.Inc()
}

// RecordTrackRejected counts one rejected track by reason.
func (c *Collector) RecordTrackRejected(reason string) {
	if c == nil {
		return
	}
	c.trackRejected.WithLabelValues(reason).Inc()
}

// RecordProfileCreated counts one bootstrapped profile.
func (c *Collector) RecordProfileCreated() {
	if c == nil {
		return
	}
	c.profilesCreated.Inc()
}

// RecordPlanChange counts one plan change.
func (c *Collector) RecordPlanChange(plan string) {
	if c == nil {
		return
	}
	c.planChanges.WithLabelValues(plan).Inc()
}

// Handler returns the Prometheus scrape handler for a gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
