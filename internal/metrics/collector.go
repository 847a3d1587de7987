// Package metrics exposes Prometheus instrumentation for the plan pipeline
// and its collaborators. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grocer"

// Plan outcomes
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid_input"
	OutcomeUnauthorized = "unauthorized"
	OutcomeRateLimited  = "rate_limited"
	OutcomeFailed       = "generation_failed"
)

// Collector owns the registry and every metric the service records.
type Collector struct {
	registry *prometheus.Registry

	planRequests       *prometheus.CounterVec
	planSources        *prometheus.CounterVec
	generationDuration prometheus.Histogram
	rateLimitDenials   *prometheus.CounterVec
	productLookups     *prometheus.CounterVec
	cartRuns           *prometheus.CounterVec
}

// NewCollector registers all metrics on registry, or on a fresh registry if nil.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,
		planRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plan",
			Name:      "requests_total",
			Help:      "Plan requests by terminal outcome.",
		}, []string{"outcome"}),
		planSources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plan",
			Name:      "responses_total",
			Help:      "Successful plan responses by source (generated or fallback).",
		}, []string{"source"}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "plan",
			Name:      "generation_duration_seconds",
			Help:      "Latency of calls to the text generation service.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		}),
		rateLimitDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "denials_total",
			Help:      "Requests denied by the rate limiter.",
		}, []string{"policy", "scope"}),
		productLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "products",
			Name:      "lookups_total",
			Help:      "Product image lookups by result.",
		}, []string{"result"}),
		cartRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "runs_total",
			Help:      "Cart automation runs by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		c.planRequests,
		c.planSources,
		c.generationDuration,
		c.rateLimitDenials,
		c.productLookups,
		c.cartRuns,
	)
	return c
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordPlanOutcome(outcome string) {
	if c == nil {
		return
	}
	c.planRequests.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordPlanSource(source string) {
	if c == nil {
		return
	}
	c.planSources.WithLabelValues(source).Inc()
}

func (c *Collector) ObserveGeneration(d time.Duration) {
	if c == nil {
		return
	}
	c.generationDuration.Observe(d.Seconds())
}

func (c *Collector) RecordRateLimitDenial(policy, scope string) {
	if c == nil {
		return
	}
	c.rateLimitDenials.WithLabelValues(policy, scope).Inc()
}

func (c *Collector) RecordProductLookup(result string) {
	if c == nil {
		return
	}
	c.productLookups.WithLabelValues(result).Inc()
}

func (c *Collector) RecordCartRun(outcome string) {
	if c == nil {
		return
	}
	c.cartRuns.WithLabelValues(outcome).Inc()
}
