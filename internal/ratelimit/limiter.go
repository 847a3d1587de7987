// Package ratelimit enforces per-identity request caps over two independent
// fixed windows, one minute and one hour long.
package ratelimit

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

const (
	MinuteWindow = time.Minute
	HourWindow   = time.Hour
)

// Scope names the window that denied a request
type Scope string

const (
	ScopeNone   Scope = ""
	ScopeMinute Scope = "minute"
	ScopeHour   Scope = "hour"
)

// Policy holds the caps for one endpoint
type Policy struct {
	Name      string
	PerMinute int
	PerHour   int
}

// PlanPolicy guards plan generation
var PlanPolicy = Policy{Name: "generate_plan", PerMinute: 3, PerHour: 15}

// CartPolicy guards cart automation, which costs more per request
var CartPolicy = Policy{Name: "cart_automation", PerMinute: 2, PerHour: 8}

// Record is the tracked state for one identity
type Record struct {
	MinuteCount     int
	MinuteWindowEnd time.Time
	HourCount       int
	HourWindowEnd   time.Time
}

// Decision is the outcome of a CheckAndConsume call
type Decision struct {
	Allowed bool
	// RetryAfter is the number of whole seconds until the denying window ends.
	RetryAfter int
	Scope      Scope
	// Remaining is the number of requests left in the minute window after this call.
	Remaining int
}

// Store persists records and performs the atomic check-and-increment.
type Store interface {
	CheckAndConsume(ctx context.Context, key string, policy Policy, now time.Time) (Decision, error)
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Limiter applies a policy to identities using a store
type Limiter struct {
	store  Store
	policy Policy
	logger *zap.Logger
	now    func() time.Time
}

// NewLimiter creates a limiter for the given policy
func NewLimiter(store Store, policy Policy, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		store:  store,
		policy: policy,
		logger: logger.Named("ratelimit").With(zap.String("policy", policy.Name)),
		now:    time.Now,
	}
}

// Policy returns the caps this limiter enforces
func (l *Limiter) Policy() Policy {
	return l.policy
}

// CheckAndConsume decides whether identity may make another request and, if
// so, consumes one slot in both windows. A failing store never blocks traffic.
func (l *Limiter) CheckAndConsume(ctx context.Context, identity string) Decision {
	decision, err := l.store.CheckAndConsume(ctx, l.key(identity), l.policy, l.now())
	if err != nil {
		l.logger.Warn("rate limit check failed, allowing request",
			zap.String("identity", identity),
			zap.Error(err))
		return Decision{Allowed: true, Remaining: l.policy.PerMinute}
	}
	return decision
}

func (l *Limiter) key(identity string) string {
	return l.policy.Name + ":" + identity
}

// evaluate runs the fixed-window algorithm against rec and returns the
// decision along with the record to store. Callers persist the record only
// when the decision allows the request.
func evaluate(rec Record, policy Policy, now time.Time) (Decision, Record) {
	if now.After(rec.MinuteWindowEnd) {
		rec.MinuteCount = 0
		rec.MinuteWindowEnd = now.Add(MinuteWindow)
	}
	if now.After(rec.HourWindowEnd) {
		rec.HourCount = 0
		rec.HourWindowEnd = now.Add(HourWindow)
	}

	if rec.MinuteCount >= policy.PerMinute {
		return Decision{
			Scope:      ScopeMinute,
			RetryAfter: retryAfter(rec.MinuteWindowEnd, now),
		}, rec
	}
	if rec.HourCount >= policy.PerHour {
		return Decision{
			Scope:      ScopeHour,
			RetryAfter: retryAfter(rec.HourWindowEnd, now),
		}, rec
	}

	rec.MinuteCount++
	rec.HourCount++
	return Decision{
		Allowed:   true,
		Remaining: policy.PerMinute - rec.MinuteCount,
	}, rec
}

func retryAfter(windowEnd, now time.Time) int {
	seconds := int(math.Ceil(windowEnd.Sub(now).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
