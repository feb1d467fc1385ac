package tasks

import (
	"context"
	"time"
)

// Default request budget tuning. One call budget and one cooldown are used
// everywhere; both are overridable through EngineOpts.
const (
	DefaultRequestBudget = 90
	DefaultCooldown      = 20 * time.Second
)

// SleepFunc waits for a duration or until the context is cancelled.
// Injectable so tests can run against a virtual clock.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RequestGate counts remote calls and pauses for a cooldown once the budget
// is spent, then resets. It never fails on its own; the only error it can
// return is context cancellation while waiting.
//
// The gate assumes the engine's strictly sequential call discipline: calls
// are awaited one at a time, so no locking is needed.
type RequestGate struct {
	budget   int
	cooldown time.Duration
	count    int
	sleep    SleepFunc
}

// NewRequestGate creates a gate with the given budget and cooldown.
// Non-positive arguments fall back to the defaults.
func NewRequestGate(budget int, cooldown time.Duration) *RequestGate {
	if budget <= 0 {
		budget = DefaultRequestBudget
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &RequestGate{budget: budget, cooldown: cooldown, sleep: defaultSleep}
}

// Gate must be called before each remote call that counts against the
// budget. Once the budget is spent the next call waits out the cooldown and
// the counter resets to zero.
func (g *RequestGate) Gate(ctx context.Context) error {
	if g.count >= g.budget {
		if err := g.sleep(ctx, g.cooldown); err != nil {
			return err
		}
		g.count = 0
	}
	g.count++
	return nil
}

// Calls returns the number of calls gated since the last cooldown.
func (g *RequestGate) Calls() int {
	return g.count
}
