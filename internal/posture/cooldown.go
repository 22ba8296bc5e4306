package posture

import "time"

// Cooldown gates repeated alerts
type Cooldown struct {
	period    time.Duration
	lastAlert time.Time
}

// NewCooldown creates a gate whose clock starts at start
func NewCooldown(period time.Duration, start time.Time) *Cooldown {
	return &Cooldown{period: period, lastAlert: start}
}

// Ready reports whether strictly more than the period has passed since the last alert
func (c *Cooldown) Ready(now time.Time) bool {
	return now.Sub(c.lastAlert) > c.period
}

// Fire records an alert if the gate is ready and reports whether it fired
func (c *Cooldown) Fire(now time.Time) bool {
	if !c.Ready(now) {
		return false
	}
	c.lastAlert = now
	return true
}

// SetPeriod changes the cooldown period without resetting the clock
func (c *Cooldown) SetPeriod(period time.Duration) {
	c.period = period
}

// Period returns the configured cooldown
func (c *Cooldown) Period() time.Duration {
	return c.period
}

// LastAlert returns when the gate last fired (or its start time)
func (c *Cooldown) LastAlert() time.Time {
	return c.lastAlert
}
