package posture

import (
	"fmt"
	"time"
)

// Stats accumulates how long each posture verdict held
type Stats struct {
	sessionStart time.Time
	lastCheck    time.Time
	running      bool
	good         time.Duration
	poor         time.Duration
	alerts       int
}

// NewStats creates an accumulator for a session that began at start
func NewStats(start time.Time) *Stats {
	return &Stats{sessionStart: start}
}

// StartClock begins tracking at now. Calls after the first are ignored.
func (s *Stats) StartClock(now time.Time) {
	if s.running {
		return
	}
	s.lastCheck = now
	s.running = true
}

// Observe credits the time since the previous check to status
func (s *Stats) Observe(status Status, now time.Time) {
	if !s.running {
		s.StartClock(now)
		return
	}

	elapsed := now.Sub(s.lastCheck)
	s.lastCheck = now
	if elapsed < 0 {
		return
	}

	switch status {
	case StatusGood:
		s.good += elapsed
	case StatusPoor:
		s.poor += elapsed
	}
}

// CountAlert increments the alert counter
func (s *Stats) CountAlert() {
	s.alerts++
}

// Summary is a snapshot of session statistics
type Summary struct {
	SessionStart time.Time     `json:"session_start"`
	Total        time.Duration `json:"total"`
	Good         time.Duration `json:"good"`
	Poor         time.Duration `json:"poor"`
	Alerts       int           `json:"alerts"`
	// GoodPercent is only meaningful when HasTracked is true
	GoodPercent float64 `json:"good_percent"`
	HasTracked  bool    `json:"has_tracked"`
}

// Summary returns the statistics as of now
func (s *Stats) Summary(now time.Time) Summary {
	sum := Summary{
		SessionStart: s.sessionStart,
		Total:        now.Sub(s.sessionStart),
		Good:         s.good,
		Poor:         s.poor,
		Alerts:       s.alerts,
	}
	tracked := s.good + s.poor
	if tracked > 0 {
		sum.HasTracked = true
		sum.GoodPercent = float64(s.good) / float64(tracked) * 100
	}
	return sum
}

// FormatDuration renders d as "<minutes>m <seconds>s", truncating both parts
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := d.Seconds()
	minutes := int(seconds / 60)
	secs := int(seconds) % 60
	return fmt.Sprintf("%dm %ds", minutes, secs)
}
