package posture

import (
	"math"
	"testing"
	"time"
)

func TestStats_Accumulates(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	s := NewStats(start)

	s.StartClock(start.Add(10 * time.Second))
	s.Observe(StatusGood, start.Add(13*time.Second))
	s.Observe(StatusPoor, start.Add(14*time.Second))
	s.Observe(StatusGood, start.Add(20*time.Second))

	sum := s.Summary(start.Add(30 * time.Second))
	if sum.Good != 9*time.Second {
		t.Errorf("good = %v, want 9s", sum.Good)
	}
	if sum.Poor != time.Second {
		t.Errorf("poor = %v, want 1s", sum.Poor)
	}
	if sum.Total != 30*time.Second {
		t.Errorf("total = %v, want 30s", sum.Total)
	}
	if !sum.HasTracked || math.Abs(sum.GoodPercent-90) > 1e-9 {
		t.Errorf("good percent = %.2f (tracked=%v), want 90", sum.GoodPercent, sum.HasTracked)
	}
}

func TestStats_NoTrackedTime(t *testing.T) {
	start := time.Now()
	s := NewStats(start)

	sum := s.Summary(start.Add(time.Minute))
	if sum.HasTracked {
		t.Error("HasTracked should be false before any observation")
	}
	if sum.GoodPercent != 0 {
		t.Errorf("GoodPercent = %.2f, want 0", sum.GoodPercent)
	}
}

func TestStats_FirstObserveStartsClock(t *testing.T) {
	start := time.Now()
	s := NewStats(start)

	s.Observe(StatusPoor, start.Add(time.Hour))
	if sum := s.Summary(start.Add(time.Hour)); sum.Poor != 0 {
		t.Errorf("time before the clock started was credited: poor=%v", sum.Poor)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0m 0s"},
		{59*time.Second + 900*time.Millisecond, "0m 59s"},
		{60 * time.Second, "1m 0s"},
		{125 * time.Second, "2m 5s"},
		{2*time.Hour + 3*time.Second, "120m 3s"},
		{-5 * time.Second, "0m 0s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCooldown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCooldown(3*time.Second, start)

	if c.Fire(start.Add(3 * time.Second)) {
		t.Error("fired at exactly the cooldown; comparison must be strict")
	}
	if !c.Fire(start.Add(3*time.Second + time.Millisecond)) {
		t.Error("did not fire after the cooldown elapsed")
	}
	if c.Fire(start.Add(4 * time.Second)) {
		t.Error("fired again inside the cooldown")
	}
	if !c.Fire(start.Add(7 * time.Second)) {
		t.Error("did not fire once the cooldown elapsed again")
	}
}

func TestClassify(t *testing.T) {
	th := Thresholds{Shoulder: 80, Neck: 30}
	tests := []struct {
		name string
		a    Angles
		want Status
	}{
		{"both above", Angles{Shoulder: 90, Neck: 40}, StatusGood},
		{"equal is good", Angles{Shoulder: 80, Neck: 30}, StatusGood},
		{"shoulder below", Angles{Shoulder: 79.9, Neck: 40}, StatusPoor},
		{"neck below", Angles{Shoulder: 90, Neck: 29}, StatusPoor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.a, th); got != tt.want {
				t.Errorf("Classify(%+v) = %v, want %v", tt.a, got, tt.want)
			}
		})
	}
}
