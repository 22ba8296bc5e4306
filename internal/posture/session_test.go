package posture

import (
	"math"
	"testing"
	"time"

	"github.com/care/posturewatch/internal/types"
)

func slumpedLandmarks(w, h int) *types.LandmarkSet {
	set := uprightLandmarks(w, h)
	set.Points[types.LeftShoulder].Y = 0.4
	return set
}

func TestSession_CalibrationThenFeedback(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s := NewSession(SessionConfig{AlertCooldown: 3 * time.Second}, start)
	frame := 100 * time.Millisecond
	at := func(i int) time.Time { return start.Add(time.Duration(i) * frame) }

	for i := 1; i <= CalibrationFrames; i++ {
		res, ok := s.Observe(uprightLandmarks(640, 480), at(i), true)
		if !ok {
			t.Fatalf("frame %d: landmarks rejected", i)
		}
		if !res.Calibrating || res.CalibrationSamples != i {
			t.Fatalf("frame %d: calibrating=%v samples=%d", i, res.Calibrating, res.CalibrationSamples)
		}
		if res.Evaluated {
			t.Fatalf("frame %d: evaluated before calibration completed", i)
		}
	}

	res, _ := s.Observe(uprightLandmarks(640, 480), at(31), true)
	if !res.CalibrationDone || !res.Evaluated {
		t.Fatalf("frame 31: done=%v evaluated=%v", res.CalibrationDone, res.Evaluated)
	}
	if math.Abs(res.Thresholds.Shoulder-80) > 1e-9 || math.Abs(res.Thresholds.Neck+10) > 1e-9 {
		t.Fatalf("thresholds = %+v, want {80 -10}", res.Thresholds)
	}
	if res.Status != StatusGood {
		t.Errorf("upright posture classified %v", res.Status)
	}

	t.Logf("calibrated at frame 31 with thresholds %+v", res.Thresholds)

	// Poor posture right after calibration: cooldown counted from session start
	// (3.1s elapsed at frame 31), so the first poor frame alerts.
	res, _ = s.Observe(slumpedLandmarks(640, 480), at(32), true)
	if res.Status != StatusPoor {
		t.Fatalf("slumped posture classified %v (angles %+v)", res.Status, res.Measurement.Angles)
	}
	if !res.AlertFired {
		t.Error("first poor frame past the cooldown did not alert")
	}

	res, _ = s.Observe(slumpedLandmarks(640, 480), at(33), true)
	if res.AlertFired {
		t.Error("alert repeated inside the cooldown")
	}

	th1, _ := s.Thresholds()
	for i := 34; i < 100; i++ {
		s.Observe(slumpedLandmarks(640, 480), at(i), true)
	}
	if th2, _ := s.Thresholds(); th2 != th1 {
		t.Errorf("thresholds changed after calibration: %+v → %+v", th1, th2)
	}

	sum := s.Summary(at(100))
	// elapsed time is credited to the verdict of the frame that ends it, so
	// the calibration period lands in good posture
	if want := time.Duration(31) * frame; sum.Good != want {
		t.Errorf("good = %v, want %v", sum.Good, want)
	}
	if want := time.Duration(99-32+1) * frame; sum.Poor != want {
		t.Errorf("poor = %v, want %v", sum.Poor, want)
	}
	if sum.Alerts < 2 {
		t.Errorf("alerts = %d, want at least 2 over 6.8s of poor posture", sum.Alerts)
	}
}

func TestSession_CalibrationTimeCreditedToFirstVerdict(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s := NewSession(SessionConfig{}, start)
	frame := 100 * time.Millisecond

	for i := 1; i <= CalibrationFrames+1; i++ {
		s.Observe(uprightLandmarks(640, 480), start.Add(time.Duration(i)*frame), true)
	}
	if !s.Calibrated() {
		t.Fatal("session not calibrated after 31 frames")
	}

	sum := s.Summary(start.Add(31 * frame))
	if sum.Good != 3100*time.Millisecond {
		t.Errorf("good = %v, want 3.1s counted from session start", sum.Good)
	}
	if sum.Poor != 0 {
		t.Errorf("poor = %v, want 0", sum.Poor)
	}
	if !sum.HasTracked || math.Abs(sum.GoodPercent-100) > 1e-9 {
		t.Errorf("good percent = %.2f (tracked=%v), want 100", sum.GoodPercent, sum.HasTracked)
	}
}

func TestSession_ZeroMargin(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	zero := 0.0
	s := NewSession(SessionConfig{CalibrationFrames: 2, ThresholdMargin: &zero}, start)

	for i := 1; i <= 3; i++ {
		s.Observe(uprightLandmarks(640, 480), start.Add(time.Duration(i)*time.Second), true)
	}
	th, ok := s.Thresholds()
	if !ok {
		t.Fatal("session not calibrated")
	}
	if math.Abs(th.Shoulder-90) > 1e-9 || math.Abs(th.Neck) > 1e-9 {
		t.Errorf("thresholds = %+v, want the calibration mean {90 0}", th)
	}
}

func TestSession_CalibrationDisabled(t *testing.T) {
	start := time.Now()
	s := NewSession(SessionConfig{}, start)

	for i := 0; i < 50; i++ {
		res, ok := s.Observe(uprightLandmarks(640, 480), start.Add(time.Duration(i)*time.Second), false)
		if !ok {
			t.Fatal("landmarks rejected")
		}
		if res.Calibrating || res.Evaluated {
			t.Fatalf("frame %d: calibrating=%v evaluated=%v with calibration off", i, res.Calibrating, res.Evaluated)
		}
	}
	if s.Calibrated() {
		t.Error("session calibrated with calibration disabled")
	}
}

func TestSession_FixedThresholds(t *testing.T) {
	start := time.Now()
	s := NewSession(SessionConfig{
		FixedThresholds: &Thresholds{Shoulder: 85, Neck: -5},
		AlertCooldown:   time.Second,
	}, start)

	if !s.Calibrated() {
		t.Fatal("fixed thresholds should mark the session calibrated")
	}

	res, _ := s.Observe(uprightLandmarks(640, 480), start.Add(2*time.Second), true)
	if !res.Evaluated || res.Calibrating {
		t.Fatalf("evaluated=%v calibrating=%v", res.Evaluated, res.Calibrating)
	}
	if sum := s.Summary(start.Add(2 * time.Second)); sum.Good != 2*time.Second {
		t.Errorf("good = %v, want 2s tracked from session start", sum.Good)
	}
}

func TestSession_NoLandmarks(t *testing.T) {
	s := NewSession(SessionConfig{}, time.Now())
	if _, ok := s.Observe(nil, time.Now(), true); ok {
		t.Error("Observe accepted a nil landmark set")
	}
}
