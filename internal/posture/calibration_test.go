package posture

import (
	"math"
	"testing"
)

func TestCalibrator_Lifecycle(t *testing.T) {
	c := NewCalibrator(0, -1)
	if c.Target() != CalibrationFrames {
		t.Fatalf("default target = %d, want %d", c.Target(), CalibrationFrames)
	}

	for i := 0; i < CalibrationFrames; i++ {
		if _, ok := c.Thresholds(); ok {
			t.Fatalf("thresholds set after only %d samples", i)
		}
		if !c.Add(Angles{Shoulder: 90 + float64(i%3), Neck: 40}) {
			t.Fatalf("Add rejected sample %d", i)
		}
	}

	if !c.Full() {
		t.Fatal("calibrator should be full after 30 samples")
	}
	if c.Add(Angles{Shoulder: 1, Neck: 1}) {
		t.Fatal("Add accepted a sample past the window")
	}
	if got := c.Progress(); got != "30/30" {
		t.Errorf("Progress() = %q, want 30/30", got)
	}

	th, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	// samples cycle 90,91,92 → mean 91
	if math.Abs(th.Shoulder-81) > 1e-9 {
		t.Errorf("shoulder threshold = %.4f, want 81", th.Shoulder)
	}
	if math.Abs(th.Neck-30) > 1e-9 {
		t.Errorf("neck threshold = %.4f, want 30", th.Neck)
	}

	again, err := c.Finalize()
	if err != nil || again != th {
		t.Errorf("second Finalize changed thresholds: %+v → %+v (err=%v)", th, again, err)
	}
}

func TestCalibrator_FinalizeEarly(t *testing.T) {
	c := NewCalibrator(5, 10)
	c.Add(Angles{Shoulder: 90, Neck: 40})

	if _, err := c.Finalize(); err == nil {
		t.Fatal("expected error finalizing with 1/5 samples")
	}
	if c.Done() {
		t.Fatal("calibrator reports done after failed finalize")
	}
}

func TestCalibrator_CustomMargin(t *testing.T) {
	c := NewCalibrator(2, 5)
	c.Add(Angles{Shoulder: 100, Neck: 50})
	c.Add(Angles{Shoulder: 80, Neck: 30})

	th, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if th.Shoulder != 85 || th.Neck != 35 {
		t.Errorf("thresholds = %+v, want {85 35}", th)
	}
}

func TestCalibrator_ZeroMargin(t *testing.T) {
	c := NewCalibrator(2, 0)
	c.Add(Angles{Shoulder: 100, Neck: 50})
	c.Add(Angles{Shoulder: 80, Neck: 30})

	th, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if th.Shoulder != 90 || th.Neck != 40 {
		t.Errorf("thresholds = %+v, want the plain mean {90 40}", th)
	}
}
