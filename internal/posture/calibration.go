package posture

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

const (
	// CalibrationFrames is the number of samples averaged into the baseline
	CalibrationFrames = 30
	// ThresholdMargin is subtracted from the baseline mean to form a threshold
	ThresholdMargin = 10.0
)

// Thresholds are the lowest acceptable angles, in degrees
type Thresholds struct {
	Shoulder float64 `json:"shoulder"`
	Neck     float64 `json:"neck"`
}

// Calibrator collects baseline angle samples and derives thresholds once
type Calibrator struct {
	target    int
	margin    float64
	shoulder  []float64
	neck      []float64
	done      bool
	threshold Thresholds
}

// NewCalibrator creates a calibrator. Non-positive frames and a negative
// margin select the defaults; a zero margin is kept.
func NewCalibrator(frames int, margin float64) *Calibrator {
	if frames <= 0 {
		frames = CalibrationFrames
	}
	if margin < 0 {
		margin = ThresholdMargin
	}
	return &Calibrator{
		target:   frames,
		margin:   margin,
		shoulder: make([]float64, 0, frames),
		neck:     make([]float64, 0, frames),
	}
}

// Add records one sample while the window is still open.
// It returns false once the window is full; the caller should then Finalize.
func (c *Calibrator) Add(a Angles) bool {
	if c.done || len(c.shoulder) >= c.target {
		return false
	}
	c.shoulder = append(c.shoulder, a.Shoulder)
	c.neck = append(c.neck, a.Neck)
	return true
}

// Full reports whether every calibration sample has been collected
func (c *Calibrator) Full() bool {
	return len(c.shoulder) >= c.target
}

// Finalize computes the thresholds from the collected samples.
// Calling it again after success returns the same thresholds.
func (c *Calibrator) Finalize() (Thresholds, error) {
	if c.done {
		return c.threshold, nil
	}
	if !c.Full() {
		return Thresholds{}, fmt.Errorf("calibration incomplete: %d/%d samples", len(c.shoulder), c.target)
	}

	c.threshold = Thresholds{
		Shoulder: stat.Mean(c.shoulder, nil) - c.margin,
		Neck:     stat.Mean(c.neck, nil) - c.margin,
	}
	c.done = true
	return c.threshold, nil
}

// Done reports whether thresholds have been set
func (c *Calibrator) Done() bool {
	return c.done
}

// Thresholds returns the derived thresholds and whether they are set
func (c *Calibrator) Thresholds() (Thresholds, bool) {
	return c.threshold, c.done
}

// Samples returns the number of samples collected so far
func (c *Calibrator) Samples() int {
	return len(c.shoulder)
}

// Target returns the size of the calibration window
func (c *Calibrator) Target() int {
	return c.target
}

// Progress formats the sample count as "n/target"
func (c *Calibrator) Progress() string {
	return fmt.Sprintf("%d/%d", c.Samples(), c.target)
}
