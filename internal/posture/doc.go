// Package posture turns detected body landmarks into a posture verdict.
//
// Two angles are measured per frame:
//
//	shoulder angle: at the right shoulder, between the left shoulder and the
//	                vertical through the right shoulder
//	neck angle:     at the left shoulder, between the left ear and the vertical
//	                through the left shoulder
//
// A Calibrator averages the first CalibrationFrames samples of each angle and
// derives the thresholds (mean - ThresholdMargin). After that a frame is Poor
// when either angle falls below its threshold. Stats accumulates how long each
// verdict held, and Cooldown spaces out repeated alerts.
//
// Everything here is pure arithmetic over time.Time values supplied by the
// caller, so the package has no clock of its own and is safe to drive from tests.
package posture
