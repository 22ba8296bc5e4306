package posture

import (
	"time"

	"github.com/care/posturewatch/internal/types"
)

// SessionConfig configures a monitoring session
type SessionConfig struct {
	CalibrationFrames int
	// ThresholdMargin nil selects the default margin; zero means none
	ThresholdMargin *float64
	AlertCooldown   time.Duration
	// FixedThresholds skips calibration when set
	FixedThresholds *Thresholds
}

// FrameResult describes what the session concluded about one frame
type FrameResult struct {
	Measurement Measurement

	// Calibrating is true when this frame contributed a calibration sample
	Calibrating        bool
	CalibrationSamples int
	CalibrationTarget  int
	// CalibrationDone is true only on the frame that set the thresholds
	CalibrationDone bool

	// Evaluated is true when thresholds exist and Status is meaningful
	Evaluated  bool
	Status     Status
	Thresholds Thresholds
	// AlertFired is true when a poor posture passed the cooldown on this frame
	AlertFired bool
}

// Session composes calibration, classification, cooldown and statistics.
// It is not safe for concurrent use; the monitor loop owns it.
type Session struct {
	calibrator *Calibrator
	cooldown   *Cooldown
	stats      *Stats
	thresholds Thresholds
	calibrated bool
}

// NewSession creates a session that started at start
func NewSession(cfg SessionConfig, start time.Time) *Session {
	margin := ThresholdMargin
	if cfg.ThresholdMargin != nil {
		margin = *cfg.ThresholdMargin
	}
	s := &Session{
		calibrator: NewCalibrator(cfg.CalibrationFrames, margin),
		cooldown:   NewCooldown(cfg.AlertCooldown, start),
		stats:      NewStats(start),
	}
	// the good/poor clock runs from session start; calibration time is
	// credited to the first evaluated frame
	s.stats.StartClock(start)
	if cfg.FixedThresholds != nil {
		s.thresholds = *cfg.FixedThresholds
		s.calibrated = true
	}
	return s
}

// Observe processes the landmarks detected in one frame.
// calibrate mirrors the calibration feature flag: with it off and no fixed
// thresholds, the session never becomes calibrated and gives no feedback.
func (s *Session) Observe(set *types.LandmarkSet, now time.Time, calibrate bool) (FrameResult, bool) {
	m, ok := Measure(set)
	if !ok {
		return FrameResult{}, false
	}

	res := FrameResult{
		Measurement:       m,
		CalibrationTarget: s.calibrator.Target(),
	}

	if calibrate && !s.calibrated {
		if s.calibrator.Add(m.Angles) {
			res.Calibrating = true
		} else if t, err := s.calibrator.Finalize(); err == nil {
			s.thresholds = t
			s.calibrated = true
			res.CalibrationDone = true
		}
	}
	res.CalibrationSamples = s.calibrator.Samples()

	if !s.calibrated {
		return res, true
	}

	res.Evaluated = true
	res.Thresholds = s.thresholds
	res.Status = Classify(m.Angles, s.thresholds)
	s.stats.Observe(res.Status, now)

	if res.Status == StatusPoor && s.cooldown.Fire(now) {
		res.AlertFired = true
		s.stats.CountAlert()
	}

	return res, true
}

// Calibrated reports whether thresholds are set
func (s *Session) Calibrated() bool {
	return s.calibrated
}

// Thresholds returns the active thresholds and whether they are set
func (s *Session) Thresholds() (Thresholds, bool) {
	return s.thresholds, s.calibrated
}

// Summary returns session statistics as of now
func (s *Session) Summary(now time.Time) Summary {
	return s.stats.Summary(now)
}

// SetAlertCooldown updates the cooldown period
func (s *Session) SetAlertCooldown(d time.Duration) {
	s.cooldown.SetPeriod(d)
}
