package posture

// Status is the posture verdict for a frame
type Status int

const (
	StatusUnknown Status = iota
	StatusGood
	StatusPoor
)

// String returns the label shown on screen
func (s Status) String() string {
	switch s {
	case StatusGood:
		return "Good Posture"
	case StatusPoor:
		return "Poor Posture"
	default:
		return "Unknown"
	}
}

// Key returns a stable identifier for events and logs
func (s Status) Key() string {
	switch s {
	case StatusGood:
		return "good"
	case StatusPoor:
		return "poor"
	default:
		return "unknown"
	}
}

// Classify compares angles against thresholds. Either angle below its
// threshold makes the posture poor.
func Classify(a Angles, t Thresholds) Status {
	if a.Shoulder < t.Shoulder || a.Neck < t.Neck {
		return StatusPoor
	}
	return StatusGood
}
