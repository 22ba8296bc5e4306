package emitter

import (
	"encoding/json"
	"time"

	"github.com/care/posturewatch/internal/posture"
)

// Event types
const (
	EventCalibrationComplete = "calibration_complete"
	EventPostureAlert        = "posture_alert"
	EventPostureStats        = "posture_stats"
	EventSessionSummary      = "session_summary"
)

// Event is the JSON envelope published for every monitor event
type Event struct {
	Type       string      `json:"type"`
	InstanceID string      `json:"instance_id"`
	SessionID  string      `json:"session_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       interface{} `json:"data"`
}

// ToJSON marshals the event
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Source stamps events with the instance and session they belong to
type Source struct {
	InstanceID string
	SessionID  string
}

func (s Source) event(typ string, ts time.Time, data interface{}) Event {
	return Event{
		Type:       typ,
		InstanceID: s.InstanceID,
		SessionID:  s.SessionID,
		Timestamp:  ts.UTC(),
		Data:       data,
	}
}

// CalibrationData is the payload of calibration_complete
type CalibrationData struct {
	ShoulderThreshold float64 `json:"shoulder_threshold"`
	NeckThreshold     float64 `json:"neck_threshold"`
	Samples           int     `json:"samples"`
}

// AlertData is the payload of posture_alert
type AlertData struct {
	ShoulderAngle     float64 `json:"shoulder_angle"`
	NeckAngle         float64 `json:"neck_angle"`
	ShoulderThreshold float64 `json:"shoulder_threshold"`
	NeckThreshold     float64 `json:"neck_threshold"`
}

// SummaryData is the payload of posture_stats and session_summary
type SummaryData struct {
	TotalS      float64  `json:"total_s"`
	GoodS       float64  `json:"good_s"`
	PoorS       float64  `json:"poor_s"`
	Alerts      int      `json:"alerts"`
	GoodPercent *float64 `json:"good_percent,omitempty"` // absent until time was tracked
}

// CalibrationComplete builds a calibration_complete event
func (s Source) CalibrationComplete(ts time.Time, t posture.Thresholds, samples int) Event {
	return s.event(EventCalibrationComplete, ts, CalibrationData{
		ShoulderThreshold: t.Shoulder,
		NeckThreshold:     t.Neck,
		Samples:           samples,
	})
}

// PostureAlert builds a posture_alert event
func (s Source) PostureAlert(ts time.Time, a posture.Angles, t posture.Thresholds) Event {
	return s.event(EventPostureAlert, ts, AlertData{
		ShoulderAngle:     a.Shoulder,
		NeckAngle:         a.Neck,
		ShoulderThreshold: t.Shoulder,
		NeckThreshold:     t.Neck,
	})
}

// PostureStats builds a periodic posture_stats event
func (s Source) PostureStats(ts time.Time, sum posture.Summary) Event {
	return s.event(EventPostureStats, ts, summaryData(sum))
}

// SessionSummary builds the final session_summary event
func (s Source) SessionSummary(ts time.Time, sum posture.Summary) Event {
	return s.event(EventSessionSummary, ts, summaryData(sum))
}

func summaryData(sum posture.Summary) SummaryData {
	d := SummaryData{
		TotalS: sum.Total.Seconds(),
		GoodS:  sum.Good.Seconds(),
		PoorS:  sum.Poor.Seconds(),
		Alerts: sum.Alerts,
	}
	if sum.HasTracked {
		pct := sum.GoodPercent
		d.GoodPercent = &pct
	}
	return d
}
