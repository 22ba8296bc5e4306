package core

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/care/posturewatch/internal/config"
	"github.com/care/posturewatch/internal/control"
)

var _ control.Target = (*Monitor)(nil)

// ToggleFeature flips one feature flag. record_session also opens or closes
// the video file.
func (m *Monitor) ToggleFeature(f config.Feature) (bool, error) {
	if f == config.FeatureRecordSession {
		if m.features.RecordSession {
			return false, m.StopRecording()
		}
		return true, m.StartRecording()
	}

	on, err := m.features.Toggle(f)
	if err != nil {
		return false, err
	}
	m.featureChanged(f, on)
	return on, nil
}

// SetFeature sets one feature flag
func (m *Monitor) SetFeature(f config.Feature, on bool) error {
	if f == config.FeatureRecordSession {
		if on {
			return m.StartRecording()
		}
		return m.StopRecording()
	}

	if err := m.features.Set(f, on); err != nil {
		return err
	}
	m.featureChanged(f, on)
	return nil
}

func (m *Monitor) featureChanged(f config.Feature, on bool) {
	slog.Info(fmt.Sprintf("core: %s: %s", f, config.OnOff(on)))
}

// StartRecording enables recording. The file opens now if the frame size is
// known, otherwise on the next frame.
func (m *Monitor) StartRecording() error {
	if m.features.RecordSession {
		return nil
	}
	m.features.RecordSession = true
	if m.recorder == nil {
		return nil
	}
	if m.width > 0 {
		if err := m.recorder.Start(m.width, m.height); err != nil {
			m.features.RecordSession = false
			return err
		}
	}
	return nil
}

// StopRecording closes the current video file, if any
func (m *Monitor) StopRecording() error {
	m.features.RecordSession = false
	if m.recorder == nil {
		return nil
	}
	return m.recorder.Stop()
}

// Status reports the monitor state for get_status
func (m *Monitor) Status() map[string]interface{} {
	now := time.Now()
	status := map[string]interface{}{
		"instance_id": m.cfg.InstanceID,
		"session_id":  m.events.SessionID,
		"features":    m.features,
		"stream":      m.source.Stats(),
		"worker":      m.estimator.Metrics(),
		"events":      m.publisher.Stats(),
		"uptime_s":    int64(now.Sub(m.started).Seconds()),
	}
	if m.recorder != nil {
		status["recording"] = m.recorder.Recording()
		status["recording_path"] = m.recorder.Path()
	}
	if m.session != nil {
		status["calibrated"] = m.session.Calibrated()
		if t, ok := m.session.Thresholds(); ok {
			status["thresholds"] = t
		}
		status["summary"] = m.session.Summary(now)
	}
	return status
}

// Shutdown ends the loop after the current iteration
func (m *Monitor) Shutdown() {
	slog.Info("core: shutdown requested")
	m.quit = true
}
