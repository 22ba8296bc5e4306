package config

import (
	"fmt"
	"path/filepath"
	"regexp"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

const (
	defaultInstanceID  = "posturewatch"
	defaultWidth       = 640
	defaultHeight      = 480
	defaultFPS         = 20
	defaultPoseCommand = "models/run_pose_worker.sh"
	defaultRecording   = "posture_session.avi"
	defaultCodec       = "XVID"
	defaultSoundFile   = "alert.mp3"
	defaultWindow      = "Posture Corrector"
	defaultMargin      = 10.0
	defaultCooldownS   = 3.0
)

// Validate checks the configuration and fills in defaults
func Validate(cfg *Config) error {
	applyDefaults(cfg)

	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	switch cfg.Camera.Source {
	case "webcam", "gstreamer", "mock":
	default:
		return fmt.Errorf("camera.source must be webcam, gstreamer or mock, got %q", cfg.Camera.Source)
	}
	if cfg.Camera.FPS < 0.1 || cfg.Camera.FPS > 60 {
		return fmt.Errorf("camera.fps must be between 0.1 and 60, got %.2f", cfg.Camera.FPS)
	}
	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		return fmt.Errorf("invalid camera resolution: %dx%d", cfg.Camera.Width, cfg.Camera.Height)
	}
	if cfg.Camera.WarmupS < 0 {
		return fmt.Errorf("camera.warmup_s must be >= 0")
	}

	if err := validateConfidence("pose.min_detection_confidence", cfg.Pose.MinDetectionConfidence); err != nil {
		return err
	}
	if err := validateConfidence("pose.min_tracking_confidence", cfg.Pose.MinTrackingConfidence); err != nil {
		return err
	}
	if cfg.Pose.JPEGQuality < 1 || cfg.Pose.JPEGQuality > 100 {
		return fmt.Errorf("pose.jpeg_quality must be between 1 and 100")
	}

	if *cfg.Posture.AlertCooldownS < 0 {
		return fmt.Errorf("posture.alert_cooldown_s must be >= 0")
	}
	if *cfg.Posture.ThresholdMargin < 0 {
		return fmt.Errorf("posture.threshold_margin must be >= 0")
	}
	if (cfg.Posture.ShoulderThreshold == nil) != (cfg.Posture.NeckThreshold == nil) {
		return fmt.Errorf("posture.shoulder_threshold and posture.neck_threshold must be set together")
	}

	if cfg.Recording.FPS < 0 {
		return fmt.Errorf("recording.fps must be >= 0")
	}
	if len(cfg.Recording.Codec) != 4 {
		return fmt.Errorf("recording.codec must be a FourCC, got %q", cfg.Recording.Codec)
	}

	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format)
	}

	return nil
}

func validateConfidence(name string, v float64) error {
	if v <= 0 || v > 1 {
		return fmt.Errorf("%s must be in (0, 1], got %.2f", name, v)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.InstanceID == "" {
		cfg.InstanceID = defaultInstanceID
	}

	if cfg.Camera.Source == "" {
		cfg.Camera.Source = "webcam"
	}
	if cfg.Camera.V4L2Path == "" {
		cfg.Camera.V4L2Path = "/dev/video0"
	}
	if cfg.Camera.Width == 0 {
		cfg.Camera.Width = defaultWidth
	}
	if cfg.Camera.Height == 0 {
		cfg.Camera.Height = defaultHeight
	}
	if cfg.Camera.FPS == 0 {
		cfg.Camera.FPS = defaultFPS
	}

	if cfg.Pose.Command == "" {
		cfg.Pose.Command = defaultPoseCommand
	}
	if cfg.Pose.MinDetectionConfidence == 0 {
		cfg.Pose.MinDetectionConfidence = 0.5
	}
	if cfg.Pose.MinTrackingConfidence == 0 {
		cfg.Pose.MinTrackingConfidence = 0.5
	}
	if cfg.Pose.TimeoutMS <= 0 {
		cfg.Pose.TimeoutMS = 2000
	}
	if cfg.Pose.JPEGQuality == 0 {
		cfg.Pose.JPEGQuality = 90
	}

	if cfg.Posture.CalibrationFrames <= 0 {
		cfg.Posture.CalibrationFrames = 30
	}
	if cfg.Posture.ThresholdMargin == nil {
		cfg.Posture.ThresholdMargin = floatPtr(defaultMargin)
	}
	if cfg.Posture.AlertCooldownS == nil {
		cfg.Posture.AlertCooldownS = floatPtr(defaultCooldownS)
	}
	if cfg.Posture.StatsIntervalS <= 0 {
		cfg.Posture.StatsIntervalS = 30
	}

	if cfg.Alerts.SoundFile == "" {
		cfg.Alerts.SoundFile = defaultSoundFile
	}
	if cfg.Display.WindowTitle == "" {
		cfg.Display.WindowTitle = defaultWindow
	}

	if cfg.Recording.Path == "" {
		cfg.Recording.Path = defaultRecording
	}
	if cfg.Recording.Codec == "" {
		cfg.Recording.Codec = defaultCodec
	}

	if cfg.MQTT.Topics.Events == "" {
		cfg.MQTT.Topics.Events = fmt.Sprintf("posturewatch/%s/events", cfg.InstanceID)
	}
	if cfg.MQTT.Topics.Control == "" {
		cfg.MQTT.Topics.Control = fmt.Sprintf("posturewatch/%s/control", cfg.InstanceID)
	}
	if cfg.MQTT.Topics.Responses == "" {
		cfg.MQTT.Topics.Responses = fmt.Sprintf("posturewatch/%s/responses", cfg.InstanceID)
	}
	if cfg.MQTT.QoS == nil {
		cfg.MQTT.QoS = map[string]byte{
			"control":              1,
			"posture_alert":        1,
			"calibration_complete": 1,
			"session_summary":      1,
			"posture_stats":        0,
		}
	}

	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(XDGDataHome(), "posturewatch", "history.db")
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
