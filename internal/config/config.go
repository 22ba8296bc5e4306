package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete posturewatch configuration
type Config struct {
	InstanceID string          `yaml:"instance_id"`
	Camera     CameraConfig    `yaml:"camera"`
	Pose       PoseConfig      `yaml:"pose"`
	Posture    PostureConfig   `yaml:"posture"`
	Features   Features        `yaml:"features"`
	Alerts     AlertsConfig    `yaml:"alerts"`
	Display    DisplayConfig   `yaml:"display"`
	Recording  RecordingConfig `yaml:"recording"`
	MQTT       MQTTConfig      `yaml:"mqtt"`
	History    HistoryConfig   `yaml:"history"`
	Health     HealthConfig    `yaml:"health"`
	Log        LogConfig       `yaml:"log"`
}

// CameraConfig selects and tunes the frame source
type CameraConfig struct {
	Source   string  `yaml:"source"`    // webcam, gstreamer, mock
	Device   int     `yaml:"device"`    // webcam index
	V4L2Path string  `yaml:"v4l2_path"` // gstreamer device node
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	FPS      float64 `yaml:"fps"`
	// WarmupS measures real FPS before monitoring starts (0 disables)
	WarmupS int `yaml:"warmup_s"`
}

// PoseConfig configures the pose-estimation worker subprocess
type PoseConfig struct {
	Command                string   `yaml:"command"`
	Args                   []string `yaml:"args"`
	MinDetectionConfidence float64  `yaml:"min_detection_confidence"`
	MinTrackingConfidence  float64  `yaml:"min_tracking_confidence"`
	TimeoutMS              int      `yaml:"timeout_ms"`
	JPEGQuality            int      `yaml:"jpeg_quality"`
}

// Timeout returns the per-frame estimation timeout
func (p PoseConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// PostureConfig tunes calibration and alerting
type PostureConfig struct {
	CalibrationFrames int `yaml:"calibration_frames"`
	// nil selects the default; zero is a valid value
	ThresholdMargin *float64 `yaml:"threshold_margin,omitempty"`
	// Fixed thresholds are used when calibration is disabled
	ShoulderThreshold *float64 `yaml:"shoulder_threshold,omitempty"`
	NeckThreshold     *float64 `yaml:"neck_threshold,omitempty"`
	AlertCooldownS    *float64 `yaml:"alert_cooldown_s,omitempty"` // 0 alerts on every poor frame
	StatsIntervalS    int      `yaml:"stats_interval_s"`           // event publishing interval
}

// AlertCooldown returns the cooldown as a duration
func (p PostureConfig) AlertCooldown() time.Duration {
	if p.AlertCooldownS == nil {
		return 0
	}
	return time.Duration(*p.AlertCooldownS * float64(time.Second))
}

// AlertsConfig configures the sound alert
type AlertsConfig struct {
	SoundFile string `yaml:"sound_file"`
}

// DisplayConfig configures the preview window
type DisplayConfig struct {
	Enabled     bool   `yaml:"enabled"`
	WindowTitle string `yaml:"window_title"`
}

// RecordingConfig configures session video capture
type RecordingConfig struct {
	Path  string  `yaml:"path"`
	Codec string  `yaml:"codec"`
	FPS   float64 `yaml:"fps"` // 0 uses the warm-up measurement, else 20
}

// MQTTConfig contains optional MQTT broker settings
type MQTTConfig struct {
	Broker string          `yaml:"broker"` // empty disables MQTT
	Topics MQTTTopics      `yaml:"topics"`
	QoS    map[string]byte `yaml:"qos"`
}

// MQTTTopics contains topic names
type MQTTTopics struct {
	Events    string `yaml:"events"`
	Control   string `yaml:"control"`
	Responses string `yaml:"responses"`
}

// Enabled reports whether a broker is configured
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

// HistoryConfig configures the session history database
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// HealthConfig configures the HTTP health endpoint
type HealthConfig struct {
	Listen string `yaml:"listen"` // empty disables the server
}

// LogConfig configures structured logging
type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json, text
	File       string `yaml:"file"`   // optional rotating log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

func base() *Config {
	return &Config{
		Features: DefaultFeatures(),
		Display:  DisplayConfig{Enabled: true},
		History:  HistoryConfig{Enabled: true},
	}
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := base()
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses a YAML configuration file.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := base()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
