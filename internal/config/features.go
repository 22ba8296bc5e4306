package config

import (
	"fmt"
	"sort"
)

// Feature names a toggleable behaviour
type Feature string

const (
	FeaturePoseDetection Feature = "pose_detection"
	FeatureCalibration   Feature = "calibration"
	FeatureSkeleton      Feature = "skeleton"
	FeatureAngles        Feature = "angles"
	FeaturePostureStatus Feature = "posture_status"
	FeatureSoundAlerts   Feature = "sound_alerts"
	FeatureVisualAlerts  Feature = "visual_alerts"
	FeatureMirrorView    Feature = "mirror_view"
	FeatureRecordSession Feature = "record_session"
	FeatureDisplayStats  Feature = "display_stats"
)

// Features holds the runtime feature flags. The monitor loop owns the value;
// keyboard and MQTT commands are applied on that goroutine only.
type Features struct {
	PoseDetection bool `yaml:"pose_detection" json:"pose_detection"`
	Calibration   bool `yaml:"calibration" json:"calibration"`

	Skeleton      bool `yaml:"skeleton" json:"skeleton"`
	Angles        bool `yaml:"angles" json:"angles"`
	PostureStatus bool `yaml:"posture_status" json:"posture_status"`

	SoundAlerts  bool `yaml:"sound_alerts" json:"sound_alerts"`
	VisualAlerts bool `yaml:"visual_alerts" json:"visual_alerts"`

	MirrorView    bool `yaml:"mirror_view" json:"mirror_view"`
	RecordSession bool `yaml:"record_session" json:"record_session"`
	DisplayStats  bool `yaml:"display_stats" json:"display_stats"`
}

// DefaultFeatures returns the out-of-the-box flag set
func DefaultFeatures() Features {
	return Features{
		PoseDetection: true,
		Calibration:   true,
		Skeleton:      true,
		Angles:        true,
		PostureStatus: true,
		SoundAlerts:   true,
		VisualAlerts:  true,
		MirrorView:    true,
		RecordSession: false,
		DisplayStats:  true,
	}
}

func (f *Features) flag(name Feature) (*bool, error) {
	switch name {
	case FeaturePoseDetection:
		return &f.PoseDetection, nil
	case FeatureCalibration:
		return &f.Calibration, nil
	case FeatureSkeleton:
		return &f.Skeleton, nil
	case FeatureAngles:
		return &f.Angles, nil
	case FeaturePostureStatus:
		return &f.PostureStatus, nil
	case FeatureSoundAlerts:
		return &f.SoundAlerts, nil
	case FeatureVisualAlerts:
		return &f.VisualAlerts, nil
	case FeatureMirrorView:
		return &f.MirrorView, nil
	case FeatureRecordSession:
		return &f.RecordSession, nil
	case FeatureDisplayStats:
		return &f.DisplayStats, nil
	default:
		return nil, fmt.Errorf("unknown feature %q", name)
	}
}

// Toggle flips a flag and returns its new value
func (f *Features) Toggle(name Feature) (bool, error) {
	p, err := f.flag(name)
	if err != nil {
		return false, err
	}
	*p = !*p
	return *p, nil
}

// Set assigns a flag
func (f *Features) Set(name Feature, v bool) error {
	p, err := f.flag(name)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Get reads a flag
func (f *Features) Get(name Feature) (bool, error) {
	p, err := f.flag(name)
	if err != nil {
		return false, err
	}
	return *p, nil
}

// AllFeatures lists every feature name in sorted order
func AllFeatures() []Feature {
	all := []Feature{
		FeaturePoseDetection, FeatureCalibration, FeatureSkeleton, FeatureAngles,
		FeaturePostureStatus, FeatureSoundAlerts, FeatureVisualAlerts,
		FeatureMirrorView, FeatureRecordSession, FeatureDisplayStats,
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

// OnOff renders a flag the way toggles are announced
func OnOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}
