package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const envPrefix = "POSTUREWATCH_"

// LoadDotEnv loads a .env file into the process environment if one exists.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides selected fields from POSTUREWATCH_* variables
func ApplyEnv(cfg *Config) error {
	if v, ok := lookup("INSTANCE_ID"); ok {
		cfg.InstanceID = v
	}
	if v, ok := lookup("CAMERA_SOURCE"); ok {
		cfg.Camera.Source = v
	}
	if v, ok := lookup("CAMERA_DEVICE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCAMERA_DEVICE: %w", envPrefix, err)
		}
		cfg.Camera.Device = n
	}
	if v, ok := lookup("POSE_COMMAND"); ok {
		cfg.Pose.Command = v
	}
	if v, ok := lookup("SOUND_FILE"); ok {
		cfg.Alerts.SoundFile = v
	}
	if v, ok := lookup("MQTT_BROKER"); ok {
		cfg.MQTT.Broker = v
	}
	if v, ok := lookup("HISTORY_PATH"); ok {
		cfg.History.Path = v
	}
	if v, ok := lookup("HEALTH_LISTEN"); ok {
		cfg.Health.Listen = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := lookup("DISPLAY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDISPLAY: %w", envPrefix, err)
		}
		cfg.Display.Enabled = b
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// XDGDataHome returns the XDG data home or a default fallback
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}
