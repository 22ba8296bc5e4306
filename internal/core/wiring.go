package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/care/posturewatch/internal/alert"
	"github.com/care/posturewatch/internal/config"
	"github.com/care/posturewatch/internal/control"
	"github.com/care/posturewatch/internal/emitter"
	"github.com/care/posturewatch/internal/overlay"
	"github.com/care/posturewatch/internal/store"
	"github.com/care/posturewatch/internal/stream"
	"github.com/care/posturewatch/internal/worker"
)

// NewFromConfig builds every component the configuration asks for and
// returns a monitor ready to Run. Optional components that fail to come up
// (sound, MQTT, history) are logged and left out.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Monitor, error) {
	source, err := stream.New(cfg.Camera)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame source: %w", err)
	}

	estimator, err := worker.NewPythonPoseEstimator(worker.PythonPoseEstimatorConfig{
		Command:                cfg.Pose.Command,
		Args:                   cfg.Pose.Args,
		MinDetectionConfidence: cfg.Pose.MinDetectionConfidence,
		MinTrackingConfidence:  cfg.Pose.MinTrackingConfidence,
		Timeout:                cfg.Pose.Timeout(),
		Encoder:                worker.JPEGEncoder(cfg.Pose.JPEGQuality),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pose estimator: %w", err)
	}

	opts := Options{
		Source:    source,
		Estimator: estimator,
		Display:   overlay.Headless{},
		Sound:     alert.NopPlayer{},
	}

	if cfg.Features.SoundAlerts {
		player, err := alert.NewSoundPlayer(cfg.Alerts.SoundFile)
		if err != nil {
			slog.Warn(fmt.Sprintf("core: sound file %q not found, sound alerts disabled", cfg.Alerts.SoundFile),
				"error", err,
			)
			cfg.Features.SoundAlerts = false
		}
		opts.Sound = player
	}

	if cfg.MQTT.Enabled() {
		opts.Publisher, opts.Commands = connectMQTT(ctx, cfg)
	}

	if cfg.History.Enabled {
		st, err := store.Open(cfg.History.Path)
		if err != nil {
			slog.Warn("core: session history unavailable", "path", cfg.History.Path, "error", err)
		} else {
			opts.History = st
		}
	}

	if cfg.Display.Enabled {
		opts.Display = overlay.NewWindow(cfg.Display.WindowTitle)
	}

	return New(cfg, opts)
}

// connectMQTT returns the event publisher and control handler. On failure it
// falls back to a NopEmitter and no remote control.
func connectMQTT(ctx context.Context, cfg *config.Config) (emitter.Publisher, CommandSource) {
	em := emitter.NewMQTTEmitter(cfg.MQTT, cfg.InstanceID)
	if err := em.Connect(ctx); err != nil {
		slog.Warn("core: mqtt unavailable, events and remote control disabled", "error", err)
		em.Disconnect()
		return &emitter.NopEmitter{}, nil
	}

	handler := control.NewHandler(em.Client, cfg.MQTT)
	if err := handler.Start(); err != nil {
		slog.Warn("core: remote control disabled", "error", err)
		return em, nil
	}
	return em, handler
}
