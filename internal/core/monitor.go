// Package core runs the posture monitoring loop.
//
// A single goroutine owns the posture session, the feature flags, the window
// and the recorder. Frames, keyboard input and MQTT commands are all consumed
// on that goroutine, so none of that state needs locking. Only the values read
// by the health server are published through atomics.
package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/care/posturewatch/internal/alert"
	"github.com/care/posturewatch/internal/config"
	"github.com/care/posturewatch/internal/control"
	"github.com/care/posturewatch/internal/emitter"
	"github.com/care/posturewatch/internal/overlay"
	"github.com/care/posturewatch/internal/posture"
	"github.com/care/posturewatch/internal/recorder"
	"github.com/care/posturewatch/internal/report"
	"github.com/care/posturewatch/internal/store"
	"github.com/care/posturewatch/internal/stream"
	"github.com/care/posturewatch/internal/types"
)

// Options carries the components a Monitor drives. Nil optional fields get
// inert defaults.
type Options struct {
	Source    stream.Provider     // required
	Estimator types.PoseEstimator // required
	Display   overlay.Display     // defaults to overlay.Headless
	Sound     alert.SoundPlayer   // defaults to alert.NopPlayer
	Publisher emitter.Publisher   // defaults to a NopEmitter
	Commands  CommandSource       // nil without MQTT
	History   HistoryWriter       // nil when history is disabled
	Out       io.Writer           // session summary; defaults to stdout
}

// Monitor is the posture monitoring service
type Monitor struct {
	cfg      *config.Config
	features config.Features

	source    stream.Provider
	estimator types.PoseEstimator
	display   overlay.Display
	sound     alert.SoundPlayer
	publisher emitter.Publisher
	commands  CommandSource
	history   HistoryWriter
	out       io.Writer

	session  *posture.Session
	recorder *recorder.Recorder
	events   emitter.Source

	started     time.Time
	width       int
	height      int
	lastStats   time.Time
	measuredFPS float64
	quit        bool

	// read by the health server
	running    atomic.Bool
	calibrated atomic.Bool
	startedAt  atomic.Int64 // unix nanoseconds
}

// New creates a monitor. It does not start anything.
func New(cfg *config.Config, opts Options) (*Monitor, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("core: frame source is required")
	}
	if opts.Estimator == nil {
		return nil, fmt.Errorf("core: pose estimator is required")
	}
	if opts.Display == nil {
		opts.Display = overlay.Headless{}
	}
	if opts.Sound == nil {
		opts.Sound = alert.NopPlayer{}
	}
	if opts.Publisher == nil {
		opts.Publisher = &emitter.NopEmitter{}
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	return &Monitor{
		cfg:       cfg,
		features:  cfg.Features,
		source:    opts.Source,
		estimator: opts.Estimator,
		display:   opts.Display,
		sound:     opts.Sound,
		publisher: opts.Publisher,
		commands:  opts.Commands,
		history:   opts.History,
		out:       opts.Out,
		events: emitter.Source{
			InstanceID: cfg.InstanceID,
			SessionID:  uuid.NewString(),
		},
	}, nil
}

// SessionID identifies this monitoring session in events and history
func (m *Monitor) SessionID() string {
	return m.events.SessionID
}

// Features returns the current feature flags. Loop goroutine only.
func (m *Monitor) Features() config.Features {
	return m.features
}

// Run monitors posture until ESC, a shutdown command, ctx cancellation or the
// end of the frame source. Cleanup always runs once the source has started.
func (m *Monitor) Run(ctx context.Context) error {
	if m.running.Load() {
		return fmt.Errorf("core: monitor is already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.Info("core: posture monitor starting",
		"instance_id", m.cfg.InstanceID,
		"session_id", m.events.SessionID,
		"source", m.cfg.Camera.Source,
	)

	// the session clock and the alert cooldown run from here, before the
	// camera, warm-up and pose worker start
	m.started = time.Now()

	frames, err := m.source.Start(ctx)
	if err != nil {
		return fmt.Errorf("core: failed to start frame source: %w", err)
	}
	m.startedAt.Store(m.started.UnixNano())
	m.running.Store(true)
	defer m.cleanup()

	if m.cfg.Camera.WarmupS > 0 {
		stats, err := stream.Warmup(ctx, frames, time.Duration(m.cfg.Camera.WarmupS)*time.Second)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			return fmt.Errorf("core: warm-up failed: %w", err)
		default:
			m.measuredFPS = stats.FPSMean
		}
	}
	m.recorder = recorder.New(m.cfg.Recording, recorder.ResolveFPS(m.cfg.Recording.FPS, m.measuredFPS))

	if err := m.estimator.Start(ctx); err != nil {
		return fmt.Errorf("core: failed to start pose estimator: %w", err)
	}

	m.session = posture.NewSession(m.sessionConfig(), m.started)
	if m.session.Calibrated() {
		m.calibrated.Store(true)
		t, _ := m.session.Thresholds()
		slog.Info("core: using configured thresholds",
			"shoulder_threshold", fmt.Sprintf("%.1f", t.Shoulder),
			"neck_threshold", fmt.Sprintf("%.1f", t.Neck),
		)
	}

	var cmds <-chan control.Command
	if m.commands != nil {
		cmds = m.commands.Commands()
	}

	slog.Info("core: posture monitor running", "session_id", m.events.SessionID)

	for !m.quit {
		select {
		case <-ctx.Done():
			slog.Info("core: context cancelled, stopping")
			return nil
		case cmd, ok := <-cmds:
			if !ok {
				cmds = nil
				continue
			}
			m.commands.Respond(control.Dispatch(cmd, m))
		case frame, ok := <-frames:
			if !ok {
				slog.Warn("core: frame source closed, stopping")
				return nil
			}
			m.step(ctx, frame)
		}
	}

	slog.Info("core: exit requested")
	return nil
}

func (m *Monitor) sessionConfig() posture.SessionConfig {
	pc := m.cfg.Posture
	sc := posture.SessionConfig{
		CalibrationFrames: pc.CalibrationFrames,
		ThresholdMargin:   pc.ThresholdMargin,
		AlertCooldown:     pc.AlertCooldown(),
	}
	if !m.features.Calibration && pc.ShoulderThreshold != nil && pc.NeckThreshold != nil {
		sc.FixedThresholds = &posture.Thresholds{
			Shoulder: *pc.ShoulderThreshold,
			Neck:     *pc.NeckThreshold,
		}
	}
	return sc
}

// step runs the per-frame pipeline: mirror, estimate, observe, draw, record,
// show, then poll the keyboard.
func (m *Monitor) step(ctx context.Context, frame types.Frame) {
	img, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		slog.Error("core: failed to wrap frame", "error", err, "seq", frame.Seq)
		return
	}
	defer img.Close()

	m.width, m.height = frame.Width, frame.Height

	if m.features.MirrorView {
		mirrored := gocv.NewMat()
		defer mirrored.Close()
		gocv.Flip(img, &mirrored, 1)
		img, mirrored = mirrored, img
		frame.Data = img.ToBytes()
	}

	now := time.Now()
	var (
		landmarks *types.LandmarkSet
		result    *posture.FrameResult
	)
	if m.features.PoseDetection {
		landmarks = m.estimate(ctx, frame)
		if landmarks != nil {
			if res, ok := m.session.Observe(landmarks, now, m.features.Calibration); ok {
				result = &res
				m.afterObserve(res, now)
			}
		}
	}

	plan := overlay.Build(overlay.State{
		Width:      frame.Width,
		Height:     frame.Height,
		Features:   m.features,
		Landmarks:  landmarks,
		Result:     result,
		Calibrated: m.session.Calibrated(),
		Summary:    m.session.Summary(now),
	})
	overlay.Paint(&img, plan)

	if m.features.RecordSession {
		m.ensureRecording()
		if err := m.recorder.Write(img); err != nil {
			slog.Error("core: failed to record frame", "error", err)
		}
	}

	m.display.Show(img)
	m.publishStats(now)

	if key := m.display.PollKey(); key != overlay.KeyNone {
		if cmd, ok := control.KeyCommand(key); ok {
			resp := control.Dispatch(cmd, m)
			if resp.Error != "" {
				slog.Warn("core: key command failed", "command", cmd.Command, "error", resp.Error)
			}
		}
	}
}

// estimate returns nil when no person was found or the worker failed; a
// failed frame is skipped.
func (m *Monitor) estimate(ctx context.Context, frame types.Frame) *types.LandmarkSet {
	res, err := m.estimator.Estimate(ctx, frame)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("core: pose estimation failed", "error", err, "seq", frame.Seq)
		}
		return nil
	}
	if res == nil {
		return nil
	}
	return res.Landmarks
}

func (m *Monitor) afterObserve(res posture.FrameResult, now time.Time) {
	if res.CalibrationDone {
		m.calibrated.Store(true)
		m.lastStats = now
		slog.Info("core: calibration complete",
			"shoulder_threshold", fmt.Sprintf("%.1f", res.Thresholds.Shoulder),
			"neck_threshold", fmt.Sprintf("%.1f", res.Thresholds.Neck),
		)
		m.publish(m.events.CalibrationComplete(now, res.Thresholds, res.CalibrationSamples))
	}

	if !res.AlertFired {
		return
	}

	slog.Warn("core: poor posture detected, please sit up straight",
		"shoulder_angle", fmt.Sprintf("%.1f", res.Measurement.Angles.Shoulder),
		"neck_angle", fmt.Sprintf("%.1f", res.Measurement.Angles.Neck),
	)
	if m.features.SoundAlerts {
		if err := m.sound.Play(); err != nil {
			slog.Debug("core: sound alert failed", "error", err)
		}
	}
	m.publish(m.events.PostureAlert(now, res.Measurement.Angles, res.Thresholds))
}

func (m *Monitor) publishStats(now time.Time) {
	interval := time.Duration(m.cfg.Posture.StatsIntervalS) * time.Second
	if interval <= 0 || !m.session.Calibrated() {
		return
	}
	if m.lastStats.IsZero() {
		m.lastStats = now
		return
	}
	if now.Sub(m.lastStats) < interval {
		return
	}
	m.lastStats = now
	m.publish(m.events.PostureStats(now, m.session.Summary(now)))
}

func (m *Monitor) publish(ev emitter.Event) {
	if err := m.publisher.Publish(ev); err != nil {
		slog.Warn("core: failed to publish event", "type", ev.Type, "error", err)
	}
}

// ensureRecording opens the recorder lazily once the frame size is known
func (m *Monitor) ensureRecording() {
	if m.recorder.Recording() || m.width == 0 {
		return
	}
	if err := m.recorder.Start(m.width, m.height); err != nil {
		slog.Error("core: failed to start recording", "error", err)
		m.features.RecordSession = false
	}
}

// cleanup releases everything in a fixed order and reports the session
func (m *Monitor) cleanup() {
	ended := time.Now()

	if m.recorder != nil {
		if err := m.recorder.Stop(); err != nil {
			slog.Error("core: failed to stop recording", "error", err)
		}
	}
	if err := m.source.Stop(); err != nil {
		slog.Error("core: failed to stop frame source", "error", err)
	}
	if err := m.estimator.Stop(); err != nil {
		slog.Error("core: failed to stop pose estimator", "error", err)
	}
	if err := m.display.Close(); err != nil {
		slog.Error("core: failed to close window", "error", err)
	}
	if err := m.sound.Close(); err != nil {
		slog.Error("core: failed to close sound player", "error", err)
	}
	if m.commands != nil {
		if err := m.commands.Stop(); err != nil {
			slog.Error("core: failed to stop control handler", "error", err)
		}
	}

	m.running.Store(false)

	if m.session != nil {
		sum := m.session.Summary(ended)
		m.saveHistory(sum, ended)
		fmt.Fprintln(m.out, report.RenderSummary(sum))
		m.publish(m.events.SessionSummary(ended, sum))
	} else {
		slog.Info("core: stopped before the session began, nothing to report")
	}

	if m.history != nil {
		if err := m.history.Close(); err != nil {
			slog.Error("core: failed to close history", "error", err)
		}
	}
	if err := m.publisher.Disconnect(); err != nil {
		slog.Error("core: failed to disconnect publisher", "error", err)
	}

	slog.Info("core: posture monitor stopped",
		"session_id", m.events.SessionID,
		"uptime", ended.Sub(m.started).Round(time.Second),
	)
}

func (m *Monitor) saveHistory(sum posture.Summary, ended time.Time) {
	if m.history == nil {
		return
	}

	rec := store.SessionRecord{
		SessionID:   m.events.SessionID,
		InstanceID:  m.cfg.InstanceID,
		StartedAt:   sum.SessionStart,
		EndedAt:     ended,
		GoodSeconds: sum.Good.Seconds(),
		PoorSeconds: sum.Poor.Seconds(),
		Alerts:      sum.Alerts,
	}
	if t, ok := m.session.Thresholds(); ok {
		rec.ShoulderThreshold = &t.Shoulder
		rec.NeckThreshold = &t.Neck
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.history.InsertSession(ctx, rec); err != nil {
		slog.Error("core: failed to save session history", "error", err)
		return
	}
	slog.Info("core: session saved to history", "session_id", rec.SessionID)
}
