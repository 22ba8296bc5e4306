// Package recorder writes the annotated session video.
package recorder

import (
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/care/posturewatch/internal/config"
)

// DefaultFPS is used when neither configuration nor warm-up provide a rate
const DefaultFPS = 20.0

// ResolveFPS picks the output rate: configured, then measured, then DefaultFPS
func ResolveFPS(configured, measured float64) float64 {
	switch {
	case configured > 0:
		return configured
	case measured > 0:
		return measured
	default:
		return DefaultFPS
	}
}

// Recorder wraps an OpenCV VideoWriter. It is owned by the monitor loop.
type Recorder struct {
	path  string
	codec string
	fps   float64

	writer  *gocv.VideoWriter
	frames  uint64
	started time.Time
}

// New creates an idle recorder writing at fps
func New(cfg config.RecordingConfig, fps float64) *Recorder {
	return &Recorder{
		path:  cfg.Path,
		codec: cfg.Codec,
		fps:   fps,
	}
}

// Start opens the output file, replacing any previous recording
func (r *Recorder) Start(width, height int) error {
	if r.writer != nil {
		return fmt.Errorf("recorder: already recording to %s", r.path)
	}

	w, err := gocv.VideoWriterFile(r.path, r.codec, r.fps, width, height, true)
	if err != nil {
		return fmt.Errorf("recorder: failed to open %s: %w", r.path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return fmt.Errorf("recorder: codec %s could not open %s", r.codec, r.path)
	}

	r.writer = w
	r.frames = 0
	r.started = time.Now()

	slog.Info("recorder: recording started",
		"path", r.path,
		"codec", r.codec,
		"fps", r.fps,
		"size", fmt.Sprintf("%dx%d", width, height),
	)
	return nil
}

// Write appends one frame; it is a no-op when not recording
func (r *Recorder) Write(img gocv.Mat) error {
	if r.writer == nil {
		return nil
	}
	if err := r.writer.Write(img); err != nil {
		return fmt.Errorf("recorder: write failed: %w", err)
	}
	r.frames++
	return nil
}

// Stop closes the file. Safe to call when not recording.
func (r *Recorder) Stop() error {
	if r.writer == nil {
		return nil
	}
	err := r.writer.Close()
	r.writer = nil

	slog.Info("recorder: recording stopped and saved",
		"path", r.path,
		"frames", r.frames,
		"duration", time.Since(r.started).Round(time.Second),
	)
	return err
}

// Recording reports whether a file is open
func (r *Recorder) Recording() bool {
	return r.writer != nil
}

// Path returns the output file
func (r *Recorder) Path() string {
	return r.path
}
