// Package alert plays the audible posture alert.
package alert

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrSoundMissing is returned when the configured sound file does not exist
var ErrSoundMissing = errors.New("alert: sound file not found")

// SoundPlayer plays the alert sound
type SoundPlayer interface {
	Play() error
	Close() error
}

// GstSoundPlayer plays a local audio file through a GStreamer playbin.
// Each Play restarts the file from the beginning.
type GstSoundPlayer struct {
	path     string
	mu       sync.Mutex
	pipeline *gst.Pipeline
}

// NewGstSoundPlayer prepares playback of path.
// It returns ErrSoundMissing when the file does not exist.
func NewGstSoundPlayer(path string) (*GstSoundPlayer, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("alert: invalid sound path %q: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSoundMissing, path)
		}
		return nil, fmt.Errorf("alert: cannot read sound file: %w", err)
	}

	gst.Init(nil)

	uri := (&url.URL{Scheme: "file", Path: abs}).String()
	pipeline, err := gst.NewPipelineFromString(fmt.Sprintf("playbin uri=%q", uri))
	if err != nil {
		return nil, fmt.Errorf("alert: failed to create playbin: %w", err)
	}

	// Preroll so the first alert starts without decoder setup delay.
	if err := pipeline.SetState(gst.StatePaused); err != nil {
		return nil, fmt.Errorf("alert: failed to preroll sound: %w", err)
	}

	slog.Info("alert: sound ready", "file", abs)
	return &GstSoundPlayer{path: abs, pipeline: pipeline}, nil
}

// Play restarts the sound. It does not wait for playback to finish.
func (p *GstSoundPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pipeline == nil {
		return fmt.Errorf("alert: player closed")
	}

	p.drainBus()

	// READY rewinds to the start of the file.
	if err := p.pipeline.SetState(gst.StateReady); err != nil {
		return fmt.Errorf("alert: failed to rewind sound: %w", err)
	}
	if err := p.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("alert: failed to play sound: %w", err)
	}
	return nil
}

// drainBus logs and discards messages from previous playbacks
func (p *GstSoundPlayer) drainBus() {
	bus := p.pipeline.GetPipelineBus()
	for msg := bus.TimedPop(0); msg != nil; msg = bus.TimedPop(0) {
		if msg.Type() == gst.MessageError {
			gerr := msg.ParseError()
			slog.Warn("alert: playback error", "file", p.path, "error", gerr.Error())
		}
	}
}

// Close releases the pipeline
func (p *GstSoundPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pipeline == nil {
		return nil
	}
	err := p.pipeline.SetState(gst.StateNull)
	p.pipeline = nil
	return err
}

// NopPlayer is used when sound is unavailable
type NopPlayer struct{}

func (NopPlayer) Play() error  { return nil }
func (NopPlayer) Close() error { return nil }

// NewSoundPlayer returns a GStreamer player for path, or NopPlayer and the
// reason when the sound cannot be played.
func NewSoundPlayer(path string) (SoundPlayer, error) {
	if path == "" {
		return NopPlayer{}, ErrSoundMissing
	}
	p, err := NewGstSoundPlayer(path)
	if err != nil {
		return NopPlayer{}, err
	}
	return p, nil
}
