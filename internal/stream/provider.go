// Package stream acquires camera frames.
//
// Three providers share one contract: WebcamStream reads an OpenCV capture
// device, GStreamerStream runs a v4l2src pipeline with automatic restart, and
// MockStream synthesizes frames for tests and dry runs. All of them deliver
// BGR24 frames on a buffered channel and drop frames rather than queue them
// when the consumer falls behind.
package stream

import (
	"context"
	"fmt"

	"github.com/care/posturewatch/internal/config"
	"github.com/care/posturewatch/internal/types"
)

// Provider defines the contract for frame acquisition
//
// Implementations must guarantee:
//   - Start() returns immediately and frames arrive asynchronously
//   - the returned channel closes only after Stop() or a fatal source error
//   - Stop() is idempotent
//   - Stats() is safe to call from any goroutine
type Provider interface {
	Start(ctx context.Context) (<-chan types.Frame, error)
	Stop() error
	Stats() types.StreamStats
}

// frameBuffer is the capacity of every provider's output channel
const frameBuffer = 4

// New builds the provider selected by the camera configuration
func New(cfg config.CameraConfig) (Provider, error) {
	switch cfg.Source {
	case "webcam":
		return NewWebcamStream(WebcamConfig{
			Device: cfg.Device,
			Width:  cfg.Width,
			Height: cfg.Height,
			FPS:    cfg.FPS,
		})
	case "gstreamer":
		return NewGStreamerStream(GStreamerConfig{
			Device:    cfg.V4L2Path,
			Width:     cfg.Width,
			Height:    cfg.Height,
			TargetFPS: cfg.FPS,
		})
	case "mock":
		return NewMockStream(cfg.Width, cfg.Height, cfg.FPS), nil
	default:
		return nil, fmt.Errorf("stream: unknown source %q", cfg.Source)
	}
}
