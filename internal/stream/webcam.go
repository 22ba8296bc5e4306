package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/care/posturewatch/internal/types"
)

// WebcamConfig configures an OpenCV capture device
type WebcamConfig struct {
	Device int
	Width  int
	Height int
	FPS    float64
}

// WebcamStream implements Provider on top of gocv.VideoCapture
type WebcamStream struct {
	cfg WebcamConfig

	capture *gocv.VideoCapture
	frames  chan types.Frame

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	frameCount    uint64
	framesDropped uint64
	readFailures  uint64
	started       time.Time
	lastFrameAt   time.Time

	framesClosed atomic.Bool
}

// NewWebcamStream validates the configuration; the device is opened on Start
func NewWebcamStream(cfg WebcamConfig) (*WebcamStream, error) {
	if cfg.Device < 0 {
		return nil, fmt.Errorf("stream: invalid webcam device %d", cfg.Device)
	}
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("stream: invalid FPS %.2f", cfg.FPS)
	}

	return &WebcamStream{
		cfg:    cfg,
		frames: make(chan types.Frame, frameBuffer),
	}, nil
}

// Start opens the capture device and begins reading frames
func (s *WebcamStream) Start(ctx context.Context) (<-chan types.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil, fmt.Errorf("stream: webcam already started")
	}

	capture, err := gocv.OpenVideoCapture(s.cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("stream: failed to open webcam %d: %w", s.cfg.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("stream: webcam %d did not open", s.cfg.Device)
	}

	if s.cfg.Width > 0 && s.cfg.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(s.cfg.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(s.cfg.Height))
	}
	capture.Set(gocv.VideoCaptureFPS, s.cfg.FPS)

	s.capture = capture
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = time.Now()

	slog.Info("stream: webcam opened",
		"device", s.cfg.Device,
		"width", int(capture.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(capture.Get(gocv.VideoCaptureFrameHeight)),
		"fps", capture.Get(gocv.VideoCaptureFPS),
	)

	s.wg.Add(1)
	go s.readLoop(s.ctx)

	return s.frames, nil
}

// readLoop pulls frames until the context is cancelled.
// A failed read is skipped; the camera often recovers on the next call.
func (s *WebcamStream) readLoop(ctx context.Context) {
	defer s.wg.Done()

	img := gocv.NewMat()
	defer img.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ok := s.capture.Read(&img); !ok || img.Empty() {
			atomic.AddUint64(&s.readFailures, 1)
			slog.Debug("stream: webcam read failed, skipping")
			time.Sleep(10 * time.Millisecond)
			continue
		}

		data := img.ToBytes()
		seq := atomic.AddUint64(&s.frameCount, 1)
		frame := types.Frame{
			Seq:       seq,
			Timestamp: time.Now(),
			Width:     img.Cols(),
			Height:    img.Rows(),
			Data:      data,
			Source:    "webcam",
			TraceID:   uuid.New().String(),
		}

		s.mu.Lock()
		s.lastFrameAt = frame.Timestamp
		s.mu.Unlock()

		select {
		case s.frames <- frame:
		case <-ctx.Done():
			return
		default:
			atomic.AddUint64(&s.framesDropped, 1)
			slog.Debug("stream: dropping frame, channel full", "seq", seq)
		}
	}
}

// Stop cancels reading, releases the device and closes the frame channel
func (s *WebcamStream) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		err = fmt.Errorf("stream: webcam stop timeout")
	}

	s.mu.Lock()
	if s.capture != nil && err == nil {
		s.capture.Close()
		s.capture = nil
	}
	s.mu.Unlock()

	if s.framesClosed.CompareAndSwap(false, true) {
		close(s.frames)
	}

	slog.Info("stream: webcam stopped",
		"frames", atomic.LoadUint64(&s.frameCount),
		"read_failures", atomic.LoadUint64(&s.readFailures),
		"uptime", time.Since(s.started),
	)

	return err
}

// Stats returns capture statistics
func (s *WebcamStream) Stats() types.StreamStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	frames := atomic.LoadUint64(&s.frameCount)
	stats := types.StreamStats{
		FrameCount:    frames,
		FramesDropped: atomic.LoadUint64(&s.framesDropped),
		ReadFailures:  atomic.LoadUint64(&s.readFailures),
		FPSTarget:     s.cfg.FPS,
		Source:        "webcam",
		Resolution:    fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		IsConnected:   s.capture != nil,
	}
	if elapsed := time.Since(s.started).Seconds(); !s.started.IsZero() && elapsed > 0 {
		stats.FPSReal = float64(frames) / elapsed
	}
	if !s.lastFrameAt.IsZero() {
		stats.LatencyMS = time.Since(s.lastFrameAt).Milliseconds()
	}
	return stats
}
