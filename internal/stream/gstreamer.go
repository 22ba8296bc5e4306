package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/care/posturewatch/internal/types"
)

// GStreamerConfig configures the v4l2 capture pipeline
type GStreamerConfig struct {
	Device    string
	Width     int
	Height    int
	TargetFPS float64
	Reconnect ReconnectConfig // zero value uses DefaultReconnectConfig
}

// GStreamerStream implements Provider with a v4l2src pipeline.
// A failed pipeline is torn down and rebuilt with exponential backoff.
type GStreamerStream struct {
	cfg     GStreamerConfig
	restart *restarter

	frames       chan types.Frame
	framesClosed atomic.Bool

	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	elements *PipelineElements

	frameCount    uint64
	framesDropped uint64
	bytesRead     uint64
	lastFrameAt   atomic.Int64
	started       time.Time

	errorsDevice     uint64
	errorsFormat     uint64
	errorsPermission uint64
	errorsUnknown    uint64
}

// NewGStreamerStream validates the configuration
func NewGStreamerStream(cfg GStreamerConfig) (*GStreamerStream, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("stream: v4l2 device is required")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("stream: invalid resolution %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.TargetFPS < 0.1 || cfg.TargetFPS > 60 {
		return nil, fmt.Errorf("stream: invalid FPS %.2f (must be 0.1-60)", cfg.TargetFPS)
	}

	caps := buildFramerateCaps(cfg.Width, cfg.Height, cfg.TargetFPS)
	return &GStreamerStream{
		cfg:     cfg,
		restart: newRestarter(cfg.Reconnect, cfg.Device, caps),
		frames:  make(chan types.Frame, frameBuffer),
	}, nil
}

// Start launches the capture goroutine and returns immediately.
// Frames arrive once the pipeline reaches PLAYING.
func (s *GStreamerStream) Start(ctx context.Context) (<-chan types.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil, fmt.Errorf("stream: gstreamer stream already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = time.Now()

	slog.Info("stream: starting gstreamer capture",
		"device", s.cfg.Device,
		"resolution", fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		"target_fps", s.cfg.TargetFPS,
	)

	s.wg.Add(1)
	go s.run(s.ctx)

	return s.frames, nil
}

// run owns the pipeline lifecycle. The frame channel closes when it returns.
func (s *GStreamerStream) run(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		if s.framesClosed.CompareAndSwap(false, true) {
			close(s.frames)
		}
	}()

	err := s.restart.run(ctx, s.session)
	if err != nil && ctx.Err() == nil {
		slog.Error("stream: capture stopped after reconnection failure",
			"error", err,
			"device", s.cfg.Device,
			"uptime", time.Since(s.started),
			"frames_processed", atomic.LoadUint64(&s.frameCount),
			"reconnects", s.restart.restarts.Load(),
		)
	}
}

// session builds a pipeline, plays it and watches its bus until failure or
// cancellation. The pipeline is destroyed on return.
func (s *GStreamerStream) session(ctx context.Context) error {
	elements, err := CreatePipeline(PipelineConfig{
		Device:    s.cfg.Device,
		Width:     s.cfg.Width,
		Height:    s.cfg.Height,
		TargetFPS: s.cfg.TargetFPS,
	})
	if err != nil {
		return err
	}

	callbackCtx := &CallbackContext{
		FrameChan:     s.frames,
		FrameCounter:  &s.frameCount,
		BytesRead:     &s.bytesRead,
		FramesDropped: &s.framesDropped,
		LastFrameAt:   &s.lastFrameAt,
		Width:         s.cfg.Width,
		Height:        s.cfg.Height,
		Source:        "gstreamer",
	}
	elements.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			if ctx.Err() != nil {
				return gst.FlowEOS
			}
			return OnNewSample(sink, callbackCtx)
		},
	})

	s.mu.Lock()
	s.elements = elements
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.elements = nil
		s.mu.Unlock()
		if err := DestroyPipeline(elements); err != nil {
			slog.Error("stream: failed to destroy pipeline", "error", err)
		}
	}()

	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	return s.monitor(ctx, elements.Pipeline)
}

// monitor polls the bus. It returns nil on cancellation and an error on
// EOS or a pipeline error.
func (s *GStreamerStream) monitor(ctx context.Context, pipeline *gst.Pipeline) error {
	bus := pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			slog.Info("stream: end of stream received",
				"device", s.cfg.Device,
				"frames_processed", atomic.LoadUint64(&s.frameCount),
			)
			return fmt.Errorf("end of stream")

		case gst.MessageError:
			gerr := msg.ParseError()
			category := ClassifyGStreamerError(gerr)
			s.countError(category)

			slog.Error("stream: pipeline error",
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
				"category", category.String(),
				"device", s.cfg.Device,
				"uptime", time.Since(s.started),
				"frames_processed", atomic.LoadUint64(&s.frameCount),
				"reconnects", s.restart.restarts.Load(),
			)
			return fmt.Errorf("pipeline error [%s]: %s", category, gerr.Error())

		case gst.MessageStateChanged:
			if msg.Source() == pipeline.GetName() {
				old, next := msg.ParseStateChanged()
				slog.Debug("stream: pipeline state changed", "from", old, "to", next)
				if next == gst.StatePlaying {
					s.restart.healthy()
				}
			}
		}
	}
}

func (s *GStreamerStream) countError(category ErrorCategory) {
	switch category {
	case ErrCategoryDevice:
		atomic.AddUint64(&s.errorsDevice, 1)
	case ErrCategoryFormat:
		atomic.AddUint64(&s.errorsFormat, 1)
	case ErrCategoryPermission:
		atomic.AddUint64(&s.errorsPermission, 1)
	default:
		atomic.AddUint64(&s.errorsUnknown, 1)
	}
}

// Stop cancels capture and waits for the pipeline to be released.
// Idempotent.
func (s *GStreamerStream) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	slog.Info("stream: stopping gstreamer capture")
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		slog.Warn("stream: stop timeout exceeded, some goroutines may still be running")
	}

	slog.Info("stream: gstreamer capture stopped",
		"frames_captured", atomic.LoadUint64(&s.frameCount),
		"reconnects", s.restart.restarts.Load(),
		"uptime", time.Since(s.started),
	)
	return nil
}

// Stats returns capture statistics
func (s *GStreamerStream) Stats() types.StreamStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	frames := atomic.LoadUint64(&s.frameCount)
	stats := types.StreamStats{
		FrameCount:    frames,
		FramesDropped: atomic.LoadUint64(&s.framesDropped),
		FPSTarget:     s.cfg.TargetFPS,
		Source:        "gstreamer",
		Resolution:    fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		Reconnects:    s.restart.restarts.Load(),
		IsConnected:   s.elements != nil,
		Errors: map[string]uint64{
			ErrCategoryDevice.String():     atomic.LoadUint64(&s.errorsDevice),
			ErrCategoryFormat.String():     atomic.LoadUint64(&s.errorsFormat),
			ErrCategoryPermission.String(): atomic.LoadUint64(&s.errorsPermission),
			ErrCategoryUnknown.String():    atomic.LoadUint64(&s.errorsUnknown),
		},
	}
	if !s.started.IsZero() {
		if uptime := time.Since(s.started).Seconds(); uptime > 0 {
			stats.FPSReal = float64(frames) / uptime
		}
	}
	if last := s.lastFrameAt.Load(); last > 0 {
		stats.LatencyMS = time.Since(time.Unix(0, last)).Milliseconds()
	}
	return stats
}
