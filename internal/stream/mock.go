package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/care/posturewatch/internal/types"
)

// MockStream generates synthetic frames at a fixed rate
type MockStream struct {
	width  int
	height int
	fps    float64

	frames       chan types.Frame
	framesClosed atomic.Bool

	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time

	seq           uint64
	framesDropped uint64
}

// NewMockStream creates a mock provider; non-positive fps defaults to 20
func NewMockStream(width, height int, fps float64) *MockStream {
	if fps <= 0 {
		fps = 20
	}
	return &MockStream{
		width:  width,
		height: height,
		fps:    fps,
		frames: make(chan types.Frame, frameBuffer),
	}
}

// Start begins generating frames
func (m *MockStream) Start(ctx context.Context) (<-chan types.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return nil, fmt.Errorf("stream: mock already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.startTime = time.Now()

	slog.Info("stream: mock starting", "width", m.width, "height", m.height, "fps", m.fps)

	m.wg.Add(1)
	go m.generate(runCtx)

	return m.frames, nil
}

func (m *MockStream) generate(ctx context.Context) {
	defer m.wg.Done()
	defer func() {
		if m.framesClosed.CompareAndSwap(false, true) {
			close(m.frames)
		}
	}()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / m.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			frame := m.createFrame(now)
			select {
			case m.frames <- frame:
			case <-ctx.Done():
				return
			default:
				atomic.AddUint64(&m.framesDropped, 1)
			}
		}
	}
}

// createFrame renders a mid-grey frame with a moving bright column so
// consecutive frames differ.
func (m *MockStream) createFrame(now time.Time) types.Frame {
	seq := atomic.AddUint64(&m.seq, 1)

	data := make([]byte, m.width*m.height*3)
	for i := range data {
		data[i] = 128
	}
	if m.width > 0 {
		col := int(seq % uint64(m.width))
		for y := 0; y < m.height; y++ {
			off := (y*m.width + col) * 3
			data[off], data[off+1], data[off+2] = 255, 255, 255
		}
	}

	return types.Frame{
		Seq:       seq,
		Timestamp: now,
		Width:     m.width,
		Height:    m.height,
		Data:      data,
		Source:    "mock",
		TraceID:   uuid.New().String(),
	}
}

// Stop halts generation and closes the frame channel. Idempotent.
func (m *MockStream) Stop() error {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	m.wg.Wait()

	slog.Info("stream: mock stopped",
		"frames_emitted", atomic.LoadUint64(&m.seq),
		"duration", time.Since(m.startTime),
	)
	return nil
}

// Stats returns generation statistics
func (m *MockStream) Stats() types.StreamStats {
	m.mu.Lock()
	running := m.cancel != nil
	started := m.startTime
	m.mu.Unlock()

	frames := atomic.LoadUint64(&m.seq)
	var fpsReal float64
	if running && frames > 0 {
		if elapsed := time.Since(started).Seconds(); elapsed > 0 {
			fpsReal = float64(frames) / elapsed
		}
	}

	return types.StreamStats{
		FrameCount:    frames,
		FramesDropped: atomic.LoadUint64(&m.framesDropped),
		FPSTarget:     m.fps,
		FPSReal:       fpsReal,
		Source:        "mock",
		Resolution:    fmt.Sprintf("%dx%d", m.width, m.height),
		IsConnected:   running,
	}
}
