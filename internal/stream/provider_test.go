package stream

import (
	"context"
	"testing"
	"time"

	"github.com/care/posturewatch/internal/config"
)

func TestNew_SelectsSource(t *testing.T) {
	p, err := New(config.CameraConfig{Source: "mock", Width: 64, Height: 48, FPS: 10})
	if err != nil {
		t.Fatalf("New(mock) error = %v", err)
	}
	if _, ok := p.(*MockStream); !ok {
		t.Errorf("expected *MockStream, got %T", p)
	}

	if _, err := New(config.CameraConfig{Source: "rtsp"}); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestNewGStreamerStream_FailFast(t *testing.T) {
	tests := []struct {
		name string
		cfg  GStreamerConfig
	}{
		{"empty device", GStreamerConfig{Width: 640, Height: 480, TargetFPS: 20}},
		{"bad resolution", GStreamerConfig{Device: "/dev/video0", Width: 0, Height: 480, TargetFPS: 20}},
		{"fps too high", GStreamerConfig{Device: "/dev/video0", Width: 640, Height: 480, TargetFPS: 120}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGStreamerStream(tt.cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNewWebcamStream_FailFast(t *testing.T) {
	if _, err := NewWebcamStream(WebcamConfig{Device: -1, FPS: 20}); err == nil {
		t.Error("expected error for negative device")
	}
	if _, err := NewWebcamStream(WebcamConfig{Device: 0, FPS: 0}); err == nil {
		t.Error("expected error for zero FPS")
	}
}

func TestBuildFramerateCaps(t *testing.T) {
	tests := []struct {
		fps  float64
		want string
	}{
		{20, "video/x-raw,format=BGR,width=640,height=480,framerate=20/1"},
		{0.5, "video/x-raw,format=BGR,width=640,height=480,framerate=1/2"},
	}
	for _, tt := range tests {
		if got := buildFramerateCaps(640, 480, tt.fps); got != tt.want {
			t.Errorf("buildFramerateCaps(%.1f) = %q, want %q", tt.fps, got, tt.want)
		}
	}
}

func TestMockStream(t *testing.T) {
	m := NewMockStream(32, 24, 200)

	frames, err := m.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := m.Start(context.Background()); err == nil {
		t.Error("expected error on second Start")
	}

	var last uint64
	for i := 0; i < 3; i++ {
		select {
		case f := <-frames:
			if f.Seq <= last {
				t.Errorf("sequence not increasing: %d after %d", f.Seq, last)
			}
			last = f.Seq
			if len(f.Data) != f.Size() {
				t.Errorf("frame data %d bytes, want %d", len(f.Data), f.Size())
			}
			if f.Source != "mock" || f.TraceID == "" {
				t.Errorf("unexpected frame metadata: source=%q trace=%q", f.Source, f.TraceID)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for mock frame")
		}
	}

	if !m.Stats().IsConnected {
		t.Error("expected running mock to report connected")
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	for range frames {
	}
	if m.Stats().IsConnected {
		t.Error("expected stopped mock to report disconnected")
	}
}
