package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/care/posturewatch/internal/types"
)

const helperEnv = "POSTUREWATCH_HELPER_POSE_WORKER"

// TestHelperPoseWorker is not a real test. It is the pose worker subprocess
// used by the estimator tests: the frame width selects the answer.
func TestHelperPoseWorker(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}

	fmt.Fprintln(os.Stderr, "2026-01-01 [WARNING] helper worker ready")

	for {
		var req Request
		if err := ReadMessage(os.Stdin, &req); err != nil {
			if errors.Is(err, io.EOF) {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "[ERROR]", err)
			os.Exit(1)
		}

		resp := Response{FrameSeq: req.Meta.Seq, Timing: Timing{TotalMS: 1}}
		switch req.Width {
		case 1: // no person
		case 2:
			resp.Error = "model exploded"
		case 3:
			resp.Landmarks = make([]types.Landmark, 5)
		default:
			if req.Width == 4 {
				time.Sleep(200 * time.Millisecond)
			}
			resp.Landmarks = make([]types.Landmark, types.LandmarkCount)
			for i := range resp.Landmarks {
				resp.Landmarks[i] = types.Landmark{X: 0.5, Y: 0.25, Visibility: 1}
			}
		}

		if err := WriteMessage(os.Stdout, resp); err != nil {
			os.Exit(1)
		}
	}
}

func startHelperEstimator(t *testing.T, timeout time.Duration) *PythonPoseEstimator {
	t.Helper()

	w, err := NewPythonPoseEstimator(PythonPoseEstimatorConfig{
		WorkerID: "helper",
		Command:  os.Args[0],
		Args:     []string{"-test.run=^TestHelperPoseWorker$", "--"},
		Env:      []string{helperEnv + "=1"},
		Timeout:  timeout,
		Encoder: func(f types.Frame) ([]byte, error) {
			return []byte("jpeg"), nil
		},
	})
	if err != nil {
		t.Fatalf("NewPythonPoseEstimator() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func TestPythonPoseEstimator_Estimate(t *testing.T) {
	w := startHelperEstimator(t, 2*time.Second)
	ctx := context.Background()

	t.Run("pose detected", func(t *testing.T) {
		res, err := w.Estimate(ctx, types.Frame{Seq: 1, Width: 640, Height: 480, Timestamp: time.Now()})
		if err != nil {
			t.Fatalf("Estimate() error = %v", err)
		}
		if res == nil || res.Landmarks == nil {
			t.Fatal("expected landmarks")
		}
		if res.FrameSeq != 1 {
			t.Errorf("FrameSeq = %d, want 1", res.FrameSeq)
		}
		if got := res.Landmarks.Pixel(types.Nose); got != (types.Point{X: 320, Y: 120}) {
			t.Errorf("nose pixel = %+v, want {320 120}", got)
		}
	})

	t.Run("no person", func(t *testing.T) {
		res, err := w.Estimate(ctx, types.Frame{Seq: 2, Width: 1, Height: 1})
		if err != nil || res != nil {
			t.Errorf("expected nil result and nil error, got %v, %v", res, err)
		}
	})

	t.Run("model error", func(t *testing.T) {
		if _, err := w.Estimate(ctx, types.Frame{Seq: 3, Width: 2, Height: 1}); err == nil {
			t.Error("expected model error")
		}
	})

	t.Run("wrong landmark count", func(t *testing.T) {
		if _, err := w.Estimate(ctx, types.Frame{Seq: 4, Width: 3, Height: 1}); err == nil {
			t.Error("expected landmark count error")
		}
	})

	m := w.Metrics()
	if m.FramesProcessed != 4 {
		t.Errorf("FramesProcessed = %d, want 4", m.FramesProcessed)
	}
	if m.PosesDetected != 1 {
		t.Errorf("PosesDetected = %d, want 1", m.PosesDetected)
	}
	if m.FramesFailed != 2 {
		t.Errorf("FramesFailed = %d, want 2", m.FramesFailed)
	}
}

func TestPythonPoseEstimator_Timeout(t *testing.T) {
	w := startHelperEstimator(t, 100*time.Millisecond)

	if _, err := w.Estimate(context.Background(), types.Frame{Seq: 1, Width: 4, Height: 1}); err == nil {
		t.Fatal("expected timeout error")
	}

	// Let the late answer for frame 1 arrive; it must not be taken for frame 2's.
	time.Sleep(400 * time.Millisecond)

	res, err := w.Estimate(context.Background(), types.Frame{Seq: 2, Width: 640, Height: 480})
	if err != nil {
		t.Fatalf("Estimate() after timeout error = %v", err)
	}
	if res == nil || res.FrameSeq != 2 {
		t.Errorf("expected result for frame 2, got %+v", res)
	}
}

func TestPythonPoseEstimator_Lifecycle(t *testing.T) {
	if _, err := NewPythonPoseEstimator(PythonPoseEstimatorConfig{}); err == nil {
		t.Error("expected error for missing command")
	}

	w, err := NewPythonPoseEstimator(PythonPoseEstimatorConfig{Command: "true"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Estimate(context.Background(), types.Frame{}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning before Start, got %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}
}

func TestStderrLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"2026-01-01 [ERROR] boom":      slog.LevelError,
		"[CRITICAL] gone":              slog.LevelError,
		"[WARNING] slow frame":         slog.LevelWarn,
		"[INFO] model loaded":          slog.LevelDebug,
		"unformatted mediapipe output": slog.LevelDebug,
	}
	for line, want := range tests {
		if got := stderrLevel(line); got != want {
			t.Errorf("stderrLevel(%q) = %v, want %v", line, got, want)
		}
	}
}
