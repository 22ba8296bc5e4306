// Package worker bridges the monitor to the pose-estimation subprocess.
//
// The subprocess reads length-prefixed msgpack requests on stdin and answers
// each with one length-prefixed msgpack response on stdout. Its stderr is
// forwarded to slog with the level taken from the line's [LEVEL] tag.
package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/care/posturewatch/internal/types"
)

// ErrNotRunning is returned by Estimate before Start or after Stop
var ErrNotRunning = errors.New("worker: pose estimator not running")

// PythonPoseEstimatorConfig configures the pose worker subprocess
type PythonPoseEstimatorConfig struct {
	WorkerID               string
	Command                string
	Args                   []string
	Env                    []string // appended to the current environment
	MinDetectionConfidence float64
	MinTrackingConfidence  float64
	Timeout                time.Duration
	Encoder                FrameEncoder // defaults to JPEG at quality 90
}

// PythonPoseEstimator implements types.PoseEstimator with a MediaPipe worker.
// Estimate calls are serialized; responses for timed-out requests are
// discarded by sequence number.
type PythonPoseEstimator struct {
	cfg PythonPoseEstimatorConfig

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	responses chan Response
	exited    chan struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	isActive atomic.Bool
	estimate sync.Mutex

	frameCount     uint64
	failedCount    uint64
	inferenceCount uint64
	poseCount      uint64
	totalLatencyUS uint64
	lastSeenAt     atomic.Value // time.Time
}

// NewPythonPoseEstimator validates the configuration
func NewPythonPoseEstimator(cfg PythonPoseEstimatorConfig) (*PythonPoseEstimator, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("worker: command is required")
	}
	if cfg.WorkerID == "" {
		cfg.WorkerID = "pose-mediapipe"
	}
	if cfg.MinDetectionConfidence <= 0 {
		cfg.MinDetectionConfidence = 0.5
	}
	if cfg.MinTrackingConfidence <= 0 {
		cfg.MinTrackingConfidence = 0.5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Encoder == nil {
		cfg.Encoder = JPEGEncoder(90)
	}

	slog.Info("worker: pose estimator created",
		"worker_id", cfg.WorkerID,
		"command", cfg.Command,
		"min_detection_confidence", cfg.MinDetectionConfidence,
		"min_tracking_confidence", cfg.MinTrackingConfidence,
		"timeout", cfg.Timeout,
	)

	return &PythonPoseEstimator{cfg: cfg}, nil
}

// ID returns the worker ID
func (w *PythonPoseEstimator) ID() string {
	return w.cfg.WorkerID
}

// Start spawns the worker subprocess
func (w *PythonPoseEstimator) Start(ctx context.Context) error {
	if w.isActive.Load() {
		return fmt.Errorf("worker: already started")
	}

	w.responses = make(chan Response, 1)
	w.exited = make(chan struct{})
	w.ctx, w.cancel = context.WithCancel(ctx)

	if err := w.spawn(); err != nil {
		w.cancel()
		return fmt.Errorf("worker: failed to spawn pose process: %w", err)
	}

	w.isActive.Store(true)
	w.lastSeenAt.Store(time.Now())

	return nil
}

func (w *PythonPoseEstimator) spawn() error {
	args := append(append([]string{}, w.cfg.Args...),
		"--min-detection-confidence", fmt.Sprintf("%.2f", w.cfg.MinDetectionConfidence),
		"--min-tracking-confidence", fmt.Sprintf("%.2f", w.cfg.MinTrackingConfidence),
	)

	w.cmd = exec.CommandContext(w.ctx, w.cfg.Command, args...)
	if len(w.cfg.Env) > 0 {
		w.cmd.Env = append(os.Environ(), w.cfg.Env...)
	}

	var err error
	if w.stdin, err = w.cmd.StdinPipe(); err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	if w.stdout, err = w.cmd.StdoutPipe(); err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if w.stderr, err = w.cmd.StderrPipe(); err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := w.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}

	slog.Info("worker: pose process spawned",
		"worker_id", w.cfg.WorkerID,
		"pid", w.cmd.Process.Pid,
	)

	w.wg.Add(3)
	go w.readResponses()
	go w.logStderr()
	go w.waitProcess()

	return nil
}

// Estimate sends one frame and waits for its landmarks.
// A frame without a detected person yields a nil result and a nil error.
func (w *PythonPoseEstimator) Estimate(ctx context.Context, frame types.Frame) (*types.PoseResult, error) {
	if !w.isActive.Load() {
		return nil, ErrNotRunning
	}

	w.estimate.Lock()
	defer w.estimate.Unlock()

	atomic.AddUint64(&w.frameCount, 1)
	started := time.Now()

	resp, err := w.roundTrip(ctx, frame)
	if err != nil {
		atomic.AddUint64(&w.failedCount, 1)
		return nil, err
	}

	atomic.AddUint64(&w.inferenceCount, 1)
	w.lastSeenAt.Store(time.Now())
	latency := time.Since(started)
	atomic.AddUint64(&w.totalLatencyUS, uint64(latency.Microseconds()))

	if resp.Error != "" {
		atomic.AddUint64(&w.failedCount, 1)
		return nil, fmt.Errorf("worker: pose model error on frame %d: %s", frame.Seq, resp.Error)
	}
	if len(resp.Landmarks) == 0 {
		return nil, nil
	}
	if len(resp.Landmarks) != types.LandmarkCount {
		atomic.AddUint64(&w.failedCount, 1)
		return nil, fmt.Errorf("worker: expected %d landmarks, got %d", types.LandmarkCount, len(resp.Landmarks))
	}

	atomic.AddUint64(&w.poseCount, 1)

	set := &types.LandmarkSet{
		Points:      resp.Landmarks,
		FrameWidth:  frame.Width,
		FrameHeight: frame.Height,
	}

	return &types.PoseResult{
		FrameSeq:    frame.Seq,
		Landmarks:   set,
		ProcessedAt: time.Now(),
		LatencyMS:   float64(latency.Microseconds()) / 1000.0,
	}, nil
}

func (w *PythonPoseEstimator) roundTrip(ctx context.Context, frame types.Frame) (Response, error) {
	image, err := w.cfg.Encoder(frame)
	if err != nil {
		return Response{}, err
	}

	req := Request{
		FrameData: image,
		Width:     frame.Width,
		Height:    frame.Height,
		Meta: RequestMeta{
			Seq:       frame.Seq,
			Timestamp: frame.Timestamp.Format(time.RFC3339Nano),
			TraceID:   frame.TraceID,
		},
	}

	timer := time.NewTimer(w.cfg.Timeout)
	defer timer.Stop()

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- WriteMessage(w.stdin, req)
	}()

	select {
	case err := <-writeErr:
		if err != nil {
			return Response{}, err
		}
	case <-timer.C:
		return Response{}, fmt.Errorf("worker: stdin write timeout (pose worker may be hung)")
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-w.exited:
		return Response{}, fmt.Errorf("worker: pose process exited")
	}

	for {
		select {
		case resp := <-w.responses:
			if resp.FrameSeq != frame.Seq {
				slog.Debug("worker: discarding stale response",
					"worker_id", w.cfg.WorkerID,
					"response_seq", resp.FrameSeq,
					"frame_seq", frame.Seq,
				)
				continue
			}
			return resp, nil
		case <-timer.C:
			return Response{}, fmt.Errorf("worker: no response for frame %d within %s", frame.Seq, w.cfg.Timeout)
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-w.exited:
			return Response{}, fmt.Errorf("worker: pose process exited")
		}
	}
}

// readResponses forwards decoded responses. A response nobody waits for
// replaces the one in the buffer.
func (w *PythonPoseEstimator) readResponses() {
	defer w.wg.Done()

	for {
		var resp Response
		if err := ReadMessage(w.stdout, &resp); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) || !w.isActive.Load() {
				slog.Debug("worker: pose stdout closed", "worker_id", w.cfg.WorkerID)
				return
			}
			slog.Error("worker: failed to read response",
				"worker_id", w.cfg.WorkerID,
				"error", err,
				"action", "check pose worker logs in stderr",
			)
			return
		}

		select {
		case w.responses <- resp:
		default:
			select {
			case <-w.responses:
			default:
			}
			w.responses <- resp
		}
	}
}

// logStderr maps the worker's "[LEVEL]" log lines onto slog levels
func (w *PythonPoseEstimator) logStderr() {
	defer w.wg.Done()

	scanner := bufio.NewScanner(w.stderr)
	for scanner.Scan() {
		line := scanner.Text()
		switch stderrLevel(line) {
		case slog.LevelError:
			slog.Error("worker: pose worker error", "worker_id", w.cfg.WorkerID, "log", line)
		case slog.LevelWarn:
			slog.Warn("worker: pose worker warning", "worker_id", w.cfg.WorkerID, "log", line)
		default:
			slog.Debug("worker: pose worker log", "worker_id", w.cfg.WorkerID, "log", line)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) && w.isActive.Load() {
		slog.Error("worker: error reading stderr", "worker_id", w.cfg.WorkerID, "error", err)
	}
}

func stderrLevel(line string) slog.Level {
	switch {
	case strings.Contains(line, "[ERROR]"), strings.Contains(line, "[CRITICAL]"):
		return slog.LevelError
	case strings.Contains(line, "[WARNING]"), strings.Contains(line, "[WARN]"):
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}

// waitProcess reaps the subprocess and unblocks pending estimates
func (w *PythonPoseEstimator) waitProcess() {
	defer w.wg.Done()
	defer close(w.exited)

	err := w.cmd.Wait()
	pid := w.cmd.Process.Pid

	switch {
	case err == nil:
		slog.Info("worker: pose process exited cleanly", "worker_id", w.cfg.WorkerID, "pid", pid)
	case w.ctx.Err() != nil:
		slog.Debug("worker: pose process exited (shutdown)", "worker_id", w.cfg.WorkerID, "pid", pid)
	default:
		slog.Error("worker: pose process exited unexpectedly",
			"worker_id", w.cfg.WorkerID,
			"pid", pid,
			"error", err,
		)
	}
	w.isActive.Store(false)
}

// Alive reports whether the subprocess is still running
func (w *PythonPoseEstimator) Alive() bool {
	return w.isActive.Load()
}

// Metrics returns current worker health metrics
func (w *PythonPoseEstimator) Metrics() types.WorkerMetrics {
	inferences := atomic.LoadUint64(&w.inferenceCount)

	var avgLatencyMS float64
	if inferences > 0 {
		avgLatencyMS = float64(atomic.LoadUint64(&w.totalLatencyUS)) / float64(inferences) / 1000.0
	}

	var lastSeen time.Time
	if val := w.lastSeenAt.Load(); val != nil {
		lastSeen = val.(time.Time)
	}

	return types.WorkerMetrics{
		FramesProcessed:   atomic.LoadUint64(&w.frameCount),
		FramesFailed:      atomic.LoadUint64(&w.failedCount),
		InferencesEmitted: inferences,
		PosesDetected:     atomic.LoadUint64(&w.poseCount),
		AvgLatencyMS:      avgLatencyMS,
		LastSeenAt:        lastSeen,
	}
}

// Stop closes stdin so the worker exits on its own, and kills it if it has
// not exited within two seconds. Idempotent.
func (w *PythonPoseEstimator) Stop() error {
	if w.cancel == nil {
		return nil
	}
	w.isActive.Store(false)

	slog.Info("worker: stopping pose estimator", "worker_id", w.cfg.WorkerID)

	if w.stdin != nil {
		w.stdin.Close()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		slog.Warn("worker: stop timeout, killing pose process", "worker_id", w.cfg.WorkerID)
		w.cancel()
		<-done
	}
	w.cancel()
	w.cancel = nil

	slog.Info("worker: pose estimator stopped",
		"worker_id", w.cfg.WorkerID,
		"frames_processed", atomic.LoadUint64(&w.frameCount),
		"poses", atomic.LoadUint64(&w.poseCount),
	)
	return nil
}
