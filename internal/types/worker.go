package types

import (
	"context"
	"time"
)

// WorkerMetrics contains health metrics for the pose worker
type WorkerMetrics struct {
	FramesProcessed   uint64    `json:"frames_processed"`
	FramesFailed      uint64    `json:"frames_failed"`
	InferencesEmitted uint64    `json:"inferences_emitted"`
	PosesDetected     uint64    `json:"poses_detected"`
	AvgLatencyMS      float64   `json:"avg_latency_ms"`
	LastSeenAt        time.Time `json:"last_seen_at"`
}

// PoseResult is the pose worker's answer for one frame
type PoseResult struct {
	FrameSeq    uint64
	Landmarks   *LandmarkSet // nil when no person was found
	ProcessedAt time.Time
	LatencyMS   float64
}

// PoseEstimator locates body landmarks in a frame
type PoseEstimator interface {
	// ID returns the estimator's identifier
	ID() string
	// Start launches the estimator backend
	Start(ctx context.Context) error
	// Estimate blocks until the landmarks for frame are known
	Estimate(ctx context.Context, frame Frame) (*PoseResult, error)
	// Stop shuts the backend down
	Stop() error
	// Metrics returns current health metrics
	Metrics() WorkerMetrics
}
