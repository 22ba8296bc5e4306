package stream

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/care/posturewatch/internal/types"
)

const (
	// A stream is stable when the FPS standard deviation stays under 15% of
	// the mean and the mean jitter under 20% of the expected interval.
	fpsStabilityThreshold    = 0.15
	jitterStabilityThreshold = 0.20
)

// WarmupStats describes frame cadence measured before monitoring starts
type WarmupStats struct {
	FramesReceived int           `json:"frames_received"`
	Duration       time.Duration `json:"duration"`
	FPSMean        float64       `json:"fps_mean"`
	FPSStdDev      float64       `json:"fps_stddev"`
	FPSMin         float64       `json:"fps_min"`
	FPSMax         float64       `json:"fps_max"`
	IsStable       bool          `json:"is_stable"`
	JitterMean     float64       `json:"jitter_mean"` // seconds
	JitterStdDev   float64       `json:"jitter_stddev"`
	JitterMax      float64       `json:"jitter_max"`
}

// CalculateFPSStats derives cadence statistics from frame arrival times
func CalculateFPSStats(frameTimes []time.Time, totalDuration time.Duration) *WarmupStats {
	n := len(frameTimes)
	stats := &WarmupStats{FramesReceived: n, Duration: totalDuration}
	if n == 0 || totalDuration <= 0 {
		return stats
	}

	stats.FPSMean = float64(n) / totalDuration.Seconds()

	instantaneous := make([]float64, 0, n-1)
	intervals := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		interval := frameTimes[i].Sub(frameTimes[i-1]).Seconds()
		intervals = append(intervals, interval)
		if interval > 0 {
			instantaneous = append(instantaneous, 1.0/interval)
		}
	}
	if len(instantaneous) == 0 {
		return stats
	}

	stats.FPSMin = floats.Min(instantaneous)
	stats.FPSMax = floats.Max(instantaneous)

	// Spread is measured around the overall rate, not the mean of the
	// instantaneous rates, so one long stall dominates as it should.
	var sumSquares float64
	for _, fps := range instantaneous {
		diff := fps - stats.FPSMean
		sumSquares += diff * diff
	}
	stats.FPSStdDev = math.Sqrt(sumSquares / float64(len(instantaneous)))

	expected := 1.0 / stats.FPSMean
	jitters := make([]float64, len(intervals))
	for i, interval := range intervals {
		jitters[i] = math.Abs(interval - expected)
	}
	if len(jitters) > 1 {
		stats.JitterMean, stats.JitterStdDev = stat.MeanStdDev(jitters, nil)
	} else {
		stats.JitterMean = jitters[0]
	}
	stats.JitterMax = floats.Max(jitters)

	stats.IsStable = stats.FPSStdDev < stats.FPSMean*fpsStabilityThreshold &&
		stats.JitterMean < expected*jitterStabilityThreshold

	return stats
}

// Warmup consumes frames for duration and measures their cadence.
// An unstable stream is reported but not rejected: webcams often vary their
// rate with exposure. Fewer than two frames is an error.
func Warmup(ctx context.Context, frames <-chan types.Frame, duration time.Duration) (*WarmupStats, error) {
	slog.Info("stream: starting warm-up", "duration", duration)

	start := time.Now()
	frameTimes := make([]time.Time, 0, 128)

	warmupCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

loop:
	for {
		select {
		case <-warmupCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			break loop
		case frame, ok := <-frames:
			if !ok {
				return nil, fmt.Errorf("stream: closed during warm-up")
			}
			frameTimes = append(frameTimes, frame.Timestamp)
		}
	}

	if len(frameTimes) < 2 {
		return nil, fmt.Errorf("stream: not enough frames during warm-up (got %d, need at least 2)", len(frameTimes))
	}

	stats := CalculateFPSStats(frameTimes, time.Since(start))

	logFn := slog.Info
	if !stats.IsStable {
		logFn = slog.Warn
	}
	logFn("stream: warm-up complete",
		"frames", stats.FramesReceived,
		"fps_mean", fmt.Sprintf("%.2f", stats.FPSMean),
		"fps_stddev", fmt.Sprintf("%.2f", stats.FPSStdDev),
		"fps_range", fmt.Sprintf("%.1f-%.1f", stats.FPSMin, stats.FPSMax),
		"jitter_mean", fmt.Sprintf("%.3fs", stats.JitterMean),
		"stable", stats.IsStable,
	)

	return stats, nil
}
