package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// ReconnectConfig bounds how a failed capture pipeline is rebuilt
type ReconnectConfig struct {
	MaxRetries    int           // consecutive failures tolerated before giving up
	RetryDelay    time.Duration // first delay, doubled per failure
	MaxRetryDelay time.Duration
}

// DefaultReconnectConfig returns default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:    5,
		RetryDelay:    1 * time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

// withDefaults fills unset fields from DefaultReconnectConfig
func (c ReconnectConfig) withDefaults() ReconnectConfig {
	d := DefaultReconnectConfig()
	if c.MaxRetries > 0 {
		d.MaxRetries = c.MaxRetries
	}
	if c.RetryDelay > 0 {
		d.RetryDelay = c.RetryDelay
	}
	if c.MaxRetryDelay > 0 {
		d.MaxRetryDelay = c.MaxRetryDelay
	}
	return d
}

// backoff is RetryDelay * 2^(failure-1), capped at MaxRetryDelay
func (c ReconnectConfig) backoff(failure int) time.Duration {
	if failure < 1 {
		failure = 1
	}
	delay := c.RetryDelay * time.Duration(1<<uint(failure-1))
	if delay > c.MaxRetryDelay || delay <= 0 {
		delay = c.MaxRetryDelay
	}
	return delay
}

// captureSession runs one pipeline until it fails (non-nil error) or the
// context is cancelled (nil).
type captureSession func(ctx context.Context) error

// restarter reruns a capture session for one device. failures is only
// touched from the capture goroutine; restarts is read by Stats.
type restarter struct {
	cfg      ReconnectConfig
	log      *slog.Logger
	device   string
	failures int
	restarts atomic.Uint32
}

// newRestarter tags every log line with the device and the negotiated caps
func newRestarter(cfg ReconnectConfig, device, caps string) *restarter {
	return &restarter{
		cfg:    cfg.withDefaults(),
		device: device,
		log:    slog.With("device", device, "pipeline", "v4l2src", "caps", caps),
	}
}

// run returns nil once a session ends cleanly, ctx.Err() on cancellation,
// and an error wrapping the last session failure when the budget is spent.
func (r *restarter) run(ctx context.Context, session captureSession) error {
	for {
		if err := ctx.Err(); err != nil {
			r.log.Info("stream: capture cancelled before session start")
			return err
		}

		err := session(ctx)
		if err == nil {
			r.failures = 0
			return nil
		}

		r.failures++
		r.restarts.Add(1)
		r.log.Error("stream: capture session failed",
			"error", err,
			"consecutive_failures", r.failures,
		)

		if r.failures > r.cfg.MaxRetries {
			return fmt.Errorf("stream: %s: giving up after %d consecutive failures: %w",
				r.device, r.failures, err)
		}

		delay := r.cfg.backoff(r.failures)
		r.log.Warn("stream: rebuilding pipeline",
			"attempt", r.failures,
			"max_retries", r.cfg.MaxRetries,
			"delay", delay,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			r.log.Info("stream: capture cancelled during backoff")
			return ctx.Err()
		}
	}
}

// healthy clears the consecutive failure count once a pipeline reaches PLAYING
func (r *restarter) healthy() {
	if r.failures > 0 {
		r.log.Debug("stream: pipeline recovered", "after_failures", r.failures)
	}
	r.failures = 0
}
