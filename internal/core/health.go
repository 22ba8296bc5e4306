package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/care/posturewatch/internal/types"
)

// HealthStatus represents the health state of the monitor
type HealthStatus struct {
	Status        string              `json:"status"` // "healthy", "degraded", "unhealthy"
	UptimeSeconds int64               `json:"uptime_seconds"`
	CameraUp      bool                `json:"camera_up"`
	WorkerUp      bool                `json:"worker_up"`
	MQTTConnected bool                `json:"mqtt_connected"`
	MQTTEnabled   bool                `json:"mqtt_enabled"`
	Calibrated    bool                `json:"calibrated"`
	Stream        types.StreamStats   `json:"stream"`
	Worker        types.WorkerMetrics `json:"worker"`
	EventErrors   uint64              `json:"event_errors"`
}

type aliveChecker interface {
	Alive() bool
}

// HealthCheck returns the current health status. Safe from any goroutine.
func (m *Monitor) HealthCheck() HealthStatus {
	running := m.running.Load()
	status := HealthStatus{
		Status:      "healthy",
		Calibrated:  m.calibrated.Load(),
		MQTTEnabled: m.cfg.MQTT.Enabled(),
		Stream:      m.source.Stats(),
		Worker:      m.estimator.Metrics(),
	}
	if running {
		status.UptimeSeconds = int64(time.Since(time.Unix(0, m.startedAt.Load())).Seconds())
	}

	status.CameraUp = running && status.Stream.IsConnected
	status.WorkerUp = running
	if a, ok := m.estimator.(aliveChecker); ok {
		status.WorkerUp = running && a.Alive()
	}

	events := m.publisher.Stats()
	status.MQTTConnected = events.Connected
	status.EventErrors = events.Errors

	switch {
	case !running:
		status.Status = "unhealthy"
	case !status.CameraUp || !status.WorkerUp:
		status.Status = "degraded"
	case status.MQTTEnabled && !status.MQTTConnected:
		status.Status = "degraded"
	}
	return status
}

// LivenessHandler handles /health: 200 whenever the process can answer
func (m *Monitor) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     "alive",
		"session_id": m.events.SessionID,
	})
}

// ReadinessHandler handles /readiness: 503 only when the loop is not running
func (m *Monitor) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := m.HealthCheck()
	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}

// StartHealthServer serves the health endpoints on addr in the background.
// The server shuts down when ctx is cancelled.
func (m *Monitor) StartHealthServer(ctx context.Context, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", m.LivenessHandler)
	mux.HandleFunc("/readiness", m.ReadinessHandler)

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("core: starting health check server",
		"addr", addr,
		"endpoints", []string{"/health", "/readiness"},
	)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("core: health check server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	return server
}
