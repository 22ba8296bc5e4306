package control

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/care/posturewatch/internal/config"
)

// Handler subscribes to the control topic and queues commands for the
// monitor loop. It never applies a command itself.
type Handler struct {
	client   mqtt.Client
	cfg      config.MQTTConfig
	commands chan Command

	mu     sync.Mutex
	closed bool
}

// NewHandler creates a control plane handler on an existing MQTT client
func NewHandler(client mqtt.Client, cfg config.MQTTConfig) *Handler {
	return &Handler{
		client:   client,
		cfg:      cfg,
		commands: make(chan Command, 10),
	}
}

// Start subscribes to the control topic
func (h *Handler) Start() error {
	topic := h.cfg.Topics.Control
	qos := h.cfg.QoS["control"]

	slog.Info("control: subscribing to control plane", "topic", topic, "qos", qos)

	token := h.client.Subscribe(topic, qos, h.messageHandler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("control: subscription timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("control: subscription failed: %w", err)
	}
	return nil
}

// Commands returns the queue the monitor loop drains
func (h *Handler) Commands() <-chan Command {
	return h.commands
}

func (h *Handler) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	h.Enqueue(msg.Payload())
}

// Enqueue parses a control payload and queues it. Malformed payloads are
// answered immediately; a full queue drops the command.
func (h *Handler) Enqueue(payload []byte) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		slog.Error("control: failed to parse command", "error", err)
		h.Respond(Response{
			CommandAck: "unknown",
			Status:     "error",
			Error:      "invalid JSON",
			Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		})
		return
	}
	cmd.Source = "mqtt"

	slog.Info("control: command received", "command", cmd.Command)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.commands <- cmd:
	default:
		slog.Warn("control: command queue full, dropping command", "command", cmd.Command)
	}
}

// Respond publishes a command response
func (h *Handler) Respond(resp Response) {
	if h.client == nil || !h.client.IsConnected() {
		slog.Debug("control: not connected, response dropped", "command_ack", resp.CommandAck)
		return
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		slog.Error("control: failed to marshal response", "error", err)
		return
	}

	token := h.client.Publish(h.cfg.Topics.Responses, h.cfg.QoS["responses"], false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		slog.Error("control: response publish timeout")
		return
	}
	if err := token.Error(); err != nil {
		slog.Error("control: failed to publish response", "error", err)
		return
	}

	slog.Debug("control: response sent", "command_ack", resp.CommandAck, "status", resp.Status)
}

// Stop unsubscribes and closes the command queue
func (h *Handler) Stop() error {
	if h.client != nil && h.client.IsConnected() {
		token := h.client.Unsubscribe(h.cfg.Topics.Control)
		token.WaitTimeout(2 * time.Second)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.commands)
	}

	slog.Info("control: handler stopped")
	return nil
}
