// Package emitter publishes monitor events to MQTT.
package emitter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/care/posturewatch/internal/config"
)

// Publisher delivers events
type Publisher interface {
	Publish(event Event) error
	Stats() Stats
	Disconnect() error
}

// Stats contains emitter statistics
type Stats struct {
	Connected bool              `json:"connected"`
	Published map[string]uint64 `json:"published"`
	Errors    uint64            `json:"errors"`
}

// MQTTEmitter publishes events to an MQTT broker
type MQTTEmitter struct {
	cfg        config.MQTTConfig
	instanceID string
	Client     mqtt.Client // shared with the control plane

	mu        sync.RWMutex
	published map[string]uint64
	errors    uint64
	connected bool
}

// NewMQTTEmitter creates an unconnected emitter
func NewMQTTEmitter(cfg config.MQTTConfig, instanceID string) *MQTTEmitter {
	return &MQTTEmitter{
		cfg:        cfg,
		instanceID: instanceID,
		published:  make(map[string]uint64),
	}
}

// Connect establishes the broker connection with automatic reconnect
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.cfg.Broker))
	opts.SetClientID("posturewatch-" + e.instanceID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		slog.Info("emitter: mqtt connection established", "broker", e.cfg.Broker)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		slog.Warn("emitter: mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", e.cfg.Broker,
		)
	}

	e.Client = mqtt.NewClient(opts)

	slog.Info("emitter: connecting to mqtt broker", "broker", e.cfg.Broker)

	token := e.Client.Connect()
	select {
	case <-token.Done():
	case <-time.After(5 * time.Second):
		return fmt.Errorf("emitter: mqtt connection timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("emitter: mqtt connection failed: %w", err)
	}

	e.setConnected(true)
	return nil
}

// Publish sends event to <events topic>/<event type>
func (e *MQTTEmitter) Publish(event Event) error {
	if !e.isConnected() {
		e.countError()
		return fmt.Errorf("emitter: mqtt not connected")
	}

	topic := e.topicFor(event.Type)
	qos := e.qosFor(event.Type)

	payload, err := event.ToJSON()
	if err != nil {
		e.countError()
		return fmt.Errorf("emitter: failed to marshal event: %w", err)
	}

	token := e.Client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.countError()
		return fmt.Errorf("emitter: publish timeout")
	}
	if err := token.Error(); err != nil {
		e.countError()
		return fmt.Errorf("emitter: publish failed: %w", err)
	}

	e.mu.Lock()
	e.published[event.Type]++
	e.mu.Unlock()

	slog.Debug("emitter: event published", "topic", topic, "qos", qos, "size", len(payload))
	return nil
}

// Disconnect closes the MQTT connection
func (e *MQTTEmitter) Disconnect() error {
	// also stops a connect retry still in progress
	if e.Client != nil {
		e.Client.Disconnect(250)
		slog.Info("emitter: mqtt disconnected")
	}
	e.setConnected(false)
	return nil
}

// Stats returns emitter statistics
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}
	return Stats{Connected: e.connected, Published: published, Errors: e.errors}
}

func (e *MQTTEmitter) topicFor(eventType string) string {
	return e.cfg.Topics.Events + "/" + eventType
}

func (e *MQTTEmitter) qosFor(eventType string) byte {
	if qos, ok := e.cfg.QoS[eventType]; ok {
		return qos
	}
	return e.cfg.QoS["events"]
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}

// NopEmitter logs events at debug level; used without a broker
type NopEmitter struct {
	mu        sync.Mutex
	published map[string]uint64
}

// Publish records the event type and returns nil
func (n *NopEmitter) Publish(event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.published == nil {
		n.published = make(map[string]uint64)
	}
	n.published[event.Type]++
	slog.Debug("emitter: event (mqtt disabled)", "type", event.Type)
	return nil
}

// Stats returns counts of events seen
func (n *NopEmitter) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	published := make(map[string]uint64, len(n.published))
	for k, v := range n.published {
		published[k] = v
	}
	return Stats{Published: published}
}

// Disconnect is a no-op
func (n *NopEmitter) Disconnect() error { return nil }
