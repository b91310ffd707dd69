package hap

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hap/internal/infrastructure/mqtt"
)

// HealthPublisher is the MQTT surface the health reporter needs.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// StatsSource supplies the live counters included in health reports.
type StatsSource interface {
	Statistics() BridgeStatistics
	AccessoryCount() int
}

// HealthReporterConfig configures a HealthReporter.
type HealthReporterConfig struct {
	// BridgeID identifies this bridge in health messages ("hap").
	BridgeID string

	// Version is the bridge software version.
	Version string

	// Interval is how often to publish health status.
	// Defaults to 30 seconds.
	Interval time.Duration

	// Publisher is the MQTT client used to publish health messages.
	Publisher HealthPublisher

	// Source supplies counters for health reports. Optional.
	Source StatsSource

	// Logger receives health reporter log output. Optional.
	Logger Logger
}

// HealthReporter periodically publishes bridge health status to MQTT.
// Consumers (monitoring, the core's health aggregator) watch the health
// topic to detect a stalled or disconnected bridge.
type HealthReporter struct {
	bridgeID  string
	version   string
	startTime time.Time
	interval  time.Duration

	publisher HealthPublisher
	source    StatsSource

	logger   Logger
	loggerMu sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewHealthReporter creates a health reporter.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HealthReporter{
		bridgeID:  cfg.BridgeID,
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		source:    cfg.Source,
		logger:    cfg.Logger,
	}
}

// SetLogger sets the logger for health reporter events.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	defer h.loggerMu.Unlock()
	h.logger = logger
}

// Start begins periodic health reporting. It returns immediately; the
// reporting loop runs until Stop is called or ctx is cancelled.
func (h *HealthReporter) Start(ctx context.Context) {
	h.done = make(chan struct{})
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop halts health reporting and publishes a final stopping status.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		if err := h.publishStatus(HealthStopping, "shutdown requested"); err != nil {
			h.logError("failed to publish stopping status", err)
		}
		if h.done != nil {
			close(h.done)
		}
		h.wg.Wait()
	})
}

// PublishStarting publishes a starting status. Call before the bridge
// begins accepting traffic so monitors see the transition.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "")
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

// LWTTopic returns the topic for the Last Will and Testament message.
func LWTTopic() string {
	return mqtt.Topics{}.BridgeHealth()
}

// LWTPayload returns the payload the broker publishes if the bridge
// disconnects without a clean shutdown. Register it with the MQTT
// client before connecting; the bridge cannot publish it itself.
func LWTPayload() ([]byte, error) {
	msg := NewLWTMessage(mqtt.ProtocolName)
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal lwt message: %w", err)
	}
	return payload, nil
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			status, reason := h.determineStatus()
			if err := h.publishStatus(status, reason); err != nil {
				h.logError("failed to publish health status", err)
			}
		}
	}
}

// determineStatus derives the current health from the MQTT connection.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "mqtt disconnected"
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	var stats BridgeStatistics
	accessories := 0
	if h.source != nil {
		stats = h.source.Statistics()
		accessories = h.source.AccessoryCount()
	}

	msg := NewHealthMessage(h.bridgeID, h.version, status, stats, accessories, h.startTime)
	if reason != "" {
		msg.Reason = reason
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal health message: %w", err)
	}

	if err := h.publisher.Publish(mqtt.Topics{}.BridgeHealth(), payload, 1, true); err != nil {
		return fmt.Errorf("publish health message: %w", err)
	}

	h.logDebug("health status published", "status", string(status), "accessories", accessories)
	return nil
}

func (h *HealthReporter) logDebug(msg string, keysAndValues ...any) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
