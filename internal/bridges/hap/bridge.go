package hap

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hap/internal/accessory"
	"github.com/nerrad567/gray-logic-hap/internal/heatercooler"
	"github.com/nerrad567/gray-logic-hap/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hap/internal/registry"
)

const (
	// commandSource identifies this service in outgoing command messages.
	commandSource = "hap"

	// defaultHealthInterval is how often health status is published when
	// the options leave it unset.
	defaultHealthInterval = 30 * time.Second

	// eventBufferSize is the queue between characteristic observers and
	// the event dispatcher. Observers never block: when the queue is full
	// the event is dropped and counted.
	eventBufferSize = 256

	// defaultSubscriberBuffer is the per-subscriber queue used when
	// SubscribeEvents is called with a non-positive buffer.
	defaultSubscriberBuffer = 16
)

// Logger matches the logging methods the bridge uses. The service's
// structured logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the MQTT surface the bridge requires. The infrastructure
// client is adapted to it in main; tests substitute a mock.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected reports whether the client is connected to the broker.
	IsConnected() bool
}

// DeviceSource supplies device definitions and holds the in-memory state
// mirror. *registry.Registry satisfies it.
type DeviceSource interface {
	// RefreshCache reloads the device cache from storage.
	RefreshCache(ctx context.Context) error

	// ClimateDevices lists the cached devices in the climate domain.
	ClimateDevices(ctx context.Context) ([]registry.Device, error)

	// ApplyState merges a state patch into a cached device and returns
	// the updated copy.
	ApplyState(id string, patch registry.State) (*registry.Device, error)
}

// TelemetryWriter records sync metrics and bridge counters. The InfluxDB
// client satisfies it; a nil writer disables telemetry.
type TelemetryWriter interface {
	WriteSyncMetric(deviceID, metric string, value float64)
	WriteBridgeCounters(fields map[string]any)
}

// sinkFunc adapts a function to the engine's command sink.
type sinkFunc func(cmd heatercooler.Command)

func (f sinkFunc) Apply(cmd heatercooler.Command) { f(cmd) }

// boundAccessory ties one accessory to the engine that synchronises it.
type boundAccessory struct {
	accessory *accessory.Accessory
	engine    *heatercooler.Engine
	unit      heatercooler.Unit
}

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	// MQTTClient carries state subscriptions, device commands and
	// health reports. Required.
	MQTTClient MQTTClient

	// Devices supplies device definitions and state. Required.
	Devices DeviceSource

	// Telemetry receives sync metrics and counters. Optional.
	Telemetry TelemetryWriter

	// Logger receives bridge log output. Optional.
	Logger Logger

	// Version is the service version reported in health messages.
	Version string

	// DebounceWindow overrides the engines' write-coalescing delay.
	// Zero selects the engine default.
	DebounceWindow time.Duration

	// HealthInterval overrides the health publishing cadence. Zero
	// selects the default.
	HealthInterval time.Duration

	// DeviceFilter restricts bridging to the listed device IDs. Empty
	// bridges every climate device.
	DeviceFilter []string
}

// Bridge binds Gray Logic climate devices to accessory control. It
// builds one accessory per climate device, reconciles the accessory
// characteristics against the canonical state the core publishes, and
// issues device commands back to the core when a controller writes.
type Bridge struct {
	mqtt      MQTTClient
	devices   DeviceSource
	telemetry TelemetryWriter
	health    *HealthReporter

	version        string
	debounceWindow time.Duration
	healthInterval time.Duration
	deviceFilter   map[string]bool

	accessories map[string]*boundAccessory // device ID → binding
	aidIndex    map[uint64]string          // accessory ID → device ID
	accMu       sync.RWMutex

	events      chan Event
	subscribers map[uint64]*eventSubscriber
	nextSubID   uint64
	subMu       sync.Mutex

	statesReceived uint64
	commandsSent   uint64
	eventsDropped  uint64
	statsMu        sync.Mutex

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a bridge. Call Start to load accessories and begin
// synchronising.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, ErrMQTTClientRequired
	}
	if opts.Devices == nil {
		return nil, ErrDeviceSourceRequired
	}

	healthInterval := opts.HealthInterval
	if healthInterval <= 0 {
		healthInterval = defaultHealthInterval
	}

	var filter map[string]bool
	if len(opts.DeviceFilter) > 0 {
		filter = make(map[string]bool, len(opts.DeviceFilter))
		for _, id := range opts.DeviceFilter {
			filter[id] = true
		}
	}

	b := &Bridge{
		mqtt:           opts.MQTTClient,
		devices:        opts.Devices,
		telemetry:      opts.Telemetry,
		version:        opts.Version,
		debounceWindow: opts.DebounceWindow,
		healthInterval: healthInterval,
		deviceFilter:   filter,
		accessories:    make(map[string]*boundAccessory),
		aidIndex:       make(map[uint64]string),
		events:         make(chan Event, eventBufferSize),
		subscribers:    make(map[uint64]*eventSubscriber),
		done:           make(chan struct{}),
		logger:         opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  mqtt.ProtocolName,
		Version:   opts.Version,
		Interval:  healthInterval,
		Publisher: opts.MQTTClient,
		Source:    b,
		Logger:    opts.Logger,
	})

	return b, nil
}

// SetLogger sets the logger for bridge events.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	b.health.SetLogger(logger)
}

// Start loads accessories from the device source, subscribes to device
// state and begins health reporting and event dispatch.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.devices.RefreshCache(ctx); err != nil {
		return fmt.Errorf("refresh device cache: %w", err)
	}
	if err := b.loadAccessories(ctx); err != nil {
		return err
	}

	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	stateTopic := mqtt.Topics{}.AllCoreDeviceStates()
	if err := b.mqtt.Subscribe(stateTopic, 1, b.handleStateMessage); err != nil {
		return fmt.Errorf("subscribe to device state: %w", err)
	}
	b.logInfo("subscribed to device state", "topic", stateTopic)

	b.wg.Add(1)
	go b.dispatchEvents()

	b.health.Start(ctx)
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	b.logInfo("bridge started", "accessories", b.AccessoryCount())
	return nil
}

// Stop gracefully shuts the bridge down. Health reporting stops with a
// final stopping status, engines close so no debounced command fires
// after shutdown, and event subscribers are released.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)

		b.health.Stop()

		b.accMu.Lock()
		for _, bound := range b.accessories {
			bound.engine.Close()
		}
		b.accMu.Unlock()

		b.wg.Wait()
		b.closeSubscribers()

		b.logInfo("bridge stopped")
	})
}

// ReloadDevices re-reads the device source, binding accessories for new
// climate devices and releasing accessories whose devices are gone.
// Safe to call while the bridge is running.
func (b *Bridge) ReloadDevices(ctx context.Context) error {
	if err := b.devices.RefreshCache(ctx); err != nil {
		return fmt.Errorf("refresh device cache: %w", err)
	}
	if err := b.loadAccessories(ctx); err != nil {
		return err
	}
	if err := b.pruneAccessories(ctx); err != nil {
		return err
	}

	b.logInfo("devices reloaded", "accessories", b.AccessoryCount())
	return nil
}

// loadAccessories builds accessories for every climate device the filter
// admits. Devices already bound are left untouched, so the method is
// safe for reloads.
func (b *Bridge) loadAccessories(ctx context.Context) error {
	devices, err := b.devices.ClimateDevices(ctx)
	if err != nil {
		return fmt.Errorf("list climate devices: %w", err)
	}

	b.accMu.Lock()
	defer b.accMu.Unlock()

	for i := range devices {
		dev := &devices[i]
		if !b.bridges(dev.ID) {
			continue
		}
		if _, ok := b.accessories[dev.ID]; ok {
			continue
		}

		bound, err := b.buildAccessory(dev)
		if err != nil {
			b.logError("failed to build accessory", err)
			continue
		}

		aid := bound.accessory.AID()
		if other, ok := b.aidIndex[aid]; ok {
			b.logError("accessory id collision, skipping device",
				fmt.Errorf("devices %s and %s both derive aid %d", other, dev.ID, aid))
			bound.engine.Close()
			continue
		}

		b.accessories[dev.ID] = bound
		b.aidIndex[aid] = dev.ID
		b.logInfo("accessory bound",
			"device_id", dev.ID,
			"aid", aid,
			"name", dev.Name)
	}

	return nil
}

// pruneAccessories releases accessories whose devices no longer appear
// in the device source or fell out of the filter.
func (b *Bridge) pruneAccessories(ctx context.Context) error {
	devices, err := b.devices.ClimateDevices(ctx)
	if err != nil {
		return fmt.Errorf("list climate devices: %w", err)
	}

	present := make(map[string]bool, len(devices))
	for i := range devices {
		present[devices[i].ID] = true
	}

	b.accMu.Lock()
	defer b.accMu.Unlock()

	for id, bound := range b.accessories {
		if present[id] && b.bridges(id) {
			continue
		}
		bound.engine.Close()
		delete(b.aidIndex, bound.accessory.AID())
		delete(b.accessories, id)
		b.logInfo("accessory released", "device_id", id)
	}

	return nil
}

// buildAccessory constructs the accessory and engine for one device and
// seeds the characteristics from the last known state. Observers attach
// after the seed refresh so startup does not flood the event queue.
func (b *Bridge) buildAccessory(dev *registry.Device) (*boundAccessory, error) {
	snap := deviceSnapshot(dev)

	engine, err := heatercooler.New(heatercooler.Options{
		Snapshot:       snap,
		Sink:           sinkFunc(b.dispatchCommand),
		DebounceWindow: b.debounceWindow,
		Logger:         b.currentLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("engine for %s: %w", dev.ID, err)
	}

	acc := accessory.New(dev.ID, accessoryInfo(dev))
	acc.AddService(engine.Service())

	engine.Refresh(snap)
	b.observeCharacteristics(dev.ID, acc)

	return &boundAccessory{accessory: acc, engine: engine, unit: snap.Unit}, nil
}

// observeCharacteristics fans characteristic changes into the event
// queue. Observers run on whatever goroutine stored the value and never
// block.
func (b *Bridge) observeCharacteristics(deviceID string, acc *accessory.Accessory) {
	svc := acc.Service(accessory.ServiceHeaterCooler)
	if svc == nil {
		return
	}

	aid := acc.AID()
	for _, c := range svc.Characteristics() {
		c := c
		c.OnChange(func(_, value any) {
			b.publishEvent(Event{
				DeviceID:           deviceID,
				AID:                aid,
				IID:                c.IID(),
				CharacteristicType: c.Type,
				Value:              value,
				Timestamp:          time.Now().UTC(),
			})
		})
	}
}

// handleStateMessage consumes one canonical device state message. The
// registry cache is patched first so API reads stay consistent, then the
// bound engine reconciles its characteristics.
func (b *Bridge) handleStateMessage(topic string, payload []byte) {
	deviceID, ok := mqtt.Topics{}.DeviceIDFromStateTopic(topic)
	if !ok {
		b.logDebug("ignoring message on unexpected topic", "topic", topic)
		return
	}

	var msg StateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		b.logError("failed to parse state message", err)
		return
	}
	if msg.DeviceID != "" && msg.DeviceID != deviceID {
		b.logError("state message device mismatch",
			fmt.Errorf("topic addresses %s, payload carries %s", deviceID, msg.DeviceID))
		return
	}
	if len(msg.State) == 0 {
		b.logDebug("state message with no attributes", "device_id", deviceID)
		return
	}

	b.statsMu.Lock()
	b.statesReceived++
	b.statsMu.Unlock()

	if _, err := b.devices.ApplyState(deviceID, msg.State); err != nil {
		b.logDebug("state for device not in cache", "device_id", deviceID)
	}

	bound := b.bound(deviceID)
	if bound == nil {
		return
	}

	snap := heatercooler.StateSnapshot(deviceID, msg.State)
	snap.Unit = bound.unit
	bound.engine.Refresh(snap)

	b.logDebug("device state applied",
		"device_id", deviceID,
		"attributes", len(msg.State))
}

// dispatchCommand publishes one engine command to the core. Runs on
// engine goroutines; must not call back into the engine.
func (b *Bridge) dispatchCommand(cmd heatercooler.Command) {
	msg := NewCommandMessage(cmd.DeviceID, string(cmd.Kind), cmd.Params)
	payload, err := json.Marshal(&msg)
	if err != nil {
		b.logError("failed to marshal command message", err)
		return
	}

	topic := mqtt.Topics{}.CoreDeviceCommand(cmd.DeviceID)
	if err := b.mqtt.Publish(topic, payload, 1, false); err != nil {
		b.logError("failed to publish command", err)
		return
	}

	b.statsMu.Lock()
	b.commandsSent++
	b.statsMu.Unlock()

	b.logInfo("command published",
		"device_id", cmd.DeviceID,
		"command", string(cmd.Kind),
		"command_id", msg.ID)
}

// bridges reports whether the device filter admits the given device.
func (b *Bridge) bridges(deviceID string) bool {
	if b.deviceFilter == nil {
		return true
	}
	return b.deviceFilter[deviceID]
}

func (b *Bridge) bound(deviceID string) *boundAccessory {
	b.accMu.RLock()
	defer b.accMu.RUnlock()
	return b.accessories[deviceID]
}

// Accessories returns the bridged accessories ordered by accessory ID.
func (b *Bridge) Accessories() []*accessory.Accessory {
	b.accMu.RLock()
	defer b.accMu.RUnlock()

	out := make([]*accessory.Accessory, 0, len(b.accessories))
	for _, bound := range b.accessories {
		out = append(out, bound.accessory)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AID() < out[j].AID() })
	return out
}

// AccessoryByAID finds a bridged accessory by accessory ID.
func (b *Bridge) AccessoryByAID(aid uint64) (*accessory.Accessory, bool) {
	b.accMu.RLock()
	defer b.accMu.RUnlock()

	id, ok := b.aidIndex[aid]
	if !ok {
		return nil, false
	}
	bound, ok := b.accessories[id]
	if !ok {
		return nil, false
	}
	return bound.accessory, true
}

// AccessoryCount returns the number of bridged accessories.
func (b *Bridge) AccessoryCount() int {
	b.accMu.RLock()
	defer b.accMu.RUnlock()
	return len(b.accessories)
}

// Statistics returns the counters included in health reports.
func (b *Bridge) Statistics() BridgeStatistics {
	b.statsMu.Lock()
	stats := BridgeStatistics{
		StatesReceived: b.statesReceived,
		CommandsSent:   b.commandsSent,
		EventsDropped:  b.eventsDropped,
	}
	b.statsMu.Unlock()

	b.accMu.RLock()
	for _, bound := range b.accessories {
		stats.InvalidWrites += bound.engine.Stats().InvalidWrites
	}
	b.accMu.RUnlock()

	return stats
}

// BridgeMetrics is a point-in-time operational summary for the API.
type BridgeMetrics struct {
	Connected          bool   `json:"connected"`
	Status             string `json:"status"`
	AccessoriesManaged int    `json:"accessories_managed"`
	StatesReceived     uint64 `json:"states_received"`
	CommandsSent       uint64 `json:"commands_sent"`
	EventsDropped      uint64 `json:"events_dropped"`
	Refreshes          uint64 `json:"refreshes"`
	SuppressedEchoes   uint64 `json:"suppressed_echoes"`
	InvalidWrites      uint64 `json:"invalid_writes"`
}

// GetMetrics returns current bridge metrics.
func (b *Bridge) GetMetrics() BridgeMetrics {
	b.statsMu.Lock()
	m := BridgeMetrics{
		StatesReceived: b.statesReceived,
		CommandsSent:   b.commandsSent,
		EventsDropped:  b.eventsDropped,
	}
	b.statsMu.Unlock()

	b.accMu.RLock()
	m.AccessoriesManaged = len(b.accessories)
	for _, bound := range b.accessories {
		s := bound.engine.Stats()
		m.Refreshes += s.Refreshes
		m.SuppressedEchoes += s.SuppressedEchoes
		m.InvalidWrites += s.InvalidWrites
	}
	b.accMu.RUnlock()

	m.Connected = b.mqtt.IsConnected()
	if m.Connected {
		m.Status = "healthy"
	} else {
		m.Status = "degraded"
	}

	return m
}

func (b *Bridge) currentLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
