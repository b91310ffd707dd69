package hap

import (
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hap/internal/accessory"
)

// Event is one characteristic transition, fanned out to API event
// streams and the telemetry sink.
type Event struct {
	// DeviceID is the core device whose accessory changed.
	DeviceID string `json:"device_id"`

	// AID and IID locate the characteristic within the bridge.
	AID uint64 `json:"aid"`
	IID uint64 `json:"iid"`

	// CharacteristicType is the short characteristic type ID.
	CharacteristicType string `json:"type"`

	// Value is the newly stored value.
	Value any `json:"value"`

	// Timestamp is when the change was observed (UTC).
	Timestamp time.Time `json:"timestamp"`
}

// eventSubscriber is one registered event consumer. Closing is funnelled
// through shutdown so the cancel func and bridge shutdown cannot race a
// double close.
type eventSubscriber struct {
	ch   chan Event
	once sync.Once
}

func (s *eventSubscriber) shutdown() {
	s.once.Do(func() { close(s.ch) })
}

// SubscribeEvents registers a consumer for characteristic change events.
// The returned cancel func releases the subscription; the channel closes
// on cancel or bridge shutdown. Slow consumers lose events rather than
// blocking the dispatcher.
func (b *Bridge) SubscribeEvents(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	sub := &eventSubscriber{ch: make(chan Event, buffer)}

	b.subMu.Lock()
	id := b.nextSubID
	b.nextSubID++
	b.subscribers[id] = sub
	b.subMu.Unlock()

	cancel := func() {
		b.subMu.Lock()
		delete(b.subscribers, id)
		b.subMu.Unlock()
		sub.shutdown()
	}

	return sub.ch, cancel
}

// publishEvent queues an event for dispatch without blocking the caller.
// Observers call this from engine refresh and protocol write paths.
func (b *Bridge) publishEvent(ev Event) {
	select {
	case b.events <- ev:
	default:
		b.statsMu.Lock()
		b.eventsDropped++
		b.statsMu.Unlock()
	}
}

// dispatchEvents drains the event queue, fanning each event out to
// subscribers and telemetry, and flushes bridge counters on the health
// cadence.
func (b *Bridge) dispatchEvents() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case ev := <-b.events:
			b.fanOut(ev)
			b.recordTelemetry(ev)
		case <-ticker.C:
			b.recordCounters()
		}
	}
}

// fanOut delivers one event to every subscriber. Sends are non-blocking;
// a full subscriber queue drops the event for that subscriber alone.
// Holding subMu during the sends orders them against cancel's shutdown,
// so a send to a closed channel cannot happen.
func (b *Bridge) fanOut(ev Event) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	for _, sub := range b.subscribers {
		select {
		case sub.ch <- ev:
		default:
			b.statsMu.Lock()
			b.eventsDropped++
			b.statsMu.Unlock()
		}
	}
}

// closeSubscribers releases every subscriber at bridge shutdown.
func (b *Bridge) closeSubscribers() {
	b.subMu.Lock()
	subs := make([]*eventSubscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.subscribers = make(map[uint64]*eventSubscriber)
	b.subMu.Unlock()

	for _, sub := range subs {
		sub.shutdown()
	}
}

// recordTelemetry writes one numeric characteristic change to the
// telemetry sink.
func (b *Bridge) recordTelemetry(ev Event) {
	if b.telemetry == nil {
		return
	}

	metric := metricName(ev.CharacteristicType)
	if metric == "" {
		return
	}
	value, ok := numericValue(ev.Value)
	if !ok {
		return
	}

	b.telemetry.WriteSyncMetric(ev.DeviceID, metric, value)
}

// recordCounters flushes the bridge counters to the telemetry sink.
func (b *Bridge) recordCounters() {
	if b.telemetry == nil {
		return
	}

	m := b.GetMetrics()
	b.telemetry.WriteBridgeCounters(map[string]any{
		"accessories":       m.AccessoriesManaged,
		"states_received":   m.StatesReceived,
		"commands_sent":     m.CommandsSent,
		"events_dropped":    m.EventsDropped,
		"refreshes":         m.Refreshes,
		"suppressed_echoes": m.SuppressedEchoes,
		"invalid_writes":    m.InvalidWrites,
	})
}

// metricName maps a characteristic type to its telemetry metric name.
// Display units carry no signal and are not recorded.
func metricName(typ string) string {
	switch typ {
	case accessory.TypeActive:
		return "active"
	case accessory.TypeCurrentHeaterCoolerState:
		return "current_state"
	case accessory.TypeTargetHeaterCoolerState:
		return "target_state"
	case accessory.TypeCurrentTemperature:
		return "current_temperature"
	case accessory.TypeCoolingThresholdTemperature:
		return "cooling_threshold"
	case accessory.TypeHeatingThresholdTemperature:
		return "heating_threshold"
	case accessory.TypeRotationSpeed:
		return "rotation_speed"
	case accessory.TypeSwingMode:
		return "swing_mode"
	default:
		return ""
	}
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
