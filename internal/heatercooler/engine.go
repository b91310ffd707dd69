package heatercooler

import (
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hap/internal/accessory"
)

// defaultDebounceWindow is the write-coalescing delay applied when the
// options do not override it.
const defaultDebounceWindow = 500 * time.Millisecond

// attribute tags the independently synchronised device attributes. Each
// carries its own pending-write flag, so one attribute's suppression
// never blocks another's refresh.
type attribute int

const (
	attrMode attribute = iota
	attrTargetTemperature
	attrCoolingThreshold
	attrHeatingThreshold
	attrFanSpeed
	attrSwing
)

// String returns the attribute name used in logs.
func (a attribute) String() string {
	switch a {
	case attrMode:
		return "mode"
	case attrTargetTemperature:
		return "target_temperature"
	case attrCoolingThreshold:
		return "cooling_threshold"
	case attrHeatingThreshold:
		return "heating_threshold"
	case attrFanSpeed:
		return "fan_speed"
	case attrSwing:
		return "swing"
	default:
		return "unknown"
	}
}

// Options configures a synchronisation engine for one device.
type Options struct {
	// Snapshot is the device view taken at construction time. The
	// capability fields decide the characteristic set; the state fields
	// are not applied until the first Refresh.
	Snapshot Snapshot

	// Sink receives the device commands the engine emits. Required.
	Sink CommandSink

	// DebounceWindow overrides the write-coalescing delay. Zero selects
	// the default.
	DebounceWindow time.Duration

	// Logger is the optional structured logger.
	Logger Logger
}

// Engine synchronises one climate device with one set of accessory
// characteristics. Controller writes flow to the device as commands;
// device state refreshes flow back into the characteristics unless a
// pending write suppresses the echo for that attribute.
//
// All methods are safe for concurrent use. Write callbacks and refreshes
// for the same device serialise on the engine's mutex; engines for
// different devices share nothing.
type Engine struct {
	deviceID string
	cfg      resolved
	chars    characteristics
	service  *accessory.Service
	sink     CommandSink
	logger   Logger

	mu      sync.Mutex
	pending map[attribute]bool
	closed  bool

	singleDebounce  *debouncer
	coolingDebounce *debouncer
	heatingDebounce *debouncer
	fanDebounce     *debouncer

	refreshes  uint64
	suppressed uint64
	invalid    uint64
	commands   uint64
}

// New builds an engine for the device described by the snapshot,
// resolving its characteristic set and wiring the write callbacks. The
// caller feeds device updates through Refresh and must Close the engine
// when the device is removed.
func New(opts Options) (*Engine, error) {
	if opts.Snapshot.DeviceID == "" {
		return nil, ErrDeviceIDRequired
	}
	if opts.Sink == nil {
		return nil, ErrSinkRequired
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	window := opts.DebounceWindow
	if window <= 0 {
		window = defaultDebounceWindow
	}

	cfg := resolve(opts.Snapshot, logger)

	e := &Engine{
		deviceID: opts.Snapshot.DeviceID,
		cfg:      cfg,
		chars:    buildCharacteristics(cfg),
		sink:     opts.Sink,
		logger:   logger,
		pending:  make(map[attribute]bool),
	}
	e.service = buildService(e.chars)
	e.wireWriteHooks()
	e.buildDebouncers(window)

	return e, nil
}

// buildService assembles the heater-cooler service in its canonical
// characteristic order.
func buildService(chars characteristics) *accessory.Service {
	svc := accessory.NewService(accessory.ServiceHeaterCooler)
	svc.AddCharacteristic(chars.active)
	svc.AddCharacteristic(chars.currentState)
	svc.AddCharacteristic(chars.targetState)
	svc.AddCharacteristic(chars.currentTemp)
	for _, c := range []*accessory.Characteristic{
		chars.cooling, chars.heating, chars.displayUnits, chars.rotation, chars.swing,
	} {
		if c != nil {
			svc.AddCharacteristic(c)
		}
	}
	return svc
}

// wireWriteHooks connects the writable characteristics to the engine's
// write entry points. Hooks never reject: invalid input is logged and
// absorbed here, and the next refresh re-syncs the characteristic, so no
// error ever reaches the protocol layer.
func (e *Engine) wireWriteHooks() {
	e.chars.active.OnWrite(func(v any) error {
		e.SetActive(asInt(v))
		return nil
	})
	e.chars.targetState.OnWrite(func(v any) error {
		e.SetTargetState(asInt(v))
		return nil
	})
	e.chars.displayUnits.OnWrite(func(v any) error {
		e.logger.Debug("display units write ignored",
			"device_id", e.deviceID, "value", v)
		return nil
	})

	switch e.cfg.topology {
	case SingleTarget:
		slot := e.chars.heating
		if e.cfg.singleSlot == CoolingSlot {
			slot = e.chars.cooling
		}
		slot.OnWrite(func(v any) error {
			e.SetTargetTemperature(asFloat(v))
			return nil
		})
	case RangeTarget:
		e.chars.cooling.OnWrite(func(v any) error {
			e.SetCoolingThreshold(asFloat(v))
			return nil
		})
		e.chars.heating.OnWrite(func(v any) error {
			e.SetHeatingThreshold(asFloat(v))
			return nil
		})
	case NoTemperatureControl:
	}

	if e.chars.rotation != nil {
		e.chars.rotation.OnWrite(func(v any) error {
			e.SetRotationSpeed(asFloat(v))
			return nil
		})
	}
	if e.chars.swing != nil {
		e.chars.swing.OnWrite(func(v any) error {
			e.SetSwingMode(asInt(v))
			return nil
		})
	}
}

// buildDebouncers creates the coalescing state for the write paths that
// debounce. Only the attributes the topology exposes get one.
func (e *Engine) buildDebouncers(window time.Duration) {
	switch e.cfg.topology {
	case SingleTarget:
		e.singleDebounce = newDebouncer(window, e.flushTargetTemperature)
	case RangeTarget:
		e.coolingDebounce = newDebouncer(window, e.flushCoolingThreshold)
		e.heatingDebounce = newDebouncer(window, e.flushHeatingThreshold)
	case NoTemperatureControl:
	}
	if e.chars.rotation != nil {
		e.fanDebounce = newDebouncer(window, e.flushFanSpeed)
	}
}

// Service returns the configured heater-cooler service for accessory
// registration.
func (e *Engine) Service() *accessory.Service {
	return e.service
}

// DeviceID returns the device this engine synchronises.
func (e *Engine) DeviceID() string {
	return e.deviceID
}

// ─── Protocol write path ────────────────────────────────────────────────

// SetActive handles a protocol write to the Active characteristic.
// Power-off issues an off-mode command directly, bypassing the mode
// mapping; power-on re-asserts whatever mode the target-state
// characteristic currently holds rather than inferring a new one.
func (e *Engine) SetActive(value int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	switch value {
	case accessory.ActiveInactive:
		e.pending[attrMode] = true
		e.apply(Command{
			Kind:     CommandSetMode,
			DeviceID: e.deviceID,
			Params:   map[string]any{ParamMode: string(ModeOff)},
			Label:    "power off",
		})
	case accessory.ActiveActive:
		mode, ok := e.cfg.modes.toDevice[e.chars.targetState.Int()]
		if !ok {
			e.rejectWrite("active", value, "no device mode for held target state")
			return
		}
		e.pending[attrMode] = true
		e.apply(Command{
			Kind:     CommandSetMode,
			DeviceID: e.deviceID,
			Params:   map[string]any{ParamMode: string(mode)},
			Label:    "power on",
		})
	default:
		e.rejectWrite("active", value, "value outside 0/1")
	}
}

// SetTargetState handles a protocol write to the target-state
// characteristic.
func (e *Engine) SetTargetState(value int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	mode, ok := e.cfg.modes.toDevice[value]
	if !ok {
		e.rejectWrite("target_state", value, "not in usable mode set")
		return
	}

	e.pending[attrMode] = true
	e.apply(Command{
		Kind:     CommandSetMode,
		DeviceID: e.deviceID,
		Params:   map[string]any{ParamMode: string(mode)},
		Label:    "set mode",
	})
}

// SetTargetTemperature handles a protocol write to the threshold
// characteristic of a single-setpoint device.
func (e *Engine) SetTargetTemperature(value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.cfg.topology != SingleTarget {
		e.rejectWrite("target_temperature", value, "device has no single setpoint")
		return
	}

	e.pending[attrTargetTemperature] = true
	e.singleDebounce.Set(e.clampTemperature(value))
}

// SetCoolingThreshold handles a protocol write to the cooling threshold
// of a range device.
func (e *Engine) SetCoolingThreshold(value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.cfg.topology != RangeTarget {
		e.rejectWrite("cooling_threshold", value, "device has no setpoint range")
		return
	}

	e.pending[attrCoolingThreshold] = true
	e.coolingDebounce.Set(e.clampTemperature(value))
}

// SetHeatingThreshold handles a protocol write to the heating threshold
// of a range device.
func (e *Engine) SetHeatingThreshold(value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.cfg.topology != RangeTarget {
		e.rejectWrite("heating_threshold", value, "device has no setpoint range")
		return
	}

	e.pending[attrHeatingThreshold] = true
	e.heatingDebounce.Set(e.clampTemperature(value))
}

// SetRotationSpeed handles a protocol write to the rotation-speed
// characteristic.
func (e *Engine) SetRotationSpeed(value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.fanDebounce == nil {
		e.rejectWrite("rotation_speed", value, "device has no fan control")
		return
	}
	if value < 0 || value > rotationScaleMax {
		e.rejectWrite("rotation_speed", value, "value off the 0-100 scale")
		return
	}

	e.pending[attrFanSpeed] = true
	e.fanDebounce.Set(value)
}

// SetSwingMode handles a protocol write to the swing characteristic.
func (e *Engine) SetSwingMode(value int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if !e.cfg.hasSwing {
		e.rejectWrite("swing_mode", value, "device has no swing control")
		return
	}

	var mode string
	switch value {
	case accessory.SwingDisabled:
		mode = e.cfg.swingOff
	case accessory.SwingEnabled:
		mode = e.cfg.swingOn
	default:
		e.rejectWrite("swing_mode", value, "value outside 0/1")
		return
	}

	e.pending[attrSwing] = true
	e.apply(Command{
		Kind:     CommandSetSwingMode,
		DeviceID: e.deviceID,
		Params:   map[string]any{ParamSwingMode: mode},
		Label:    "set swing",
	})
}

// rejectWrite logs and drops an invalid protocol write. No flag is set
// and no command is issued, so a retry with a valid value behaves as if
// the invalid one never happened.
func (e *Engine) rejectWrite(char string, value any, reason string) {
	e.invalid++
	e.logger.Warn("protocol write rejected",
		"device_id", e.deviceID,
		"characteristic", char,
		"value", value,
		"reason", reason)
}

// clampTemperature bounds a protocol temperature to the resolved range.
func (e *Engine) clampTemperature(v float64) float64 {
	if v < e.cfg.minTemp {
		return e.cfg.minTemp
	}
	if v > e.cfg.maxTemp {
		return e.cfg.maxTemp
	}
	return v
}

// ─── Debounce flush path ────────────────────────────────────────────────

// flushTargetTemperature sends the coalesced single-setpoint command.
func (e *Engine) flushTargetTemperature(value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.apply(Command{
		Kind:     CommandSetTemperature,
		DeviceID: e.deviceID,
		Params: map[string]any{
			ParamSetpoint: e.deviceTemperature(value),
		},
		Label: "set target temperature",
	})
}

// flushCoolingThreshold sends the coalesced range command. The low bound
// carries whatever the heating characteristic holds at expiry: the
// device schema takes both bounds in one command, never one alone.
func (e *Engine) flushCoolingThreshold(value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.apply(Command{
		Kind:     CommandSetTemperature,
		DeviceID: e.deviceID,
		Params: map[string]any{
			ParamSetpointLow:  e.deviceTemperature(e.chars.heating.Float()),
			ParamSetpointHigh: e.deviceTemperature(value),
		},
		Label: "set cooling threshold",
	})
}

// flushHeatingThreshold mirrors flushCoolingThreshold for the low bound.
func (e *Engine) flushHeatingThreshold(value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.apply(Command{
		Kind:     CommandSetTemperature,
		DeviceID: e.deviceID,
		Params: map[string]any{
			ParamSetpointLow:  e.deviceTemperature(value),
			ParamSetpointHigh: e.deviceTemperature(e.chars.cooling.Float()),
		},
		Label: "set heating threshold",
	})
}

// flushFanSpeed sends the coalesced fan command.
func (e *Engine) flushFanSpeed(value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.apply(Command{
		Kind:     CommandSetFanMode,
		DeviceID: e.deviceID,
		Params:   map[string]any{ParamFanMode: e.cfg.speeds.ToDevice(value)},
		Label:    "set fan speed",
	})
}

// deviceTemperature converts a protocol Celsius value to the device's
// unit, snapped to its step grid.
func (e *Engine) deviceTemperature(v float64) float64 {
	return roundToStep(temperatureToDevice(v, e.cfg.unit), e.cfg.step)
}

// apply hands a command to the sink and counts it. Fire-and-forget:
// failures are the dispatcher's concern and the next refresh corrects
// any divergence.
func (e *Engine) apply(cmd Command) {
	e.commands++
	e.logger.Debug("device command",
		"device_id", cmd.DeviceID,
		"kind", string(cmd.Kind),
		"label", cmd.Label)
	e.sink.Apply(cmd)
}

// ─── Device refresh path ────────────────────────────────────────────────

// Refresh pushes a device state snapshot into the characteristics. Each
// synchronised attribute is handled independently: a pending protocol
// write suppresses the characteristic write for exactly this cycle, and
// every flag is cleared before returning whether or not the snapshot
// carried a value for it. Attributes with no write path of their own
// (current temperature, current state, display units) always refresh.
func (e *Engine) Refresh(snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.refreshes++

	e.refreshMode(snap)
	e.refreshTemperatures(snap)
	e.refreshFanSpeed(snap)
	e.refreshSwing(snap)

	if snap.CurrentTemperature != nil {
		e.updateChar(e.chars.currentTemp,
			temperatureToProtocol(*snap.CurrentTemperature, e.cfg.unit))
	}
	if cs, ok := actionToCurrentState[snap.Action]; ok {
		e.updateChar(e.chars.currentState, cs)
	}
	if du, ok := unitToDisplayUnits[snap.Unit]; ok {
		e.updateChar(e.chars.displayUnits, du)
	}

	e.clearPending()
}

// refreshMode syncs the active and target-state characteristics from the
// reported operating mode. Both share the mode flag: a mode or power
// write suppresses one refresh cycle for the pair.
func (e *Engine) refreshMode(snap Snapshot) {
	if e.skipPending(attrMode) {
		return
	}
	if snap.Mode == "" {
		return
	}

	active := accessory.ActiveActive
	if snap.Mode == ModeOff || snap.Mode == ModeDry {
		active = accessory.ActiveInactive
	}
	e.updateChar(e.chars.active, active)

	// Modes with no target-state representation (off, dry) leave the
	// last target state in place; the active characteristic carries the
	// power state.
	if ts, ok := modeToTargetState[snap.Mode]; ok {
		e.updateChar(e.chars.targetState, ts)
	}
}

// refreshTemperatures syncs the threshold characteristics the topology
// exposes. When no flag is pending the value is written unconditionally,
// even if unchanged; the characteristic layer already treats equal-value
// writes as no-ops for event purposes.
func (e *Engine) refreshTemperatures(snap Snapshot) {
	switch e.cfg.topology {
	case SingleTarget:
		if e.skipPending(attrTargetTemperature) {
			return
		}
		if snap.TargetTemperature == nil {
			return
		}
		slot := e.chars.heating
		if e.cfg.singleSlot == CoolingSlot {
			slot = e.chars.cooling
		}
		e.updateChar(slot, temperatureToProtocol(*snap.TargetTemperature, e.cfg.unit))

	case RangeTarget:
		if !e.skipPending(attrCoolingThreshold) && snap.TargetHigh != nil {
			e.updateChar(e.chars.cooling,
				temperatureToProtocol(*snap.TargetHigh, e.cfg.unit))
		}
		if !e.skipPending(attrHeatingThreshold) && snap.TargetLow != nil {
			e.updateChar(e.chars.heating,
				temperatureToProtocol(*snap.TargetLow, e.cfg.unit))
		}

	case NoTemperatureControl:
	}
}

// refreshFanSpeed syncs the rotation-speed characteristic. On top of the
// pending flag this path compares against the current value: the name
// mapping can fail, and an unmapped name must leave the characteristic
// alone rather than zero it.
func (e *Engine) refreshFanSpeed(snap Snapshot) {
	if e.chars.rotation == nil {
		return
	}
	if e.skipPending(attrFanSpeed) {
		return
	}
	if snap.FanMode == "" {
		return
	}

	value, ok := e.cfg.speeds.ToProtocol(snap.FanMode)
	if !ok {
		e.logger.Debug("unknown fan mode on refresh",
			"device_id", e.deviceID, "fan_mode", snap.FanMode)
		return
	}
	if value == e.chars.rotation.Float() {
		return
	}
	e.updateChar(e.chars.rotation, value)
}

// refreshSwing syncs the swing characteristic by classifying the
// reported swing mode with the off-like test.
func (e *Engine) refreshSwing(snap Snapshot) {
	if e.chars.swing == nil {
		return
	}
	if e.skipPending(attrSwing) {
		return
	}
	if snap.SwingMode == "" {
		return
	}
	e.updateChar(e.chars.swing, swingValue(snap.SwingMode))
}

// skipPending reports whether a pending write suppresses this attribute
// for the current cycle.
func (e *Engine) skipPending(a attribute) bool {
	if !e.pending[a] {
		return false
	}
	e.suppressed++
	e.logger.Debug("refresh suppressed",
		"device_id", e.deviceID, "attribute", a.String())
	return true
}

// clearPending ends every attribute's suppression window. Clearing is
// unconditional: suppression lasts exactly one refresh cycle per write,
// whether or not the cycle carried a value for the attribute.
func (e *Engine) clearPending() {
	for a := range e.pending {
		delete(e.pending, a)
	}
}

// updateChar applies a refresh value to a characteristic. Values built
// by the refresh path always match the format; a rejection here is a
// programming error and is logged rather than propagated.
func (e *Engine) updateChar(c *accessory.Characteristic, value any) {
	if err := c.Update(value); err != nil {
		e.logger.Error("characteristic update rejected",
			"device_id", e.deviceID, "type", c.Type, "error", err)
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────────

// Stats are cumulative counters for one engine.
type Stats struct {
	Refreshes        uint64
	SuppressedEchoes uint64
	InvalidWrites    uint64
	CommandsSent     uint64
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Refreshes:        e.refreshes,
		SuppressedEchoes: e.suppressed,
		InvalidWrites:    e.invalid,
		CommandsSent:     e.commands,
	}
}

// Close tears the engine down, cancelling outstanding debounce timers so
// no command fires after the accessory is gone. Further writes and
// refreshes are dropped.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	for _, d := range []*debouncer{
		e.singleDebounce, e.coolingDebounce, e.heatingDebounce, e.fanDebounce,
	} {
		if d != nil {
			d.Close()
		}
	}
}

// asInt narrows a coerced characteristic value. Write hooks only see
// values already coerced to the characteristic's format.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

// asFloat narrows a coerced characteristic value.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
