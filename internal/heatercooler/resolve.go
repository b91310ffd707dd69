package heatercooler

import (
	"strings"

	"github.com/nerrad567/gray-logic-hap/internal/accessory"
)

// TemperatureTopology identifies how a device models its setpoints.
type TemperatureTopology int

// Setpoint topologies.
const (
	// NoTemperatureControl exposes no writable setpoint.
	NoTemperatureControl TemperatureTopology = iota

	// SingleTarget devices take one setpoint, wired to a single
	// threshold characteristic chosen by mode availability.
	SingleTarget

	// RangeTarget devices take independent low/high setpoints and
	// expose both threshold characteristics.
	RangeTarget
)

// ThresholdSlot identifies which threshold characteristic a SingleTarget
// device is wired to.
type ThresholdSlot int

// Threshold slots.
const (
	HeatingSlot ThresholdSlot = iota
	CoolingSlot
)

// Default temperature bounds and step applied when the device does not
// report its own. Bounds are protocol-side Celsius.
const (
	defaultMinTemp = 7.0
	defaultMaxTemp = 35.0
	defaultStep    = 0.5
)

// Initial characteristic values used until the first refresh lands.
const (
	initialCurrentTemperature = 21.0
	initialCoolingThreshold   = 23.0
	initialHeatingThreshold   = 19.0
)

// swingOffIndicator marks a swing-mode name as "not oscillating".
const swingOffIndicator = "off"

// resolved carries the construction-time capability decisions the engine
// runs on. Immutable once built.
type resolved struct {
	topology   TemperatureTopology
	singleSlot ThresholdSlot
	modes      modeMap
	unit       Unit
	minTemp    float64
	maxTemp    float64
	step       float64
	speeds     *SpeedMapper // nil when no rotation-speed characteristic
	swingOn    string       // command value asserting oscillation
	swingOff   string       // command value stopping it
	hasSwing   bool
}

// resolve inspects a construction-time snapshot and decides which
// characteristics exist and how values translate. Degraded capability is
// logged and reduced, never fatal: an accessory always constructs.
func resolve(snap Snapshot, logger Logger) resolved {
	r := resolved{unit: snap.Unit}

	modes := snap.Modes
	if len(modes) == 0 {
		logger.Error("device mode list missing, assuming heat/cool/heat_cool",
			"device_id", snap.DeviceID)
		modes = assumedModes
	}
	r.modes = newModeMap(modes)

	switch {
	case snap.Features.Has(FeatureTargetRange):
		r.topology = RangeTarget
	case snap.Features.Has(FeatureTargetTemperature):
		r.topology = SingleTarget
		r.singleSlot = resolveSingleSlot(r.modes, snap.DeviceID, logger)
	default:
		r.topology = NoTemperatureControl
	}

	r.minTemp, r.maxTemp, r.step = resolveBounds(snap)

	if snap.Features.Has(FeatureFan) {
		if len(snap.FanModes) == 0 {
			logger.Error("fan support without fan modes, omitting rotation speed",
				"device_id", snap.DeviceID)
		} else {
			r.speeds = NewSpeedMapper(snap.FanModes)
		}
	}

	if snap.Features.Has(FeatureSwing) {
		on, off, ok := partitionSwingModes(snap.SwingModes)
		if ok {
			r.swingOn, r.swingOff, r.hasSwing = on, off, true
		} else {
			logger.Error("swing modes do not partition into on/off, omitting swing",
				"device_id", snap.DeviceID, "swing_modes", snap.SwingModes)
		}
	}

	return r
}

// resolveSingleSlot picks the threshold characteristic a single-setpoint
// device maps to. With both heat and cool available there is no faithful
// single slot; the heating slot is used and the degraded mapping logged.
func resolveSingleSlot(modes modeMap, deviceID string, logger Logger) ThresholdSlot {
	var hasHeat, hasCool bool
	for _, m := range modes.usable {
		switch m {
		case ModeHeat:
			hasHeat = true
		case ModeCool:
			hasCool = true
		}
	}

	switch {
	case hasHeat && hasCool:
		logger.Warn("single setpoint with both heat and cool modes, mapping to heating threshold",
			"device_id", deviceID)
		return HeatingSlot
	case hasCool:
		return CoolingSlot
	default:
		return HeatingSlot
	}
}

// resolveBounds derives the protocol-side temperature bounds and step.
// Reported bounds are converted to Celsius and rounded to the nearest
// half degree; absent values fall back to the defaults.
func resolveBounds(snap Snapshot) (minTemp, maxTemp, step float64) {
	minTemp, maxTemp, step = defaultMinTemp, defaultMaxTemp, defaultStep

	if snap.MinTemp != nil {
		minTemp = roundHalf(temperatureToProtocol(*snap.MinTemp, snap.Unit))
	}
	if snap.MaxTemp != nil {
		maxTemp = roundHalf(temperatureToProtocol(*snap.MaxTemp, snap.Unit))
	}
	if snap.Step != nil && *snap.Step > 0 {
		step = *snap.Step
	}
	return minTemp, maxTemp, step
}

// partitionSwingModes splits a swing-mode list into the first off-like
// name and the first of the remainder. Both must exist for the swing
// characteristic to be usable: without an off-like mode the protocol's
// binary swing state cannot be expressed.
func partitionSwingModes(swingModes []string) (on, off string, ok bool) {
	var hasOn, hasOff bool
	for _, m := range swingModes {
		if strings.Contains(strings.ToLower(m), swingOffIndicator) {
			if !hasOff {
				off, hasOff = m, true
			}
		} else if !hasOn {
			on, hasOn = m, true
		}
	}
	return on, off, hasOn && hasOff
}

// swingValue classifies a reported swing mode with the same off-like
// test as the partition.
func swingValue(name string) int {
	if strings.Contains(strings.ToLower(name), swingOffIndicator) {
		return accessory.SwingDisabled
	}
	return accessory.SwingEnabled
}

// characteristics is the resolved characteristic set backing one
// accessory. Optional members are nil when the device lacks the
// capability.
type characteristics struct {
	active       *accessory.Characteristic
	currentState *accessory.Characteristic
	targetState  *accessory.Characteristic
	currentTemp  *accessory.Characteristic
	displayUnits *accessory.Characteristic
	cooling      *accessory.Characteristic
	heating      *accessory.Characteristic
	rotation     *accessory.Characteristic
	swing        *accessory.Characteristic
}

// buildCharacteristics constructs the characteristic set for a resolved
// configuration and applies bounds and initial values.
func buildCharacteristics(cfg resolved) characteristics {
	chars := characteristics{
		active:       accessory.NewActive(),
		currentState: accessory.NewCurrentHeaterCoolerState(),
		targetState:  accessory.NewTargetHeaterCoolerState(),
		currentTemp:  accessory.NewCurrentTemperature(),
		displayUnits: accessory.NewTemperatureDisplayUnits(),
	}

	setInitial(chars.active, accessory.ActiveActive)
	setInitial(chars.currentState, accessory.CurrentStateInactive)
	setInitial(chars.currentTemp, initialCurrentTemperature)
	setInitial(chars.displayUnits, accessory.UnitsCelsius)

	chars.targetState.SetValidValues(cfg.modes.validValues)
	if len(cfg.modes.validValues) > 0 {
		setInitial(chars.targetState, cfg.modes.validValues[0])
	}

	switch cfg.topology {
	case RangeTarget:
		chars.cooling = accessory.NewCoolingThresholdTemperature()
		chars.heating = accessory.NewHeatingThresholdTemperature()
	case SingleTarget:
		if cfg.singleSlot == CoolingSlot {
			chars.cooling = accessory.NewCoolingThresholdTemperature()
		} else {
			chars.heating = accessory.NewHeatingThresholdTemperature()
		}
	case NoTemperatureControl:
	}

	if chars.cooling != nil {
		chars.cooling.SetBounds(cfg.minTemp, cfg.maxTemp, cfg.step)
		setInitial(chars.cooling, initialCoolingThreshold)
	}
	if chars.heating != nil {
		chars.heating.SetBounds(cfg.minTemp, cfg.maxTemp, cfg.step)
		setInitial(chars.heating, initialHeatingThreshold)
	}

	if cfg.speeds != nil {
		chars.rotation = accessory.NewRotationSpeed()
		step := rotationScaleMax
		if cfg.speeds.Len() > 1 {
			step = cfg.speeds.Spacing()
		}
		chars.rotation.SetBounds(0, rotationScaleMax, step)
	}

	if cfg.hasSwing {
		chars.swing = accessory.NewSwingMode()
	}

	return chars
}

// setInitial stores a construction-time default. Values here always
// match the characteristic's format, so the error is discarded.
func setInitial(c *accessory.Characteristic, value any) {
	_ = c.Update(value)
}
