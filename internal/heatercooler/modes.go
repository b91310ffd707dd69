package heatercooler

import (
	"math"
	"sort"
	"strings"

	"github.com/nerrad567/gray-logic-hap/internal/accessory"
)

// Mode is a device operating mode as reported on state topics.
type Mode string

// Device operating modes.
const (
	ModeOff      Mode = "off"
	ModeHeat     Mode = "heat"
	ModeCool     Mode = "cool"
	ModeAuto     Mode = "auto"
	ModeHeatCool Mode = "heat_cool"
	ModeFanOnly  Mode = "fan_only"
	ModeDry      Mode = "dry"
)

// Action is what the equipment is doing right now, as opposed to what it
// was asked to do.
type Action string

// Device actions.
const (
	ActionOff     Action = "off"
	ActionIdle    Action = "idle"
	ActionHeating Action = "heating"
	ActionCooling Action = "cooling"
)

// Unit is a temperature measurement unit.
type Unit string

// Measurement units.
const (
	UnitCelsius    Unit = "celsius"
	UnitFahrenheit Unit = "fahrenheit"
)

// ParseUnit normalises a configured unit string. Unrecognised spellings
// return the empty Unit, which leaves the display-units characteristic
// untouched on refresh.
func ParseUnit(s string) Unit {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "°") {
	case "c", "celsius":
		return UnitCelsius
	case "f", "fahrenheit":
		return UnitFahrenheit
	default:
		return ""
	}
}

// modeToTargetState reduces device operating modes to the protocol's
// three-value target-state model. Modes absent from the table (off, dry)
// have no target-state representation.
var modeToTargetState = map[Mode]int{
	ModeAuto:     accessory.TargetStateAuto,
	ModeHeatCool: accessory.TargetStateAuto,
	ModeHeat:     accessory.TargetStateHeat,
	ModeCool:     accessory.TargetStateCool,
	ModeFanOnly:  accessory.TargetStateCool,
}

// subsumptionRules drop redundant modes. When both members of a pair are
// available, drop reduces to the same target state as keep, so only keep
// stays usable.
var subsumptionRules = []struct{ keep, drop Mode }{
	{keep: ModeAuto, drop: ModeHeatCool},
	{keep: ModeCool, drop: ModeFanOnly},
}

// actionToCurrentState maps the device's reported action onto the
// current-state characteristic.
var actionToCurrentState = map[Action]int{
	ActionOff:     accessory.CurrentStateInactive,
	ActionIdle:    accessory.CurrentStateIdle,
	ActionHeating: accessory.CurrentStateHeating,
	ActionCooling: accessory.CurrentStateCooling,
}

// unitToDisplayUnits maps the device's measurement unit onto the
// display-units characteristic.
var unitToDisplayUnits = map[Unit]int{
	UnitCelsius:    accessory.UnitsCelsius,
	UnitFahrenheit: accessory.UnitsFahrenheit,
}

// assumedModes stands in when a device's mode list has not been
// populated yet.
var assumedModes = []Mode{ModeHeat, ModeCool, ModeHeatCool}

// modeMap is the reduced mode set of one device: which device modes stay
// usable after subsumption, the target-state values exposed to
// controllers, and the inverse lookup applied to protocol writes.
type modeMap struct {
	usable      []Mode
	validValues []int
	toDevice    map[int]Mode
}

// newModeMap reduces a device mode list. After subsumption each usable
// mode reduces to a distinct target state, so toDevice is total over
// validValues.
func newModeMap(modes []Mode) modeMap {
	present := make(map[Mode]bool, len(modes))
	for _, m := range modes {
		if _, ok := modeToTargetState[m]; ok {
			present[m] = true
		}
	}
	for _, rule := range subsumptionRules {
		if present[rule.keep] && present[rule.drop] {
			delete(present, rule.drop)
		}
	}

	mm := modeMap{toDevice: make(map[int]Mode, len(present))}
	for _, m := range modes {
		if !present[m] {
			continue
		}
		delete(present, m) // tolerate duplicates in the list

		state := modeToTargetState[m]
		mm.usable = append(mm.usable, m)
		mm.validValues = append(mm.validValues, state)
		mm.toDevice[state] = m
	}
	sort.Ints(mm.validValues)

	return mm
}

// temperatureToProtocol converts a device temperature to the Celsius
// value controllers see. Fahrenheit readings land between half-degree
// marks, so converted values are rounded to the nearest half degree.
func temperatureToProtocol(value float64, unit Unit) float64 {
	if unit == UnitFahrenheit {
		return roundHalf((value - 32) * 5 / 9)
	}
	return value
}

// temperatureToDevice converts a protocol Celsius value back to the
// device's unit. Snapping to the device's step grid happens at the
// command site.
func temperatureToDevice(value float64, unit Unit) float64 {
	if unit == UnitFahrenheit {
		return value*9/5 + 32
	}
	return value
}

// roundHalf rounds to the nearest half unit.
func roundHalf(v float64) float64 {
	return math.Round(v*2) / 2
}

// roundToStep snaps v to the nearest multiple of step.
func roundToStep(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}
