package heatercooler

// State keys the core publishes on climate device state topics.
// Snapshots are assembled from these attributes.
const (
	StateKeyHVACMode     = "hvac_mode"
	StateKeyHVACAction   = "hvac_action"
	StateKeyTemperature  = "temperature"
	StateKeySetpoint     = "setpoint"
	StateKeySetpointLow  = "setpoint_low"
	StateKeySetpointHigh = "setpoint_high"
	StateKeyFanMode      = "fan_mode"
	StateKeySwingMode    = "swing_mode"
)

// Features is the set of optional climate capabilities a device offers.
type Features uint8

// Feature flags.
const (
	// FeatureTargetTemperature marks a device with a single setpoint.
	FeatureTargetTemperature Features = 1 << iota

	// FeatureTargetRange marks a device with independent low/high
	// setpoints. Takes precedence over FeatureTargetTemperature.
	FeatureTargetRange

	// FeatureFan marks a device with named fan speeds.
	FeatureFan

	// FeatureSwing marks a device with named swing modes.
	FeatureSwing
)

// Has reports whether flag is present in the set.
func (f Features) Has(flag Features) bool {
	return f&flag != 0
}

// Snapshot is a read-only view of one climate device at a point in time.
// The engine never mutates a snapshot.
//
// Capability fields (Features, the mode/speed/swing lists, Unit and the
// temperature bounds) are consulted once, when the engine is built; the
// refresh path reads the state attributes alone. Pointer fields are nil
// when the device did not report the attribute.
type Snapshot struct {
	DeviceID string

	// State attributes, replaced on every device update.
	Mode               Mode
	Action             Action
	CurrentTemperature *float64
	TargetTemperature  *float64
	TargetLow          *float64
	TargetHigh         *float64
	FanMode            string
	SwingMode          string

	// Capability attributes, fixed at construction.
	Features   Features
	Modes      []Mode
	FanModes   []string
	SwingModes []string
	Unit       Unit
	MinTemp    *float64
	MaxTemp    *float64
	Step       *float64
}

// StateSnapshot fills the state attributes of a Snapshot from a raw
// device state map. Missing or malformed attributes stay unset; the
// refresh path treats each attribute independently, so a partial state
// update is still useful.
func StateSnapshot(deviceID string, state map[string]any) Snapshot {
	snap := Snapshot{DeviceID: deviceID}

	if s, ok := state[StateKeyHVACMode].(string); ok {
		snap.Mode = Mode(s)
	}
	if s, ok := state[StateKeyHVACAction].(string); ok {
		snap.Action = Action(s)
	}
	snap.CurrentTemperature = stateFloat(state, StateKeyTemperature)
	snap.TargetTemperature = stateFloat(state, StateKeySetpoint)
	snap.TargetLow = stateFloat(state, StateKeySetpointLow)
	snap.TargetHigh = stateFloat(state, StateKeySetpointHigh)
	if s, ok := state[StateKeyFanMode].(string); ok {
		snap.FanMode = s
	}
	if s, ok := state[StateKeySwingMode].(string); ok {
		snap.SwingMode = s
	}

	return snap
}

// stateFloat reads a numeric state attribute. JSON decoding yields
// float64 for every number, but states assembled in process can carry
// ints, so both are accepted.
func stateFloat(state map[string]any, key string) *float64 {
	switch v := state[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}
