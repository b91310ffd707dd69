package registry

import "time"

// Device is the bridge's read-only view of a row in the core's devices
// table. Only the columns the bridge consumes are carried; the core owns
// the full schema.
type Device struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Location
	RoomID *string `json:"room_id,omitempty"`

	// Classification
	Type   DeviceType `json:"type"`
	Domain Domain     `json:"domain"`

	// Protocol the core uses to reach the device. Informational here;
	// the bridge always talks to the core, never to the device.
	Protocol string `json:"protocol"`

	// Capabilities and configuration
	Capabilities []Capability `json:"capabilities"`
	Config       Config       `json:"config"`

	// Current state as last reported by the core
	State          State      `json:"state"`
	StateUpdatedAt *time.Time `json:"state_updated_at,omitempty"`

	// Health monitoring
	HealthStatus HealthStatus `json:"health_status"`

	// Metadata surfaced through the accessory information service
	Manufacturer    *string `json:"manufacturer,omitempty"`
	Model           *string `json:"model,omitempty"`
	FirmwareVersion *string `json:"firmware_version,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Device.
// All map and slice fields are cloned so modifications to the copy
// do not affect the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	// Deep copy maps
	cpy.Config = deepCopyMap(d.Config)
	cpy.State = deepCopyMap(d.State)

	// Deep copy slice
	if d.Capabilities != nil {
		cpy.Capabilities = make([]Capability, len(d.Capabilities))
		copy(cpy.Capabilities, d.Capabilities)
	}

	// Pointer fields (*string, *time.Time) don't need deep copy
	// because strings and time.Time are immutable in Go

	return &cpy
}

// HasCapability reports whether the device declares the given capability.
func (d *Device) HasCapability(c Capability) bool {
	for _, cap := range d.Capabilities {
		if cap == c {
			return true
		}
	}
	return false
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives (string, bool, int, float64, etc.) are safe to copy by value
		return v
	}
}

// Config holds device-specific configuration as a JSON map.
type Config map[string]any

// State holds the current device state as a JSON map.
//
// Example (climate):
//
//	{"hvac_mode": "heat", "hvac_action": "heating", "temperature": 21.5,
//	 "setpoint": 22.0, "fan_mode": "auto", "swing_mode": "off"}
type State map[string]any

// Domain represents the functional area a device belongs to.
type Domain string

// Domains the bridge recognises. The core defines more; anything else
// passes through the scanner untouched and is simply never bridged.
const (
	DomainClimate Domain = "climate"
)

// DeviceType represents the specific kind of device.
type DeviceType string //nolint:revive // registry.DeviceType is clearer than registry.Type in calling code

// Climate device types the bridge expects to encounter.
const (
	DeviceTypeThermostat DeviceType = "thermostat"
	DeviceTypeHVACUnit   DeviceType = "hvac_unit"
	DeviceTypeFCU        DeviceType = "fcu"
)

// Capability represents what a device can do.
type Capability string

// Capabilities consulted when building accessory services.
const (
	CapTemperatureRead  Capability = "temperature_read"
	CapTemperatureSet   Capability = "temperature_set"
	CapTemperatureRange Capability = "temperature_range"
	CapModeSelect       Capability = "mode_select"
	CapFanMode          Capability = "fan_mode"
	CapSwingMode        Capability = "swing_mode"
)

// HealthStatus represents the device health state.
type HealthStatus string

// HealthStatus constants.
const (
	HealthStatusOnline   HealthStatus = "online"
	HealthStatusOffline  HealthStatus = "offline"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusUnknown  HealthStatus = "unknown"
)
