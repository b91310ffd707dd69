package heatercooler

import "math"

// rotationScaleMax is the top of the rotation-speed scale.
const rotationScaleMax = 100.0

// SpeedMapper translates between a device's ordered, named fan speeds
// and the protocol's 0-100 rotation-speed scale. Speeds are spread
// evenly across the scale in list order, the last always landing on 100.
type SpeedMapper struct {
	speeds  []string
	spacing float64
}

// NewSpeedMapper builds a mapper from the device's speed list. The list
// order defines the scale positions.
func NewSpeedMapper(speeds []string) *SpeedMapper {
	m := &SpeedMapper{speeds: make([]string, len(speeds))}
	copy(m.speeds, speeds)
	if len(m.speeds) > 1 {
		m.spacing = rotationScaleMax / float64(len(m.speeds)-1)
	}
	return m
}

// Len returns the number of named speeds.
func (m *SpeedMapper) Len() int {
	return len(m.speeds)
}

// Spacing returns the scale distance between adjacent speeds, or 0 for a
// single-speed device.
func (m *SpeedMapper) Spacing() float64 {
	return m.spacing
}

// ToProtocol returns the scale position of a named device speed. Unknown
// names return ok=false so the caller can leave the characteristic at
// its previous value.
func (m *SpeedMapper) ToProtocol(name string) (float64, bool) {
	for i, s := range m.speeds {
		if s != name {
			continue
		}
		if len(m.speeds) == 1 {
			return rotationScaleMax, true
		}
		return float64(i) * m.spacing, true
	}
	return 0, false
}

// ToDevice returns the named speed nearest to a scale position. Values
// off the scale clamp to its ends, so every protocol value resolves to a
// speed.
func (m *SpeedMapper) ToDevice(value float64) string {
	if len(m.speeds) == 0 {
		return ""
	}
	if len(m.speeds) == 1 {
		return m.speeds[0]
	}

	idx := int(math.Round(value / m.spacing))
	if idx < 0 {
		idx = 0
	}
	if idx > len(m.speeds)-1 {
		idx = len(m.speeds) - 1
	}
	return m.speeds[idx]
}
