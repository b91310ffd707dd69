package registry

// configSectionClimate is the key under Device.Config holding climate
// settings.
const configSectionClimate = "climate"

// Climate config keys inside the climate section.
const (
	configKeyMinTemp    = "min_temp"
	configKeyMaxTemp    = "max_temp"
	configKeyStep       = "step"
	configKeyUnit       = "unit"
	configKeyModes      = "modes"
	configKeyFanModes   = "fan_modes"
	configKeySwingModes = "swing_modes"
)

// ClimateSettings carries the commissioned climate configuration of a
// device. Pointer fields are nil when the commissioning data omits them,
// letting the consumer apply its own defaults.
type ClimateSettings struct {
	MinTemp    *float64
	MaxTemp    *float64
	Step       *float64
	Unit       string
	Modes      []string
	FanModes   []string
	SwingModes []string
}

// ClimateSettings extracts the climate section from the device config.
// Missing or malformed entries are dropped rather than erroring: the
// commissioning tool validates on write, so anything unreadable here is
// best treated as absent.
func (d *Device) ClimateSettings() ClimateSettings {
	var cs ClimateSettings

	section, ok := d.Config[configSectionClimate].(map[string]any)
	if !ok {
		return cs
	}

	cs.MinTemp = floatValue(section, configKeyMinTemp)
	cs.MaxTemp = floatValue(section, configKeyMaxTemp)
	cs.Step = floatValue(section, configKeyStep)

	if unit, ok := section[configKeyUnit].(string); ok {
		cs.Unit = unit
	}

	cs.Modes = stringSlice(section, configKeyModes)
	cs.FanModes = stringSlice(section, configKeyFanModes)
	cs.SwingModes = stringSlice(section, configKeySwingModes)

	return cs
}

// floatValue reads a numeric config entry. JSON decoding yields float64
// for all numbers but commissioned YAML can surface ints, so both are
// accepted.
func floatValue(section map[string]any, key string) *float64 {
	switch v := section[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

// stringSlice reads a list config entry, skipping non-string elements.
func stringSlice(section map[string]any, key string) []string {
	raw, ok := section[key].([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
