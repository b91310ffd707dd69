package hap

import (
	"github.com/nerrad567/gray-logic-hap/internal/accessory"
	"github.com/nerrad567/gray-logic-hap/internal/heatercooler"
	"github.com/nerrad567/gray-logic-hap/internal/registry"
)

// deviceSnapshot builds the full device view an engine is constructed
// from: capability attributes from the commissioned registry record plus
// the last state the core reported.
func deviceSnapshot(dev *registry.Device) heatercooler.Snapshot {
	snap := heatercooler.StateSnapshot(dev.ID, dev.State)

	if dev.HasCapability(registry.CapTemperatureRange) {
		snap.Features |= heatercooler.FeatureTargetRange
	}
	if dev.HasCapability(registry.CapTemperatureSet) {
		snap.Features |= heatercooler.FeatureTargetTemperature
	}
	if dev.HasCapability(registry.CapFanMode) {
		snap.Features |= heatercooler.FeatureFan
	}
	if dev.HasCapability(registry.CapSwingMode) {
		snap.Features |= heatercooler.FeatureSwing
	}

	settings := dev.ClimateSettings()
	snap.Modes = climateModes(settings.Modes)
	snap.FanModes = settings.FanModes
	snap.SwingModes = settings.SwingModes
	snap.MinTemp = settings.MinTemp
	snap.MaxTemp = settings.MaxTemp
	snap.Step = settings.Step

	snap.Unit = heatercooler.ParseUnit(settings.Unit)
	if snap.Unit == "" {
		snap.Unit = heatercooler.UnitCelsius
	}

	return snap
}

func climateModes(modes []string) []heatercooler.Mode {
	if len(modes) == 0 {
		return nil
	}
	out := make([]heatercooler.Mode, 0, len(modes))
	for _, m := range modes {
		out = append(out, heatercooler.Mode(m))
	}
	return out
}

// accessoryInfo maps registry metadata onto the accessory information
// service. Fields the installer never recorded fall back to the
// accessory package defaults.
func accessoryInfo(dev *registry.Device) accessory.Info {
	info := accessory.Info{
		Name:         dev.Name,
		SerialNumber: dev.ID,
		Model:        string(dev.Type),
	}
	if dev.Manufacturer != nil {
		info.Manufacturer = *dev.Manufacturer
	}
	if dev.Model != nil {
		info.Model = *dev.Model
	}
	if dev.FirmwareVersion != nil {
		info.FirmwareRevision = *dev.FirmwareVersion
	}
	return info
}
