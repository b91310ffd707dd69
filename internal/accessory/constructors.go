package accessory

// Characteristic type IDs (short form, leading zeros stripped).
const (
	TypeName                        = "23"
	TypeIdentify                    = "14"
	TypeManufacturer                = "20"
	TypeModel                       = "21"
	TypeSerialNumber                = "30"
	TypeFirmwareRevision            = "52"
	TypeActive                      = "B0"
	TypeCurrentHeaterCoolerState    = "B1"
	TypeTargetHeaterCoolerState     = "B2"
	TypeCurrentTemperature          = "11"
	TypeCoolingThresholdTemperature = "D"
	TypeHeatingThresholdTemperature = "12"
	TypeTemperatureDisplayUnits     = "36"
	TypeRotationSpeed               = "29"
	TypeSwingMode                   = "B6"
)

// Active values.
const (
	ActiveInactive = 0
	ActiveActive   = 1
)

// CurrentHeaterCoolerState values.
const (
	CurrentStateInactive = 0
	CurrentStateIdle     = 1
	CurrentStateHeating  = 2
	CurrentStateCooling  = 3
)

// TargetHeaterCoolerState values.
const (
	TargetStateAuto = 0
	TargetStateHeat = 1
	TargetStateCool = 2
)

// TemperatureDisplayUnits values.
const (
	UnitsCelsius    = 0
	UnitsFahrenheit = 1
)

// SwingMode values.
const (
	SwingDisabled = 0
	SwingEnabled  = 1
)

// UnitCelsius is the unit string for temperature characteristics.
const UnitCelsius = "celsius"

// UnitPercentage is the unit string for percentage characteristics.
const UnitPercentage = "percentage"

// NewActive creates the Active characteristic (on/off intent).
func NewActive() *Characteristic {
	c := newCharacteristic(TypeActive, "Active", FormatUint8,
		[]Perm{PermRead, PermWrite, PermEvents}, ActiveInactive)
	c.SetValidValues([]int{ActiveInactive, ActiveActive})
	return c
}

// NewCurrentHeaterCoolerState creates the read-only equipment activity
// characteristic.
func NewCurrentHeaterCoolerState() *Characteristic {
	c := newCharacteristic(TypeCurrentHeaterCoolerState, "Current Heater-Cooler State",
		FormatUint8, []Perm{PermRead, PermEvents}, CurrentStateInactive)
	c.SetValidValues([]int{
		CurrentStateInactive, CurrentStateIdle, CurrentStateHeating, CurrentStateCooling,
	})
	return c
}

// NewTargetHeaterCoolerState creates the mode-selection characteristic.
// Callers restrict the valid values to the modes the device supports.
func NewTargetHeaterCoolerState() *Characteristic {
	c := newCharacteristic(TypeTargetHeaterCoolerState, "Target Heater-Cooler State",
		FormatUint8, []Perm{PermRead, PermWrite, PermEvents}, TargetStateAuto)
	c.SetValidValues([]int{TargetStateAuto, TargetStateHeat, TargetStateCool})
	return c
}

// NewCurrentTemperature creates the measured-temperature characteristic.
func NewCurrentTemperature() *Characteristic {
	c := newCharacteristic(TypeCurrentTemperature, "Current Temperature",
		FormatFloat, []Perm{PermRead, PermEvents}, 0.0)
	c.Unit = UnitCelsius
	c.SetBounds(0, 100, 0.1)
	return c
}

// NewCoolingThresholdTemperature creates the cooling setpoint
// characteristic.
func NewCoolingThresholdTemperature() *Characteristic {
	c := newCharacteristic(TypeCoolingThresholdTemperature, "Cooling Threshold Temperature",
		FormatFloat, []Perm{PermRead, PermWrite, PermEvents}, 35.0)
	c.Unit = UnitCelsius
	c.SetBounds(10, 35, 0.1)
	return c
}

// NewHeatingThresholdTemperature creates the heating setpoint
// characteristic.
func NewHeatingThresholdTemperature() *Characteristic {
	c := newCharacteristic(TypeHeatingThresholdTemperature, "Heating Threshold Temperature",
		FormatFloat, []Perm{PermRead, PermWrite, PermEvents}, 0.0)
	c.Unit = UnitCelsius
	c.SetBounds(0, 25, 0.1)
	return c
}

// NewTemperatureDisplayUnits creates the display-units characteristic.
func NewTemperatureDisplayUnits() *Characteristic {
	c := newCharacteristic(TypeTemperatureDisplayUnits, "Temperature Display Units",
		FormatUint8, []Perm{PermRead, PermWrite, PermEvents}, UnitsCelsius)
	c.SetValidValues([]int{UnitsCelsius, UnitsFahrenheit})
	return c
}

// NewRotationSpeed creates the fan-speed percentage characteristic.
func NewRotationSpeed() *Characteristic {
	c := newCharacteristic(TypeRotationSpeed, "Rotation Speed",
		FormatFloat, []Perm{PermRead, PermWrite, PermEvents}, 0.0)
	c.Unit = UnitPercentage
	c.SetBounds(0, 100, 1)
	return c
}

// NewSwingMode creates the oscillation characteristic.
func NewSwingMode() *Characteristic {
	c := newCharacteristic(TypeSwingMode, "Swing Mode",
		FormatUint8, []Perm{PermRead, PermWrite, PermEvents}, SwingDisabled)
	c.SetValidValues([]int{SwingDisabled, SwingEnabled})
	return c
}

// NewName creates the read-only display-name characteristic.
func NewName(name string) *Characteristic {
	return newCharacteristic(TypeName, "Name", FormatString, []Perm{PermRead}, name)
}

// NewIdentify creates the write-only identify characteristic.
func NewIdentify() *Characteristic {
	return newCharacteristic(TypeIdentify, "Identify", FormatBool, []Perm{PermWrite}, nil)
}

// NewManufacturer creates the read-only manufacturer characteristic.
func NewManufacturer(value string) *Characteristic {
	return newCharacteristic(TypeManufacturer, "Manufacturer", FormatString, []Perm{PermRead}, value)
}

// NewModel creates the read-only model characteristic.
func NewModel(value string) *Characteristic {
	return newCharacteristic(TypeModel, "Model", FormatString, []Perm{PermRead}, value)
}

// NewSerialNumber creates the read-only serial-number characteristic.
func NewSerialNumber(value string) *Characteristic {
	return newCharacteristic(TypeSerialNumber, "Serial Number", FormatString, []Perm{PermRead}, value)
}

// NewFirmwareRevision creates the read-only firmware-revision characteristic.
func NewFirmwareRevision(value string) *Characteristic {
	return newCharacteristic(TypeFirmwareRevision, "Firmware Revision", FormatString, []Perm{PermRead}, value)
}
