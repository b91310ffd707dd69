package heatercooler

// CommandKind identifies a device command type. Values match the command
// vocabulary the core accepts on device command topics.
type CommandKind string

// Device command kinds.
const (
	CommandSetMode        CommandKind = "set_mode"
	CommandSetTemperature CommandKind = "set_temperature"
	CommandSetFanMode     CommandKind = "set_fan_mode"
	CommandSetSwingMode   CommandKind = "set_swing_mode"
)

// Command parameter keys.
const (
	ParamMode         = "mode"
	ParamSetpoint     = "setpoint"
	ParamSetpointLow  = "setpoint_low"
	ParamSetpointHigh = "setpoint_high"
	ParamFanMode      = "fan_mode"
	ParamSwingMode    = "swing_mode"
)

// Command is one abstract device command emitted by the engine.
type Command struct {
	// Kind selects the device operation.
	Kind CommandKind

	// DeviceID addresses the target device.
	DeviceID string

	// Params carries the operation parameters in device-domain terms.
	Params map[string]any

	// Label is a short human-readable description for logs.
	Label string
}

// CommandSink receives the device commands an engine emits. Delivery is
// fire-and-forget: the engine never retries, the next state refresh is
// the correction signal. Implementations must not call back into the
// engine.
type CommandSink interface {
	Apply(cmd Command)
}

// Logger matches the logging methods the engine uses. The service's
// structured logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
