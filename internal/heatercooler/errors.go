package heatercooler

import "errors"

// Construction errors.
var (
	// ErrDeviceIDRequired indicates Options carried no device ID.
	ErrDeviceIDRequired = errors.New("heatercooler: device id is required")

	// ErrSinkRequired indicates Options carried no command sink.
	ErrSinkRequired = errors.New("heatercooler: command sink is required")
)
