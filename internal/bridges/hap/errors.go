package hap

import "errors"

var (
	// ErrMQTTClientRequired is returned when constructing a bridge
	// without an MQTT client.
	ErrMQTTClientRequired = errors.New("hap: mqtt client is required")

	// ErrDeviceSourceRequired is returned when constructing a bridge
	// without a device source.
	ErrDeviceSourceRequired = errors.New("hap: device source is required")

	// ErrAccessoryNotFound is returned when looking up an accessory
	// the bridge does not manage.
	ErrAccessoryNotFound = errors.New("hap: accessory not found")
)
