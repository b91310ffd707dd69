package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes per Gray Logic MQTT specification.
//
// The bridge speaks to Gray Logic Core exclusively through core topics:
// it consumes canonical device state and publishes device commands. The
// flat bridge scheme (graylogic/{category}/{protocol}) is used only for
// this service's own health reporting.
const (
	// TopicPrefix is the base for all Gray Logic topics.
	TopicPrefix = "graylogic"

	// TopicPrefixCore is the base for all core topics.
	TopicPrefixCore = "graylogic/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"

	// ProtocolName identifies this bridge in the flat topic scheme.
	ProtocolName = "hap"
)

// Topics provides builders for the MQTT topics this service uses.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.CoreDeviceState("hvac-living")
//	// Returns: "graylogic/core/device/hvac-living/state"
type Topics struct{}

// CoreDeviceState returns the canonical device state topic.
// This is the authoritative state published by Core after processing
// bridge updates.
//
// Example: graylogic/core/device/hvac-living/state
func (Topics) CoreDeviceState(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/state", TopicPrefixCore, deviceID)
}

// AllCoreDeviceStates returns a pattern matching every canonical device
// state topic.
//
// Pattern: graylogic/core/device/+/state
func (Topics) AllCoreDeviceStates() string {
	return fmt.Sprintf("%s/device/+/state", TopicPrefixCore)
}

// CoreDeviceCommand returns the topic for commands addressed to Core
// for a specific device.
//
// Example: graylogic/core/device/hvac-living/command
func (Topics) CoreDeviceCommand(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/command", TopicPrefixCore, deviceID)
}

// BridgeHealth returns the health topic for this bridge.
//
// Example: graylogic/health/hap
func (Topics) BridgeHealth() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, ProtocolName)
}

// ServiceStatus returns the per-service status topic used for the
// online/offline lifecycle messages and the broker LWT.
//
// Example: graylogic/system/status/graylogic-hap
func (Topics) ServiceStatus(clientID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefixSystem, clientID)
}

// DeviceIDFromStateTopic extracts the device ID from a canonical device
// state topic. Returns false if the topic does not match the expected
// shape.
func (Topics) DeviceIDFromStateTopic(topic string) (string, bool) {
	const prefix = TopicPrefixCore + "/device/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(topic, prefix)
	id, ok := strings.CutSuffix(rest, "/state")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
