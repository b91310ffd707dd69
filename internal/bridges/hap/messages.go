package hap

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MQTT message types exchanged with Gray Logic Core. The bridge is a
// peripheral of the core: it consumes canonical device state, issues
// device commands, and reports its own health. The core remains the
// single writer of device state.

// CommandMessage asks Core to execute one device command.
// Topic: graylogic/core/device/{device_id}/command
type CommandMessage struct {
	// ID uniquely identifies this command for tracing across services.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the Gray Logic device identifier.
	DeviceID string `json:"device_id"`

	// Command is the command name (e.g. "set_mode", "set_temperature").
	Command string `json:"command"`

	// Parameters contains command-specific values.
	// Examples:
	//   {"mode": "heat"} for set_mode
	//   {"setpoint_low": 19, "setpoint_high": 24} for set_temperature
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source identifies the issuing service ("hap").
	Source string `json:"source"`
}

// NewCommandMessage builds a command message with a fresh correlation ID.
func NewCommandMessage(deviceID, command string, parameters map[string]any) CommandMessage {
	return CommandMessage{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		DeviceID:   deviceID,
		Command:    command,
		Parameters: parameters,
		Source:     commandSource,
	}
}

// MarshalJSON marshals a CommandMessage with an ISO8601 timestamp.
func (m *CommandMessage) MarshalJSON() ([]byte, error) {
	type Alias CommandMessage
	return json.Marshal(&struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias:     (*Alias)(m),
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
	})
}

// UnmarshalJSON unmarshals a CommandMessage from JSON.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type Alias CommandMessage
	aux := &struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// StateMessage is the canonical device state Core publishes after
// processing a protocol bridge update.
// Topic: graylogic/core/device/{device_id}/state
// QoS: 1, Retained: Yes
type StateMessage struct {
	// DeviceID is the Gray Logic device identifier.
	DeviceID string `json:"device_id"`

	// Timestamp is when the state was observed (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// State contains the current device state attributes, e.g.
	// {"hvac_mode": "heat", "temperature": 21.5, "setpoint": 22.0}.
	State map[string]any `json:"state"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge is operating with issues.
	HealthDegraded HealthStatus = "degraded"

	// HealthOffline indicates the bridge is not connected (from LWT).
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports the bridge's operational status.
// Topic: graylogic/health/hap
// QoS: 1, Retained: Yes
type HealthMessage struct {
	// Bridge is the bridge identifier ("hap").
	Bridge string `json:"bridge"`

	// Timestamp is when the health status was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Status indicates the current operational status.
	Status HealthStatus `json:"status"`

	// Version is the bridge software version.
	Version string `json:"version,omitempty"`

	// UptimeSeconds is how long the bridge has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// Statistics contains operational counters.
	Statistics *BridgeStatistics `json:"statistics,omitempty"`

	// AccessoriesManaged is the number of bridged accessories.
	AccessoriesManaged int `json:"accessories_managed"`

	// Reason explains the status (especially for offline/degraded).
	Reason string `json:"reason,omitempty"`
}

// BridgeStatistics contains operational counters for health reporting.
type BridgeStatistics struct {
	// StatesReceived is the number of device state messages consumed.
	StatesReceived uint64 `json:"states_received"`

	// CommandsSent is the number of device commands issued to Core.
	CommandsSent uint64 `json:"commands_sent"`

	// EventsDropped is the number of characteristic events discarded
	// because a consumer queue was full.
	EventsDropped uint64 `json:"events_dropped"`

	// InvalidWrites is the number of protocol writes rejected across
	// all accessories.
	InvalidWrites uint64 `json:"invalid_writes"`
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, stats BridgeStatistics, accessories int, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:             bridgeID,
		Timestamp:          time.Now().UTC(),
		Status:             status,
		Version:            version,
		UptimeSeconds:      int64(time.Since(startTime).Seconds()),
		Statistics:         &stats,
		AccessoriesManaged: accessories,
	}
}

// NewLWTMessage creates the Last Will and Testament payload the broker
// publishes if the bridge disconnects unexpectedly.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}
