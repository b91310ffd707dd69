// Package hap binds Gray Logic climate devices to HomeKit-style
// accessory control.
//
// The bridge sits between the core's MQTT topics and the accessory
// model. It builds one heater-cooler accessory per climate device,
// reconciles the accessory characteristics whenever the core publishes
// canonical device state, and turns protocol writes into device
// commands addressed back to the core:
//
//	                    state topics                commands
//	Gray Logic Core ──────────────────▶ Bridge ──────────────▶ Gray Logic Core
//	                                      │
//	                                      ├─▶ heatercooler.Engine (one per device)
//	                                      │     └─▶ accessory characteristics
//	                                      │
//	                                      ├─▶ Event fan-out (API streams)
//	                                      └─▶ telemetry (InfluxDB, optional)
//
// # Message flows
//
// State: the bridge subscribes to graylogic/core/device/+/state. Each
// message patches the registry's in-memory mirror and refreshes the
// bound engine, which updates characteristics and suppresses echoes of
// the bridge's own recent writes.
//
// Commands: engines emit abstract device commands when a controller
// writes a characteristic. The bridge wraps each one in a
// CommandMessage with a correlation ID and publishes it to
// graylogic/core/device/{id}/command. Delivery is fire-and-forget; the
// next state message is the confirmation.
//
// Health: a HealthReporter publishes periodic status to
// graylogic/health/hap, including the bridge counters. The LWT payload
// marks the bridge offline if the broker loses the connection.
//
// # Concurrency
//
// Engines serialise their own work. Command dispatch runs on engine
// goroutines and never calls back into an engine. Characteristic
// observers push into a bounded queue; a single dispatcher goroutine
// fans events out to subscribers and telemetry, dropping rather than
// blocking when a queue is full.
package hap
