// Package registry provides read-only access to the Gray Logic Core
// device registry for the HAP bridge.
//
// The core's SQLite database is the single source of truth for device
// definitions: identity, capabilities, commissioned climate settings,
// and last persisted state. This package loads that data at startup and
// keeps an in-memory cache current as state messages arrive over MQTT.
//
// # Architecture
//
//	SQLite (core-owned, mode=ro)
//	    |
//	SQLiteRepository   -- row scanning, domain filtering
//	    |
//	Registry           -- cache, deep-copy isolation, in-memory state merge
//	    |
//	bridge / api       -- consumers
//
// The bridge never writes to the database. State changes flow back to
// the core as MQTT commands; the core persists the results and publishes
// them again, which is when ApplyState folds them into the cache.
//
// # Climate vocabulary
//
// Climate devices publish state under well-known keys (hvac_mode,
// hvac_action, temperature, setpoint, setpoint_low, setpoint_high,
// fan_mode, swing_mode) and carry commissioned settings in the "climate"
// config section. ClimateSettings extracts the latter with missing
// entries left nil so consumers can default sensibly.
package registry
