// Package heatercooler synchronises climate devices with heater-cooler
// accessory characteristics in both directions.
//
// One Engine serves one device. The device side reports continuous
// attributes (mode, temperatures, fan speed, swing) that change
// asynchronously; the accessory side exposes typed characteristics a
// controller can read and write at any time. The engine keeps the two
// consistent without oscillation.
//
// # Architecture
//
//	┌────────────┐  Refresh(snapshot)  ┌────────────┐  Update()  ┌──────────────────┐
//	│   Device   │────────────────────►│   Engine   │───────────►│ Characteristics  │
//	│  (via MQTT │                     │ (this pkg) │            │ (accessory pkg)  │
//	│   state)   │◄────────────────────│            │◄───────────│                  │
//	└────────────┘  CommandSink.Apply  └────────────┘  OnWrite   └──────────────────┘
//
// # Write path
//
// A controller write is validated against the attribute's accepted
// domain (invalid values are logged and dropped), marks the attribute's
// pending flag, and is translated to device terms. Temperature and fan
// writes are debounced: rapid bursts coalesce, and only the latest value
// at window expiry becomes a command. Mode, power, and swing writes
// issue immediately. Threshold commands always carry both bounds; the
// paired bound is read from its characteristic when the window expires.
//
// # Echo suppression
//
// A device refresh arriving after a write must not clobber the written
// value with a stale echo. Each attribute's pending flag suppresses the
// characteristic write for exactly one refresh cycle and is then cleared
// unconditionally, so suppression can never stick. Attributes the
// controller cannot meaningfully write (current temperature, current
// state, display units) refresh on every cycle.
//
// # Capability resolution
//
// The characteristic set is decided once, from the snapshot taken at
// construction: setpoint topology (none, single slot, low/high range),
// the usable mode set after subsumption, temperature bounds, fan speed
// mapping, and the swing on/off pair. Degraded capability (missing mode
// list, unmappable swing modes) is logged and reduced, never fatal.
//
// # Concurrency
//
// Writes and refreshes for one device serialise on the engine mutex.
// Engines for different devices share no state. Commands are
// fire-and-forget: the engine never retries, the next refresh is the
// correction signal. Close cancels outstanding debounce timers.
package heatercooler
