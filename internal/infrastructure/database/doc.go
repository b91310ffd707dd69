// Package database provides read-only SQLite connectivity to the Gray Logic
// Core registry.
//
// The core service owns the database: it creates the file, applies schema
// migrations, and performs all writes. This bridge opens the same file with
// mode=ro to load device definitions, so a bug here can never corrupt the
// registry.
//
// This package manages:
//   - Read-only connection against the core's SQLite file
//   - Busy timeout handling for lock contention with the core writer
//   - Schema version inspection (logged at startup, never applied)
//   - Connection pooling and lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - mode=ro makes accidental writes fail at the driver level
//
// Usage:
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Registry.Path,
//	    BusyTimeout: cfg.Registry.BusyTimeout,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	version, err := db.SchemaVersion(ctx)
package database
