package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

// TestOpen verifies database connection establishment.
func TestOpen(t *testing.T) {
	t.Run("connects to existing file", func(t *testing.T) {
		dbPath := seedTestDB(t, 1, 2, 3)

		db, err := Open(Config{
			Path:        dbPath,
			BusyTimeout: 5,
		})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if err := db.HealthCheck(context.Background()); err != nil {
			t.Errorf("HealthCheck() error = %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "does-not-exist.db")

		_, err := Open(Config{
			Path:        dbPath,
			BusyTimeout: 5,
		})
		if err == nil {
			t.Fatal("Open() should fail when the registry file is missing")
		}
	})

	t.Run("returns path", func(t *testing.T) {
		dbPath := seedTestDB(t)

		db, err := Open(Config{
			Path:        dbPath,
			BusyTimeout: 5,
		})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if db.Path() != dbPath {
			t.Errorf("Path() = %v, want %v", db.Path(), dbPath)
		}
	})
}

// TestHealthCheck verifies the health check functionality.
func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

// TestClose verifies graceful shutdown.
func TestClose(t *testing.T) {
	db := openTestDB(t)

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	// Second close should not error (nil check)
	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

// TestSchemaVersion verifies the migration ledger is read correctly.
func TestSchemaVersion(t *testing.T) {
	t.Run("reports latest applied version", func(t *testing.T) {
		dbPath := seedTestDB(t, 1, 2, 7)

		db, err := Open(Config{Path: dbPath, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		version, err := db.SchemaVersion(context.Background())
		if err != nil {
			t.Fatalf("SchemaVersion() error = %v", err)
		}
		if version != 7 {
			t.Errorf("SchemaVersion() = %d, want 7", version)
		}
	})

	t.Run("empty ledger reports zero", func(t *testing.T) {
		dbPath := seedTestDB(t)

		db, err := Open(Config{Path: dbPath, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		version, err := db.SchemaVersion(context.Background())
		if err != nil {
			t.Fatalf("SchemaVersion() error = %v", err)
		}
		if version != 0 {
			t.Errorf("SchemaVersion() = %d, want 0", version)
		}
	})

	t.Run("missing ledger table errors", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "bare.db")
		raw, err := sql.Open("sqlite3", dbPath)
		if err != nil {
			t.Fatalf("creating bare database: %v", err)
		}
		if _, err := raw.Exec("CREATE TABLE unrelated (id INTEGER PRIMARY KEY)"); err != nil {
			t.Fatalf("seeding bare database: %v", err)
		}
		if err := raw.Close(); err != nil {
			t.Fatalf("closing seed connection: %v", err)
		}

		db, err := Open(Config{Path: dbPath, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if _, err := db.SchemaVersion(context.Background()); err == nil {
			t.Error("SchemaVersion() should fail without a schema_migrations table")
		}
	})
}

// TestReadOnly verifies the connection rejects writes.
func TestReadOnly(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	_, err := db.DB.ExecContext(context.Background(),
		"INSERT INTO schema_migrations (version, applied_at) VALUES (99, datetime('now'))",
	)
	if err == nil {
		t.Error("write succeeded on a read-only connection")
	}
}

// TestStats verifies stats are returned.
func TestStats(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	stats := db.Stats()
	if stats.MaxOpenConnections != 1 {
		t.Errorf("MaxOpenConnections = %v, want 1", stats.MaxOpenConnections)
	}
}

// seedTestDB creates a registry file the way the core would, with a
// schema_migrations ledger holding the given versions. Returns its path.
func seedTestDB(t *testing.T, versions ...int) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "registry.db")

	raw, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("creating seed database: %v", err)
	}

	_, err = raw.Exec(`
		CREATE TABLE schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("creating schema_migrations: %v", err)
	}

	for _, v := range versions {
		_, err = raw.Exec(
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))", v,
		)
		if err != nil {
			t.Fatalf("seeding schema_migrations: %v", err)
		}
	}

	if err := raw.Close(); err != nil {
		t.Fatalf("closing seed connection: %v", err)
	}

	return dbPath
}

// openTestDB seeds a registry file and opens it read-only.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{
		Path:        seedTestDB(t, 1),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	return db
}
