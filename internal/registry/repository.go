package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the read operations the bridge needs against the
// core's device table. The abstraction keeps the cache testable without
// a database.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices.
	List(ctx context.Context) ([]Device, error)

	// ListByDomain retrieves all devices in a specific domain.
	ListByDomain(ctx context.Context, domain Domain) ([]Device, error)
}

// SQLiteRepository implements Repository against the core's SQLite file.
// All queries are reads; the connection itself is opened mode=ro.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open read-only connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// deviceColumns is the column list every device query selects, in scan order.
const deviceColumns = `id, room_id, name, type, domain, protocol,
	capabilities, config, state, state_updated_at, health_status,
	manufacturer, model, firmware_version, created_at, updated_at`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + `
		FROM devices
		WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	device, err := scanDeviceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return device, nil
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + `
		FROM devices
		ORDER BY name`

	return r.queryDevices(ctx, query)
}

// ListByDomain retrieves all devices in a specific domain.
func (r *SQLiteRepository) ListByDomain(ctx context.Context, domain Domain) ([]Device, error) {
	query := `SELECT ` + deviceColumns + `
		FROM devices
		WHERE domain = ?
		ORDER BY name`

	return r.queryDevices(ctx, query, string(domain))
}

// queryDevices executes a query and returns a slice of devices.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDeviceRow scans a row or rows result into a Device.
func scanDeviceRow(scanner rowScanner) (*Device, error) {
	var d Device
	var roomID sql.NullString
	var stateUpdatedAt sql.NullString
	var manufacturer, model, firmwareVersion sql.NullString
	var capsJSON, configJSON, stateJSON string
	var createdAt, updatedAt string
	var deviceType, domain, protocol, healthStatus string

	err := scanner.Scan(
		&d.ID,
		&roomID,
		&d.Name,
		&deviceType,
		&domain,
		&protocol,
		&capsJSON,
		&configJSON,
		&stateJSON,
		&stateUpdatedAt,
		&healthStatus,
		&manufacturer,
		&model,
		&firmwareVersion,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Set type fields
	d.Type = DeviceType(deviceType)
	d.Domain = Domain(domain)
	d.Protocol = protocol
	d.HealthStatus = HealthStatus(healthStatus)

	// Set nullable strings
	if roomID.Valid {
		d.RoomID = &roomID.String
	}
	if manufacturer.Valid {
		d.Manufacturer = &manufacturer.String
	}
	if model.Valid {
		d.Model = &model.String
	}
	if firmwareVersion.Valid {
		d.FirmwareVersion = &firmwareVersion.String
	}

	// Parse timestamps
	if stateUpdatedAt.Valid {
		t, err := time.Parse(time.RFC3339, stateUpdatedAt.String)
		if err == nil {
			d.StateUpdatedAt = &t
		}
	}

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	// Unmarshal JSON fields
	if err := json.Unmarshal([]byte(capsJSON), &d.Capabilities); err != nil {
		return nil, fmt.Errorf("unmarshalling capabilities: %w", err)
	}

	if err := json.Unmarshal([]byte(configJSON), &d.Config); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &d.State); err != nil {
		return nil, fmt.Errorf("unmarshalling state: %w", err)
	}

	return &d, nil
}
