// Gray Logic HAP Bridge - Accessory Protocol Sidecar
//
// This is the main entry point for the Gray Logic HAP bridge. The bridge
// runs alongside Gray Logic Core and exposes the core's climate devices
// as HomeKit-style accessories:
//   - Reads device definitions from the core's registry (read-only)
//   - Mirrors canonical device state onto accessory characteristics
//   - Translates characteristic writes into core device commands
//
// The core remains the source of truth for all device state; this
// service only translates between the two models.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-hap/internal/api"
	"github.com/nerrad567/gray-logic-hap/internal/bridges/hap"
	"github.com/nerrad567/gray-logic-hap/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hap/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-hap/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-hap/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hap/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hap/internal/registry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic HAP bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the core's device registry (read-only; the core owns the
	// schema and all writes)
	db, err := database.Open(database.Config{
		Path:        cfg.Registry.Path,
		BusyTimeout: cfg.Registry.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening registry database: %w", err)
	}
	defer func() {
		log.Info("closing registry database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing registry database", "error", closeErr)
		}
	}()

	schemaVersion, err := db.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading registry schema version: %w", err)
	}
	log.Info("registry database connected",
		"path", cfg.Registry.Path,
		"schema_version", schemaVersion,
	)

	// Initialise device registry cache
	repo := registry.NewSQLiteRepository(db.DB)
	reg := registry.NewRegistry(repo)
	reg.SetLogger(log)

	if refreshErr := reg.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", reg.DeviceCount())

	// Connect to MQTT broker. The LWT must be registered before
	// connecting so the broker announces the bridge as offline if the
	// process dies without a clean shutdown.
	lwtPayload, err := hap.LWTPayload()
	if err != nil {
		return fmt.Errorf("building LWT payload: %w", err)
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT, mqtt.WithWill(hap.LWTTopic(), lwtPayload, 1, true))
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Set up MQTT logging callbacks
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		// Set up InfluxDB error callback
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Create MQTT adapter to satisfy the accessory bridge interface
	mqttAdapter := &mqttBridgeAdapter{client: mqttClient}

	// Create and start the accessory bridge
	bridgeOpts := hap.BridgeOptions{
		MQTTClient:     mqttAdapter,
		Devices:        reg,
		Logger:         log,
		Version:        version,
		DebounceWindow: cfg.DebounceWindow(),
		HealthInterval: cfg.HealthInterval(),
		DeviceFilter:   cfg.Bridge.Devices,
	}
	// Only assign Telemetry when InfluxDB is enabled: a nil *Client in
	// the interface field would pass the bridge's nil check.
	if influxClient != nil {
		bridgeOpts.Telemetry = influxClient
	}

	bridge, err := hap.NewBridge(bridgeOpts)
	if err != nil {
		return fmt.Errorf("creating accessory bridge: %w", err)
	}

	if startErr := bridge.Start(ctx); startErr != nil {
		return fmt.Errorf("starting accessory bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping accessory bridge")
		bridge.Stop()
	}()
	log.Info("accessory bridge started",
		"accessories", len(bridge.Accessories()),
		"debounce_ms", cfg.Bridge.DebounceMS,
	)

	// Start local API server (if enabled)
	if cfg.API.Enabled {
		apiServer, newErr := api.New(api.Deps{
			Config:   cfg.API,
			Security: cfg.Security,
			Logger:   log,
			Bridge:   bridge,
			Version:  version,
		})
		if newErr != nil {
			return fmt.Errorf("creating API server: %w", newErr)
		}

		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		log.Info("API server started",
			"addr", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
			"auth", cfg.Security.JWT.Secret != "",
		)
	} else {
		log.Info("API server disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server (if enabled)
	// 2. Accessory bridge
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Registry database

	log.Info("Gray Logic HAP bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_HAP_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_HAP_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Registry database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	// Check registry database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("registry database: %w", err)
	}

	// Check MQTT
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// Accessory bridge health is verified during Start() - it loads the
	// registry cache and sets up MQTT subscriptions before returning.

	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the accessory
// bridge's MQTTClient interface. The only difference is the Subscribe
// handler signature:
// - Infrastructure mqtt: func(topic, payload []byte) error
// - Accessory bridge expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements hap.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements hap.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Wrap the void handler to return nil error (bridge handlers don't return errors)
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements hap.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
