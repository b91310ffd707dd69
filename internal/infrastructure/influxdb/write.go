package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSyncMetric records a single synchronised value for a bridged device.
//
// Called whenever the bridge pushes a refreshed value to an accessory or
// accepts a write from the accessory side. The write is non-blocking; data
// is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Core device identifier (e.g., "hvac-living")
//   - metric: The synchronised attribute (e.g., "target_temperature")
//   - value: The numeric value in protocol units
//
// Example:
//
//	client.WriteSyncMetric("hvac-living", "current_temperature", 21.5)
//	client.WriteSyncMetric("hvac-living", "rotation_speed", 66.6)
func (c *Client) WriteSyncMetric(deviceID string, metric string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"hap_sync",
		map[string]string{
			"device_id": deviceID,
			"metric":    metric,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBridgeCounters records bridge-wide operational counters.
//
// Published alongside the periodic health report so broker traffic and
// dashboard data stay consistent.
//
// Parameters:
//   - fields: Counter name to value (e.g., "commands_sent", "states_received")
func (c *Client) WriteBridgeCounters(fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"hap_bridge",
		map[string]string{
			"service": "graylogic-hap",
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "hap-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
