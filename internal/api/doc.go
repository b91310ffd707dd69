// Package api implements the local HTTP and WebSocket server for the HAP bridge.
//
// This package provides:
//   - REST endpoints for accessory listing and characteristic writes
//   - WebSocket hub for real-time characteristic change broadcasts
//   - JWT validation with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The API server sits between local clients (protocol gateways, dashboards,
// debugging tools) and the accessory bridge. Characteristic writes flow
// through the accessory write path into device commands on MQTT, and
// characteristic changes flow from the bridge's event stream to WebSocket
// clients.
//
// # Security
//
// The bridge never issues tokens. It validates JWT access tokens issued by
// Gray Logic Core using the shared HMAC secret; an empty secret disables
// authentication for loopback-only deployments. WebSocket connections use
// single-use tickets to prevent token leakage in URLs.
//
// # Graceful Degradation
//
// The server operates while the broker is down — reads and WebSocket
// connections keep working from the bridge's in-memory accessories, only
// device commands fail.
package api
