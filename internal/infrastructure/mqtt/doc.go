// Package mqtt provides MQTT client connectivity for the Gray Logic HAP bridge.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The bridge uses MQTT to consume canonical device state published by
// Gray Logic Core and to publish device commands back to it. The broker
// (Mosquitto) decouples the bridge from the core and from the protocol
// bridges behind it.
//
//	HAP Bridge ↔ MQTT Broker ↔ Gray Logic Core ↔ Protocol Bridges
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all canonical device state updates
//	err = client.Subscribe(mqtt.Topics{}.AllCoreDeviceStates(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a command
//	topic := mqtt.Topics{}.CoreDeviceCommand("hvac-living")
//	client.Publish(topic, payload, 1, false)
package mqtt
