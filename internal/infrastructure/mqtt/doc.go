// Package mqtt connects the bridge to a local MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS validation
//   - Topic subscriptions, replayed after every reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// # Topic layout
//
// Everything lives under a configurable prefix (default "ayla"):
//
//	ayla/status                      bridge online/offline (retained)
//	ayla/<dsn>/connection            device connection status (retained)
//	ayla/<dsn>/<property>/state      property value (retained)
//	ayla/<dsn>/<property>/set        write a datapoint to the cloud
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllPropertySets(), 1, onSet)
package mqtt
