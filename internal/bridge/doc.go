// Package bridge mirrors an Ayla account onto the local MQTT bus.
//
// The bridge polls the device service for the device list and property
// values, applies datastream events as they arrive, and publishes every
// change as a retained message:
//
//	<prefix>/<dsn>/connection        Online | Offline
//	<prefix>/<dsn>/info              device summary (JSON)
//	<prefix>/<dsn>/<property>/state  current value
//
// Writing to <prefix>/<dsn>/<property>/set creates a datapoint in the
// cloud. Changes are also written to InfluxDB when a History is set.
//
// Once the datastream is connected, property polling stops and only the
// device list keeps being refreshed.
package bridge
