package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configuration leaves topic_prefix empty.
const DefaultTopicPrefix = "ayla"

// Topics builds the topic tree the bridge publishes under.
//
//	<prefix>/status                          bridge online/offline (retained, LWT)
//	<prefix>/<dsn>/connection                device connection status (retained)
//	<prefix>/<dsn>/info                      device summary (retained)
//	<prefix>/<dsn>/<property>/state          property value (retained)
//	<prefix>/<dsn>/<property>/set            inbound datapoint command
//
// Example:
//
//	topics := mqtt.Topics{Prefix: "ayla"}
//	topics.PropertyState("AC000W000000001", "Blue_LED")
//	// Returns: "ayla/AC000W000000001/Blue_LED/state"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// Status returns the bridge status topic.
func (t Topics) Status() string {
	return t.prefix() + "/status"
}

// Connection returns the connection status topic for a device.
func (t Topics) Connection(dsn string) string {
	return fmt.Sprintf("%s/%s/connection", t.prefix(), dsn)
}

// DeviceInfo returns the retained device summary topic.
func (t Topics) DeviceInfo(dsn string) string {
	return fmt.Sprintf("%s/%s/info", t.prefix(), dsn)
}

// PropertyState returns the retained state topic for a property.
func (t Topics) PropertyState(dsn, property string) string {
	return fmt.Sprintf("%s/%s/%s/state", t.prefix(), dsn, property)
}

// PropertySet returns the command topic for a property.
func (t Topics) PropertySet(dsn, property string) string {
	return fmt.Sprintf("%s/%s/%s/set", t.prefix(), dsn, property)
}

// AllPropertySets returns a wildcard matching every property command.
func (t Topics) AllPropertySets() string {
	return t.prefix() + "/+/+/set"
}

// ParsePropertySet extracts the DSN and property name from a command topic.
// ok is false when the topic is not a property command under this prefix.
func (t Topics) ParsePropertySet(topic string) (dsn, property string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.prefix()+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "set" || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
