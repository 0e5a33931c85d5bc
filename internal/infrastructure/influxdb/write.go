package influxdb

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	measurementDatapoint  = "ayla_datapoint"
	measurementConnection = "ayla_connection"
)

// WriteDatapoint records one property value.
//
// The write is non-blocking; points are batched and flushed asynchronously.
// The field type follows the property's base type so numeric properties can
// be aggregated in queries.
//
// Parameters:
//   - dsn: Device serial number
//   - property: Property name (e.g., "Blue_LED")
//   - baseType: Ayla base type ("integer", "boolean", "decimal", "float", "string", "file")
//   - value: The datapoint value as received from the cloud
//   - ts: Event time; zero means now
//
// Example:
//
//	client.WriteDatapoint("AC000W000000001", "Blue_LED", "boolean", 1, dp.UpdatedAt)
func (c *Client) WriteDatapoint(dsn, property, baseType string, value any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(datapointPoint(dsn, property, baseType, value, ts))
}

// WriteConnection records a device connection status change.
func (c *Client) WriteConnection(dsn, status string, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(connectionPoint(dsn, status, ts))
}

func datapointPoint(dsn, property, baseType string, value any, ts time.Time) *write.Point {
	if ts.IsZero() {
		ts = time.Now()
	}
	tags := map[string]string{
		"dsn":       dsn,
		"property":  property,
		"base_type": baseType,
	}
	fields := map[string]interface{}{
		"value": fieldValue(baseType, value),
	}
	return write.NewPoint(measurementDatapoint, tags, fields, ts)
}

func connectionPoint(dsn, status string, ts time.Time) *write.Point {
	if ts.IsZero() {
		ts = time.Now()
	}
	online := 0
	if strings.EqualFold(status, "online") {
		online = 1
	}
	return write.NewPoint(measurementConnection,
		map[string]string{"dsn": dsn},
		map[string]interface{}{"status": status, "online": online},
		ts,
	)
}

// fieldValue coerces a datapoint value into the Go type InfluxDB should
// store for the given base type. Values that cannot be coerced are stored
// as strings.
func fieldValue(baseType string, value any) interface{} {
	s := fmt.Sprint(value)
	switch strings.ToLower(baseType) {
	case "integer":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
	case "boolean":
		switch strings.ToLower(s) {
		case "1", "true":
			return true
		case "0", "false":
			return false
		}
	case "decimal", "float":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
