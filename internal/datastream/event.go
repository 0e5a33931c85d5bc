package datastream

import (
	"bytes"
	"encoding/json"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/device"
)

// Control frames sent by the stream service.
const (
	heartbeatFrame = "1|Z"
	keepAliveFrame = "1|X"
)

// Metadata says which device and property an event is about.
type Metadata struct {
	OEMID        string          `json:"oem_id,omitempty"`
	OEMModel     string          `json:"oem_model,omitempty"`
	DSN          string          `json:"dsn"`
	PropertyName string          `json:"property_name,omitempty"`
	DisplayName  string          `json:"display_name,omitempty"`
	BaseType     device.BaseType `json:"base_type,omitempty"`
	EventType    string          `json:"event_type"`
}

// Event is one datastream message.
type Event struct {
	Seq        string             `json:"seq,omitempty"`
	Datapoint  *device.Datapoint  `json:"datapoint,omitempty"`
	Metadata   Metadata           `json:"metadata"`
	Connection *device.Connection `json:"connection,omitempty"`
}

// DSNs returns the devices the event applies to. The service may send a
// comma separated list.
func (e *Event) DSNs() []string {
	return splitList(e.Metadata.DSN)
}

// ParseFrame decodes a "<length>|<json>" frame.
func ParseFrame(frame []byte) (*Event, error) {
	i := bytes.IndexByte(frame, '|')
	if i < 0 {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "datastream frame has no separator"}
	}
	var ev Event
	if err := json.Unmarshal(frame[i+1:], &ev); err != nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "decoding datastream frame", Err: err}
	}
	return &ev, nil
}
