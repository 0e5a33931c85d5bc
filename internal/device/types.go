package device

import (
	"time"
)

// BaseType is the value type of a property.
type BaseType string

const (
	BaseTypeBoolean BaseType = "boolean"
	BaseTypeInteger BaseType = "integer"
	BaseTypeDecimal BaseType = "decimal"
	BaseTypeString  BaseType = "string"
	BaseTypeFile    BaseType = "file"
	BaseTypeMessage BaseType = "message"
)

// Direction tells whether the cloud may set a property.
type Direction string

const (
	// DirectionInput properties are settable from the cloud ("to_device").
	DirectionInput Direction = "input"
	// DirectionOutput properties are reported by the device ("from_device").
	DirectionOutput Direction = "output"
)

// ConnectionStatus values reported by the device service.
const (
	StatusOnline  = "Online"
	StatusOffline = "Offline"
)

// RegistrationType is how a device gets bound to a user account.
type RegistrationType string

const (
	RegistrationNone       RegistrationType = "None"
	RegistrationSameLAN    RegistrationType = "Same-LAN"
	RegistrationButtonPush RegistrationType = "Button-Push"
	RegistrationAPMode     RegistrationType = "AP-Mode"
	RegistrationDisplay    RegistrationType = "Display"
	RegistrationDSN        RegistrationType = "Dsn"
	RegistrationNode       RegistrationType = "Node"
	RegistrationLocal      RegistrationType = "Local"
)

// Grant describes how a shared device was granted to this user.
type Grant struct {
	UserID    int64  `json:"user_id,omitempty"`
	StartDate string `json:"start_date_at,omitempty"`
	EndDate   string `json:"end_date_at,omitempty"`
	Operation string `json:"operation,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Device is one device bound to the signed-in account.
type Device struct {
	Key              int64            `json:"key,omitempty"`
	DSN              string           `json:"dsn"`
	ProductName      string           `json:"product_name,omitempty"`
	Model            string           `json:"model,omitempty"`
	OEMModel         string           `json:"oem_model,omitempty"`
	ProductClass     string           `json:"product_class,omitempty"`
	ConnectedAt      string           `json:"connected_at,omitempty"`
	ConnectionStatus string           `json:"connection_status,omitempty"`
	HasProperties    bool             `json:"has_properties,omitempty"`
	IP               string           `json:"ip,omitempty"`
	LANEnabled       bool             `json:"lan_enabled,omitempty"`
	LANIP            string           `json:"lan_ip,omitempty"`
	Lat              string           `json:"lat,omitempty"`
	Lng              string           `json:"lng,omitempty"`
	MAC              string           `json:"mac,omitempty"`
	ModuleUpdatedAt  string           `json:"module_updated_at,omitempty"`
	SWVersion        string           `json:"sw_version,omitempty"`
	SSID             string           `json:"ssid,omitempty"`
	UserID           int64            `json:"user_id,omitempty"`
	TemplateID       int64            `json:"template_id,omitempty"`
	RegistrationType RegistrationType `json:"registration_type,omitempty"`
	Grant            *Grant           `json:"grant,omitempty"`
}

// IsOnline reports whether the device service last saw the device online.
func (d *Device) IsOnline() bool {
	return d.ConnectionStatus == StatusOnline
}

// DeepCopy returns an independent copy of d.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	if d.Grant != nil {
		g := *d.Grant
		cpy.Grant = &g
	}
	return &cpy
}

// Property is one named value on a device.
type Property struct {
	Key           int64          `json:"key,omitempty"`
	Name          string         `json:"name"`
	DisplayName   string         `json:"display_name,omitempty"`
	BaseType      BaseType       `json:"base_type"`
	Direction     Direction      `json:"direction,omitempty"`
	Type          string         `json:"type,omitempty"`
	ReadOnly      bool           `json:"read_only,omitempty"`
	Value         any            `json:"value"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	DataUpdatedAt string         `json:"data_updated_at,omitempty"`
	AckEnabled    bool           `json:"ack_enabled,omitempty"`
	AckStatus     *int           `json:"ack_status,omitempty"`
	AckMessage    *int           `json:"ack_message,omitempty"`
	AckedAt       string         `json:"acked_at,omitempty"`
}

// Settable reports whether a datapoint may be created from the cloud side.
func (p *Property) Settable() bool {
	return !p.ReadOnly && p.Direction != DirectionOutput
}

// DeepCopy returns an independent copy of p.
func (p *Property) DeepCopy() *Property {
	if p == nil {
		return nil
	}
	cpy := *p
	cpy.Value = deepCopyValue(p.Value)
	cpy.Metadata = deepCopyMap(p.Metadata)
	if p.AckStatus != nil {
		v := *p.AckStatus
		cpy.AckStatus = &v
	}
	if p.AckMessage != nil {
		v := *p.AckMessage
		cpy.AckMessage = &v
	}
	return &cpy
}

// Datapoint is one recorded value of a property.
type Datapoint struct {
	ID                  string         `json:"id,omitempty"`
	Value               any            `json:"value"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	CreatedAt           string         `json:"created_at,omitempty"`
	CreatedAtFromDevice string         `json:"created_at_from_device,omitempty"`
	UpdatedAt           string         `json:"updated_at,omitempty"`
	Echo                bool           `json:"echo,omitempty"`
	AckEnabled          bool           `json:"ack_enabled,omitempty"`
	AckStatus           *int           `json:"ack_status,omitempty"`
	AckMessage          *int           `json:"ack_message,omitempty"`
	AckedAt             string         `json:"acked_at,omitempty"`

	// File and Closed are only set on blob (file) datapoints. Value then
	// holds the datapoint location URL and File the pre-signed transfer URL.
	File   string `json:"file,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// Location returns the location URL of a blob datapoint.
func (dp *Datapoint) Location() string {
	s, _ := dp.Value.(string) //nolint:errcheck // non-string means no location
	return s
}

// Acked reports whether the device has acknowledged the datapoint.
func (dp *Datapoint) Acked() bool {
	return dp.AckedAt != ""
}

// CreatedTime parses CreatedAt, falling back to now when it is absent.
func (dp *Datapoint) CreatedTime() time.Time {
	if t, err := time.Parse(time.RFC3339, dp.CreatedAt); err == nil {
		return t
	}
	return time.Now().UTC()
}

// TimeZone is the device's time zone setting.
type TimeZone struct {
	Key               int64  `json:"key,omitempty"`
	TZID              string `json:"tz_id,omitempty"`
	UTCOffset         string `json:"utc_offset,omitempty"`
	DST               bool   `json:"dst,omitempty"`
	DSTActive         bool   `json:"dst_active,omitempty"`
	DSTNextChangeDate string `json:"dst_next_change_date,omitempty"`
	DSTNextChangeTime string `json:"dst_next_change_time,omitempty"`
}

// ConnectionInfo describes a cellular device's current link.
type ConnectionInfo struct {
	ConnectivityType       string `json:"connectivity_type,omitempty"`
	ConnectivityTechnology string `json:"connectivity_technology,omitempty"`
	NetworkOperator        string `json:"network_operator,omitempty"`
	NetworkName            string `json:"network_name,omitempty"`
	EquipmentID            string `json:"equipment_id,omitempty"`
	SubscriptionID         string `json:"subscription_id,omitempty"`
	BaseStation            string `json:"base_station,omitempty"`
	LastCellConnectionAt   string `json:"last_cell_connection_at,omitempty"`
	RSSI                   string `json:"rssi,omitempty"`
}

// Alert is one entry of a device's alert history.
type Alert struct {
	OEM                           string         `json:"oem,omitempty"`
	SentAt                        string         `json:"sent_at,omitempty"`
	AlertType                     string         `json:"alert_type,omitempty"`
	PropertyID                    string         `json:"property_id,omitempty"`
	PropertyName                  string         `json:"property_name,omitempty"`
	PropertyDescription           string         `json:"property_description,omitempty"`
	PropertyValue                 string         `json:"property_value,omitempty"`
	PropertyDataUpdatedAt         string         `json:"property_data_updated_at,omitempty"`
	PropertyDataUpdatedAtDeviceTZ string         `json:"property_data_updated_at_device_tz,omitempty"`
	TriggerID                     string         `json:"trigger_id,omitempty"`
	TriggerDescription            string         `json:"trigger_description,omitempty"`
	TriggerTriggeredAt            string         `json:"trigger_triggered_at,omitempty"`
	TriggerAppDescription         string         `json:"trigger_app_description,omitempty"`
	ContentDescription            string         `json:"content_description,omitempty"`
	RawMessage                    map[string]any `json:"raw_message,omitempty"`
	AlertContent                  map[string]any `json:"alert_content,omitempty"`
}

// AlertQuery selects a page of alert history.
type AlertQuery struct {
	// Page and PerPage are sent only when Paginated is set.
	Paginated bool
	Page      int
	PerPage   int
	// Filters are sent as query parameters, e.g. "filters[alert_type]": "email".
	Filters map[string]string
	// OrderBy and Order ("asc" or "desc") sort the result.
	OrderBy string
	Order   string
}

// Connection is one connect or disconnect event.
type Connection struct {
	EventTime string `json:"event_time,omitempty"`
	UserUUID  string `json:"user_uuid,omitempty"`
	Status    string `json:"status"`
}

// Candidate is a device waiting to be registered.
type Candidate struct {
	DSN               string           `json:"dsn"`
	LANIP             string           `json:"lan_ip,omitempty"`
	Model             string           `json:"model,omitempty"`
	OEMModel          string           `json:"oem_model,omitempty"`
	ProductName       string           `json:"product_name,omitempty"`
	ProductClass      string           `json:"product_class,omitempty"`
	ConnectedAt       string           `json:"connected_at,omitempty"`
	ConnectionStatus  string           `json:"connection_status,omitempty"`
	DeviceType        string           `json:"device_type,omitempty"`
	MAC               string           `json:"mac,omitempty"`
	SetupToken        string           `json:"setup_token,omitempty"`
	RegistrationToken string           `json:"regtoken,omitempty"`
	Lat               string           `json:"lat,omitempty"`
	Lng               string           `json:"lng,omitempty"`
	UniqueHardwareID  string           `json:"unique_hardware_id,omitempty"`
	RegistrationType  RegistrationType `json:"registration_type,omitempty"`
}

// Location is a geographic position reported for a device.
type Location struct {
	Lat      string `json:"lat"`
	Long     string `json:"long"`
	Provider string `json:"provider,omitempty"`
}

// BatchDatapoint is one entry of a batch datapoint request.
type BatchDatapoint struct {
	DSN      string
	Property string
	Value    any
	Metadata map[string]any
}

// BatchResult is the cloud's answer for one batch entry.
type BatchResult struct {
	DSN       string     `json:"dsn"`
	Name      string     `json:"name"`
	Status    int        `json:"status"`
	Datapoint *Datapoint `json:"datapoint,omitempty"`
}

// OK reports whether this entry was accepted.
func (r BatchResult) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// PropertyChange describes a value change applied to the registry.
type PropertyChange struct {
	DSN       string
	Property  string
	BaseType  BaseType
	OldValue  any
	NewValue  any
	UpdatedAt time.Time
}

// deepCopyMap creates a deep copy of a map[string]any.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v
	}
}
