package device

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/datum"
)

// Logger defines the logging interface used by the device package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

const (
	// MaxDatapointCount is the most datapoints one fetch returns.
	MaxDatapointCount = 100

	defaultAckTries    = 5
	defaultAckInterval = time.Second

	// sourceHeader marks datapoints created by this client.
	sourceHeader = "x-ayla-source"
	sourceValue  = "Mobile"
)

// Manager wraps the device service calls for devices, properties and datapoints.
type Manager struct {
	client *cloud.Client
	logger Logger

	ackTries    int
	ackInterval time.Duration
}

// NewManager creates a device manager on top of a cloud client.
func NewManager(client *cloud.Client) *Manager {
	return &Manager{
		client:      client,
		logger:      noopLogger{},
		ackTries:    defaultAckTries,
		ackInterval: defaultAckInterval,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetAckPolling changes how often and how long CreateDatapoint waits for an ack.
func (m *Manager) SetAckPolling(tries int, interval time.Duration) {
	m.ackTries = tries
	m.ackInterval = interval
}

// Data returns the datum collection of a device.
func (m *Manager) Data(dsn string) *datum.Client {
	return datum.ForDevice(m.client, dsn)
}

func (m *Manager) url(format string, args ...any) (string, error) {
	return m.client.URL(cloud.ServiceDevice, fmt.Sprintf(format, args...))
}

func dsnPath(dsn string) string {
	return "apiv1/dsns/" + url.PathEscape(dsn)
}

func propertyPath(dsn, property string) string {
	return dsnPath(dsn) + "/properties/" + url.PathEscape(property)
}

type deviceWrapper struct {
	Device *Device `json:"device"`
}

type propertyWrapper struct {
	Property *Property `json:"property"`
}

type datapointWrapper struct {
	Datapoint *Datapoint `json:"datapoint"`
}

// FetchDevices lists every device on the account.
func (m *Manager) FetchDevices(ctx context.Context) ([]Device, error) {
	u, err := m.url("apiv1/devices.json")
	if err != nil {
		return nil, err
	}
	var resp []deviceWrapper
	if err := m.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching devices: %w", err)
	}
	devices := make([]Device, 0, len(resp))
	for _, w := range resp {
		if w.Device != nil {
			devices = append(devices, *w.Device)
		}
	}
	m.logger.Debug("devices fetched", "count", len(devices))
	return devices, nil
}

// FetchDevice fetches one device by DSN.
func (m *Manager) FetchDevice(ctx context.Context, dsn string) (*Device, error) {
	if err := ValidateDSN(dsn); err != nil {
		return nil, err
	}
	u, err := m.url("%s.json", dsnPath(dsn))
	if err != nil {
		return nil, err
	}
	var resp deviceWrapper
	if err := m.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching device %s: %w", dsn, err)
	}
	if resp.Device == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no device"}
	}
	return resp.Device, nil
}

// FetchProperties fetches the properties of a device. With no names every
// property is returned.
func (m *Manager) FetchProperties(ctx context.Context, dsn string, names ...string) ([]Property, error) {
	if err := ValidateDSN(dsn); err != nil {
		return nil, err
	}
	u, err := m.url("%s/properties.json", dsnPath(dsn))
	if err != nil {
		return nil, err
	}
	var query url.Values
	if len(names) > 0 {
		query = url.Values{"names[]": names}
	}

	var resp []propertyWrapper
	if err := m.client.Get(ctx, u, query, &resp); err != nil {
		return nil, fmt.Errorf("fetching properties of %s: %w", dsn, err)
	}
	props := make([]Property, 0, len(resp))
	for _, w := range resp {
		if w.Property != nil {
			props = append(props, *w.Property)
		}
	}
	return props, nil
}

// FetchDatapoints fetches recent datapoints of a property, newest first.
//
// Parameters:
//   - count: How many datapoints to return, capped at MaxDatapointCount; 0 uses the cap
//   - from, to: Optional creation time window; zero values are left out
func (m *Manager) FetchDatapoints(ctx context.Context, dsn, property string, count int, from, to time.Time) ([]Datapoint, error) {
	if err := ValidateDSN(dsn); err != nil {
		return nil, err
	}
	if property == "" {
		return nil, cloud.InvalidArgument("property name is required")
	}
	if count <= 0 || count > MaxDatapointCount {
		count = MaxDatapointCount
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, cloud.InvalidArgument("datapoint window ends before it starts")
	}

	u, err := m.url("%s/datapoints.json", propertyPath(dsn, property))
	if err != nil {
		return nil, err
	}
	query := url.Values{"limit": {strconv.Itoa(count)}}
	if !from.IsZero() {
		query.Set("filter[created_at_since_date]", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		query.Set("filter[created_at_end_date]", to.UTC().Format(time.RFC3339))
	}

	var resp []datapointWrapper
	if err := m.client.Get(ctx, u, query, &resp); err != nil {
		return nil, fmt.Errorf("fetching datapoints of %s/%s: %w", dsn, property, err)
	}
	points := make([]Datapoint, 0, len(resp))
	for _, w := range resp {
		if w.Datapoint != nil {
			points = append(points, *w.Datapoint)
		}
	}
	return points, nil
}

// FetchDatapoint fetches one datapoint by id.
func (m *Manager) FetchDatapoint(ctx context.Context, dsn, property, id string) (*Datapoint, error) {
	u, err := m.url("%s/datapoints/%s.json", propertyPath(dsn, property), url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var resp datapointWrapper
	if err := m.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching datapoint %s: %w", id, err)
	}
	if resp.Datapoint == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no datapoint"}
	}
	return resp.Datapoint, nil
}

type newDatapoint struct {
	Value    any            `json:"value"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CreateDatapoint sets a property by creating a datapoint for it.
//
// The value is converted with NormalizeValue for the property's base type.
// Properties reported by the device (direction output) and read-only
// properties are rejected. For ack-enabled properties the call waits for
// the device acknowledgement.
//
// Parameters:
//   - dsn: Device serial number
//   - prop: The property as fetched from the device service
//   - value: New value
//   - metadata: Optional datapoint metadata
//
// Returns:
//   - *Datapoint: The created (and, when ack-enabled, acknowledged) datapoint
//   - error: InvalidArgument for a bad value or non-settable property;
//     ErrAckTimeout alongside the datapoint when no ack arrived
func (m *Manager) CreateDatapoint(ctx context.Context, dsn string, prop *Property, value any, metadata map[string]any) (*Datapoint, error) {
	if err := ValidateDSN(dsn); err != nil {
		return nil, err
	}
	if prop == nil || prop.Name == "" {
		return nil, cloud.InvalidArgument("property is required")
	}
	if !prop.Settable() {
		return nil, cloud.InvalidArgument("property %s is read only", prop.Name)
	}
	v, err := NormalizeValue(prop.BaseType, value)
	if err != nil {
		return nil, err
	}

	u, err := m.url("%s/datapoints.json", propertyPath(dsn, prop.Name))
	if err != nil {
		return nil, err
	}
	req := cloud.Request{
		Method: http.MethodPost,
		URL:    u,
		Body:   map[string]any{"datapoint": newDatapoint{Value: v, Metadata: metadata}},
		Header: http.Header{sourceHeader: {sourceValue}},
	}
	var resp datapointWrapper
	if err := m.client.Do(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("creating datapoint on %s/%s: %w", dsn, prop.Name, err)
	}
	if resp.Datapoint == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no datapoint"}
	}
	m.logger.Debug("datapoint created", "dsn", dsn, "property", prop.Name, "id", resp.Datapoint.ID)

	if !prop.AckEnabled || resp.Datapoint.ID == "" {
		return resp.Datapoint, nil
	}
	return m.waitForAck(ctx, dsn, prop.Name, resp.Datapoint)
}

// waitForAck polls the datapoint until acked_at is set or the tries run out.
func (m *Manager) waitForAck(ctx context.Context, dsn, property string, dp *Datapoint) (*Datapoint, error) {
	for i := 0; i < m.ackTries; i++ {
		timer := time.NewTimer(m.ackInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return dp, cloud.Canceled(ctx.Err())
		case <-timer.C:
		}

		polled, err := m.FetchDatapoint(ctx, dsn, property, dp.ID)
		if err != nil {
			return dp, err
		}
		if polled.Acked() {
			return polled, nil
		}
	}
	m.logger.Warn("datapoint not acknowledged", "dsn", dsn, "property", property, "id", dp.ID)
	return dp, ErrAckTimeout
}

type batchEntry struct {
	Datapoint newDatapoint `json:"datapoint"`
	DSN       string       `json:"dsn"`
	Name      string       `json:"name"`
}

// CreateBatchDatapoints sets several properties, possibly on several
// devices, in one request. Values are sent as given; the cloud reports a
// status per entry.
func (m *Manager) CreateBatchDatapoints(ctx context.Context, batch []BatchDatapoint) ([]BatchResult, error) {
	if len(batch) == 0 {
		return nil, cloud.Precondition("batch datapoint request is empty")
	}
	entries := make([]batchEntry, 0, len(batch))
	for i, b := range batch {
		if b.DSN == "" || b.Property == "" {
			return nil, cloud.InvalidArgument("batch entry %d needs a DSN and a property", i)
		}
		entries = append(entries, batchEntry{
			Datapoint: newDatapoint{Value: b.Value, Metadata: b.Metadata},
			DSN:       b.DSN,
			Name:      b.Property,
		})
	}

	u, err := m.url("apiv1/batch_datapoints.json")
	if err != nil {
		return nil, err
	}
	req := cloud.Request{
		Method: http.MethodPost,
		URL:    u,
		Body:   map[string]any{"batch_datapoints": entries},
		Header: http.Header{sourceHeader: {sourceValue}},
	}
	var results []BatchResult
	if err := m.client.Do(ctx, req, &results); err != nil {
		return nil, fmt.Errorf("creating batch datapoints: %w", err)
	}
	return results, nil
}

// IsAckTimeout reports whether err means the datapoint was written but not acknowledged.
func IsAckTimeout(err error) bool {
	return errors.Is(err, ErrAckTimeout)
}
