package device

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

// deviceKeyPath returns the key-addressed device path. Several admin calls
// address the device by its numeric key rather than its DSN.
func deviceKeyPath(d *Device) (string, error) {
	if d == nil || d.Key == 0 {
		return "", cloud.InvalidArgument("device key is required")
	}
	return "apiv1/devices/" + strconv.FormatInt(d.Key, 10), nil
}

// UpdateProductName renames a device.
func (m *Manager) UpdateProductName(ctx context.Context, d *Device, name string) (*Device, error) {
	if name == "" {
		return nil, cloud.InvalidArgument("product name is required")
	}
	p, err := deviceKeyPath(d)
	if err != nil {
		return nil, err
	}
	u, err := m.url("%s.json", p)
	if err != nil {
		return nil, err
	}
	body := map[string]any{"device": map[string]string{"product_name": name}}
	if err := m.client.Put(ctx, u, body, nil); err != nil {
		return nil, fmt.Errorf("renaming %s: %w", d.DSN, err)
	}
	updated := d.DeepCopy()
	updated.ProductName = name
	return updated, nil
}

// Unregister removes a device from the account.
func (m *Manager) Unregister(ctx context.Context, d *Device) error {
	p, err := deviceKeyPath(d)
	if err != nil {
		return err
	}
	u, err := m.url("%s.json", p)
	if err != nil {
		return err
	}
	if err := m.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("unregistering %s: %w", d.DSN, err)
	}
	m.logger.Info("device unregistered", "dsn", d.DSN)
	return nil
}

// FactoryReset tells the device service to reset the device to factory settings.
func (m *Manager) FactoryReset(ctx context.Context, d *Device) error {
	p, err := deviceKeyPath(d)
	if err != nil {
		return err
	}
	u, err := m.url("%s/cmds/factory_reset.json", p)
	if err != nil {
		return err
	}
	if err := m.client.Put(ctx, u, nil, nil); err != nil {
		return fmt.Errorf("factory resetting %s: %w", d.DSN, err)
	}
	m.logger.Info("device factory reset requested", "dsn", d.DSN)
	return nil
}

type timeZoneWrapper struct {
	TimeZone *TimeZone `json:"time_zone"`
}

// FetchTimeZone returns the device's time zone.
func (m *Manager) FetchTimeZone(ctx context.Context, d *Device) (*TimeZone, error) {
	p, err := deviceKeyPath(d)
	if err != nil {
		return nil, err
	}
	u, err := m.url("%s/time_zones.json", p)
	if err != nil {
		return nil, err
	}
	var resp timeZoneWrapper
	if err := m.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching time zone of %s: %w", d.DSN, err)
	}
	if resp.TimeZone == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no time_zone"}
	}
	return resp.TimeZone, nil
}

// UpdateTimeZone sets the device's time zone by IANA id, e.g. "Europe/London".
func (m *Manager) UpdateTimeZone(ctx context.Context, d *Device, tzID string) (*TimeZone, error) {
	if tzID == "" {
		return nil, cloud.InvalidArgument("time zone id is required")
	}
	p, err := deviceKeyPath(d)
	if err != nil {
		return nil, err
	}
	u, err := m.url("%s/time_zones.json", p)
	if err != nil {
		return nil, err
	}
	var resp timeZoneWrapper
	if err := m.client.Put(ctx, u, map[string]string{"tz_id": tzID}, &resp); err != nil {
		return nil, fmt.Errorf("updating time zone of %s: %w", d.DSN, err)
	}
	if resp.TimeZone == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no time_zone"}
	}
	return resp.TimeZone, nil
}

// FetchConnectionInfo returns cellular link details of a device.
func (m *Manager) FetchConnectionInfo(ctx context.Context, dsn string) (*ConnectionInfo, error) {
	if err := ValidateDSN(dsn); err != nil {
		return nil, err
	}
	u, err := m.url("%s/connection_info.json", dsnPath(dsn))
	if err != nil {
		return nil, err
	}
	var resp struct {
		ConnectionInfo *ConnectionInfo `json:"connection_info"`
	}
	if err := m.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching connection info of %s: %w", dsn, err)
	}
	if resp.ConnectionInfo == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no connection_info"}
	}
	return resp.ConnectionInfo, nil
}

// FetchAlertHistory returns the alerts sent for a device.
func (m *Manager) FetchAlertHistory(ctx context.Context, dsn string, q AlertQuery) ([]Alert, error) {
	if err := ValidateDSN(dsn); err != nil {
		return nil, err
	}
	u, err := m.url("%s/devices/alert_history.json", dsnPath(dsn))
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	if q.Paginated {
		query.Set("paginated", "true")
		query.Set("page", strconv.Itoa(q.Page))
		query.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.OrderBy != "" {
		query.Set("order_by", q.OrderBy)
		if q.Order != "" {
			query.Set("order", q.Order)
		}
	}
	for k, v := range q.Filters {
		query.Set(k, v)
	}

	var resp struct {
		AlertHistories []struct {
			AlertHistory *Alert `json:"alert_history"`
		} `json:"alert_histories"`
	}
	if err := m.client.Get(ctx, u, query, &resp); err != nil {
		return nil, fmt.Errorf("fetching alert history of %s: %w", dsn, err)
	}
	alerts := make([]Alert, 0, len(resp.AlertHistories))
	for _, w := range resp.AlertHistories {
		if w.AlertHistory != nil {
			alerts = append(alerts, *w.AlertHistory)
		}
	}
	return alerts, nil
}

// FetchConnectionHistory returns the recent connect and disconnect events of a device.
func (m *Manager) FetchConnectionHistory(ctx context.Context, dsn string) ([]Connection, error) {
	if err := ValidateDSN(dsn); err != nil {
		return nil, err
	}
	u, err := m.url("%s/connection_history.json", dsnPath(dsn))
	if err != nil {
		return nil, err
	}
	var resp []struct {
		ConnectionHistory *Connection `json:"connection_history"`
	}
	if err := m.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching connection history of %s: %w", dsn, err)
	}
	events := make([]Connection, 0, len(resp))
	for _, w := range resp {
		if w.ConnectionHistory != nil {
			events = append(events, *w.ConnectionHistory)
		}
	}
	return events, nil
}

// CandidateQuery narrows the registration candidate lookup.
type CandidateQuery struct {
	DSN              string
	MAC              string
	RegistrationType RegistrationType
}

// FetchCandidate asks the device service for a device waiting to be registered.
func (m *Manager) FetchCandidate(ctx context.Context, q CandidateQuery) (*Candidate, error) {
	u, err := m.url("apiv1/devices/register.json")
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	if q.DSN != "" {
		query.Set("dsn", q.DSN)
	}
	if q.MAC != "" {
		query.Set("mac", q.MAC)
	}
	if q.RegistrationType != "" {
		query.Set("regtype", string(q.RegistrationType))
	}

	var resp struct {
		Device *Candidate `json:"device"`
	}
	if err := m.client.Get(ctx, u, query, &resp); err != nil {
		return nil, fmt.Errorf("fetching registration candidate: %w", err)
	}
	if resp.Device == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no device"}
	}
	resp.Device.RegistrationType = q.RegistrationType
	return resp.Device, nil
}

type registration struct {
	DSN        string `json:"dsn,omitempty"`
	SetupToken string `json:"setup_token,omitempty"`
	RegToken   string `json:"regtoken,omitempty"`
	Lat        string `json:"lat,omitempty"`
	Lng        string `json:"lng,omitempty"`
}

// RegisterDevice binds a candidate to the signed-in account.
//
// The fields sent depend on the registration type: Same-LAN and Button-Push
// register by DSN, AP-Mode adds the setup token, Display and the other
// token-based types send the registration token.
func (m *Manager) RegisterDevice(ctx context.Context, c *Candidate) (*Device, error) {
	if c == nil {
		return nil, cloud.InvalidArgument("registration candidate is required")
	}
	reg := registration{Lat: c.Lat, Lng: c.Lng}
	switch c.RegistrationType {
	case RegistrationSameLAN, RegistrationButtonPush, RegistrationNode, RegistrationLocal:
		reg.DSN = c.DSN
	case RegistrationAPMode:
		reg.DSN = c.DSN
		reg.SetupToken = c.SetupToken
	case RegistrationDisplay:
		reg.RegToken = c.RegistrationToken
	case RegistrationDSN:
		reg.DSN = c.DSN
		reg.RegToken = c.RegistrationToken
	case RegistrationNone:
		return nil, cloud.InvalidArgument("device %s does not support registration", c.DSN)
	default:
		reg.DSN = c.DSN
		reg.SetupToken = c.SetupToken
		reg.RegToken = c.RegistrationToken
	}
	if reg.DSN == "" && reg.RegToken == "" {
		return nil, cloud.InvalidArgument("registration needs a DSN or a registration token")
	}

	u, err := m.url("apiv1/devices.json")
	if err != nil {
		return nil, err
	}
	var resp deviceWrapper
	if err := m.client.Post(ctx, u, map[string]any{"device": reg}, &resp); err != nil {
		return nil, fmt.Errorf("registering device: %w", err)
	}
	if resp.Device == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no device"}
	}
	m.logger.Info("device registered", "dsn", resp.Device.DSN, "type", c.RegistrationType)
	return resp.Device, nil
}

// UpdateLocation reports the device's geographic position.
func (m *Manager) UpdateLocation(ctx context.Context, d *Device, loc Location) error {
	if loc.Lat == "" || loc.Long == "" {
		return cloud.InvalidArgument("latitude and longitude are required")
	}
	p, err := deviceKeyPath(d)
	if err != nil {
		return err
	}
	u, err := m.url("%s/locations.json", p)
	if err != nil {
		return err
	}
	if err := m.client.Post(ctx, u, map[string]any{"location": loc}, nil); err != nil {
		return fmt.Errorf("updating location of %s: %w", d.DSN, err)
	}
	return nil
}
