package device

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud/cloudtest"
)

func TestManager_AdminCalls(t *testing.T) {
	dev := &Device{Key: 42, DSN: testDSN, ProductName: "Lamp"}
	ctx := context.Background()

	tests := []struct {
		name     string
		method   string
		path     string
		response string
		call     func(m *Manager) error
		wantBody map[string]any
	}{
		{
			name:   "rename",
			method: http.MethodPut,
			path:   "/apiv1/devices/42.json",
			call: func(m *Manager) error {
				d, err := m.UpdateProductName(ctx, dev, "Desk lamp")
				if err == nil && d.ProductName != "Desk lamp" {
					return errors.New("name not updated on the returned copy")
				}
				return err
			},
			wantBody: map[string]any{"device": map[string]any{"product_name": "Desk lamp"}},
		},
		{
			name:   "unregister",
			method: http.MethodDelete,
			path:   "/apiv1/devices/42.json",
			call:   func(m *Manager) error { return m.Unregister(ctx, dev) },
		},
		{
			name:   "factory reset",
			method: http.MethodPut,
			path:   "/apiv1/devices/42/cmds/factory_reset.json",
			call:   func(m *Manager) error { return m.FactoryReset(ctx, dev) },
		},
		{
			name:     "update time zone",
			method:   http.MethodPut,
			path:     "/apiv1/devices/42/time_zones.json",
			response: `{"time_zone":{"tz_id":"Europe/London","utc_offset":"+00:00","dst":true}}`,
			call: func(m *Manager) error {
				tz, err := m.UpdateTimeZone(ctx, dev, "Europe/London")
				if err == nil && (tz.TZID != "Europe/London" || !tz.DST) {
					return errors.New("unexpected time zone")
				}
				return err
			},
			wantBody: map[string]any{"tz_id": "Europe/London"},
		},
		{
			name:   "update location",
			method: http.MethodPost,
			path:   "/apiv1/devices/42/locations.json",
			call: func(m *Manager) error {
				return m.UpdateLocation(ctx, dev, Location{Lat: "51.5", Long: "-0.12", Provider: "user"})
			},
			wantBody: map[string]any{"location": map[string]any{"lat": "51.5", "long": "-0.12", "provider": "user"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := cloudtest.New(t)
			resp := tt.response
			if resp == "" {
				resp = `{}`
			}
			srv.Handle(tt.method, tt.path, http.StatusOK, resp)

			if err := tt.call(NewManager(srv.Client)); err != nil {
				t.Fatalf("call error = %v", err)
			}
			if srv.Count(tt.method, tt.path) != 1 {
				t.Fatalf("expected one %s %s, got requests %+v", tt.method, tt.path, srv.Requests())
			}
			if tt.wantBody != nil {
				if diff := cmp.Diff(tt.wantBody, srv.Last().JSON(t)); diff != "" {
					t.Errorf("body mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestManager_AdminNeedsKey(t *testing.T) {
	srv := cloudtest.New(t)
	mgr := NewManager(srv.Client)
	noKey := &Device{DSN: testDSN}

	if err := mgr.Unregister(context.Background(), noKey); !errors.Is(err, cloud.ErrInvalidArgument) {
		t.Errorf("Unregister() error = %v, want InvalidArgument", err)
	}
	if _, err := mgr.FetchTimeZone(context.Background(), nil); !errors.Is(err, cloud.ErrInvalidArgument) {
		t.Errorf("FetchTimeZone(nil) error = %v, want InvalidArgument", err)
	}
	if len(srv.Requests()) != 0 {
		t.Error("no request should be sent without a device key")
	}
}

func TestManager_FetchConnectionInfo(t *testing.T) {
	srv := cloudtest.New(t)
	srv.Handle(http.MethodGet, "/apiv1/dsns/"+testDSN+"/connection_info.json", http.StatusOK,
		`{"connection_info":{"connectivity_type":"cellular","network_operator":"Etisalat","rssi":"-71"}}`)

	info, err := NewManager(srv.Client).FetchConnectionInfo(context.Background(), testDSN)
	if err != nil {
		t.Fatalf("FetchConnectionInfo() error = %v", err)
	}
	want := &ConnectionInfo{ConnectivityType: "cellular", NetworkOperator: "Etisalat", RSSI: "-71"}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("FetchConnectionInfo() mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_FetchAlertHistory(t *testing.T) {
	srv := cloudtest.New(t)
	srv.Handle(http.MethodGet, "/apiv1/dsns/"+testDSN+"/devices/alert_history.json", http.StatusOK,
		`{"alert_histories":[{"alert_history":{"alert_type":"email","property_name":"Blue_LED","sent_at":"2026-03-01T10:00:00Z"}}]}`)

	alerts, err := NewManager(srv.Client).FetchAlertHistory(context.Background(), testDSN, AlertQuery{
		Paginated: true,
		Page:      2,
		PerPage:   10,
		Filters:   map[string]string{"filters[alert_type]": "email"},
		OrderBy:   "sent_at",
		Order:     "desc",
	})
	if err != nil {
		t.Fatalf("FetchAlertHistory() error = %v", err)
	}
	if len(alerts) != 1 || alerts[0].AlertType != "email" || alerts[0].PropertyName != "Blue_LED" {
		t.Errorf("alerts = %+v", alerts)
	}

	q, _ := url.ParseQuery(srv.Last().RawQuery)
	want := url.Values{
		"paginated":           {"true"},
		"page":                {"2"},
		"per_page":            {"10"},
		"order_by":            {"sent_at"},
		"order":               {"desc"},
		"filters[alert_type]": {"email"},
	}
	if diff := cmp.Diff(want, q); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_FetchConnectionHistory(t *testing.T) {
	srv := cloudtest.New(t)
	srv.Handle(http.MethodGet, "/apiv1/dsns/"+testDSN+"/connection_history.json", http.StatusOK,
		`[{"connection_history":{"event_time":"2026-03-01T10:00:00Z","status":"Online"}},{"connection_history":{"status":"Offline"}}]`)

	events, err := NewManager(srv.Client).FetchConnectionHistory(context.Background(), testDSN)
	if err != nil {
		t.Fatalf("FetchConnectionHistory() error = %v", err)
	}
	want := []Connection{{EventTime: "2026-03-01T10:00:00Z", Status: "Online"}, {Status: "Offline"}}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("FetchConnectionHistory() mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_Registration(t *testing.T) {
	srv := cloudtest.New(t)
	srv.Handle(http.MethodGet, "/apiv1/devices/register.json", http.StatusOK,
		`{"device":{"dsn":"AC000W000000009","lan_ip":"10.0.0.5","setup_token":"tok","regtoken":"reg"}}`)
	srv.Handle(http.MethodPost, "/apiv1/devices.json", http.StatusCreated,
		`{"device":{"key":9,"dsn":"AC000W000000009","product_name":"New"}}`)
	mgr := NewManager(srv.Client)
	ctx := context.Background()

	c, err := mgr.FetchCandidate(ctx, CandidateQuery{DSN: "AC000W000000009", RegistrationType: RegistrationAPMode})
	if err != nil {
		t.Fatalf("FetchCandidate() error = %v", err)
	}
	q, _ := url.ParseQuery(srv.Last().RawQuery)
	if q.Get("dsn") != "AC000W000000009" || q.Get("regtype") != "AP-Mode" {
		t.Errorf("candidate query = %v", q)
	}
	if c.RegistrationType != RegistrationAPMode || c.SetupToken != "tok" {
		t.Errorf("candidate = %+v", c)
	}

	tests := []struct {
		regType RegistrationType
		want    map[string]any
	}{
		{RegistrationAPMode, map[string]any{"dsn": "AC000W000000009", "setup_token": "tok"}},
		{RegistrationSameLAN, map[string]any{"dsn": "AC000W000000009"}},
		{RegistrationDisplay, map[string]any{"regtoken": "reg"}},
		{RegistrationDSN, map[string]any{"dsn": "AC000W000000009", "regtoken": "reg"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.regType), func(t *testing.T) {
			cand := *c
			cand.RegistrationType = tt.regType
			d, err := mgr.RegisterDevice(ctx, &cand)
			if err != nil {
				t.Fatalf("RegisterDevice() error = %v", err)
			}
			if d.Key != 9 {
				t.Errorf("registered device = %+v", d)
			}
			got := srv.Last().JSON(t)["device"]
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("registration body mismatch (-want +got):\n%s", diff)
			}
		})
	}

	cand := *c
	cand.RegistrationType = RegistrationNone
	if _, err := mgr.RegisterDevice(ctx, &cand); !errors.Is(err, cloud.ErrInvalidArgument) {
		t.Errorf("RegisterDevice(None) error = %v, want InvalidArgument", err)
	}
}
