package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/config"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

// newTestClient points every service at a TLS test server running handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	overrides := make(map[Service]string, len(AllServices))
	for _, svc := range AllServices {
		overrides[svc] = srv.URL + "/"
	}
	c := New(Settings{
		AppID:     "app-id",
		AppSecret: "app-secret",
		Provider:  AWS,
		Location:  USA,
		Type:      Development,
		UserAgent: "aylasdk-test",
		Overrides: overrides,
	})
	c.SetHTTPClient(srv.Client())
	return c, srv
}

func TestDo_HeadersAndDecode(t *testing.T) {
	var got *http.Request
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		json.NewDecoder(r.Body).Decode(&gotBody) //nolint:errcheck // asserted below
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"device":{"dsn":"AC000W1","product_name":"Lamp"}}`) //nolint:errcheck // test
	})
	c.SetTokenSource(staticToken("tok-123"))

	u, err := c.URL(ServiceDevice, "apiv1/devices/1.json")
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}

	var out struct {
		Device struct {
			DSN         string `json:"dsn"`
			ProductName string `json:"product_name"`
		} `json:"device"`
	}
	body := map[string]any{"device": map[string]string{"product_name": "Lamp"}}
	if err := c.Put(context.Background(), u, body, &out); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if got.Method != http.MethodPut || got.URL.Path != "/apiv1/devices/1.json" {
		t.Errorf("request = %s %s", got.Method, got.URL.Path)
	}
	if h := got.Header.Get("Authorization"); h != "auth_token tok-123" {
		t.Errorf("Authorization = %q", h)
	}
	if h := got.Header.Get("Accept"); h != "application/json" {
		t.Errorf("Accept = %q", h)
	}
	if h := got.Header.Get("Content-Type"); h != "application/json" {
		t.Errorf("Content-Type = %q", h)
	}
	if h := got.Header.Get("User-Agent"); h != "aylasdk-test" {
		t.Errorf("User-Agent = %q", h)
	}
	want := map[string]any{"device": map[string]any{"product_name": "Lamp"}}
	if diff := cmp.Diff(want, gotBody); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
	if out.Device.DSN != "AC000W1" || out.Device.ProductName != "Lamp" {
		t.Errorf("decoded = %+v", out)
	}
}

func TestDo_NoTokenSendsNone(t *testing.T) {
	var auth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
	})
	u, _ := c.URL(ServiceUser, "users/sign_in.json")
	if err := c.Post(context.Background(), u, map[string]string{}, nil); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if auth != "auth_token none" {
		t.Errorf("Authorization = %q, want auth_token none", auth)
	}
}

func TestDo_PlainHTTPHasNoAuthorization(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	c := New(Settings{})
	c.SetTokenSource(staticToken("tok"))
	if err := c.Get(context.Background(), srv.URL+"/x", nil, nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if auth != "" {
		t.Errorf("Authorization = %q, want none over plain http", auth)
	}
}

func TestDo_Query(t *testing.T) {
	var query url.Values
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		io.WriteString(w, `[]`) //nolint:errcheck // test
	})
	u, _ := c.URL(ServiceDevice, "apiv1/dsns/AC1/properties.json?existing=1")
	q := url.Values{"names[]": {"Blue_LED", "Green_LED"}}

	var out []any
	if err := c.Get(context.Background(), u, q, &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Blue_LED", "Green_LED"}, query["names[]"]); diff != "" {
		t.Errorf("names[] mismatch (-want +got):\n%s", diff)
	}
	if query.Get("existing") != "1" {
		t.Error("existing query values should be kept")
	}
}

func TestDo_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		out     any
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad token"}`, nil, ErrAuth},
		{"forbidden", http.StatusForbidden, ``, nil, ErrAuth},
		{"not found", http.StatusNotFound, `{"error":"missing"}`, nil, ErrServer},
		{"server", http.StatusBadGateway, `oops`, nil, ErrServer},
		{"bad json", http.StatusOK, `{not json`, &map[string]any{}, ErrJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body) //nolint:errcheck // test
			})
			u, _ := c.URL(ServiceDevice, "x.json")
			err := c.Get(context.Background(), u, nil, tt.out)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Get() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDo_EmptyBodyIsFine(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	u, _ := c.URL(ServiceDevice, "x.json")

	var out map[string]any
	if err := c.Delete(context.Background(), u, &out); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	var empty EmptyResponse
	if err := c.Delete(context.Background(), u, &empty); err != nil {
		t.Errorf("Delete() into EmptyResponse error = %v", err)
	}
}

func TestDo_DefaultTimeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c.settings.Timeout = 50 * time.Millisecond

	u, _ := c.URL(ServiceDevice, "slow.json")
	err := c.Get(context.Background(), u, nil, nil)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Get() error = %v, want ErrTimeout", err)
	}
}

func TestDo_Canceled(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	u, _ := c.URL(ServiceDevice, "x.json")
	if err := c.Get(ctx, u, nil, nil); !errors.Is(err, ErrCanceled) {
		t.Errorf("Get() error = %v, want ErrCanceled", err)
	}
}

func TestDo_NetworkError(t *testing.T) {
	c := New(Settings{})
	err := c.Get(context.Background(), "https://127.0.0.1:1/x.json", nil, nil)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Get() error = %v, want ErrNetwork", err)
	}
}

func TestDo_InvalidURL(t *testing.T) {
	c := New(Settings{})
	if err := c.Get(context.Background(), "not a url", nil, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Get() error = %v, want ErrInvalidArgument", err)
	}
}

func TestReachable(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if err := c.Reachable(context.Background()); err != nil {
		t.Errorf("Reachable() error = %v, any HTTP answer should count", err)
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.AylaConfig{
		AppID:           "id",
		AppSecret:       "secret",
		CloudProvider:   "aws",
		ServiceLocation: "europe",
		ServiceType:     "field",
		TimeoutMS:       2500,
		ServiceURLs:     map[string]string{"user": "https://user.local/"},
	}
	got, err := SettingsFromConfig(cfg)
	if err != nil {
		t.Fatalf("SettingsFromConfig() error = %v", err)
	}
	want := Settings{
		AppID:     "id",
		AppSecret: "secret",
		Provider:  AWS,
		Location:  Europe,
		Type:      Field,
		Timeout:   2500 * time.Millisecond,
		Overrides: map[Service]string{ServiceUser: "https://user.local/"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SettingsFromConfig() mismatch (-want +got):\n%s", diff)
	}

	cfg.ServiceURLs = map[string]string{"billing": "https://x"}
	if _, err := SettingsFromConfig(cfg); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown service override error = %v", err)
	}
}
