package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/config"
)

// DefaultTimeout applies to requests whose context carries no deadline.
const DefaultTimeout = 5 * time.Second

// maxResponseSize bounds how much of a response body is read into memory.
const maxResponseSize = 16 << 20

// Logger defines the logging interface used by the cloud client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// TokenSource supplies the current access token. An empty string means the
// client is not signed in.
type TokenSource interface {
	AccessToken() string
}

// Settings identifies the application and the Ayla environment it talks to.
type Settings struct {
	AppID     string
	AppSecret string
	Provider  CloudProvider
	Location  ServiceLocation
	Type      ServiceType
	UserAgent string
	Timeout   time.Duration
	Overrides map[Service]string
}

// SettingsFromConfig converts the ayla config section into Settings.
func SettingsFromConfig(cfg config.AylaConfig) (Settings, error) {
	provider, err := ParseCloudProvider(cfg.CloudProvider)
	if err != nil {
		return Settings{}, err
	}
	location, err := ParseServiceLocation(cfg.ServiceLocation)
	if err != nil {
		return Settings{}, err
	}
	typ, err := ParseServiceType(cfg.ServiceType)
	if err != nil {
		return Settings{}, err
	}

	overrides := make(map[Service]string, len(cfg.ServiceURLs))
	for name, u := range cfg.ServiceURLs {
		svc, err := ParseService(name)
		if err != nil {
			return Settings{}, fmt.Errorf("service_urls: %w", err)
		}
		overrides[svc] = u
	}

	return Settings{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		Provider:  provider,
		Location:  location,
		Type:      typ,
		UserAgent: cfg.UserAgent,
		Timeout:   time.Duration(cfg.TimeoutMS) * time.Millisecond,
		Overrides: overrides,
	}, nil
}

// EmptyResponse is decoded from calls whose success body carries nothing of interest.
type EmptyResponse struct{}

// Request describes one call to an Ayla service.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	// Body is JSON-encoded unless it is already []byte or json.RawMessage.
	Body   any
	Header http.Header
}

// Client performs authenticated JSON calls against the Ayla services.
//
// All methods are safe for concurrent use.
type Client struct {
	settings Settings
	http     *http.Client

	mu     sync.RWMutex
	tokens TokenSource
	logger Logger
}

// New creates a client for the given settings. Until SetTokenSource is
// called every request carries "auth_token none".
func New(settings Settings) *Client {
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	return &Client{
		settings: settings,
		http:     &http.Client{},
		logger:   noopLogger{},
	}
}

// SetTokenSource sets where the access token comes from.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.mu.Lock()
	c.http = hc
	c.mu.Unlock()
}

// SetLogger sets the logger for request tracing.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

// Settings returns a copy of the client settings.
func (c *Client) Settings() Settings {
	return c.settings
}

// URL resolves path against a service base URL.
func (c *Client) URL(service Service, path string) (string, error) {
	return ServiceURL(c.settings, service, path)
}

// AuthHeader returns the Authorization header value for the current token.
func (c *Client) AuthHeader() string {
	c.mu.RLock()
	ts := c.tokens
	c.mu.RUnlock()

	token := ""
	if ts != nil {
		token = ts.AccessToken()
	}
	if token == "" {
		token = "none"
	}
	return "auth_token " + token
}

func (c *Client) deps() (*http.Client, Logger) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.http, c.logger
}

// Do sends a request and decodes a JSON response into out.
//
// Behaviour:
//   - Accept is always application/json
//   - https URLs carry "Authorization: auth_token <token>"
//   - The configured User-Agent is sent when set
//   - A context without a deadline gets the client's default timeout
//   - out may be nil, or the body may be empty, and the call still succeeds
//
// Parameters:
//   - ctx: Cancels the request
//   - req: Method, URL, optional query, body and extra headers
//   - out: Pointer to decode the response into, or nil
//
// Returns:
//   - error: An *Error classified as auth, server, JSON, network, timeout or canceled
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.settings.Timeout)
		defer cancel()
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}

	hc, logger := c.deps()
	start := time.Now()
	resp, err := hc.Do(httpReq)
	if err != nil {
		logger.Debug("ayla request failed", "method", httpReq.Method, "url", redact(httpReq.URL), "error", err)
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return transportError(ctx, err)
	}
	logger.Debug("ayla request",
		"method", httpReq.Method,
		"url", redact(httpReq.URL),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, body)
	}
	return decodeBody(body, out)
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" {
		return nil, InvalidArgument("invalid URL %q", req.URL)
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := encodeBody(req.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, Internal("building request: %v", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if u.Scheme == "https" && httpReq.Header.Get("Authorization") == "" {
		httpReq.Header.Set("Authorization", c.AuthHeader())
	}
	if c.settings.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.settings.UserAgent)
	}
	return httpReq, nil
}

func encodeBody(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, &Error{Kind: KindJSON, Message: "unable to encode request", Err: err}
	}
	return b, nil
}

func decodeBody(body []byte, out any) error {
	if out == nil {
		return nil
	}
	switch o := out.(type) {
	case *EmptyResponse:
		return nil
	case *[]byte:
		*o = body
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return jsonError(body, err)
	}
	return nil
}

// redact strips query values that may carry secrets before logging.
func redact(u *url.URL) string {
	if u.RawQuery == "" {
		return u.String()
	}
	c := *u
	q := c.Query()
	for k := range q {
		if strings.Contains(k, "key") || strings.Contains(k, "token") {
			q.Set(k, "REDACTED")
		}
	}
	c.RawQuery = q.Encode()
	return c.String()
}

// Get issues a GET.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: rawURL, Query: query}, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, rawURL string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, URL: rawURL, Body: body}, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, rawURL string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, URL: rawURL, Body: body}, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, rawURL string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, URL: rawURL}, out)
}

// Reachable reports whether the user service answers at all. Any HTTP
// response counts; only transport failures are errors.
func (c *Client) Reachable(ctx context.Context) error {
	base, err := c.URL(ServiceUser, "")
	if err != nil {
		return err
	}
	err = c.Do(ctx, Request{Method: http.MethodHead, URL: base}, nil)
	switch KindOf(err) {
	case KindServer, KindAuth:
		return nil
	}
	return err
}
