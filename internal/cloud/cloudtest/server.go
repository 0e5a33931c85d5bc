// Package cloudtest runs a fake Ayla cloud for package tests.
package cloudtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

// Token is the access token the fake client sends.
const Token = "test-token"

// Request is one request the fake received.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Auth     string
	Body     []byte
}

// JSON decodes the request body into a generic map.
func (r Request) JSON(t testing.TB) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(r.Body, &m); err != nil {
		t.Fatalf("request body %q is not a JSON object: %v", r.Body, err)
	}
	return m
}

// Server is a TLS test server answering every Ayla service.
type Server struct {
	*httptest.Server

	// Client is a cloud client with every service pointed at the server.
	Client *cloud.Client

	mu       sync.Mutex
	requests []Request
	routes   map[string]http.HandlerFunc
}

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

// New starts a fake cloud that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{routes: make(map[string]http.HandlerFunc)}
	s.Server = httptest.NewTLSServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)

	overrides := make(map[cloud.Service]string, len(cloud.AllServices))
	for _, svc := range cloud.AllServices {
		overrides[svc] = s.URL + "/"
	}
	s.Client = cloud.New(cloud.Settings{
		AppID:     "app-id",
		AppSecret: "app-secret",
		Provider:  cloud.AWS,
		Location:  cloud.USA,
		Type:      cloud.Development,
		Overrides: overrides,
	})
	s.Client.SetHTTPClient(s.Server.Client())
	s.Client.SetTokenSource(staticToken(Token))
	return s
}

// Handle answers method and path with a fixed status and body.
func (s *Server) Handle(method, path string, status int, body string) {
	s.HandleFunc(method, path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body) //nolint:errcheck // test server
	})
}

// HandleFunc routes method and path to fn. The request body has already
// been read and recorded; fn sees it through Last().
func (s *Server) HandleFunc(method, path string, fn http.HandlerFunc) {
	s.mu.Lock()
	s.routes[method+" "+path] = fn
	s.mu.Unlock()
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Auth:     r.Header.Get("Authorization"),
		Body:     body,
	})
	fn := s.routes[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	if fn == nil {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"not found"}`) //nolint:errcheck // test server
		return
	}
	fn(w, r)
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Last returns the most recent request.
func (s *Server) Last() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

// Count returns how many requests matched method and path.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}
