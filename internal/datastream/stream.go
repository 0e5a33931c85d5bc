package datastream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

// Stream defaults.
const (
	DefaultRetryInterval    = 3 * time.Second
	DefaultHeartbeatTimeout = 90 * time.Second

	defaultName        = "GO_DSS"
	defaultDescription = "DATAPOINT"
	closeWait          = time.Second
)

// Logger is the logging interface used by the stream.
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

// Handler receives decoded events. It runs on the stream's read loop, so a
// slow handler delays the next frame.
type Handler func(ctx context.Context, ev *Event)

// Options configures a Stream.
type Options struct {
	// SessionName keys the saved subscription.
	SessionName string
	Name        string
	Description string
	// DSNs limits the subscription; empty means every device.
	DSNs []string
	// Types defaults to DefaultTypes.
	Types []string

	RetryInterval time.Duration
	// HeartbeatTimeout closes a connection that has been silent this long.
	HeartbeatTimeout time.Duration
}

// Stream keeps a websocket to the datastream service open and hands every
// event to a Handler. It reconnects after RetryInterval and creates a fresh
// subscription when the stream key is rejected.
type Stream struct {
	svc     *Service
	store   Store
	opts    Options
	handler Handler

	mu        sync.RWMutex
	dialer    *websocket.Dialer
	logger    Logger
	current   *Subscription
	connected bool
	onChange  func(connected bool)
}

// NewStream creates a stream. store may be nil.
func NewStream(svc *Service, store Store, opts Options, handler Handler) *Stream {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if opts.HeartbeatTimeout <= 0 {
		opts.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if opts.Name == "" {
		opts.Name = defaultName
	}
	if opts.Description == "" {
		opts.Description = defaultDescription
	}
	return &Stream{
		svc:     svc,
		store:   store,
		opts:    opts,
		handler: handler,
		dialer:  websocket.DefaultDialer,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the stream.
func (s *Stream) SetLogger(logger Logger) {
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// SetDialer replaces the websocket dialer.
func (s *Stream) SetDialer(d *websocket.Dialer) {
	s.mu.Lock()
	s.dialer = d
	s.mu.Unlock()
}

// OnConnectionChange registers a callback for connect and disconnect.
func (s *Stream) OnConnectionChange(fn func(connected bool)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Connected reports whether the websocket is open.
func (s *Stream) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Subscription returns the subscription in use, if any.
func (s *Stream) Subscription() *Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cpy := *s.current
	return &cpy
}

func (s *Stream) log() Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logger
}

// Run connects and keeps reconnecting until ctx is cancelled. It returns
// nil once ctx is done.
func (s *Stream) Run(ctx context.Context) error {
	for {
		err := s.connectOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrUnauthorized) {
			s.log().Warn("datastream stream key rejected, resubscribing")
			s.forget(ctx)
		} else if err != nil {
			s.log().Warn("datastream disconnected", "error", err, "retry_in", s.opts.RetryInterval)
		}

		timer := time.NewTimer(s.opts.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Stream) connectOnce(ctx context.Context) error {
	sub, err := s.subscription(ctx)
	if err != nil {
		return err
	}
	return s.serve(ctx, sub.StreamKey)
}

// subscription returns the current subscription, loading the saved one or
// creating a new one as needed.
func (s *Stream) subscription(ctx context.Context) (*Subscription, error) {
	if sub := s.Subscription(); sub != nil {
		return sub, nil
	}
	if s.store != nil {
		sub, err := s.store.Load(ctx, s.opts.SessionName)
		switch {
		case err == nil:
			s.setCurrent(sub)
			return sub, nil
		case !errors.Is(err, ErrNoSubscription):
			s.log().Warn("loading saved datastream subscription", "error", err)
		}
	}

	sub, err := s.svc.Create(ctx, s.opts.Name, s.opts.Description, s.opts.DSNs, s.opts.Types)
	if err != nil {
		return nil, err
	}
	if sub.StreamKey == "" {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "subscription has no stream key"}
	}
	s.setCurrent(sub)
	s.log().Info("datastream subscription created", "id", sub.ID)
	if s.store != nil {
		if err := s.store.Save(ctx, s.opts.SessionName, sub); err != nil {
			s.log().Warn("saving datastream subscription", "error", err)
		}
	}
	return sub, nil
}

func (s *Stream) setCurrent(sub *Subscription) {
	s.mu.Lock()
	s.current = sub
	s.mu.Unlock()
}

func (s *Stream) forget(ctx context.Context) {
	s.setCurrent(nil)
	if s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, s.opts.SessionName); err != nil {
		s.log().Warn("deleting saved datastream subscription", "error", err)
	}
}

// StreamURL returns the websocket URL for a stream key.
func (s *Stream) StreamURL(streamKey string) (string, error) {
	base, err := s.svc.client.URL(cloud.ServiceDatastream, "stream")
	if err != nil {
		return "", err
	}
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "?stream_key=" + url.QueryEscape(streamKey), nil
}

func (s *Stream) serve(ctx context.Context, streamKey string) error {
	u, err := s.StreamURL(streamKey)
	if err != nil {
		return err
	}
	s.mu.RLock()
	dialer := s.dialer
	s.mu.RUnlock()

	conn, resp, err := dialer.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close() //nolint:errcheck // handshake body is not used
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return ErrUnauthorized
		}
		return fmt.Errorf("dialing datastream: %w", err)
	}
	defer conn.Close()

	s.setConnected(true)
	defer s.setConnected(false)
	s.log().Info("datastream connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait)) //nolint:errcheck // best effort on shutdown
			conn.Close()
		case <-done:
		}
	}()

	return s.readLoop(ctx, conn)
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		conn.SetReadDeadline(time.Now().Add(s.opts.HeartbeatTimeout)) //nolint:errcheck // checked on read
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) && strings.Contains(ce.Text, "Unauthorized") {
				return ErrUnauthorized
			}
			return fmt.Errorf("reading datastream: %w", err)
		}

		switch string(msg) {
		case heartbeatFrame:
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return fmt.Errorf("echoing heartbeat: %w", err)
			}
		case keepAliveFrame:
		default:
			ev, err := ParseFrame(msg)
			if err != nil {
				s.log().Warn("dropping datastream frame", "error", err)
				continue
			}
			if s.handler != nil {
				s.handler(ctx, ev)
			}
		}
	}
}

func (s *Stream) setConnected(connected bool) {
	s.mu.Lock()
	changed := s.connected != connected
	s.connected = connected
	fn := s.onChange
	s.mu.Unlock()
	if changed && fn != nil {
		fn(connected)
	}
}
