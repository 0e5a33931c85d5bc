package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/datastream"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/device"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/mqtt"
)

const (
	dsn1 = "AC000W000000001"
	dsn2 = "AC000W000000002"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeDevices struct {
	mu         sync.Mutex
	devices    []device.Device
	props      map[string][]device.Property
	propCalls  int
	setCalls   []any
	setReply   *device.Datapoint
	setErr     error
	fetchError error
}

func (f *fakeDevices) FetchDevices(context.Context) ([]device.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchError != nil {
		return nil, f.fetchError
	}
	return append([]device.Device(nil), f.devices...), nil
}

func (f *fakeDevices) FetchProperties(_ context.Context, dsn string, _ ...string) ([]device.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.propCalls++
	return append([]device.Property(nil), f.props[dsn]...), nil
}

func (f *fakeDevices) CreateDatapoint(_ context.Context, _ string, _ *device.Property, value any, _ map[string]any) (*device.Datapoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls = append(f.setCalls, value)
	return f.setReply, f.setErr
}

func (f *fakeDevices) setProps(dsn string, props ...device.Property) {
	f.mu.Lock()
	f.props[dsn] = props
	f.mu.Unlock()
}

type message struct {
	Topic    string
	Payload  string
	Retained bool
}

type fakePublisher struct {
	mu         sync.Mutex
	messages   []message
	subscribed []string
}

func (p *fakePublisher) Publish(topic string, payload []byte, _ byte, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message{topic, string(payload), retained})
	return nil
}

func (p *fakePublisher) Subscribe(topic string, _ byte, _ mqtt.MessageHandler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribed = append(p.subscribed, topic)
	return nil
}

func (p *fakePublisher) take() []message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.messages
	p.messages = nil
	return out
}

type point struct {
	DSN, Property string
	Value         any
}

type fakeHistory struct {
	mu          sync.Mutex
	points      []point
	connections []string
}

func (h *fakeHistory) WriteDatapoint(dsn, property, _ string, value any, _ time.Time) {
	h.mu.Lock()
	h.points = append(h.points, point{dsn, property, value})
	h.mu.Unlock()
}

func (h *fakeHistory) WriteConnection(dsn, status string, _ time.Time) {
	h.mu.Lock()
	h.connections = append(h.connections, dsn+"="+status)
	h.mu.Unlock()
}

type fakeStream struct {
	mu        sync.Mutex
	connected bool
}

func (s *fakeStream) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (s *fakeStream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

type memStore struct {
	mu      sync.Mutex
	devices []device.Device
	props   map[string][]device.Property
}

func (m *memStore) LoadDevices(context.Context) ([]device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.devices == nil {
		return nil, device.ErrNothingStored
	}
	return m.devices, nil
}

func (m *memStore) SaveDevices(_ context.Context, d []device.Device) error {
	m.mu.Lock()
	m.devices = d
	m.mu.Unlock()
	return nil
}

func (m *memStore) LoadProperties(_ context.Context, dsn string) ([]device.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.props[dsn]
	if !ok {
		return nil, device.ErrNothingStored
	}
	return p, nil
}

func (m *memStore) SaveProperties(_ context.Context, dsn string, p []device.Property) error {
	m.mu.Lock()
	if m.props == nil {
		m.props = make(map[string][]device.Property)
	}
	m.props[dsn] = p
	m.mu.Unlock()
	return nil
}

type fixture struct {
	bridge    *Bridge
	devices   *fakeDevices
	publisher *fakePublisher
	history   *fakeHistory
	registry  *device.Registry
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		devices: &fakeDevices{
			devices: []device.Device{{DSN: dsn1, ProductName: "Lamp", ConnectionStatus: device.StatusOnline}},
			props: map[string][]device.Property{
				dsn1: {
					{Name: "Blue_LED", BaseType: device.BaseTypeBoolean, Direction: device.DirectionInput, Value: float64(0)},
					{Name: "temp", BaseType: device.BaseTypeInteger, Direction: device.DirectionOutput, Value: float64(21)},
				},
			},
		},
		publisher: &fakePublisher{},
		history:   &fakeHistory{},
	}
	if opts.Registry == nil {
		opts.Registry = device.NewRegistry(nil)
	}
	f.registry = opts.Registry
	opts.Devices = f.devices
	opts.Publisher = f.publisher
	opts.History = f.history
	opts.Topics = mqtt.Topics{Prefix: "ayla"}
	b, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.bridge = b
	return f
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Options{Registry: device.NewRegistry(nil)}); err == nil {
		t.Error("New() without devices succeeded")
	}
	if _, err := New(Options{Devices: &fakeDevices{}}); err == nil {
		t.Error("New() without registry succeeded")
	}
}

func TestBridge_Poll(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	if err := f.bridge.Poll(ctx); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	want := []message{
		{"ayla/" + dsn1 + "/connection", "Online", true},
		{"ayla/" + dsn1 + "/info", `{"dsn":"AC000W000000001","product_name":"Lamp"}`, true},
		{"ayla/" + dsn1 + "/Blue_LED/state", "0", true},
		{"ayla/" + dsn1 + "/temp/state", "21", true},
	}
	if diff := cmp.Diff(want, f.publisher.take()); diff != "" {
		t.Errorf("first poll messages mismatch (-want +got):\n%s", diff)
	}
	if len(f.history.points) != 2 || len(f.history.connections) != 1 {
		t.Errorf("history = %+v / %v", f.history.points, f.history.connections)
	}

	if err := f.bridge.Poll(ctx); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if got := f.publisher.take(); len(got) != 0 {
		t.Errorf("unchanged poll published %+v", got)
	}

	f.devices.setProps(dsn1,
		device.Property{Name: "Blue_LED", BaseType: device.BaseTypeBoolean, Value: float64(0)},
		device.Property{Name: "temp", BaseType: device.BaseTypeInteger, Value: float64(23)},
	)
	if err := f.bridge.Poll(ctx); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	want = []message{{"ayla/" + dsn1 + "/temp/state", "23", true}}
	if diff := cmp.Diff(want, f.publisher.take()); diff != "" {
		t.Errorf("changed poll messages mismatch (-want +got):\n%s", diff)
	}
	if s := f.bridge.Stats(); s.Polls != 3 || s.Devices != 1 || s.Online != 1 || s.LastPoll.IsZero() {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestBridge_PollFiltersDSNs(t *testing.T) {
	f := newFixture(t, Options{DSNs: []string{dsn2}})
	f.devices.devices = append(f.devices.devices, device.Device{DSN: dsn2, ConnectionStatus: device.StatusOffline})

	if err := f.bridge.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	devices := f.registry.ListDevices()
	if len(devices) != 1 || devices[0].DSN != dsn2 {
		t.Errorf("registry devices = %+v, want only %s", devices, dsn2)
	}
}

func TestBridge_PollError(t *testing.T) {
	f := newFixture(t, Options{})
	f.devices.fetchError = errors.New("offline")
	if err := f.bridge.Poll(context.Background()); err == nil {
		t.Error("Poll() error = nil, want fetch failure")
	}
	if f.bridge.Stats().Polls != 0 {
		t.Error("failed poll counted")
	}
}

func TestBridge_PollSkipsPropertiesWhileStreaming(t *testing.T) {
	stream := &fakeStream{connected: true}
	f := newFixture(t, Options{Stream: stream})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := f.bridge.Poll(ctx); err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
	}
	if f.devices.propCalls != 1 {
		t.Errorf("property fetches = %d, want 1 while the stream is live", f.devices.propCalls)
	}

	stream.mu.Lock()
	stream.connected = false
	stream.mu.Unlock()
	if err := f.bridge.Poll(ctx); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if f.devices.propCalls != 2 {
		t.Errorf("property fetches = %d, want 2 after the stream dropped", f.devices.propCalls)
	}
}

func TestBridge_HandleEvent(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	if err := f.bridge.Poll(ctx); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	f.publisher.take()
	f.devices.setProps(dsn1, device.Property{Name: "mode", BaseType: device.BaseTypeString, AckEnabled: true, Value: "eco"})
	if _, err := f.registry.ReplaceProperties(ctx, dsn1, []device.Property{
		{Name: "temp", BaseType: device.BaseTypeInteger, Value: float64(21)},
		{Name: "mode", BaseType: device.BaseTypeString, AckEnabled: true, Value: "eco"},
	}); err != nil {
		t.Fatalf("ReplaceProperties() error = %v", err)
	}

	datapoint := func(eventType, prop string, v any) *datastream.Event {
		return &datastream.Event{
			Metadata:  datastream.Metadata{DSN: dsn1, PropertyName: prop, EventType: eventType},
			Datapoint: &device.Datapoint{Value: v, UpdatedAt: "2024-05-01T12:00:00Z"},
		}
	}
	connection := func(status string) *datastream.Event {
		return &datastream.Event{
			Metadata:   datastream.Metadata{DSN: dsn1, EventType: datastream.TypeConnectivity},
			Connection: &device.Connection{Status: status},
		}
	}

	tests := []struct {
		name  string
		event *datastream.Event
		want  []message
	}{
		{"datapoint", datapoint(datastream.TypeDatapoint, "temp", float64(25)),
			[]message{{"ayla/" + dsn1 + "/temp/state", "25", true}}},
		{"ack-enabled waits for ack", datapoint(datastream.TypeDatapoint, "mode", "boost"), nil},
		{"ack applies", datapoint(datastream.TypeDatapointAck, "mode", "boost"),
			[]message{{"ayla/" + dsn1 + "/mode/state", "boost", true}}},
		{"new property", datapoint(datastream.TypeDatapoint, "humidity", float64(40)),
			[]message{{"ayla/" + dsn1 + "/humidity/state", "40", true}}},
		{"connection change", connection(device.StatusOffline),
			[]message{{"ayla/" + dsn1 + "/connection", "Offline", true}}},
		{"connection unchanged", connection(device.StatusOffline), nil},
		{"unknown device", &datastream.Event{
			Metadata:  datastream.Metadata{DSN: dsn2, PropertyName: "x", EventType: datastream.TypeDatapoint},
			Datapoint: &device.Datapoint{Value: 1},
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.bridge.HandleEvent(ctx, tt.event)
			if diff := cmp.Diff(tt.want, f.publisher.take()); diff != "" {
				t.Errorf("messages mismatch (-want +got):\n%s", diff)
			}
		})
	}

	p, err := f.registry.GetProperty(dsn1, "mode")
	if err != nil || p.Value != "boost" {
		t.Errorf("mode = %+v, %v", p, err)
	}
	if got := f.bridge.Stats().Events; got != uint64(len(tests)) {
		t.Errorf("Events = %d, want %d", got, len(tests))
	}
}

func TestBridge_HandleSet(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.bridge.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	f.publisher.take()
	f.devices.setReply = &device.Datapoint{Value: 1, UpdatedAt: "2024-05-01T12:00:00Z"}

	if err := f.bridge.HandleSet("ayla/"+dsn1+"/Blue_LED/set", []byte(" on \n")); err != nil {
		t.Fatalf("HandleSet() error = %v", err)
	}
	if diff := cmp.Diff([]any{"on"}, f.devices.setCalls); diff != "" {
		t.Errorf("CreateDatapoint values mismatch (-want +got):\n%s", diff)
	}
	want := []message{{"ayla/" + dsn1 + "/Blue_LED/state", "1", true}}
	if diff := cmp.Diff(want, f.publisher.take()); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name  string
		topic string
		want  error
	}{
		{"not a set topic", "ayla/" + dsn1 + "/Blue_LED/state", nil},
		{"unknown property", "ayla/" + dsn1 + "/nope/set", device.ErrPropertyNotFound},
		{"unknown device", "ayla/" + dsn2 + "/Blue_LED/set", device.ErrDeviceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.bridge.HandleSet(tt.topic, []byte("1"))
			if err == nil {
				t.Fatal("HandleSet() error = nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("HandleSet() error = %v, want %v", err, tt.want)
			}
		})
	}

	f.devices.setReply = nil
	f.devices.setErr = errors.New("rejected")
	if err := f.bridge.HandleSet("ayla/"+dsn1+"/Blue_LED/set", []byte("0")); err == nil {
		t.Error("HandleSet() error = nil when the cloud rejects the datapoint")
	}
}

func TestBridge_Run(t *testing.T) {
	store := &memStore{}
	f := newFixture(t, Options{
		Registry:     device.NewRegistry(store),
		Stream:       &fakeStream{},
		PollInterval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.bridge.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for f.bridge.Stats().Polls == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first poll did not happen")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	f.publisher.mu.Lock()
	subscribed := f.publisher.subscribed
	f.publisher.mu.Unlock()
	if diff := cmp.Diff([]string{"ayla/+/+/set"}, subscribed); diff != "" {
		t.Errorf("subscriptions mismatch (-want +got):\n%s", diff)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.devices) != 1 || len(store.props[dsn1]) != 2 {
		t.Errorf("persisted %d devices and %d properties", len(store.devices), len(store.props[dsn1]))
	}
}

func TestStatePayload(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"on", "on"},
		{float64(1.5), "1.5"},
		{int64(7), "7"},
		{nil, ""},
		{map[string]any{"a": 1}, `{"a":1}`},
	}
	for _, tt := range tests {
		got, err := statePayload(tt.in)
		if err != nil {
			t.Fatalf("statePayload(%v) error = %v", tt.in, err)
		}
		if string(got) != tt.want {
			t.Errorf("statePayload(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) PropertyChanged(c device.PropertyChange) {
	n.mu.Lock()
	n.events = append(n.events, c.DSN+"/"+c.Property)
	n.mu.Unlock()
}

func (n *recordingNotifier) ConnectionChanged(dsn, status string) {
	n.mu.Lock()
	n.events = append(n.events, dsn+"="+status)
	n.mu.Unlock()
}

func TestBridge_Notifier(t *testing.T) {
	n := &recordingNotifier{}
	f := newFixture(t, Options{Notifier: n})
	if err := f.bridge.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	want := []string{dsn1 + "=Online", dsn1 + "/Blue_LED", dsn1 + "/temp"}
	if diff := cmp.Diff(want, n.events); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}
