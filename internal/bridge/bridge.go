package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/datastream"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/device"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/mqtt"
)

const (
	// DefaultPollInterval is used when Options.PollInterval is zero.
	DefaultPollInterval = 60 * time.Second

	commandTimeout = 30 * time.Second
	persistTimeout = 5 * time.Second
)

// Devices is the part of *device.Manager the bridge uses.
type Devices interface {
	FetchDevices(ctx context.Context) ([]device.Device, error)
	FetchProperties(ctx context.Context, dsn string, names ...string) ([]device.Property, error)
	CreateDatapoint(ctx context.Context, dsn string, prop *device.Property, value any, metadata map[string]any) (*device.Datapoint, error)
}

// Publisher is the part of *mqtt.Client the bridge uses.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// History records datapoints and connection changes, as *influxdb.Client
// does.
type History interface {
	WriteDatapoint(dsn, property, baseType string, value any, ts time.Time)
	WriteConnection(dsn, status string, ts time.Time)
}

// Stream is a live event source such as *datastream.Stream.
type Stream interface {
	Run(ctx context.Context) error
	Connected() bool
}

// Notifier is told about every change the bridge publishes, such as the
// API's websocket hub.
type Notifier interface {
	PropertyChanged(change device.PropertyChange)
	ConnectionChanged(dsn, status string)
}

// Logger is the logging interface used by the bridge.
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

// Options holds the bridge dependencies. Devices and Registry are
// required; the rest are optional.
type Options struct {
	Devices  Devices
	Registry *device.Registry

	Publisher Publisher
	Topics    mqtt.Topics
	QoS       byte

	History  History
	Stream   Stream
	Notifier Notifier

	PollInterval time.Duration
	// DSNs limits the bridge to these devices; empty means all.
	DSNs []string

	Logger Logger
}

// Stats summarises bridge activity for the health endpoint.
type Stats struct {
	device.RegistryStats
	Polls           uint64    `json:"polls"`
	Events          uint64    `json:"events"`
	Commands        uint64    `json:"commands"`
	LastPoll        time.Time `json:"last_poll,omitempty"`
	StreamConnected bool      `json:"stream_connected"`
}

// Bridge mirrors the Ayla cloud into the device registry and out to MQTT
// and InfluxDB. Polling keeps the device list fresh, datastream events
// carry live values, and MQTT set commands become datapoints.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	devices   Devices
	registry  *device.Registry
	publisher Publisher
	topics    mqtt.Topics
	qos       byte
	history   History
	stream    Stream
	notifier  Notifier
	interval  time.Duration
	allowed   map[string]bool
	logger    Logger

	// ctx is the Run context, used by MQTT command handlers.
	ctxMu sync.RWMutex
	ctx   context.Context

	polls        atomic.Uint64
	events       atomic.Uint64
	commands     atomic.Uint64
	lastPoll     atomic.Int64
	propsFetched atomic.Bool
}

// New creates a bridge. Call Run to start it.
func New(opts Options) (*Bridge, error) {
	if opts.Devices == nil {
		return nil, fmt.Errorf("device manager is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	var allowed map[string]bool
	if len(opts.DSNs) > 0 {
		allowed = make(map[string]bool, len(opts.DSNs))
		for _, dsn := range opts.DSNs {
			allowed[dsn] = true
		}
	}
	return &Bridge{
		devices:   opts.Devices,
		registry:  opts.Registry,
		publisher: opts.Publisher,
		topics:    opts.Topics,
		qos:       opts.QoS,
		history:   opts.History,
		stream:    opts.Stream,
		notifier:  opts.Notifier,
		interval:  opts.PollInterval,
		allowed:   allowed,
		logger:    opts.Logger,
		ctx:       context.Background(),
	}, nil
}

// Run seeds the registry from its store, subscribes to MQTT set commands
// and runs the poller and the datastream until ctx is cancelled. The
// registry is persisted on the way out.
func (b *Bridge) Run(ctx context.Context) error {
	b.ctxMu.Lock()
	b.ctx = ctx
	b.ctxMu.Unlock()

	if err := b.registry.LoadFromStore(ctx); err != nil {
		b.logger.Warn("loading cached devices", "error", err)
	}

	if b.publisher != nil {
		if err := b.publisher.Subscribe(b.topics.AllPropertySets(), b.qos, b.HandleSet); err != nil {
			return fmt.Errorf("subscribing to set commands: %w", err)
		}
		b.logger.Info("subscribed to set commands", "topic", b.topics.AllPropertySets())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.pollLoop(gctx)
		return nil
	})
	if b.stream != nil {
		g.Go(func() error {
			return b.stream.Run(gctx)
		})
	}
	err := g.Wait()

	persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if perr := b.registry.Persist(persistCtx); perr != nil {
		b.logger.Warn("persisting device registry", "error", perr)
	}
	b.logger.Info("bridge stopped")
	return err
}

func (b *Bridge) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		if err := b.Poll(ctx); err != nil && ctx.Err() == nil {
			b.logger.Warn("poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll refreshes the device list and, unless the datastream is delivering
// live values, every device's properties. Changes are published.
func (b *Bridge) Poll(ctx context.Context) error {
	devices, err := b.devices.FetchDevices(ctx)
	if err != nil {
		return fmt.Errorf("fetching devices: %w", err)
	}
	devices = b.filter(devices)

	previous := make(map[string]string, len(devices))
	for _, d := range b.registry.ListDevices() {
		previous[d.DSN] = d.ConnectionStatus
	}
	if err := b.registry.ReplaceDevices(ctx, devices); err != nil {
		b.logger.Warn("saving device list", "error", err)
	}
	for _, d := range devices {
		old, known := previous[d.DSN]
		if !known || old != d.ConnectionStatus {
			b.publishConnection(d.DSN, d.ConnectionStatus, time.Now())
		}
		if !known {
			b.publishInfo(&d)
		}
	}

	live := b.stream != nil && b.stream.Connected()
	if !live || !b.propsFetched.Load() {
		var errs []error
		for _, d := range devices {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := b.refreshProperties(ctx, d.DSN); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return errors.Join(errs...)
		}
		b.propsFetched.Store(true)
	}

	b.polls.Add(1)
	b.lastPoll.Store(time.Now().UnixNano())
	return nil
}

func (b *Bridge) refreshProperties(ctx context.Context, dsn string) error {
	props, err := b.devices.FetchProperties(ctx, dsn)
	if err != nil {
		return fmt.Errorf("fetching properties of %s: %w", dsn, err)
	}
	changes, err := b.registry.ReplaceProperties(ctx, dsn, props)
	if err != nil {
		b.logger.Warn("saving properties", "dsn", dsn, "error", err)
	}
	for i := range changes {
		b.publishChange(&changes[i])
	}
	return nil
}

func (b *Bridge) filter(devices []device.Device) []device.Device {
	if b.allowed == nil {
		return devices
	}
	out := devices[:0:0]
	for _, d := range devices {
		if b.allowed[d.DSN] {
			out = append(out, d)
		}
	}
	return out
}

// HandleEvent applies a datastream event to the registry and publishes the
// result. Datapoint events for ack-enabled properties are skipped; their
// datapointack event carries the value.
func (b *Bridge) HandleEvent(_ context.Context, ev *datastream.Event) {
	b.events.Add(1)
	for _, dsn := range ev.DSNs() {
		if b.allowed != nil && !b.allowed[dsn] {
			continue
		}
		switch ev.Metadata.EventType {
		case datastream.TypeConnectivity:
			b.applyConnection(dsn, ev.Connection)
		case datastream.TypeDatapoint, datastream.TypeDatapointAck:
			b.applyDatapoint(dsn, ev)
		default:
			b.logger.Debug("ignoring datastream event", "type", ev.Metadata.EventType, "dsn", dsn)
		}
	}
}

func (b *Bridge) applyConnection(dsn string, conn *device.Connection) {
	if conn == nil {
		return
	}
	changed, err := b.registry.ApplyConnection(dsn, conn.Status)
	if err != nil {
		b.logger.Debug("connection event for unknown device", "dsn", dsn)
		return
	}
	if changed {
		b.publishConnection(dsn, conn.Status, parseTime(conn.EventTime))
	}
}

func (b *Bridge) applyDatapoint(dsn string, ev *datastream.Event) {
	if ev.Datapoint == nil {
		return
	}
	name := ev.Metadata.PropertyName
	prop, err := b.registry.GetProperty(dsn, name)
	if err != nil && !errors.Is(err, device.ErrPropertyNotFound) {
		b.logger.Debug("datapoint event for unknown device", "dsn", dsn)
		return
	}
	if prop != nil && prop.AckEnabled && ev.Metadata.EventType == datastream.TypeDatapoint {
		b.logger.Debug("waiting for ack before applying datapoint", "dsn", dsn, "property", name)
		return
	}
	change, err := b.registry.ApplyDatapoint(dsn, name, ev.Metadata.BaseType, *ev.Datapoint)
	if err != nil {
		b.logger.Debug("dropping datapoint event", "dsn", dsn, "property", name, "error", err)
		return
	}
	b.publishChange(change)
}

// HandleSet turns an MQTT set command into a datapoint. The payload is the
// new value as text.
func (b *Bridge) HandleSet(topic string, payload []byte) error {
	dsn, name, ok := b.topics.ParsePropertySet(topic)
	if !ok {
		return fmt.Errorf("not a property set topic: %s", topic)
	}
	b.commands.Add(1)

	b.ctxMu.RLock()
	parent := b.ctx
	b.ctxMu.RUnlock()
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()

	_, err := b.SetProperty(ctx, dsn, name, strings.TrimSpace(string(payload)))
	return err
}

// SetProperty creates a datapoint on a known property and applies the
// result to the registry.
func (b *Bridge) SetProperty(ctx context.Context, dsn, name string, value any) (*device.Datapoint, error) {
	prop, err := b.registry.GetProperty(dsn, name)
	if err != nil {
		return nil, fmt.Errorf("setting %s/%s: %w", dsn, name, err)
	}
	dp, err := b.devices.CreateDatapoint(ctx, dsn, prop, value, nil)
	if dp != nil {
		if change, aerr := b.registry.ApplyDatapoint(dsn, name, prop.BaseType, *dp); aerr == nil {
			b.publishChange(change)
		}
	}
	if err != nil {
		return dp, err
	}
	b.logger.Info("property set", "dsn", dsn, "property", name)
	return dp, nil
}

// Stats returns current counters.
func (b *Bridge) Stats() Stats {
	s := Stats{
		RegistryStats: b.registry.Stats(),
		Polls:         b.polls.Load(),
		Events:        b.events.Load(),
		Commands:      b.commands.Load(),
	}
	if ns := b.lastPoll.Load(); ns != 0 {
		s.LastPoll = time.Unix(0, ns).UTC()
	}
	if b.stream != nil {
		s.StreamConnected = b.stream.Connected()
	}
	return s
}

func (b *Bridge) publishChange(c *device.PropertyChange) {
	if b.history != nil {
		b.history.WriteDatapoint(c.DSN, c.Property, string(c.BaseType), c.NewValue, c.UpdatedAt)
	}
	if b.notifier != nil {
		b.notifier.PropertyChanged(*c)
	}
	if b.publisher == nil {
		return
	}
	payload, err := statePayload(c.NewValue)
	if err != nil {
		b.logger.Warn("encoding property state", "dsn", c.DSN, "property", c.Property, "error", err)
		return
	}
	if err := b.publisher.Publish(b.topics.PropertyState(c.DSN, c.Property), payload, b.qos, true); err != nil {
		b.logger.Warn("publishing property state", "dsn", c.DSN, "property", c.Property, "error", err)
	}
}

func (b *Bridge) publishConnection(dsn, status string, ts time.Time) {
	if b.history != nil {
		b.history.WriteConnection(dsn, status, ts)
	}
	if b.notifier != nil {
		b.notifier.ConnectionChanged(dsn, status)
	}
	if b.publisher == nil {
		return
	}
	if err := b.publisher.Publish(b.topics.Connection(dsn), []byte(status), b.qos, true); err != nil {
		b.logger.Warn("publishing connection status", "dsn", dsn, "error", err)
	}
}

type deviceInfo struct {
	DSN         string `json:"dsn"`
	ProductName string `json:"product_name,omitempty"`
	Model       string `json:"model,omitempty"`
	OEMModel    string `json:"oem_model,omitempty"`
	SWVersion   string `json:"sw_version,omitempty"`
	LANIP       string `json:"lan_ip,omitempty"`
}

func (b *Bridge) publishInfo(d *device.Device) {
	if b.publisher == nil {
		return
	}
	payload, err := json.Marshal(deviceInfo{
		DSN:         d.DSN,
		ProductName: d.ProductName,
		Model:       d.Model,
		OEMModel:    d.OEMModel,
		SWVersion:   d.SWVersion,
		LANIP:       d.LANIP,
	})
	if err != nil {
		return
	}
	if err := b.publisher.Publish(b.topics.DeviceInfo(d.DSN), payload, b.qos, true); err != nil {
		b.logger.Warn("publishing device info", "dsn", d.DSN, "error", err)
	}
}

// statePayload renders a value the way subscribers read it back: strings
// as-is, everything else as JSON.
func statePayload(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return []byte{}, nil
	case string:
		return []byte(x), nil
	default:
		return json.Marshal(x)
	}
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now()
}
