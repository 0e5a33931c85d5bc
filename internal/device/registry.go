package device

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// Store persists the registry between runs.
type Store interface {
	LoadDevices(ctx context.Context) ([]Device, error)
	SaveDevices(ctx context.Context, devices []Device) error
	LoadProperties(ctx context.Context, dsn string) ([]Property, error)
	SaveProperties(ctx context.Context, dsn string, props []Property) error
}

// ErrNothingStored is returned by a Store that has no saved snapshot.
var ErrNothingStored = errors.New("device: nothing stored")

// Registry is the in-memory view of the account's devices and their
// properties. It is fed from cloud fetches and datastream events and,
// when a Store is set, seeded from and saved to it for offline restarts.
//
// All public methods are thread-safe. Returned values are deep copies;
// callers can safely modify them.
type Registry struct {
	store  Store
	logger Logger

	mu         sync.RWMutex
	devices    map[string]*Device
	properties map[string]map[string]*Property
}

// RegistryStats summarises the registry contents.
type RegistryStats struct {
	Devices    int `json:"devices"`
	Online     int `json:"online"`
	Properties int `json:"properties"`
}

// NewRegistry creates an empty registry. store may be nil.
func NewRegistry(store Store) *Registry {
	return &Registry{
		store:      store,
		logger:     noopLogger{},
		devices:    make(map[string]*Device),
		properties: make(map[string]map[string]*Property),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// LoadFromStore seeds the registry from the store. An empty store is not
// an error.
func (r *Registry) LoadFromStore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	devices, err := r.store.LoadDevices(ctx)
	if errors.Is(err, ErrNothingStored) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading stored devices: %w", err)
	}

	props := make(map[string][]Property, len(devices))
	for _, d := range devices {
		p, err := r.store.LoadProperties(ctx, d.DSN)
		if errors.Is(err, ErrNothingStored) {
			continue
		}
		if err != nil {
			return fmt.Errorf("loading stored properties of %s: %w", d.DSN, err)
		}
		props[d.DSN] = p
	}

	r.mu.Lock()
	r.setDevicesLocked(devices)
	for dsn, p := range props {
		r.setPropertiesLocked(dsn, p)
	}
	r.mu.Unlock()

	r.logger.Info("device registry loaded from store", "devices", len(devices))
	return nil
}

// ReplaceDevices swaps in a fresh device list. Properties of devices that
// are no longer listed are dropped.
func (r *Registry) ReplaceDevices(ctx context.Context, devices []Device) error {
	r.mu.Lock()
	r.setDevicesLocked(devices)
	r.mu.Unlock()

	r.logger.Debug("device registry refreshed", "count", len(devices))
	if r.store == nil {
		return nil
	}
	if err := r.store.SaveDevices(ctx, devices); err != nil {
		return fmt.Errorf("saving devices: %w", err)
	}
	return nil
}

func (r *Registry) setDevicesLocked(devices []Device) {
	next := make(map[string]*Device, len(devices))
	for i := range devices {
		next[devices[i].DSN] = devices[i].DeepCopy()
	}
	for dsn := range r.properties {
		if _, ok := next[dsn]; !ok {
			delete(r.properties, dsn)
		}
	}
	r.devices = next
}

// ReplaceProperties swaps in a fresh property list for a device and
// returns a change for every property whose value differs from before.
// Properties seen for the first time count as changes.
func (r *Registry) ReplaceProperties(ctx context.Context, dsn string, props []Property) ([]PropertyChange, error) {
	r.mu.Lock()
	if _, ok := r.devices[dsn]; !ok {
		r.mu.Unlock()
		return nil, ErrDeviceNotFound
	}
	old := r.properties[dsn]
	r.setPropertiesLocked(dsn, props)
	r.mu.Unlock()

	var changes []PropertyChange
	for i := range props {
		p := &props[i]
		prev, seen := old[p.Name]
		if seen && reflect.DeepEqual(prev.Value, p.Value) {
			continue
		}
		change := PropertyChange{
			DSN:       dsn,
			Property:  p.Name,
			BaseType:  p.BaseType,
			NewValue:  deepCopyValue(p.Value),
			UpdatedAt: parseTime(p.DataUpdatedAt),
		}
		if seen {
			change.OldValue = deepCopyValue(prev.Value)
		}
		changes = append(changes, change)
	}

	if r.store != nil {
		if err := r.store.SaveProperties(ctx, dsn, props); err != nil {
			return changes, fmt.Errorf("saving properties of %s: %w", dsn, err)
		}
	}
	return changes, nil
}

func (r *Registry) setPropertiesLocked(dsn string, props []Property) {
	m := make(map[string]*Property, len(props))
	for i := range props {
		m[props[i].Name] = props[i].DeepCopy()
	}
	r.properties[dsn] = m
}

// GetDevice returns a device by DSN.
// Returns ErrDeviceNotFound if the device is not known.
func (r *Registry) GetDevice(dsn string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[dsn]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d.DeepCopy(), nil
}

// ListDevices returns every device ordered by DSN.
func (r *Registry) ListDevices() []Device {
	r.mu.RLock()
	devices := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, *d.DeepCopy())
	}
	r.mu.RUnlock()

	sort.Slice(devices, func(i, j int) bool { return devices[i].DSN < devices[j].DSN })
	return devices
}

// GetProperty returns one property of a device.
func (r *Registry) GetProperty(dsn, name string) (*Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.devices[dsn]; !ok {
		return nil, ErrDeviceNotFound
	}
	p, ok := r.properties[dsn][name]
	if !ok {
		return nil, ErrPropertyNotFound
	}
	return p.DeepCopy(), nil
}

// ListProperties returns the known properties of a device ordered by name.
func (r *Registry) ListProperties(dsn string) ([]Property, error) {
	r.mu.RLock()
	if _, ok := r.devices[dsn]; !ok {
		r.mu.RUnlock()
		return nil, ErrDeviceNotFound
	}
	props := make([]Property, 0, len(r.properties[dsn]))
	for _, p := range r.properties[dsn] {
		props = append(props, *p.DeepCopy())
	}
	r.mu.RUnlock()

	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
	return props, nil
}

// ApplyDatapoint records a new value for a property, typically from a
// datastream event. A property not seen before is added with the given
// base type.
//
// Returns:
//   - *PropertyChange: The old and new value; OldValue is nil for a new property
//   - error: ErrDeviceNotFound if the DSN is unknown
func (r *Registry) ApplyDatapoint(dsn, name string, baseType BaseType, dp Datapoint) (*PropertyChange, error) {
	if name == "" {
		return nil, ErrPropertyNotFound
	}
	updatedAt := dp.UpdatedAt
	if updatedAt == "" {
		updatedAt = dp.CreatedAt
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[dsn]; !ok {
		return nil, ErrDeviceNotFound
	}
	props := r.properties[dsn]
	if props == nil {
		props = make(map[string]*Property)
		r.properties[dsn] = props
	}

	change := &PropertyChange{
		DSN:       dsn,
		Property:  name,
		BaseType:  baseType,
		NewValue:  deepCopyValue(dp.Value),
		UpdatedAt: parseTime(updatedAt),
	}

	// Atomic replacement keeps copies handed out earlier untouched.
	var updated *Property
	if cached, ok := props[name]; ok {
		updated = cached.DeepCopy()
		change.OldValue = deepCopyValue(cached.Value)
		if change.BaseType == "" {
			change.BaseType = cached.BaseType
		}
	} else {
		updated = &Property{Name: name, BaseType: baseType}
	}
	updated.Value = deepCopyValue(dp.Value)
	updated.DataUpdatedAt = updatedAt
	if dp.AckedAt != "" {
		updated.AckedAt = dp.AckedAt
		updated.AckStatus = dp.AckStatus
		updated.AckMessage = dp.AckMessage
	}
	props[name] = updated

	r.logger.Debug("property updated", "dsn", dsn, "property", name)
	return change, nil
}

// ApplyConnection records a connection status change and reports whether
// it differs from the previous status.
func (r *Registry) ApplyConnection(dsn, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cached, ok := r.devices[dsn]
	if !ok {
		return false, ErrDeviceNotFound
	}
	if cached.ConnectionStatus == status {
		return false, nil
	}
	updated := cached.DeepCopy()
	updated.ConnectionStatus = status
	if status == StatusOnline {
		updated.ConnectedAt = time.Now().UTC().Format(time.RFC3339)
	}
	r.devices[dsn] = updated

	r.logger.Debug("device connection updated", "dsn", dsn, "status", status)
	return true, nil
}

// Persist writes the current devices and properties to the store.
func (r *Registry) Persist(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	devices := r.ListDevices()
	if err := r.store.SaveDevices(ctx, devices); err != nil {
		return fmt.Errorf("saving devices: %w", err)
	}
	for _, d := range devices {
		props, err := r.ListProperties(d.DSN)
		if err != nil {
			continue
		}
		if err := r.store.SaveProperties(ctx, d.DSN, props); err != nil {
			return fmt.Errorf("saving properties of %s: %w", d.DSN, err)
		}
	}
	return nil
}

// DeviceCount returns the number of known devices.
func (r *Registry) DeviceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Stats returns registry counts.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := RegistryStats{Devices: len(r.devices)}
	for _, d := range r.devices {
		if d.IsOnline() {
			s.Online++
		}
	}
	for _, props := range r.properties {
		s.Properties += len(props)
	}
	return s
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now().UTC()
}
