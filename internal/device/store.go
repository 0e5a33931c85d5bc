package device

import (
	"context"
	"errors"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cache"
)

// CacheStore keeps registry snapshots in the SDK cache: the device list
// under the Devices entry and each device's properties under a Property
// entry keyed by DSN. A disabled cache turns saves into no-ops.
type CacheStore struct {
	cache *cache.Cache
}

// NewCacheStore wraps an SDK cache.
func NewCacheStore(c *cache.Cache) *CacheStore {
	return &CacheStore{cache: c}
}

// LoadDevices returns the saved device list.
func (s *CacheStore) LoadDevices(ctx context.Context) ([]Device, error) {
	var devices []Device
	if err := s.cache.Load(ctx, cache.Devices, "", &devices); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrNothingStored
		}
		return nil, err
	}
	return devices, nil
}

// SaveDevices replaces the saved device list.
func (s *CacheStore) SaveDevices(ctx context.Context, devices []Device) error {
	if !s.cache.IsEnabled() {
		return nil
	}
	return s.cache.SaveArray(ctx, cache.Devices, "", devices)
}

// LoadProperties returns the saved properties of a device.
func (s *CacheStore) LoadProperties(ctx context.Context, dsn string) ([]Property, error) {
	var props []Property
	if err := s.cache.Load(ctx, cache.Property, dsn, &props); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrNothingStored
		}
		return nil, err
	}
	return props, nil
}

// SaveProperties replaces the saved properties of a device.
func (s *CacheStore) SaveProperties(ctx context.Context, dsn string, props []Property) error {
	if !s.cache.IsEnabled() {
		return nil
	}
	return s.cache.SaveArray(ctx, cache.Property, dsn, props)
}
