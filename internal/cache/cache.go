package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

// Logger defines the logging interface used by the cache.
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

// Keyring supplies the secret LAN config entries are encrypted with.
// *cloud.Client satisfies it through its auth header.
type Keyring interface {
	AuthHeader() string
}

// Cache is the SDK cache for one session.
//
// All methods are safe for concurrent use.
type Cache struct {
	session string
	keys    Keyring
	store   Store
	mem     *ttlcache.Cache[string, string]
	enabled atomic.Bool
	logger  Logger
}

// New creates an enabled cache.
//
// Parameters:
//   - session: Session name every key is prefixed with
//   - keys: Source of the LAN config encryption secret
//   - store: Persistent backing store
//   - ttl: How long entries stay in memory; zero keeps them until evicted by a write
//
// Returns:
//   - *Cache: Ready for use
func New(session string, keys Keyring, store Store, ttl time.Duration) *Cache {
	c := &Cache{
		session: session,
		keys:    keys,
		store:   store,
		mem: ttlcache.New(
			ttlcache.WithTTL[string, string](ttl),
		),
		logger: noopLogger{},
	}
	c.enabled.Store(true)
	return c
}

// SetLogger sets the logger.
func (c *Cache) SetLogger(logger Logger) {
	c.logger = logger
}

// Enable turns caching on.
func (c *Cache) Enable() { c.enabled.Store(true) }

// Disable turns caching off. Reads still return what is stored.
func (c *Cache) Disable() { c.enabled.Store(false) }

// IsEnabled reports whether writes are accepted.
func (c *Cache) IsEnabled() bool { return c.enabled.Load() }

// Key returns the full key for an entry.
func (c *Cache) Key(typ Type, id string) string {
	return c.session + typ.Prefix() + id
}

// Save stores value for an entry type. A nil or empty value deletes it.
//
// Returns:
//   - error: Precondition when disabled, InvalidArgument when an id is missing
func (c *Cache) Save(ctx context.Context, typ Type, id string, value []byte) error {
	if !typ.valid() {
		return cloud.InvalidArgument("unknown cache type %d", int(typ))
	}
	if id == "" && typ.IDRequired() {
		return cloud.InvalidArgument("cache type %s needs an id", typ)
	}
	return c.SaveKey(ctx, c.Key(typ, id), value)
}

// SaveKey stores value under an explicit key.
func (c *Cache) SaveKey(ctx context.Context, key string, value []byte) error {
	if !c.IsEnabled() {
		return cloud.Precondition("cache is disabled")
	}
	if len(value) == 0 {
		return c.Delete(ctx, key)
	}

	stored := string(value)
	if c.encrypted(key) {
		var err error
		stored, err = encrypt(c.keys.AuthHeader(), stored)
		if err != nil {
			return cloud.Internal("encrypting cache entry: %v", err)
		}
	}

	if err := c.store.Put(ctx, key, stored); err != nil {
		return err
	}
	c.mem.Set(key, stored, ttlcache.DefaultTTL)
	return nil
}

// SaveArray JSON-encodes values and saves them.
func (c *Cache) SaveArray(ctx context.Context, typ Type, id string, values any) error {
	b, err := json.Marshal(values)
	if err != nil {
		return &cloud.Error{Kind: cloud.KindJSON, Message: "encoding cache entry", Err: err}
	}
	return c.Save(ctx, typ, id, b)
}

// Get returns the value under key.
//
// An encrypted entry that no longer decrypts, for example after the
// session changed, reads as empty.
//
// Returns:
//   - error: ErrNotFound if nothing is stored
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	stored, err := c.raw(ctx, key)
	if err != nil {
		return nil, err
	}
	if !c.encrypted(key) {
		return []byte(stored), nil
	}

	plain, err := decrypt(c.keys.AuthHeader(), stored)
	if err != nil {
		c.logger.Warn("cache entry does not decrypt", "key", key, "error", err)
		return []byte{}, nil
	}
	return []byte(plain), nil
}

// GetData returns the value for an entry type.
func (c *Cache) GetData(ctx context.Context, typ Type, id string) ([]byte, error) {
	return c.Get(ctx, c.Key(typ, id))
}

// Load decodes a JSON entry into out.
//
// Returns:
//   - error: ErrNotFound if nothing is stored, a JSON error if it does not decode
func (c *Cache) Load(ctx context.Context, typ Type, id string, out any) error {
	b, err := c.GetData(ctx, typ, id)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &cloud.Error{Kind: cloud.KindJSON, Message: "decoding cache entry " + typ.String(), Err: err}
	}
	return nil
}

// Delete removes the entry under key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mem.Delete(key)
	return c.store.Delete(ctx, key)
}

// ClearAll removes every entry of this session.
func (c *Cache) ClearAll(ctx context.Context) error {
	prefix := c.session + keyBase
	n, err := c.store.DeletePrefix(ctx, prefix)
	for _, key := range c.mem.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.mem.Delete(key)
		}
	}
	if err != nil {
		return err
	}
	c.logger.Debug("cache cleared", "session", c.session, "entries", n)
	return nil
}

func (c *Cache) raw(ctx context.Context, key string) (string, error) {
	if item := c.mem.Get(key); item != nil {
		return item.Value(), nil
	}
	stored, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("reading %s: %w", key, err)
		}
		return "", err
	}
	c.mem.Set(key, stored, ttlcache.DefaultTTL)
	return stored, nil
}

func (c *Cache) encrypted(key string) bool {
	return strings.HasPrefix(key, c.session+LanConfig.Prefix())
}
