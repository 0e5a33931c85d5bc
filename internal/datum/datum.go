// Package datum stores small key/value metadata on the Ayla cloud.
//
// The same resource exists for users (on the user service) and for
// devices (on the device service); Client is bound to one collection.
package datum

import (
	"context"
	"fmt"
	"net/url"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

const (
	// MaxKeyLength is the longest key the cloud accepts.
	MaxKeyLength = 255
	// MaxValueSize is the largest value in bytes the cloud accepts.
	MaxValueSize = 2 << 20
)

// Datum is one key/value pair.
type Datum struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type wrapper struct {
	Datum *Datum `json:"datum"`
}

// Client manages one datum collection.
type Client struct {
	client     *cloud.Client
	service    cloud.Service
	collection string
}

// New binds a client to the collection at collection (without ".json"),
// for example "api/v1/users/data" on the user service.
func New(client *cloud.Client, service cloud.Service, collection string) *Client {
	return &Client{client: client, service: service, collection: collection}
}

// ForUser returns the datum collection of the signed-in user.
func ForUser(client *cloud.Client) *Client {
	return New(client, cloud.ServiceUser, "api/v1/users/data")
}

// ForDevice returns the datum collection of a device.
func ForDevice(client *cloud.Client, dsn string) *Client {
	return New(client, cloud.ServiceDevice, "apiv1/dsns/"+url.PathEscape(dsn)+"/data")
}

// Validate checks the key and value limits.
func Validate(key, value string) error {
	if key == "" {
		return cloud.InvalidArgument("datum key is required")
	}
	if len(key) > MaxKeyLength {
		return cloud.InvalidArgument("datum key longer than %d characters", MaxKeyLength)
	}
	if len(value) > MaxValueSize {
		return cloud.InvalidArgument("datum value larger than %d bytes", MaxValueSize)
	}
	return nil
}

func (c *Client) listURL() (string, error) {
	return c.client.URL(c.service, c.collection+".json")
}

func (c *Client) itemURL(key string) (string, error) {
	return c.client.URL(c.service, c.collection+"/"+url.PathEscape(key)+".json")
}

// Create adds a datum.
func (c *Client) Create(ctx context.Context, key, value string) (*Datum, error) {
	if err := Validate(key, value); err != nil {
		return nil, err
	}
	u, err := c.listURL()
	if err != nil {
		return nil, err
	}

	var out wrapper
	if err := c.client.Post(ctx, u, wrapper{Datum: &Datum{Key: key, Value: value}}, &out); err != nil {
		return nil, fmt.Errorf("creating datum %q: %w", key, err)
	}
	return out.Datum, nil
}

// Fetch returns one datum.
func (c *Client) Fetch(ctx context.Context, key string) (*Datum, error) {
	if key == "" {
		return nil, cloud.InvalidArgument("datum key is required")
	}
	u, err := c.itemURL(key)
	if err != nil {
		return nil, err
	}

	var out wrapper
	if err := c.client.Get(ctx, u, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching datum %q: %w", key, err)
	}
	return out.Datum, nil
}

// FetchAll returns the data for keys, or every datum when keys is empty.
func (c *Client) FetchAll(ctx context.Context, keys ...string) ([]Datum, error) {
	var query url.Values
	if len(keys) > 0 {
		query = url.Values{"keys[]": keys}
	}
	return c.list(ctx, query)
}

// FetchMatching returns the data whose keys match a SQL-style wildcard
// pattern such as "%input%".
func (c *Client) FetchMatching(ctx context.Context, pattern string) ([]Datum, error) {
	if pattern == "" {
		return nil, cloud.InvalidArgument("wildcard pattern is required")
	}
	return c.list(ctx, url.Values{"keys": {pattern}})
}

func (c *Client) list(ctx context.Context, query url.Values) ([]Datum, error) {
	u, err := c.listURL()
	if err != nil {
		return nil, err
	}

	var out []wrapper
	if err := c.client.Get(ctx, u, query, &out); err != nil {
		return nil, fmt.Errorf("fetching data: %w", err)
	}
	data := make([]Datum, 0, len(out))
	for _, w := range out {
		if w.Datum != nil {
			data = append(data, *w.Datum)
		}
	}
	return data, nil
}

// Update replaces the value of an existing datum.
func (c *Client) Update(ctx context.Context, key, value string) (*Datum, error) {
	if err := Validate(key, value); err != nil {
		return nil, err
	}
	u, err := c.itemURL(key)
	if err != nil {
		return nil, err
	}

	var out wrapper
	body := map[string]any{"datum": map[string]string{"value": value}}
	if err := c.client.Put(ctx, u, body, &out); err != nil {
		return nil, fmt.Errorf("updating datum %q: %w", key, err)
	}
	return out.Datum, nil
}

// Delete removes a datum.
func (c *Client) Delete(ctx context.Context, key string) error {
	if key == "" {
		return cloud.InvalidArgument("datum key is required")
	}
	u, err := c.itemURL(key)
	if err != nil {
		return err
	}
	if err := c.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting datum %q: %w", key, err)
	}
	return nil
}
