package message

import (
	"context"
	"fmt"
	"net/url"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

const destinationsPath = "messageservice/v1/destinations"

// Service manages destinations on the message service.
type Service struct {
	client *cloud.Client
}

// New creates a message service.
func New(client *cloud.Client) *Service {
	return &Service{client: client}
}

func (s *Service) url(uuid string) (string, error) {
	if uuid == "" {
		return s.client.URL(cloud.ServiceMessage, destinationsPath)
	}
	return s.client.URL(cloud.ServiceMessage, destinationsPath+"/"+url.PathEscape(uuid))
}

func unwrap(w destinationWrapper) (*Destination, error) {
	if w.Destination == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no destination"}
	}
	return w.Destination, nil
}

// Create adds a destination. The returned copy carries the new uuid.
func (s *Service) Create(ctx context.Context, d *Destination) (*Destination, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	u, err := s.url("")
	if err != nil {
		return nil, err
	}
	var resp destinationWrapper
	if err := s.client.Post(ctx, u, destinationWrapper{Destination: d}, &resp); err != nil {
		return nil, fmt.Errorf("creating %s destination: %w", d.Type, err)
	}
	return unwrap(resp)
}

// Fetch returns one destination.
func (s *Service) Fetch(ctx context.Context, uuid string) (*Destination, error) {
	if uuid == "" {
		return nil, cloud.InvalidArgument("destination uuid is required")
	}
	u, err := s.url(uuid)
	if err != nil {
		return nil, err
	}
	var resp destinationWrapper
	if err := s.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching destination %s: %w", uuid, err)
	}
	return unwrap(resp)
}

// FetchByTypes lists the destinations of the given types, or all of them
// when no type is given.
func (s *Service) FetchByTypes(ctx context.Context, types ...string) ([]Destination, error) {
	u, err := s.url("")
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	for _, t := range types {
		q.Add("type", t)
	}
	var resp destinationsWrapper
	if err := s.client.Get(ctx, u, q, &resp); err != nil {
		return nil, fmt.Errorf("fetching destinations: %w", err)
	}
	return resp.Destinations, nil
}

// Update replaces a destination.
func (s *Service) Update(ctx context.Context, d *Destination) (*Destination, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.UUID == "" {
		return nil, cloud.InvalidArgument("destination must be created before it is updated")
	}
	u, err := s.url(d.UUID)
	if err != nil {
		return nil, err
	}
	var resp destinationWrapper
	if err := s.client.Put(ctx, u, destinationWrapper{Destination: d}, &resp); err != nil {
		return nil, fmt.Errorf("updating destination %s: %w", d.UUID, err)
	}
	return unwrap(resp)
}

// Delete removes a destination.
func (s *Service) Delete(ctx context.Context, uuid string) error {
	if uuid == "" {
		return cloud.InvalidArgument("destination uuid is required")
	}
	u, err := s.url(uuid)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting destination %s: %w", uuid, err)
	}
	return nil
}

// CreateAll creates destinations one after another. It stops at the first
// failure and returns what was created so far.
func (s *Service) CreateAll(ctx context.Context, ds []*Destination) ([]*Destination, error) {
	for _, d := range ds {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return cloud.Sequential(ctx, ds, s.Create)
}

// FetchAll fetches destinations by uuid one after another.
func (s *Service) FetchAll(ctx context.Context, uuids []string) ([]*Destination, error) {
	return cloud.Sequential(ctx, uuids, s.Fetch)
}

// DeleteAll deletes destinations one after another and returns the uuids
// that were deleted.
func (s *Service) DeleteAll(ctx context.Context, uuids []string) ([]string, error) {
	return cloud.Sequential(ctx, uuids, func(ctx context.Context, uuid string) (string, error) {
		return uuid, s.Delete(ctx, uuid)
	})
}
