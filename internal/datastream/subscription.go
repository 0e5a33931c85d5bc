package datastream

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

// Subscription and event types.
const (
	TypeConnectivity = "connectivity"
	TypeDatapoint    = "datapoint"
	TypeDatapointAck = "datapointack"
)

// DefaultTypes is used when a subscription names no types.
var DefaultTypes = []string{TypeDatapoint, TypeDatapointAck}

var knownTypes = map[string]bool{
	TypeConnectivity: true,
	TypeDatapoint:    true,
	TypeDatapointAck: true,
}

const (
	subscriptionsPath = "api/v1/subscriptions"
	clientTypeMobile  = "mobile"
	batchSizeOne      = "1"
	allProperties     = "*"
)

// Subscription is a datastream subscription. Its StreamKey opens the
// websocket.
type Subscription struct {
	ID               string `json:"id,omitempty"`
	OEM              string `json:"oem,omitempty"`
	DSN              string `json:"dsn,omitempty"`
	Name             string `json:"name,omitempty"`
	Description      string `json:"description,omitempty"`
	PropertyName     string `json:"property_name,omitempty"`
	IsSuspended      bool   `json:"is_suspended,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
	DateSuspended    string `json:"date_suspended,omitempty"`
	OEMModel         string `json:"oem_model,omitempty"`
	StreamKey        string `json:"stream_key,omitempty"`
	ClientType       string `json:"client_type,omitempty"`
	SubscriptionType string `json:"subscription_type,omitempty"`
}

// DSNs returns the subscribed device serial numbers.
func (s *Subscription) DSNs() []string {
	return splitList(s.DSN)
}

type subscriptionWrapper struct {
	Subscription *Subscription `json:"subscription"`
}

type subscriptionRequest struct {
	ID               string `json:"id,omitempty"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	DSN              string `json:"dsn,omitempty"`
	PropertyName     string `json:"property_name"`
	ClientType       string `json:"client_type"`
	BatchSize        string `json:"batch_size"`
	SubscriptionType string `json:"subscription_type"`
	StreamKey        string `json:"stream_key,omitempty"`
	OEMModel         string `json:"oem_model,omitempty"`
}

// Service manages subscriptions on the mdss subscription service.
type Service struct {
	client *cloud.Client
}

// New creates a subscription service.
func New(client *cloud.Client) *Service {
	return &Service{client: client}
}

// Client returns the cloud client the service uses.
func (s *Service) Client() *cloud.Client { return s.client }

func (s *Service) url(path string) (string, error) {
	return s.client.URL(cloud.ServiceMDSSSubscription, path)
}

// Create adds a subscription for every property of dsns. An empty dsns
// subscribes to every device of the account; empty types mean DefaultTypes.
func (s *Service) Create(ctx context.Context, name, description string, dsns, types []string) (*Subscription, error) {
	typeList, err := joinTypes(types)
	if err != nil {
		return nil, err
	}
	u, err := s.url(subscriptionsPath)
	if err != nil {
		return nil, err
	}
	body := subscriptionRequest{
		Name:             name,
		Description:      description,
		DSN:              strings.Join(dsns, ","),
		PropertyName:     allProperties,
		ClientType:       clientTypeMobile,
		BatchSize:        batchSizeOne,
		SubscriptionType: typeList,
	}
	var resp subscriptionWrapper
	if err := s.client.Post(ctx, u, body, &resp); err != nil {
		return nil, fmt.Errorf("creating subscription %s: %w", name, err)
	}
	return unwrap(resp)
}

// Update changes the devices and types of an existing subscription.
func (s *Service) Update(ctx context.Context, sub *Subscription, dsns, types []string) (*Subscription, error) {
	if sub == nil || sub.ID == "" {
		return nil, cloud.Precondition("subscription id is required")
	}
	if len(dsns) == 0 {
		return nil, cloud.Precondition("device list is empty")
	}
	typeList, err := joinTypes(types)
	if err != nil {
		return nil, err
	}
	u, err := s.url(subscriptionsPath)
	if err != nil {
		return nil, err
	}
	body := subscriptionRequest{
		ID:               sub.ID,
		Name:             sub.Name,
		Description:      sub.Description,
		DSN:              strings.Join(dsns, ","),
		PropertyName:     allProperties,
		ClientType:       clientTypeMobile,
		BatchSize:        batchSizeOne,
		SubscriptionType: typeList,
		StreamKey:        sub.StreamKey,
		OEMModel:         sub.OEMModel,
	}
	var resp subscriptionWrapper
	if err := s.client.Put(ctx, u, body, &resp); err != nil {
		return nil, fmt.Errorf("updating subscription %s: %w", sub.ID, err)
	}
	return unwrap(resp)
}

// Fetch returns one subscription.
func (s *Service) Fetch(ctx context.Context, id string) (*Subscription, error) {
	if id == "" {
		return nil, cloud.Precondition("subscription id is required")
	}
	u, err := s.url(subscriptionsPath + "/" + url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var resp subscriptionWrapper
	if err := s.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching subscription %s: %w", id, err)
	}
	return unwrap(resp)
}

// FetchAll lists the subscriptions of the user.
func (s *Service) FetchAll(ctx context.Context) ([]Subscription, error) {
	u, err := s.url(subscriptionsPath)
	if err != nil {
		return nil, err
	}
	var resp []subscriptionWrapper
	if err := s.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching subscriptions: %w", err)
	}
	subs := make([]Subscription, 0, len(resp))
	for _, w := range resp {
		if w.Subscription != nil {
			subs = append(subs, *w.Subscription)
		}
	}
	return subs, nil
}

// Delete removes a subscription.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return cloud.Precondition("subscription id is required")
	}
	u, err := s.url(subscriptionsPath + "/" + url.PathEscape(id))
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting subscription %s: %w", id, err)
	}
	return nil
}

func unwrap(resp subscriptionWrapper) (*Subscription, error) {
	if resp.Subscription == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no subscription"}
	}
	return resp.Subscription, nil
}

func joinTypes(types []string) (string, error) {
	if len(types) == 0 {
		types = DefaultTypes
	}
	for _, t := range types {
		if !knownTypes[t] {
			return "", cloud.InvalidArgument("unknown subscription type %q", t)
		}
	}
	return strings.Join(types, ","), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
