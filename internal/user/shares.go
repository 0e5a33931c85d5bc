package user

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

// Share operations.
const (
	OperationRead  = "read"
	OperationWrite = "write"
)

// ShareRole names a role granted through a share.
type ShareRole struct {
	Name string `json:"name"`
}

// ShareProfile identifies the owner or recipient of a share.
type ShareProfile struct {
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Share grants another user access to a resource, usually a device.
type Share struct {
	ID           string        `json:"id,omitempty"`
	CreatedAt    string        `json:"created_at,omitempty"`
	UpdatedAt    string        `json:"updated_at,omitempty"`
	StartDateAt  string        `json:"start_date_at,omitempty"`
	EndDateAt    string        `json:"end_date_at,omitempty"`
	Status       string        `json:"status,omitempty"`
	Operation    string        `json:"operation,omitempty"`
	OwnerID      int64         `json:"owner_id,omitempty"`
	ResourceID   string        `json:"resource_id,omitempty"`
	ResourceName string        `json:"resource_name,omitempty"`
	UserID       int64         `json:"user_id,omitempty"`
	Role         *ShareRole    `json:"role,omitempty"`
	UserEmail    string        `json:"user_email,omitempty"`
	GrantID      int64         `json:"grant_id,omitempty"`
	OwnerProfile *ShareProfile `json:"owner_profile,omitempty"`
	UserProfile  *ShareProfile `json:"user_profile,omitempty"`
}

// NewDeviceShare builds a share of a device with another user.
func NewDeviceShare(dsn, email, operation string) *Share {
	return &Share{
		ResourceName: "device",
		ResourceID:   dsn,
		UserEmail:    email,
		Operation:    operation,
	}
}

func (sh *Share) validate() error {
	if sh == nil {
		return cloud.InvalidArgument("share is required")
	}
	if sh.ResourceID == "" || sh.ResourceName == "" {
		return cloud.InvalidArgument("share needs a resource name and id")
	}
	if !validEmail(sh.UserEmail) {
		return cloud.InvalidArgument("share needs a valid user email")
	}
	if sh.Operation != "" && sh.Operation != OperationRead && sh.Operation != OperationWrite {
		return cloud.InvalidArgument("share operation must be %q or %q", OperationRead, OperationWrite)
	}
	return nil
}

type shareWrapper struct {
	Share *Share `json:"share"`
}

func unwrapShares(in []shareWrapper) []Share {
	out := make([]Share, 0, len(in))
	for _, w := range in {
		if w.Share != nil {
			out = append(out, *w.Share)
		}
	}
	return out
}

func (s *Service) shareURL(id string) (string, error) {
	return s.url("api/v1/users/shares/" + url.PathEscape(id) + ".json")
}

// CreateShare shares a resource. emailTemplateID is optional.
func (s *Service) CreateShare(ctx context.Context, sh *Share, emailTemplateID string) (*Share, error) {
	if err := sh.validate(); err != nil {
		return nil, err
	}
	u, err := s.url("api/v1/users/shares.json")
	if err != nil {
		return nil, err
	}
	req := cloud.Request{Method: http.MethodPost, URL: u, Body: shareWrapper{Share: sh}}
	if emailTemplateID != "" {
		req.Query = url.Values{"email_template_id": {emailTemplateID}}
	}

	var out shareWrapper
	if err := s.client.Do(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("creating share of %s: %w", sh.ResourceID, err)
	}
	return out.Share, nil
}

// CreateShares creates shares one after another. It stops at the first
// failure or cancellation and returns the shares created so far.
func (s *Service) CreateShares(ctx context.Context, shares []*Share, emailTemplateID string) ([]*Share, error) {
	return cloud.Sequential(ctx, shares, func(ctx context.Context, sh *Share) (*Share, error) {
		return s.CreateShare(ctx, sh, emailTemplateID)
	})
}

// FetchOwnedShares lists shares the user created.
func (s *Service) FetchOwnedShares(ctx context.Context) ([]Share, error) {
	return s.listShares(ctx, "api/v1/users/shares.json")
}

// FetchReceivedShares lists shares other users granted to this user.
func (s *Service) FetchReceivedShares(ctx context.Context) ([]Share, error) {
	return s.listShares(ctx, "api/v1/users/shares/received.json")
}

func (s *Service) listShares(ctx context.Context, path string) ([]Share, error) {
	u, err := s.url(path)
	if err != nil {
		return nil, err
	}
	var out []shareWrapper
	if err := s.client.Get(ctx, u, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching shares: %w", err)
	}
	return unwrapShares(out), nil
}

// FetchShare returns one share.
func (s *Service) FetchShare(ctx context.Context, id string) (*Share, error) {
	if id == "" {
		return nil, cloud.InvalidArgument("share id is required")
	}
	u, err := s.shareURL(id)
	if err != nil {
		return nil, err
	}
	var out shareWrapper
	if err := s.client.Get(ctx, u, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching share %s: %w", id, err)
	}
	return out.Share, nil
}

// UpdateShare writes sh, which must have been fetched from the cloud.
func (s *Service) UpdateShare(ctx context.Context, sh *Share) (*Share, error) {
	if sh == nil || sh.ID == "" {
		return nil, cloud.InvalidArgument("only shares fetched from the cloud can be updated")
	}
	u, err := s.shareURL(sh.ID)
	if err != nil {
		return nil, err
	}
	var out shareWrapper
	if err := s.client.Put(ctx, u, shareWrapper{Share: sh}, &out); err != nil {
		return nil, fmt.Errorf("updating share %s: %w", sh.ID, err)
	}
	return out.Share, nil
}

// DeleteShare removes a share the user owns or received.
func (s *Service) DeleteShare(ctx context.Context, id string) error {
	if id == "" {
		return cloud.InvalidArgument("share id is required")
	}
	u, err := s.shareURL(id)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting share %s: %w", id, err)
	}
	return nil
}
