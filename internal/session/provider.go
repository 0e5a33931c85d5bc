package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

// AuthProvider obtains an Authorization from the cloud or from storage.
type AuthProvider interface {
	Authenticate(ctx context.Context, client *cloud.Client) (*Authorization, error)
}

type application struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

// UsernameAuthProvider signs in with an email address and password.
type UsernameAuthProvider struct {
	Email    string
	Password string
}

// Authenticate posts the credentials to users/sign_in.json.
func (p UsernameAuthProvider) Authenticate(ctx context.Context, client *cloud.Client) (*Authorization, error) {
	if p.Email == "" || p.Password == "" {
		return nil, cloud.InvalidArgument("email and password are required")
	}
	settings := client.Settings()
	if settings.AppID == "" || settings.AppSecret == "" {
		return nil, cloud.InvalidArgument("app id and app secret are required")
	}

	u, err := client.URL(cloud.ServiceUser, "users/sign_in.json")
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"user": map[string]any{
			"email":    p.Email,
			"password": p.Password,
			"application": application{
				AppID:     settings.AppID,
				AppSecret: settings.AppSecret,
			},
		},
	}

	var auth Authorization
	if err := client.Post(ctx, u, body, &auth); err != nil {
		return nil, fmt.Errorf("signing in: %w", err)
	}
	if auth.AccessToken == "" {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "sign in response has no access_token"}
	}
	return auth.stamp(), nil
}

// RefreshAuthProvider exchanges a refresh token for a new access token.
type RefreshAuthProvider struct {
	Authorization *Authorization
}

// Authenticate posts the refresh token to users/refresh_token.json.
func (p RefreshAuthProvider) Authenticate(ctx context.Context, client *cloud.Client) (*Authorization, error) {
	if p.Authorization == nil || p.Authorization.RefreshToken == "" {
		return nil, cloud.InvalidArgument("a refresh token is required")
	}

	u, err := client.URL(cloud.ServiceUser, "users/refresh_token.json")
	if err != nil {
		return nil, err
	}

	req := cloud.Request{
		Method: http.MethodPost,
		URL:    u,
		Body: map[string]any{
			"user": map[string]string{"refresh_token": p.Authorization.RefreshToken},
		},
		Header: http.Header{"Authorization": {"auth_token " + p.Authorization.AccessToken}},
	}

	var fresh Authorization
	if err := client.Do(ctx, req, &fresh); err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	if fresh.AccessToken == "" {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "refresh response has no access_token"}
	}

	auth := p.Authorization.Clone()
	auth.UpdateFrom(fresh.stamp())
	return auth, nil
}

// CachedAuthProvider restores the authorization saved for a session name.
// A token inside the refresh grace window is refreshed before use.
type CachedAuthProvider struct {
	Repo        TokenRepository
	SessionName string
}

// Authenticate loads the stored authorization.
//
// Returns:
//   - error: Precondition when nothing is stored for the session
func (p CachedAuthProvider) Authenticate(ctx context.Context, client *cloud.Client) (*Authorization, error) {
	if p.Repo == nil {
		return nil, cloud.Precondition("no token repository")
	}

	auth, err := p.Repo.Load(ctx, p.SessionName)
	if errors.Is(err, ErrNoSession) {
		return nil, cloud.Precondition("no cached authorization for session %q", p.SessionName)
	}
	if err != nil {
		return nil, fmt.Errorf("loading cached authorization: %w", err)
	}

	if !auth.NeedsRefresh() {
		return auth, nil
	}
	return RefreshAuthProvider{Authorization: auth}.Authenticate(ctx, client)
}
