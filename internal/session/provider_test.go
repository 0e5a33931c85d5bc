package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

func TestUsernameAuthProvider(t *testing.T) {
	client, fake := newTestCloud(t)

	auth, err := UsernameAuthProvider{Email: "a@example.com", Password: "secret"}.Authenticate(context.Background(), client)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if auth.AccessToken != "access-1" || auth.RefreshToken != "refresh-1" {
		t.Errorf("tokens = %q/%q", auth.AccessToken, auth.RefreshToken)
	}
	if auth.CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped")
	}
	if diff := cmp.Diff([]RoleTag{{Key: "region", Value: "us"}}, auth.RoleTags); diff != "" {
		t.Errorf("RoleTags mismatch (-want +got):\n%s", diff)
	}

	want := map[string]any{
		"user": map[string]any{
			"email":    "a@example.com",
			"password": "secret",
			"application": map[string]any{
				"app_id":     "app-id",
				"app_secret": "app-secret",
			},
		},
	}
	req := fake.last()
	if diff := cmp.Diff(want, req.Body); diff != "" {
		t.Errorf("sign in body mismatch (-want +got):\n%s", diff)
	}
	if req.Auth != "auth_token none" {
		t.Errorf("Authorization = %q, want auth_token none", req.Auth)
	}
}

func TestUsernameAuthProvider_Errors(t *testing.T) {
	client, fake := newTestCloud(t)

	tests := []struct {
		name     string
		provider UsernameAuthProvider
		status   int
		want     error
	}{
		{"missing email", UsernameAuthProvider{Password: "p"}, 0, cloud.ErrInvalidArgument},
		{"missing password", UsernameAuthProvider{Email: "e"}, 0, cloud.ErrInvalidArgument},
		{"rejected", UsernameAuthProvider{Email: "e", Password: "p"}, 401, cloud.ErrAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake.signInStatus = tt.status
			_, err := tt.provider.Authenticate(context.Background(), client)
			if !errors.Is(err, tt.want) {
				t.Errorf("Authenticate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRefreshAuthProvider(t *testing.T) {
	client, fake := newTestCloud(t)

	old := &Authorization{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresIn:    60,
		Role:         "EndUser",
		CreatedAt:    time.Now().Add(-time.Hour),
	}
	auth, err := RefreshAuthProvider{Authorization: old}.Authenticate(context.Background(), client)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	req := fake.last()
	if req.Path != "/users/refresh_token.json" {
		t.Errorf("path = %q", req.Path)
	}
	if req.Auth != "auth_token old-access" {
		t.Errorf("Authorization = %q, want the previous access token", req.Auth)
	}
	if diff := cmp.Diff(map[string]any{"user": map[string]any{"refresh_token": "old-refresh"}}, req.Body); diff != "" {
		t.Errorf("refresh body mismatch (-want +got):\n%s", diff)
	}
	if auth.RefreshToken != "refresh-2" || auth.Role != "EndUser" {
		t.Errorf("refreshed auth = %+v", auth)
	}
	if old.AccessToken != "old-access" {
		t.Error("input authorization must not be modified")
	}

	_, err = RefreshAuthProvider{}.Authenticate(context.Background(), client)
	if !errors.Is(err, cloud.ErrInvalidArgument) {
		t.Errorf("missing refresh token error = %v", err)
	}
}

func TestCachedAuthProvider(t *testing.T) {
	ctx := context.Background()
	client, fake := newTestCloud(t)
	repo := newTestRepo(t)
	provider := CachedAuthProvider{Repo: repo, SessionName: "main"}

	if _, err := provider.Authenticate(ctx, client); !errors.Is(err, cloud.ErrPrecondition) {
		t.Fatalf("empty repo error = %v, want precondition", err)
	}

	fresh := &Authorization{AccessToken: "stored", RefreshToken: "r", ExpiresIn: 86400 * 7, CreatedAt: time.Now().UTC()}
	if err := repo.Save(ctx, "main", fresh); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	auth, err := provider.Authenticate(ctx, client)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if auth.AccessToken != "stored" {
		t.Errorf("AccessToken = %q, want stored", auth.AccessToken)
	}
	if n := fake.count("/users/refresh_token.json"); n != 0 {
		t.Errorf("fresh token triggered %d refreshes", n)
	}

	stale := &Authorization{AccessToken: "stale", RefreshToken: "r", ExpiresIn: 3600, CreatedAt: time.Now().UTC()}
	if err := repo.Save(ctx, "main", stale); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	auth, err = provider.Authenticate(ctx, client)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if auth.AccessToken == "stale" {
		t.Error("token inside the grace window should be refreshed")
	}
	if n := fake.count("/users/refresh_token.json"); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}
}
