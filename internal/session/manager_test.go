package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

type recordingCache struct {
	cleared int
}

func (c *recordingCache) ClearAll(context.Context) error {
	c.cleared++
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) listen(e Event, _ *Authorization) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func TestManager_SignInSignOut(t *testing.T) {
	ctx := context.Background()
	client, fake := newTestCloud(t)
	repo := newTestRepo(t)
	cache := &recordingCache{}
	events := &eventLog{}

	m := NewManager("main", client, repo)
	m.SetCache(cache)
	m.AddListener(events.listen)

	if err := m.SignOut(ctx); !errors.Is(err, cloud.ErrPrecondition) {
		t.Fatalf("SignOut() before sign in error = %v", err)
	}

	if _, err := m.SignIn(ctx, UsernameAuthProvider{Email: "e@x.com", Password: "p"}); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if !m.SignedIn() {
		t.Fatal("SignedIn() = false after sign in")
	}
	if client.AuthHeader() != "auth_token access-1" {
		t.Errorf("AuthHeader() = %q", client.AuthHeader())
	}
	if _, err := repo.Load(ctx, "main"); err != nil {
		t.Errorf("authorization not persisted: %v", err)
	}

	tokens, err := m.PartnerTokens(ctx, "p1")
	if err != nil {
		t.Fatalf("PartnerTokens() error = %v", err)
	}
	if diff := cmp.Diff([]PartnerToken{{PartnerID: "p1", PartnerToken: "pt1"}}, tokens); diff != "" {
		t.Errorf("PartnerTokens() mismatch (-want +got):\n%s", diff)
	}
	if q := fake.last().Query; q != "partner_ids%5B%5D=p1" {
		t.Errorf("partner token query = %q", q)
	}

	if err := m.SignOut(ctx); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if diff := cmp.Diff(map[string]any{"user": map[string]any{"access_token": "access-1"}}, fake.last().Body); diff != "" {
		t.Errorf("sign out body mismatch (-want +got):\n%s", diff)
	}
	if m.SignedIn() {
		t.Error("SignedIn() = true after sign out")
	}
	if cache.cleared != 1 {
		t.Errorf("cache cleared %d times, want 1", cache.cleared)
	}
	if _, err := repo.Load(ctx, "main"); !errors.Is(err, ErrNoSession) {
		t.Errorf("stored authorization not deleted: %v", err)
	}
	if diff := cmp.Diff([]Event{EventSignedIn, EventSignedOut}, events.all()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_RefreshRejected(t *testing.T) {
	ctx := context.Background()
	client, fake := newTestCloud(t)
	events := &eventLog{}

	m := NewManager("main", client, nil)
	m.AddListener(events.listen)

	if _, err := m.RefreshAuthorization(ctx); !errors.Is(err, cloud.ErrPrecondition) {
		t.Fatalf("RefreshAuthorization() before sign in error = %v", err)
	}
	if _, err := m.SignIn(ctx, UsernameAuthProvider{Email: "e@x.com", Password: "p"}); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	auth, err := m.RefreshAuthorization(ctx)
	if err != nil {
		t.Fatalf("RefreshAuthorization() error = %v", err)
	}
	if auth.AccessToken == "access-1" {
		t.Error("access token not replaced by refresh")
	}

	fake.refreshStatus = 401
	if _, err := m.RefreshAuthorization(ctx); !errors.Is(err, cloud.ErrAuth) {
		t.Fatalf("rejected refresh error = %v, want auth error", err)
	}
	if m.SignedIn() {
		t.Error("session should close when the refresh token is rejected")
	}
	if diff := cmp.Diff([]Event{EventSignedIn, EventRefreshed, EventExpired}, events.all()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_NextRefresh(t *testing.T) {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		auth    *Authorization
		lastErr error
		at      time.Time
		want    time.Duration
	}{
		{"signed out", nil, nil, created, idleWait},
		{"after failure", &Authorization{ExpiresIn: 86400, CreatedAt: created}, errors.New("x"), created, defaultRetryInterval},
		{"before grace", &Authorization{ExpiresIn: 86400, CreatedAt: created}, nil, created, 12 * time.Hour},
		{"inside grace", &Authorization{ExpiresIn: 86400, CreatedAt: created}, nil, created.Add(13 * time.Hour), 0},
		{"fresh short token", &Authorization{ExpiresIn: 3600, CreatedAt: created}, nil, created, 30 * time.Minute},
		{"fresh tiny token", &Authorization{ExpiresIn: 60, CreatedAt: created}, nil, created, defaultRetryInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			freezeNow(t, tt.at)
			m := &Manager{auth: tt.auth, lastErr: tt.lastErr, retryInterval: defaultRetryInterval}
			if got := m.nextRefresh(); got != tt.want {
				t.Errorf("nextRefresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManager_StartClose(t *testing.T) {
	client := cloud.New(cloud.Settings{Provider: cloud.AWS, Location: cloud.USA, Type: cloud.Development})
	m := NewManager("main", client, nil)

	m.Start(context.Background())
	m.Start(context.Background())
	m.wake()
	m.Close()
	m.Close()
}

func TestManager_StartCancelledContext(t *testing.T) {
	client := cloud.New(cloud.Settings{Provider: cloud.AWS, Location: cloud.USA, Type: cloud.Development})
	m := NewManager("main", client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		m.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not return after context cancellation")
	}
}
