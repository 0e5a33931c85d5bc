package session

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

const (
	defaultRetryInterval = time.Minute
	idleWait             = 24 * time.Hour
)

// Logger defines the logging interface used by the session manager.
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

// Event is a session lifecycle change delivered to listeners.
type Event string

const (
	EventSignedIn  Event = "signed_in"
	EventRefreshed Event = "refreshed"
	EventSignedOut Event = "signed_out"
	// EventExpired means the cloud rejected the refresh token and the
	// session has been closed.
	EventExpired Event = "expired"
)

// Listener receives session events. auth is nil for EventSignedOut and EventExpired.
type Listener func(event Event, auth *Authorization)

// CacheClearer is the part of the SDK cache the session wipes on sign-out.
type CacheClearer interface {
	ClearAll(ctx context.Context) error
}

// PartnerToken is a short-lived token for a partner cloud.
type PartnerToken struct {
	PartnerID    string `json:"partner_id"`
	PartnerToken string `json:"partner_token"`
}

// Manager owns the authorization for one named session and keeps it fresh.
//
// It implements cloud.TokenSource; NewManager installs it on the client.
// All methods are safe for concurrent use.
type Manager struct {
	name   string
	client *cloud.Client
	repo   TokenRepository

	mu        sync.RWMutex
	auth      *Authorization
	lastErr   error
	listeners []Listener
	cache     CacheClearer
	logger    Logger

	retryInterval time.Duration
	kick          chan struct{}

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a session manager and makes it the token source of client.
// repo may be nil, in which case nothing is persisted.
func NewManager(name string, client *cloud.Client, repo TokenRepository) *Manager {
	m := &Manager{
		name:          name,
		client:        client,
		repo:          repo,
		logger:        noopLogger{},
		retryInterval: defaultRetryInterval,
		kick:          make(chan struct{}, 1),
	}
	client.SetTokenSource(m)
	return m
}

// SetLogger sets the logger.
func (m *Manager) SetLogger(logger Logger) {
	m.mu.Lock()
	m.logger = logger
	m.mu.Unlock()
}

// SetCache sets the cache cleared on sign-out.
func (m *Manager) SetCache(cache CacheClearer) {
	m.mu.Lock()
	m.cache = cache
	m.mu.Unlock()
}

// AddListener registers a listener for session events.
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Name returns the session name.
func (m *Manager) Name() string { return m.name }

// Client returns the cloud client this session authorizes.
func (m *Manager) Client() *cloud.Client { return m.client }

// Authorization returns a copy of the current authorization, or nil.
func (m *Manager) Authorization() *Authorization {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.auth.Clone()
}

// AccessToken implements cloud.TokenSource.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.auth == nil {
		return ""
	}
	return m.auth.AccessToken
}

// SignedIn reports whether the session holds an authorization.
func (m *Manager) SignedIn() bool {
	return m.AccessToken() != ""
}

// SignIn authenticates with provider and persists the result.
func (m *Manager) SignIn(ctx context.Context, provider AuthProvider) (*Authorization, error) {
	auth, err := provider.Authenticate(ctx, m.client)
	if err != nil {
		return nil, err
	}
	m.install(ctx, auth)
	m.emit(EventSignedIn, auth)
	return auth.Clone(), nil
}

// RefreshAuthorization exchanges the refresh token for a new access token.
//
// Returns:
//   - error: Precondition when not signed in; an auth error closes the session
func (m *Manager) RefreshAuthorization(ctx context.Context) (*Authorization, error) {
	current := m.Authorization()
	if current == nil {
		return nil, cloud.Precondition("session %q is not signed in", m.name)
	}

	auth, err := RefreshAuthProvider{Authorization: current}.Authenticate(ctx, m.client)
	if err != nil {
		m.mu.Lock()
		m.lastErr = err
		m.mu.Unlock()
		if cloud.KindOf(err) == cloud.KindAuth {
			m.logger.Warn("refresh token rejected, closing session", "session", m.name)
			m.clear(ctx)
			m.emit(EventExpired, nil)
		}
		return nil, err
	}

	m.install(ctx, auth)
	m.emit(EventRefreshed, auth)
	return auth.Clone(), nil
}

// SignOut tells the cloud to invalidate the token, then clears the stored
// authorization and the cache. Local state is cleared even if the call fails.
func (m *Manager) SignOut(ctx context.Context) error {
	token := m.AccessToken()
	if token == "" {
		return cloud.Precondition("session %q is not signed in", m.name)
	}

	var callErr error
	u, err := m.client.URL(cloud.ServiceUser, "users/sign_out.json")
	if err == nil {
		body := map[string]any{"user": map[string]string{"access_token": token}}
		callErr = m.client.Post(ctx, u, body, nil)
	} else {
		callErr = err
	}

	m.clear(ctx)

	m.mu.RLock()
	cache := m.cache
	m.mu.RUnlock()
	if cache != nil {
		if err := cache.ClearAll(ctx); err != nil {
			m.logger.Warn("clearing cache on sign out", "error", err)
		}
	}

	m.emit(EventSignedOut, nil)
	if callErr != nil {
		return fmt.Errorf("signing out: %w", callErr)
	}
	return nil
}

// PartnerTokens fetches short-lived tokens for the given partner clouds.
func (m *Manager) PartnerTokens(ctx context.Context, partnerIDs ...string) ([]PartnerToken, error) {
	if !m.SignedIn() {
		return nil, cloud.Precondition("session %q is not signed in", m.name)
	}
	u, err := m.client.URL(cloud.ServiceUser, "api/v1/partner_tokens.json")
	if err != nil {
		return nil, err
	}

	var out struct {
		PartnerTokens []PartnerToken `json:"partner_tokens"`
	}
	if err := m.client.Get(ctx, u, url.Values{"partner_ids[]": partnerIDs}, &out); err != nil {
		return nil, fmt.Errorf("fetching partner tokens: %w", err)
	}
	return out.PartnerTokens, nil
}

func (m *Manager) install(ctx context.Context, auth *Authorization) {
	m.mu.Lock()
	m.auth = auth.Clone()
	m.lastErr = nil
	m.mu.Unlock()

	if m.repo != nil {
		if err := m.repo.Save(ctx, m.name, auth); err != nil {
			m.logger.Warn("persisting authorization", "session", m.name, "error", err)
		}
	}
	m.wake()
}

func (m *Manager) clear(ctx context.Context) {
	m.mu.Lock()
	m.auth = nil
	m.lastErr = nil
	m.mu.Unlock()

	if m.repo != nil {
		if err := m.repo.Delete(ctx, m.name); err != nil {
			m.logger.Warn("deleting stored authorization", "session", m.name, "error", err)
		}
	}
	m.wake()
}

func (m *Manager) emit(event Event, auth *Authorization) {
	m.mu.RLock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, l := range listeners {
		l(event, auth.Clone())
	}
}

// wake nudges the refresh loop to recompute its timer.
func (m *Manager) wake() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}
