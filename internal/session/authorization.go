package session

import (
	"time"
)

// RefreshGrace is how long before expiry a token is considered due for refresh.
const RefreshGrace = 12 * time.Hour

// RoleTag is a key/value label attached to the signed-in user's role.
type RoleTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Authorization is the token pair returned by the user service.
type Authorization struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"` // seconds from CreatedAt
	Role         string    `json:"role,omitempty"`
	RoleTags     []RoleTag `json:"role_tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// now is replaced in tests.
var now = time.Now

// ExpiresAt returns the absolute expiry time.
func (a *Authorization) ExpiresAt() time.Time {
	return a.CreatedAt.Add(time.Duration(a.ExpiresIn) * time.Second)
}

// SecondsToExpiry returns the seconds left before the access token expires,
// never less than zero.
func (a *Authorization) SecondsToExpiry() int64 {
	left := int64(a.ExpiresAt().Sub(now()) / time.Second)
	if left < 0 {
		return 0
	}
	return left
}

// NeedsRefresh reports whether fewer than RefreshGrace remain.
func (a *Authorization) NeedsRefresh() bool {
	return time.Duration(a.SecondsToExpiry())*time.Second < RefreshGrace
}

// UpdateFrom copies the refreshable fields of other into a.
func (a *Authorization) UpdateFrom(other *Authorization) {
	a.AccessToken = other.AccessToken
	a.RefreshToken = other.RefreshToken
	a.ExpiresIn = other.ExpiresIn
	a.CreatedAt = other.CreatedAt
	if other.Role != "" {
		a.Role = other.Role
	}
	if other.RoleTags != nil {
		a.RoleTags = other.RoleTags
	}
}

// Clone returns a deep copy.
func (a *Authorization) Clone() *Authorization {
	if a == nil {
		return nil
	}
	c := *a
	if a.RoleTags != nil {
		c.RoleTags = make([]RoleTag, len(a.RoleTags))
		copy(c.RoleTags, a.RoleTags)
	}
	return &c
}

// stamp fills CreatedAt for responses that leave it out.
func (a *Authorization) stamp() *Authorization {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now().UTC()
	}
	return a
}
