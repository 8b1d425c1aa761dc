// package models defines the data model for the Spotify tool server
package models

import (
	"time"
)

// Session holds the OAuth tokens for one authenticated caller, keyed by an
// opaque session identifier. The Refresher mutates a Session in place on each
// renewal; sessions are never explicitly destroyed.
type Session struct {
	ID           string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the access token must be refreshed before use.
//
// The token is usable only while now is strictly before the expiry instant.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// PendingAuth records an authorization prompt that has been issued but not
// yet completed. Keyed by the OAuth state token; consumed on callback and
// swept after MaxPendingAge.
type PendingAuth struct {
	State     string
	SessionID string
	CreatedAt time.Time
}

// MaxPendingAge is how long a pending authorization stays redeemable.
const MaxPendingAge = 10 * time.Minute

// Stale reports whether a pending authorization is past the redeemable window.
func (p *PendingAuth) Stale(now time.Time) bool {
	return now.Sub(p.CreatedAt) > MaxPendingAge
}
