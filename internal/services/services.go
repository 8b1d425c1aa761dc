// package services implements the authenticated Spotify Web API client
package services

import (
	"context"
)

// TokenSource returns a usable access token for a stored session, refreshing
// it first when expired. Satisfied by [auth.Refresher].
type TokenSource interface {
	GetValidToken(ctx context.Context, sessionID string) (string, error)
}

// staticTokenSource returns a fixed token for every session. Test helper.
type staticTokenSource struct {
	token string
}

func (s *staticTokenSource) GetValidToken(ctx context.Context, sessionID string) (string, error) {
	return s.token, nil
}

// StaticTokenSource creates a TokenSource that always returns token.
func StaticTokenSource(token string) TokenSource {
	return &staticTokenSource{token: token}
}
