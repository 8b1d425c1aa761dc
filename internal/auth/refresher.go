package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/shared"
)

// DefaultTokenURL is the Spotify token exchange and refresh endpoint.
const DefaultTokenURL = "https://accounts.spotify.com/api/token"

// Refresher returns valid access tokens for stored sessions, transparently
// exchanging the refresh token when the stored access token has expired.
//
// Expiry is an explicit [models.Session.Expired] check guarding a single
// store mutation. A failed refresh surfaces immediately; there is no retry.
// Concurrent refreshes for the same session id are not serialized and resolve
// last-writer-wins.
type Refresher struct {
	store        SessionStore
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	logger       *log.Logger
	now          func() time.Time
}

// RefresherOpts contains configuration options for creating a Refresher.
type RefresherOpts struct {
	Store        SessionStore
	ClientID     string
	ClientSecret string
	TokenURL     string       // defaults to DefaultTokenURL
	HTTPClient   *http.Client // defaults to http.DefaultClient
	Logger       *log.Logger
	Now          func() time.Time // defaults to time.Now, injectable for tests
}

// NewRefresher creates a Refresher for the given store and client credentials.
func NewRefresher(opts RefresherOpts) *Refresher {
	if opts.TokenURL == "" {
		opts.TokenURL = DefaultTokenURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Refresher{
		store:        opts.Store,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		tokenURL:     opts.TokenURL,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		now:          opts.Now,
	}
}

// tokenResponse is the upstream token endpoint's refresh response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// GetValidToken returns a usable access token for the session.
//
// Returns [shared.ErrNotAuthenticated] when no session exists. When the
// stored token has expired, exchanges the refresh token and overwrites the
// stored session before returning the new access token.
func (r *Refresher) GetValidToken(ctx context.Context, sessionID string) (string, error) {
	session, err := r.store.Get(sessionID)
	if err != nil {
		return "", err
	}

	if !session.Expired(r.now()) {
		return session.AccessToken, nil
	}

	r.logger.Debug("access token expired, refreshing", "session", sessionID)

	refreshed, err := r.refresh(ctx, session.RefreshToken)
	if err != nil {
		return "", err
	}

	now := r.now()
	session.AccessToken = refreshed.AccessToken
	session.ExpiresAt = now.Add(time.Duration(refreshed.ExpiresIn) * time.Second)
	session.UpdatedAt = now
	if refreshed.RefreshToken != "" {
		// Spotify occasionally rotates the refresh token.
		session.RefreshToken = refreshed.RefreshToken
	}

	if err := r.store.Set(session); err != nil {
		return "", fmt.Errorf("failed to store refreshed session: %w", err)
	}

	return session.AccessToken, nil
}

// refresh exchanges a refresh token for a new access token via the upstream
// token endpoint, authenticating with client credentials in a Basic header.
func (r *Refresher) refresh(ctx context.Context, refreshToken string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+basicCredentials(r.clientID, r.clientSecret))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s: %s", shared.ErrRefreshFailed, resp.Status, strings.TrimSpace(string(body)))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrRefreshFailed, err)
	}

	return &token, nil
}

func basicCredentials(clientID, clientSecret string) string {
	return base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
}
